// Package store persists users and the chat audit trail in SQLite through
// GORM, and serves the recent chat history replayed to users after login.
//
// UserRepository implements relay.Authenticator, AuditLog implements
// relay.Auditor and HistoryRepository (optionally wrapped in CachedHistory)
// implements relay.HistorySource.
package store
