package store

import (
	"context"
	"encoding/base64"
	"fmt"

	"gorm.io/gorm"

	"github.com/Tyrowin/gochat-relay/internal/relay"
)

const (
	defaultHistoryLimit = 200
	maxHistoryLimit     = 1000
)

// HistoryRepository reads the chat history of the global room.
type HistoryRepository struct {
	db *gorm.DB
}

var _ relay.HistorySource = (*HistoryRepository)(nil)

// NewHistoryRepository creates a HistoryRepository.
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// RecentHistory implements relay.HistorySource. It returns the latest limit
// text and file messages, oldest first. Limits outside 1..1000 mean 200.
func (r *HistoryRepository) RecentHistory(ctx context.Context, limit int) ([]relay.HistoryItem, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	var actions []Action
	err := r.db.WithContext(ctx).
		Preload("Actor").
		Preload("Text").
		Preload("File").
		Where("room = ? AND action_type IN ?", GlobalRoom, []string{ActionText, ActionFile}).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	items := make([]relay.HistoryItem, 0, len(actions))
	for i := len(actions) - 1; i >= 0; i-- {
		items = append(items, historyItem(&actions[i]))
	}
	return items, nil
}

func historyItem(a *Action) relay.HistoryItem {
	item := relay.HistoryItem{Timestamp: a.CreatedAt.UnixMilli()}
	if a.Actor != nil {
		item.From = a.Actor.Username
	}

	switch a.ActionType {
	case ActionText:
		item.Type = relay.TypeText
		if a.Text != nil {
			item.Content = a.Text.Content
		}
	case ActionFile:
		item.Type = relay.TypeFile
		if a.File != nil {
			item.Filename = a.File.Filename
			item.Mimetype = a.File.Mimetype
			item.Size = a.File.Size
			item.Data = base64.StdEncoding.EncodeToString(a.File.Data)
		}
	}
	return item
}
