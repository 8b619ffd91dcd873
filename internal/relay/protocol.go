package relay

import "encoding/json"

// Inbound message types.
const (
	TypeAuth         = "auth"
	TypeRegister     = "register"
	TypeText         = "text"
	TypeFile         = "file"
	TypeJoinRoom     = "join_room"
	TypeLeaveRoom    = "leave_room"
	TypeWebRTCOffer  = "webrtc_offer"
	TypeWebRTCAnswer = "webrtc_answer"
	TypeWebRTCICE    = "webrtc_ice"
	TypeLogout       = "logout"
)

// Outbound-only message types.
const (
	TypeAuthOK       = "auth_ok"
	TypeAuthFail     = "auth_fail"
	TypeRegisterOK   = "register_ok"
	TypeRegisterFail = "register_fail"
	TypeHistory      = "history"
	TypeUserList     = "userlist"
	TypeRoomUsers    = "room_users"
	TypeUserJoined   = "user_joined"
	TypeUserLeft     = "user_left"
	TypeError        = "error"
)

// Notice carries a human readable message: auth_fail, register_fail, error.
type Notice struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

// UserNotice names one user: auth_ok, register_ok, user_joined, user_left.
type UserNotice struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// UserList lists usernames: userlist, room_users.
type UserList struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// HistoryItem is one persisted chat message replayed after login.
type HistoryItem struct {
	Type      string `json:"type"`
	From      string `json:"from"`
	Timestamp int64  `json:"timestamp"`
	Content   string `json:"content,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Mimetype  string `json:"mimetype,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Data      string `json:"data,omitempty"`
}

// HistoryMessage is sent once after a successful auth or register.
type HistoryMessage struct {
	Type  string        `json:"type"`
	Items []HistoryItem `json:"items"`
}

// TextMessage is the broadcast form of a text message.
type TextMessage struct {
	Type      string `json:"type"`
	From      string `json:"from"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// FileMessage is the relayed form of a file. Size and Data are forwarded
// exactly as the sender encoded them.
type FileMessage struct {
	Type      string          `json:"type"`
	From      string          `json:"from"`
	Filename  string          `json:"filename"`
	Mimetype  string          `json:"mimetype"`
	Size      json.RawMessage `json:"size"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// SignalMessage relays an opaque WebRTC payload. Exactly one of Offer,
// Answer and Candidate is set, matching Type.
type SignalMessage struct {
	Type      string          `json:"type"`
	From      string          `json:"from"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// FileRecord is what the Auditor persists for a decoded file.
type FileRecord struct {
	Filename string
	Mimetype string
	Size     int64
	Data     []byte
}
