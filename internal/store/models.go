package store

import "time"

// Action types recorded in the audit trail.
const (
	ActionLogin      = "LOGIN"
	ActionLogout     = "LOGOUT"
	ActionText       = "TEXT"
	ActionFile       = "FILE"
	ActionVideoJoin  = "VIDEO_JOIN"
	ActionVideoLeave = "VIDEO_LEAVE"
	ActionSystem     = "SYSTEM"
)

// GlobalRoom is the only chat room.
const GlobalRoom = "global"

// User is a registered account.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:64;uniqueIndex;not null"`
	FullName     string `gorm:"size:128"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

// Action is one audit trail entry. Text and file actions carry a detail row.
type Action struct {
	ID              uint   `gorm:"primaryKey"`
	ActionType      string `gorm:"size:16;index;not null"`
	Room            string `gorm:"size:64;index;not null"`
	ActorUserID     *uint  `gorm:"index"`
	Actor           *User  `gorm:"foreignKey:ActorUserID"`
	ServerGenerated bool
	CreatedAt       time.Time   `gorm:"index"`
	Text            *TextDetail `gorm:"foreignKey:ActionID"`
	File            *FileDetail `gorm:"foreignKey:ActionID"`
}

// TextDetail holds the content of TEXT and SYSTEM actions.
type TextDetail struct {
	ActionID      uint `gorm:"primaryKey;autoIncrement:false"`
	Content       string
	ContentLength int
}

// FileDetail holds the decoded payload of FILE actions.
type FileDetail struct {
	ActionID uint `gorm:"primaryKey;autoIncrement:false"`
	Filename string
	Mimetype string
	Size     int64
	Data     []byte
}
