package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Tyrowin/gochat-relay/internal/relay"
)

// AuditLog records chat activity as actions in the global room.
type AuditLog struct {
	db        *gorm.DB
	onMessage []func()
}

var _ relay.Auditor = (*AuditLog)(nil)

// NewAuditLog creates an AuditLog.
func NewAuditLog(db *gorm.DB) *AuditLog {
	return &AuditLog{db: db}
}

// OnMessage registers fn to run after every stored TEXT or FILE action.
// It is not safe to call concurrently with recording.
func (a *AuditLog) OnMessage(fn func()) {
	a.onMessage = append(a.onMessage, fn)
}

// RecordLogin implements relay.Auditor.
func (a *AuditLog) RecordLogin(ctx context.Context, username string) error {
	return a.record(ctx, ActionLogin, username, nil)
}

// RecordLogout implements relay.Auditor.
func (a *AuditLog) RecordLogout(ctx context.Context, username string) error {
	return a.record(ctx, ActionLogout, username, nil)
}

// RecordVideoJoin implements relay.Auditor.
func (a *AuditLog) RecordVideoJoin(ctx context.Context, username string) error {
	return a.record(ctx, ActionVideoJoin, username, nil)
}

// RecordVideoLeave implements relay.Auditor.
func (a *AuditLog) RecordVideoLeave(ctx context.Context, username string) error {
	return a.record(ctx, ActionVideoLeave, username, nil)
}

// RecordText implements relay.Auditor.
func (a *AuditLog) RecordText(ctx context.Context, username, content string) error {
	err := a.record(ctx, ActionText, username, func(tx *gorm.DB, actionID uint) error {
		return tx.Create(&TextDetail{ActionID: actionID, Content: content, ContentLength: len([]rune(content))}).Error
	})
	if err == nil {
		a.messageStored()
	}
	return err
}

// RecordFile implements relay.Auditor.
func (a *AuditLog) RecordFile(ctx context.Context, username string, file relay.FileRecord) error {
	err := a.record(ctx, ActionFile, username, func(tx *gorm.DB, actionID uint) error {
		return tx.Create(&FileDetail{
			ActionID: actionID,
			Filename: file.Filename,
			Mimetype: file.Mimetype,
			Size:     file.Size,
			Data:     file.Data,
		}).Error
	})
	if err == nil {
		a.messageStored()
	}
	return err
}

// RecordSystem implements relay.Auditor. System actions have no actor.
func (a *AuditLog) RecordSystem(ctx context.Context, message string) error {
	return a.record(ctx, ActionSystem, "", func(tx *gorm.DB, actionID uint) error {
		return tx.Create(&TextDetail{ActionID: actionID, Content: message, ContentLength: len([]rune(message))}).Error
	})
}

// record inserts an action for username (none when empty) and its optional
// detail row in one transaction. Unknown usernames are stored without actor.
func (a *AuditLog) record(ctx context.Context, actionType, username string, detail func(tx *gorm.DB, actionID uint) error) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		action := Action{
			ActionType:      actionType,
			Room:            GlobalRoom,
			ServerGenerated: username == "",
		}
		if username != "" {
			var user User
			err := tx.Select("id").First(&user, "username = ?", username).Error
			switch {
			case err == nil:
				action.ActorUserID = &user.ID
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}

		if err := tx.Create(&action).Error; err != nil {
			return err
		}
		if detail != nil {
			return detail(tx, action.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record %s action: %w", actionType, err)
	}
	return nil
}

func (a *AuditLog) messageStored() {
	for _, fn := range a.onMessage {
		fn()
	}
}
