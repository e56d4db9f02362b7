// Package audit is the append-only record of security and business events.
// Every other component writes here as a side effect; a sink failure is logged
// and swallowed so it can never abort the action that triggered it.
package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/techhouse/storefront/internal/events"
	"github.com/techhouse/storefront/internal/logging"
	"github.com/techhouse/storefront/internal/models"
)

const publishTimeout = 5 * time.Second

type Sink struct {
	DB       *gorm.DB
	Producer *events.Producer
}

// Record appends one entry and mirrors it to the event stream. Returns nil if
// the store rejected the write; callers are expected to ignore that.
func (s *Sink) Record(ctx context.Context, actor *uint, action, details, ip string) *models.AuditLog {
	entry := models.AuditLog{
		UserID:    actor,
		Action:    action,
		Details:   details,
		IPAddress: ip,
	}
	if err := s.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		logging.FromContext(ctx).Error("audit_write_failed", "action", action, "error", err)
		return nil
	}
	s.mirror(ctx, &entry)
	return &entry
}

func (s *Sink) mirror(ctx context.Context, entry *models.AuditLog) {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	event := map[string]interface{}{
		"type":       "audit_entry",
		"id":         entry.ID,
		"user_id":    entry.UserID,
		"action":     entry.Action,
		"details":    entry.Details,
		"ip_address": entry.IPAddress,
		"created_at": entry.CreatedAt,
	}
	if err := s.Producer.PublishEvent(pubCtx, fmt.Sprint(entry.ID), event); err != nil {
		logging.FromContext(ctx).Error("audit_publish_failed", "action", entry.Action, "error", err)
	}
}

// Entries returns the trail newest first.
func (s *Sink) Entries(ctx context.Context) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := s.DB.WithContext(ctx).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// DeleteEntry removes one entry, writing a precursor entry in the same
// transaction so the deletion itself stays on record.
func (s *Sink) DeleteEntry(ctx context.Context, actor *uint, ip string, id uint) error {
	var precursor models.AuditLog
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var victim models.AuditLog
		if err := tx.First(&victim, id).Error; err != nil {
			return err
		}

		originally := "Anonymous"
		if victim.UserID != nil {
			var u models.User
			if err := tx.First(&u, *victim.UserID).Error; err == nil {
				originally = u.Username
			}
		}

		precursor = models.AuditLog{
			UserID:    actor,
			Action:    "CRITICAL: Audit Log Entry Deleted",
			Details:   fmt.Sprintf("Admin deleted log ID %d: '%s' originally by %s", victim.ID, victim.Action, originally),
			IPAddress: ip,
		}
		if err := tx.Create(&precursor).Error; err != nil {
			return err
		}
		return tx.Delete(&models.AuditLog{}, id).Error
	})
	if err != nil {
		return err
	}
	s.mirror(ctx, &precursor)
	return nil
}

// DeleteEntries removes a batch behind a single summary entry: N deletions
// produce one precursor naming the count, never N.
func (s *Sink) DeleteEntries(ctx context.Context, actor *uint, ip string, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var precursor models.AuditLog
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.AuditLog{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return err
		}

		precursor = models.AuditLog{
			UserID:    actor,
			Action:    "CRITICAL: Bulk Audit Log Deletion",
			Details:   fmt.Sprintf("Admin deleted %d security logs permanently.", count),
			IPAddress: ip,
		}
		if err := tx.Create(&precursor).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.AuditLog{}).Error
	})
	if err != nil {
		return err
	}
	s.mirror(ctx, &precursor)
	return nil
}
