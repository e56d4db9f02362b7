// Package lockout tracks failed logins per (username, source address) pair.
// Five failures lock the pair until an admin resets it; counters never expire
// on their own.
package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/techhouse/storefront/internal/audit"
	"github.com/techhouse/storefront/internal/hash"
	"github.com/techhouse/storefront/internal/models"
)

// Threshold is fixed policy, not configuration.
const Threshold = 5

type Outcome int

const (
	OutcomeLocked Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

type Result struct {
	Outcome  Outcome
	Attempts int
	User     *models.User
}

type Tracker struct {
	DB   *gorm.DB
	Sink *audit.Sink
}

// Attempt runs one login attempt through the lockout policy. A locked pair
// short-circuits before any credential check. On success the counter resets
// to zero; on failure it is incremented atomically so concurrent failures
// from the same pair are never lost.
func (t *Tracker) Attempt(ctx context.Context, username, password, ip string) (Result, error) {
	attempt, err := t.fetchOrCreate(ctx, username, ip)
	if err != nil {
		return Result{}, err
	}

	if attempt.FailedAttempts >= Threshold {
		t.Sink.Record(ctx, nil,
			fmt.Sprintf("LOCKOUT TRIGGERED: %s", username),
			fmt.Sprintf("Account locked at %d failed attempts from IP: %s", Threshold, ip),
			ip)
		return Result{Outcome: OutcomeLocked, Attempts: attempt.FailedAttempts}, nil
	}

	user, ok := t.verify(ctx, username, password)
	if ok {
		if err := t.DB.WithContext(ctx).Model(attempt).
			Updates(map[string]interface{}{"failed_attempts": 0, "last_attempt": time.Now()}).Error; err != nil {
			return Result{}, err
		}
		t.Sink.Record(ctx, &user.ID, "LOGIN SUCCESSFUL", "", ip)
		return Result{Outcome: OutcomeSuccess, User: user}, nil
	}

	if err := t.DB.WithContext(ctx).Model(attempt).
		Updates(map[string]interface{}{
			"failed_attempts": gorm.Expr("failed_attempts + 1"),
			"last_attempt":    time.Now(),
		}).Error; err != nil {
		return Result{}, err
	}
	if err := t.DB.WithContext(ctx).First(attempt, attempt.ID).Error; err != nil {
		return Result{}, err
	}

	t.Sink.Record(ctx, nil,
		fmt.Sprintf("FAILED LOGIN ATTEMPT: %s", username),
		fmt.Sprintf("Failed attempt %d for this account.", attempt.FailedAttempts),
		ip)
	return Result{Outcome: OutcomeFailure, Attempts: attempt.FailedAttempts}, nil
}

func (t *Tracker) fetchOrCreate(ctx context.Context, username, ip string) (*models.LoginAttempt, error) {
	var attempt models.LoginAttempt
	err := t.DB.WithContext(ctx).
		Where("username = ? AND ip_address = ?", username, ip).
		First(&attempt).Error
	if err == nil {
		return &attempt, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	attempt = models.LoginAttempt{Username: username, IPAddress: ip}
	if err := t.DB.WithContext(ctx).Create(&attempt).Error; err != nil {
		// Lost the create race: someone else inserted the row first.
		if ferr := t.DB.WithContext(ctx).
			Where("username = ? AND ip_address = ?", username, ip).
			First(&attempt).Error; ferr != nil {
			return nil, err
		}
	}
	return &attempt, nil
}

func (t *Tracker) verify(ctx context.Context, username, password string) (*models.User, bool) {
	var user models.User
	if err := t.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, false
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, false
	}
	return &user, true
}

// Reset clears the counter for a pair. Admin-only remedy for a permanent
// lockout; the reset itself goes on record.
func (t *Tracker) Reset(ctx context.Context, actor *uint, actorIP, username, ip string) error {
	res := t.DB.WithContext(ctx).
		Where("username = ? AND ip_address = ?", username, ip).
		Delete(&models.LoginAttempt{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no counter for %s from %s: %w", username, ip, ErrNotFound)
	}
	t.Sink.Record(ctx, actor,
		"ADMIN ACTION: Lockout Reset",
		fmt.Sprintf("Cleared failed attempts for %s from IP: %s", username, ip),
		actorIP)
	return nil
}

var ErrNotFound = errors.New("not found")
