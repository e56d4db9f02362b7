package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/techhouse/storefront/internal/models"
)

type UserRepo struct {
	DB        *gorm.DB
	Observers []Observer
}

func (r *UserRepo) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

// UpdateRole flips the staff flag of an account. The event detail names the
// resulting status so the audit trail shows what changed, not just that
// something did.
func (r *UserRepo) UpdateRole(ctx context.Context, actor Actor, id uint, role string) (*models.User, error) {
	if role != "user" && role != "admin" {
		return nil, fmt.Errorf("role %q is not one of user/admin: %w", role, ErrValidation)
	}
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = role
	if err := r.DB.WithContext(ctx).Save(u).Error; err != nil {
		return nil, err
	}
	notify(ctx, r.Observers, Event{
		Op:      OpUpdated,
		Entity:  "User",
		ID:      u.ID,
		Name:    u.Username,
		Detail:  fmt.Sprintf("Updated status for %s. Staff: %t", u.Username, u.IsStaff()),
		Actor:   actor,
		Payload: *u,
	})
	return u, nil
}

func (r *UserRepo) Delete(ctx context.Context, actor Actor, id uint) (*models.User, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Audit rows keep their text but lose the actor reference.
		if err := tx.Model(&models.AuditLog{}).Where("user_id = ?", id).Update("user_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	}); err != nil {
		return nil, err
	}
	notify(ctx, r.Observers, Event{
		Op:      OpDeleted,
		Entity:  "User",
		ID:      id,
		Name:    u.Username,
		Detail:  fmt.Sprintf("Deleted account: %s", u.Username),
		Actor:   actor,
		Payload: *u,
	})
	return u, nil
}
