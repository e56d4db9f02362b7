package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/techhouse/storefront/internal/models"
)

var ErrNotFound = errors.New("session not found")

// Store keeps server-side sessions with a sliding lifetime. The cart lives
// here, not in the database proper: when the session goes, the cart goes.
type Store struct {
	DB       *gorm.DB
	Lifetime time.Duration
}

func (s *Store) Create(ctx context.Context, userID uint) (*models.Session, error) {
	sess := models.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Cart:      "{}",
		ExpiresAt: time.Now().Add(s.Lifetime),
	}
	if err := s.DB.WithContext(ctx).Create(&sess).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

// Load returns the session for a token. An expired session is treated as
// missing and its row dropped.
func (s *Store) Load(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	if err := s.DB.WithContext(ctx).Where("token = ?", token).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		s.DB.WithContext(ctx).Delete(&models.Session{}, sess.ID)
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Touch slides the expiry forward, saved on every authenticated request.
func (s *Store) Touch(ctx context.Context, sess *models.Session) error {
	sess.ExpiresAt = time.Now().Add(s.Lifetime)
	return s.DB.WithContext(ctx).Model(sess).Update("expires_at", sess.ExpiresAt).Error
}

func (s *Store) Delete(ctx context.Context, token string) error {
	return s.DB.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
}

func Cart(sess *models.Session) (map[uint]int, error) {
	cart := map[uint]int{}
	if sess.Cart == "" {
		return cart, nil
	}
	if err := json.Unmarshal([]byte(sess.Cart), &cart); err != nil {
		return nil, fmt.Errorf("corrupt cart state: %w", err)
	}
	return cart, nil
}

func (s *Store) SaveCart(ctx context.Context, sess *models.Session, cart map[uint]int) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	sess.Cart = string(data)
	return s.DB.WithContext(ctx).Model(sess).Update("cart", sess.Cart).Error
}
