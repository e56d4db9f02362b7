package session

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/techhouse/storefront/internal/models"
)

func newTestStore(t *testing.T, lifetime time.Duration) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Session{}))

	return &Store{DB: db, Lifetime: lifetime}
}

func TestCreateAndLoad(t *testing.T) {
	store := newTestStore(t, 15*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "{}", sess.Cart)

	loaded, err := store.Load(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.EqualValues(t, 7, loaded.UserID)
}

func TestLoadUnknownToken(t *testing.T) {
	store := newTestStore(t, 15*time.Minute)

	_, err := store.Load(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredSessionIsDropped(t *testing.T) {
	store := newTestStore(t, 15*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, 1)
	require.NoError(t, err)

	// Push the expiry into the past directly.
	past := time.Now().Add(-time.Minute)
	require.NoError(t, store.DB.Model(sess).Update("expires_at", past).Error)

	_, err = store.Load(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)

	// The row itself is gone, not just rejected.
	var count int64
	require.NoError(t, store.DB.Model(&models.Session{}).Where("token = ?", sess.Token).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestTouchSlidesExpiry(t *testing.T) {
	store := newTestStore(t, 15*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, 1)
	require.NoError(t, err)

	past := time.Now().Add(time.Second)
	require.NoError(t, store.DB.Model(sess).Update("expires_at", past).Error)
	sess.ExpiresAt = past

	require.NoError(t, store.Touch(ctx, sess))

	loaded, err := store.Load(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, loaded.ExpiresAt.After(time.Now().Add(14*time.Minute)))
}

func TestDeleteEndsSession(t *testing.T) {
	store := newTestStore(t, 15*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, sess.Token))

	_, err = store.Load(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCartRoundTrip(t *testing.T) {
	store := newTestStore(t, 15*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, 1)
	require.NoError(t, err)

	cart, err := Cart(sess)
	require.NoError(t, err)
	assert.Empty(t, cart)

	cart[3] = 2
	cart[9] = 1
	require.NoError(t, store.SaveCart(ctx, sess, cart))

	loaded, err := store.Load(ctx, sess.Token)
	require.NoError(t, err)
	got, err := Cart(loaded)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{3: 2, 9: 1}, got)
}

func TestCorruptCartSurfaces(t *testing.T) {
	sess := &models.Session{Cart: "not json"}

	_, err := Cart(sess)
	assert.Error(t, err)
}
