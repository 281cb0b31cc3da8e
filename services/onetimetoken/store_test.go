package onetimetoken

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/gatekeeper/database"
	"github.com/tech-arch1tect/gatekeeper/testutils"
	"gorm.io/gorm"
)

type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time { return c.t }

func setupStore(t *testing.T) (*GormStore, *clock, *gorm.DB) {
	db := testutils.SetupTestDB(t, &Token{})
	store := NewGormStore(db, testutils.GetTestConfig(), nil)
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	store.now = c.Now
	return store, c, db
}

func TestGenerateValue(t *testing.T) {
	a, err := GenerateValue(32)
	require.NoError(t, err)
	b, err := GenerateValue(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestGormStore_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("mints a token with purpose ttl", func(t *testing.T) {
		store, c, _ := setupStore(t)

		token, err := store.Issue(ctx, "acc-1", PurposePasswordReset)
		require.NoError(t, err)
		assert.False(t, token.Reused)
		assert.Len(t, token.Value, 64)
		require.NotNil(t, token.ExpiresAt)
		assert.Equal(t, c.t.Add(time.Hour), *token.ExpiresAt)
	})

	t.Run("reuses the live token", func(t *testing.T) {
		store, _, _ := setupStore(t)

		first, err := store.Issue(ctx, "acc-1", PurposeEmailConfirmation)
		require.NoError(t, err)
		second, err := store.Issue(ctx, "acc-1", PurposeEmailConfirmation)
		require.NoError(t, err)

		assert.True(t, second.Reused)
		assert.Equal(t, first.Value, second.Value)
	})

	t.Run("replaces an expired token", func(t *testing.T) {
		store, c, _ := setupStore(t)

		first, err := store.Issue(ctx, "acc-1", PurposePasswordReset)
		require.NoError(t, err)

		c.t = c.t.Add(2 * time.Hour)
		second, err := store.Issue(ctx, "acc-1", PurposePasswordReset)
		require.NoError(t, err)

		assert.False(t, second.Reused)
		assert.NotEqual(t, first.Value, second.Value)
	})

	t.Run("purposes are independent", func(t *testing.T) {
		store, _, _ := setupStore(t)

		confirm, err := store.Issue(ctx, "acc-1", PurposeEmailConfirmation)
		require.NoError(t, err)
		reset, err := store.Issue(ctx, "acc-1", PurposePasswordReset)
		require.NoError(t, err)
		other, err := store.Issue(ctx, "acc-2", PurposePasswordReset)
		require.NoError(t, err)

		assert.NotEqual(t, confirm.Value, reset.Value)
		assert.NotEqual(t, reset.Value, other.Value)
	})

	t.Run("session purpose is rejected", func(t *testing.T) {
		store, _, _ := setupStore(t)

		_, err := store.Issue(ctx, "acc-1", PurposeSession)
		assert.ErrorIs(t, err, ErrUnsupportedPurpose)
	})
}

func TestGormStore_InsertAndPut(t *testing.T) {
	ctx := context.Background()
	store, c, _ := setupStore(t)

	require.NoError(t, store.Insert(ctx, &Token{AccountID: "acc-1", Purpose: PurposeSession, Value: "one", IssuedAt: c.t}))

	err := store.Insert(ctx, &Token{AccountID: "acc-1", Purpose: PurposeSession, Value: "two", IssuedAt: c.t})
	assert.ErrorIs(t, err, ErrTokenExists)

	stored, err := store.Find(ctx, "acc-1", PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, "one", stored.Value)

	require.NoError(t, store.Put(ctx, &Token{AccountID: "acc-1", Purpose: PurposeSession, Value: "three", Device: "Firefox on Linux", IssuedAt: c.t}))

	stored, err = store.Find(ctx, "acc-1", PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, "three", stored.Value)
	assert.Equal(t, "Firefox on Linux", stored.Device)
}

func TestGormStore_Match(t *testing.T) {
	ctx := context.Background()
	store, c, _ := setupStore(t)

	token, err := store.Issue(ctx, "acc-1", PurposePasswordReset)
	require.NoError(t, err)

	assert.NoError(t, store.Match(ctx, "acc-1", PurposePasswordReset, token.Value))
	assert.ErrorIs(t, store.Match(ctx, "acc-1", PurposePasswordReset, "wrong"), ErrTokenMismatch)
	assert.ErrorIs(t, store.Match(ctx, "acc-1", PurposePasswordReset, ""), ErrTokenMismatch)
	assert.ErrorIs(t, store.Match(ctx, "acc-1", PurposeEmailConfirmation, token.Value), ErrTokenMismatch)
	assert.ErrorIs(t, store.Match(ctx, "acc-2", PurposePasswordReset, token.Value), ErrTokenMismatch)

	c.t = c.t.Add(time.Hour)
	assert.ErrorIs(t, store.Match(ctx, "acc-1", PurposePasswordReset, token.Value), ErrTokenExpired)
}

func TestGormStore_Consume(t *testing.T) {
	ctx := context.Background()
	store, _, _ := setupStore(t)

	token, err := store.Issue(ctx, "acc-1", PurposeEmailConfirmation)
	require.NoError(t, err)

	assert.ErrorIs(t, store.Consume(ctx, "acc-1", PurposeEmailConfirmation, "wrong"), ErrTokenMismatch)
	require.NoError(t, store.Consume(ctx, "acc-1", PurposeEmailConfirmation, token.Value))
	assert.ErrorIs(t, store.Consume(ctx, "acc-1", PurposeEmailConfirmation, token.Value), ErrTokenMismatch)

	_, err = store.Find(ctx, "acc-1", PurposeEmailConfirmation)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestGormStore_DeleteAndExpiry(t *testing.T) {
	ctx := context.Background()
	store, c, _ := setupStore(t)

	_, err := store.Issue(ctx, "acc-1", PurposeEmailConfirmation)
	require.NoError(t, err)
	_, err = store.Issue(ctx, "acc-1", PurposePasswordReset)
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, &Token{AccountID: "acc-1", Purpose: PurposeSession, Value: "jwt", IssuedAt: c.t}))

	require.NoError(t, store.Delete(ctx, "acc-1", PurposeEmailConfirmation))
	require.NoError(t, store.Delete(ctx, "acc-1", PurposeEmailConfirmation))

	c.t = c.t.Add(2 * time.Hour)
	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.Find(ctx, "acc-1", PurposeSession)
	assert.NoError(t, err, "tokens without expiry are kept")
}

func TestGormStore_WithTx(t *testing.T) {
	ctx := context.Background()
	store, _, db := setupStore(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := store.WithTx(tx).Issue(ctx, "acc-1", PurposeEmailConfirmation)
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = store.Find(ctx, "acc-1", PurposeEmailConfirmation)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestGormStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	store, _, db := setupStore(t)
	testutils.BreakTestDB(t, db)

	_, err := store.Issue(ctx, "acc-1", PurposePasswordReset)
	assert.ErrorIs(t, err, database.ErrUnavailable)

	err = store.Match(ctx, "acc-1", PurposePasswordReset, "x")
	assert.ErrorIs(t, err, database.ErrUnavailable)
}

func TestCleaner(t *testing.T) {
	ctx := context.Background()
	store, c, _ := setupStore(t)

	_, err := store.Issue(ctx, "acc-1", PurposePasswordReset)
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Hour)
	cleaner := NewCleaner(store, time.Hour, nil)
	cleaner.RunOnce(ctx)

	_, err = store.Find(ctx, "acc-1", PurposePasswordReset)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	t.Run("start and stop", func(t *testing.T) {
		cleaner := NewCleaner(store, time.Millisecond, nil)
		cleaner.Start()
		cleaner.Start()
		cleaner.Stop()
		cleaner.Stop()
	})

	t.Run("disabled interval", func(t *testing.T) {
		cleaner := NewCleaner(store, 0, nil)
		cleaner.Start()
		assert.Nil(t, cleaner.stop)
	})
}
