package tokenstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(ttl time.Duration) *MemoryStore {
	return NewMemoryStore(ttl, nil)
}

func TestMemoryStoreIssueAndValidate(t *testing.T) {
	store := newTestStore(time.Hour)
	ctx := context.Background()

	issued, err := store.Issue(ctx, "+919876543210")
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)

	validation, err := store.Validate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", validation.Phone)
	assert.False(t, validation.Used)
	assert.InDelta(t, 3600, validation.ExpiresIn, 2)
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	store := newTestStore(time.Hour)
	ctx := context.Background()

	_, err := store.Validate(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = store.Consume(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestMemoryStoreConsumeIsSingleUse(t *testing.T) {
	store := newTestStore(time.Hour)
	ctx := context.Background()

	issued, err := store.Issue(ctx, "+919876543210")
	require.NoError(t, err)

	phone, err := store.Consume(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", phone)

	_, err = store.Consume(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)

	// Validate still works and reports the used flag.
	validation, err := store.Validate(ctx, issued.Token)
	require.NoError(t, err)
	assert.True(t, validation.Used)
}

func TestMemoryStoreConcurrentConsumeSingleWinner(t *testing.T) {
	store := newTestStore(time.Hour)
	ctx := context.Background()

	issued, err := store.Issue(ctx, "+919876543210")
	require.NoError(t, err)

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Consume(ctx, issued.Token)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, ErrTokenAlreadyUsed))
		}
	}
	assert.Equal(t, 1, winners)
}

func TestMemoryStoreExpiryWithoutSweep(t *testing.T) {
	store := newTestStore(time.Hour)
	ctx := context.Background()

	issued, err := store.Issue(ctx, "+919876543210")
	require.NoError(t, err)

	// Jump past the TTL. The sweep never runs in this test; expiry must be
	// enforced on the read path alone.
	store.now = func() time.Time { return time.Now().Add(time.Hour + time.Minute) }

	_, err = store.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = store.Consume(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestMemoryStoreSweepRemovesExpired(t *testing.T) {
	store := newTestStore(time.Hour)
	ctx := context.Background()

	_, err := store.Issue(ctx, "+911111111111")
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(time.Hour + time.Minute) }
	fresh, err := store.Issue(ctx, "+912222222222")
	require.NoError(t, err)

	store.sweep()

	assert.Equal(t, 1, store.Len())
	validation, err := store.Validate(ctx, fresh.Token)
	require.NoError(t, err)
	assert.Equal(t, "+912222222222", validation.Phone)
}
