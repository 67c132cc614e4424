package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"checkout-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("Integration test - set REDIS_TEST_ADDR")
	}
	client, err := NewClient(addr, "", 15)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestEmiOptionsCache(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	amount := time.Now().UnixNano() % 1000000

	missing, err := client.GetEmiOptions(ctx, amount)
	require.NoError(t, err)
	assert.Nil(t, missing)

	opts := &models.EmiOptions{
		Amount:   amount,
		Eligible: true,
		Options:  []models.EmiPlan{{TenureMonths: 3, Principal: amount, IsNoCost: true}},
	}
	require.NoError(t, client.SetEmiOptions(ctx, amount, opts, time.Minute))

	cached, err := client.GetEmiOptions(ctx, amount)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 3, cached.Options[0].TenureMonths)
}

func TestIdempotencyResult(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	key := uuid.New().String()

	var out map[string]string
	found, err := client.GetIdempotencyResult(ctx, key, &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.SetIdempotencyKey(ctx, key, map[string]string{"bookingReference": "BK-1"}, time.Minute))

	found, err = client.GetIdempotencyResult(ctx, key, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "BK-1", out["bookingReference"])
}

func TestLock(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	key := "checkout:" + uuid.New().String()

	ok, err := client.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.ReleaseLock(ctx, key))

	ok, err = client.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	client.ReleaseLock(ctx, key)
}
