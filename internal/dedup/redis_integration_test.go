//go:build integration

package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/config"
	"conduit/internal/logger"
	"conduit/internal/testinfra"
	"conduit/pkg/models"
)

func TestRedisStore_ClaimsKeyOnce(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Redis: true})
	store := NewRedisStore(infra.RedisClient)
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "conduit:test:k1", 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "conduit:test:k1", 1, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Eventually(t, func() bool {
		ok, err := store.SetNX(ctx, "conduit:test:k1", 1, time.Second)
		return err == nil && ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestService_WithRedisIsolatesTenants(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Redis: true})
	store := NewBreakerStore(NewRedisStore(infra.RedisClient), config.CircuitBreakerConfig{Enabled: true})
	svc, err := NewService(store, config.DedupConfig{Enabled: true, TTLSeconds: 60}, logger.NopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	dup, err := svc.IsDuplicate(ctx, &models.Message{ID: "m1", TenantID: "acme"})
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = svc.IsDuplicate(ctx, &models.Message{ID: "m1", TenantID: "globex"})
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = svc.IsDuplicate(ctx, &models.Message{ID: "m1", TenantID: "acme"})
	require.NoError(t, err)
	assert.True(t, dup)
}
