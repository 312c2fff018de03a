package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence/persistencetest"
)

// getTestRedisAddress uses REDIS_TEST_ADDRESS if set, otherwise localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// newTestRedis connects with a fresh key prefix so tests never see each other's data.
// The test is skipped when Redis is unreachable.
func newTestRedis(t *testing.T) *RedisPersistence {
	t.Helper()

	cfg := &RedisConfig{
		Address:   getTestRedisAddress(),
		DB:        15,
		KeyPrefix: "test-" + uuid.New().String() + ":",
	}
	rp, err := NewRedisPersistence(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
	}
	t.Cleanup(func() { cleanupRedis(cfg) })
	return rp
}

func cleanupRedis(cfg *RedisConfig) {
	client := redisClient(cfg)
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	iter := client.Scan(ctx, 0, cfg.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		client.Del(ctx, iter.Val())
	}
}

func TestRedisPersistence(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.IWalletPersistence {
		return newTestRedis(t)
	})
}

func TestNewRedisPersistence_InvalidConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewRedisPersistence(nil, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")

	_, err = NewRedisPersistence(&RedisConfig{}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address cannot be empty")
}

func TestRedisPersistence_KeyPrefixIsolation(t *testing.T) {
	first := newTestRedis(t)
	defer func() { _ = first.Close() }()
	second := newTestRedis(t)
	defer func() { _ = second.Close() }()

	require.NoError(t, first.SaveAccount(persistencetest.NewAccountRecord("alice")))

	loaded, err := second.LoadAccount("alice")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	accounts, err := second.ListAccounts()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestRedisPersistence_PrunesStaleIndexEntries(t *testing.T) {
	rp := newTestRedis(t)
	defer func() { _ = rp.Close() }()

	require.NoError(t, rp.SaveAccount(persistencetest.NewAccountRecord("alice")))
	require.NoError(t, rp.client.Del(context.Background(), rp.prefixKey(keyPrefixAccount+"alice")).Err())

	accounts, err := rp.ListAccounts()
	require.NoError(t, err)
	assert.Empty(t, accounts)

	members, err := rp.client.SMembers(context.Background(), rp.prefixKey(keySetAccounts)).Result()
	require.NoError(t, err)
	assert.Empty(t, members)
}
