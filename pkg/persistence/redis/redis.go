package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixAccount     = "aptos:account:"
	keyPrefixTransaction = "aptos:txn:"
	keySchemaVersion     = "aptos:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Redis has no prefix iteration, so names and hashes are tracked in index sets
	keySetAccounts     = "aptos:accounts:index"
	keySetTransactions = "aptos:txns:index"
)

// RedisPersistence stores the wallet in Redis so several machines can share one journal.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to every key, e.g. "team-a:" gives "team-a:aptos:account:alice"
	KeyPrefix string
}

// NewRedisPersistence connects to Redis and validates the schema version.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redisClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)
	return rp, nil
}

func redisClient(cfg *RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (r *RedisPersistence) prefixKey(key string) string {
	return r.keyPrefix + key
}

func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if errors.Is(err, redis.Nil) {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}
	return nil
}

func (r *RedisPersistence) checkOpen() error {
	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}

func (r *RedisPersistence) save(ctx context.Context, prefix, indexSet, id string, data []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.prefixKey(prefix+id), data, 0)
	pipe.SAdd(ctx, r.prefixKey(indexSet), id)
	_, err := pipe.Exec(ctx)
	return err
}

// load returns nil data when the key is absent
func (r *RedisPersistence) load(ctx context.Context, prefix, id string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefixKey(prefix+id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

// loadAll fetches every value referenced by indexSet, pruning index entries whose value is gone
func (r *RedisPersistence) loadAll(ctx context.Context, prefix, indexSet string) ([][]byte, error) {
	indexKey := r.prefixKey(indexSet)
	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefixKey(prefix + id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make([][]byte, 0, len(values))
	for i, val := range values {
		if val == nil {
			if err := r.client.SRem(ctx, indexKey, ids[i]).Err(); err != nil {
				r.logger.Sugar().Warnw("Failed to prune stale index entry", "index", indexKey, "id", ids[i], "error", err)
			}
			continue
		}
		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type in Redis", "key", keys[i])
			continue
		}
		result = append(result, []byte(data))
	}
	return result, nil
}

func (r *RedisPersistence) SaveAccount(record *persistence.AccountRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil AccountRecord")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return err
	}

	data, err := persistence.MarshalAccountRecord(record)
	if err != nil {
		return err
	}
	err = r.save(context.Background(), keyPrefixAccount, keySetAccounts, record.Name, data)
	return errors.Wrapf(err, "failed to save account %s", record.Name)
}

func (r *RedisPersistence) LoadAccount(name string) (*persistence.AccountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	data, err := r.load(context.Background(), keyPrefixAccount, name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load account %s", name)
	}
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalAccountRecord(data)
}

func (r *RedisPersistence) ListAccounts() ([]*persistence.AccountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	values, err := r.loadAll(context.Background(), keyPrefixAccount, keySetAccounts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list accounts")
	}

	records := make([]*persistence.AccountRecord, 0, len(values))
	for _, data := range values {
		record, err := persistence.UnmarshalAccountRecord(data)
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal AccountRecord, skipping", "error", err)
			continue
		}
		records = append(records, record)
	}
	persistence.SortAccountRecords(records)
	return records, nil
}

func (r *RedisPersistence) DeleteAccount(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return err
	}

	ctx := context.Background()
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.prefixKey(keyPrefixAccount+name))
	pipe.SRem(ctx, r.prefixKey(keySetAccounts), name)
	_, err := pipe.Exec(ctx)
	return errors.Wrapf(err, "failed to delete account %s", name)
}

func (r *RedisPersistence) SaveTransaction(record *persistence.TransactionRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil TransactionRecord")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return err
	}

	data, err := persistence.MarshalTransactionRecord(record)
	if err != nil {
		return err
	}
	err = r.save(context.Background(), keyPrefixTransaction, keySetTransactions, record.Hash, data)
	return errors.Wrapf(err, "failed to save transaction %s", record.Hash)
}

func (r *RedisPersistence) LoadTransaction(hash string) (*persistence.TransactionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	data, err := r.load(context.Background(), keyPrefixTransaction, hash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load transaction %s", hash)
	}
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalTransactionRecord(data)
}

func (r *RedisPersistence) ListTransactions() ([]*persistence.TransactionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	values, err := r.loadAll(context.Background(), keyPrefixTransaction, keySetTransactions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list transactions")
	}

	records := make([]*persistence.TransactionRecord, 0, len(values))
	for _, data := range values {
		record, err := persistence.UnmarshalTransactionRecord(data)
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal TransactionRecord, skipping", "error", err)
			continue
		}
		records = append(records, record)
	}
	persistence.SortTransactionRecords(records)
	return records, nil
}

// Close shuts down the persistence layer
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck pings Redis and checks the schema version key
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	return nil
}
