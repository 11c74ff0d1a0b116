package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

// RedisConfig holds configuration for Redis storage
type RedisConfig struct {
	Addr          string        `json:"addr" mapstructure:"addr"`
	Password      string        `json:"password" mapstructure:"password"`
	DB            int           `json:"db" mapstructure:"db"`
	DialTimeout   time.Duration `json:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout   time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	PoolSize      int           `json:"pool_size" mapstructure:"pool_size"`
	MinIdleConns  int           `json:"min_idle_conns" mapstructure:"min_idle_conns"`
	MaxRetries    int           `json:"max_retries" mapstructure:"max_retries"`
	IdleTimeout   time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`
	TTL           time.Duration `json:"ttl" mapstructure:"ttl"`
	KeyPrefix     string        `json:"key_prefix" mapstructure:"key_prefix"`
	UseClustering bool          `json:"use_clustering" mapstructure:"use_clustering"`
	ClusterAddrs  []string      `json:"cluster_addrs" mapstructure:"cluster_addrs"`
}

// RedisStorage keeps run reports as JSON values with an id index set
type RedisStorage struct {
	config *RedisConfig
	client redis.UniversalClient
	logger *logrus.Logger
	mu     sync.RWMutex
	closed bool
}

// NewRedisStorage creates a new Redis storage instance. Call Connect before use.
func NewRedisStorage(config *RedisConfig, logger *logrus.Logger) (*RedisStorage, error) {
	if config == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "Redis config cannot be nil")
	}

	if config.Addr == "" && len(config.ClusterAddrs) == 0 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "Redis address or cluster addresses are required")
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &RedisStorage{
		config: config,
		logger: logger,
	}, nil
}

// Name returns the backend name
func (r *RedisStorage) Name() string {
	return "redis"
}

// Connect establishes connection to Redis
func (r *RedisStorage) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return nil
	}

	var client redis.UniversalClient
	if r.config.UseClustering && len(r.config.ClusterAddrs) > 0 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        r.config.ClusterAddrs,
			Password:     r.config.Password,
			DialTimeout:  r.config.DialTimeout,
			ReadTimeout:  r.config.ReadTimeout,
			WriteTimeout: r.config.WriteTimeout,
			PoolSize:     r.config.PoolSize,
			MinIdleConns: r.config.MinIdleConns,
			MaxRetries:   r.config.MaxRetries,
			IdleTimeout:  r.config.IdleTimeout,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         r.config.Addr,
			Password:     r.config.Password,
			DB:           r.config.DB,
			DialTimeout:  r.config.DialTimeout,
			ReadTimeout:  r.config.ReadTimeout,
			WriteTimeout: r.config.WriteTimeout,
			PoolSize:     r.config.PoolSize,
			MinIdleConns: r.config.MinIdleConns,
			MaxRetries:   r.config.MaxRetries,
			IdleTimeout:  r.config.IdleTimeout,
		})
	}

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "Failed to connect to Redis")
	}

	r.client = client
	r.closed = false

	r.logger.WithFields(logrus.Fields{
		"addr":       r.config.Addr,
		"db":         r.config.DB,
		"clustering": r.config.UseClustering,
	}).Info("Connected to Redis")

	return nil
}

// Close closes the Redis connection
func (r *RedisStorage) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.client == nil {
		r.closed = true
		return nil
	}

	err := r.client.Close()
	r.client = nil
	r.closed = true
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "Failed to close Redis connection")
	}

	r.logger.Info("Redis connection closed")
	return nil
}

// Ping tests the Redis connection
func (r *RedisStorage) Ping(ctx context.Context) error {
	client, err := r.connected()
	if err != nil {
		return err
	}

	if _, err := client.Ping(ctx).Result(); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "Redis ping failed")
	}
	return nil
}

// Save writes the report and adds its id to the index set
func (r *RedisStorage) Save(ctx context.Context, report *models.RunReport) error {
	if report == nil || report.ID == "" {
		return errors.NewConfigurationError(errors.CodeInvalidInput, "report with an id is required")
	}

	client, err := r.connected()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to serialize report")
	}

	pipe := client.TxPipeline()
	pipe.Set(ctx, r.generateReportKey(report.ID), payload, r.config.TTL)
	pipe.SAdd(ctx, r.generateIndexKey(), report.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to write report to Redis")
	}

	r.logger.WithFields(logrus.Fields{
		"report_id": report.ID,
		"bytes":     len(payload),
	}).Debug("Saved report")

	return nil
}

// Load reads the report stored under id
func (r *RedisStorage) Load(ctx context.Context, id string) (*models.RunReport, error) {
	client, err := r.connected()
	if err != nil {
		return nil, err
	}

	payload, err := client.Get(ctx, r.generateReportKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NewNotFoundError("run", id)
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to read report from Redis")
	}

	var report models.RunReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to deserialize report")
	}
	return &report, nil
}

// Delete removes the report and its index entry
func (r *RedisStorage) Delete(ctx context.Context, id string) error {
	client, err := r.connected()
	if err != nil {
		return err
	}

	pipe := client.TxPipeline()
	del := pipe.Del(ctx, r.generateReportKey(id))
	pipe.SRem(ctx, r.generateIndexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to delete report from Redis")
	}
	if del.Val() == 0 {
		return errors.NewNotFoundError("run", id)
	}
	return nil
}

// List returns the indexed report ids, sorted. Ids whose value expired
// through the TTL are pruned from the index.
func (r *RedisStorage) List(ctx context.Context) ([]string, error) {
	client, err := r.connected()
	if err != nil {
		return nil, err
	}

	ids, err := client.SMembers(ctx, r.generateIndexKey()).Result()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to list reports")
	}

	live := ids[:0]
	for _, id := range ids {
		n, err := client.Exists(ctx, r.generateReportKey(id)).Result()
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to list reports")
		}
		if n == 0 {
			client.SRem(ctx, r.generateIndexKey(), id)
			continue
		}
		live = append(live, id)
	}

	sort.Strings(live)
	return live, nil
}

func (r *RedisStorage) connected() (redis.UniversalClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed || r.client == nil {
		return nil, errors.NewStorageError(errors.CodeConnectionFailed, "Redis not connected")
	}
	return r.client, nil
}

func (r *RedisStorage) generateReportKey(id string) string {
	return r.key(fmt.Sprintf("report:%s", id))
}

func (r *RedisStorage) generateIndexKey() string {
	return r.key("reports")
}

func (r *RedisStorage) key(suffix string) string {
	if r.config.KeyPrefix == "" {
		return suffix
	}
	return r.config.KeyPrefix + ":" + suffix
}
