package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

func TestNewRedisStorage(t *testing.T) {
	config := &RedisConfig{
		Addr: "localhost:6379",
	}

	logger := logrus.New()
	storage, err := NewRedisStorage(config, logger)

	require.NoError(t, err)
	require.NotNil(t, storage)
	assert.Equal(t, config, storage.config)
	assert.Equal(t, logger, storage.logger)
	assert.Equal(t, "redis", storage.Name())
}

func TestNewRedisStorageInvalidConfig(t *testing.T) {
	_, err := NewRedisStorage(nil, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")

	_, err = NewRedisStorage(&RedisConfig{}, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address or cluster addresses are required")

	_, err = NewRedisStorage(&RedisConfig{ClusterAddrs: []string{"a:1", "b:2"}, UseClustering: true}, nil)
	assert.NoError(t, err)
}

func TestRedisStorageGenerateKeys(t *testing.T) {
	storage, err := NewRedisStorage(&RedisConfig{Addr: "localhost:6379", KeyPrefix: "mcmc"}, logrus.New())
	require.NoError(t, err)

	assert.Equal(t, "mcmc:report:run-1", storage.generateReportKey("run-1"))
	assert.Equal(t, "mcmc:reports", storage.generateIndexKey())

	storage, err = NewRedisStorage(&RedisConfig{Addr: "localhost:6379"}, logrus.New())
	require.NoError(t, err)

	assert.Equal(t, "report:run-1", storage.generateReportKey("run-1"))
	assert.Equal(t, "reports", storage.generateIndexKey())
}

func TestRedisStorageRequiresConnection(t *testing.T) {
	storage, err := NewRedisStorage(&RedisConfig{Addr: "localhost:6379"}, logrus.New())
	require.NoError(t, err)

	ctx := context.Background()
	assert.Error(t, storage.Ping(ctx))
	assert.Error(t, storage.Save(ctx, &models.RunReport{ID: "x"}))
	_, err = storage.Load(ctx, "x")
	assert.Error(t, err)
	_, err = storage.List(ctx)
	assert.Error(t, err)
	assert.NoError(t, storage.Close())
}

func TestRedisStorageRejectsReportWithoutID(t *testing.T) {
	storage, err := NewRedisStorage(&RedisConfig{Addr: "localhost:6379"}, logrus.New())
	require.NoError(t, err)

	err = storage.Save(context.Background(), &models.RunReport{})
	assert.True(t, errors.IsConfigurationError(err))
}

// Set MCMC_TEST_REDIS_ADDR to run against a live server.
func TestRedisStorageIntegration(t *testing.T) {
	addr := os.Getenv("MCMC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires running Redis instance")
	}

	storage, err := NewRedisStorage(&RedisConfig{
		Addr:        addr,
		KeyPrefix:   "mcmc-test-" + uuid.New().String(),
		DialTimeout: time.Second,
		TTL:         time.Minute,
	}, logrus.New())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, storage.Connect(ctx))
	defer storage.Close()

	report := &models.RunReport{
		ID:      "report-1",
		Sampler: models.SamplerMetropolis,
		Runs: []*models.RunResult{{
			Chain: 0,
			Trace: models.Trace{models.NewChainState(0.5), models.NewChainState(0.5), models.NewChainState(1.25)},
		}},
	}
	require.NoError(t, storage.Save(ctx, report))

	loaded, err := storage.Load(ctx, "report-1")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Runs[0].Trace.Len())
	assert.True(t, loaded.Runs[0].Trace[2].Equal(models.NewChainState(1.25)))

	ids, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"report-1"}, ids)

	require.NoError(t, storage.Delete(ctx, "report-1"))
	_, err = storage.Load(ctx, "report-1")
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(storage.Delete(ctx, "report-1")))
}
