package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/mcmc/internal/storage/implementations/file"
	"github.com/inferloop/mcmc/internal/storage/implementations/memory"
	"github.com/inferloop/mcmc/internal/storage/implementations/redis"
	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/interfaces"
)

// Storage backend names
const (
	TypeMemory = "memory"
	TypeFile   = "file"
	TypeRedis  = "redis"
)

// StorageConfig selects and configures a trace store backend
type StorageConfig struct {
	Type  string                 `json:"type" mapstructure:"type"`
	File  file.FileStorageConfig `json:"file" mapstructure:"file"`
	Redis redis.RedisConfig      `json:"redis" mapstructure:"redis"`
}

// DefaultStorageConfig keeps reports in memory
func DefaultStorageConfig() *StorageConfig {
	return &StorageConfig{
		Type: TypeMemory,
		File: file.FileStorageConfig{
			BasePath:   "./data/runs",
			CreateDirs: true,
		},
		Redis: redis.RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "mcmc",
		},
	}
}

// CreateFunc builds a connected store
type CreateFunc func(ctx context.Context, config *StorageConfig) (interfaces.TraceStore, error)

// Factory creates trace stores by backend name
type Factory struct {
	creators map[string]CreateFunc
	mu       sync.RWMutex
	logger   *logrus.Logger
}

// NewFactory creates a new storage factory
func NewFactory(logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.New()
	}

	factory := &Factory{
		creators: make(map[string]CreateFunc),
		logger:   logger,
	}
	factory.registerDefaults()
	return factory
}

// CreateStorage creates and connects the store named by config.Type
func (f *Factory) CreateStorage(ctx context.Context, config *StorageConfig) (interfaces.TraceStore, error) {
	if config == nil {
		config = DefaultStorageConfig()
	}

	f.mu.RLock()
	createFunc, exists := f.creators[config.Type]
	f.mu.RUnlock()

	if !exists {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput,
			fmt.Sprintf("Storage type '%s' is not supported", config.Type))
	}

	store, err := createFunc(ctx, config)
	if err != nil {
		return nil, err
	}

	f.logger.WithFields(logrus.Fields{
		"storage_type": config.Type,
	}).Info("Created storage instance")

	return store, nil
}

// RegisterStorage registers a new storage type
func (f *Factory) RegisterStorage(storageType string, createFunc CreateFunc) error {
	if storageType == "" {
		return errors.NewConfigurationError(errors.CodeInvalidInput, "Storage type cannot be empty")
	}

	if createFunc == nil {
		return errors.NewConfigurationError(errors.CodeInvalidInput, "Storage create function cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.creators[storageType] = createFunc
	return nil
}

// GetSupportedTypes returns all supported storage types, sorted
func (f *Factory) GetSupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.creators))
	for storageType := range f.creators {
		types = append(types, storageType)
	}
	sort.Strings(types)
	return types
}

func (f *Factory) registerDefaults() {
	f.RegisterStorage(TypeMemory, func(ctx context.Context, config *StorageConfig) (interfaces.TraceStore, error) {
		return memory.NewMemoryStorage(), nil
	})

	f.RegisterStorage(TypeFile, func(ctx context.Context, config *StorageConfig) (interfaces.TraceStore, error) {
		cfg := config.File
		store, err := file.NewFileStorage(&cfg, f.logger)
		if err != nil {
			return nil, err
		}
		if err := store.Connect(ctx); err != nil {
			return nil, err
		}
		return store, nil
	})

	f.RegisterStorage(TypeRedis, func(ctx context.Context, config *StorageConfig) (interfaces.TraceStore, error) {
		cfg := config.Redis
		store, err := redis.NewRedisStorage(&cfg, f.logger)
		if err != nil {
			return nil, err
		}
		if err := store.Connect(ctx); err != nil {
			return nil, err
		}
		return store, nil
	})
}
