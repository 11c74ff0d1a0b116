package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

func TestFactoryCreatesBackends(t *testing.T) {
	factory := NewFactory(logrus.New())
	assert.Equal(t, []string{TypeFile, TypeMemory, TypeRedis}, factory.GetSupportedTypes())

	store, err := factory.CreateStorage(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Name())

	cfg := DefaultStorageConfig()
	cfg.Type = TypeFile
	cfg.File.BasePath = filepath.Join(t.TempDir(), "runs")
	store, err = factory.CreateStorage(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "file", store.Name())
	assert.NoError(t, store.Ping(context.Background()))

	cfg.Type = "cassandra"
	_, err = factory.CreateStorage(context.Background(), cfg)
	assert.True(t, errors.IsConfigurationError(err))

	cfg.Type = TypeRedis
	cfg.Redis.Addr = ""
	_, err = factory.CreateStorage(context.Background(), cfg)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestRegisterStorageValidation(t *testing.T) {
	factory := NewFactory(nil)
	assert.Error(t, factory.RegisterStorage("", nil))
	assert.Error(t, factory.RegisterStorage("x", nil))
}

type operation struct {
	backend, op, status string
}

type fakeRecorder struct {
	ops []operation
}

func (f *fakeRecorder) RecordStorageOperation(backend, op, status string, _ time.Duration) {
	f.ops = append(f.ops, operation{backend, op, status})
}

func TestInstrumentedStore(t *testing.T) {
	store, err := NewFactory(nil).CreateStorage(context.Background(), nil)
	require.NoError(t, err)

	assert.Same(t, store, Instrument(store, nil))

	rec := &fakeRecorder{}
	wrapped := Instrument(store, rec)
	ctx := context.Background()

	require.NoError(t, wrapped.Save(ctx, &models.RunReport{ID: "a"}))
	_, err = wrapped.Load(ctx, "missing")
	require.Error(t, err)
	_, err = wrapped.List(ctx)
	require.NoError(t, err)
	require.NoError(t, wrapped.Delete(ctx, "a"))

	assert.Equal(t, []operation{
		{"memory", "save", "success"},
		{"memory", "load", "error"},
		{"memory", "list", "success"},
		{"memory", "delete", "success"},
	}, rec.ops)
}
