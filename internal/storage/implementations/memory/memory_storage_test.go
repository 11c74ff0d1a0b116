package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

func TestMemoryStorage(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	report := &models.RunReport{ID: "r1", Runs: []*models.RunResult{{Trace: models.Trace{models.NewChainState(1)}}}}
	require.NoError(t, store.Save(ctx, report))
	require.NoError(t, store.Save(ctx, &models.RunReport{ID: "r0"}))

	loaded, err := store.Load(ctx, "r1")
	require.NoError(t, err)
	loaded.Runs[0].Trace[0][0] = 99
	again, err := store.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Runs[0].Trace[0][0])

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r0", "r1"}, ids)

	require.NoError(t, store.Delete(ctx, "r1"))
	assert.True(t, errors.IsNotFound(store.Delete(ctx, "r1")))
	_, err = store.Load(ctx, "r1")
	assert.True(t, errors.IsNotFound(err))

	assert.True(t, errors.IsConfigurationError(store.Save(ctx, &models.RunReport{})))
}
