package services_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genshorts/genshorts/internal/core/services"
)

func TestMarkStoreMarkUnmarkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.json")
	store, err := services.NewMarkStore(path)
	require.NoError(t, err)

	assert.False(t, store.IsMarked("job-1"))
	require.NoError(t, store.Mark("job-1"))
	assert.True(t, store.IsMarked("job-1"))

	require.NoError(t, store.Unmark("job-1"))
	assert.False(t, store.IsMarked("job-1"))
}

func TestMarkStorePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.json")
	store, err := services.NewMarkStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Mark("job-1"))
	require.NoError(t, store.Mark("job-2"))

	reloaded, err := services.NewMarkStore(path)
	require.NoError(t, err)
	assert.True(t, reloaded.IsMarked("job-1"))
	assert.True(t, reloaded.IsMarked("job-2"))
	assert.ElementsMatch(t, []string{"job-1", "job-2"}, reloaded.Snapshot())
}

func TestMarkStoreMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	store, err := services.NewMarkStore(path)
	require.NoError(t, err)
	assert.Empty(t, store.Snapshot())
}

func TestMarkStoreCorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := services.NewMarkStore(path)
	assert.Error(t, err)
}
