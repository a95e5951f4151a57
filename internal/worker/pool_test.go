package worker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genshorts/genshorts/internal/core/model"
	"github.com/genshorts/genshorts/internal/core/services"
	"github.com/genshorts/genshorts/internal/core/workflow"
	"github.com/genshorts/genshorts/internal/worker"
)

func TestPoolDrainsQueuedJobToCompletion(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "stub.mp4")
	require.NoError(t, os.WriteFile(stub, []byte("stub"), 0o644))

	oracle := services.NewOracle(nil, nil, nil)
	provider := services.NewMockProvider([]string{stub})
	cache := services.NewAssetCache(t.TempDir())
	voice := services.NewSilentWAVSynthesizer()
	pipeline := workflow.NewJobPipeline(oracle, provider, cache, voice, "ffmpeg", t.TempDir(), t.TempDir(), t.TempDir())

	store := services.NewJobStore()
	pool := worker.New(store, pipeline, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	job := store.Create("coffee", 30, model.ToneInformative, true)

	require.Eventually(t, func() bool {
		got := store.Get(job.ID)
		return got != nil && got.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	finished := store.Get(job.ID)
	assert.Equal(t, model.StatusCompleted, finished.Status)
}

// TestPoolClampsZeroConcurrencyToOne asserts the documented behavior that
// requesting zero workers still processes jobs, rather than spawning no
// worker goroutines at all and leaving the queue stuck.
func TestPoolClampsZeroConcurrencyToOne(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "stub.mp4")
	require.NoError(t, os.WriteFile(stub, []byte("stub"), 0o644))

	oracle := services.NewOracle(nil, nil, nil)
	provider := services.NewMockProvider([]string{stub})
	cache := services.NewAssetCache(t.TempDir())
	voice := services.NewSilentWAVSynthesizer()
	pipeline := workflow.NewJobPipeline(oracle, provider, cache, voice, "ffmpeg", t.TempDir(), t.TempDir(), t.TempDir())

	store := services.NewJobStore()
	pool := worker.New(store, pipeline, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	job := store.Create("gravity", 30, model.ToneInformative, true)

	require.Eventually(t, func() bool {
		got := store.Get(job.ID)
		return got != nil && got.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
}
