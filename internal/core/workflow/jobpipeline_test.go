package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genshorts/genshorts/internal/core/model"
	"github.com/genshorts/genshorts/internal/core/services"
	"github.com/genshorts/genshorts/internal/core/workflow"
)

// buildDryRunPipeline wires every dependency with real, network-free
// implementations: a fallback-only Oracle (no Gemini/Groq keys configured),
// a MockProvider backed by a single placeholder file, and the always-
// succeeding silent WAV synthesizer. DryRun skips render/concat/audit, so
// none of this ever needs ffmpeg.
func buildDryRunPipeline(t *testing.T) (*workflow.JobPipeline, *services.JobStore) {
	t.Helper()

	stub := filepath.Join(t.TempDir(), "stub.mp4")
	require.NoError(t, os.WriteFile(stub, []byte("stub"), 0o644))

	oracle := services.NewOracle(nil, nil, nil)
	provider := services.NewMockProvider([]string{stub})
	cache := services.NewAssetCache(t.TempDir())
	voice := services.NewSilentWAVSynthesizer()

	pipeline := workflow.NewJobPipeline(oracle, provider, cache, voice, "ffmpeg", t.TempDir(), t.TempDir(), t.TempDir())
	return pipeline, services.NewJobStore()
}

func TestJobPipelineDryRunCompletesWithoutRendering(t *testing.T) {
	pipeline, store := buildDryRunPipeline(t)
	job := store.Create("coffee", 30, model.ToneInformative, true)

	pipeline.Run(context.Background(), store, job)

	finished := store.Get(job.ID)
	require.NotNil(t, finished)
	assert.Equal(t, model.StatusCompleted, finished.Status)
	require.NotNil(t, finished.Result)
	assert.Equal(t, "coffee", finished.Result.Script.Topic)
	assert.True(t, finished.Result.Script.Fallback)
	assert.Empty(t, finished.Result.OutputPath)
	assert.NotEmpty(t, finished.Result.Diagnostics)
}

func TestJobPipelineDryRunDoesNotFail(t *testing.T) {
	pipeline, store := buildDryRunPipeline(t)
	job := store.Create("gravity", 20, model.ToneNeutral, true)

	pipeline.Run(context.Background(), store, job)

	finished := store.Get(job.ID)
	require.NotNil(t, finished)
	require.NotEqual(t, model.StatusFailed, finished.Status)
}
