package commands_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genshorts/genshorts/internal/core/commands"
	"github.com/genshorts/genshorts/internal/core/cor"
	"github.com/genshorts/genshorts/internal/core/services"
	test "github.com/genshorts/genshorts/internal/testutil"
)

// TestVisualTimelineBuilderHandlesConcurrentScenes mirrors the job
// pipeline's scene fan-out, where one VisualTimelineBuilder instance is
// shared across every scene's goroutine.
func TestVisualTimelineBuilderHandlesConcurrentScenes(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "stub.mp4")
	require.NoError(t, os.WriteFile(stub, []byte("stub"), 0o644))
	provider := services.NewMockProvider([]string{stub, stub, stub})
	cache := services.NewAssetCache(t.TempDir())
	builder := commands.NewVisualTimelineBuilder(provider, cache, test.NewSeededRNG(1))

	const scenes = 7
	var wg sync.WaitGroup
	errs := make([]error, scenes)
	for i := 0; i < scenes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := cor.NewBaseContext()
			ctx.SetContext(context.Background())
			ctx.Add(cor.CtxIn, commands.VisualTimelineInput{
				Keywords:   []string{"coffee", "brain"},
				DurationMs: 3000,
			})
			builder.Execute(ctx)
			if e, failed := ctx.GetErrors()[builder.GetName()]; failed {
				errs[i] = e
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "scene %d", i)
	}
}
