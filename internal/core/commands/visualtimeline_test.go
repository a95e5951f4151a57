package commands_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genshorts/genshorts/internal/core/commands"
	"github.com/genshorts/genshorts/internal/core/model"
	"github.com/genshorts/genshorts/internal/core/services"
	test "github.com/genshorts/genshorts/internal/testutil"
)

func newTestAssetCache(t *testing.T) *services.AssetCache {
	return services.NewAssetCache(t.TempDir())
}

func newTestMockProvider(t *testing.T) services.StockProvider {
	placeholder := filepath.Join(t.TempDir(), "stub.mp4")
	require.NoError(t, os.WriteFile(placeholder, []byte("stub"), 0o644))
	return services.NewMockProvider([]string{placeholder})
}

func TestBuildVisualTimelineCoversDurationContiguously(t *testing.T) {
	cache := newTestAssetCache(t)
	provider := newTestMockProvider(t)
	ctx := context.Background()

	require.NoError(t, commands.PrefetchKeywords(ctx, provider, cache, []string{"coffee", "brain"}))

	clips, err := commands.BuildVisualTimeline(ctx, commands.VisualTimelineParams{
		Keywords:   []string{"coffee", "brain"},
		DurationMs: 10000,
		Cache:      cache,
		Provider:   provider,
		RNG:        test.NewSeededRNG(1),
	})
	require.NoError(t, err)
	require.NotEmpty(t, clips)

	reasons := commands.ValidateVisualTimeline(clips, 10000)
	assert.Empty(t, reasons)
}

func TestBuildVisualTimelineRejectsWhenNoKeywords(t *testing.T) {
	cache := newTestAssetCache(t)
	provider := newTestMockProvider(t)

	_, err := commands.BuildVisualTimeline(context.Background(), commands.VisualTimelineParams{
		Keywords:   nil,
		DurationMs: 5000,
		Cache:      cache,
		Provider:   provider,
		RNG:        test.NewSeededRNG(1),
	})
	assert.Error(t, err)
}

func TestValidateVisualTimelineDetectsGap(t *testing.T) {
	clips := []model.VisualClip{
		{ClipID: "a", StartMs: 0, EndMs: 1000},
		{ClipID: "b", StartMs: 1200, EndMs: 2200}, // 200ms gap after clip a
	}
	reasons := commands.ValidateVisualTimeline(clips, 2200)
	assert.NotEmpty(t, reasons)
}

func TestValidateVisualTimelineDetectsUndersizedClip(t *testing.T) {
	clips := []model.VisualClip{
		{ClipID: "a", StartMs: 0, EndMs: 500},
	}
	reasons := commands.ValidateVisualTimeline(clips, 500)
	assert.NotEmpty(t, reasons)
}
