package commands_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genshorts/genshorts/internal/core/commands"
	"github.com/genshorts/genshorts/internal/core/model"
)

func TestClassifyRenderErrorMatchesKnownSubstrings(t *testing.T) {
	cases := map[string]string{
		"Input #0, mov: No such file or directory":     "ASSET_MISSING",
		"moov atom not found, does not contain any stream": "ASSET_MISSING",
		"Invalid duration specified for stream 0":       "TIMING_MISMATCH",
		"Application provided invalid, non monotonically increasing dts": "TIMING_MISMATCH",
		"Unknown encoder 'libx265'":                     "CODEC_FAILURE",
		"Error while opening encoder for output stream": "CODEC_FAILURE",
		"Cannot allocate memory":                        "RESOURCE_EXHAUSTION",
		"write error: No space left on device":          "RESOURCE_EXHAUSTION",
		"some completely unrelated ffmpeg message":      "UNKNOWN_ERROR",
	}
	for stderr, want := range cases {
		assert.Equal(t, want, commands.ClassifyRenderError(stderr), "stderr: %s", stderr)
	}
}

func TestSortSegmentsByIndexOrdersNumerically(t *testing.T) {
	paths := map[int]string{
		2: "scene-2.mp4",
		0: "scene-0.mp4",
		1: "scene-1.mp4",
	}
	assert.Equal(t, []string{"scene-0.mp4", "scene-1.mp4", "scene-2.mp4"}, commands.SortSegmentsByIndex(paths))
}

func TestSortSegmentsByIndexEmpty(t *testing.T) {
	assert.Empty(t, commands.SortSegmentsByIndex(nil))
}

func TestRenderSceneErrorsOnSegmentReferencingUnknownClip(t *testing.T) {
	plan := []model.EditSegment{
		{StartMs: 0, EndMs: 1000, ClipID: "missing-clip", Reason: model.ReasonCut},
	}
	visuals := []model.VisualClip{
		{ClipID: "other-clip", LocalPath: "/tmp/other-clip.mp4"},
	}

	err := commands.RenderScene("ffmpeg", plan, visuals, nil, "/tmp/audio.wav", t.TempDir(), filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing-clip")
}
