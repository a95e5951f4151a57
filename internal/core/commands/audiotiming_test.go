package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/genshorts/genshorts/internal/core/commands"
	"github.com/genshorts/genshorts/internal/core/model"
	test "github.com/genshorts/genshorts/internal/testutil"
)

func TestSynthesizeTimingWordsAreOrderedAndNonOverlapping(t *testing.T) {
	scenes := []model.Scene{
		{Type: model.SceneHook, Text: "Most people think coffee wakes you up"},
		{Type: model.SceneBody1, Text: "It actually blocks a molecule called adenosine"},
	}
	results := commands.SynthesizeTiming(scenes)

	assert.Len(t, results, 2)
	for _, audio := range results {
		for i, w := range audio.Words {
			assert.Greater(t, w.EndMs, w.StartMs)
			if i > 0 {
				assert.GreaterOrEqual(t, w.StartMs, audio.Words[i-1].EndMs)
			}
		}
		assert.Equal(t, audio.Words[len(audio.Words)-1].EndMs, audio.DurationMs)
	}
}

// baseWordDurationMs mirrors the unexported constant SynthesizeTiming uses
// for a non-emphasis, non-first, non-last scene word.
const baseWordDurationMs = 300

func TestSynthesizeTimingEmphasisWordsRunLonger(t *testing.T) {
	// Three scenes so the middle one gets the unscaled 1.0 multiplier; the
	// first and last scenes are sped up/slowed down per §4.4 and would
	// otherwise confuse the before/after comparison below.
	scenes := []model.Scene{
		{Type: model.SceneHook, Text: "filler"},
		{Type: model.SceneBody1, Text: "you must always listen"},
		{Type: model.SceneEnding, Text: "filler"},
	}
	results := commands.SynthesizeTiming(scenes)
	words := results[1].Words

	for _, w := range words {
		if commands.IsEmphasisToken(w.Word) {
			assert.Greater(t, w.EndMs-w.StartMs, baseWordDurationMs)
		}
	}
}

func TestValidateAudioRejectsLargeGap(t *testing.T) {
	audio := &model.AudioResult{Words: test.GappedWordTiming(), DurationMs: 1300}
	reasons := commands.ValidateAudio(audio, 1)

	found := false
	for _, r := range reasons {
		if r == "gap of 700ms before word 1 exceeds 600ms" {
			found = true
		}
	}
	assert.True(t, found, "expected a 700ms gap rejection, got %v", reasons)
}

func TestValidateAudioAcceptsCleanTiming(t *testing.T) {
	audio := &model.AudioResult{Words: test.FourWordTiming(), DurationMs: 1200}
	reasons := commands.ValidateAudio(audio, 2)
	assert.Empty(t, reasons)
}

func TestValidateAudioRejectsOversizedDuration(t *testing.T) {
	audio := &model.AudioResult{Words: test.FourWordTiming(), DurationMs: 5000}
	reasons := commands.ValidateAudio(audio, 1)
	assert.NotEmpty(t, reasons)
}

func TestInterScenePauseClampsAndSkipsLastScene(t *testing.T) {
	assert.Equal(t, 150, commands.InterScenePause(100, false))
	assert.Equal(t, 450, commands.InterScenePause(10000, false))
	assert.Equal(t, 0, commands.InterScenePause(10000, true))
}
