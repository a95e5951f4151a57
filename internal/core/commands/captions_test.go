package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/genshorts/genshorts/internal/core/commands"
	"github.com/genshorts/genshorts/internal/core/model"
	test "github.com/genshorts/genshorts/internal/testutil"
)

func TestGroupCaptionsFourWordNoGap(t *testing.T) {
	captions := commands.GroupCaptions(test.FourWordTiming())

	expected := []model.Caption{
		{Text: "a b c", StartMs: 0, EndMs: 900, EmphasisIndices: []int{}},
		{Text: "d", StartMs: 900, EndMs: 1200, EmphasisIndices: []int{}},
	}
	assert.Equal(t, expected, captions)
}

func TestGroupCaptionsEmphasisIndicesPreserved(t *testing.T) {
	words := []model.WordTimestamp{
		{Word: "a", StartMs: 0, EndMs: 300},
		{Word: "b", StartMs: 300, EndMs: 600, Emphasis: true},
		{Word: "c", StartMs: 600, EndMs: 900},
	}
	captions := commands.GroupCaptions(words)

	assert.Len(t, captions, 1)
	assert.Equal(t, []int{1}, captions[0].EmphasisIndices)
}

func TestGroupCaptionsNeverExceedsThreeWords(t *testing.T) {
	var words []model.WordTimestamp
	for i := 0; i < 10; i++ {
		start := i * 100
		words = append(words, model.WordTimestamp{Word: "w", StartMs: start, EndMs: start + 100})
	}
	captions := commands.GroupCaptions(words)

	total := 0
	for _, c := range captions {
		total += len(splitWords(c.Text))
		assert.LessOrEqual(t, len(splitWords(c.Text)), 3)
	}
	assert.Equal(t, 10, total)
}

func splitWords(s string) []string {
	var words []string
	cur := ""
	for _, r := range s {
		if r == ' ' {
			if cur != "" {
				words = append(words, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		words = append(words, cur)
	}
	return words
}

func TestValidateCaptionsRejectsOverlap(t *testing.T) {
	captions := []model.Caption{
		{Text: "a b", StartMs: 0, EndMs: 600},
		{Text: "c", StartMs: 500, EndMs: 900},
	}
	reasons := commands.ValidateCaptions(captions, 900)
	assert.NotEmpty(t, reasons)
}

func TestValidateCaptionsRejectsLateEnding(t *testing.T) {
	captions := []model.Caption{
		{Text: "a b c", StartMs: 0, EndMs: 900},
	}
	reasons := commands.ValidateCaptions(captions, 500)
	assert.NotEmpty(t, reasons)
}

func TestValidateCaptionsAcceptsWithinTolerance(t *testing.T) {
	captions := commands.GroupCaptions(test.FourWordTiming())
	reasons := commands.ValidateCaptions(captions, 1200)
	assert.Empty(t, reasons)
}

func TestGroupCaptionsCapsGroupAt900msOnEndingPacing(t *testing.T) {
	words := []model.WordTimestamp{
		{Word: "coffee", StartMs: 0, EndMs: 360},
		{Word: "blocks", StartMs: 360, EndMs: 720},
		{Word: "adenosine", StartMs: 720, EndMs: 1080},
	}
	captions := commands.GroupCaptions(words)

	for _, c := range captions {
		assert.LessOrEqual(t, c.EndMs-c.StartMs, maxGroupDurationMsForTest)
	}
	reasons := commands.ValidateCaptions(captions, 1080)
	assert.Empty(t, reasons)
}

const maxGroupDurationMsForTest = 900

func TestValidateCaptionsRejectsGroupOverHardCap(t *testing.T) {
	captions := []model.Caption{
		{Text: "coffee blocks adenosine", StartMs: 0, EndMs: 1080},
	}
	reasons := commands.ValidateCaptions(captions, 1080)
	assert.NotEmpty(t, reasons)
}

func TestValidateCaptionsRejectsTooManyWords(t *testing.T) {
	captions := []model.Caption{
		{Text: "a b c d", StartMs: 0, EndMs: 400},
	}
	reasons := commands.ValidateCaptions(captions, 400)
	assert.NotEmpty(t, reasons)
}
