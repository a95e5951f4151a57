package commands

import (
	"fmt"

	"github.com/genshorts/genshorts/internal/apperrors"
	"github.com/genshorts/genshorts/internal/core/cor"
	"github.com/genshorts/genshorts/internal/core/model"
)

const maxCaptionWords = 3
const maxCaptionDurationMs = 800
const maxGroupDurationMs = 900

// GroupCaptions greedily groups words left-to-right into Captions of at
// most 3 words, starting a new group whenever the group built so far has
// already reached 3 words, already exceeds 800ms (§4.5) — that check runs
// against the group as it stands *before* the next word is considered, so a
// group can still close out at up to 900ms once its third word lands — or
// whenever adding the next word would push the group past the 900ms hard
// cap (I2), which a long single word (e.g. an ending-scene emphasis word)
// can otherwise do even while the pre-add group sits under 800ms.
func GroupCaptions(words []model.WordTimestamp) []model.Caption {
	var captions []model.Caption
	var group []model.WordTimestamp

	flush := func() {
		if len(group) == 0 {
			return
		}
		emphasisIdx := make([]int, 0)
		for i, w := range group {
			if w.Emphasis {
				emphasisIdx = append(emphasisIdx, i)
			}
		}
		text := ""
		for i, w := range group {
			if i > 0 {
				text += " "
			}
			text += w.Word
		}
		captions = append(captions, model.Caption{
			Text:            text,
			StartMs:         group[0].StartMs,
			EndMs:           group[len(group)-1].EndMs,
			EmphasisIndices: emphasisIdx,
		})
		group = nil
	}

	for _, w := range words {
		if len(group) > 0 {
			existingDuration := group[len(group)-1].EndMs - group[0].StartMs
			prospectiveDuration := w.EndMs - group[0].StartMs
			if len(group) >= maxCaptionWords || existingDuration > maxCaptionDurationMs || prospectiveDuration > maxGroupDurationMs {
				flush()
			}
		}
		group = append(group, w)
	}
	flush()

	return captions
}

// ValidateCaptions enforces the caption gate (§4.5) independently of
// GroupCaptions's own grouping discipline: per-group word count and
// duration bounds, no overlap between consecutive groups, and a last group
// ending within audio.duration_ms + 100ms.
func ValidateCaptions(captions []model.Caption, audioDurationMs int) []string {
	var reasons []string
	for i, c := range captions {
		wordCount := 1
		for _, r := range c.Text {
			if r == ' ' {
				wordCount++
			}
		}
		if wordCount > maxCaptionWords {
			reasons = append(reasons, fmt.Sprintf("caption %d has %d words, exceeds %d", i, wordCount, maxCaptionWords))
		}
		if duration := c.EndMs - c.StartMs; duration > maxGroupDurationMs {
			reasons = append(reasons, fmt.Sprintf("caption %d duration %dms exceeds %dms", i, duration, maxGroupDurationMs))
		}
		if i > 0 && c.StartMs < captions[i-1].EndMs {
			reasons = append(reasons, fmt.Sprintf("caption %d overlaps caption %d", i, i-1))
		}
	}
	if len(captions) > 0 {
		last := captions[len(captions)-1]
		if last.EndMs > audioDurationMs+100 {
			reasons = append(reasons, fmt.Sprintf("last caption ends at %dms, beyond audio duration %dms + 100ms", last.EndMs, audioDurationMs))
		}
	}
	return reasons
}

// CaptionGrouper wraps GroupCaptions as a cor.Command over the scene's
// *model.AudioResult.
type CaptionGrouper struct {
	cor.BaseCommand
}

func NewCaptionGrouper() *CaptionGrouper {
	return &CaptionGrouper{BaseCommand: *cor.NewBaseCommand("caption_grouper")}
}

func (g *CaptionGrouper) Execute(ctx cor.Context) {
	audio, ok := ctx.Get(g.GetInputParam()).(*model.AudioResult)
	if !ok || audio == nil {
		ctx.AddError(g.GetName(), apperrors.Newf(apperrors.GateReject, g.GetName(), "no audio result in context"))
		return
	}

	captions := GroupCaptions(audio.Words)
	if reasons := ValidateCaptions(captions, audio.DurationMs); len(reasons) > 0 {
		ctx.AddError(g.GetName(), apperrors.Newf(apperrors.GateReject, g.GetName(), "%v", reasons))
		return
	}
	ctx.Add(g.GetOutputParam(), captions)
}
