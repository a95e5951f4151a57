package commands

import (
	"errors"
	"fmt"
	"sort"

	"github.com/genshorts/genshorts/internal/apperrors"
	"github.com/genshorts/genshorts/internal/core/cor"
	"github.com/genshorts/genshorts/internal/core/model"
)

// ErrPatternInterruptUnsatisfiable is returned when an entire 2500ms window
// of the edit plan consists of emphasis-isolation segments, leaving no
// candidate for the mandatory pattern-interrupt pan change (§4.7 step 7,
// decided in DESIGN.md to be fatal rather than silently skipped).
var ErrPatternInterruptUnsatisfiable = errors.New("pattern interrupt window has no non-emphasis candidate")

// editWords pairs an in-progress EditSegment with the word timestamps it
// covers, so later steps can split at exact word boundaries without
// re-deriving them from captions each time.
type editWords struct {
	seg   model.EditSegment
	words []model.WordTimestamp
}

// BuildEditPlan runs deterministic steps 1-7 of §4.7 against one scene's
// audio, captions, and visual timeline; the validation step is
// ValidateEditPlan, which the EditPlanBuilder command runs afterwards.
func BuildEditPlan(audio *model.AudioResult, captions []model.Caption, visuals []model.VisualClip) ([]model.EditSegment, error) {
	segments := baseSegments(audio.Words, captions)
	segments = splitOversized(segments)
	segments = isolateEmphasis(segments)
	segments = fillGaps(segments, visuals, audio.DurationMs)

	if err := attachVisuals(segments, visuals); err != nil {
		return nil, err
	}
	applyEmphasisZoom(segments)
	if err := applyPatternInterrupts(segments, audio.DurationMs); err != nil {
		return nil, err
	}

	out := make([]model.EditSegment, len(segments))
	for i, s := range segments {
		out[i] = s.seg
	}
	return out, nil
}

// step 1: base segments = captions mapped 1:1, with the underlying words
// for each caption resolved by matching the word timeline's time range.
func baseSegments(words []model.WordTimestamp, captions []model.Caption) []editWords {
	segments := make([]editWords, 0, len(captions))
	for i, c := range captions {
		var covered []model.WordTimestamp
		for _, w := range words {
			if w.StartMs >= c.StartMs && w.EndMs <= c.EndMs {
				covered = append(covered, w)
			}
		}
		segments = append(segments, editWords{
			seg: model.EditSegment{
				StartMs:   c.StartMs,
				EndMs:     c.EndMs,
				CaptionID: fmt.Sprintf("caption_%d", i),
				Reason:    model.ReasonCut,
			},
			words: covered,
		})
	}
	return segments
}

// step 2: split any segment over 3000ms at the nearest prior word boundary.
func splitOversized(segments []editWords) []editWords {
	var out []editWords
	for _, s := range segments {
		out = append(out, splitToMaxDuration(s)...)
	}
	return out
}

func splitToMaxDuration(s editWords) []editWords {
	if s.seg.EndMs-s.seg.StartMs <= 3000 || len(s.words) <= 1 {
		return []editWords{s}
	}

	cutIdx := 0
	for i, w := range s.words {
		if w.EndMs-s.words[0].StartMs <= 3000 {
			cutIdx = i
		} else {
			break
		}
	}
	if cutIdx == 0 {
		cutIdx = 0
	}

	head := s.words[:cutIdx+1]
	tail := s.words[cutIdx+1:]
	if len(tail) == 0 {
		return []editWords{s}
	}

	headSeg := editWords{seg: model.EditSegment{
		StartMs: head[0].StartMs, EndMs: head[len(head)-1].EndMs,
		CaptionID: s.seg.CaptionID, Reason: s.seg.Reason,
	}, words: head}
	tailSeg := editWords{seg: model.EditSegment{
		StartMs: tail[0].StartMs, EndMs: tail[len(tail)-1].EndMs,
		CaptionID: s.seg.CaptionID, Reason: s.seg.Reason,
	}, words: tail}

	return append([]editWords{headSeg}, splitToMaxDuration(tailSeg)...)
}

// step 3: isolate emphasis words into their own one-word segments.
func isolateEmphasis(segments []editWords) []editWords {
	var out []editWords
	for _, s := range segments {
		hasEmphasis := false
		for _, w := range s.words {
			if w.Emphasis {
				hasEmphasis = true
				break
			}
		}
		if !hasEmphasis {
			out = append(out, s)
			continue
		}

		var remainder []model.WordTimestamp
		flushRemainder := func() {
			if len(remainder) == 0 {
				return
			}
			out = append(out, editWords{seg: model.EditSegment{
				StartMs: remainder[0].StartMs, EndMs: remainder[len(remainder)-1].EndMs,
				CaptionID: s.seg.CaptionID, Reason: s.seg.Reason,
			}, words: append([]model.WordTimestamp{}, remainder...)})
			remainder = nil
		}
		for _, w := range s.words {
			if w.Emphasis {
				flushRemainder()
				out = append(out, editWords{seg: model.EditSegment{
					StartMs: w.StartMs, EndMs: w.EndMs,
					CaptionID: s.seg.CaptionID, Reason: model.ReasonEmphasis,
				}, words: []model.WordTimestamp{w}})
			} else {
				remainder = append(remainder, w)
			}
		}
		flushRemainder()
	}
	return out
}

// step 4: sort and fill gaps with synthetic silence_k segments referencing
// the visual covering their start.
func fillGaps(segments []editWords, visuals []model.VisualClip, totalDurationMs int) []editWords {
	sort.Slice(segments, func(i, j int) bool { return segments[i].seg.StartMs < segments[j].seg.StartMs })

	var out []editWords
	cursor := 0
	k := 0
	for _, s := range segments {
		for s.seg.StartMs-cursor > 20 {
			fillLen := s.seg.StartMs - cursor
			if fillLen > 3000 {
				fillLen = 3000
			}
			out = append(out, editWords{seg: model.EditSegment{
				StartMs: cursor, EndMs: cursor + fillLen,
				CaptionID: fmt.Sprintf("silence_%d", k), Reason: model.ReasonCut,
			}})
			k++
			cursor += fillLen
		}
		out = append(out, s)
		cursor = s.seg.EndMs
	}
	for totalDurationMs-cursor > 0 {
		fillLen := totalDurationMs - cursor
		if fillLen > 3000 {
			fillLen = 3000
		}
		out = append(out, editWords{seg: model.EditSegment{
			StartMs: cursor, EndMs: cursor + fillLen,
			CaptionID: fmt.Sprintf("silence_%d", k), Reason: model.ReasonCut,
		}})
		k++
		cursor += fillLen
	}
	return out
}

// step 5: attach each segment to the visual clip covering its start.
func attachVisuals(segments []editWords, visuals []model.VisualClip) error {
	for i := range segments {
		found := false
		for _, v := range visuals {
			if segments[i].seg.StartMs >= v.StartMs && segments[i].seg.StartMs < v.EndMs {
				segments[i].seg.ClipID = v.ClipID
				found = true
				break
			}
		}
		if !found {
			return apperrors.Newf(apperrors.GateReject, "edit_plan_builder",
				"no visual clip covers segment starting at %dms", segments[i].seg.StartMs)
		}
	}
	return nil
}

// step 6: emphasis zoom.
func applyEmphasisZoom(segments []editWords) {
	for i := range segments {
		isEmphasisWord := len(segments[i].words) == 1 && segments[i].words[0].Emphasis
		if isEmphasisWord || segments[i].seg.Reason == model.ReasonEmphasis {
			segments[i].seg.Zoom = 1.05
			segments[i].seg.Reason = model.ReasonEmphasis
		}
	}
}

// step 7: pattern interrupts — one per 2500ms window, deterministic pan by
// char-code sum of clip_id.
func applyPatternInterrupts(segments []editWords, durationMs int) error {
	windowMs := 2500
	for windowStart := 0; windowStart < durationMs; windowStart += windowMs {
		windowEnd := windowStart + windowMs

		candidateIdx := -1
		for i := range segments {
			if segments[i].seg.Reason == model.ReasonEmphasis {
				continue
			}
			if segments[i].seg.StartMs < windowEnd && segments[i].seg.EndMs > windowStart {
				candidateIdx = i
				break
			}
		}
		if candidateIdx == -1 {
			return fmt.Errorf("%w: window [%d,%d)", ErrPatternInterruptUnsatisfiable, windowStart, windowEnd)
		}

		sum := 0
		for _, c := range segments[candidateIdx].seg.ClipID {
			sum += int(c)
		}
		pans := model.Pans[1:] // exclude PanNone from the interrupt choice
		segments[candidateIdx].seg.Pan = pans[sum%len(pans)]
		segments[candidateIdx].seg.Reason = model.ReasonPatternInterrupt
	}
	return nil
}

// ValidateEditPlan enforces I4: contiguous within 20ms, tail within 200ms,
// zoom != 1.0 implies reason=emphasis, and every 2500ms window contains at
// least one pattern_interrupt segment.
func ValidateEditPlan(segments []model.EditSegment, durationMs int) []string {
	var reasons []string
	cursor := 0
	for i, s := range segments {
		if gap := s.StartMs - cursor; gap > 20 || gap < -20 {
			reasons = append(reasons, fmt.Sprintf("segment %d gap of %dms from expected cursor", i, gap))
		}
		if s.Zoom != 0 && s.Zoom != 1.0 && s.Reason != model.ReasonEmphasis {
			reasons = append(reasons, fmt.Sprintf("segment %d has zoom %.2f without reason=emphasis", i, s.Zoom))
		}
		cursor = s.EndMs
	}
	if tail := durationMs - cursor; tail < -200 || tail > 200 {
		reasons = append(reasons, fmt.Sprintf("coverage tail %dms exceeds 200ms tolerance", tail))
	}

	windowMs := 2500
	for windowStart := 0; windowStart < durationMs; windowStart += windowMs {
		windowEnd := windowStart + windowMs
		has := false
		for _, s := range segments {
			if s.Reason == model.ReasonPatternInterrupt && s.StartMs < windowEnd && s.EndMs > windowStart {
				has = true
				break
			}
		}
		if !has {
			reasons = append(reasons, fmt.Sprintf("window [%d,%d) has no pattern_interrupt segment", windowStart, windowEnd))
		}
	}
	return reasons
}

// EditPlanBuilder wraps BuildEditPlan as a cor.Command over a
// SceneEditPlanInput placed in the context by the Scene Processor.
type EditPlanBuilder struct {
	cor.BaseCommand
}

func NewEditPlanBuilder() *EditPlanBuilder {
	return &EditPlanBuilder{BaseCommand: *cor.NewBaseCommand("edit_plan_builder")}
}

// SceneEditPlanInput bundles the three artifacts the edit plan needs.
type SceneEditPlanInput struct {
	Audio    *model.AudioResult
	Captions []model.Caption
	Visuals  []model.VisualClip
}

func (e *EditPlanBuilder) Execute(ctx cor.Context) {
	in, ok := ctx.Get(e.GetInputParam()).(SceneEditPlanInput)
	if !ok {
		ctx.AddError(e.GetName(), apperrors.Newf(apperrors.GateReject, e.GetName(), "no edit plan input in context"))
		return
	}

	plan, err := BuildEditPlan(in.Audio, in.Captions, in.Visuals)
	if err != nil {
		ctx.AddError(e.GetName(), apperrors.New(apperrors.GateReject, e.GetName(), err))
		return
	}
	if reasons := ValidateEditPlan(plan, in.Audio.DurationMs); len(reasons) > 0 {
		ctx.AddError(e.GetName(), apperrors.Newf(apperrors.GateReject, e.GetName(), "%v", reasons))
		return
	}
	ctx.Add(e.GetOutputParam(), plan)
}
