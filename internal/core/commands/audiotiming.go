package commands

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/genshorts/genshorts/internal/apperrors"
	"github.com/genshorts/genshorts/internal/core/cor"
	"github.com/genshorts/genshorts/internal/core/model"
)

const baseWordDurationMs = 300

var emphasisWords = map[string]bool{
	"but": true, "however": true, "instead": true, "secret": true, "hidden": true,
	"mastery": true, "always": true, "never": true, "must": true, "only": true,
	"stop": true, "start": true, "limit": true,
}

var digitPattern = regexp.MustCompile(`\d+`)
var nonWordPattern = regexp.MustCompile(`[^\w]`)

// IsEmphasisToken reports whether word (after lower-casing and stripping
// non-word characters) is an emphasis trigger per §4.4.
func IsEmphasisToken(word string) bool {
	stripped := strings.ToLower(nonWordPattern.ReplaceAllString(word, ""))
	if stripped == "" {
		return false
	}
	return digitPattern.MatchString(stripped) || emphasisWords[stripped]
}

func clampMs(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SynthesizeTiming assigns deterministic word-level timestamps to every
// scene's text, per §4.4. It returns one *model.AudioResult per scene, each
// carrying word timestamps local to that scene (the running cursor starts
// over at zero per scene; the Scene Processor composes scenes, it does not
// share a single global timeline across them).
func SynthesizeTiming(scenes []model.Scene) []*model.AudioResult {
	results := make([]*model.AudioResult, len(scenes))
	n := len(scenes)

	for i, scene := range scenes {
		multiplier := 1.0
		switch {
		case i == 0:
			multiplier = 0.8
		case i == n-1:
			multiplier = 1.2
		}

		words := strings.Fields(scene.Text)
		timestamps := make([]model.WordTimestamp, 0, len(words))
		cursor := 0
		for _, w := range words {
			duration := float64(baseWordDurationMs) * multiplier
			emphasis := IsEmphasisToken(w)
			if emphasis {
				duration *= 1.15
			}
			durMs := int(duration)
			timestamps = append(timestamps, model.WordTimestamp{
				Word:     w,
				StartMs:  cursor,
				EndMs:    cursor + durMs,
				Emphasis: emphasis,
			})
			cursor += durMs
		}

		results[i] = &model.AudioResult{
			Words:      timestamps,
			DurationMs: cursor,
			Pacing:     pacingFor(i, n),
		}
	}
	return results
}

func pacingFor(i, n int) model.PacingMultipliers {
	p := model.PacingMultipliers{Hook: 0.8, Body: 1.0, Ending: 1.2}
	switch {
	case i == 0:
		p.Body, p.Ending = 0.8, 0.8
	case i == n-1:
		p.Hook, p.Body = 1.2, 1.2
	}
	return p
}

// InterScenePause computes the pause, in ms, inserted after a scene of the
// given duration — clamp(section_duration * 0.15, 150, 450), and 0 when
// isLast.
func InterScenePause(sectionDurationMs int, isLast bool) int {
	if isLast {
		return 0
	}
	return clampMs(int(float64(sectionDurationMs)*0.15), 150, 450)
}

// ValidateAudio enforces the audio gate (§4.4): ordered, non-overlapping
// timestamps, no inter-word gap over 600ms, and total duration no more than
// 10% over the requested target (a shorter total is not rejected).
func ValidateAudio(audio *model.AudioResult, targetSeconds int) []string {
	var reasons []string

	for i, w := range audio.Words {
		if w.StartMs >= w.EndMs {
			reasons = append(reasons, fmt.Sprintf("word %d has non-positive duration", i))
		}
		if i > 0 {
			prev := audio.Words[i-1]
			if w.StartMs < prev.EndMs {
				reasons = append(reasons, fmt.Sprintf("word %d overlaps word %d", i, i-1))
			}
			if gap := w.StartMs - prev.EndMs; gap > 600 {
				reasons = append(reasons, fmt.Sprintf("gap of %dms before word %d exceeds 600ms", gap, i))
			}
		}
	}

	if maxMs := int(float64(targetSeconds) * 1000 * 1.1); audio.DurationMs > maxMs {
		reasons = append(reasons, fmt.Sprintf("duration %dms exceeds %dms (target %ds * 1.1)", audio.DurationMs, maxMs, targetSeconds))
	}
	return reasons
}

// AudioTimingSynth wraps SynthesizeTiming as a cor.Command for a single
// scene: it takes the scene's text off the chain's input and places the
// resulting *model.AudioResult in the output, failing the command with a
// GATE_REJECT on any audio gate violation.
type AudioTimingSynth struct {
	cor.BaseCommand
	targetSeconds int
	audioDir      string
	synth         VoiceSynthesizer
}

// VoiceSynthesizer produces the actual audio bytes backing a timing
// result; SilentWAVSynthesizer is the always-available fallback.
type VoiceSynthesizer interface {
	Synthesize(text string, durationMs int, destPath string) error
}

func NewAudioTimingSynth(targetSeconds int, audioDir string, synth VoiceSynthesizer) *AudioTimingSynth {
	return &AudioTimingSynth{
		BaseCommand:   *cor.NewBaseCommand("audio_timing_synth"),
		targetSeconds: targetSeconds,
		audioDir:      audioDir,
		synth:         synth,
	}
}

func (a *AudioTimingSynth) Execute(ctx cor.Context) {
	scene, ok := ctx.Get(a.GetInputParam()).(model.Scene)
	if !ok {
		ctx.AddError(a.GetName(), apperrors.Newf(apperrors.GateReject, a.GetName(), "no scene in context"))
		return
	}

	results := SynthesizeTiming([]model.Scene{scene})
	audio := results[0]

	if err := os.MkdirAll(a.audioDir, 0o755); err != nil {
		ctx.AddError(a.GetName(), apperrors.New(apperrors.RenderFailure, a.GetName(), err))
		return
	}
	audioPath := a.audioDir + "/" + sanitizeFilename(scene.Text) + ".wav"
	if err := a.synth.Synthesize(scene.Text, audio.DurationMs, audioPath); err != nil {
		ctx.AddError(a.GetName(), apperrors.New(apperrors.RenderFailure, a.GetName(), err))
		return
	}
	audio.AudioPath = audioPath
	ctx.AddTempFile(audioPath)

	if reasons := ValidateAudio(audio, a.targetSeconds); len(reasons) > 0 {
		ctx.AddError(a.GetName(), apperrors.Newf(apperrors.GateReject, a.GetName(), "%s", strings.Join(reasons, "; ")))
		return
	}
	ctx.Add(a.GetOutputParam(), audio)
}

func sanitizeFilename(s string) string {
	s = strings.ToLower(s)
	s = nonWordPattern.ReplaceAllString(s, "_")
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
