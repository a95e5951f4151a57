package commands

import (
	"strings"

	"github.com/genshorts/genshorts/internal/apperrors"
	"github.com/genshorts/genshorts/internal/core/cor"
	"github.com/genshorts/genshorts/internal/core/model"
)

var hookGrabWords = []string{"but", "wrong", "lie", "secret", "nobody", "stop", "failed"}
var stanceMarkers = []string{"isnt", "is not", "problem", "truth", "lies", "failed", "shouldnt"}
var endingPoliteMarkers = []string{"summary", "conclude", "in conclusion", "thank you", "follow for more"}

// AuditInput bundles what the Final Auditor needs across the whole job:
// the script and every scene's audio timing.
type AuditInput struct {
	Script *model.Script
	Audio  []*model.AudioResult
}

// AuditVerdict is the Final Auditor's GO/NO-GO result.
type AuditVerdict struct {
	Go     bool
	Reason string
}

// RunFinalAuditor executes the four A1-A4 heuristics of §4.10 against a
// completed job's aggregate artifacts, in order, stopping at the first
// NO-GO.
func RunFinalAuditor(in AuditInput) AuditVerdict {
	if v := auditHookGrab(in.Script); !v.Go {
		return v
	}
	if v := auditPacingUniformity(in.Audio); !v.Go {
		return v
	}
	if v := auditStance(in.Script); !v.Go {
		return v
	}
	if v := auditEnding(in.Script); !v.Go {
		return v
	}
	return AuditVerdict{Go: true}
}

// A1: hook must grab attention via a signal word or a curiosity pattern.
func auditHookGrab(script *model.Script) AuditVerdict {
	hook := strings.ToLower(script.Hook())
	for _, w := range hookGrabWords {
		if strings.Contains(hook, w) {
			return AuditVerdict{Go: true}
		}
	}
	for _, p := range curiosityPatterns {
		if p.MatchString(script.Hook()) {
			return AuditVerdict{Go: true}
		}
	}
	return AuditVerdict{Go: false, Reason: "First 2 seconds feel skippable"}
}

// A2: pacing uniformity — sliding 5-word windows; if consecutive windows'
// words-per-second stay within 0.2 of each other for more than 4s total,
// the video reads as monotone.
func auditPacingUniformity(audios []*model.AudioResult) AuditVerdict {
	var allWords []model.WordTimestamp
	for _, a := range audios {
		allWords = append(allWords, a.Words...)
	}
	if len(allWords) < 10 {
		return AuditVerdict{Go: true}
	}

	var wpsSeries []float64
	var windowMs []int
	for i := 0; i+5 <= len(allWords); i += 5 {
		window := allWords[i : i+5]
		durationMs := window[4].EndMs - window[0].StartMs
		if durationMs <= 0 {
			continue
		}
		wpsSeries = append(wpsSeries, 5.0/(float64(durationMs)/1000.0))
		windowMs = append(windowMs, durationMs)
	}

	accumulatedMs := 0
	for i := 1; i < len(wpsSeries); i++ {
		delta := wpsSeries[i] - wpsSeries[i-1]
		if delta < 0 {
			delta = -delta
		}
		if delta < 0.2 {
			accumulatedMs += windowMs[i]
		}
	}
	if accumulatedMs > 4000 {
		return AuditVerdict{Go: false, Reason: "Pacing feels uniform"}
	}
	return AuditVerdict{Go: true}
}

// A3: the union of the hook and every scene's text must take a stance.
func auditStance(script *model.Script) AuditVerdict {
	var all []string
	for _, s := range script.Scenes {
		all = append(all, strings.ToLower(s.Text))
	}
	combined := strings.Join(all, " ")
	for _, marker := range stanceMarkers {
		if strings.Contains(combined, marker) {
			return AuditVerdict{Go: true}
		}
	}
	return AuditVerdict{Go: false, Reason: "Video feels neutral and safe"}
}

// A4: the ending must not read as a polite, closing statement.
func auditEnding(script *model.Script) AuditVerdict {
	ending := strings.ToLower(script.Ending())
	for _, marker := range endingPoliteMarkers {
		if strings.Contains(ending, marker) {
			return AuditVerdict{Go: false, Reason: "Video feels complete/polite"}
		}
	}
	return AuditVerdict{Go: true}
}

// FinalAuditor wraps RunFinalAuditor as a cor.Command over the job-level
// AuditInput placed in the context by the aggregator.
type FinalAuditor struct {
	cor.BaseCommand
}

func NewFinalAuditor() *FinalAuditor {
	return &FinalAuditor{BaseCommand: *cor.NewBaseCommand("final_auditor")}
}

func (a *FinalAuditor) Execute(ctx cor.Context) {
	in, ok := ctx.Get(a.GetInputParam()).(AuditInput)
	if !ok {
		ctx.AddError(a.GetName(), apperrors.Newf(apperrors.AuditNoGo, a.GetName(), "no audit input in context"))
		return
	}

	verdict := RunFinalAuditor(in)
	if !verdict.Go {
		ctx.AddError(a.GetName(), apperrors.Newf(apperrors.AuditNoGo, a.GetName(), "%s", verdict.Reason))
		return
	}
	ctx.Add(a.GetOutputParam(), verdict)
}
