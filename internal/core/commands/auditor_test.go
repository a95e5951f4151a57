package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/genshorts/genshorts/internal/core/commands"
	"github.com/genshorts/genshorts/internal/core/model"
	test "github.com/genshorts/genshorts/internal/testutil"
)

// shortAudio returns a handful of word timings, deliberately fewer than the
// ten words auditPacingUniformity needs before it starts judging pacing, so
// these tests exercise A1/A3/A4 without tripping A2 on arbitrary timing.
func shortAudio() []*model.AudioResult {
	return []*model.AudioResult{
		{Words: test.FourWordTiming(), DurationMs: 1200},
	}
}

func TestRunFinalAuditorAcceptsGoodScript(t *testing.T) {
	verdict := commands.RunFinalAuditor(commands.AuditInput{Script: test.AcceptedScript(), Audio: shortAudio()})
	assert.True(t, verdict.Go)
}

func TestRunFinalAuditorRejectsPoliteEnding(t *testing.T) {
	verdict := commands.RunFinalAuditor(commands.AuditInput{Script: test.PoliteEndingScript(), Audio: shortAudio()})
	assert.False(t, verdict.Go)
	assert.Contains(t, verdict.Reason, "complete/polite")
}

func TestRunFinalAuditorRejectsSkippableHook(t *testing.T) {
	script := test.AcceptedScript()
	script.Scenes[0].Text = "Coffee is a popular morning drink for many adults"
	verdict := commands.RunFinalAuditor(commands.AuditInput{Script: script, Audio: shortAudio()})
	assert.False(t, verdict.Go)
	assert.Equal(t, "First 2 seconds feel skippable", verdict.Reason)
}

func TestRunFinalAuditorRejectsNeutralStance(t *testing.T) {
	script := test.AcceptedScript()
	for i := range script.Scenes {
		script.Scenes[i].Text = "Most people think coffee wakes you, but it does something"
	}
	verdict := commands.RunFinalAuditor(commands.AuditInput{Script: script, Audio: shortAudio()})
	assert.False(t, verdict.Go)
	assert.Equal(t, "Video feels neutral and safe", verdict.Reason)
}
