package commands

import (
	"regexp"
	"strings"

	"github.com/genshorts/genshorts/internal/apperrors"
	"github.com/genshorts/genshorts/internal/core/cor"
	"github.com/genshorts/genshorts/internal/core/model"
)

// bannedHookPhrases are phrases the Script Quality Gate rejects outright
// because they signal filler rather than a hook.
var bannedHookPhrases = []string{
	"did you know", "in this video", "let's talk about", "you won't believe",
}

// curiosityPatterns are the four patterns (P1-P4) a hook must match at
// least one of to be judged curiosity-inducing.
var curiosityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(most|many|some) (people|thinkers|experts) think.*but`),  // P1
	regexp.MustCompile(`(?i)nobody (tells|told|is telling) you this about`),          // P2
	regexp.MustCompile(`(?i)this sounds wrong, but`),                                 // P3
	regexp.MustCompile(`(?i)(isn't|is not) the problem\..* is\.`),                    // P4
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// ValidateScript is the pure logic of the Script Quality Gate (§4.3): it
// checks the hook and ending word-count bounds, the banned-phrase list, and
// the curiosity-pattern requirement, returning every violation found rather
// than stopping at the first.
func ValidateScript(script *model.Script) []string {
	var reasons []string

	hook := strings.ToLower(script.Hook())
	if wordCount(script.Hook()) > 12 {
		reasons = append(reasons, "hook exceeds 12 words")
	}
	for _, phrase := range bannedHookPhrases {
		if strings.Contains(hook, phrase) {
			reasons = append(reasons, "banned phrase \""+phrase+"\"")
		}
	}
	matched := false
	for _, p := range curiosityPatterns {
		if p.MatchString(script.Hook()) {
			matched = true
			break
		}
	}
	if !matched {
		reasons = append(reasons, "hook does not create curiosity")
	}

	if wordCount(script.Ending()) > 8 {
		reasons = append(reasons, "ending exceeds 8 words")
	}

	return reasons
}

// ScriptGate wraps ValidateScript as a cor.Command operating on the flip-
// flopped *model.Script the oracle call placed in the chain's CtxOut/CtxIn.
// A fallback script (see services.Oracle) bypasses this gate entirely,
// per the decision recorded in DESIGN.md.
type ScriptGate struct {
	cor.BaseCommand
}

func NewScriptGate() *ScriptGate {
	return &ScriptGate{BaseCommand: *cor.NewBaseCommand("script_gate")}
}

func (g *ScriptGate) Execute(ctx cor.Context) {
	script, ok := ctx.Get(g.GetInputParam()).(*model.Script)
	if !ok || script == nil {
		ctx.AddError(g.GetName(), apperrors.Newf(apperrors.GateReject, g.GetName(), "no script in context"))
		return
	}

	if script.Fallback {
		ctx.Add(g.GetOutputParam(), script)
		return
	}

	if reasons := ValidateScript(script); len(reasons) > 0 {
		ctx.AddError(g.GetName(), apperrors.Newf(apperrors.GateReject, g.GetName(), "%s", strings.Join(reasons, "; ")))
		return
	}
	ctx.Add(g.GetOutputParam(), script)
}
