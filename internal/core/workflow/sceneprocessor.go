package workflow

import (
	"fmt"
	"log/slog"

	"github.com/genshorts/genshorts/internal/apperrors"
	"github.com/genshorts/genshorts/internal/core/commands"
	"github.com/genshorts/genshorts/internal/core/cor"
	"github.com/genshorts/genshorts/internal/core/model"
)

// SceneProcessorInput is what the job pipeline hands each scene's
// sub-pipeline.
type SceneProcessorInput struct {
	Index         int
	Scene         model.Scene
	TargetSeconds int
	// DryRun skips the render step: every gate still runs, so a dry-run
	// job still validates the script and every scene's plan, but no
	// ffmpeg process is spawned and no segment file is produced.
	DryRun bool
}

// SceneProcessor drives one scene through audio synth, the keyword and
// pacing warn-only gates, visual timeline construction (with one retry),
// captions, the edit plan, and rendering (§4.8). Unlike a generic
// cor.Chain, it reshapes the heterogeneous input/output of each stage
// itself, since the stages do not share one pipeline-shaped value.
type SceneProcessor struct {
	cor.BaseCommand
	audioSynth *commands.AudioTimingSynth
	visuals    *commands.VisualTimelineBuilder
	captions   *commands.CaptionGrouper
	editPlan   *commands.EditPlanBuilder
	render     *commands.RenderAdapter
}

func NewSceneProcessor(
	audioSynth *commands.AudioTimingSynth,
	visuals *commands.VisualTimelineBuilder,
	captions *commands.CaptionGrouper,
	editPlan *commands.EditPlanBuilder,
	render *commands.RenderAdapter,
) *SceneProcessor {
	return &SceneProcessor{
		BaseCommand: *cor.NewBaseCommand("scene_processor"),
		audioSynth:  audioSynth,
		visuals:     visuals,
		captions:    captions,
		editPlan:    editPlan,
		render:      render,
	}
}

func (p *SceneProcessor) IsExecutable(ctx cor.Context) bool {
	return ctx != nil && ctx.GetContext() != nil && ctx.Get(p.GetInputParam()) != nil
}

// runStep pushes input into the chain's CtxIn slot, executes cmd, and
// returns whatever it placed in CtxOut, clearing both slots afterward so
// the next stage starts clean. It reports failure by checking for an
// error keyed under cmd's own name, since BaseCommand.Execute implementations
// call ctx.AddError(cmd.GetName(), ...) rather than returning an error value.
func runStep(ctx cor.Context, cmd cor.Command, input interface{}) (interface{}, error) {
	ctx.Add(cor.CtxIn, input)
	cmd.Execute(ctx)
	out := ctx.Get(cor.CtxOut)
	ctx.Remove(cor.CtxIn)
	ctx.Remove(cor.CtxOut)

	if err, failed := ctx.GetErrors()[cmd.GetName()]; failed {
		ctx.RemoveError(cmd.GetName())
		return nil, err
	}
	return out, nil
}

func (p *SceneProcessor) Execute(ctx cor.Context) {
	in, ok := ctx.Get(p.GetInputParam()).(SceneProcessorInput)
	if !ok {
		ctx.AddError(p.GetName(), apperrors.Newf(apperrors.Validation, p.GetName(), "no scene processor input in context"))
		return
	}

	audioOut, err := runStep(ctx, p.audioSynth, in.Scene)
	if err != nil {
		ctx.AddError(p.GetName(), err)
		return
	}
	audio := audioOut.(*model.AudioResult)

	warnKeywordCoverage(in.Index, in.Scene)
	warnPacingSanity(in.Index, audio)

	var visualsOut interface{}
	for attempt := 1; attempt <= 2; attempt++ {
		visualsOut, err = runStep(ctx, p.visuals, commands.VisualTimelineInput{
			Keywords:   in.Scene.Keywords,
			DurationMs: audio.DurationMs,
		})
		if err == nil {
			break
		}
		if attempt == 2 {
			ctx.AddError(p.GetName(), apperrors.New(apperrors.AssetShortage, p.GetName(), err))
			return
		}
		slog.Warn("visual timeline attempt failed, retrying", "scene_index", in.Index, "error", err)
	}
	visuals := visualsOut.([]model.VisualClip)

	captionsOut, err := runStep(ctx, p.captions, audio)
	if err != nil {
		ctx.AddError(p.GetName(), err)
		return
	}
	captions := captionsOut.([]model.Caption)

	planOut, err := runStep(ctx, p.editPlan, commands.SceneEditPlanInput{
		Audio:    audio,
		Captions: captions,
		Visuals:  visuals,
	})
	if err != nil {
		ctx.AddError(p.GetName(), err)
		return
	}
	plan := planOut.([]model.EditSegment)

	var segmentPath string
	if !in.DryRun {
		segmentPathOut, err := runStep(ctx, p.render, commands.SceneRenderInput{
			SceneIndex: in.Index,
			Plan:       plan,
			Visuals:    visuals,
			Captions:   captions,
			AudioPath:  audio.AudioPath,
		})
		if err != nil {
			ctx.AddError(p.GetName(), err)
			return
		}
		segmentPath = segmentPathOut.(string)
	}

	ctx.Add(p.GetOutputParam(), model.SceneArtifacts{
		Index:       in.Index,
		Scene:       in.Scene,
		Audio:       audio,
		Captions:    captions,
		Visuals:     visuals,
		Plan:        plan,
		SegmentPath: segmentPath,
	})
}

// warnKeywordCoverage is the keyword gate of §4.8: warn only, since a
// scene with a single keyword still produces a valid (if repetitive)
// visual timeline.
func warnKeywordCoverage(sceneIndex int, scene model.Scene) {
	if len(scene.Keywords) < 2 {
		slog.Warn("scene has fewer than 2 visual keywords", "scene_index", sceneIndex, "keywords", scene.Keywords)
	}
}

// warnPacingSanity is the pacing gate of §4.8: warn only, flagging a
// words-per-second rate so far outside typical narration speech that it
// suggests a synthesis or timing bug, without failing the scene over it.
func warnPacingSanity(sceneIndex int, audio *model.AudioResult) {
	if len(audio.Words) == 0 || audio.DurationMs == 0 {
		return
	}
	wps := float64(len(audio.Words)) / (float64(audio.DurationMs) / 1000.0)
	if wps < 0.5 || wps > 6.0 {
		slog.Warn("scene pacing outside expected speech rate", "scene_index", sceneIndex, "words_per_second", fmt.Sprintf("%.2f", wps))
	}
}
