package workflow

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/genshorts/genshorts/internal/apperrors"
	"github.com/genshorts/genshorts/internal/core/commands"
	"github.com/genshorts/genshorts/internal/core/cor"
	"github.com/genshorts/genshorts/internal/core/model"
	"github.com/genshorts/genshorts/internal/core/services"
)

const maxScriptAttempts = 3

// JobPipeline is the job-level driver (§4.1-§4.10): script generation and
// the quality gate, scene fan-out via errgroup (§10.6), the concat
// barrier, and the final audit. One JobPipeline is shared across every
// job a worker processes; it holds no per-job state of its own beyond
// what it is handed in Run.
type JobPipeline struct {
	oracle     *services.Oracle
	provider   services.StockProvider
	cache      *services.AssetCache
	voice      commands.VoiceSynthesizer
	ffmpegPath string
	tempDir    string
	outputDir  string
	audioDir   string
}

func NewJobPipeline(
	oracle *services.Oracle,
	provider services.StockProvider,
	cache *services.AssetCache,
	voice commands.VoiceSynthesizer,
	ffmpegPath, tempDir, outputDir, audioDir string,
) *JobPipeline {
	return &JobPipeline{
		oracle:     oracle,
		provider:   provider,
		cache:      cache,
		voice:      voice,
		ffmpegPath: ffmpegPath,
		tempDir:    tempDir,
		outputDir:  outputDir,
		audioDir:   audioDir,
	}
}

// Run drives job end to end and writes the final status/result back to
// store. It never returns an error: every failure is instead recorded on
// the job itself, matching the propagation rule of §7 ("worker catches at
// the job boundary").
func (p *JobPipeline) Run(goCtx context.Context, store *services.JobStore, job *model.Job) {
	tracer := otel.Tracer("job-pipeline")
	goCtx, span := tracer.Start(goCtx, "job_pipeline_execute")
	defer span.End()

	store.Update(job.ID, func(j *model.Job) { j.Status = model.StatusScripting })

	script, err := p.generateScript(goCtx, job)
	if err != nil {
		p.fail(store, job, err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	store.Update(job.ID, func(j *model.Job) { j.Status = model.StatusAudioGen })
	artifacts, err := p.processScenes(goCtx, job, script)
	if err != nil {
		p.fail(store, job, err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	if job.DryRun {
		store.Update(job.ID, func(j *model.Job) {
			j.Status = model.StatusCompleted
			j.Progress = 100
			j.Result = &model.JobResult{
				Script:      script,
				Diagnostics: []string{"dry_run: every scene's plan validated without rendering"},
			}
		})
		span.SetStatus(codes.Ok, "dry run completed")
		return
	}

	store.Update(job.ID, func(j *model.Job) { j.Status = model.StatusMerging })
	outputPath := filepath.Join(p.outputDir, job.ID+".mp4")
	if err := p.concat(artifacts, outputPath); err != nil {
		p.fail(store, job, err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	store.Update(job.ID, func(j *model.Job) { j.Status = model.StatusAuditing })
	if err := p.audit(script, artifacts); err != nil {
		p.fail(store, job, err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	store.Update(job.ID, func(j *model.Job) {
		j.Status = model.StatusCompleted
		j.Progress = 100
		j.Result = &model.JobResult{OutputPath: outputPath, Script: script}
	})
	span.SetStatus(codes.Ok, "job completed")
}

// generateScript runs Oracle.GenerateScript followed by the Script
// Quality Gate, retrying generation up to 3 times total (§4.3, §7).
func (p *JobPipeline) generateScript(goCtx context.Context, job *model.Job) (*model.Script, error) {
	gate := commands.NewScriptGate()
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(goCtx)

	var lastErr error
	for attempt := 1; attempt <= maxScriptAttempts; attempt++ {
		script, err := p.oracle.GenerateScript(goCtx, job.Topic, job.DurationSeconds, job.Tone)
		if err != nil {
			return nil, err
		}

		out, gateErr := runStep(chainCtx, gate, script)
		if gateErr == nil {
			return out.(*model.Script), nil
		}
		lastErr = gateErr
	}
	return nil, apperrors.New(apperrors.GateReject, "job_pipeline", fmt.Errorf("script rejected after %d attempts: %w", maxScriptAttempts, lastErr))
}

// processScenes fans the script's scenes out across one goroutine each
// (§10.6), collecting results into an index-addressed slice so scene
// order survives concurrent completion regardless of which goroutine
// finishes first.
func (p *JobPipeline) processScenes(goCtx context.Context, job *model.Job, script *model.Script) ([]model.SceneArtifacts, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sceneProcessor := NewSceneProcessor(
		commands.NewAudioTimingSynth(job.DurationSeconds, p.audioDir, p.voice),
		commands.NewVisualTimelineBuilder(p.provider, p.cache, rng),
		commands.NewCaptionGrouper(),
		commands.NewEditPlanBuilder(),
		commands.NewRenderAdapter(p.ffmpegPath, p.tempDir, p.outputDir),
	)

	results := make([]model.SceneArtifacts, len(script.Scenes))
	g, gctx := errgroup.WithContext(goCtx)
	for i, scene := range script.Scenes {
		i, scene := i, scene
		g.Go(func() error {
			sceneCtx := cor.NewBaseContext()
			sceneCtx.SetContext(gctx)

			out, err := runStep(sceneCtx, sceneProcessor, SceneProcessorInput{
				Index:         i,
				Scene:         scene,
				TargetSeconds: job.DurationSeconds,
				DryRun:        job.DryRun,
			})
			if err != nil {
				return fmt.Errorf("scene %d: %w", i, err)
			}
			results[i] = out.(model.SceneArtifacts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *JobPipeline) concat(artifacts []model.SceneArtifacts, outputPath string) error {
	segments := make(map[int]string, len(artifacts))
	for _, a := range artifacts {
		segments[a.Index] = a.SegmentPath
	}
	return commands.ConcatScenes(p.ffmpegPath, commands.SortSegmentsByIndex(segments), p.tempDir, outputPath)
}

func (p *JobPipeline) audit(script *model.Script, artifacts []model.SceneArtifacts) error {
	auditor := commands.NewFinalAuditor()
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())

	audios := make([]*model.AudioResult, len(artifacts))
	for i, a := range artifacts {
		audios[i] = a.Audio
	}

	_, err := runStep(chainCtx, auditor, commands.AuditInput{Script: script, Audio: audios})
	return err
}

func (p *JobPipeline) fail(store *services.JobStore, job *model.Job, err error) {
	store.Update(job.ID, func(j *model.Job) {
		j.Status = model.StatusFailed
		result := &model.JobResult{
			Error:     err.Error(),
			ErrorType: string(apperrors.CodeOf(err)),
		}
		if apperrors.CodeOf(err) == apperrors.AuditNoGo {
			result.AuditReason = err.Error()
		}
		j.Result = result
	})
}
