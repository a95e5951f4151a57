// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface used across the video
// generation pipeline.
package commands

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/genshorts/genshorts/internal/apperrors"
	"github.com/genshorts/genshorts/internal/core/cor"
	"github.com/genshorts/genshorts/internal/core/model"
)

// renderFormat is the fixed output container/codec settings every render
// invocation targets (§4.9).
var renderFormat = model.DefaultRenderFormat()

// renderErrorSubstrings classifies an ffmpeg stderr tail into one of the
// closed RENDER_FAILURE sub-reasons, by substring match (§4.9).
var renderErrorSubstrings = []struct {
	substr string
	class  string
}{
	{"No such file or directory", "ASSET_MISSING"},
	{"does not contain any stream", "ASSET_MISSING"},
	{"Invalid duration", "TIMING_MISMATCH"},
	{"non monotonically increasing", "TIMING_MISMATCH"},
	{"Unknown encoder", "CODEC_FAILURE"},
	{"Error while opening encoder", "CODEC_FAILURE"},
	{"Cannot allocate memory", "RESOURCE_EXHAUSTION"},
	{"No space left on device", "RESOURCE_EXHAUSTION"},
}

// ClassifyRenderError matches stderr against the known substrings and
// returns the resulting error class, defaulting to UNKNOWN_ERROR.
func ClassifyRenderError(stderr string) string {
	for _, m := range renderErrorSubstrings {
		if strings.Contains(stderr, m.substr) {
			return m.class
		}
	}
	return "UNKNOWN_ERROR"
}

func panOffsetExpr(pan model.Pan) (x, y string) {
	w, h := renderFormat.Width, renderFormat.Height
	switch pan {
	case model.PanLeft:
		return "0", fmt.Sprintf("(ih-%d)/2", h)
	case model.PanRight:
		return fmt.Sprintf("(iw-%d)", w), fmt.Sprintf("(ih-%d)/2", h)
	case model.PanUp:
		return fmt.Sprintf("(iw-%d)/2", w), "0"
	case model.PanDown:
		return fmt.Sprintf("(iw-%d)/2", w), fmt.Sprintf("(ih-%d)", h)
	default:
		return fmt.Sprintf("(iw-%d)/2", w), fmt.Sprintf("(ih-%d)/2", h)
	}
}

// buildClipFilter returns the filter-graph fragment for one edit segment:
// scale-to-fit with the segment's own zoom factor, crop to its pan-derived
// offset, normalize fps/pixel format, trim to the segment's duration, and
// reset PTS. Zoom/pan come from the edit plan (§4.7), not the underlying
// clip's own transform, since the plan is what decides when a segment gets
// the emphasis zoom or a pattern-interrupt pan.
func buildClipFilter(inputLabel string, seg model.EditSegment, outputLabel string) string {
	zoom := seg.Zoom
	if zoom == 0 {
		zoom = 1.0
	}
	x, y := panOffsetExpr(seg.Pan)
	durationSec := float64(seg.EndMs-seg.StartMs) / 1000.0

	return fmt.Sprintf(
		"[%s]scale=w=%d*%.3f:h=%d*%.3f:force_original_aspect_ratio=increase,"+
			"crop=%d:%d:%s:%s,fps=%d,format=yuv420p,trim=duration=%.3f,setpts=PTS-STARTPTS[%s]",
		inputLabel, renderFormat.Width, zoom, renderFormat.Height, zoom, renderFormat.Width, renderFormat.Height, x, y, renderFormat.FPS, durationSec, outputLabel,
	)
}

// clipPathIndex maps each visual clip's ID to its locally resolved asset
// path, so the edit plan's segments can be rendered without re-threading
// the visual timeline's own ordering.
func clipPathIndex(visuals []model.VisualClip) map[string]string {
	idx := make(map[string]string, len(visuals))
	for _, v := range visuals {
		idx[v.ClipID] = v.LocalPath
	}
	return idx
}

func escapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, ":", "\\:")
	return s
}

// buildCaptionOverlay returns the drawtext filter fragment for one
// caption, centered horizontally, near the bottom, with a black shadow and
// a gold/1.1x treatment when the caption carries emphasis.
func buildCaptionOverlay(inputLabel string, caption model.Caption, outputLabel string) string {
	fontSize := 64
	color := "white"
	if len(caption.EmphasisIndices) > 0 {
		fontSize = int(float64(fontSize) * 1.1)
		color = "gold"
	}
	startSec := float64(caption.StartMs) / 1000.0
	endSec := float64(caption.EndMs) / 1000.0

	return fmt.Sprintf(
		"[%s]drawtext=text='%s':fontcolor=%s:fontsize=%d:"+
			"shadowcolor=black:shadowx=2:shadowy=2:x=(w-text_w)/2:y=h-text_h-60:"+
			"enable='between(t,%.3f,%.3f)'[%s]",
		inputLabel, escapeDrawtext(caption.Text), color, fontSize, startSec, endSec, outputLabel,
	)
}

// RenderScene builds the filter graph for one scene's normalized, captioned
// video (§4.9) and invokes ffmpeg, writing the script to a temp file to
// avoid argv length limits, and mixing in the scene's synthesized audio
// track. It returns the path to the rendered segment. The filter graph
// follows the edit plan segment-by-segment, not the raw visual timeline:
// each EditSegment carries the clip_id, zoom, and pan the Edit Plan Builder
// decided for that slice (§4.7), including the emphasis zoom and the
// mandated per-2500ms pattern-interrupt pan.
func RenderScene(ffmpegPath string, plan []model.EditSegment, visuals []model.VisualClip, captions []model.Caption, audioPath, tempDir, destPath string) error {
	paths := clipPathIndex(visuals)

	var inputs []string
	var filters []string

	clipLabels := make([]string, len(plan))
	for i, seg := range plan {
		localPath, ok := paths[seg.ClipID]
		if !ok {
			return apperrors.Newf(apperrors.RenderFailure, "render", "segment %d references unknown clip %q", i, seg.ClipID)
		}
		inputIdx := len(inputs)
		inputs = append(inputs, localPath)
		outLabel := fmt.Sprintf("v%d", i)
		filters = append(filters, buildClipFilter(fmt.Sprintf("%d:v", inputIdx), seg, outLabel))
		clipLabels[i] = outLabel
	}

	concatInputs := ""
	for _, l := range clipLabels {
		concatInputs += "[" + l + "]"
	}
	filters = append(filters, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[vconcat]", concatInputs, len(clipLabels)))

	current := "vconcat"
	for i, caption := range captions {
		next := fmt.Sprintf("cap%d", i)
		filters = append(filters, buildCaptionOverlay(current, caption, next))
		current = next
	}
	filters = append(filters, fmt.Sprintf("[%s]copy[video_out]", current))

	audioInputIdx := len(inputs)
	inputs = append(inputs, audioPath)

	scriptPath := filepath.Join(tempDir, fmt.Sprintf("filtergraph-%d.txt", os.Getpid()))
	if err := os.WriteFile(scriptPath, []byte(strings.Join(filters, ";\n")), 0o644); err != nil {
		return fmt.Errorf("write filter script: %w", err)
	}
	defer os.Remove(scriptPath)

	args := []string{"-y", "-hide_banner"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex_script", scriptPath,
		"-map", "[video_out]",
		"-map", fmt.Sprintf("%d:a", audioInputIdx),
		"-c:v", "libx264", "-preset", "medium", "-crf", "18",
		"-c:a", "aac", "-b:a", "192k", "-ar", "44100", "-ac", "2",
		"-movflags", "+faststart",
		"-f", "mp4", destPath,
	)

	return runFFmpeg(ffmpegPath, args, destPath)
}

// ConcatScenes joins the per-scene rendered segments into the final output
// using ffmpeg's stream-copy concat demuxer (no re-encode), per §4.9.
func ConcatScenes(ffmpegPath string, segmentPaths []string, tempDir, destPath string) error {
	listPath := filepath.Join(tempDir, fmt.Sprintf("concat-%d.txt", os.Getpid()))
	var b strings.Builder
	for _, p := range segmentPaths {
		fmt.Fprintf(&b, "file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-y", "-hide_banner",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		destPath,
	}
	return runFFmpeg(ffmpegPath, args, destPath)
}

func runFFmpeg(ffmpegPath string, args []string, destPath string) error {
	cmd := exec.Command(ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	stderrText := stderr.String()

	if err != nil {
		return apperrors.Newf(apperrors.RenderFailure, "render", "%s: %s", ClassifyRenderError(stderrText), stderrText)
	}

	info, statErr := os.Stat(destPath)
	if statErr != nil {
		return apperrors.Newf(apperrors.RenderFailure, "render", "%s: output missing after success exit: %s", ClassifyRenderError(stderrText), stderrText)
	}
	if info.Size() < 10*1024 {
		return apperrors.Newf(apperrors.RenderFailure, "render", "%s: output size %d below 10KB floor", ClassifyRenderError(stderrText), info.Size())
	}
	return nil
}

// RenderAdapter wraps RenderScene as a cor.Command for one scene.
type RenderAdapter struct {
	cor.BaseCommand
	ffmpegPath string
	tempDir    string
	outputDir  string
}

func NewRenderAdapter(ffmpegPath, tempDir, outputDir string) *RenderAdapter {
	return &RenderAdapter{
		BaseCommand: *cor.NewBaseCommand("render_adapter"),
		ffmpegPath:  ffmpegPath,
		tempDir:     tempDir,
		outputDir:   outputDir,
	}
}

// SceneRenderInput bundles one scene's edit plan, visuals, captions, and
// audio for the render step. Visuals are carried alongside the plan purely
// so RenderScene can resolve each segment's clip_id to a local asset path.
type SceneRenderInput struct {
	SceneIndex int
	Plan       []model.EditSegment
	Visuals    []model.VisualClip
	Captions   []model.Caption
	AudioPath  string
}

func (r *RenderAdapter) Execute(ctx cor.Context) {
	in, ok := ctx.Get(r.GetInputParam()).(SceneRenderInput)
	if !ok {
		ctx.AddError(r.GetName(), apperrors.Newf(apperrors.RenderFailure, r.GetName(), "no render input in context"))
		return
	}

	if err := os.MkdirAll(r.tempDir, 0o755); err != nil {
		ctx.AddError(r.GetName(), apperrors.New(apperrors.RenderFailure, r.GetName(), err))
		return
	}
	segmentPath := filepath.Join(r.tempDir, fmt.Sprintf("scene-%d.mp4", in.SceneIndex))

	if err := RenderScene(r.ffmpegPath, in.Plan, in.Visuals, in.Captions, in.AudioPath, r.tempDir, segmentPath); err != nil {
		ctx.AddError(r.GetName(), err)
		return
	}
	ctx.AddTempFile(segmentPath)
	ctx.Add(r.GetOutputParam(), segmentPath)
}

// SortSegmentsByIndex is a small helper used by the job pipeline to order
// scene segment paths before concatenation.
func SortSegmentsByIndex(paths map[int]string) []string {
	indices := make([]int, 0, len(paths))
	for i := range paths {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		out = append(out, paths[i])
	}
	return out
}
