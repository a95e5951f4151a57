package commands

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/genshorts/genshorts/internal/apperrors"
	"github.com/genshorts/genshorts/internal/core/cor"
	"github.com/genshorts/genshorts/internal/core/model"
	"github.com/genshorts/genshorts/internal/core/services"
)

// PrefetchKeywords searches the stock provider concurrently for every
// distinct keyword and populates cache with the results, per §4.6's
// pre-fetch step.
func PrefetchKeywords(ctx context.Context, provider services.StockProvider, cache *services.AssetCache, keywords []string) error {
	seen := make(map[string]bool)
	var distinct []string
	for _, k := range keywords {
		lk := strings.ToLower(k)
		if !seen[lk] {
			seen[lk] = true
			distinct = append(distinct, k)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for _, keyword := range distinct {
		keyword := keyword
		g.Go(func() error {
			clips, err := provider.Search(gctx, keyword, false)
			if err != nil {
				return fmt.Errorf("search keyword %q: %w", keyword, err)
			}
			mu.Lock()
			cache.PutSearchResults(keyword, clips)
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// VisualTimelineParams bundles the inputs BuildVisualTimeline needs beyond
// the keyword list and duration, since the fallback layers and transform
// assignment both depend on cache/provider/rng state shared across scenes.
type VisualTimelineParams struct {
	Keywords        []string
	DurationMs      int
	Cache           *services.AssetCache
	Provider        services.StockProvider
	RNG             *rand.Rand
	PreviousClipID  string
}

// BuildVisualTimeline implements §4.6's loop: it covers [0, DurationMs]
// with a contiguous sequence of VisualClips, applying the tail-lookahead
// absorption/shrink rule and the L1-L4 asset-selection fallback layers.
func BuildVisualTimeline(ctx context.Context, p VisualTimelineParams) ([]model.VisualClip, error) {
	if len(p.Keywords) == 0 {
		return nil, apperrors.Newf(apperrors.AssetShortage, "visual_timeline", "no keywords supplied")
	}

	totalUnique := p.Cache.UnusedCount()
	allowReuse := float64(totalUnique)*3000 < float64(p.DurationMs)
	denom := totalUnique
	if denom < 1 {
		denom = 1
	}
	minClipMs := clampMs(int(math.Ceil(float64(p.DurationMs)/float64(denom))), 800, 3000)

	var clips []model.VisualClip
	cursor := 0
	keywordIdx := 0
	previousClipID := p.PreviousClipID

	for cursor < p.DurationMs {
		remaining := p.DurationMs - cursor
		clipDuration := minClipMs
		if maxSpan := 3000 - minClipMs; maxSpan > 0 {
			clipDuration = minClipMs + p.RNG.Intn(maxSpan+1)
		}
		if clipDuration > remaining {
			clipDuration = remaining
		}

		// Tail lookahead: avoid leaving an unformable (0,800)ms sliver.
		if tail := remaining - clipDuration; tail > 0 && tail < 800 {
			if remaining <= 3000 {
				clipDuration = remaining
			} else {
				clipDuration = remaining - 800
			}
		}

		keyword := p.Keywords[keywordIdx%len(p.Keywords)]
		keywordIdx++

		clip, err := selectAsset(ctx, p, keyword, previousClipID, allowReuse)
		if err != nil {
			return nil, err
		}

		clip.StartMs = cursor
		clip.EndMs = cursor + clipDuration
		clip.Keyword = keyword
		clip.Transform = randomTransform(p.RNG)
		clips = append(clips, clip)

		p.Cache.MarkUsed(clip.ClipID)
		previousClipID = clip.ClipID
		cursor += clipDuration
	}

	return clips, nil
}

// selectAsset runs the L1-L4 fallback layers of §4.6 in order.
func selectAsset(ctx context.Context, p VisualTimelineParams, keyword, previousClipID string, allowReuse bool) (model.VisualClip, error) {
	// L1: exact keyword cache, prefer unused.
	if clip, ok := pickUnused(p.Cache, p.Cache.CandidatesFor(keyword)); ok {
		return resolveClip(ctx, p, clip, false)
	}

	// L2: generic broad fallback catalog.
	fallbackClips, err := p.Provider.Search(ctx, keyword, true)
	if err == nil {
		if clip, ok := pickUnused(p.Cache, fallbackClips); ok {
			p.Cache.PutSearchResults(keyword, append(p.Cache.CandidatesFor(keyword), fallbackClips...))
			return resolveClip(ctx, p, clip, false)
		}
	}

	// L3: nuclear scan of the entire database for any unused asset.
	if clip, ok := pickUnused(p.Cache, p.Cache.AllCandidates()); ok {
		return resolveClip(ctx, p, clip, false)
	}

	// L4: reuse, if permitted.
	if allowReuse {
		for _, clip := range p.Cache.AllCandidates() {
			if clip.ID != previousClipID {
				return resolveClip(ctx, p, clip, true)
			}
		}
	}

	return model.VisualClip{}, apperrors.Newf(apperrors.AssetShortage, "visual_timeline",
		"no asset available for keyword %q (allow_reuse=%v)", keyword, allowReuse)
}

func pickUnused(cache *services.AssetCache, candidates []services.StockClip) (services.StockClip, bool) {
	for _, c := range candidates {
		if !cache.IsUsed(c.ID) {
			return c, true
		}
	}
	return services.StockClip{}, false
}

func resolveClip(ctx context.Context, p VisualTimelineParams, sc services.StockClip, reused bool) (model.VisualClip, error) {
	localPath, err := p.Cache.ResolveLocal(ctx, p.Provider, sc)
	if err != nil {
		return model.VisualClip{}, apperrors.New(apperrors.AssetShortage, "visual_timeline", err)
	}
	provider := "pexels"
	if strings.HasPrefix(sc.ID, "mock-") {
		provider = "mock"
	}
	return model.VisualClip{
		ClipID:    sc.ID,
		Provider:  provider,
		LocalPath: localPath,
		Reused:    reused,
	}, nil
}

var zoomChoices = []float64{1.0, 1.05, 1.10}

func randomTransform(rng *rand.Rand) model.Transform {
	t := model.Transform{Zoom: 1.0, Pan: model.PanNone}
	if rng.Intn(2) == 0 {
		// 50% chance of a non-default zoom.
		nonDefault := zoomChoices[1+rng.Intn(len(zoomChoices)-1)]
		t.Zoom = nonDefault
	}
	if rng.Intn(2) == 0 {
		t.Pan = model.Pans[1+rng.Intn(len(model.Pans)-1)]
	}
	return t
}

// ValidateVisualTimeline enforces the coverage invariants I3: contiguous,
// each clip in [800,3000]ms, and coverage of [0,duration_ms] within a
// 200ms tail.
func ValidateVisualTimeline(clips []model.VisualClip, durationMs int) []string {
	var reasons []string
	cursor := 0
	for i, c := range clips {
		if c.StartMs != cursor {
			reasons = append(reasons, fmt.Sprintf("clip %d starts at %dms, expected %dms", i, c.StartMs, cursor))
		}
		span := c.EndMs - c.StartMs
		if span < 800 || span > 3000 {
			reasons = append(reasons, fmt.Sprintf("clip %d duration %dms outside [800,3000]", i, span))
		}
		cursor = c.EndMs
	}
	if tail := durationMs - cursor; tail < -200 || tail > 200 {
		reasons = append(reasons, fmt.Sprintf("coverage tail %dms exceeds 200ms tolerance", tail))
	}
	return reasons
}

// VisualTimelineBuilder wraps BuildVisualTimeline as a cor.Command. It does
// not retry itself: a failure here is recorded on the context, and the
// Scene Processor, which allows up to 2 attempts (§4.8), decides whether to
// run it again. One builder is shared across every scene's goroutine in
// a job's fan-out (§10.6), so rng and previousClipID are guarded by mu:
// neither math/rand.Rand nor a bare string field tolerates concurrent
// access.
type VisualTimelineBuilder struct {
	cor.BaseCommand
	provider       services.StockProvider
	cache          *services.AssetCache
	mu             sync.Mutex
	rng            *rand.Rand
	previousClipID string
}

func NewVisualTimelineBuilder(provider services.StockProvider, cache *services.AssetCache, rng *rand.Rand) *VisualTimelineBuilder {
	return &VisualTimelineBuilder{
		BaseCommand: *cor.NewBaseCommand("visual_timeline_builder"),
		provider:    provider,
		cache:       cache,
		rng:         rng,
	}
}

// VisualTimelineInput bundles one scene's visual search keywords and target
// duration for the builder command.
type VisualTimelineInput struct {
	Keywords   []string
	DurationMs int
}

func (b *VisualTimelineBuilder) Execute(ctx cor.Context) {
	in, ok := ctx.Get(b.GetInputParam()).(VisualTimelineInput)
	if !ok {
		ctx.AddError(b.GetName(), apperrors.Newf(apperrors.AssetShortage, b.GetName(), "no visual timeline input in context"))
		return
	}

	if err := PrefetchKeywords(ctx.GetContext(), b.provider, b.cache, in.Keywords); err != nil {
		ctx.AddError(b.GetName(), apperrors.New(apperrors.AssetShortage, b.GetName(), err))
		return
	}

	b.mu.Lock()
	clips, err := BuildVisualTimeline(ctx.GetContext(), VisualTimelineParams{
		Keywords:       in.Keywords,
		DurationMs:     in.DurationMs,
		Cache:          b.cache,
		Provider:       b.provider,
		RNG:            b.rng,
		PreviousClipID: b.previousClipID,
	})
	if err == nil && len(clips) > 0 {
		b.previousClipID = clips[len(clips)-1].ClipID
	}
	b.mu.Unlock()
	if err != nil {
		ctx.AddError(b.GetName(), err)
		return
	}

	if reasons := ValidateVisualTimeline(clips, in.DurationMs); len(reasons) > 0 {
		ctx.AddError(b.GetName(), apperrors.Newf(apperrors.GateReject, b.GetName(), "%v", reasons))
		return
	}
	ctx.Add(b.GetOutputParam(), clips)
}
