package cloud

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel decorates a single genai.Models handle (bound
// to one API key) with pacing and the spec's exponential-backoff-with-
// jitter retry policy (§4.2): baseDelay·2^attempt + [0,500)ms jitter, up to
// MaxRetries retries after the first attempt. Every error is retried the
// same way, whatever its status code: a 429 is backed off and retried on
// this key, and a non-429 4xx is retried as well. The LLM Oracle Adapter
// moves to the next key only after this wrapper has returned an error.
type QuotaAwareGenerativeAIModel struct {
	Config        *genai.GenerateContentConfig
	ModelName     string
	ModelHandle   *genai.Models
	RateLimit     *rate.Limiter
	MaxRetries    int
	BaseBackoffMs int
}

// NewQuotaAwareModel wraps handle/name in a quota-aware decorator. minInterval
// is the minimum spacing enforced between calls (§4.2's GEMINI_MIN_INTERVAL_MS).
func NewQuotaAwareModel(cfg *genai.GenerateContentConfig, name string, handle *genai.Models, minInterval time.Duration, maxRetries, baseBackoffMs int) *QuotaAwareGenerativeAIModel {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &QuotaAwareGenerativeAIModel{
		Config:        cfg,
		ModelName:     name,
		ModelHandle:   handle,
		RateLimit:     rate.NewLimiter(rate.Every(minInterval), 1),
		MaxRetries:    maxRetries,
		BaseBackoffMs: baseBackoffMs,
	}
}

// ErrRetriesExhausted is returned when GenerateContent makes no attempt at
// all (a negative MaxRetries). After failed attempts it returns the last
// attempt's error instead.
var ErrRetriesExhausted = errors.New("generative model: retries exhausted")

// GenerateContent enforces the pacing limiter, then calls the wrapped model,
// retrying every failure with exponential backoff and jitter. It never
// rotates keys itself; the caller constructs a fresh
// QuotaAwareGenerativeAIModel per key and moves to the next one when this
// call returns an error, whatever the error was.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= q.MaxRetries; attempt++ {
		if err := q.RateLimit.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.Config)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == q.MaxRetries {
			break
		}
		delay := time.Duration(q.BaseBackoffMs)*time.Millisecond*time.Duration(1<<uint(attempt)) + time.Duration(rand.Intn(500))*time.Millisecond
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrRetriesExhausted
}
