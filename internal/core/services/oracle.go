package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"text/template"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/genshorts/genshorts/internal/apperrors"
	"github.com/genshorts/genshorts/internal/cloud"
	"github.com/genshorts/genshorts/internal/core/model"
)

// scriptPromptTemplate is the Go template used to build the narration-script
// generation prompt, in the same templated-few-shot style as the teacher's
// media-summary prompt: an example of the desired JSON shape is embedded
// directly in the instructions.
var scriptPromptTemplate = template.Must(template.New("script").Parse(
	`Write a {{.DurationSeconds}}-second vertical short-form video script about "{{.Topic}}" in a {{.Tone}} tone.

The script has exactly 7 scenes in this fixed order: hook, body_1, body_2,
body_3, body_4, body_5, ending. The hook must be 12 words or fewer, must NOT
contain the phrases "did you know", "in this video", "let's talk about", or
"you won't believe", and must create curiosity — for example by contrasting
a common assumption with a surprising truth, or by promising a detail nobody
mentions. The ending must be 8 words or fewer.

For each scene, also provide 2-4 short visual search keywords.

Respond with strictly valid JSON (no markdown fences) matching exactly:
{"topic": "...", "tone": "...", "scenes": [{"type": "hook", "text": "...", "keywords": ["..."]}, ...]}

Example: {{.ExampleJSON}}`,
))

// Oracle is the LLM Oracle Adapter (§4.2). It owns the primary Gemini
// key-rotation pool and falls back to a secondary HTTP oracle, and finally
// to a deterministic canned script, when every retry and rotation fails.
type Oracle struct {
	primaryModels   []*cloud.QuotaAwareGenerativeAIModel
	secondary       *SecondaryOracle
	inputTokens     metric.Int64Counter
	outputTokens    metric.Int64Counter
	rotationCounter metric.Int64Counter
	allowFallback   bool
}

// NewOracle wires the Gemini key pool and the secondary oracle. meter may be
// nil in tests, in which case the returned counters are no-ops.
func NewOracle(primaryModels []*cloud.QuotaAwareGenerativeAIModel, secondary *SecondaryOracle, meter metric.Meter) *Oracle {
	o := &Oracle{primaryModels: primaryModels, secondary: secondary, allowFallback: true}
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("oracle")
	}
	o.inputTokens, _ = meter.Int64Counter("oracle.gemini.token.input")
	o.outputTokens, _ = meter.Int64Counter("oracle.gemini.token.output")
	o.rotationCounter, _ = meter.Int64Counter("oracle.gemini.key_rotation")
	return o
}

type scriptPromptParams struct {
	Topic           string
	DurationSeconds int
	Tone            model.Tone
	ExampleJSON     string
}

// GenerateScript produces a Script for topic/duration/tone. It tries every
// configured Gemini key in rotation order (retrying each with the
// exponential-backoff policy inside QuotaAwareGenerativeAIModel), then the
// secondary oracle, then falls back to a deterministic canned skeleton.
func (o *Oracle) GenerateScript(ctx context.Context, topic string, durationSeconds int, tone model.Tone) (*model.Script, error) {
	example, _ := json.Marshal(model.GetFallbackScript(topic, tone))
	params := scriptPromptParams{Topic: topic, DurationSeconds: durationSeconds, Tone: tone, ExampleJSON: string(example)}

	var buf bytes.Buffer
	if err := scriptPromptTemplate.Execute(&buf, params); err != nil {
		return nil, apperrors.New(apperrors.ParseError, "oracle", fmt.Errorf("render prompt: %w", err))
	}
	prompt := buf.String()

	for i, qam := range o.primaryModels {
		script, err := o.tryGemini(ctx, qam, prompt, topic, tone)
		if err == nil {
			return script, nil
		}
		if i < len(o.primaryModels)-1 && o.rotationCounter != nil {
			o.rotationCounter.Add(ctx, 1)
		}
	}

	if o.secondary != nil {
		script, err := o.secondary.GenerateScript(ctx, prompt, topic, tone)
		if err == nil {
			return script, nil
		}
	}

	if o.allowFallback {
		return model.GetFallbackScript(topic, tone), nil
	}
	return nil, apperrors.New(apperrors.OracleFatal, "oracle", fmt.Errorf("all providers exhausted for topic %q", topic))
}

func (o *Oracle) tryGemini(ctx context.Context, qam *cloud.QuotaAwareGenerativeAIModel, prompt, topic string, tone model.Tone) (*model.Script, error) {
	text, err := cloud.GenerateTextResponse(ctx, o.inputTokens, o.outputTokens, qam, cloud.NewTextContent(prompt))
	if err != nil {
		return nil, apperrors.New(apperrors.OracleRetriable, "oracle", err)
	}

	var script model.Script
	if err := json.Unmarshal([]byte(text), &script); err != nil {
		return nil, apperrors.New(apperrors.ParseError, "oracle", fmt.Errorf("parse gemini response: %w", err))
	}
	if script.Topic == "" {
		script.Topic = topic
	}
	if script.Tone == "" {
		script.Tone = tone
	}
	return &script, nil
}

// jitteredBackoff mirrors the adapter-level retry formula (§4.2) for
// callers that need to pace calls outside QuotaAwareGenerativeAIModel, such
// as the secondary oracle's own retry loop.
func jitteredBackoff(baseMs int, attempt int) time.Duration {
	delay := time.Duration(baseMs) * time.Millisecond * time.Duration(uint(1)<<uint(attempt))
	return delay + time.Duration(rand.Intn(500))*time.Millisecond
}
