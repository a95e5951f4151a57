package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/genshorts/genshorts/internal/apperrors"
	"github.com/genshorts/genshorts/internal/core/model"
)

// SecondaryOracle calls an OpenAI-chat-completions-compatible endpoint
// (Groq, by default) as the fallback when every primary Gemini key is
// exhausted. It is a plain bearer-token JSON adapter, not an SDK client,
// the same shape as this pipeline's other third-party HTTP integrations.
type SecondaryOracle struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewSecondaryOracle returns nil if apiKey is empty, so callers can
// unconditionally pass the result to NewOracle without a separate
// "secondary enabled" flag.
func NewSecondaryOracle(apiKey, modelName, baseURL string) *SecondaryOracle {
	if apiKey == "" {
		return nil
	}
	return &SecondaryOracle{
		apiKey:  apiKey,
		model:   modelName,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *responseFmt  `json:"response_format,omitempty"`
	Temperature    float32       `json:"temperature"`
}

type responseFmt struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const (
	secondaryMaxRetries    = 2
	secondaryBaseBackoffMs = 500
)

// GenerateScript sends prompt to the configured chat-completions endpoint
// and parses the reply into a Script, mirroring GenerateScript's contract on
// the primary oracle so callers can treat both uniformly. Transport and
// non-2xx failures are retried with the same exponential-backoff-with-jitter
// policy the primary Gemini adapter uses; a malformed response body is not,
// since a retry is unlikely to fix the model's own output.
func (s *SecondaryOracle) GenerateScript(ctx context.Context, prompt, topic string, tone model.Tone) (*model.Script, error) {
	var lastErr error
	for attempt := 0; attempt <= secondaryMaxRetries; attempt++ {
		script, err, retriable := s.attemptGenerateScript(ctx, prompt, topic, tone)
		if err == nil {
			return script, nil
		}
		lastErr = err
		if !retriable || attempt == secondaryMaxRetries {
			break
		}
		select {
		case <-time.After(jitteredBackoff(secondaryBaseBackoffMs, attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (s *SecondaryOracle) attemptGenerateScript(ctx context.Context, prompt, topic string, tone model.Tone) (*model.Script, error, bool) {
	body := chatCompletionRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You write short-form video narration scripts and respond with strictly valid JSON."},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &responseFmt{Type: "json_object"},
		Temperature:    0.9,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.New(apperrors.ParseError, "oracle_secondary", fmt.Errorf("marshal request: %w", err)), false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.New(apperrors.OracleRetriable, "oracle_secondary", fmt.Errorf("build request: %w", err)), true
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.OracleRetriable, "oracle_secondary", fmt.Errorf("do request: %w", err)), true
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.New(apperrors.OracleRetriable, "oracle_secondary", fmt.Errorf("read response: %w", err)), true
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.OracleRetriable, "oracle_secondary",
			fmt.Errorf("status %d: %s", resp.StatusCode, redactSecrets(string(raw)))), true
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		return nil, apperrors.New(apperrors.ParseError, "oracle_secondary", fmt.Errorf("decode chat completion: %w", err)), false
	}

	var script model.Script
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &script); err != nil {
		return nil, apperrors.New(apperrors.ParseError, "oracle_secondary", fmt.Errorf("parse script JSON: %w", err)), false
	}
	if script.Topic == "" {
		script.Topic = topic
	}
	if script.Tone == "" {
		script.Tone = tone
	}
	return &script, nil, false
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+[a-z0-9._-]+`),
	regexp.MustCompile(`(?i)"?api_key"?\s*[:=]\s*"?[a-z0-9._-]+"?`),
	regexp.MustCompile(`(?i)authorization"?\s*[:=]\s*"?[a-z0-9._-]+"?`),
}

// redactSecrets scrubs an upstream error body before it is wrapped into an
// error that might end up in logs, since a 401/403 body from a
// bearer-token API can echo the offending header back.
func redactSecrets(s string) string {
	for _, p := range secretPatterns {
		s = p.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}
