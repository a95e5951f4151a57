package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/metric"

	"github.com/BurntSushi/toml"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName   = ".env"
	ConfigFileExtension  = ".toml"
	ConfigSeparator      = "."
	EnvConfigFilePrefix  = "GENSHORTS_CONFIG_PREFIX"
	EnvConfigRuntime     = "GENSHORTS_RUNTIME"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig hierarchically loads TOML configuration into baseConfig: a base
// file, then an environment-specific overlay, both optional, both resolved
// relative to EnvConfigFilePrefix. Unlike the teacher's LoadConfig, it does
// not dump the process environment to the log — doing so for this service
// would print API keys (GEMINI_API_KEY, GROQ_API_KEY, ...) in plaintext.
func LoadConfig(baseConfig interface{}) error {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if prefix == "" {
		prefix = "configs"
	}
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}

	runtimeEnv := os.Getenv(EnvConfigRuntime)
	if runtimeEnv == "" {
		runtimeEnv = "local"
	}

	baseConfigFileName := prefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := prefix + ConfigFileBaseName + ConfigSeparator + runtimeEnv + ConfigFileExtension

	if fileExists(baseConfigFileName) {
		if _, err := toml.DecodeFile(baseConfigFileName, baseConfig); err != nil {
			return fmt.Errorf("failed to decode base configuration file %s: %w", baseConfigFileName, err)
		}
	}
	if fileExists(envConfigFileName) {
		if _, err := toml.DecodeFile(envConfigFileName, baseConfig); err != nil {
			return fmt.Errorf("failed to decode environment configuration file %s: %w", envConfigFileName, err)
		}
	}
	slog.Info("configuration loaded", "base", baseConfigFileName, "overlay", envConfigFileName, "runtime", runtimeEnv)
	return nil
}

// GenerateTextResponse calls model once (the quota-aware wrapper already
// retries internally per §4.2) and returns the concatenated candidate text
// with the ```json fence, if any, trimmed off. Token counts are recorded on
// the supplied OTel counters.
func GenerateTextResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	model *QuotaAwareGenerativeAIModel,
	content []*genai.Content,
) (string, error) {
	resp, err := model.GenerateContent(ctx, content)
	if err != nil {
		return "", err
	}

	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	value := sb.String()
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimPrefix(value, "```")
	value = strings.TrimSuffix(value, "```")
	return strings.TrimSpace(value), nil
}

// NewTextContent builds a single-part user-role genai.Content from a prompt
// string, the shape every oracle call in this package sends.
func NewTextContent(prompt string) []*genai.Content {
	return []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}
}
