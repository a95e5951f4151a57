// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides application configuration and the service-client
// container wired up at process start.
//
// NewCloudServiceClients builds one genai.Client per configured Gemini API
// key, each wrapped in its own QuotaAwareGenerativeAIModel, so the LLM
// Oracle Adapter can move to the next key once one key's retries have all
// failed. The archival storage client is optional
// and only built when an archive bucket is configured.
package cloud

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// DefaultSafetySettings loosens the default Gemini safety thresholds for
// this pipeline's narration-script generation, which routinely discusses
// dramatic or unsettling topics as part of ordinary "did you know" content.
var DefaultSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
}

// ServiceClients is the dependency-injection container holding every
// external client the pipeline needs, built once at startup and threaded
// through the job pipeline instead of reached for via package globals.
type ServiceClients struct {
	StorageClient *storage.Client                  // nil unless Storage.ArchiveBucket is set.
	OracleModels  []*QuotaAwareGenerativeAIModel    // one per Oracle.GeminiAPIKeys entry, in rotation order.
}

// Close releases every client that owns a connection.
func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
}

// NewCloudServiceClients builds the clients this pipeline needs: one
// API-key-authenticated genai.Client per configured Gemini key (Gemini
// Developer API backend, not Vertex AI — this pipeline authenticates with
// GEMINI_API_KEY, not a GCP project/location pair), and an optional GCS
// client for archival uploads.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	clients := &ServiceClients{}

	if config.Storage.ArchiveBucket != "" {
		sc, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		clients.StorageClient = sc
	}

	if config.Oracle.GeminiEnabled {
		systemInstruction := &genai.Content{Parts: []*genai.Part{
			{Text: "You write short, punchy narration scripts for vertical short-form video."},
		}}

		for i, key := range config.Oracle.GeminiAPIKeys {
			if key == "" {
				continue
			}
			gc, err := genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  key,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				return nil, fmt.Errorf("create genai client for key %d: %w", i, err)
			}

			genConfig := &genai.GenerateContentConfig{
				Temperature:       genai.Ptr[float32](0.9),
				TopP:              genai.Ptr[float32](0.95),
				SystemInstruction: systemInstruction,
				SafetySettings:    DefaultSafetySettings,
				ResponseMIMEType:  "application/json",
			}

			minInterval := config.Oracle.GeminiMinIntervalMs
			wrapped := NewQuotaAwareModel(
				genConfig,
				config.Oracle.GeminiModel,
				gc.Models,
				msToDuration(minInterval),
				config.Oracle.MaxRetries,
				config.Oracle.BaseBackoffMs,
			)
			clients.OracleModels = append(clients.OracleModels, wrapped)
		}
	}

	return clients, nil
}
