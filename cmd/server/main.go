// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command server is the entry point for the short-form video generation
// backend: it loads configuration, wires every service and the job
// pipeline, starts the bounded worker pool and the cleanup sweep, and
// serves the HTTP API (§6) until it receives a shutdown signal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/genshorts/genshorts/internal/cloud"
	"github.com/genshorts/genshorts/internal/core/commands"
	"github.com/genshorts/genshorts/internal/core/services"
	"github.com/genshorts/genshorts/internal/core/workflow"
	"github.com/genshorts/genshorts/internal/httpapi"
	"github.com/genshorts/genshorts/internal/telemetry"
	"github.com/genshorts/genshorts/internal/worker"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := loadConfig()
	applyEnvOverrides(config)

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("failed to set up telemetry", "error", err)
		log.Fatal(err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	for _, dir := range []string{
		config.Storage.AssetsAudioDir,
		config.Storage.AssetsClipsDir,
		config.Storage.TempOutputDir,
		config.Storage.TempRenderDir,
		config.Storage.CacheRenderDir,
		config.Storage.OutputDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create storage directory", "dir", dir, "error", err)
			log.Fatal(err)
		}
	}

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		slog.Error("failed to initialize cloud clients", "error", err)
		log.Fatal(err)
	}
	defer cloudClients.Close()

	store := services.NewJobStore()
	marks, err := services.NewMarkStore(config.Storage.MarksFile)
	if err != nil {
		slog.Error("failed to load mark store", "error", err)
		log.Fatal(err)
	}

	secondary := services.NewSecondaryOracle(config.Oracle.GroqAPIKey, config.Oracle.GroqModel, config.Oracle.GroqBaseURL)
	meter := otel.Meter("github.com/genshorts/genshorts/oracle")
	oracle := services.NewOracle(cloudClients.OracleModels, secondary, meter)

	provider := stockProvider(config)
	cache := services.NewAssetCache(config.Storage.AssetsClipsDir)
	voice := voiceSynthesizer(config)

	pipeline := workflow.NewJobPipeline(
		oracle,
		provider,
		cache,
		voice,
		config.Render.FFmpegPath,
		config.Storage.TempRenderDir,
		config.Storage.OutputDir,
		config.Storage.AssetsAudioDir,
	)

	pool := worker.New(store, pipeline, config.Worker.MaxConcurrentJobs)
	pool.Start(ctx)
	slog.Info("worker pool started", "max_concurrent_jobs", config.Worker.MaxConcurrentJobs)

	sweepDirs := []string{
		config.Storage.AssetsAudioDir,
		config.Storage.TempOutputDir,
		config.Storage.TempRenderDir,
		config.Storage.CacheRenderDir,
	}
	sweep := workflow.NewCleanupSweep(sweepDirs, config.Retention.MaxAgeDays, marks)
	sweep.StartTimer(time.Duration(config.Retention.SweepIntervalH) * time.Hour)

	router := httpapi.NewRouter(httpapi.Deps{
		Store:  store,
		Marks:  marks,
		Assets: config.Storage.AssetsClipsDir,
		Output: config.Storage.OutputDir,
		Cache:  config.Storage.CacheRenderDir,
	})

	addr := fmt.Sprintf(":%d", config.Application.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			if isAddrInUse(err) {
				slog.Error("port already in use", "addr", addr, "error", err)
				os.Exit(1)
			}
			slog.Error("server failed", "error", err)
			log.Fatal(err)
		}
	case <-awaitShutdownSignal():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	slog.Info("server exited")
}

func awaitShutdownSignal() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit
}

func isAddrInUse(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.EADDRINUSE)
}

func loadConfig() *cloud.Config {
	if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
		log.Fatalf("failed to set config prefix: %v", err)
	}
	runtimeEnv := os.Getenv(cloud.EnvConfigRuntime)
	if runtimeEnv == "" {
		runtimeEnv = "local"
		if err := os.Setenv(cloud.EnvConfigRuntime, runtimeEnv); err != nil {
			log.Fatalf("failed to set config runtime: %v", err)
		}
	}

	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	return config
}

// applyEnvOverrides layers the environment variables §6 recognizes on top
// of whatever the TOML files set, so a deployment can supply secrets
// (API keys) purely via environment without writing them to disk.
func applyEnvOverrides(config *cloud.Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Application.Port = port
		}
	}
	if v := os.Getenv("NODE_ENV"); v != "" {
		config.Application.NodeEnv = v
	}
	if v := os.Getenv("GEMINI_ENABLED"); v != "" {
		config.Oracle.GeminiEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("GEMINI_MIN_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			config.Oracle.GeminiMinIntervalMs = ms
		}
	}

	var keys []string
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		keys = append(keys, v)
	}
	for suffix := 2; suffix <= 5; suffix++ {
		if v := os.Getenv(fmt.Sprintf("GEMINI_API_KEY_%d", suffix)); v != "" {
			keys = append(keys, v)
		}
	}
	if len(keys) > 0 {
		config.Oracle.GeminiAPIKeys = keys
		config.Oracle.GeminiEnabled = true
	}

	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		config.Oracle.GroqAPIKey = v
	}
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		config.Speech.ElevenLabsAPIKey = v
	}
	if v := os.Getenv("PEXELS_API_KEY"); v != "" {
		config.StockFootage.PexelsAPIKey = v
	}
}

func stockProvider(config *cloud.Config) services.StockProvider {
	if config.StockFootage.PexelsAPIKey == "" {
		slog.Warn("no pexels api key configured, falling back to mock stock provider")
		return services.NewMockProvider(ensureMockPlaceholders(config.Storage.AssetsClipsDir))
	}
	return services.NewPexelsProvider(config.StockFootage.PexelsAPIKey, config.StockFootage.PexelsBaseURL)
}

// mockPlaceholderCount is the number of placeholder clip files created for
// the mock stock provider's bundled catalog (§11.4).
const mockPlaceholderCount = 3

// ensureMockPlaceholders makes sure a small fixed catalog of placeholder
// clip files exists under clipsDir/mock/, creating empty stand-ins on first
// run, and returns their paths for the mock provider to serve.
func ensureMockPlaceholders(clipsDir string) []string {
	dir := clipsDir + "/mock"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("failed to create mock placeholder directory", "dir", dir, "error", err)
		return nil
	}

	paths := make([]string, 0, mockPlaceholderCount)
	for i := 1; i <= mockPlaceholderCount; i++ {
		path := fmt.Sprintf("%s/placeholder_%d.mp4", dir, i)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if werr := os.WriteFile(path, []byte{}, 0o644); werr != nil {
				slog.Warn("failed to create mock placeholder file", "path", path, "error", werr)
				continue
			}
		}
		paths = append(paths, path)
	}
	return paths
}

// voiceSynthesizer builds the fallback chain of §4.4: ElevenLabs when
// configured, then a local TTS binary if one is on PATH, then silence so
// the pipeline always has a usable audio file to time captions against.
func voiceSynthesizer(config *cloud.Config) commands.VoiceSynthesizer {
	var chain []interface {
		Synthesize(text string, durationMs int, destPath string) error
	}
	if config.Speech.ElevenLabsAPIKey != "" {
		chain = append(chain, services.NewElevenLabsSynthesizer(config.Speech.ElevenLabsAPIKey, defaultElevenLabsVoiceID))
	} else {
		slog.Warn("no elevenlabs api key configured, narration falls back to system tts then silence")
	}
	chain = append(chain, services.NewSystemVoiceSynthesizer("espeak-ng"), services.NewSilentWAVSynthesizer())
	return services.NewChainSynthesizer(chain...)
}

// defaultElevenLabsVoiceID is ElevenLabs' stock "Rachel" voice, a
// reasonable default narration voice absent any per-job voice selection.
const defaultElevenLabsVoiceID = "21m00Tcm4TlvDq8ikWAM"
