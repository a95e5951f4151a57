// Package workflow composes the pipeline's cor.Command implementations into
// the scene-level and job-level chains, plus the background sweeps that run
// independently of any single job.
package workflow

import (
	goctx "context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/genshorts/genshorts/internal/core/cor"
	"github.com/genshorts/genshorts/internal/core/services"
)

// CleanupSweep is the Cleanup/Retention sweep of §4.11: it deletes files
// older than maxAge under every configured directory, unless a marked job
// ID appears as a substring of the filename.
type CleanupSweep struct {
	cor.BaseCommand
	dirs    []string
	maxAge  time.Duration
	marks   *services.MarkStore
	running map[string]bool // job IDs currently being processed; never swept
}

func NewCleanupSweep(dirs []string, maxAgeDays int, marks *services.MarkStore) *CleanupSweep {
	return &CleanupSweep{
		BaseCommand: *cor.NewBaseCommand("cleanup_sweep"),
		dirs:        dirs,
		maxAge:      time.Duration(maxAgeDays) * 24 * time.Hour,
		marks:       marks,
		running:     make(map[string]bool),
	}
}

// SetActiveJobs records which job IDs currently have a writer in flight,
// so the sweep never races an active job's output files.
func (c *CleanupSweep) SetActiveJobs(jobIDs []string) {
	running := make(map[string]bool, len(jobIDs))
	for _, id := range jobIDs {
		running[id] = true
	}
	c.running = running
}

func (c *CleanupSweep) IsExecutable(_ cor.Context) bool { return true }

func (c *CleanupSweep) Execute(ctx cor.Context) {
	marked := c.marks.Snapshot()
	now := time.Now()
	deleted := 0

	for _, dir := range c.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // directory not yet created is not an error worth recording.
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if isProtected(name, marked, c.running) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) <= c.maxAge {
				continue
			}
			path := filepath.Join(dir, name)
			if err := os.Remove(path); err != nil {
				slog.Warn("cleanup sweep failed to remove file", "path", path, "error", err)
				continue
			}
			deleted++
		}
	}
	slog.Info("cleanup sweep complete", "deleted", deleted)
}

func isProtected(filename string, markedIDs []string, running map[string]bool) bool {
	for _, id := range markedIDs {
		if strings.Contains(filename, id) {
			return true
		}
	}
	for id := range running {
		if strings.Contains(filename, id) {
			return true
		}
	}
	return false
}

// StartTimer runs the sweep immediately, then once every interval, mirroring
// the source's ticker-driven background job.
func (c *CleanupSweep) StartTimer(interval time.Duration) {
	tracer := otel.Tracer("cleanup-sweep")

	run := func() {
		traceCtx, span := tracer.Start(goctx.Background(), "cleanup-sweep")
		chainCtx := cor.NewBaseContext()
		chainCtx.SetContext(traceCtx)

		c.Execute(chainCtx)

		if chainCtx.HasErrors() {
			span.SetStatus(codes.Error, "cleanup sweep failed")
		} else {
			span.SetStatus(codes.Ok, "cleanup sweep succeeded")
		}
		span.End()
	}

	run()
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			run()
		}
	}()
}
