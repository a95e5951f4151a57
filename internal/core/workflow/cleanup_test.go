package workflow_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genshorts/genshorts/internal/core/cor"
	"github.com/genshorts/genshorts/internal/core/services"
	"github.com/genshorts/genshorts/internal/core/workflow"
)

func touchAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now().Add(-age), time.Now().Add(-age)))
}

func TestCleanupSweepPreservesMarkedJobDeletesAged(t *testing.T) {
	dir := t.TempDir()
	markedPath := filepath.Join(dir, "job-marked.mp4")
	agedPath := filepath.Join(dir, "job-unrelated.mp4")
	freshPath := filepath.Join(dir, "job-fresh.mp4")

	touchAged(t, markedPath, 40*24*time.Hour)
	touchAged(t, agedPath, 40*24*time.Hour)
	touchAged(t, freshPath, time.Hour)

	marks, err := services.NewMarkStore(filepath.Join(t.TempDir(), "marks.json"))
	require.NoError(t, err)
	require.NoError(t, marks.Mark("job-marked"))

	sweep := workflow.NewCleanupSweep([]string{dir}, 30, marks)
	sweep.Execute(cor.NewBaseContext())

	_, err = os.Stat(markedPath)
	assert.NoError(t, err, "marked job's file should survive")

	_, err = os.Stat(agedPath)
	assert.True(t, os.IsNotExist(err), "unrelated aged file should be deleted")

	_, err = os.Stat(freshPath)
	assert.NoError(t, err, "fresh file should survive regardless of mark state")
}

func TestCleanupSweepPreservesActiveJobFiles(t *testing.T) {
	dir := t.TempDir()
	activePath := filepath.Join(dir, "job-active.mp4")
	touchAged(t, activePath, 40*24*time.Hour)

	marks, err := services.NewMarkStore(filepath.Join(t.TempDir(), "marks.json"))
	require.NoError(t, err)

	sweep := workflow.NewCleanupSweep([]string{dir}, 30, marks)
	sweep.SetActiveJobs([]string{"job-active"})
	sweep.Execute(cor.NewBaseContext())

	_, err = os.Stat(activePath)
	assert.NoError(t, err, "file for a currently running job should survive even if aged")
}

func TestCleanupSweepSkipsMissingDirectoryWithoutError(t *testing.T) {
	marks, err := services.NewMarkStore(filepath.Join(t.TempDir(), "marks.json"))
	require.NoError(t, err)

	sweep := workflow.NewCleanupSweep([]string{filepath.Join(t.TempDir(), "does-not-exist")}, 30, marks)
	ctx := cor.NewBaseContext()
	assert.NotPanics(t, func() { sweep.Execute(ctx) })
	assert.False(t, ctx.HasErrors())
}
