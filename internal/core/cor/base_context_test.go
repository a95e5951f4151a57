package cor_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genshorts/genshorts/internal/core/cor"
)

func TestBaseContextAddGetRemove(t *testing.T) {
	ctx := cor.NewBaseContext()
	ctx.Add("key", "value")
	assert.Equal(t, "value", ctx.Get("key"))

	ctx.Remove("key")
	assert.Nil(t, ctx.Get("key"))
}

func TestBaseContextErrorsLifecycle(t *testing.T) {
	ctx := cor.NewBaseContext()
	assert.False(t, ctx.HasErrors())

	ctx.AddError("stage_a", errors.New("boom"))
	assert.True(t, ctx.HasErrors())
	assert.Len(t, ctx.GetErrors(), 1)

	ctx.RemoveError("stage_a")
	assert.False(t, ctx.HasErrors())
	assert.Empty(t, ctx.GetErrors())
}

func TestBaseContextRemoveErrorOnlyAffectsNamedKey(t *testing.T) {
	ctx := cor.NewBaseContext()
	ctx.AddError("stage_a", errors.New("a failed"))
	ctx.AddError("stage_b", errors.New("b failed"))

	ctx.RemoveError("stage_a")
	errs := ctx.GetErrors()
	assert.Len(t, errs, 1)
	assert.Contains(t, errs, "stage_b")
}

func TestBaseContextCloseRemovesTempFiles(t *testing.T) {
	ctx := cor.NewBaseContext()
	path := filepath.Join(t.TempDir(), "temp.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ctx.AddTempFile(path)
	assert.Equal(t, []string{path}, ctx.GetTempFiles())

	ctx.Close()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
