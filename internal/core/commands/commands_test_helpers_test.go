package commands_test

import (
	"context"

	"github.com/genshorts/genshorts/internal/core/cor"
)

// newCommandContext builds a cor.Context with value placed under the
// default input key, ready to hand to a single command's Execute.
func newCommandContext(value interface{}) cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, value)
	return ctx
}
