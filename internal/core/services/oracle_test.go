package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genshorts/genshorts/internal/core/model"
	"github.com/genshorts/genshorts/internal/core/services"
)

func TestOracleFallsBackToCannedScriptWithNoProviders(t *testing.T) {
	oracle := services.NewOracle(nil, nil, nil)

	script, err := oracle.GenerateScript(context.Background(), "coffee", 30, model.ToneInformative)
	require.NoError(t, err)
	require.NotNil(t, script)
	assert.True(t, script.Fallback)
	assert.Equal(t, "coffee", script.Topic)
	assert.Len(t, script.Scenes, 7)
}
