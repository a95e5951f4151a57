package services_test

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genshorts/genshorts/internal/core/services"
)

func TestSilentWAVSynthesizerWritesValidHeader(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "silence.wav")
	synth := services.NewSilentWAVSynthesizer()

	require.NoError(t, synth.Synthesize("anything", 1000, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 44)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "data", string(data[36:40]))

	dataSize := binary.LittleEndian.Uint32(data[40:44])
	assert.Equal(t, uint32(16000*2), dataSize) // 1000ms at 16kHz mono 16-bit
	assert.Len(t, data, 44+int(dataSize))
}

type failingSynthesizer struct{}

func (failingSynthesizer) Synthesize(text string, durationMs int, destPath string) error {
	return errors.New("boom")
}

func TestChainSynthesizerFallsThroughOnFailure(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.wav")
	chain := services.NewChainSynthesizer(failingSynthesizer{}, services.NewSilentWAVSynthesizer())

	require.NoError(t, chain.Synthesize("hello", 500, dest))
	_, err := os.Stat(dest)
	assert.NoError(t, err)
}

func TestChainSynthesizerReturnsErrorWhenAllFail(t *testing.T) {
	chain := services.NewChainSynthesizer(failingSynthesizer{}, failingSynthesizer{})
	err := chain.Synthesize("hello", 500, filepath.Join(t.TempDir(), "out.wav"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
