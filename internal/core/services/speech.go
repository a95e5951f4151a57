package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"
)

// ElevenLabsSynthesizer calls the ElevenLabs text-to-speech REST API and
// writes the returned audio bytes to disk. It is the premium path of the
// Audio Timing Synth's synthesis fallback chain (§4.4).
type ElevenLabsSynthesizer struct {
	apiKey  string
	voiceID string
	client  *http.Client
}

func NewElevenLabsSynthesizer(apiKey, voiceID string) *ElevenLabsSynthesizer {
	return &ElevenLabsSynthesizer{apiKey: apiKey, voiceID: voiceID, client: &http.Client{Timeout: 30 * time.Second}}
}

func (e *ElevenLabsSynthesizer) Synthesize(text string, durationMs int, destPath string) error {
	url := fmt.Sprintf("https://api.elevenlabs.io/v1/text-to-speech/%s", e.voiceID)
	payload := fmt.Sprintf(`{"text":%q,"model_id":"eleven_monolingual_v1"}`, text)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader([]byte(payload)))
	if err != nil {
		return fmt.Errorf("build elevenlabs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("elevenlabs status %d: %s", resp.StatusCode, redactSecrets(string(body)))
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}

// SystemVoiceSynthesizer shells out to a local text-to-speech CLI (the
// Linux/macOS analogue of the source's Windows SAPI fallback) when one is
// present on PATH. binary is invoked as `binary -w destPath text`, the
// command line of "espeak-ng".
type SystemVoiceSynthesizer struct {
	binary string
}

func NewSystemVoiceSynthesizer(binary string) *SystemVoiceSynthesizer {
	return &SystemVoiceSynthesizer{binary: binary}
}

func (s *SystemVoiceSynthesizer) Synthesize(text string, durationMs int, destPath string) error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return fmt.Errorf("system voice binary %q not found: %w", s.binary, err)
	}
	cmd := exec.CommandContext(context.Background(), s.binary, "-w", destPath, text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", s.binary, err, out)
	}
	return nil
}

// SilentWAVSynthesizer is the last-resort fallback: it always succeeds,
// writing a valid 16kHz mono 16-bit PCM WAV of silence lasting durationMs.
// The timing model's word timestamps remain authoritative regardless of
// which synthesis path produced the audio file.
type SilentWAVSynthesizer struct{}

func NewSilentWAVSynthesizer() *SilentWAVSynthesizer { return &SilentWAVSynthesizer{} }

const wavSampleRate = 16000

func (SilentWAVSynthesizer) Synthesize(text string, durationMs int, destPath string) error {
	numSamples := (durationMs * wavSampleRate) / 1000
	dataSize := numSamples * 2 // 16-bit mono

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer f.Close()

	if err := writeWAVHeader(f, dataSize); err != nil {
		return err
	}
	zeros := make([]byte, dataSize)
	_, err = f.Write(zeros)
	return err
}

func writeWAVHeader(w io.Writer, dataSize int) error {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))        // subchunk1 size
	binary.Write(&buf, binary.LittleEndian, uint16(1))         // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))         // mono
	binary.Write(&buf, binary.LittleEndian, uint32(wavSampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(wavSampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))         // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))        // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	_, err := w.Write(buf.Bytes())
	return err
}

// ChainSynthesizer tries each synthesizer in order, falling through to the
// next on failure, so the silent-WAV fallback always produces a usable
// file even when every network-backed provider is unavailable.
type ChainSynthesizer struct {
	chain []interface {
		Synthesize(text string, durationMs int, destPath string) error
	}
}

func NewChainSynthesizer(synths ...interface {
	Synthesize(text string, durationMs int, destPath string) error
}) *ChainSynthesizer {
	return &ChainSynthesizer{chain: synths}
}

func (c *ChainSynthesizer) Synthesize(text string, durationMs int, destPath string) error {
	var lastErr error
	for _, s := range c.chain {
		if err := s.Synthesize(text, durationMs, destPath); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("every synthesizer failed, last error: %w", lastErr)
}
