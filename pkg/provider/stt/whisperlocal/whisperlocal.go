// Package whisperlocal provides a recognizer backed by the whisper.cpp CGO
// bindings, so transcription keeps working with no remote credential at all.
// The whisper.cpp static library (libwhisper.a) and headers must be
// available at link time via LIBRARY_PATH and C_INCLUDE_PATH.
//
// The model is loaded once at startup and shared across all calls; each
// Transcribe creates its own whisper context, so concurrent calls are safe.
package whisperlocal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/intervox/pkg/audio"
	"github.com/MrWong99/intervox/pkg/provider/stt"
)

const defaultLanguage = "en"

// SampleRate is the only sample rate whisper.cpp accepts.
const SampleRate = 16000

// Option is a functional option for the Provider.
type Option func(*Provider)

// WithLanguage sets the language code for transcription (e.g., "en", "de").
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// Provider implements stt.Provider using a local whisper.cpp model.
type Provider struct {
	model    whisperlib.Model
	language string
}

var _ stt.Provider = (*Provider)(nil)

// New loads the whisper.cpp model from modelPath. The caller must call
// Close when the provider is no longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisperlocal: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisperlocal: load model %q: %w", modelPath, err)
	}
	p := &Provider{model: model, language: defaultLanguage}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe runs whisper.cpp inference over the recording. The input must
// already be mono 16-bit PCM at [SampleRate]; the transcription pipeline is
// responsible for the transcode.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisperlocal: %w", err)
	}
	if req.Encoding != stt.EncodingLinear16 {
		return "", fmt.Errorf("whisperlocal: unsupported encoding %q", req.Encoding)
	}
	if req.SampleRate != SampleRate || req.Channels > 1 {
		return "", fmt.Errorf("whisperlocal: input must be %d Hz mono, got %d Hz %d ch",
			SampleRate, req.SampleRate, req.Channels)
	}

	samples := audio.ToFloat32(req.Audio)
	if len(samples) == 0 {
		return "", fmt.Errorf("whisperlocal: %w", stt.ErrNoTranscript)
	}

	// Contexts are not thread-safe; the shared model is.
	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisperlocal: create context: %w", err)
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisperlocal: failed to set language, using default",
			"language", p.language, "error", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisperlocal: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisperlocal: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	transcript := strings.Join(parts, " ")
	if transcript == "" {
		return "", fmt.Errorf("whisperlocal: %w", stt.ErrNoTranscript)
	}
	return transcript, nil
}
