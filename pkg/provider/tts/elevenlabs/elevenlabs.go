// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// single-shot synthesis endpoint. It implements the tts.Provider interface.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MrWong99/intervox/pkg/provider/tts"
)

const (
	synthesisEndpointFmt = "https://api.elevenlabs.io/v1/text-to-speech/%s"
	defaultModel         = "eleven_flash_v2_5"
	defaultVoiceID       = "21m00Tcm4TlvDq8ikWAM"
	contentTypeMP3       = "audio/mpeg"
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithVoice sets the provider-specific voice identifier.
func WithVoice(voiceID string) Option {
	return func(p *Provider) { p.voiceID = voiceID }
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements tts.Provider backed by the ElevenLabs API.
type Provider struct {
	apiKey     string
	model      string
	voiceID    string
	httpClient *http.Client
}

var _ tts.Provider = (*Provider)(nil)

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		voiceID:    defaultVoiceID,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// synthesisRequest is the JSON body sent to ElevenLabs.
type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize renders text with the configured voice and returns MP3 audio.
func (p *Provider) Synthesize(ctx context.Context, text string) (*tts.Clip, error) {
	if text == "" {
		return nil, errors.New("elevenlabs: text must not be empty")
	}

	body, err := json.Marshal(synthesisRequest{Text: text, ModelID: p.model})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	url := fmt.Sprintf(synthesisEndpointFmt, p.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", contentTypeMP3)
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs: synthesize: status %d: %s", resp.StatusCode, msg)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs: empty audio response")
	}
	return &tts.Clip{Audio: audio, ContentType: contentTypeMP3}, nil
}
