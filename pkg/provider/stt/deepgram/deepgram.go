// Package deepgram provides a Deepgram-backed recognizer using the Deepgram
// streaming WebSocket API. It implements the stt.Provider interface by
// streaming the whole recording, closing the stream, and collecting the
// final results.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/coder/websocket"

	"github.com/MrWong99/intervox/pkg/provider/stt"
)

const (
	deepgramEndpoint = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-3"
	defaultLanguage  = "en"

	// sendChunkBytes is the slice size used when streaming the recording.
	// Deepgram recommends ≤ 8 KiB frames for live endpoints.
	sendChunkBytes = 8192
)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en").
func WithLanguage(language string) Option {
	return func(p *Provider) { p.language = language }
}

// Provider implements stt.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey   string
	model    string
	language string
}

var _ stt.Provider = (*Provider)(nil)

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe streams the recording to Deepgram and returns the concatenated
// final transcript. The raw recorded bytes are submitted directly with their
// declared encoding; Deepgram handles channel downmixing server-side.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	wsURL, err := p.buildURL(req)
	if err != nil {
		return "", fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return "", fmt.Errorf("deepgram: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Stream the recording in live-sized slices, then ask Deepgram to flush.
	audio := req.Audio
	for len(audio) > 0 {
		n := min(sendChunkBytes, len(audio))
		if err := conn.Write(ctx, websocket.MessageBinary, audio[:n]); err != nil {
			return "", fmt.Errorf("deepgram: send audio: %w", err)
		}
		audio = audio[n:]
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		return "", fmt.Errorf("deepgram: close stream: %w", err)
	}

	// Collect final results until the server closes the connection.
	var parts []string
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.StatusNormalClosure {
				break
			}
			if ctx.Err() != nil {
				return "", fmt.Errorf("deepgram: read: %w", ctx.Err())
			}
			break
		}
		if text, ok := parseResult(msg); ok && text != "" {
			parts = append(parts, text)
		}
	}

	transcript := strings.TrimSpace(strings.Join(parts, " "))
	if transcript == "" {
		return "", fmt.Errorf("deepgram: %w", stt.ErrNoTranscript)
	}
	return transcript, nil
}

// buildURL constructs the Deepgram streaming endpoint URL for the request.
func (p *Provider) buildURL(req stt.Request) (string, error) {
	u, err := url.Parse(deepgramEndpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", p.language)
	q.Set("punctuate", "true")
	q.Set("interim_results", "false")
	if req.Encoding != "" {
		q.Set("encoding", req.Encoding)
	}
	if req.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(req.SampleRate))
	}
	if req.Channels > 0 {
		q.Set("channels", strconv.Itoa(req.Channels))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// deepgramResponse is the JSON structure of a Deepgram Results event.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// parseResult extracts the transcript from a final Results message.
// Returns ("", false) for messages that should be ignored.
func parseResult(data []byte) (string, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", false
	}
	if resp.Type != "Results" || !resp.IsFinal {
		return "", false
	}
	if len(resp.Channel.Alternatives) == 0 {
		return "", false
	}
	return strings.TrimSpace(resp.Channel.Alternatives[0].Transcript), true
}
