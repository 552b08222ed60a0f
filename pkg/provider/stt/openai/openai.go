// Package openai provides a recognizer backed by the OpenAI transcription
// API. It implements the stt.Provider interface by wrapping the recording in
// a WAV container and submitting it as a file upload; opus-framed recordings
// are decoded to PCM first.
package openai

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/intervox/pkg/audio"
	"github.com/MrWong99/intervox/pkg/provider/stt"
)

// DefaultModel is the default OpenAI transcription model.
const DefaultModel = "whisper-1"

// Option is a functional option for the Provider.
type Option func(*Provider)

// WithModel sets the transcription model (e.g., "whisper-1",
// "gpt-4o-mini-transcribe").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the default OpenAI API base URL, for compatible
// self-hosted endpoints.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// Provider implements stt.Provider using the OpenAI transcription endpoint.
type Provider struct {
	client  oai.Client
	model   string
	baseURL string
}

var _ stt.Provider = (*Provider)(nil)

// New constructs a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai stt: apiKey must not be empty")
	}
	p := &Provider{model: DefaultModel}
	for _, o := range opts {
		o(p)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if p.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(p.baseURL))
	}
	p.client = oai.NewClient(reqOpts...)
	return p, nil
}

// Transcribe uploads the recording and returns the transcript text. The
// transcription endpoint only takes containerised audio, so opus recordings
// are decoded to PCM before the WAV wrap.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	req, err := toLinear16(req)
	if err != nil {
		return "", err
	}

	wav := wavContainer(req.Audio, req.SampleRate, req.Channels)
	resp, err := p.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		Model: p.model,
		File:  oai.File(bytes.NewReader(wav), "answer.wav", "audio/wav"),
	})
	if err != nil {
		return "", fmt.Errorf("openai stt: transcribe: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("openai stt: %w", stt.ErrNoTranscript)
	}
	return text, nil
}

// toLinear16 normalises a request to raw 16-bit PCM. Linear requests pass
// through unchanged; opus-framed ones are decoded at 48 kHz.
func toLinear16(req stt.Request) (stt.Request, error) {
	switch req.Encoding {
	case stt.EncodingLinear16:
		return req, nil
	case stt.EncodingOpus:
		ch := req.Channels
		if ch < 1 {
			ch = 1
		}
		dec, err := audio.NewOpusDecoder(ch)
		if err != nil {
			return stt.Request{}, fmt.Errorf("openai stt: %w", err)
		}
		pcm, err := dec.DecodeAll(req.Audio)
		if err != nil {
			return stt.Request{}, fmt.Errorf("openai stt: decode opus: %w", err)
		}
		return stt.Request{
			Audio:      pcm,
			Encoding:   stt.EncodingLinear16,
			SampleRate: audio.OpusSampleRate,
			Channels:   ch,
		}, nil
	default:
		return stt.Request{}, fmt.Errorf("openai stt: unsupported encoding %q", req.Encoding)
	}
}

// wavContainer wraps raw 16-bit PCM in a minimal RIFF/WAVE header.
func wavContainer(pcm []byte, sampleRate, channels int) []byte {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}

	byteRate := sampleRate * channels * 2
	blockAlign := channels * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
