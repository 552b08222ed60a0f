// Package transcribe turns a recorded answer into text. The tier is picked
// once at construction: a remote recogniser when a credential is configured,
// otherwise the bundled local whisper model. A failure at either tier
// surfaces as an error; the orchestrator substitutes a sentinel transcript
// so the interview continues.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/intervox/pkg/audio"
	"github.com/MrWong99/intervox/pkg/provider/stt"
)

var (
	// ErrEmptyRecording is returned when the recording holds zero bytes.
	ErrEmptyRecording = errors.New("transcribe: empty recording")

	// ErrDecode is returned when decoding the recording yields no samples.
	ErrDecode = errors.New("transcribe: no decodable samples")
)

// Container identifies the byte layout of a recording.
type Container string

const (
	// ContainerPCM16 is raw interleaved 16-bit little-endian PCM.
	ContainerPCM16 Container = "pcm16"

	// ContainerOpus is length-prefixed opus packets as sent by the browser
	// capture path.
	ContainerOpus Container = "opus"
)

// Recording is one complete recorded answer.
type Recording struct {
	Data       []byte
	Container  Container
	SampleRate int
	Channels   int
}

// localSampleRate is what the local whisper model expects.
const localSampleRate = 16000

// Pipeline transcribes recordings through its selected tier. Construct with
// [NewRemote] or [NewLocal].
type Pipeline struct {
	remote  stt.Provider
	local   stt.Provider
	timeout time.Duration
	log     *slog.Logger
}

// PipelineOption customises a [Pipeline].
type PipelineOption func(*Pipeline)

// WithTimeout bounds each remote recogniser call. Default is 120 seconds.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.timeout = d }
}

// WithLogger sets the logger. Default is slog.Default.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = l }
}

// NewRemote builds a pipeline that submits raw recorded bytes to provider.
func NewRemote(provider stt.Provider, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		remote:  provider,
		timeout: 120 * time.Second,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewLocal builds a pipeline that transcodes to 16 kHz mono PCM and runs the
// local speech model.
func NewLocal(provider stt.Provider, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		local:   provider,
		timeout: 120 * time.Second,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Transcribe converts rec into text. Never retries: one attempt on the
// selected tier, errors surface to the caller.
func (p *Pipeline) Transcribe(ctx context.Context, rec Recording) (string, error) {
	if len(rec.Data) == 0 {
		return "", ErrEmptyRecording
	}
	if p.remote != nil {
		return p.transcribeRemote(ctx, rec)
	}
	return p.transcribeLocal(ctx, rec)
}

func (p *Pipeline) transcribeRemote(ctx context.Context, rec Recording) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	encoding := stt.EncodingLinear16
	if rec.Container == ContainerOpus {
		encoding = stt.EncodingOpus
	}
	text, err := p.remote.Transcribe(callCtx, stt.Request{
		Audio:      rec.Data,
		Encoding:   encoding,
		SampleRate: rec.SampleRate,
		Channels:   rec.Channels,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: remote recogniser: %w", err)
	}
	return text, nil
}

func (p *Pipeline) transcribeLocal(ctx context.Context, rec Recording) (string, error) {
	pcm, err := p.toMono16k(rec)
	if err != nil {
		return "", err
	}
	if len(pcm) < 2 {
		return "", ErrDecode
	}
	text, err := p.local.Transcribe(ctx, stt.Request{
		Audio:      pcm,
		Encoding:   stt.EncodingLinear16,
		SampleRate: localSampleRate,
		Channels:   1,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: local model: %w", err)
	}
	return text, nil
}

// toMono16k transcodes the recording to single-channel 16 kHz linear PCM.
func (p *Pipeline) toMono16k(rec Recording) ([]byte, error) {
	var pcm []byte
	srcRate := rec.SampleRate
	channels := rec.Channels

	switch rec.Container {
	case ContainerOpus:
		ch := rec.Channels
		if ch < 1 {
			ch = 1
		}
		dec, err := audio.NewOpusDecoder(ch)
		if err != nil {
			return nil, fmt.Errorf("transcribe: opus decoder: %w", err)
		}
		pcm, err = dec.DecodeAll(rec.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		srcRate = audio.OpusSampleRate
		channels = ch
	case ContainerPCM16:
		pcm = rec.Data
	default:
		return nil, fmt.Errorf("%w: unknown container %q", ErrDecode, rec.Container)
	}

	if channels > 1 {
		pcm = audio.Downmix16(pcm, channels)
	}
	if srcRate != localSampleRate {
		pcm = audio.Resample16(pcm, srcRate, localSampleRate)
	}
	if len(pcm) == 0 {
		return nil, ErrDecode
	}
	return pcm, nil
}
