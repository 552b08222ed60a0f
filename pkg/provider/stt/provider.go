// Package stt defines the Provider interface for speech recognizers.
//
// A recognizer receives one complete recorded answer and returns its text.
// Unlike conversational voice pipelines that stream partial hypotheses, the
// interview flow always has a whole utterance in hand by the time
// transcription starts, so the contract here is a single batch call.
//
// Implementations must be safe for concurrent use; multiple interviews can
// land answers at the same time.
package stt

import (
	"context"
	"errors"
)

// Recognised audio encodings for [Request.Encoding].
const (
	// EncodingLinear16 is raw little-endian signed 16-bit PCM.
	EncodingLinear16 = "linear16"

	// EncodingOpus is a stream of length-prefixed opus packets at 48 kHz.
	EncodingOpus = "opus"
)

// ErrNoTranscript is returned when the recognizer completed the call but
// produced no usable text (no decodable speech in the recording).
var ErrNoTranscript = errors.New("stt: recognizer returned no transcript")

// Request describes one recorded answer submitted for transcription.
type Request struct {
	// Audio is the complete recording.
	Audio []byte

	// Encoding names the container of Audio. One of the Encoding constants.
	Encoding string

	// SampleRate is the audio sample rate in Hz.
	SampleRate int

	// Channels is the interleaved channel count. Most recognizers want mono;
	// remote providers downmix server-side, the local provider expects the
	// caller to have downmixed already.
	Channels int
}

// Provider is the abstraction over any speech recognizer backend.
type Provider interface {
	// Transcribe converts one recorded answer into text. Returns
	// [ErrNoTranscript] (possibly wrapped) when the recognizer responds
	// without a transcript, or a transport/decode error otherwise.
	// Implementations must respect ctx cancellation.
	Transcribe(ctx context.Context, req Request) (string, error)
}
