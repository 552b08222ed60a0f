// Package tts defines the Provider interface for speech synthesis backends.
//
// The interview server speaks one question at a time, so the contract is a
// single blocking Synthesize call returning the full audio clip rather than
// a streaming channel. Implementations must be safe for concurrent use.
package tts

import "context"

// Clip is one synthesised utterance.
type Clip struct {
	// Audio is the encoded audio payload.
	Audio []byte

	// ContentType is the MIME type of Audio (e.g., "audio/mpeg").
	ContentType string
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text as speech. Returns an error if the backend
	// call fails or ctx is cancelled; an empty text input is an error.
	Synthesize(ctx context.Context, text string) (*Clip, error)
}
