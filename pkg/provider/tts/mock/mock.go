// Package mock provides a test double for the tts.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/intervox/pkg/provider/tts"
)

// Provider is a mock implementation of tts.Provider. Zero values cause
// Synthesize to return a clip with nil audio; set Clip or Err as needed.
type Provider struct {
	mu sync.Mutex

	// Clip is returned by Synthesize.
	Clip tts.Clip

	// Err, if non-nil, is returned instead of Clip.
	Err error

	// Calls records every text passed to Synthesize, in order.
	Calls []string
}

var _ tts.Provider = (*Provider)(nil)

// Synthesize records the call and returns the configured Clip or Err.
func (p *Provider) Synthesize(_ context.Context, text string) (*tts.Clip, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, text)
	if p.Err != nil {
		return nil, p.Err
	}
	clip := p.Clip
	return &clip, nil
}
