// Package mock provides a test double for the stt.Provider interface.
//
// Zero values cause Transcribe to return ("", nil). Set Text or Err to feed
// controlled results; read Calls after the test to verify requests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/intervox/pkg/provider/stt"
)

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Text is returned by Transcribe.
	Text string

	// Err, if non-nil, is returned by Transcribe instead of Text.
	Err error

	// Calls records every request passed to Transcribe, in order.
	Calls []stt.Request
}

var _ stt.Provider = (*Provider)(nil)

// Transcribe records the call and returns the configured Text or Err.
func (p *Provider) Transcribe(_ context.Context, req stt.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}

// CallCount returns the number of Transcribe invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
