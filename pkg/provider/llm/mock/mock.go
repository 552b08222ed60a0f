// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the prompts the generator and
// evaluator build, and to feed controlled replies without a live backend.
//
// Example:
//
//	p := &mock.Provider{Response: &llm.CompletionResponse{Content: "Why Go?"}}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/intervox/pkg/provider/llm"
)

// Provider is a mock implementation of llm.Provider. Zero values cause
// Complete to return (nil, nil). Set Err to inject a failure. When
// Responses is non-empty it is consumed one reply per call before falling
// back to Response.
type Provider struct {
	mu sync.Mutex

	// Response is returned by Complete when Responses is exhausted or empty.
	Response *llm.CompletionResponse

	// Responses, when non-empty, is consumed in order, one per call.
	Responses []*llm.CompletionResponse

	// Err, if non-nil, is returned by Complete instead of any response.
	Err error

	// Calls records every request passed to Complete, in order.
	Calls []llm.CompletionRequest
}

var _ llm.Provider = (*Provider)(nil)

// Complete records the call and returns the next configured response.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Responses) > 0 {
		resp := p.Responses[0]
		p.Responses = p.Responses[1:]
		return resp, nil
	}
	return p.Response, nil
}

// CallCount returns the number of Complete invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// LastCall returns the most recent request, or a zero request when none.
func (p *Provider) LastCall() llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Calls) == 0 {
		return llm.CompletionRequest{}
	}
	return p.Calls[len(p.Calls)-1]
}
