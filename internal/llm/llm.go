// Package llm provides the round-robin provider pool and response
// sanitization used by the extraction and translation engines.
package llm

import "context"

// Request is one logical chat-completion request: a fixed system
// instruction plus a per-call user payload.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
}

// Provider is a single remote LLM completion backend. Implementations are
// stateless after construction.
type Provider interface {
	// Name returns the human label used in logs.
	Name() string
	// Complete sends the request and returns the raw completion text.
	Complete(ctx context.Context, req Request) (string, error)
}

// Invoker dispatches a completion request; the pipeline engines depend on
// this rather than on the concrete Pool so tests can substitute failures.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (string, error)
}
