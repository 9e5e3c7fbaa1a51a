// Package completion turns an assembled prompt into generated text. Providers
// are tried in order by a Chain; the first success wins.
package completion

import (
	"context"
	"errors"
	"fmt"
)

const (
	SourceOpenAICompat = "openai-compat"
	SourceGeminiREST   = "gemini-rest"
	SourceCanned       = "canned"
	SourceCache        = "cache"
)

// ErrUnavailable means a provider could not be constructed (missing client,
// credentials or model). The chain skips such providers without calling them.
var ErrUnavailable = errors.New("completion: provider unavailable")

type Request struct {
	// Message is the trimmed user message.
	Message string
	// Prompt is the full text sent to live providers.
	Prompt string
}

type Result struct {
	Text   string
	Source string
}

// Generator is one completion strategy. Implementations must be safe for
// concurrent use.
type Generator interface {
	Name() string
	Available() bool
	Generate(ctx context.Context, req Request) (string, error)
}

// UpstreamError reports a failed call to a live provider: a network error, a
// non-2xx response or a payload without usable text.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion: %s returned status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion: %s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func upstreamError(provider string, status int, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, StatusCode: status, Err: err}
}
