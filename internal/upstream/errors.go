// Package upstream classifies failures of calls to external providers at the
// point where the raw response is received, so callers can decide on retries
// without inspecting error strings.
package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Kind is the retry class of an upstream failure.
type Kind int

const (
	// KindPermanent covers auth failures, malformed requests and any 4xx
	// other than throttling. Retrying does not help.
	KindPermanent Kind = iota
	// KindRateLimited means the provider asked us to slow down.
	KindRateLimited
	// KindServer is a 5xx from the provider.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	default:
		return "permanent"
	}
}

// Error is a classified failure from an external provider.
type Error struct {
	Provider   string
	StatusCode int
	Kind       Kind
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s error (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FromStatus classifies err using the HTTP status the provider returned.
func FromStatus(provider string, status int, err error) *Error {
	kind := KindPermanent
	switch {
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= 500:
		kind = KindServer
	}
	return &Error{Provider: provider, StatusCode: status, Kind: kind, Err: err}
}

// FromOpenAI classifies errors returned by go-openai clients, which carry the
// HTTP status on APIError or RequestError.
func FromOpenAI(provider string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return FromStatus(provider, apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return FromStatus(provider, reqErr.HTTPStatusCode, err)
	}

	return &Error{Provider: provider, Kind: KindPermanent, Err: err}
}

// FromGemini classifies errors returned by the genai client.
func FromGemini(provider string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 0 && apiErr.Status == "RESOURCE_EXHAUSTED" {
			return FromStatus(provider, http.StatusTooManyRequests, err)
		}
		return FromStatus(provider, apiErr.Code, err)
	}

	// The genai client reports quota exhaustion in the status text when no
	// structured error is available.
	if strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
		return FromStatus(provider, http.StatusTooManyRequests, err)
	}

	return &Error{Provider: provider, Kind: KindPermanent, Err: err}
}

// KindOf returns the classification of err, or KindPermanent for
// unclassified errors.
func KindOf(err error) Kind {
	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr.Kind
	}
	return KindPermanent
}

// IsRateLimited reports whether err is a throttling signal.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}

// IsRetryable reports whether waiting and retrying can help.
func IsRetryable(err error) bool {
	kind := KindOf(err)
	return kind == KindRateLimited || kind == KindServer
}
