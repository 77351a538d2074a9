// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Request validation errors.
var (
	ErrEmptyQuery            = errors.New("query is empty: provide a research question")
	ErrNoProviders           = errors.New("no providers requested")
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrUnknownProvider       = errors.New("unknown provider")
	ErrDomainsRequired       = errors.New("search mode requires at least one domain")
	ErrUnknownMode           = errors.New("unknown search mode")
)

// ProviderTimeoutError reports a provider that did not answer within the
// per-provider timeout.
type ProviderTimeoutError struct {
	Provider types.Provider
	Timeout  time.Duration
}

func (e *ProviderTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Provider, e.Timeout)
}

// ProviderError wraps any other failure of a single provider call.
type ProviderError struct {
	Provider types.Provider
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AllProvidersFailedError is returned when every requested provider failed.
// Errors holds one entry per provider in dispatch order.
type AllProvidersFailedError struct {
	Errors []error
}

func (e *AllProvidersFailedError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "all providers failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the per-provider errors to errors.Is and errors.As.
func (e *AllProvidersFailedError) Unwrap() []error { return e.Errors }

// Failures converts the per-provider errors into report entries.
func (e *AllProvidersFailedError) Failures() []types.ProviderFailure {
	out := make([]types.ProviderFailure, 0, len(e.Errors))
	for _, err := range e.Errors {
		out = append(out, failureOf(err))
	}
	return out
}

func failureOf(err error) types.ProviderFailure {
	var te *ProviderTimeoutError
	if errors.As(err, &te) {
		return types.ProviderFailure{Provider: te.Provider, Reason: te.Error(), TimedOut: true}
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return types.ProviderFailure{Provider: pe.Provider, Reason: pe.Err.Error()}
	}
	return types.ProviderFailure{Reason: err.Error()}
}
