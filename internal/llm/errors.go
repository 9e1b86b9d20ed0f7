package llm

import (
	"errors"
	"fmt"
	"strings"
)

// notFoundMarker is the substring providers use to flag an unknown model.
const notFoundMarker = "not_found_error"

// ProviderError is a non-2xx provider response with machine-readable
// details. Anything else (network, timeout) is a plain transport error.
type ProviderError struct {
	StatusCode int
	Details    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Details)
}

// ModelNotFound reports whether the provider rejected the requested model.
func (e *ProviderError) ModelNotFound() bool {
	return strings.Contains(e.Details, notFoundMarker)
}

// IsModelNotFound reports whether err is a provider "model not found"
// rejection, the only error class the escalation policy recovers from.
func IsModelNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.ModelNotFound()
}
