package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ProviderError is an error returned by a completion provider's API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Code       string // provider error code, e.g. "insufficient_quota"
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error (%d %s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
}

// fallbackStatusCodes are HTTP statuses that indicate the provider cannot
// serve us right now (bad key, missing model, exhausted quota). The chat
// agent degrades to its keyword router on these instead of failing the turn.
var fallbackStatusCodes = map[int]bool{
	401: true,
	403: true,
	404: true,
	429: true,
}

var fallbackTextMarkers = []string{
	"quota",
	"insufficient_quota",
	"rate limit",
	"authentication",
	"incorrect api key",
	"not found",
}

// IsFallbackEligible reports whether a provider failure should trigger the
// keyword fallback router rather than surfacing as an error.
func IsFallbackEligible(err error) bool {
	if err == nil {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		if fallbackStatusCodes[pe.StatusCode] {
			return true
		}
	}

	text := strings.ToLower(err.Error())
	for _, marker := range fallbackTextMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
