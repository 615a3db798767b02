package mwapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrLoginFailed is returned when the login flow does not report Success.
var ErrLoginFailed = errors.New("login failed")

// APIMessage is a single error entry from an action API response
// (errorformat=plaintext).
type APIMessage struct {
	Code   string `json:"code"`
	Text   string `json:"text"`
	Module string `json:"module"`
}

// APIError is returned when a response carries the MediaWiki-API-Error
// header. It holds every error entry from the response body.
type APIError struct {
	Errors []APIMessage
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return "unknown api error"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, m := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", m.Code, m.Text))
	}
	return strings.Join(parts, " / ")
}

// parseAPIError decodes the errors array from a flagged response body.
// The header code is kept as a fallback when the body is unusable.
func parseAPIError(body []byte, headerCode string) *APIError {
	var envelope struct {
		Errors []APIMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Errors) == 0 {
		return &APIError{Errors: []APIMessage{{Code: headerCode}}}
	}
	return &APIError{Errors: envelope.Errors}
}
