package openai

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey = errors.New("openai api key is not set")
	ErrNoChoices     = errors.New("openai response has no choices")
	ErrEmptyContent  = errors.New("openai response content is empty")
	ErrInvalidJSON   = errors.New("openai response is not valid json")
	ErrInvalidFormat = errors.New("openai response has invalid format")
	ErrEmptyAPIKey   = errors.New("api key is required")
)

// GenerationError is returned by every failed provider call.
type GenerationError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("openai %s: http %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("openai %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type httpStatusError struct {
	StatusCode int
	Message    string
}

func (e *httpStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("openai http %d", e.StatusCode)
	}
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Message)
}

func (e *httpStatusError) HTTPStatusCode() int { return e.StatusCode }
