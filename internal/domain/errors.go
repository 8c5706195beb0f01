package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed search request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrGenerationFailed signals a text-generation failure after retries.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrBackendUnavailable signals that the search backend cannot be reached.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrBudgetExceeded signals that the generation call budget is spent.
	ErrBudgetExceeded = errors.New("generation budget exceeded")
)
