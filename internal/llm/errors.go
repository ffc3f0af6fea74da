package llm

import "errors"

// ErrEmptyResponse is returned when the provider answers with no content.
var ErrEmptyResponse = errors.New("empty completion")

// ProviderError is a failed completion classified by the provider. Retryable
// errors (rate limits, 5xx, network) may be retried by the provider's backoff
// policy; the rest are returned as is.
type ProviderError struct {
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string { return e.Err.Error() }

func (e *ProviderError) Unwrap() error { return e.Err }

func NewTransientError(err error) error { return &ProviderError{Retryable: true, Err: err} }

func NewFatalError(err error) error { return &ProviderError{Err: err} }

// IsTransient reports whether err wraps a retryable ProviderError.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

// IsFatal reports whether err wraps a non-retryable ProviderError.
func IsFatal(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && !pe.Retryable
}
