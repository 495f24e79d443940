package request

import (
	"errors"
	"fmt"
)

// ErrNoSender is returned if no Sender is found in the fallback chain.
var ErrNoSender = errors.New("no sender is configured")

// InvalidURLError - the base URL, path and query items cannot be composed to a valid URL.
type InvalidURLError struct {
	URL string
	Err error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf(`invalid url "%s": %s`, e.URL, e.Err)
}

func (e *InvalidURLError) Unwrap() error {
	return e.Err
}

// EncodingError - the parameters cannot be encoded by the selected ParameterEncoding.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf(`cannot encode parameters: %s`, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// TransformError - authentication or a Transform hook failed.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf(`cannot transform request: %s`, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// errorKind returns short name of the error type, for logging.
func errorKind(err error) string {
	var urlErr *InvalidURLError
	var encErr *EncodingError
	var transformErr *TransformError
	switch {
	case errors.As(err, &urlErr):
		return "invalid_url"
	case errors.As(err, &encErr):
		return "encoding"
	case errors.As(err, &transformErr):
		return "transform"
	case errors.Is(err, ErrNoSender):
		return "no_sender"
	default:
		return "unknown"
	}
}
