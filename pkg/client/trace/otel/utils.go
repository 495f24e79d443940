package otel

import (
	"fmt"
	"net/http"
)

// httpError converts the status code of a failed response to an error, it returns nil for a successful response.
func httpError(res *http.Response, err error) error {
	if err != nil {
		return err
	}
	if res != nil && res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf(`HTTP status code: %d %s`, res.StatusCode, http.StatusText(res.StatusCode))
	}
	return nil
}
