package usersdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Details string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("users api: %d %s (%s)", e.Status, e.Details, e.Field)
	}
	return fmt.Sprintf("users api: %d %s", e.Status, e.Details)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Details != "" {
		apiErr.Details = er.Details
		apiErr.Field = er.Field
		return apiErr
	}

	apiErr.Details = http.StatusText(resp.StatusCode)
	return apiErr
}
