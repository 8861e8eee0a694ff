package googledrive

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// asGoogleAPIError unwraps a googleapi.Error from an error chain.
func asGoogleAPIError(err error, target **googleapi.Error) bool {
	return errors.As(err, target)
}

// isNotFound reports whether the error is a Drive 404.
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return asGoogleAPIError(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
