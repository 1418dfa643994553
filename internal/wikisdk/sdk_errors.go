package wikisdk

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	ErrNoServerURL = errors.New("sdk: server url missing")
)

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeAccessDenied   = "E_ACCESS_DENIED"   // access denied
	CodeUnknownError   = "E_UNKNOWN_ERR"     // unknown error

	// Document errors
	CodeDocumentNotFound = "E_DOC_NOT_FOUND"     // the document does not exist in the space
	CodeSpaceNotFound    = "E_SPACE_NOT_FOUND"   // the space does not exist
	CodeInvalidPath      = "E_DOC_INVALID_PATH"  // the document path is invalid or malformed
	CodeUpsertFailed     = "E_DOC_UPSERT_FAILED" // create-or-update operation failed server-side
	CodeUploadFailed     = "E_DOC_UPLOAD_FAILED" // binary upload operation failed server-side
)

// APIError represents an error response from the wiki API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

// IsNotFound reports whether err is an API error for a missing document or space.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == CodeDocumentNotFound || apiErr.Code == CodeSpaceNotFound
	}
	return false
}

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s: %w", operation, requestErr)
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		if apiErr, ok := resp.ErrorResult().(*APIError); ok && apiErr.Code != "" {
			return fmt.Errorf("%s: %w", operation, apiErr)
		}
		return fmt.Errorf("api error: %s: %s", operation, resp.Status)
	}

	return nil
}
