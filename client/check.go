package client

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 1 << 20

// CheckResponse returns nil if resp.StatusCode is one of allowed (200 when
// allowed is empty). Otherwise it returns an *APIError whose message is the
// "error" field of the JSON body, or UndefinedErrorMessage when the body is
// not JSON or has no such field. The body is consumed on failure but not
// closed.
func CheckResponse(resp *http.Response, allowed ...int) error {
	if len(allowed) == 0 {
		allowed = []int{http.StatusOK}
	}
	for _, code := range allowed {
		if resp.StatusCode == code {
			return nil
		}
	}

	apiErr := &APIError{
		Message:    UndefinedErrorMessage,
		StatusCode: resp.StatusCode,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		apiErr.URL = resp.Request.URL.String()
	}

	if resp.Body == nil {
		return apiErr
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return apiErr
	}
	if msg, ok := data["error"].(string); ok {
		apiErr.Message = msg
	}
	return apiErr
}
