package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// GenericMessage is the last-resort user-facing error text.
const GenericMessage = "Something went wrong. Please try again."

// APIError is a non-success response from the clinic backend.
type APIError struct {
	Operation  string
	StatusCode int
	// Errors holds validation-array messages, in response order.
	Errors    []string
	Message   string
	ErrorText string
}

func (e *APIError) Error() string {
	detail := e.Message
	if len(e.Errors) > 0 {
		detail = strings.Join(e.Errors, "; ")
	}
	if detail == "" {
		detail = e.ErrorText
	}
	if detail == "" {
		return fmt.Sprintf("backend: %s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("backend: %s: status %d: %s", e.Operation, e.StatusCode, detail)
}

// Message extracts the most specific user-facing text from err: the first
// validation-array entry, then message, then error, then the error's own
// text, then fallback (GenericMessage when fallback is blank). Transport
// failures carry the backend URL, so they always get the fallback.
func Message(err error, fallback string) string {
	if fallback == "" {
		fallback = GenericMessage
	}
	if err == nil {
		return fallback
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		for _, msg := range apiErr.Errors {
			if strings.TrimSpace(msg) != "" {
				return msg
			}
		}
		if strings.TrimSpace(apiErr.Message) != "" {
			return apiErr.Message
		}
		if strings.TrimSpace(apiErr.ErrorText) != "" {
			return apiErr.ErrorText
		}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fallback
	}
	if text := strings.TrimSpace(err.Error()); text != "" {
		return text
	}
	return fallback
}

// errorBody is the envelope the backend uses for failures.
type errorBody struct {
	Success *bool             `json:"success"`
	Errors  validationEntries `json:"errors"`
	Message string            `json:"message"`
	Error   json.RawMessage   `json:"error"`
}

// validationEntries accepts ["msg", ...] or [{"msg"|"message": "...", "path"|"field": "..."}, ...].
type validationEntries []string

func (v *validationEntries) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Msg     string `json:"msg"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(item, &obj); err == nil {
			if obj.Msg != "" {
				out = append(out, obj.Msg)
			} else if obj.Message != "" {
				out = append(out, obj.Message)
			}
		}
	}
	*v = out
	return nil
}

// errorText renders the "error" field whether it is a string or an object.
func errorText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message     string `json:"message"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Description
	}
	return ""
}

func decodeAPIError(op string, status int, body []byte) *APIError {
	apiErr := &APIError{Operation: op, StatusCode: status}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return apiErr
	}
	apiErr.Errors = parsed.Errors
	apiErr.Message = parsed.Message
	apiErr.ErrorText = errorText(parsed.Error)
	return apiErr
}
