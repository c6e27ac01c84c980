package identity

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// APIError is a non-2xx response from the identity service. Detail holds the
// server's message verbatim.
type APIError struct {
	Op     string
	Status int
	Code   string
	Detail string
	Body   string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("identity %s: status %d", e.Op, e.Status)
}

// newAPIError extracts code and detail from the common error body shapes:
// {"detail","code"}, {"message"}, {"error","error_description"}, and field
// error maps such as {"username":["already exists"]}.
func newAPIError(op string, status int, body []byte) *APIError {
	e := &APIError{
		Op:     op,
		Status: status,
		Body:   string(body),
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		e.Detail = strings.TrimSpace(string(body))
		if e.Detail == "" {
			e.Detail = http.StatusText(status)
		}
		return e
	}

	e.Code = stringField(fields, "code")
	if e.Code == "" {
		e.Code = stringField(fields, "error")
	}
	for _, key := range []string{"detail", "message", "error_description"} {
		if v := stringField(fields, key); v != "" {
			e.Detail = v
			break
		}
	}
	if e.Detail == "" {
		e.Detail = fieldErrors(fields)
	}
	if e.Detail == "" {
		e.Detail = http.StatusText(status)
	}
	return e
}

func stringField(fields map[string]any, key string) string {
	v, _ := fields[key].(string)
	return v
}

func fieldErrors(fields map[string]any) string {
	var parts []string
	for key, v := range fields {
		list, ok := v.([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			if s, ok := item.(string); ok {
				parts = append(parts, key+": "+s)
			}
		}
	}
	// Map order is random; keep the message stable.
	slices.Sort(parts)
	return strings.Join(parts, "; ")
}
