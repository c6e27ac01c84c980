package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
)

// ErrBodyNotReplayable is returned by [ReplayRequest] for a request whose body
// was consumed and has no GetBody.
var ErrBodyNotReplayable = errors.New("request body cannot be replayed")

// Decision is the outcome of [Decide].
type Decision int

const (
	// Propagate returns the response to the caller unchanged.
	Propagate Decision = iota
	// RecoverToken refreshes the access token and replays the request once.
	RecoverToken
)

func (d Decision) String() string {
	if d == RecoverToken {
		return "recover_token"
	}
	return "propagate"
}

// invalidTokenCodes are the structured codes that signal an invalid or
// expired access token.
var invalidTokenCodes = map[string]struct{}{
	"token_not_valid": {},
	"invalid_token":   {},
	"token_expired":   {},
}

var invalidTokenMessage = regexp.MustCompile(`(?i)token.*(not valid|invalid|expired)`)

type retriedKey struct{}

// WithRetried marks ctx as belonging to a replayed call.
func WithRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

// IsRetried reports whether ctx belongs to a replayed call.
func IsRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// Decide returns [RecoverToken] only for a first-attempt 401 whose body
// signals an invalid token and whose request can be replayed.
func Decide(req *http.Request, status int, body []byte) Decision {
	if status != http.StatusUnauthorized {
		return Propagate
	}
	if req != nil && (IsRetried(req.Context()) || !replayable(req)) {
		return Propagate
	}
	if !IsInvalidTokenResponse(status, body) {
		return Propagate
	}
	return RecoverToken
}

// IsInvalidTokenResponse reports whether a response is a 401 whose body
// carries a recognized invalid-token code or message. Any other 401 is an
// ordinary authorization failure.
func IsInvalidTokenResponse(status int, body []byte) bool {
	if status != http.StatusUnauthorized {
		return false
	}

	eb, ok := parseErrorBody(body)
	if !ok {
		text := strings.TrimSpace(string(body))
		return text != "" && invalidTokenMessage.MatchString(text)
	}

	for _, code := range eb.codes {
		if _, ok := invalidTokenCodes[strings.ToLower(code)]; ok {
			return true
		}
	}
	for _, msg := range eb.messages {
		if invalidTokenMessage.MatchString(msg) {
			return true
		}
	}
	return false
}

// ReplayRequest returns a copy of req marked as retried, with a fresh body
// and the given Authorization value. req is not modified.
func ReplayRequest(req *http.Request, authorization string) (*http.Request, error) {
	out := req.Clone(WithRetried(req.Context()))

	if !replayable(req) {
		return nil, ErrBodyNotReplayable
	}
	if req.Body != nil && req.Body != http.NoBody {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Join(ErrBodyNotReplayable, err)
		}
		out.Body = body
	}

	if authorization == "" {
		out.Header.Del("Authorization")
	} else {
		out.Header.Set("Authorization", authorization)
	}
	return out, nil
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// AuthorizationValue formats an Authorization header value.
func AuthorizationValue(scheme, token string) string {
	if token == "" {
		return ""
	}
	if scheme == "" {
		return token
	}
	return scheme + " " + token
}

type errorBody struct {
	codes    []string
	messages []string
}

// parseErrorBody reads the common JSON error shapes, including a nested
// "messages" list of {"message"} objects.
func parseErrorBody(body []byte) (errorBody, bool) {
	var fields map[string]any
	if len(body) == 0 || json.Unmarshal(body, &fields) != nil {
		return errorBody{}, false
	}

	var eb errorBody
	for _, key := range []string{"code", "error"} {
		if s, ok := fields[key].(string); ok && s != "" {
			eb.codes = append(eb.codes, s)
		}
	}
	for _, key := range []string{"detail", "message", "error_description"} {
		if s, ok := fields[key].(string); ok && s != "" {
			eb.messages = append(eb.messages, s)
		}
	}
	if list, ok := fields["messages"].([]any); ok {
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := m["message"].(string); ok && s != "" {
				eb.messages = append(eb.messages, s)
			}
		}
	}
	return eb, true
}

// failureMessage returns the server's message for a failed response, or the
// status text.
func failureMessage(status int, body []byte) string {
	if eb, ok := parseErrorBody(body); ok && len(eb.messages) > 0 {
		return eb.messages[0]
	}
	return http.StatusText(status)
}
