package transport

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// DefaultCorrelationHeader carries the per-call correlation id.
const DefaultCorrelationHeader = "X-Request-ID"

// NewCorrelationID returns a fresh correlation id.
func NewCorrelationID() string {
	return uuid.NewString()
}

type correlationKey struct{}

// ContextWithCorrelationID makes id the correlation id of the calls made
// with ctx. A replayed call still gets a fresh id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext returns the id set by [ContextWithCorrelationID].
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

type correlationTransport struct {
	t      http.RoundTripper
	header string
}

// Correlation returns a RoundTripper that sets a correlation id header on
// every request that does not carry one. An empty header uses
// [DefaultCorrelationHeader]; a nil t uses http.DefaultTransport.
func Correlation(t http.RoundTripper, header string) http.RoundTripper {
	if header == "" {
		header = DefaultCorrelationHeader
	}
	return &correlationTransport{t: t, header: header}
}

func (c *correlationTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(c.header) == "" {
		req = withCorrelation(req, c.header)
	}
	return next(c.t).RoundTrip(req)
}

// withCorrelation returns a shallow clone of req carrying the context's
// correlation id, or a new one.
func withCorrelation(req *http.Request, header string) *http.Request {
	id := CorrelationIDFromContext(req.Context())
	if id == "" {
		id = NewCorrelationID()
	}
	out := req.Clone(req.Context())
	out.Header.Set(header, id)
	return out
}

func next(t http.RoundTripper) http.RoundTripper {
	if t == nil {
		return http.DefaultTransport
	}
	return t
}
