package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

// maxPeekBytes bounds how much of an error body is inspected.
const maxPeekBytes = 64 << 10

// Failure is a reported failed call. Status is zero for transport errors.
type Failure struct {
	Status        int
	CorrelationID string
	Method        string
	Path          string
	Message       string
	Retried       bool
}

// RecoveryDeps are the session hooks the recovery transport reads through.
type RecoveryDeps struct {
	// AccessToken returns the attached access token, or "" when none.
	AccessToken func() string

	// RefreshToken reads the persisted refresh token. "" means no session.
	RefreshToken func(ctx context.Context) (string, error)

	// Refresh obtains a new access token through the shared flight. It is
	// responsible for persisting and attaching the result.
	Refresh func(ctx context.Context, staleAccess, refreshToken string) (string, bool)

	// OnRefreshFailure applies the configured failure policy to the session
	// that refreshToken belongs to. Optional.
	OnRefreshFailure func(ctx context.Context, refreshToken string)

	// Report receives failed calls. It must not block. Optional.
	Report func(ctx context.Context, f Failure)

	Now func() time.Time

	OnRecovered         func()
	OnRecoveryFailed    func()
	OnPreemptiveRefresh func()
	ObserveLatency      func(time.Duration)
}

// RecoveryOptions configures a [Recovery] transport.
type RecoveryOptions struct {
	// Scheme prefixes the token in the Authorization header. Default "Bearer".
	Scheme string

	// CorrelationHeader carries the per-call id. Default [DefaultCorrelationHeader].
	CorrelationHeader string

	// PreemptiveSkew refreshes before sending when the attached JWT expires
	// within the skew. Zero disables it.
	PreemptiveSkew time.Duration
}

// Recovery attaches the session's access token to outgoing calls and
// recovers once from an invalid-token 401.
//
// A request that already carries an Authorization header is sent as is and
// never recovered.
type Recovery struct {
	t    http.RoundTripper
	opts RecoveryOptions
	deps RecoveryDeps
}

// NewRecovery wraps t. A nil t uses http.DefaultTransport.
func NewRecovery(t http.RoundTripper, opts RecoveryOptions, deps RecoveryDeps) *Recovery {
	if opts.Scheme == "" {
		opts.Scheme = "Bearer"
	}
	if opts.CorrelationHeader == "" {
		opts.CorrelationHeader = DefaultCorrelationHeader
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Recovery{t: t, opts: opts, deps: deps}
}

// RoundTrip sends req with the attached token and replays it once after an
// invalid-token 401.
func (r *Recovery) RoundTrip(req *http.Request) (*http.Response, error) {
	start := r.deps.Now()
	defer func() {
		if r.deps.ObserveLatency != nil {
			r.deps.ObserveLatency(r.deps.Now().Sub(start))
		}
	}()

	ctx := req.Context()
	managed := req.Header.Get("Authorization") == ""

	token := ""
	if managed {
		token = r.accessToken()
		token = r.preempt(ctx, token)
	}

	attempt := withCorrelation(req, r.opts.CorrelationHeader)
	if managed {
		setAuthorization(attempt, AuthorizationValue(r.opts.Scheme, token))
	}

	resp, err := next(r.t).RoundTrip(attempt)
	if err != nil {
		r.report(ctx, attempt, 0, err.Error())
		return nil, err
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}

	body := peekBody(resp)
	if managed && Decide(req, resp.StatusCode, body) == RecoverToken {
		if replayed, ok, rerr := r.recoverToken(req, token); ok {
			drain(resp)
			return replayed, rerr
		}
	}

	r.report(ctx, attempt, resp.StatusCode, failureMessage(resp.StatusCode, body))
	return resp, nil
}

// recoverToken refreshes and replays req. ok is false when the original response
// should be propagated.
func (r *Recovery) recoverToken(req *http.Request, staleAccess string) (*http.Response, bool, error) {
	ctx := req.Context()

	refreshToken := ""
	if r.deps.RefreshToken != nil {
		rt, err := r.deps.RefreshToken(ctx)
		if err == nil {
			refreshToken = rt
		}
	}
	if refreshToken == "" || r.deps.Refresh == nil {
		r.recoveryFailed()
		return nil, false, nil
	}

	fresh, ok := r.deps.Refresh(ctx, staleAccess, refreshToken)
	if !ok {
		r.recoveryFailed()
		if r.deps.OnRefreshFailure != nil {
			r.deps.OnRefreshFailure(ctx, refreshToken)
		}
		return nil, false, nil
	}

	replay, err := ReplayRequest(req, AuthorizationValue(r.opts.Scheme, fresh))
	if err != nil {
		r.recoveryFailed()
		return nil, false, nil
	}
	replay.Header.Set(r.opts.CorrelationHeader, NewCorrelationID())

	if r.deps.OnRecovered != nil {
		r.deps.OnRecovered()
	}

	resp, err := next(r.t).RoundTrip(replay)
	if err != nil {
		r.reportRetried(ctx, replay, 0, err.Error())
		return nil, true, err
	}
	if resp.StatusCode >= 400 {
		body := peekBody(resp)
		r.reportRetried(ctx, replay, resp.StatusCode, failureMessage(resp.StatusCode, body))
	}
	return resp, true, nil
}

func (r *Recovery) accessToken() string {
	if r.deps.AccessToken == nil {
		return ""
	}
	return r.deps.AccessToken()
}

// preempt refreshes an attached JWT that is about to expire. Opaque tokens and
// failures leave token unchanged.
func (r *Recovery) preempt(ctx context.Context, token string) string {
	if r.opts.PreemptiveSkew <= 0 || token == "" || r.deps.Refresh == nil || r.deps.RefreshToken == nil {
		return token
	}
	if !jwt.ExpiresWithin(token, r.opts.PreemptiveSkew, r.deps.Now()) {
		return token
	}

	refreshToken, err := r.deps.RefreshToken(ctx)
	if err != nil || refreshToken == "" {
		return token
	}
	fresh, ok := r.deps.Refresh(ctx, token, refreshToken)
	if !ok {
		return token
	}
	if r.deps.OnPreemptiveRefresh != nil {
		r.deps.OnPreemptiveRefresh()
	}
	return fresh
}

func (r *Recovery) recoveryFailed() {
	if r.deps.OnRecoveryFailed != nil {
		r.deps.OnRecoveryFailed()
	}
}

func (r *Recovery) report(ctx context.Context, req *http.Request, status int, msg string) {
	r.emit(ctx, req, status, msg, false)
}

func (r *Recovery) reportRetried(ctx context.Context, req *http.Request, status int, msg string) {
	r.emit(ctx, req, status, msg, true)
}

func (r *Recovery) emit(ctx context.Context, req *http.Request, status int, msg string, retried bool) {
	if r.deps.Report == nil {
		return
	}
	r.deps.Report(ctx, Failure{
		Status:        status,
		CorrelationID: req.Header.Get(r.opts.CorrelationHeader),
		Method:        req.Method,
		Path:          req.URL.Path,
		Message:       msg,
		Retried:       retried,
	})
}

func setAuthorization(req *http.Request, value string) {
	if value == "" {
		req.Header.Del("Authorization")
		return
	}
	req.Header.Set("Authorization", value)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// peekBody reads the head of resp.Body and restores it for the caller.
func peekBody(resp *http.Response) []byte {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}
	head, _ := io.ReadAll(io.LimitReader(resp.Body, maxPeekBytes))
	resp.Body = readCloser{
		Reader: io.MultiReader(bytes.NewReader(head), resp.Body),
		Closer: resp.Body,
	}
	return head
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPeekBytes))
	_ = resp.Body.Close()
}
