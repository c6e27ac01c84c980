package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/biometric"
	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
)

type memState struct {
	sess     *session.StoredSession
	marker   time.Time
	marked   bool
	attached string
	writes   int
}

func (m *memState) Read(context.Context) (*session.StoredSession, error) {
	if m.sess == nil {
		return nil, nil
	}
	cp := *m.sess
	return &cp, nil
}

func (m *memState) Write(_ context.Context, sess *session.StoredSession) error {
	m.writes++
	if !sess.Valid() {
		m.sess, m.marked, m.attached = nil, false, ""
		return nil
	}
	cp := *sess
	m.sess = &cp
	m.attached = sess.AccessToken
	return nil
}

func (m *memState) DetachToken() { m.attached = "" }

func (m *memState) WipeIfCurrent(ctx context.Context, refreshToken string) (bool, error) {
	if m.sess == nil || m.sess.RefreshToken != refreshToken {
		return false, nil
	}
	return true, m.Write(ctx, nil)
}

func (m *memState) MarkBackgrounded(_ context.Context, now time.Time) error {
	if m.sess == nil {
		return nil
	}
	m.marker, m.marked = now, true
	return nil
}

func (m *memState) BackgroundedAt(context.Context) (time.Time, bool, error) {
	return m.marker, m.marked, nil
}

func (m *memState) ClearBackgrounded(context.Context) error {
	m.marked = false
	return nil
}

type fakeIdentity struct {
	obtainCalls   int
	registerCalls int
	obtainErr     error
	registerErr   error
	pair          identity.TokenPair
}

func (f *fakeIdentity) Obtain(context.Context, identity.Credentials) (*identity.TokenPair, error) {
	f.obtainCalls++
	if f.obtainErr != nil {
		return nil, f.obtainErr
	}
	p := f.pair
	return &p, nil
}

func (f *fakeIdentity) Register(context.Context, identity.Registration) error {
	f.registerCalls++
	return f.registerErr
}

// fakeRefresher commits like the coordinator does. calls counts exchanges.
type fakeRefresher struct {
	state  *memState
	calls  int
	reused int
	seen   []string
	next   string
	fail   bool

	// during runs before the outcome, standing in for a concurrent writer.
	during func(ctx context.Context)
}

func (f *fakeRefresher) RefreshStale(ctx context.Context, staleAccess, refreshToken string) (string, bool) {
	if current := f.state.attached; current != "" && current != staleAccess {
		f.reused++
		return current, true
	}
	f.calls++
	f.seen = append(f.seen, refreshToken)
	if f.during != nil {
		f.during(ctx)
	}
	if f.fail {
		return "", false
	}
	_ = f.state.Write(ctx, f.state.sess.WithAccessToken(f.next))
	return f.next, true
}

func signedIn() *memState {
	st := &memState{}
	_ = st.Write(context.Background(), &session.StoredSession{AccessToken: "a1", RefreshToken: "r1", Username: "alice"})
	return st
}

func TestSignInValidationMakesNoCall(t *testing.T) {
	for _, creds := range []identity.Credentials{
		{Username: "", Password: "pw"},
		{Username: "user", Password: ""},
	} {
		ids := &fakeIdentity{}
		res := RunSignIn(context.Background(), creds, SignInDeps{Identity: ids, State: &memState{}})
		if res.Failure != SignInFailureValidation || !errors.Is(res.Err, identity.ErrInvalidInput) {
			t.Fatalf("expected validation failure for %+v, got %+v", creds, res)
		}
		if ids.obtainCalls != 0 {
			t.Fatalf("expected no identity call")
		}
	}
}

func TestSignInPersistsAndAttaches(t *testing.T) {
	st := &memState{}
	ids := &fakeIdentity{pair: identity.TokenPair{Access: "a1", Refresh: "r1"}}
	res := RunSignIn(context.Background(), identity.Credentials{Username: "alice", Password: "pw"}, SignInDeps{Identity: ids, State: st})
	if res.Failure != SignInFailureNone {
		t.Fatalf("unexpected failure %+v", res)
	}
	if st.sess == nil || st.sess.Username != "alice" || st.attached != "a1" {
		t.Fatalf("session not persisted: %+v attached=%q", st.sess, st.attached)
	}
}

func TestSignInFailureLeavesSession(t *testing.T) {
	st := signedIn()
	ids := &fakeIdentity{obtainErr: errors.New("rejected")}
	res := RunSignIn(context.Background(), identity.Credentials{Username: "bob", Password: "pw"}, SignInDeps{Identity: ids, State: st})
	if res.Failure != SignInFailureObtain {
		t.Fatalf("expected obtain failure, got %+v", res)
	}
	if st.sess.Username != "alice" || st.attached != "a1" {
		t.Fatalf("existing session changed")
	}
}

func TestSignUpRegistersThenSignsIn(t *testing.T) {
	st := &memState{}
	ids := &fakeIdentity{pair: identity.TokenPair{Access: "a1", Refresh: "r1"}}
	res := RunSignUp(context.Background(), identity.Registration{Username: "carol", Password: "pw"}, SignInDeps{Identity: ids, State: st})
	if res.Failure != SignInFailureNone || ids.registerCalls != 1 || ids.obtainCalls != 1 {
		t.Fatalf("unexpected result %+v register=%d obtain=%d", res, ids.registerCalls, ids.obtainCalls)
	}

	ids = &fakeIdentity{registerErr: errors.New("exists")}
	res = RunSignUp(context.Background(), identity.Registration{Username: "carol", Password: "pw"}, SignInDeps{Identity: ids, State: &memState{}})
	if res.Failure != SignInFailureRegister || ids.obtainCalls != 0 {
		t.Fatalf("expected register failure without sign-in, got %+v", res)
	}
}

func TestRestoreRefreshFailureSignsOut(t *testing.T) {
	st := signedIn()
	res := RunRestore(context.Background(), RestoreDeps{State: st, Refresher: &fakeRefresher{state: st, fail: true}})
	if res.Outcome != RestoreSignedOut || st.sess != nil || st.attached != "" {
		t.Fatalf("expected sign-out, got %+v sess=%+v", res, st.sess)
	}
}

func TestRestoreFailureKeepsReplacedSession(t *testing.T) {
	st := signedIn()
	bob := &session.StoredSession{AccessToken: "b1", RefreshToken: "rb", Username: "bob"}
	ref := &fakeRefresher{state: st, fail: true, during: func(ctx context.Context) {
		_ = st.Write(ctx, bob)
	}}

	res := RunRestore(context.Background(), RestoreDeps{State: st, Refresher: ref})
	if res.Outcome != RestoreNoSession {
		t.Fatalf("expected no session outcome, got %+v", res)
	}
	if st.sess == nil || *st.sess != *bob || st.attached != "b1" {
		t.Fatalf("replaced session must survive, got %+v attached=%q", st.sess, st.attached)
	}
}

// rotatingState rotates the session right after the flow reads it, standing
// in for a request recovery that wins the race to the refresh flight.
type rotatingState struct {
	*memState
	rotated bool
}

func (r *rotatingState) Read(ctx context.Context) (*session.StoredSession, error) {
	sess, err := r.memState.Read(ctx)
	if !r.rotated && sess != nil {
		r.rotated = true
		_ = r.memState.Write(ctx, &session.StoredSession{AccessToken: "a2", RefreshToken: "r2", Username: sess.Username})
	}
	return sess, err
}

func TestRestoreReusesConcurrentRotation(t *testing.T) {
	st := signedIn()
	rs := &rotatingState{memState: st}
	ref := &fakeRefresher{state: st, fail: true}

	res := RunRestore(context.Background(), RestoreDeps{State: rs, Refresher: ref})
	if res.Outcome != RestoreRefreshed || res.Err != nil {
		t.Fatalf("expected refreshed outcome, got %+v", res)
	}
	if ref.calls != 0 || ref.reused != 1 {
		t.Fatalf("spent refresh token must not be exchanged, calls=%d reused=%d", ref.calls, ref.reused)
	}
	if st.sess == nil || st.sess.RefreshToken != "r2" || st.attached != "a2" {
		t.Fatalf("rotated session must survive, got %+v attached=%q", st.sess, st.attached)
	}
}

func TestUnlockReusesConcurrentRotation(t *testing.T) {
	st := signedIn()
	rs := &rotatingState{memState: st}
	ref := &fakeRefresher{state: st, fail: true}

	res := RunUnlock(context.Background(), UnlockDeps{
		Restore: RestoreDeps{State: rs, Refresher: ref},
		Gate:    biometric.NewScripted(true),
	})
	if res.Outcome != UnlockRestored || !res.Prompted {
		t.Fatalf("expected restored outcome, got %+v", res)
	}
	if ref.calls != 0 || st.sess == nil || st.sess.RefreshToken != "r2" {
		t.Fatalf("unexpected calls=%d sess=%+v", ref.calls, st.sess)
	}
}

func TestUnlockFailureAfterSignOut(t *testing.T) {
	st := signedIn()
	ref := &fakeRefresher{state: st, fail: true, during: func(ctx context.Context) {
		_ = st.Write(ctx, nil)
	}}

	res := RunUnlock(context.Background(), UnlockDeps{
		Restore: RestoreDeps{State: st, Refresher: ref},
		Gate:    biometric.NewScripted(true),
	})
	if res.Outcome != UnlockNoSession || !res.Prompted {
		t.Fatalf("unexpected %+v", res)
	}
}

func TestRestoreWithoutSession(t *testing.T) {
	st := &memState{}
	ref := &fakeRefresher{state: st}
	res := RunRestore(context.Background(), RestoreDeps{State: st, Refresher: ref})
	if res.Outcome != RestoreNoSession || ref.calls != 0 {
		t.Fatalf("unexpected %+v calls=%d", res, ref.calls)
	}
}

func TestUnlockCancelThenSuccess(t *testing.T) {
	st := signedIn()
	ref := &fakeRefresher{state: st, next: "a2"}
	gate := biometric.NewScripted(false, true)
	deps := UnlockDeps{Restore: RestoreDeps{State: st, Refresher: ref}, Gate: gate, Reason: "unlock"}

	res := RunUnlock(context.Background(), deps)
	if res.Outcome != UnlockCancelled {
		t.Fatalf("expected cancel, got %+v", res)
	}
	if st.sess == nil || st.sess.RefreshToken != "r1" || st.attached != "" || ref.calls != 0 {
		t.Fatalf("cancel must keep refresh token and detach: sess=%+v attached=%q", st.sess, st.attached)
	}

	res = RunUnlock(context.Background(), deps)
	if res.Outcome != UnlockRestored {
		t.Fatalf("expected restore, got %+v", res)
	}
	if len(ref.seen) != 1 || ref.seen[0] != "r1" || st.attached != "a2" {
		t.Fatalf("expected refresh with stored token, seen=%v attached=%q", ref.seen, st.attached)
	}
}

func TestUnlockPromptErrorIsCancel(t *testing.T) {
	st := signedIn()
	boom := errors.New("sensor")
	gate := biometric.Func{PromptFunc: func(context.Context, string) (bool, error) { return false, boom }}
	res := RunUnlock(context.Background(), UnlockDeps{Restore: RestoreDeps{State: st, Refresher: &fakeRefresher{state: st}}, Gate: gate})
	if res.Outcome != UnlockCancelled || !errors.Is(res.PromptErr, boom) || st.sess == nil {
		t.Fatalf("unexpected %+v", res)
	}
}

func TestUnlockWithoutCapabilityRestores(t *testing.T) {
	st := signedIn()
	ref := &fakeRefresher{state: st, next: "a2"}
	res := RunUnlock(context.Background(), UnlockDeps{Restore: RestoreDeps{State: st, Refresher: ref}, Gate: biometric.Unsupported{}})
	if res.Outcome != UnlockRestored || res.Prompted || ref.calls != 1 {
		t.Fatalf("unexpected %+v calls=%d", res, ref.calls)
	}
}

func TestUnlockRefreshFailureSignsOut(t *testing.T) {
	st := signedIn()
	res := RunUnlock(context.Background(), UnlockDeps{
		Restore: RestoreDeps{State: st, Refresher: &fakeRefresher{state: st, fail: true}},
		Gate:    biometric.NewScripted(true),
	})
	if res.Outcome != UnlockSignedOut || st.sess != nil {
		t.Fatalf("unexpected %+v", res)
	}
}

func TestUnlockNoSession(t *testing.T) {
	gate := biometric.NewScripted(true)
	st := &memState{}
	res := RunUnlock(context.Background(), UnlockDeps{Restore: RestoreDeps{State: st, Refresher: &fakeRefresher{state: st}}, Gate: gate})
	if res.Outcome != UnlockNoSession || gate.Prompts != 0 {
		t.Fatalf("expected no prompt without a session, got %+v prompts=%d", res, gate.Prompts)
	}
}

func timeoutDeps(st *memState, now time.Time, threshold time.Duration) TimeoutDeps {
	return TimeoutDeps{State: st, Now: func() time.Time { return now }, Threshold: threshold}
}

func TestEnforceTimeoutExpired(t *testing.T) {
	st := signedIn()
	base := time.UnixMilli(1_700_000_000_000)
	_ = st.MarkBackgrounded(context.Background(), base)

	res := RunEnforceTimeout(context.Background(), timeoutDeps(st, base.Add(1000*time.Second), 900*time.Second))
	if res.Authenticated || !res.Expired || st.sess != nil {
		t.Fatalf("expected expiry, got %+v sess=%+v", res, st.sess)
	}
}

func TestEnforceTimeoutWithinThreshold(t *testing.T) {
	st := signedIn()
	before := *st.sess
	base := time.UnixMilli(1_700_000_000_000)
	_ = st.MarkBackgrounded(context.Background(), base)

	res := RunEnforceTimeout(context.Background(), timeoutDeps(st, base.Add(500*time.Second), 900*time.Second))
	if !res.Authenticated || res.Expired {
		t.Fatalf("expected authenticated, got %+v", res)
	}
	if st.marked {
		t.Fatalf("expected marker cleared")
	}
	if *st.sess != before {
		t.Fatalf("tokens changed: %+v != %+v", *st.sess, before)
	}
}

func TestEnforceTimeoutZeroThreshold(t *testing.T) {
	for _, age := range []time.Duration{0, time.Second, time.Hour} {
		st := signedIn()
		base := time.UnixMilli(1_700_000_000_000)
		_ = st.MarkBackgrounded(context.Background(), base)
		res := RunEnforceTimeout(context.Background(), timeoutDeps(st, base.Add(age), 0))
		if res.Authenticated || st.sess != nil {
			t.Fatalf("age %s: expected re-authentication, got %+v", age, res)
		}
	}
}

func TestEnforceTimeoutNoMarker(t *testing.T) {
	st := signedIn()
	res := RunEnforceTimeout(context.Background(), timeoutDeps(st, time.Now(), time.Second))
	if !res.Authenticated || st.sess == nil {
		t.Fatalf("expected session kept without marker, got %+v", res)
	}
}

func TestEnforceTimeoutNoSession(t *testing.T) {
	st := &memState{}
	res := RunEnforceTimeout(context.Background(), timeoutDeps(st, time.Now(), time.Minute))
	if res.Authenticated || res.Expired || st.writes != 1 {
		t.Fatalf("expected cleared and unauthenticated, got %+v writes=%d", res, st.writes)
	}
}
