package usecase_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/infra/ratelimit"
	"moltoverflow/internal/infra/tokens"
	"moltoverflow/internal/usecase"
)

type stubVerifier struct {
	result   domain.SocialVerification
	calls    int
	platform domain.Platform
	deadline time.Time
}

func (v *stubVerifier) Verify(_ context.Context, platform domain.Platform, _, _ string, deadline time.Time) domain.SocialVerification {
	v.calls++
	v.platform = platform
	v.deadline = deadline
	return v.result
}

func newSignupService(h *harness, verifier *stubVerifier) *usecase.SignupService {
	return &usecase.SignupService{
		Signups:       h.store.Signups(),
		Agents:        h.store.Agents(),
		Credentials:   h.credentials,
		Registrations: h.store,
		Verifier:      verifier,
		Limiter:       ratelimit.NewMemoryLimiter(ratelimit.Config{}),
		Notifier:      h.notifier,
		LinkSecret:    linkSecret,
		PublicBaseURL: "https://molt.test",
		Clock:         h.clock.Now,
	}
}

func TestSignup_HappyPath(t *testing.T) {
	h := newHarness(t)
	verifier := &stubVerifier{result: domain.SocialVerification{Verified: true}}
	svc := newSignupService(h, verifier)
	ctx := context.Background()

	challenge, err := svc.Init(ctx, "fp-1")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if len(challenge.VerificationCode) != 8 {
		t.Fatalf("unexpected code %q", challenge.VerificationCode)
	}
	if !challenge.ExpiresAt.Equal(baseTime.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", challenge.ExpiresAt)
	}

	res, err := svc.Verify(ctx, usecase.VerifyInput{
		Code:       challenge.VerificationCode,
		PostURL:    "https://x.com/someone/status/123",
		Handle:     "Helper-Bot",
		ClaimEmail: "owner@example.com",
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Handle != "helper-bot" || res.APIKey == "" || res.ClaimURL == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if verifier.platform != domain.PlatformX {
		t.Fatalf("platform = %s", verifier.platform)
	}
	if !verifier.deadline.Equal(baseTime.Add(usecase.DefaultSocialVerifyBudget)) {
		t.Fatalf("deadline = %v", verifier.deadline)
	}
	agentCtx, err := h.credentials.Authenticate(ctx, res.APIKey)
	if err != nil {
		t.Fatalf("issued key must authenticate: %v", err)
	}
	if agentCtx.Agent.Linked() || agentCtx.Agent.SocialProof == nil {
		t.Fatalf("self-registered agent should be unlinked with social proof: %+v", agentCtx.Agent)
	}
	if h.notifier.last().Kind != domain.NotifyClaimInvite {
		t.Fatalf("expected claim invite, got %s", h.notifier.last().Kind)
	}

	_, err = svc.Verify(ctx, usecase.VerifyInput{
		Code:    challenge.VerificationCode,
		PostURL: "https://x.com/someone/status/123",
		Handle:  "other-bot",
	})
	var serr *domain.SignupError
	if !errors.As(err, &serr) || serr.Code != domain.SignupAlreadyVerified {
		t.Fatalf("expected ALREADY_VERIFIED, got %v", err)
	}
	if serr.KeyPrefix != agentCtx.Credential.KeyPrefix || serr.Handle != "helper-bot" {
		t.Fatalf("already-verified error should carry prefix and handle: %+v", serr)
	}
}

func TestSignup_InitRateLimited(t *testing.T) {
	h := newHarness(t)
	svc := newSignupService(h, &stubVerifier{})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := svc.Init(ctx, "fp-busy"); err != nil {
			t.Fatalf("init %d: %v", i, err)
		}
	}
	_, err := svc.Init(ctx, "fp-busy")
	var rerr *domain.RateLimitError
	if !errors.As(err, &rerr) || !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if rerr.RetryAfter != time.Hour {
		t.Fatalf("retry after = %v", rerr.RetryAfter)
	}
	if _, err := svc.Init(ctx, "fp-other"); err != nil {
		t.Fatalf("other fingerprint must be unaffected: %v", err)
	}
}

func TestSignup_FailedAttemptsExhaustCode(t *testing.T) {
	h := newHarness(t)
	verifier := &stubVerifier{result: domain.SocialVerification{Failure: domain.SocialCodeNotFound, Message: "code not in post"}}
	svc := newSignupService(h, verifier)
	ctx := context.Background()
	challenge, _ := svc.Init(ctx, "fp-2")
	input := usecase.VerifyInput{Code: challenge.VerificationCode, PostURL: "https://www.moltbook.com/post/abc", Handle: "tries-bot"}

	for want := 2; want >= 0; want-- {
		_, err := svc.Verify(ctx, input)
		var serr *domain.SignupError
		if !errors.As(err, &serr) || serr.Code != domain.SignupVerificationFailed {
			t.Fatalf("expected VERIFICATION_FAILED, got %v", err)
		}
		if serr.AttemptsRemaining != want {
			t.Fatalf("attempts remaining = %d, want %d", serr.AttemptsRemaining, want)
		}
	}
	_, err := svc.Verify(ctx, input)
	var serr *domain.SignupError
	if !errors.As(err, &serr) || serr.Code != domain.SignupTooManyAttempts {
		t.Fatalf("expected MAX_ATTEMPTS, got %v", err)
	}
	if verifier.calls != 3 {
		t.Fatalf("social service must not be called after exhaustion, calls=%d", verifier.calls)
	}
}

func TestSignup_ExpiredCode(t *testing.T) {
	h := newHarness(t)
	verifier := &stubVerifier{result: domain.SocialVerification{Verified: true}}
	svc := newSignupService(h, verifier)
	ctx := context.Background()
	challenge, _ := svc.Init(ctx, "fp-3")
	h.clock.Advance(time.Hour + time.Second)

	_, err := svc.Verify(ctx, usecase.VerifyInput{Code: challenge.VerificationCode, PostURL: "https://x.com/a/status/1", Handle: "late-bot"})
	var serr *domain.SignupError
	if !errors.As(err, &serr) || serr.Code != domain.SignupCodeExpired {
		t.Fatalf("expected CODE_EXPIRED, got %v", err)
	}
	if verifier.calls != 0 {
		t.Fatalf("expired code must not reach the social service")
	}
}

func TestSignup_RejectsBeforeCallingSocialService(t *testing.T) {
	h := newHarness(t)
	verifier := &stubVerifier{result: domain.SocialVerification{Verified: true}}
	svc := newSignupService(h, verifier)
	ctx := context.Background()
	challenge, _ := svc.Init(ctx, "fp-4")

	cases := []struct {
		name  string
		input usecase.VerifyInput
		code  domain.SignupErrorCode
	}{
		{"bad handle", usecase.VerifyInput{Code: challenge.VerificationCode, PostURL: "https://x.com/a/status/1", Handle: "x"}, domain.SignupInvalidHandle},
		{"unsupported platform", usecase.VerifyInput{Code: challenge.VerificationCode, PostURL: "https://mastodon.social/@a/1", Handle: "fine-bot"}, domain.SignupUnsupportedPlatform},
		{"unknown code", usecase.VerifyInput{Code: "ZZZZZZZZ", PostURL: "https://x.com/a/status/1", Handle: "fine-bot"}, domain.SignupInvalidCode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Verify(ctx, tc.input)
			var serr *domain.SignupError
			if !errors.As(err, &serr) || serr.Code != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
	if verifier.calls != 0 {
		t.Fatalf("social service called %d times", verifier.calls)
	}
}

func TestSignup_HandleTakenAfterVerification(t *testing.T) {
	h := newHarness(t)
	h.agentFor(t, h.human(t, "olga"), "taken-bot", domain.OversightReview)
	verifier := &stubVerifier{result: domain.SocialVerification{Verified: true}}
	svc := newSignupService(h, verifier)
	ctx := context.Background()
	challenge, _ := svc.Init(ctx, "fp-5")

	_, err := svc.Verify(ctx, usecase.VerifyInput{Code: challenge.VerificationCode, PostURL: "https://x.com/a/status/1", Handle: "taken-bot"})
	if !errors.Is(err, domain.ErrHandleTaken) {
		t.Fatalf("expected handle taken, got %v", err)
	}
	req, _ := h.store.Signups().GetByCodeHash(ctx, tokens.HashSecret(challenge.VerificationCode))
	if req.Status != domain.SignupPending {
		t.Fatalf("request should stay pending so another handle can be tried, got %s", req.Status)
	}
}

// flakyRegistrations runs the real store transaction with one write swapped out.
type flakyRegistrations struct {
	inner          usecase.RegistrationStore
	failCredential int
	loseRace       bool
	credentialIDs  []string
}

func (f *flakyRegistrations) WithRegistrationTx(ctx context.Context, fn func(tx usecase.RegistrationTx) error) error {
	return f.inner.WithRegistrationTx(ctx, func(tx usecase.RegistrationTx) error {
		return fn(&flakyRegistrationTx{RegistrationTx: tx, parent: f})
	})
}

type flakyRegistrationTx struct {
	usecase.RegistrationTx
	parent *flakyRegistrations
}

func (t *flakyRegistrationTx) CreateCredential(ctx context.Context, cred domain.Credential) error {
	if t.parent.failCredential > 0 {
		t.parent.failCredential--
		return errors.New("db blip")
	}
	t.parent.credentialIDs = append(t.parent.credentialIDs, cred.ID)
	return t.RegistrationTx.CreateCredential(ctx, cred)
}

func (t *flakyRegistrationTx) MarkSignupVerified(ctx context.Context, id string, v domain.SignupVerification) (bool, error) {
	if t.parent.loseRace {
		return false, nil
	}
	return t.RegistrationTx.MarkSignupVerified(ctx, id, v)
}

func TestSignup_FailedRegistrationReleasesHandle(t *testing.T) {
	h := newHarness(t)
	svc := newSignupService(h, &stubVerifier{result: domain.SocialVerification{Verified: true}})
	svc.Registrations = &flakyRegistrations{inner: h.store, failCredential: 1}
	ctx := context.Background()
	challenge, _ := svc.Init(ctx, "fp-flaky")
	input := usecase.VerifyInput{Code: challenge.VerificationCode, PostURL: "https://x.com/a/status/1", Handle: "steady-bot"}

	if _, err := svc.Verify(ctx, input); err == nil {
		t.Fatal("expected the key write failure to surface")
	}
	if _, err := h.store.Agents().GetByHandle(ctx, "steady-bot"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("failed registration must not keep the agent, got %v", err)
	}

	res, err := svc.Verify(ctx, input)
	if err != nil {
		t.Fatalf("retry should succeed with the same handle: %v", err)
	}
	if res.Handle != "steady-bot" {
		t.Fatalf("unexpected handle %q", res.Handle)
	}
}

func TestSignup_LosingConcurrentVerifyKeepsNothing(t *testing.T) {
	h := newHarness(t)
	svc := newSignupService(h, &stubVerifier{result: domain.SocialVerification{Verified: true}})
	registrations := &flakyRegistrations{inner: h.store, loseRace: true}
	svc.Registrations = registrations
	ctx := context.Background()
	challenge, _ := svc.Init(ctx, "fp-race")

	_, err := svc.Verify(ctx, usecase.VerifyInput{Code: challenge.VerificationCode, PostURL: "https://x.com/a/status/1", Handle: "late-bot"})
	var serr *domain.SignupError
	if !errors.As(err, &serr) || serr.Code != domain.SignupAlreadyVerified {
		t.Fatalf("expected ALREADY_VERIFIED, got %v", err)
	}
	if _, err := h.store.Agents().GetByHandle(ctx, "late-bot"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("losing call must not keep its agent, got %v", err)
	}
	if len(registrations.credentialIDs) != 1 {
		t.Fatalf("expected one key write, got %d", len(registrations.credentialIDs))
	}
	if _, err := h.store.Credentials().GetByID(ctx, registrations.credentialIDs[0]); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("losing call must not keep its key, got %v", err)
	}
}

func TestSignup_CodeMatchIsExact(t *testing.T) {
	h := newHarness(t)
	verifier := &stubVerifier{result: domain.SocialVerification{Verified: true}}
	svc := newSignupService(h, verifier)
	ctx := context.Background()
	challenge, _ := svc.Init(ctx, "fp-case")

	_, err := svc.Verify(ctx, usecase.VerifyInput{
		Code:    strings.ToLower(challenge.VerificationCode),
		PostURL: "https://x.com/a/status/1",
		Handle:  "case-bot",
	})
	var serr *domain.SignupError
	if !errors.As(err, &serr) || serr.Code != domain.SignupInvalidCode {
		t.Fatalf("expected INVALID_CODE for a case-changed code, got %v", err)
	}
	if verifier.calls != 0 {
		t.Fatal("social service must not be called for an unknown code")
	}
}

func TestSignup_ServiceUnavailableIsRetryable(t *testing.T) {
	h := newHarness(t)
	verifier := &stubVerifier{result: domain.SocialVerification{Failure: domain.SocialServiceUnavailable, RetryAfter: 30 * time.Second}}
	svc := newSignupService(h, verifier)
	ctx := context.Background()
	challenge, _ := svc.Init(ctx, "fp-6")

	_, err := svc.Verify(ctx, usecase.VerifyInput{Code: challenge.VerificationCode, PostURL: "https://x.com/a/status/1", Handle: "retry-bot"})
	var serr *domain.SignupError
	if !errors.As(err, &serr) || !serr.Retryable() || serr.RetryAfter != 30*time.Second {
		t.Fatalf("expected retryable SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestSignup_ExpireSweep(t *testing.T) {
	h := newHarness(t)
	svc := newSignupService(h, &stubVerifier{})
	ctx := context.Background()
	_, _ = svc.Init(ctx, "fp-7")
	_, _ = svc.Init(ctx, "fp-8")

	n, err := svc.ExpireSignups(ctx, baseTime.Add(30*time.Minute))
	if err != nil || n != 0 {
		t.Fatalf("nothing should expire yet: n=%d err=%v", n, err)
	}
	n, err = svc.ExpireSignups(ctx, baseTime.Add(2*time.Hour))
	if err != nil || n != 2 {
		t.Fatalf("expected 2 expired: n=%d err=%v", n, err)
	}
}

// verifiedSignup runs a full self-registration and returns the claim token.
func verifiedSignup(t *testing.T, h *harness, handle string) (usecase.SignupResult, string) {
	t.Helper()
	svc := newSignupService(h, &stubVerifier{result: domain.SocialVerification{Verified: true}})
	ctx := context.Background()
	challenge, err := svc.Init(ctx, "fp-"+handle)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	res, err := svc.Verify(ctx, usecase.VerifyInput{Code: challenge.VerificationCode, PostURL: "https://x.com/a/status/9", Handle: handle})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	parsed, err := url.Parse(res.ClaimURL)
	if err != nil {
		t.Fatalf("claim url: %v", err)
	}
	return res, parsed.Query().Get("token")
}
