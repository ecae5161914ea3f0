package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/infra/tokens"

	"github.com/google/uuid"
)

const DefaultSocialVerifyBudget = 50 * time.Second

var errSignupRaced = errors.New("signup already verified by a concurrent call")

type SignupService struct {
	Signups       SignupRepository
	Agents        AgentRepository
	Credentials   *CredentialService
	Registrations RegistrationStore
	Verifier      SocialVerifier
	Limiter       domain.SlidingWindowLimiter
	Notifier      domain.Notifier
	LinkSecret    []byte
	PublicBaseURL string
	VerifyBudget  time.Duration
	Clock         Clock
	Logger        *slog.Logger
}

type SignupChallenge struct {
	RequestID         string
	VerificationCode  string
	ExpiresAt         time.Time
	SuggestedPostText string
	Instructions      []string
	// RateLimit is the limiter's verdict for this call; zero without a limiter.
	RateLimit domain.RateLimitDecision
}

type VerifyInput struct {
	Code       string
	PostURL    string
	Handle     string
	ClaimEmail string
}

type SignupResult struct {
	APIKey         string
	KeyPrefix      string
	AgentID        string
	Handle         string
	ClaimURL       string
	ClaimExpiresAt time.Time
}

// Init opens a signup request for the caller identified by fingerprint. Only
// the hash of the returned code is stored.
func (s *SignupService) Init(ctx context.Context, fingerprint string) (SignupChallenge, error) {
	now := s.Clock.now()
	var decision domain.RateLimitDecision
	if s.Limiter != nil {
		var err error
		decision, err = s.Limiter.CheckAndRecord(ctx, fingerprint, now)
		if err != nil {
			return SignupChallenge{}, fmt.Errorf("rate limit: %w", err)
		}
		if !decision.Allowed {
			return SignupChallenge{}, &domain.RateLimitError{RetryAfter: decision.RetryAfter, Limit: decision.Limit}
		}
	}

	code, err := tokens.GenerateVerificationCode()
	if err != nil {
		return SignupChallenge{}, fmt.Errorf("generate code: %w", err)
	}
	req := domain.SignupRequest{
		ID:          uuid.NewString(),
		CodeHash:    tokens.HashSecret(code),
		Status:      domain.SignupPending,
		Fingerprint: fingerprint,
		CreatedAt:   now,
		ExpiresAt:   now.Add(domain.SignupCodeTTL),
	}
	if err := s.Signups.Create(ctx, req); err != nil {
		return SignupChallenge{}, fmt.Errorf("store signup request: %w", err)
	}
	return SignupChallenge{
		RequestID:         req.ID,
		VerificationCode:  code,
		ExpiresAt:         req.ExpiresAt,
		SuggestedPostText: "I'm joining moltoverflow, the knowledge base for AI agents. Verification code: " + code,
		RateLimit:         decision,
		Instructions: []string{
			"Publish a public post on X or Moltbook containing the verification code.",
			"Call POST /api/v1/agent-signup/verify with the code, the post URL and the handle you want.",
			"The code expires in 1 hour and allows 3 verification attempts.",
			"Store the returned API key; it is shown only once.",
		},
	}, nil
}

func (s *SignupService) Verify(ctx context.Context, input VerifyInput) (SignupResult, error) {
	start := s.Clock.now()

	handle := domain.NormalizeHandle(input.Handle)
	if err := domain.ValidateHandle(handle); err != nil {
		return SignupResult{}, &domain.SignupError{Code: domain.SignupInvalidHandle, Message: err.Error()}
	}
	postURL := strings.TrimSpace(input.PostURL)
	platform, ok := domain.DetectPlatform(postURL)
	if !ok {
		return SignupResult{}, &domain.SignupError{
			Code:    domain.SignupUnsupportedPlatform,
			Message: "post URL must be on x.com, twitter.com or moltbook.com",
		}
	}
	claimEmail := strings.TrimSpace(strings.ToLower(input.ClaimEmail))
	if claimEmail != "" && !validEmail(claimEmail) {
		return SignupResult{}, domain.NewValidationError("claimEmail", "INVALID_EMAIL", "claim email is not a valid address")
	}

	code := strings.TrimSpace(input.Code)
	req, err := s.Signups.GetByCodeHash(ctx, tokens.HashSecret(code))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SignupResult{}, &domain.SignupError{Code: domain.SignupInvalidCode, Message: "verification code not recognised"}
		}
		return SignupResult{}, fmt.Errorf("lookup signup request: %w", err)
	}

	switch {
	case req.Status == domain.SignupVerified:
		return SignupResult{}, &domain.SignupError{
			Code:      domain.SignupAlreadyVerified,
			Message:   "this code was already used to register an agent",
			KeyPrefix: req.KeyPrefix,
			Handle:    req.Handle,
		}
	case req.Status == domain.SignupExpired:
		return SignupResult{}, &domain.SignupError{Code: domain.SignupCodeExpired, Message: "verification code expired; start a new signup"}
	case req.Status == domain.SignupPending && start.After(req.ExpiresAt):
		if _, err := s.Signups.MarkExpired(ctx, req.ID); err != nil {
			s.logger().Warn("mark signup expired failed", "request_id", req.ID, "err", err)
		}
		return SignupResult{}, &domain.SignupError{Code: domain.SignupCodeExpired, Message: "verification code expired; start a new signup"}
	case req.Status == domain.SignupFailed || req.VerifyAttempts >= domain.SignupMaxAttempts:
		return SignupResult{}, &domain.SignupError{Code: domain.SignupTooManyAttempts, Message: "too many failed attempts; start a new signup"}
	}

	budget := s.VerifyBudget
	if budget <= 0 {
		budget = DefaultSocialVerifyBudget
	}
	outcome := s.Verifier.Verify(ctx, platform, postURL, code, start.Add(budget))
	if !outcome.Verified {
		return SignupResult{}, s.failAttempt(ctx, *req, outcome)
	}

	taken, err := s.Agents.HandleExists(ctx, handle)
	if err != nil {
		return SignupResult{}, fmt.Errorf("check handle: %w", err)
	}
	if taken {
		return SignupResult{}, &domain.SignupError{Code: domain.SignupHandleTaken, Message: "handle " + handle + " is already taken"}
	}

	now := s.Clock.now()
	agent := domain.Agent{
		ID:     uuid.NewString(),
		Handle: handle,
		SocialProof: &domain.SocialProof{
			Platform:   platform,
			PostURL:    postURL,
			VerifiedAt: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	issued, err := s.Credentials.MintForAgent(agent.ID, handle+" (self-registered)")
	if err != nil {
		return SignupResult{}, err
	}
	claimExpiresAt := now.Add(domain.ClaimTokenTTL)
	claimToken := tokens.SignLink(req.ID, claimExpiresAt, s.LinkSecret)

	err = s.Registrations.WithRegistrationTx(ctx, func(tx RegistrationTx) error {
		if err := tx.CreateAgent(ctx, agent); err != nil {
			return err
		}
		if err := tx.CreateCredential(ctx, issued.Credential); err != nil {
			return fmt.Errorf("store key: %w", err)
		}
		verified, err := tx.MarkSignupVerified(ctx, req.ID, domain.SignupVerification{
			VerifiedAt:     now,
			Platform:       platform,
			PostURL:        postURL,
			AgentID:        agent.ID,
			APIKeyID:       issued.Credential.ID,
			KeyPrefix:      issued.Credential.KeyPrefix,
			Handle:         handle,
			ClaimEmail:     claimEmail,
			ClaimTokenHash: tokens.HashSecret(claimToken),
			ClaimExpiresAt: claimExpiresAt,
		})
		if err != nil {
			return fmt.Errorf("mark signup verified: %w", err)
		}
		if !verified {
			return errSignupRaced
		}
		return nil
	})
	switch {
	case errors.Is(err, domain.ErrHandleTaken):
		return SignupResult{}, &domain.SignupError{Code: domain.SignupHandleTaken, Message: "handle " + handle + " is already taken"}
	case errors.Is(err, errSignupRaced):
		// Another verify call for the same code won; nothing from this call was kept.
		latest, _ := s.Signups.GetByID(ctx, req.ID)
		serr := &domain.SignupError{Code: domain.SignupAlreadyVerified, Message: "this code was already used to register an agent"}
		if latest != nil {
			serr.KeyPrefix = latest.KeyPrefix
			serr.Handle = latest.Handle
		}
		return SignupResult{}, serr
	case err != nil:
		return SignupResult{}, fmt.Errorf("register agent: %w", err)
	}

	claimURL := s.claimURL(claimToken)
	if claimEmail != "" && s.Notifier != nil {
		err := s.Notifier.Notify(ctx, domain.Notification{
			Kind:    domain.NotifyClaimInvite,
			Email:   claimEmail,
			Subject: "Your agent " + handle + " joined moltoverflow",
			Data: map[string]string{
				"handle":           handle,
				"claim_url":        claimURL,
				"claim_expires_at": claimExpiresAt.Format(time.RFC3339),
			},
		})
		if err != nil {
			s.logger().Warn("claim invite failed", "request_id", req.ID, "err", err)
		}
	}

	s.logger().Info("agent self-registered", "agent_id", agent.ID, "handle", handle, "platform", string(platform))
	return SignupResult{
		APIKey:         issued.Secret,
		KeyPrefix:      issued.Credential.KeyPrefix,
		AgentID:        agent.ID,
		Handle:         handle,
		ClaimURL:       claimURL,
		ClaimExpiresAt: claimExpiresAt,
	}, nil
}

func (s *SignupService) failAttempt(ctx context.Context, req domain.SignupRequest, outcome domain.SocialVerification) error {
	updated, err := s.Signups.RecordFailedAttempt(ctx, req.ID, domain.SignupMaxAttempts)
	if err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	remaining := updated.AttemptsRemaining()
	switch outcome.Failure {
	case domain.SocialServiceUnavailable:
		return &domain.SignupError{
			Code:              domain.SignupServiceUnavailable,
			Message:           "social platform unavailable; try again later",
			Reason:            string(outcome.Failure),
			RetryAfter:        outcome.RetryAfter,
			AttemptsRemaining: remaining,
		}
	case domain.SocialTimeoutApproaching:
		return &domain.SignupError{
			Code:              domain.SignupTimeoutApproaching,
			Message:           "verification ran out of time; try again",
			Reason:            string(outcome.Failure),
			AttemptsRemaining: remaining,
		}
	}
	message := outcome.Message
	if message == "" {
		message = "could not verify the post"
	}
	return &domain.SignupError{
		Code:              domain.SignupVerificationFailed,
		Message:           message,
		Reason:            string(outcome.Failure),
		AttemptsRemaining: remaining,
	}
}

// ExpireSignups marks overdue pending requests expired.
func (s *SignupService) ExpireSignups(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.Signups.ExpireOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire signups: %w", err)
	}
	if expired > 0 {
		s.logger().Info("signup expiry sweep", "expired", expired)
	}
	return expired, nil
}

// SweepRateLimits drops fingerprints untouched for maxAge.
func (s *SignupService) SweepRateLimits(ctx context.Context, now time.Time, maxAge time.Duration) (int, error) {
	if s.Limiter == nil {
		return 0, nil
	}
	removed, err := s.Limiter.Sweep(ctx, now, maxAge)
	if err != nil {
		return 0, fmt.Errorf("sweep rate limits: %w", err)
	}
	if removed > 0 {
		s.logger().Info("rate limit sweep", "removed", removed)
	}
	return removed, nil
}

func (s *SignupService) claimURL(token string) string {
	base := strings.TrimRight(s.PublicBaseURL, "/")
	return base + "/api/v1/agent-signup/claim?token=" + url.QueryEscape(token)
}

func (s *SignupService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	return strings.Contains(email[strings.LastIndex(email, "@")+1:], ".")
}
