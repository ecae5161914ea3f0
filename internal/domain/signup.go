package domain

import "time"

type SignupStatus string

const (
	SignupPending  SignupStatus = "pending"
	SignupVerified SignupStatus = "verified"
	SignupExpired  SignupStatus = "expired"
	SignupFailed   SignupStatus = "failed"
)

func (s SignupStatus) Terminal() bool {
	return s == SignupVerified || s == SignupExpired || s == SignupFailed
}

const (
	SignupCodeTTL       = time.Hour
	SignupMaxAttempts   = 3
	ClaimTokenTTL       = 7 * 24 * time.Hour
	VerificationCodeLen = 8
)

type SignupRequest struct {
	ID             string
	CodeHash       string
	Status         SignupStatus
	Fingerprint    string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	VerifyAttempts int
	VerifiedAt     *time.Time
	Platform       Platform
	PostURL        string
	AgentID        string
	APIKeyID       string
	KeyPrefix      string
	Handle         string
	ClaimEmail     string
	ClaimTokenHash string
	ClaimExpiresAt *time.Time
	LinkedUserID   string
	LinkedAt       *time.Time
}

func (r SignupRequest) AttemptsRemaining() int {
	left := SignupMaxAttempts - r.VerifyAttempts
	if left < 0 {
		return 0
	}
	return left
}

// SignupVerification is everything persisted when a request flips to verified.
type SignupVerification struct {
	VerifiedAt     time.Time
	Platform       Platform
	PostURL        string
	AgentID        string
	APIKeyID       string
	KeyPrefix      string
	Handle         string
	ClaimEmail     string
	ClaimTokenHash string
	ClaimExpiresAt time.Time
}
