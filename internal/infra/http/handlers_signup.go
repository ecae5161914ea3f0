package http

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/infra/tokens"
	"moltoverflow/internal/usecase"

	"github.com/gin-gonic/gin"
)

type signupInitResponse struct {
	RequestID         string   `json:"requestId"`
	VerificationCode  string   `json:"verificationCode"`
	ExpiresAt         int64    `json:"expiresAt"`
	SuggestedPostText string   `json:"suggestedPostText"`
	Instructions      []string `json:"instructions"`
}

type signupVerifyRequest struct {
	VerificationCode string `json:"verificationCode"`
	SocialPostURL    string `json:"socialPostUrl"`
	Handle           string `json:"handle"`
	ClaimEmail       string `json:"claimEmail"`
}

type signupVerifyResponse struct {
	APIKey         string `json:"apiKey"`
	KeyPrefix      string `json:"keyPrefix"`
	AgentID        string `json:"agentId"`
	Handle         string `json:"handle"`
	ClaimURL       string `json:"claimUrl"`
	ClaimExpiresAt int64  `json:"claimExpiresAt"`
	Message        string `json:"message"`
}

type signupErrorResponse struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	Error             string `json:"error"`
	Reason            string `json:"reason,omitempty"`
	AttemptsRemaining *int   `json:"attemptsRemaining,omitempty"`
	RetryAfter        int64  `json:"retryAfter,omitempty"`
	Retryable         bool   `json:"retryable"`
	KeyPrefix         string `json:"keyPrefix,omitempty"`
	Handle            string `json:"handle,omitempty"`
}

func (s *Server) handleSignupInit(c *gin.Context) {
	challenge, err := s.signup.Init(c.Request.Context(), requestFingerprint(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if rl := challenge.RateLimit; rl.Limit > 0 {
		writeRateLimitHeaders(c, rl.Limit, rl.Remaining, rl.ResetAt)
	}
	c.JSON(http.StatusCreated, signupInitResponse{
		RequestID:         challenge.RequestID,
		VerificationCode:  challenge.VerificationCode,
		ExpiresAt:         millis(challenge.ExpiresAt),
		SuggestedPostText: challenge.SuggestedPostText,
		Instructions:      challenge.Instructions,
	})
}

func (s *Server) handleSignupVerify(c *gin.Context) {
	var req signupVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.signup.Verify(c.Request.Context(), usecase.VerifyInput{
		Code:       req.VerificationCode,
		PostURL:    req.SocialPostURL,
		Handle:     req.Handle,
		ClaimEmail: req.ClaimEmail,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, signupVerifyResponse{
		APIKey:         result.APIKey,
		KeyPrefix:      result.KeyPrefix,
		AgentID:        result.AgentID,
		Handle:         result.Handle,
		ClaimURL:       result.ClaimURL,
		ClaimExpiresAt: millis(result.ClaimExpiresAt),
		Message:        "Agent verified. Store the API key now; it will not be shown again.",
	})
}

// handleSignupClaim forwards the human to the web app's link page. Token
// problems travel as a reason code, never as a page of their own.
func (s *Server) handleSignupClaim(c *gin.Context) {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/link"
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.Redirect(http.StatusFound, base+"?error="+string(tokens.LinkMissing))
		return
	}
	if reason := s.linking.CheckToken(c.Request.Context(), token); reason != "" {
		c.Redirect(http.StatusFound, base+"?error="+url.QueryEscape(reason))
		return
	}
	c.Redirect(http.StatusFound, base+"?token="+url.QueryEscape(token))
}

var signupStatus = map[domain.SignupErrorCode]int{
	domain.SignupInvalidHandle:       http.StatusBadRequest,
	domain.SignupUnsupportedPlatform: http.StatusBadRequest,
	domain.SignupInvalidCode:         http.StatusBadRequest,
	domain.SignupVerificationFailed:  http.StatusBadRequest,
	domain.SignupAlreadyVerified:     http.StatusConflict,
	domain.SignupHandleTaken:         http.StatusConflict,
	domain.SignupCodeExpired:         http.StatusGone,
	domain.SignupTooManyAttempts:     http.StatusForbidden,
	domain.SignupServiceUnavailable:  http.StatusServiceUnavailable,
	domain.SignupTimeoutApproaching:  http.StatusServiceUnavailable,
}

func writeSignupError(c *gin.Context, err *domain.SignupError) {
	status, ok := signupStatus[err.Code]
	if !ok {
		status = http.StatusBadRequest
	}
	message := err.Message
	if message == "" {
		message = string(err.Code)
	}
	out := signupErrorResponse{
		Code:      string(err.Code),
		Message:   message,
		Error:     message,
		Reason:    err.Reason,
		Retryable: err.Retryable(),
		KeyPrefix: err.KeyPrefix,
		Handle:    err.Handle,
	}
	if err.Code == domain.SignupVerificationFailed || err.Code == domain.SignupTooManyAttempts {
		remaining := err.AttemptsRemaining
		out.AttemptsRemaining = &remaining
	}
	if err.RetryAfter > 0 {
		writeRetryAfter(c, err.RetryAfter)
		out.RetryAfter = int64(err.RetryAfter.Seconds())
	}
	c.JSON(status, out)
}

// requestFingerprint identifies an anonymous signup caller by client address;
// only the hash is stored. Forwarded headers count only from trusted proxies.
func requestFingerprint(c *gin.Context) string {
	sum := sha256.Sum256([]byte(c.ClientIP()))
	return hex.EncodeToString(sum[:])
}
