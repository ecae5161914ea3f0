package tokens

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// LinkFailure distinguishes rejection causes for logs and the linking page.
// The email-action surface never exposes it.
type LinkFailure string

const (
	LinkOK           LinkFailure = ""
	LinkMissing      LinkFailure = "missing_token"
	LinkMalformed    LinkFailure = "malformed_token"
	LinkBadSignature LinkFailure = "invalid_signature"
	LinkExpired      LinkFailure = "expired"
)

type LinkClaims struct {
	SubjectID string
	ExpiresAt time.Time
}

// SignLink builds base64url("subject:expiryMillis:hex(hmac(subject:expiryMillis))").
func SignLink(subjectID string, expiresAt time.Time, secret []byte) string {
	payload := subjectID + ":" + strconv.FormatInt(expiresAt.UnixMilli(), 10)
	sig := linkMAC(payload, secret)
	return base64.RawURLEncoding.EncodeToString([]byte(payload + ":" + sig))
}

func VerifyLink(token string, secret []byte, now time.Time) (LinkClaims, bool) {
	claims, failure := VerifyLinkDetailed(token, secret, now)
	return claims, failure == LinkOK
}

func VerifyLinkDetailed(token string, secret []byte, now time.Time) (LinkClaims, LinkFailure) {
	if strings.TrimSpace(token) == "" {
		return LinkClaims{}, LinkMissing
	}
	if len(secret) == 0 {
		return LinkClaims{}, LinkBadSignature
	}
	raw, ok := decodeToken(token)
	if !ok {
		return LinkClaims{}, LinkMalformed
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 3 || parts[0] == "" {
		return LinkClaims{}, LinkMalformed
	}
	expiryMillis, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return LinkClaims{}, LinkMalformed
	}
	if !equalSig(parts[2], linkMAC(parts[0]+":"+parts[1], secret)) {
		return LinkClaims{}, LinkBadSignature
	}
	expiresAt := time.UnixMilli(expiryMillis)
	if now.After(expiresAt) {
		return LinkClaims{}, LinkExpired
	}
	return LinkClaims{SubjectID: parts[0], ExpiresAt: expiresAt}, LinkOK
}

func linkMAC(payload string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
