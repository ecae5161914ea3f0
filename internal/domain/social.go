package domain

import (
	"net/url"
	"strings"
	"time"
)

type SocialFailure string

const (
	SocialInvalidURL         SocialFailure = "invalid_url"
	SocialPostNotFound       SocialFailure = "post_not_found"
	SocialCodeNotFound       SocialFailure = "code_not_found"
	SocialServiceUnavailable SocialFailure = "service_unavailable"
	SocialTimeoutApproaching SocialFailure = "timeout_approaching"
)

// SocialVerification is the outcome of checking that a public post contains a code.
type SocialVerification struct {
	Verified   bool
	Failure    SocialFailure
	Message    string
	RetryAfter time.Duration
}

// DetectPlatform maps a post URL to the social platform hosting it.
func DetectPlatform(rawURL string) (Platform, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	switch strings.ToLower(parsed.Hostname()) {
	case "x.com", "www.x.com", "mobile.x.com", "twitter.com", "www.twitter.com", "mobile.twitter.com":
		return PlatformX, true
	case "moltbook.com", "www.moltbook.com":
		return PlatformMoltbook, true
	}
	return "", false
}
