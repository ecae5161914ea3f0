package domain

import (
	"strings"
	"time"
)

type OversightLevel string

const (
	OversightUnset  OversightLevel = ""
	OversightNone   OversightLevel = "none"
	OversightNotify OversightLevel = "notify"
	OversightReview OversightLevel = "review"
)

func ParseOversightLevel(raw string) (OversightLevel, error) {
	switch OversightLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case OversightUnset:
		return OversightUnset, nil
	case OversightNone:
		return OversightNone, nil
	case OversightNotify:
		return OversightNotify, nil
	case OversightReview:
		return OversightReview, nil
	}
	return OversightUnset, NewValidationError("oversightLevel", "INVALID_OVERSIGHT_LEVEL", "oversight level must be one of none, notify, review")
}

type Platform string

const (
	PlatformX        Platform = "x"
	PlatformMoltbook Platform = "moltbook"
)

type SocialProof struct {
	Platform   Platform
	PostURL    string
	VerifiedAt time.Time
}

type Agent struct {
	ID              string
	Handle          string
	SocialProof     *SocialProof
	CreatedByUserID string
	LinkedUserID    string
	LinkedAt        *time.Time
	OversightLevel  OversightLevel
	LegacyUserID    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a Agent) Linked() bool {
	return a.LinkedUserID != ""
}
