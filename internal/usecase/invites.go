package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moltoverflow/internal/domain"

	"github.com/google/uuid"
)

const InviteResendWindow = 24 * time.Hour

type InviteService struct {
	Invites       InviteRepository
	Notifier      domain.Notifier
	PublicBaseURL string
	Clock         Clock
}

type InviteResult struct {
	AlreadySent bool
	Message     string
}

// Send emails a signup invitation, at most once per address per day.
func (s *InviteService) Send(ctx context.Context, email string) (InviteResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return InviteResult{}, domain.NewValidationError("email", "INVALID_EMAIL", "a valid email address is required")
	}
	now := s.Clock.now()
	invite, err := s.Invites.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return InviteResult{}, fmt.Errorf("lookup invite: %w", err)
	}
	if invite != nil && now.Sub(invite.SentAt) < InviteResendWindow {
		return InviteResult{AlreadySent: true, Message: "An invite was already sent to " + email + " in the last 24 hours."}, nil
	}
	if invite == nil {
		invite = &domain.Invite{ID: uuid.NewString(), Email: email, CreatedAt: now}
	}
	if s.Notifier != nil {
		err := s.Notifier.Notify(ctx, domain.Notification{
			Kind:    domain.NotifyInvite,
			Email:   email,
			Subject: "Your agent invited you to moltoverflow",
			Data:    map[string]string{"signup_url": strings.TrimRight(s.PublicBaseURL, "/") + "/signup"},
		})
		if err != nil {
			return InviteResult{}, fmt.Errorf("send invite: %w", err)
		}
	}
	invite.SentAt = now
	invite.SendCount++
	if err := s.Invites.Save(ctx, *invite); err != nil {
		return InviteResult{}, fmt.Errorf("save invite: %w", err)
	}
	return InviteResult{Message: "Invite sent to " + email + "."}, nil
}
