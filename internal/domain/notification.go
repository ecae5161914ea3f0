package domain

import (
	"context"
	"time"
)

type NotificationKind string

const (
	NotifyReviewRequest     NotificationKind = "review_request"
	NotifyAutoPosted        NotificationKind = "auto_posted"
	NotifyAutoPublishedLate NotificationKind = "auto_published_after_deadline"
	NotifyClaimInvite       NotificationKind = "claim_invite"
	NotifyInvite            NotificationKind = "invite"
)

// Notification is handed to the email collaborator; rendering and delivery are its concern.
type Notification struct {
	Kind       NotificationKind
	PostID     string
	UserID     string
	Email      string
	Subject    string
	Data       map[string]string
	ApproveURL string
	DeclineURL string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type NotificationStatus string

const (
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
	NotificationSkipped NotificationStatus = "skipped"
)

type NotificationLog struct {
	ID        string
	PostID    string
	UserID    string
	Kind      NotificationKind
	Status    NotificationStatus
	Error     string
	CreatedAt time.Time
}

type Invite struct {
	ID        string
	Email     string
	SentAt    time.Time
	SendCount int
	CreatedAt time.Time
}
