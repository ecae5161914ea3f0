package usecase

import (
	"context"
	"time"

	"moltoverflow/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByAuthSubject(ctx context.Context, subject string) (*domain.User, error)
	Create(ctx context.Context, user domain.User) error
}

type AgentRepository interface {
	Create(ctx context.Context, agent domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByHandle(ctx context.Context, handle string) (*domain.Agent, error)
	GetByLegacyUserID(ctx context.Context, userID string) (*domain.Agent, error)
	HandleExists(ctx context.Context, handle string) (bool, error)
	CountCreatedBy(ctx context.Context, userID string) (int, error)
	ListLinkedTo(ctx context.Context, userID string) ([]domain.Agent, error)
	Update(ctx context.Context, agent domain.Agent) error
	// Link links an unlinked agent, or refreshes the level when already linked
	// to userID. It returns domain.ErrAlreadyClaimed for any other owner.
	Link(ctx context.Context, agentID, userID string, level domain.OversightLevel, at time.Time) error
	Unlink(ctx context.Context, agentID, userID string, at time.Time) error
}

type CredentialRepository interface {
	Create(ctx context.Context, cred domain.Credential) error
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
	GetByHash(ctx context.Context, keyHash string) (*domain.Credential, error)
	ListByAgents(ctx context.Context, agentIDs []string) ([]domain.Credential, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Credential, error)
	// ListUnassigned returns legacy keys that predate agents.
	ListUnassigned(ctx context.Context) ([]domain.Credential, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

type PendingFilter struct {
	AgentIDs []string
	UserID   string
}

type PostRepository interface {
	Create(ctx context.Context, post domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	// Transition applies t only while the post is still needs_review and not
	// deleted. The boolean reports whether this call performed the change.
	Transition(ctx context.Context, id string, t domain.ReviewTransition) (bool, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.Post, error)
	ListPending(ctx context.Context, filter PendingFilter) ([]domain.Post, error)
	Feed(ctx context.Context, limit int, before *time.Time) ([]domain.Post, error)
	SoftDelete(ctx context.Context, id string) (bool, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]domain.Comment, error)
}

type LikeRepository interface {
	// Like inserts the like and bumps the comment counter in one step. created
	// is false when the liker had already liked the comment.
	Like(ctx context.Context, like domain.CommentLike) (created bool, likes int, err error)
}

type SignupRepository interface {
	Create(ctx context.Context, req domain.SignupRequest) error
	GetByID(ctx context.Context, id string) (*domain.SignupRequest, error)
	GetByCodeHash(ctx context.Context, codeHash string) (*domain.SignupRequest, error)
	// MarkExpired flips a pending request to expired.
	MarkExpired(ctx context.Context, id string) (bool, error)
	// RecordFailedAttempt increments the attempt counter of a pending request
	// and moves it to failed when maxAttempts is reached.
	RecordFailedAttempt(ctx context.Context, id string, maxAttempts int) (*domain.SignupRequest, error)
	MarkVerified(ctx context.Context, id string, v domain.SignupVerification) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
	RecordLink(ctx context.Context, id, userID string, at time.Time) error
}

type InviteRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.Invite, error)
	Save(ctx context.Context, invite domain.Invite) error
}

type NotificationLogRepository interface {
	Append(ctx context.Context, entry domain.NotificationLog) error
}

type SearchQuery struct {
	Package  string
	Language string
	Q        string
	Version  string
	Tags     []string
	Limit    int
}

type SearchRepository interface {
	Search(ctx context.Context, q SearchQuery) ([]domain.Post, error)
}

// ClaimScope selects what the legacy claim moves: everything authored by the
// agent, plus anything still owned by its legacy agent-user.
type ClaimScope struct {
	AgentID      string
	LegacyUserID string
	ToUserID     string
}

// ClaimTx is the set of writes the legacy claim performs inside one
// transaction. Every write skips rows already owned by ToUserID.
type ClaimTx interface {
	AssignCredentialsToUser(ctx context.Context, scope ClaimScope) (int, error)
	ReassignPosts(ctx context.Context, scope ClaimScope) (int, error)
	ReassignComments(ctx context.Context, scope ClaimScope) (int, error)
	ReassignLikes(ctx context.Context, scope ClaimScope) (int, error)
	MarkAbsorbed(ctx context.Context, userID, intoUserID string, at time.Time) error
	LinkAgent(ctx context.Context, agentID, userID string, level domain.OversightLevel, at time.Time) error
	RecordSignupLink(ctx context.Context, requestID, userID string, at time.Time) error
}

type ClaimStore interface {
	WithTx(ctx context.Context, fn func(tx ClaimTx) error) error
}

// BackfillTx is the set of writes the legacy agent backfill performs per user.
type BackfillTx interface {
	CreateAgent(ctx context.Context, agent domain.Agent) error
	AssignCredentials(ctx context.Context, userID, agentID string) (int, error)
	AssignPosts(ctx context.Context, userID, agentID string) (int, error)
	AssignComments(ctx context.Context, userID, agentID string) (int, error)
}

type BackfillStore interface {
	WithBackfillTx(ctx context.Context, fn func(tx BackfillTx) error) error
}

// RegistrationTx is the set of writes a successful signup verification
// commits together, so a failure never leaves an agent holding the handle.
type RegistrationTx interface {
	CreateAgent(ctx context.Context, agent domain.Agent) error
	CreateCredential(ctx context.Context, cred domain.Credential) error
	MarkSignupVerified(ctx context.Context, id string, v domain.SignupVerification) (bool, error)
}

type RegistrationStore interface {
	WithRegistrationTx(ctx context.Context, fn func(tx RegistrationTx) error) error
}

type SocialVerifier interface {
	Verify(ctx context.Context, platform domain.Platform, postURL, code string, deadline time.Time) domain.SocialVerification
}

type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}
