package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/infra/tokens"

	"github.com/google/uuid"
)

const (
	DefaultAutoPublishBatch = 100
	DefaultFeedLimit        = 20
	MaxFeedLimit            = 100
)

type PostService struct {
	Posts         PostRepository
	Agents        AgentRepository
	Users         UserRepository
	Policy        domain.PostPolicy
	Notifier      domain.Notifier
	Engine        *OversightEngine
	ActionSecret  []byte
	PublicBaseURL string
	BatchSize     int
	Clock         Clock
	Logger        *slog.Logger
}

type CreatePostResult struct {
	ID             string
	Status         domain.PostStatus
	PublishedAt    *time.Time
	ReviewDeadline time.Time
	Message        string
	Decision       OversightDecision
}

type ReviewResult struct {
	PostID           string
	Status           domain.PostStatus
	AlreadyProcessed bool
}

type EmailActionOutcome string

const (
	EmailActionProcessed        EmailActionOutcome = "processed"
	EmailActionAlreadyProcessed EmailActionOutcome = "already_processed"
	EmailActionInvalid          EmailActionOutcome = "invalid"
	EmailActionNotFound         EmailActionOutcome = "not_found"
)

type EmailActionResult struct {
	Outcome EmailActionOutcome
	Action  tokens.Action
	Post    *domain.Post
}

type SweepResult struct {
	Scanned      int
	Transitioned int
	Failed       int
}

func (s *PostService) Create(ctx context.Context, caller domain.AgentContext, draft domain.PostDraft) (CreatePostResult, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return CreatePostResult{}, err
	}
	now := s.Clock.now()
	decision := s.engine().Decide(OversightInputFor(caller.Agent, caller.Credential))

	post := domain.Post{
		ID:             uuid.NewString(),
		AgentID:        caller.Agent.ID,
		UserID:         caller.Credential.UserID,
		APIKeyID:       caller.Credential.ID,
		Title:          draft.Title,
		Content:        draft.Content,
		Tags:           draft.Tags,
		Package:        draft.Package,
		Language:       draft.Language,
		Version:        draft.Version,
		Status:         decision.Status(),
		ReviewDeadline: now.Add(domain.ReviewWindow),
		SearchText:     domain.BuildSearchText(draft.Title, draft.Content, draft.Tags, draft.Package, draft.Language),
		CreatedAt:      now,
	}
	if decision.AutoPublish {
		publishedAt := now
		verified := false
		post.PublishedAt = &publishedAt
		post.IsHumanVerified = &verified
	}
	if err := s.Posts.Create(ctx, post); err != nil {
		return CreatePostResult{}, fmt.Errorf("create post: %w", err)
	}

	if decision.Notify != "" {
		s.notify(ctx, decision.Notify, decision.NotifyUserID, post, caller.Agent.Handle)
	}

	result := CreatePostResult{
		ID:             post.ID,
		Status:         post.Status,
		PublishedAt:    post.PublishedAt,
		ReviewDeadline: post.ReviewDeadline,
		Decision:       decision,
	}
	if decision.AutoPublish {
		result.Message = "Post published."
	} else {
		result.Message = "Post submitted for review. It will be auto-published on " +
			post.ReviewDeadline.Format(time.RFC1123) + " unless declined."
	}
	return result, nil
}

func (s *PostService) Approve(ctx context.Context, actor domain.Principal, postID string, edits domain.PostEdits, reassignAgentID string) (ReviewResult, error) {
	if err := edits.Validate(); err != nil {
		return ReviewResult{}, err
	}
	post, err := s.Posts.GetByID(ctx, postID)
	if err != nil {
		return ReviewResult{}, err
	}
	if err := s.authorize(ctx, actor, *post, domain.PolicyActionReview); err != nil {
		return ReviewResult{}, err
	}
	if reassignAgentID != "" {
		if err := s.authorize(ctx, actor, *post, domain.PolicyActionReassign); err != nil {
			return ReviewResult{}, err
		}
		if _, err := s.Agents.GetByID(ctx, reassignAgentID); err != nil {
			return ReviewResult{}, fmt.Errorf("reassign target: %w", err)
		}
	}

	transition := domain.ReviewTransition{
		To:              domain.PostApproved,
		At:              s.Clock.now(),
		ReviewedBy:      reviewerID(actor),
		ReassignAgentID: reassignAgentID,
	}
	applyEdits(&transition, *post, edits)
	return s.transition(ctx, *post, transition)
}

func (s *PostService) Decline(ctx context.Context, actor domain.Principal, postID, reason string) (ReviewResult, error) {
	post, err := s.Posts.GetByID(ctx, postID)
	if err != nil {
		return ReviewResult{}, err
	}
	if err := s.authorize(ctx, actor, *post, domain.PolicyActionReview); err != nil {
		return ReviewResult{}, err
	}
	return s.transition(ctx, *post, domain.ReviewTransition{
		To:            domain.PostDeclined,
		At:            s.Clock.now(),
		ReviewedBy:    reviewerID(actor),
		DeclineReason: strings.TrimSpace(reason),
	})
}

func (s *PostService) ApproveViaEmail(ctx context.Context, token string) (EmailActionResult, error) {
	return s.emailAction(ctx, token, tokens.ActionApprove)
}

func (s *PostService) DeclineViaEmail(ctx context.Context, token string) (EmailActionResult, error) {
	return s.emailAction(ctx, token, tokens.ActionDecline)
}

func (s *PostService) emailAction(ctx context.Context, token string, action tokens.Action) (EmailActionResult, error) {
	claims, ok := tokens.VerifyAction(token, s.ActionSecret)
	if !ok || claims.Action != action {
		return EmailActionResult{Outcome: EmailActionInvalid, Action: action}, nil
	}
	post, err := s.Posts.GetByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return EmailActionResult{Outcome: EmailActionNotFound, Action: action}, nil
		}
		return EmailActionResult{}, err
	}
	if post.Status != domain.PostNeedsReview || post.IsDeleted {
		return EmailActionResult{Outcome: EmailActionAlreadyProcessed, Action: action, Post: post}, nil
	}

	reviewer, err := s.responsibleHuman(ctx, *post)
	if err != nil {
		return EmailActionResult{}, err
	}
	transition := domain.ReviewTransition{At: s.Clock.now(), ReviewedBy: reviewer}
	if action == tokens.ActionApprove {
		transition.To = domain.PostApproved
	} else {
		transition.To = domain.PostDeclined
	}
	result, err := s.transition(ctx, *post, transition)
	if err != nil {
		return EmailActionResult{}, err
	}
	updated, err := s.Posts.GetByID(ctx, post.ID)
	if err != nil {
		updated = post
	}
	if result.AlreadyProcessed {
		return EmailActionResult{Outcome: EmailActionAlreadyProcessed, Action: action, Post: updated}, nil
	}
	return EmailActionResult{Outcome: EmailActionProcessed, Action: action, Post: updated}, nil
}

// ProcessAutoPublish moves overdue needs_review posts to auto_published. A
// single bad record is logged and skipped.
func (s *PostService) ProcessAutoPublish(ctx context.Context, now time.Time) (SweepResult, error) {
	batch := s.BatchSize
	if batch <= 0 {
		batch = DefaultAutoPublishBatch
	}
	overdue, err := s.Posts.ListOverdue(ctx, now, batch)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list overdue posts: %w", err)
	}
	result := SweepResult{Scanned: len(overdue)}
	logger := s.logger()
	for _, post := range overdue {
		changed, err := s.Posts.Transition(ctx, post.ID, domain.ReviewTransition{
			To: domain.PostAutoPublished,
			At: now,
		})
		if err != nil {
			result.Failed++
			logger.Warn("auto-publish failed", "post_id", post.ID, "err", err)
			continue
		}
		if !changed {
			continue
		}
		result.Transitioned++
		recipient, err := s.responsibleHuman(ctx, post)
		if err != nil {
			logger.Warn("auto-publish notice skipped", "post_id", post.ID, "err", err)
			continue
		}
		if recipient != "" {
			s.notify(ctx, domain.NotifyAutoPublishedLate, recipient, post, "")
		}
	}
	if result.Transitioned > 0 || result.Failed > 0 {
		logger.Info("auto-publish sweep", "scanned", result.Scanned, "transitioned", result.Transitioned, "failed", result.Failed)
	}
	return result, nil
}

func (s *PostService) SoftDelete(ctx context.Context, actor domain.Principal, postID string) error {
	post, err := s.Posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, *post, domain.PolicyActionDelete); err != nil {
		return err
	}
	if post.IsDeleted {
		return nil
	}
	if _, err := s.Posts.SoftDelete(ctx, postID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// Get serves published posts to everyone and unpublished ones to the
// authoring agent. Deleted posts are never returned.
func (s *PostService) Get(ctx context.Context, caller domain.Principal, postID string) (*domain.Post, error) {
	post, err := s.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsDeleted {
		return nil, domain.ErrNotFound
	}
	if post.Visible() {
		return post, nil
	}
	if caller.Kind == domain.PrincipalAgent && caller.Subject == post.AgentID {
		return post, nil
	}
	if caller.IsAdmin() {
		return post, nil
	}
	if caller.Kind == domain.PrincipalHuman {
		if err := s.authorize(ctx, caller, *post, domain.PolicyActionReview); err == nil {
			return post, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *PostService) Feed(ctx context.Context, limit int, before *time.Time) ([]domain.Post, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}
	return s.Posts.Feed(ctx, limit, before)
}

func (s *PostService) ListPendingForUser(ctx context.Context, actor domain.Principal) ([]domain.Post, error) {
	userID := actor.UserID()
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	agents, err := s.Agents.ListLinkedTo(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list linked agents: %w", err)
	}
	filter := PendingFilter{UserID: userID}
	for _, agent := range agents {
		filter.AgentIDs = append(filter.AgentIDs, agent.ID)
	}
	return s.Posts.ListPending(ctx, filter)
}

func (s *PostService) transition(ctx context.Context, post domain.Post, t domain.ReviewTransition) (ReviewResult, error) {
	changed, err := s.Posts.Transition(ctx, post.ID, t)
	if err != nil {
		return ReviewResult{}, fmt.Errorf("transition post: %w", err)
	}
	if !changed {
		current := post.Status
		if latest, err := s.Posts.GetByID(ctx, post.ID); err == nil {
			current = latest.Status
		}
		return ReviewResult{PostID: post.ID, Status: current, AlreadyProcessed: true}, nil
	}
	return ReviewResult{PostID: post.ID, Status: t.To}, nil
}

func (s *PostService) authorize(ctx context.Context, actor domain.Principal, post domain.Post, action domain.PolicyAction) error {
	if actor.Kind == domain.PrincipalAdmin {
		return nil
	}
	if actor.User == nil {
		return domain.ErrUnauthenticated
	}
	input := domain.PolicyInput{
		Action: action,
		Actor: domain.PolicyActor{
			UserID:      actor.User.ID,
			IsAdmin:     actor.User.IsAdmin,
			IsAgentUser: actor.User.IsAgentUser,
		},
		Post: domain.PolicyPost{ID: post.ID, UserID: post.UserID, AgentID: post.AgentID},
	}
	if post.AgentID != "" {
		agent, err := s.Agents.GetByID(ctx, post.AgentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("load agent: %w", err)
		}
		if agent != nil {
			input.Agent.LinkedUserID = agent.LinkedUserID
		}
	}
	if s.Policy == nil {
		if input.Actor.IsAdmin {
			return nil
		}
		return domain.ErrForbidden
	}
	result, err := s.Policy.Evaluate(ctx, input)
	if err != nil {
		return fmt.Errorf("evaluate post policy: %w", err)
	}
	if !result.Allow {
		return domain.ErrForbidden
	}
	return nil
}

// responsibleHuman is the linked human of the post's agent, falling back to
// the legacy owning user.
func (s *PostService) responsibleHuman(ctx context.Context, post domain.Post) (string, error) {
	if post.AgentID != "" {
		agent, err := s.Agents.GetByID(ctx, post.AgentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
		if agent != nil && agent.LinkedUserID != "" {
			return agent.LinkedUserID, nil
		}
	}
	return post.UserID, nil
}

func (s *PostService) notify(ctx context.Context, kind domain.NotificationKind, userID string, post domain.Post, handle string) {
	if s.Notifier == nil || userID == "" {
		return
	}
	n := domain.Notification{
		Kind:   kind,
		PostID: post.ID,
		UserID: userID,
		Data: map[string]string{
			"title":    post.Title,
			"package":  post.Package,
			"language": post.Language,
			"content":  post.Content,
			"handle":   handle,
		},
	}
	if s.Users != nil {
		if user, err := s.Users.GetByID(ctx, userID); err == nil {
			n.Email = user.Email
		}
	}
	switch kind {
	case domain.NotifyReviewRequest:
		n.Subject = "Review requested: " + post.Title
		n.Data["review_deadline"] = post.ReviewDeadline.Format(time.RFC3339)
		n.ApproveURL = s.actionURL(post.ID, tokens.ActionApprove)
		n.DeclineURL = s.actionURL(post.ID, tokens.ActionDecline)
	case domain.NotifyAutoPosted:
		n.Subject = "Your agent posted: " + post.Title
	case domain.NotifyAutoPublishedLate:
		n.Subject = "Auto-published after review window: " + post.Title
	}
	if err := s.Notifier.Notify(ctx, n); err != nil {
		s.logger().Warn("notification failed", "post_id", post.ID, "kind", string(kind), "err", err)
	}
}

func (s *PostService) actionURL(postID string, action tokens.Action) string {
	token := tokens.SignAction(postID, action, s.ActionSecret)
	base := strings.TrimRight(s.PublicBaseURL, "/")
	return base + "/api/v1/email-actions/" + string(action) + "?token=" + url.QueryEscape(token)
}

func (s *PostService) engine() *OversightEngine {
	if s.Engine == nil {
		return &OversightEngine{}
	}
	return s.Engine
}

func (s *PostService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func applyEdits(t *domain.ReviewTransition, post domain.Post, edits domain.PostEdits) {
	if edits.Title == nil && edits.Content == nil {
		return
	}
	title, content := post.Title, post.Content
	if edits.Title != nil {
		title = strings.TrimSpace(*edits.Title)
		t.Title = &title
	}
	if edits.Content != nil {
		content = strings.TrimSpace(*edits.Content)
		t.Content = &content
	}
	searchText := domain.BuildSearchText(title, content, post.Tags, post.Package, post.Language)
	t.SearchText = &searchText
}

func reviewerID(actor domain.Principal) string {
	if actor.User != nil {
		return actor.User.ID
	}
	return actor.Subject
}
