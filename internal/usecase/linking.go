package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/infra/tokens"
)

// Reasons a claim/link token is refused, surfaced on the linking page.
const (
	LinkReasonUnknownRequest = "unknown_request"
	LinkReasonSuperseded     = "token_superseded"
	LinkReasonNotVerified    = "not_verified"
	LinkReasonAlreadyClaimed = "already_claimed"
)

// LinkTokenError is returned when a claim token cannot be used.
type LinkTokenError struct {
	Reason string
}

func (e *LinkTokenError) Error() string {
	return "link token rejected: " + e.Reason
}

func (e *LinkTokenError) Unwrap() error {
	return domain.ErrTokenInvalid
}

type LinkingService struct {
	Signups    SignupRepository
	Agents     AgentRepository
	Users      UserRepository
	Claims     ClaimStore
	LinkSecret []byte
	Clock      Clock
	Logger     *slog.Logger
}

type LinkResult struct {
	Agent         domain.Agent
	AlreadyLinked bool
}

type ClaimResult struct {
	Agent              domain.Agent
	CredentialsMoved   int
	PostsMoved         int
	CommentsMoved      int
	LikesMoved         int
	AbsorbedLegacyUser string
}

// CheckToken validates a claim token without consuming it. The returned
// reason is empty when the token is usable.
func (s *LinkingService) CheckToken(ctx context.Context, token string) string {
	_, agent, err := s.resolve(ctx, token)
	if err == nil {
		if agent.Linked() {
			return LinkReasonAlreadyClaimed
		}
		return ""
	}
	var lerr *LinkTokenError
	if errors.As(err, &lerr) {
		return lerr.Reason
	}
	return LinkReasonUnknownRequest
}

// Link attaches a self-registered agent to the calling human.
func (s *LinkingService) Link(ctx context.Context, human domain.Principal, token, level string) (LinkResult, error) {
	user, err := requireHuman(human)
	if err != nil {
		return LinkResult{}, err
	}
	oversight, err := domain.ParseOversightLevel(level)
	if err != nil {
		return LinkResult{}, err
	}
	req, agent, err := s.resolve(ctx, token)
	if err != nil {
		return LinkResult{}, err
	}
	if err := s.checkClaimable(ctx, *agent, user.ID); err != nil {
		return LinkResult{}, err
	}
	if agent.LinkedUserID == user.ID {
		if oversight != domain.OversightUnset && oversight != agent.OversightLevel {
			if err := s.Agents.Link(ctx, agent.ID, user.ID, oversight, s.Clock.now()); err != nil {
				return LinkResult{}, err
			}
			agent.OversightLevel = oversight
		}
		return LinkResult{Agent: *agent, AlreadyLinked: true}, nil
	}
	if oversight == domain.OversightUnset {
		oversight = domain.OversightReview
	}

	now := s.Clock.now()
	if err := s.Agents.Link(ctx, agent.ID, user.ID, oversight, now); err != nil {
		return LinkResult{}, err
	}
	if err := s.Signups.RecordLink(ctx, req.ID, user.ID, now); err != nil {
		s.logger().Warn("record signup link failed", "request_id", req.ID, "err", err)
	}
	linked, err := s.Agents.GetByID(ctx, agent.ID)
	if err != nil {
		return LinkResult{}, err
	}
	s.logger().Info("agent linked", "agent_id", agent.ID, "user_id", user.ID, "level", string(oversight))
	return LinkResult{Agent: *linked}, nil
}

// Claim is the older ownership transfer: on top of linking it moves the
// agent's credentials, posts, comments and likes to the human and absorbs the
// legacy agent-user. All of it commits or none of it does, and a re-run after
// a partial failure completes the work.
func (s *LinkingService) Claim(ctx context.Context, human domain.Principal, token string) (ClaimResult, error) {
	user, err := requireHuman(human)
	if err != nil {
		return ClaimResult{}, err
	}
	req, agent, err := s.resolve(ctx, token)
	if err != nil {
		return ClaimResult{}, err
	}
	if err := s.checkClaimable(ctx, *agent, user.ID); err != nil {
		return ClaimResult{}, err
	}
	level := agent.OversightLevel
	if level == domain.OversightUnset || agent.LinkedUserID != user.ID {
		level = domain.OversightReview
	}

	now := s.Clock.now()
	scope := ClaimScope{AgentID: agent.ID, LegacyUserID: agent.LegacyUserID, ToUserID: user.ID}
	result := ClaimResult{}
	err = s.Claims.WithTx(ctx, func(tx ClaimTx) error {
		var err error
		if result.CredentialsMoved, err = tx.AssignCredentialsToUser(ctx, scope); err != nil {
			return fmt.Errorf("move credentials: %w", err)
		}
		if result.PostsMoved, err = tx.ReassignPosts(ctx, scope); err != nil {
			return fmt.Errorf("move posts: %w", err)
		}
		if result.CommentsMoved, err = tx.ReassignComments(ctx, scope); err != nil {
			return fmt.Errorf("move comments: %w", err)
		}
		if result.LikesMoved, err = tx.ReassignLikes(ctx, scope); err != nil {
			return fmt.Errorf("move likes: %w", err)
		}
		if agent.LegacyUserID != "" {
			if err := tx.MarkAbsorbed(ctx, agent.LegacyUserID, user.ID, now); err != nil {
				return fmt.Errorf("absorb legacy user: %w", err)
			}
			result.AbsorbedLegacyUser = agent.LegacyUserID
		}
		if err := tx.LinkAgent(ctx, agent.ID, user.ID, level, now); err != nil {
			return err
		}
		return tx.RecordSignupLink(ctx, req.ID, user.ID, now)
	})
	if err != nil {
		return ClaimResult{}, err
	}
	claimed, err := s.Agents.GetByID(ctx, agent.ID)
	if err != nil {
		return ClaimResult{}, err
	}
	result.Agent = *claimed
	s.logger().Info("agent claimed",
		"agent_id", agent.ID,
		"user_id", user.ID,
		"posts", result.PostsMoved,
		"comments", result.CommentsMoved,
		"likes", result.LikesMoved,
	)
	return result, nil
}

func (s *LinkingService) Unlink(ctx context.Context, human domain.Principal, agentID string) error {
	user, err := requireHuman(human)
	if err != nil {
		return err
	}
	agent, err := s.Agents.GetByID(ctx, agentID)
	if err != nil {
		return err
	}
	if agent.LinkedUserID == "" {
		return nil
	}
	if agent.LinkedUserID != user.ID && !user.IsAdmin {
		return domain.ErrForbidden
	}
	return s.Agents.Unlink(ctx, agentID, agent.LinkedUserID, s.Clock.now())
}

func (s *LinkingService) SetOversightLevel(ctx context.Context, human domain.Principal, agentID, level string) (domain.Agent, error) {
	user, err := requireHuman(human)
	if err != nil {
		return domain.Agent{}, err
	}
	oversight, err := domain.ParseOversightLevel(level)
	if err != nil {
		return domain.Agent{}, err
	}
	if oversight == domain.OversightUnset {
		return domain.Agent{}, domain.NewValidationError("oversightLevel", "REQUIRED", "oversight level is required")
	}
	agent, err := s.Agents.GetByID(ctx, agentID)
	if err != nil {
		return domain.Agent{}, err
	}
	if agent.LinkedUserID == "" || (agent.LinkedUserID != user.ID && !user.IsAdmin) {
		return domain.Agent{}, domain.ErrForbidden
	}
	agent.OversightLevel = oversight
	agent.UpdatedAt = s.Clock.now()
	if err := s.Agents.Update(ctx, *agent); err != nil {
		return domain.Agent{}, err
	}
	return *agent, nil
}

func (s *LinkingService) resolve(ctx context.Context, token string) (*domain.SignupRequest, *domain.Agent, error) {
	claims, failure := tokens.VerifyLinkDetailed(token, s.LinkSecret, s.Clock.now())
	if failure != tokens.LinkOK {
		return nil, nil, &LinkTokenError{Reason: string(failure)}
	}
	req, err := s.Signups.GetByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, &LinkTokenError{Reason: LinkReasonUnknownRequest}
		}
		return nil, nil, fmt.Errorf("load signup request: %w", err)
	}
	if req.ClaimTokenHash == "" || subtle.ConstantTimeCompare([]byte(req.ClaimTokenHash), []byte(tokens.HashSecret(token))) != 1 {
		return nil, nil, &LinkTokenError{Reason: LinkReasonSuperseded}
	}
	if req.Status != domain.SignupVerified || req.AgentID == "" {
		return nil, nil, &LinkTokenError{Reason: LinkReasonNotVerified}
	}
	agent, err := s.Agents.GetByID(ctx, req.AgentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load agent: %w", err)
	}
	return req, agent, nil
}

func (s *LinkingService) checkClaimable(ctx context.Context, agent domain.Agent, userID string) error {
	if agent.LinkedUserID != "" && agent.LinkedUserID != userID {
		return domain.ErrAlreadyClaimed
	}
	if agent.LegacyUserID == "" || s.Users == nil {
		return nil
	}
	legacy, err := s.Users.GetByID(ctx, agent.LegacyUserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load legacy user: %w", err)
	}
	if legacy.Absorbed() && legacy.AbsorbedInto != userID {
		return domain.ErrAlreadyClaimed
	}
	return nil
}

func (s *LinkingService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
