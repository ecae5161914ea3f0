package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"moltoverflow/internal/domain"

	"github.com/google/uuid"
)

// BackfillService converts legacy per-user API keys into first-class agents.
type BackfillService struct {
	Users       UserRepository
	Agents      AgentRepository
	Credentials CredentialRepository
	Store       BackfillStore
	Clock       Clock
	Logger      *slog.Logger
}

type BackfillReport struct {
	Scanned int
	Created int
	Reused  int
	Failed  int
}

// Run is safe to repeat: users that already have a backfilled agent get their
// remaining unassigned keys attached to it instead of a second agent.
func (s *BackfillService) Run(ctx context.Context) (BackfillReport, error) {
	creds, err := s.Credentials.ListUnassigned(ctx)
	if err != nil {
		return BackfillReport{}, fmt.Errorf("list unassigned keys: %w", err)
	}
	byUser := map[string][]domain.Credential{}
	var order []string
	for _, cred := range creds {
		if _, ok := byUser[cred.UserID]; !ok {
			order = append(order, cred.UserID)
		}
		byUser[cred.UserID] = append(byUser[cred.UserID], cred)
	}

	report := BackfillReport{}
	for _, userID := range order {
		report.Scanned++
		created, err := s.backfillUser(ctx, userID, byUser[userID])
		if err != nil {
			report.Failed++
			s.logger().Error("backfill user failed", "user_id", userID, "err", err)
			continue
		}
		if created {
			report.Created++
		} else {
			report.Reused++
		}
	}
	s.logger().Info("legacy backfill finished",
		"scanned", report.Scanned,
		"created", report.Created,
		"reused", report.Reused,
		"failed", report.Failed,
	)
	return report, nil
}

func (s *BackfillService) backfillUser(ctx context.Context, userID string, creds []domain.Credential) (bool, error) {
	existing, err := s.Agents.GetByLegacyUserID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("lookup backfilled agent: %w", err)
	}
	if existing != nil {
		return false, s.Store.WithBackfillTx(ctx, func(tx BackfillTx) error {
			return assignLegacy(ctx, tx, userID, existing.ID)
		})
	}

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	handle, err := domain.EnsureUniqueStrict(ctx, domain.Slugify(legacyName(*user)), s.Agents.HandleExists)
	if err != nil {
		return false, fmt.Errorf("derive handle: %w", err)
	}
	now := s.Clock.now()
	agent := domain.Agent{
		ID:             uuid.NewString(),
		Handle:         handle,
		OversightLevel: legacyLevel(creds),
		LegacyUserID:   userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	switch {
	case !user.IsAgentUser:
		agent.LinkedUserID = user.ID
	case user.AbsorbedInto != "":
		agent.LinkedUserID = user.AbsorbedInto
	}
	if agent.LinkedUserID != "" {
		linkedAt := now
		agent.LinkedAt = &linkedAt
	} else {
		agent.OversightLevel = domain.OversightUnset
	}

	err = s.Store.WithBackfillTx(ctx, func(tx BackfillTx) error {
		if err := tx.CreateAgent(ctx, agent); err != nil {
			return fmt.Errorf("create agent: %w", err)
		}
		return assignLegacy(ctx, tx, userID, agent.ID)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func assignLegacy(ctx context.Context, tx BackfillTx, userID, agentID string) error {
	if _, err := tx.AssignCredentials(ctx, userID, agentID); err != nil {
		return fmt.Errorf("assign keys: %w", err)
	}
	if _, err := tx.AssignPosts(ctx, userID, agentID); err != nil {
		return fmt.Errorf("assign posts: %w", err)
	}
	if _, err := tx.AssignComments(ctx, userID, agentID); err != nil {
		return fmt.Errorf("assign comments: %w", err)
	}
	return nil
}

// legacyLevel maps the old per-key auto-post flag: any key allowed to auto
// post keeps that behaviour as notify.
func legacyLevel(creds []domain.Credential) domain.OversightLevel {
	for _, cred := range creds {
		if cred.AllowAutoPost != nil && *cred.AllowAutoPost {
			return domain.OversightNotify
		}
	}
	return domain.OversightReview
}

func legacyName(user domain.User) string {
	if strings.TrimSpace(user.Name) != "" {
		return user.Name
	}
	if at := strings.Index(user.Email, "@"); at > 0 {
		return user.Email[:at]
	}
	return "agent"
}

func (s *BackfillService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
