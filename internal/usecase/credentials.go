package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/infra/tokens"

	"github.com/google/uuid"
)

// MaxCreatedAgentsPerHuman caps agents a non-admin human may create directly.
const MaxCreatedAgentsPerHuman = 1

type CredentialService struct {
	Agents      AgentRepository
	Credentials CredentialRepository
	Clock       Clock
	Logger      *slog.Logger
}

type CreateAgentInput struct {
	Name           string
	Handle         string
	OversightLevel string
}

type CreatedAgent struct {
	Agent  domain.Agent
	Issued domain.IssuedCredential
}

// CreateAgentWithKey creates an agent linked to the calling human and issues
// its first key. The plaintext key is only ever present in the return value.
func (s *CredentialService) CreateAgentWithKey(ctx context.Context, human domain.Principal, input CreateAgentInput) (CreatedAgent, error) {
	user, err := requireHuman(human)
	if err != nil {
		return CreatedAgent{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return CreatedAgent{}, domain.NewValidationError("name", "REQUIRED", "name is required")
	}
	level, err := domain.ParseOversightLevel(input.OversightLevel)
	if err != nil {
		return CreatedAgent{}, err
	}
	if level == domain.OversightUnset {
		level = domain.OversightReview
	}

	var handle string
	if strings.TrimSpace(input.Handle) != "" {
		handle = domain.NormalizeHandle(input.Handle)
		if err := domain.ValidateHandle(handle); err != nil {
			return CreatedAgent{}, err
		}
		taken, err := s.Agents.HandleExists(ctx, handle)
		if err != nil {
			return CreatedAgent{}, fmt.Errorf("check handle: %w", err)
		}
		if taken {
			return CreatedAgent{}, domain.ErrHandleTaken
		}
	} else {
		handle, err = domain.EnsureUnique(ctx, domain.Slugify(name), s.Agents.HandleExists)
		if err != nil {
			return CreatedAgent{}, fmt.Errorf("derive handle: %w", err)
		}
	}

	if !user.IsAdmin {
		count, err := s.Agents.CountCreatedBy(ctx, user.ID)
		if err != nil {
			return CreatedAgent{}, fmt.Errorf("count agents: %w", err)
		}
		if count >= MaxCreatedAgentsPerHuman {
			return CreatedAgent{}, domain.ErrAgentLimit
		}
	}

	now := s.Clock.now()
	linkedAt := now
	agent := domain.Agent{
		ID:              uuid.NewString(),
		Handle:          handle,
		CreatedByUserID: user.ID,
		LinkedUserID:    user.ID,
		LinkedAt:        &linkedAt,
		OversightLevel:  level,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Agents.Create(ctx, agent); err != nil {
		return CreatedAgent{}, fmt.Errorf("create agent: %w", err)
	}
	issued, err := s.issue(ctx, agent.ID, user.ID, name)
	if err != nil {
		return CreatedAgent{}, err
	}
	return CreatedAgent{Agent: agent, Issued: issued}, nil
}

func (s *CredentialService) CreateKey(ctx context.Context, human domain.Principal, agentID, name string) (domain.IssuedCredential, error) {
	user, err := requireHuman(human)
	if err != nil {
		return domain.IssuedCredential{}, err
	}
	agent, err := s.Agents.GetByID(ctx, agentID)
	if err != nil {
		return domain.IssuedCredential{}, err
	}
	if agent.LinkedUserID != user.ID && !user.IsAdmin {
		return domain.IssuedCredential{}, domain.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = agent.Handle
	}
	return s.issue(ctx, agent.ID, user.ID, name)
}

// MintForAgent builds a key for an agent with no human involved
// (self-registration). The caller persists the credential.
func (s *CredentialService) MintForAgent(agentID, name string) (domain.IssuedCredential, error) {
	return s.mint(agentID, "", name)
}

func (s *CredentialService) issue(ctx context.Context, agentID, userID, name string) (domain.IssuedCredential, error) {
	issued, err := s.mint(agentID, userID, name)
	if err != nil {
		return domain.IssuedCredential{}, err
	}
	if err := s.Credentials.Create(ctx, issued.Credential); err != nil {
		return domain.IssuedCredential{}, fmt.Errorf("store key: %w", err)
	}
	return issued, nil
}

func (s *CredentialService) mint(agentID, userID, name string) (domain.IssuedCredential, error) {
	secret, err := tokens.GenerateAPIKey()
	if err != nil {
		return domain.IssuedCredential{}, fmt.Errorf("generate key: %w", err)
	}
	cred := domain.Credential{
		ID:        uuid.NewString(),
		KeyHash:   tokens.HashSecret(secret),
		KeyPrefix: tokens.KeyPrefix(secret),
		AgentID:   agentID,
		UserID:    userID,
		Name:      name,
		CreatedAt: s.Clock.now(),
	}
	return domain.IssuedCredential{Credential: cred, Secret: secret}, nil
}

func (s *CredentialService) Revoke(ctx context.Context, human domain.Principal, keyID string) error {
	user, err := requireHuman(human)
	if err != nil {
		return err
	}
	cred, err := s.Credentials.GetByID(ctx, keyID)
	if err != nil {
		return err
	}
	if !user.IsAdmin && !s.ownsCredential(ctx, user.ID, *cred) {
		return domain.ErrForbidden
	}
	if cred.Revoked() {
		return nil
	}
	return s.Credentials.Revoke(ctx, keyID, s.Clock.now())
}

// List returns the keys of every agent linked to the human plus legacy keys they own.
func (s *CredentialService) List(ctx context.Context, human domain.Principal) ([]domain.Credential, error) {
	user, err := requireHuman(human)
	if err != nil {
		return nil, err
	}
	agents, err := s.Agents.ListLinkedTo(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	ids := make([]string, 0, len(agents))
	for _, agent := range agents {
		ids = append(ids, agent.ID)
	}
	byAgent, err := s.Credentials.ListByAgents(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	byUser, err := s.Credentials.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	seen := make(map[string]struct{}, len(byAgent))
	out := make([]domain.Credential, 0, len(byAgent)+len(byUser))
	for _, cred := range append(byAgent, byUser...) {
		if _, ok := seen[cred.ID]; ok {
			continue
		}
		seen[cred.ID] = struct{}{}
		out = append(out, cred)
	}
	return out, nil
}

// Authenticate resolves a presented key to its agent. Revoked, unknown and
// agentless keys are all ErrUnauthenticated.
func (s *CredentialService) Authenticate(ctx context.Context, secret string) (domain.AgentContext, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return domain.AgentContext{}, domain.ErrUnauthenticated
	}
	cred, err := s.Credentials.GetByHash(ctx, tokens.HashSecret(secret))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AgentContext{}, domain.ErrUnauthenticated
		}
		return domain.AgentContext{}, fmt.Errorf("lookup key: %w", err)
	}
	if cred.Revoked() || cred.AgentID == "" {
		return domain.AgentContext{}, domain.ErrUnauthenticated
	}
	agent, err := s.Agents.GetByID(ctx, cred.AgentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AgentContext{}, domain.ErrUnauthenticated
		}
		return domain.AgentContext{}, fmt.Errorf("lookup agent: %w", err)
	}
	if err := s.Credentials.TouchLastUsed(ctx, cred.ID, s.Clock.now()); err != nil {
		s.logger().Debug("touch last used failed", "key_id", cred.ID, "err", err)
	}
	return domain.AgentContext{Agent: *agent, Credential: *cred}, nil
}

func (s *CredentialService) RenameHandle(ctx context.Context, human domain.Principal, agentID, handle string) (domain.Agent, error) {
	user, err := requireHuman(human)
	if err != nil {
		return domain.Agent{}, err
	}
	handle = domain.NormalizeHandle(handle)
	if err := domain.ValidateHandle(handle); err != nil {
		return domain.Agent{}, err
	}
	agent, err := s.Agents.GetByID(ctx, agentID)
	if err != nil {
		return domain.Agent{}, err
	}
	if agent.LinkedUserID != user.ID && !user.IsAdmin {
		return domain.Agent{}, domain.ErrForbidden
	}
	if agent.Handle == handle {
		return *agent, nil
	}
	taken, err := s.Agents.HandleExists(ctx, handle)
	if err != nil {
		return domain.Agent{}, fmt.Errorf("check handle: %w", err)
	}
	if taken {
		return domain.Agent{}, domain.ErrHandleTaken
	}
	agent.Handle = handle
	agent.UpdatedAt = s.Clock.now()
	if err := s.Agents.Update(ctx, *agent); err != nil {
		return domain.Agent{}, err
	}
	return *agent, nil
}

func (s *CredentialService) ownsCredential(ctx context.Context, userID string, cred domain.Credential) bool {
	if cred.UserID == userID {
		return true
	}
	if cred.AgentID == "" {
		return false
	}
	agent, err := s.Agents.GetByID(ctx, cred.AgentID)
	if err != nil {
		return false
	}
	return agent.LinkedUserID == userID
}

func (s *CredentialService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func requireHuman(p domain.Principal) (*domain.User, error) {
	if p.User == nil {
		return nil, domain.ErrUnauthenticated
	}
	if p.User.IsAgentUser {
		return nil, domain.ErrAgentAccount
	}
	return p.User, nil
}
