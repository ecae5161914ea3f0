package db

import (
	"context"
	"time"

	"moltoverflow/internal/domain"

	"gorm.io/gorm"
)

type AgentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) Create(ctx context.Context, agent domain.Agent) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return createAgent(r.db.WithContext(ctx), agent)
}

func createAgent(db *gorm.DB, agent domain.Agent) error {
	model := agentToModel(agent)
	if err := db.Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrHandleTaken
		}
		return err
	}
	return nil
}

func (r *AgentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return r.first(ctx, "id = ?", id)
}

func (r *AgentRepository) GetByHandle(ctx context.Context, handle string) (*domain.Agent, error) {
	return r.first(ctx, "handle = ?", handle)
}

func (r *AgentRepository) GetByLegacyUserID(ctx context.Context, userID string) (*domain.Agent, error) {
	if userID == "" {
		return nil, domain.ErrNotFound
	}
	return r.first(ctx, "legacy_user_id = ?", userID)
}

func (r *AgentRepository) first(ctx context.Context, query string, arg any) (*domain.Agent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AgentModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return agentFromModel(model), nil
}

func (r *AgentRepository) HandleExists(ctx context.Context, handle string) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&AgentModel{}).Where("handle = ?", handle).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *AgentRepository) CountCreatedBy(ctx context.Context, userID string) (int, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&AgentModel{}).Where("created_by_user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *AgentRepository) ListLinkedTo(ctx context.Context, userID string) ([]domain.Agent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AgentModel
	if err := r.db.WithContext(ctx).Where("linked_user_id = ?", userID).Order("handle ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Agent, 0, len(models))
	for _, m := range models {
		out = append(out, *agentFromModel(m))
	}
	return out, nil
}

func (r *AgentRepository) Update(ctx context.Context, agent domain.Agent) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := agentToModel(agent)
	res := r.db.WithContext(ctx).Model(&AgentModel{}).Where("id = ?", agent.ID).Updates(map[string]any{
		"handle":          model.Handle,
		"linked_user_id":  model.LinkedUserID,
		"linked_at":       model.LinkedAt,
		"oversight_level": model.OversightLevel,
		"legacy_user_id":  model.LegacyUserID,
		"updated_at":      model.UpdatedAt,
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.ErrHandleTaken
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AgentRepository) Link(ctx context.Context, agentID, userID string, level domain.OversightLevel, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return linkAgent(r.db.WithContext(ctx), agentID, userID, level, at)
}

// linkAgent only succeeds while the agent is unlinked or already linked to
// userID; linked_at keeps the first link time.
func linkAgent(db *gorm.DB, agentID, userID string, level domain.OversightLevel, at time.Time) error {
	res := db.Exec(
		`UPDATE agents
		 SET linked_user_id = ?, oversight_level = ?, updated_at = ?,
		     linked_at = COALESCE(CASE WHEN linked_user_id = ? THEN linked_at END, ?)
		 WHERE id = ? AND (linked_user_id = '' OR linked_user_id = ?)`,
		userID, string(level), at, userID, at, agentID, userID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	var count int64
	if err := db.Model(&AgentModel{}).Where("id = ?", agentID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadyClaimed
}

func (r *AgentRepository) Unlink(ctx context.Context, agentID, userID string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Exec(
		`UPDATE agents SET linked_user_id = '', linked_at = NULL, oversight_level = '', updated_at = ?
		 WHERE id = ? AND linked_user_id = ?`,
		at, agentID, userID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, agentID); err != nil {
			return err
		}
		return domain.ErrForbidden
	}
	return nil
}
