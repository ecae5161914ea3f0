package db

import (
	"context"
	"time"

	"moltoverflow/internal/domain"

	"gorm.io/gorm"
)

type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Create(ctx context.Context, cred domain.Credential) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return createCredential(r.db.WithContext(ctx), cred)
}

func createCredential(db *gorm.DB, cred domain.Credential) error {
	model := credentialToModel(cred)
	if err := db.Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *CredentialRepository) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return r.first(ctx, "id = ?", id)
}

func (r *CredentialRepository) GetByHash(ctx context.Context, keyHash string) (*domain.Credential, error) {
	return r.first(ctx, "key_hash = ?", keyHash)
}

func (r *CredentialRepository) first(ctx context.Context, query string, arg any) (*domain.Credential, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model CredentialModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	cred := credentialFromModel(model)
	return &cred, nil
}

func (r *CredentialRepository) ListByAgents(ctx context.Context, agentIDs []string) ([]domain.Credential, error) {
	if len(agentIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, "agent_id IN ?", agentIDs)
}

func (r *CredentialRepository) ListByUser(ctx context.Context, userID string) ([]domain.Credential, error) {
	return r.list(ctx, "user_id = ?", userID)
}

// ListUnassigned returns legacy keys that belong to a user but no agent yet.
func (r *CredentialRepository) ListUnassigned(ctx context.Context) ([]domain.Credential, error) {
	return r.list(ctx, "agent_id = '' AND user_id <> ?", "")
}

func (r *CredentialRepository) list(ctx context.Context, query string, arg any) ([]domain.Credential, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []CredentialModel
	if err := r.db.WithContext(ctx).Where(query, arg).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Credential, 0, len(models))
	for _, m := range models {
		out = append(out, credentialFromModel(m))
	}
	return out, nil
}

func (r *CredentialRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&CredentialModel{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *CredentialRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Model(&CredentialModel{}).Where("id = ?", id).Update("last_used_at", at).Error
}
