package db

import (
	"context"
	"time"

	"moltoverflow/internal/domain"

	"gorm.io/gorm"
)

type SignupRepository struct {
	db *gorm.DB
}

func NewSignupRepository(db *gorm.DB) *SignupRepository {
	return &SignupRepository{db: db}
}

func (r *SignupRepository) Create(ctx context.Context, req domain.SignupRequest) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := SignupRequestModel{
		ID:          req.ID,
		CodeHash:    req.CodeHash,
		Status:      string(req.Status),
		Fingerprint: req.Fingerprint,
		CreatedAt:   req.CreatedAt,
		ExpiresAt:   req.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *SignupRepository) GetByID(ctx context.Context, id string) (*domain.SignupRequest, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return r.first(ctx, "id = ?", id)
}

func (r *SignupRepository) GetByCodeHash(ctx context.Context, codeHash string) (*domain.SignupRequest, error) {
	return r.first(ctx, "code_hash = ?", codeHash)
}

func (r *SignupRepository) first(ctx context.Context, query string, arg any) (*domain.SignupRequest, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SignupRequestModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return signupFromModel(model), nil
}

func (r *SignupRepository) MarkExpired(ctx context.Context, id string) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&SignupRequestModel{}).
		Where("id = ? AND status = ?", id, string(domain.SignupPending)).
		Update("status", string(domain.SignupExpired))
	return res.RowsAffected == 1, res.Error
}

// RecordFailedAttempt increments the counter and fails the request once it
// reaches maxAttempts, in one statement.
func (r *SignupRepository) RecordFailedAttempt(ctx context.Context, id string, maxAttempts int) (*domain.SignupRequest, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	err := r.db.WithContext(ctx).Exec(
		`UPDATE signup_requests
		 SET verify_attempts = verify_attempts + 1,
		     status = CASE WHEN verify_attempts + 1 >= ? THEN ? ELSE status END
		 WHERE id = ? AND status = ?`,
		maxAttempts, string(domain.SignupFailed), id, string(domain.SignupPending),
	).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *SignupRepository) MarkVerified(ctx context.Context, id string, v domain.SignupVerification) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	return markSignupVerified(r.db.WithContext(ctx), id, v)
}

func markSignupVerified(db *gorm.DB, id string, v domain.SignupVerification) (bool, error) {
	res := db.Model(&SignupRequestModel{}).
		Where("id = ? AND status = ?", id, string(domain.SignupPending)).
		Updates(map[string]any{
			"status":           string(domain.SignupVerified),
			"verified_at":      v.VerifiedAt,
			"platform":         string(v.Platform),
			"post_url":         v.PostURL,
			"agent_id":         v.AgentID,
			"api_key_id":       v.APIKeyID,
			"key_prefix":       v.KeyPrefix,
			"handle":           v.Handle,
			"claim_email":      v.ClaimEmail,
			"claim_token_hash": v.ClaimTokenHash,
			"claim_expires_at": v.ClaimExpiresAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *SignupRepository) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&SignupRequestModel{}).
		Where("status = ? AND expires_at < ?", string(domain.SignupPending), now).
		Update("status", string(domain.SignupExpired))
	return int(res.RowsAffected), res.Error
}

func (r *SignupRepository) RecordLink(ctx context.Context, id, userID string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return recordSignupLink(r.db.WithContext(ctx), id, userID, at)
}

func recordSignupLink(db *gorm.DB, id, userID string, at time.Time) error {
	res := db.Model(&SignupRequestModel{}).
		Where("id = ? AND linked_user_id <> ?", id, userID).
		Updates(map[string]any{"linked_user_id": userID, "linked_at": at})
	return res.Error
}
