package db

import (
	"context"
	"time"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/usecase"

	"gorm.io/gorm"
)

// ClaimStore runs the ownership-transfer saga in one database transaction.
type ClaimStore struct {
	db *gorm.DB
}

func NewClaimStore(db *gorm.DB) *ClaimStore {
	return &ClaimStore{db: db}
}

func (s *ClaimStore) WithTx(ctx context.Context, fn func(tx usecase.ClaimTx) error) error {
	if s.db == nil {
		return errDBUnavailable
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepo{db: tx})
	})
}

func (s *ClaimStore) WithBackfillTx(ctx context.Context, fn func(tx usecase.BackfillTx) error) error {
	if s.db == nil {
		return errDBUnavailable
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepo{db: tx})
	})
}

// WithRegistrationTx commits a verified signup's agent, key and status flip together.
func (s *ClaimStore) WithRegistrationTx(ctx context.Context, fn func(tx usecase.RegistrationTx) error) error {
	if s.db == nil {
		return errDBUnavailable
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepo{db: tx})
	})
}

type txRepo struct {
	db *gorm.DB
}

// scopeWhere matches rows of the claimed agent or the legacy agent-user that
// the claiming human does not already own.
func scopeWhere(db *gorm.DB, scope usecase.ClaimScope) *gorm.DB {
	q := db.Where("user_id <> ?", scope.ToUserID)
	switch {
	case scope.AgentID != "" && scope.LegacyUserID != "":
		return q.Where("(agent_id = ? OR user_id = ?)", scope.AgentID, scope.LegacyUserID)
	case scope.AgentID != "":
		return q.Where("agent_id = ?", scope.AgentID)
	default:
		return q.Where("user_id = ?", scope.LegacyUserID)
	}
}

func (t *txRepo) AssignCredentialsToUser(_ context.Context, scope usecase.ClaimScope) (int, error) {
	res := scopeWhere(t.db.Model(&CredentialModel{}), scope).Update("user_id", scope.ToUserID)
	return int(res.RowsAffected), res.Error
}

func (t *txRepo) ReassignPosts(_ context.Context, scope usecase.ClaimScope) (int, error) {
	return t.reassign(&PostModel{}, scope)
}

func (t *txRepo) ReassignComments(_ context.Context, scope usecase.ClaimScope) (int, error) {
	return t.reassign(&CommentModel{}, scope)
}

func (t *txRepo) ReassignLikes(_ context.Context, scope usecase.ClaimScope) (int, error) {
	return t.reassign(&CommentLikeModel{}, scope)
}

// reassign keeps the first recorded original owner.
func (t *txRepo) reassign(model any, scope usecase.ClaimScope) (int, error) {
	res := scopeWhere(t.db.Model(model), scope).Updates(map[string]any{
		"original_agent_user_id": gorm.Expr("CASE WHEN original_agent_user_id = '' THEN user_id ELSE original_agent_user_id END"),
		"user_id":                scope.ToUserID,
	})
	return int(res.RowsAffected), res.Error
}

func (t *txRepo) MarkAbsorbed(_ context.Context, userID, intoUserID string, at time.Time) error {
	res := t.db.Model(&UserModel{}).
		Where("id = ? AND absorbed_into = ''", userID).
		Updates(map[string]any{"absorbed_into": intoUserID, "absorbed_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	var user UserModel
	if err := t.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return notFound(err)
	}
	if user.AbsorbedInto == intoUserID {
		return nil
	}
	return domain.ErrAlreadyClaimed
}

func (t *txRepo) LinkAgent(_ context.Context, agentID, userID string, level domain.OversightLevel, at time.Time) error {
	return linkAgent(t.db, agentID, userID, level, at)
}

func (t *txRepo) RecordSignupLink(_ context.Context, requestID, userID string, at time.Time) error {
	return recordSignupLink(t.db, requestID, userID, at)
}

func (t *txRepo) CreateAgent(_ context.Context, agent domain.Agent) error {
	return createAgent(t.db, agent)
}

func (t *txRepo) CreateCredential(_ context.Context, cred domain.Credential) error {
	return createCredential(t.db, cred)
}

func (t *txRepo) MarkSignupVerified(_ context.Context, id string, v domain.SignupVerification) (bool, error) {
	return markSignupVerified(t.db, id, v)
}

func (t *txRepo) AssignCredentials(_ context.Context, userID, agentID string) (int, error) {
	return t.assign(&CredentialModel{}, userID, agentID)
}

func (t *txRepo) AssignPosts(_ context.Context, userID, agentID string) (int, error) {
	return t.assign(&PostModel{}, userID, agentID)
}

func (t *txRepo) AssignComments(_ context.Context, userID, agentID string) (int, error) {
	return t.assign(&CommentModel{}, userID, agentID)
}

func (t *txRepo) assign(model any, userID, agentID string) (int, error) {
	res := t.db.Model(model).Where("user_id = ? AND agent_id = ''", userID).Update("agent_id", agentID)
	return int(res.RowsAffected), res.Error
}
