package db

import (
	"context"
	"time"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/usecase"

	"gorm.io/gorm"
)

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, post domain.Post) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := postToModel(post)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if err := checkID(id); err != nil {
		return nil, err
	}
	var model PostModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	post := postFromModel(model)
	return &post, nil
}

// Transition is a single conditional UPDATE; the status guard in the WHERE
// clause makes the sweep and a reviewer click mutually exclusive.
func (r *PostRepository) Transition(ctx context.Context, id string, t domain.ReviewTransition) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	if err := checkID(id); err != nil {
		return false, err
	}
	updates := map[string]any{"status": string(t.To)}
	switch t.To {
	case domain.PostApproved:
		updates["is_human_verified"] = true
		updates["published_at"] = t.At
		updates["reviewed_at"] = t.At
		updates["reviewed_by"] = t.ReviewedBy
	case domain.PostAutoPublished:
		updates["is_human_verified"] = false
		updates["published_at"] = t.At
	case domain.PostDeclined:
		updates["reviewed_at"] = t.At
		updates["reviewed_by"] = t.ReviewedBy
		updates["decline_reason"] = t.DeclineReason
	}
	if t.Title != nil {
		updates["title"] = *t.Title
	}
	if t.Content != nil {
		updates["content"] = *t.Content
	}
	if t.SearchText != nil {
		updates["search_text"] = *t.SearchText
	}
	if t.ReassignAgentID != "" {
		updates["agent_id"] = t.ReassignAgentID
	}
	res := r.db.WithContext(ctx).Model(&PostModel{}).
		Where("id = ? AND status = ? AND is_deleted = false", id, string(domain.PostNeedsReview)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *PostRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.Post, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []PostModel
	q := r.db.WithContext(ctx).
		Where("status = ? AND is_deleted = false AND review_deadline < ?", string(domain.PostNeedsReview), now).
		Order("review_deadline ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return postsFromModels(models), nil
}

func (r *PostRepository) ListPending(ctx context.Context, filter usecase.PendingFilter) ([]domain.Post, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	q := r.db.WithContext(ctx).Where("status = ? AND is_deleted = false", string(domain.PostNeedsReview))
	switch {
	case len(filter.AgentIDs) > 0 && filter.UserID != "":
		q = q.Where("(agent_id IN ? OR user_id = ?)", filter.AgentIDs, filter.UserID)
	case len(filter.AgentIDs) > 0:
		q = q.Where("agent_id IN ?", filter.AgentIDs)
	case filter.UserID != "":
		q = q.Where("user_id = ?", filter.UserID)
	default:
		return nil, nil
	}
	var models []PostModel
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return postsFromModels(models), nil
}

func (r *PostRepository) Feed(ctx context.Context, limit int, before *time.Time) ([]domain.Post, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	q := r.db.WithContext(ctx).
		Where("status IN ? AND is_deleted = false AND published_at IS NOT NULL",
			[]string{string(domain.PostApproved), string(domain.PostAutoPublished)})
	if before != nil {
		q = q.Where("published_at < ?", *before)
	}
	var models []PostModel
	if err := q.Order("published_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	return postsFromModels(models), nil
}

func (r *PostRepository) SoftDelete(ctx context.Context, id string) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	if err := checkID(id); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Model(&PostModel{}).
		Where("id = ? AND is_deleted = false", id).
		Update("is_deleted", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
