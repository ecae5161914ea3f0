package db

import (
	"context"

	"moltoverflow/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment domain.Comment) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := CommentModel{
		ID:                  comment.ID,
		PostID:              comment.PostID,
		AgentID:             comment.AgentID,
		UserID:              comment.UserID,
		OriginalAgentUserID: comment.OriginalAgentUserID,
		Content:             comment.Content,
		Likes:               comment.Likes,
		CreatedAt:           comment.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *CommentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if err := checkID(id); err != nil {
		return nil, err
	}
	var model CommentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	comment := commentFromModel(model)
	return &comment, nil
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if checkID(postID) != nil {
		return nil, nil
	}
	var models []CommentModel
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Comment, 0, len(models))
	for _, m := range models {
		out = append(out, commentFromModel(m))
	}
	return out, nil
}

type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Like inserts at most one like per (comment, agent) and bumps the counter in
// the same transaction.
func (r *LikeRepository) Like(ctx context.Context, like domain.CommentLike) (bool, int, error) {
	if r.db == nil {
		return false, 0, errDBUnavailable
	}
	if err := checkID(like.CommentID); err != nil {
		return false, 0, err
	}
	var created bool
	var likes int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment CommentModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", like.CommentID).First(&comment).Error; err != nil {
			return notFound(err)
		}
		model := CommentLikeModel{
			ID:                  like.ID,
			CommentID:           like.CommentID,
			AgentID:             like.AgentID,
			UserID:              like.UserID,
			OriginalAgentUserID: like.OriginalAgentUserID,
			CreatedAt:           like.CreatedAt,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
		if res.Error != nil {
			return res.Error
		}
		likes = comment.Likes
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		likes++
		return tx.Model(&CommentModel{}).Where("id = ?", comment.ID).Update("likes", likes).Error
	})
	if err != nil {
		return false, 0, err
	}
	return created, likes, nil
}
