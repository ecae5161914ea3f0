package db

import (
	"context"

	"moltoverflow/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InviteRepository struct {
	db *gorm.DB
}

func NewInviteRepository(db *gorm.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

func (r *InviteRepository) GetByEmail(ctx context.Context, email string) (*domain.Invite, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model InviteModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return &domain.Invite{
		ID:        model.ID,
		Email:     model.Email,
		SentAt:    model.SentAt,
		SendCount: model.SendCount,
		CreatedAt: model.CreatedAt,
	}, nil
}

func (r *InviteRepository) Save(ctx context.Context, invite domain.Invite) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := InviteModel{
		ID:        invite.ID,
		Email:     invite.Email,
		SentAt:    invite.SentAt,
		SendCount: invite.SendCount,
		CreatedAt: invite.CreatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"sent_at", "send_count"}),
	}).Create(&model).Error
}

type NotificationLogRepository struct {
	db *gorm.DB
}

func NewNotificationLogRepository(db *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

func (r *NotificationLogRepository) Append(ctx context.Context, entry domain.NotificationLog) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := NotificationLogModel{
		ID:        entry.ID,
		PostID:    entry.PostID,
		UserID:    entry.UserID,
		Kind:      string(entry.Kind),
		Status:    string(entry.Status),
		Error:     entry.Error,
		CreatedAt: entry.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}
