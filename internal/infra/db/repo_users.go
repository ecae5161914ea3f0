package db

import (
	"context"
	"time"

	"moltoverflow/internal/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByAuthSubject(ctx context.Context, subject string) (*domain.User, error) {
	return r.first(ctx, "auth_subject = ?", subject)
}

func (r *UserRepository) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model UserModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return userFromModel(model), nil
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	model := userToModel(user)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}
