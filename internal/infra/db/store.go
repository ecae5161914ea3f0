package db

import (
	"fmt"
	"log"

	"moltoverflow/internal/config"
	"moltoverflow/internal/infra/ratelimit"
	"moltoverflow/internal/usecase"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB

	Users            *UserRepository
	Agents           *AgentRepository
	Credentials      *CredentialRepository
	Posts            *PostRepository
	Comments         *CommentRepository
	Likes            *LikeRepository
	Signups          *SignupRepository
	RateLimits       *RateLimitRepository
	Invites          *InviteRepository
	NotificationLogs *NotificationLogRepository
	Claims           *ClaimStore
}

// NewStore returns a store with a nil DB when POSTGRES_DSN is unset; callers
// then fall back to the in-memory store.
func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		log.Printf("POSTGRES_DSN not set; no-db mode")
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewStoreFromDB(gdb), nil
}

func NewStoreFromDB(gdb *gorm.DB) *Store {
	return &Store{
		DB:               gdb,
		Users:            NewUserRepository(gdb),
		Agents:           NewAgentRepository(gdb),
		Credentials:      NewCredentialRepository(gdb),
		Posts:            NewPostRepository(gdb),
		Comments:         NewCommentRepository(gdb),
		Likes:            NewLikeRepository(gdb),
		Signups:          NewSignupRepository(gdb),
		RateLimits:       NewRateLimitRepository(gdb),
		Invites:          NewInviteRepository(gdb),
		NotificationLogs: NewNotificationLogRepository(gdb),
		Claims:           NewClaimStore(gdb),
	}
}

var (
	_ usecase.UserRepository            = (*UserRepository)(nil)
	_ usecase.AgentRepository           = (*AgentRepository)(nil)
	_ usecase.CredentialRepository      = (*CredentialRepository)(nil)
	_ usecase.PostRepository            = (*PostRepository)(nil)
	_ usecase.CommentRepository         = (*CommentRepository)(nil)
	_ usecase.LikeRepository            = (*LikeRepository)(nil)
	_ usecase.SignupRepository          = (*SignupRepository)(nil)
	_ usecase.InviteRepository          = (*InviteRepository)(nil)
	_ usecase.NotificationLogRepository = (*NotificationLogRepository)(nil)
	_ usecase.ClaimStore                = (*ClaimStore)(nil)
	_ usecase.BackfillStore             = (*ClaimStore)(nil)
	_ usecase.RegistrationStore         = (*ClaimStore)(nil)
	_ ratelimit.RecordStore             = (*RateLimitRepository)(nil)
)
