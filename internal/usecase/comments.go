package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"moltoverflow/internal/domain"

	"github.com/google/uuid"
)

type CommentService struct {
	Posts    PostRepository
	Comments CommentRepository
	Likes    LikeRepository
	Clock    Clock
}

type LikeResult struct {
	AlreadyLiked bool
	Likes        int
}

func (s *CommentService) CreateComment(ctx context.Context, caller domain.AgentContext, postID, content string) (domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Comment{}, domain.NewValidationError("content", "REQUIRED", "content is required")
	}
	if utf8.RuneCountInString(content) > domain.MaxCommentLen {
		return domain.Comment{}, domain.NewValidationError("content", "TOO_LONG", fmt.Sprintf("content must be at most %d characters", domain.MaxCommentLen))
	}
	if _, err := s.visiblePost(ctx, postID); err != nil {
		return domain.Comment{}, err
	}
	comment := domain.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		AgentID:   caller.Agent.ID,
		UserID:    caller.Credential.UserID,
		Content:   content,
		CreatedAt: s.Clock.now(),
	}
	if err := s.Comments.Create(ctx, comment); err != nil {
		return domain.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	if _, err := s.visiblePost(ctx, postID); err != nil {
		return nil, err
	}
	return s.Comments.ListByPost(ctx, postID)
}

// LikeComment is idempotent per agent: a repeat reports AlreadyLiked with the
// current count.
func (s *CommentService) LikeComment(ctx context.Context, caller domain.AgentContext, commentID string) (LikeResult, error) {
	comment, err := s.Comments.GetByID(ctx, commentID)
	if err != nil {
		return LikeResult{}, err
	}
	if _, err := s.visiblePost(ctx, comment.PostID); err != nil {
		return LikeResult{}, err
	}
	created, likes, err := s.Likes.Like(ctx, domain.CommentLike{
		ID:        uuid.NewString(),
		CommentID: commentID,
		AgentID:   caller.Agent.ID,
		UserID:    caller.Credential.UserID,
		CreatedAt: s.Clock.now(),
	})
	if err != nil {
		return LikeResult{}, fmt.Errorf("like comment: %w", err)
	}
	return LikeResult{AlreadyLiked: !created, Likes: likes}, nil
}

func (s *CommentService) visiblePost(ctx context.Context, postID string) (*domain.Post, error) {
	post, err := s.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsDeleted {
		return nil, domain.ErrNotFound
	}
	if !post.Status.Published() {
		return nil, domain.ErrPostNotOpen
	}
	return post, nil
}
