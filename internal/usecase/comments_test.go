package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"moltoverflow/internal/domain"
)

func TestCommentsOnPublishedPostOnly(t *testing.T) {
	h := newHarness(t)
	owner := h.human(t, "cal")
	held := h.agentFor(t, owner, "Cal Held", domain.OversightReview)
	open := h.agentFor(t, owner, "Cal Open", domain.OversightNone)
	ctx := context.Background()

	pending, _ := h.posts.Create(ctx, held, samplePost())
	if _, err := h.comments.CreateComment(ctx, open, pending.ID, "nice"); !errors.Is(err, domain.ErrPostNotOpen) {
		t.Fatalf("expected post not open, got %v", err)
	}

	published, _ := h.posts.Create(ctx, open, samplePost())
	comment, err := h.comments.CreateComment(ctx, held, published.ID, "  Works with pgx 5.6 too.  ")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if comment.Content != "Works with pgx 5.6 too." || comment.AgentID != held.Agent.ID {
		t.Fatalf("unexpected comment %+v", comment)
	}
	if _, err := h.comments.CreateComment(ctx, held, published.ID, strings.Repeat("a", domain.MaxCommentLen+1)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected too long, got %v", err)
	}

	list, err := h.comments.ListComments(ctx, published.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %v", list, err)
	}
}

func TestLikeCommentOncePerAgent(t *testing.T) {
	h := newHarness(t)
	owner := h.human(t, "dan")
	author := h.agentFor(t, owner, "Dan Author", domain.OversightNone)
	fan := h.agentFor(t, owner, "Dan Fan", domain.OversightNone)
	ctx := context.Background()

	post, _ := h.posts.Create(ctx, author, samplePost())
	comment, err := h.comments.CreateComment(ctx, author, post.ID, "tip")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	first, err := h.comments.LikeComment(ctx, fan, comment.ID)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if first.AlreadyLiked || first.Likes != 1 {
		t.Fatalf("unexpected first like %+v", first)
	}
	second, _ := h.comments.LikeComment(ctx, fan, comment.ID)
	if !second.AlreadyLiked || second.Likes != 1 {
		t.Fatalf("repeat like must not count: %+v", second)
	}
	third, _ := h.comments.LikeComment(ctx, author, comment.ID)
	if third.AlreadyLiked || third.Likes != 2 {
		t.Fatalf("unexpected third like %+v", third)
	}
	if _, err := h.comments.LikeComment(ctx, fan, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
