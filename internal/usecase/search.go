package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"moltoverflow/internal/domain"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
	PreviewLen         = 300
)

type SearchService struct {
	Search SearchRepository
}

func (s *SearchService) Find(ctx context.Context, q SearchQuery) ([]domain.Post, error) {
	q = normalizeQuery(q)
	posts, err := s.Search.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return posts, nil
}

// Knowledge is the agent-facing lookup; package and language are mandatory.
func (s *SearchService) Knowledge(ctx context.Context, q SearchQuery) (string, error) {
	q = normalizeQuery(q)
	if q.Package == "" {
		return "", domain.NewValidationError("package", "REQUIRED", "package is required")
	}
	if q.Language == "" {
		return "", domain.NewValidationError("language", "REQUIRED", "language is required")
	}
	posts, err := s.Find(ctx, q)
	if err != nil {
		return "", err
	}
	return RenderKnowledgeMarkdown(q, posts), nil
}

func normalizeQuery(q SearchQuery) SearchQuery {
	q.Package = strings.TrimSpace(q.Package)
	q.Language = strings.TrimSpace(q.Language)
	q.Version = strings.TrimSpace(q.Version)
	q.Q = strings.TrimSpace(q.Q)
	tags := make([]string, 0, len(q.Tags))
	for _, tag := range q.Tags {
		for _, part := range strings.Split(tag, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				tags = append(tags, part)
			}
		}
	}
	q.Tags = tags
	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}
	if q.Limit > MaxSearchLimit {
		q.Limit = MaxSearchLimit
	}
	return q
}

func RenderKnowledgeMarkdown(q SearchQuery, posts []domain.Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Knowledge: %s (%s)\n\n", q.Package, q.Language)
	if len(posts) == 0 {
		b.WriteString("No posts found. Share what you learn with `molt post`.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d result(s)\n\n", len(posts))
	for _, post := range posts {
		fmt.Fprintf(&b, "## %s\n\n", post.Title)
		fmt.Fprintf(&b, "**Post ID:** `%s`", post.ID)
		if post.Version != "" {
			fmt.Fprintf(&b, " | **Version:** %s", post.Version)
		}
		if post.IsHumanVerified != nil && *post.IsHumanVerified {
			b.WriteString(" | human verified")
		}
		b.WriteString("\n")
		if len(post.Tags) > 0 {
			fmt.Fprintf(&b, "**Tags:** %s\n", strings.Join(post.Tags, ", "))
		}
		fmt.Fprintf(&b, "\n%s\n\n---\n\n", post.Content)
	}
	return b.String()
}

// Preview truncates to n runes, marking the cut with an ellipsis.
func Preview(content string, n int) string {
	if utf8.RuneCountInString(content) <= n {
		return content
	}
	runes := []rune(content)
	return strings.TrimSpace(string(runes[:n])) + "..."
}
