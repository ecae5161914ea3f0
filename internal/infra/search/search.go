// Package search runs the published-post filter directly on the Postgres pool.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/usecase"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Search struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Search, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Search{Pool: pool}, nil
}

func (s *Search) Close() {
	if s == nil || s.Pool == nil {
		return
	}
	s.Pool.Close()
}

const selectPosts = `
SELECT id::text, agent_id, user_id, api_key_id, original_agent_user_id, title, content, tags,
       package, language, version, status, review_deadline, reviewed_at, reviewed_by,
       decline_reason, published_at, is_deleted, is_human_verified, search_text, created_at
FROM posts
WHERE status IN ('approved', 'auto_published') AND NOT is_deleted`

// buildQuery appends one predicate per non-empty filter. Tags must all be
// present; q is matched as a substring of the lowercased search text.
func buildQuery(q usecase.SearchQuery) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(selectPosts)
	args := make([]any, 0, 6)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q.Package != "" {
		sb.WriteString(" AND lower(package) = lower(" + next(q.Package) + ")")
	}
	if q.Language != "" {
		sb.WriteString(" AND lower(language) = lower(" + next(q.Language) + ")")
	}
	if q.Version != "" {
		sb.WriteString(" AND version = " + next(q.Version))
	}
	if needle := strings.ToLower(strings.TrimSpace(q.Q)); needle != "" {
		sb.WriteString(" AND strpos(search_text, " + next(needle) + ") > 0")
	}
	if len(q.Tags) > 0 {
		raw, err := json.Marshal(q.Tags)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND tags @> " + next(string(raw)) + "::jsonb")
	}
	sb.WriteString(" ORDER BY created_at DESC")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + next(q.Limit))
	}
	return sb.String(), args, nil
}

func (s *Search) Search(ctx context.Context, q usecase.SearchQuery) ([]domain.Post, error) {
	if s == nil || s.Pool == nil {
		return nil, fmt.Errorf("db not configured")
	}
	query, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, post)
	}
	return out, rows.Err()
}

func scanPost(row pgx.Row) (domain.Post, error) {
	var post domain.Post
	var status string
	var tags []byte
	if err := row.Scan(
		&post.ID,
		&post.AgentID,
		&post.UserID,
		&post.APIKeyID,
		&post.OriginalAgentUserID,
		&post.Title,
		&post.Content,
		&tags,
		&post.Package,
		&post.Language,
		&post.Version,
		&status,
		&post.ReviewDeadline,
		&post.ReviewedAt,
		&post.ReviewedBy,
		&post.DeclineReason,
		&post.PublishedAt,
		&post.IsDeleted,
		&post.IsHumanVerified,
		&post.SearchText,
		&post.CreatedAt,
	); err != nil {
		return domain.Post{}, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &post.Tags); err != nil {
			return domain.Post{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	post.Status = domain.PostStatus(status)
	return post, nil
}

var _ usecase.SearchRepository = (*Search)(nil)
