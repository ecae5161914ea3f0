// Package memstore keeps every repository in process memory. It backs the
// server when POSTGRES_DSN is empty and the usecase tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/usecase"
)

type Store struct {
	mu          sync.Mutex
	users       map[string]domain.User
	agents      map[string]domain.Agent
	credentials map[string]domain.Credential
	posts       map[string]domain.Post
	comments    map[string]domain.Comment
	likes       map[string]domain.CommentLike
	signups     map[string]domain.SignupRequest
	rateLimits  map[string]domain.RateLimitRecord
	invites     map[string]domain.Invite
	notifyLog   []domain.NotificationLog
}

func New() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		agents:      make(map[string]domain.Agent),
		credentials: make(map[string]domain.Credential),
		posts:       make(map[string]domain.Post),
		comments:    make(map[string]domain.Comment),
		likes:       make(map[string]domain.CommentLike),
		signups:     make(map[string]domain.SignupRequest),
		rateLimits:  make(map[string]domain.RateLimitRecord),
		invites:     make(map[string]domain.Invite),
	}
}

func (s *Store) Users() *UserRepository             { return &UserRepository{s: s} }
func (s *Store) Agents() *AgentRepository           { return &AgentRepository{s: s} }
func (s *Store) Credentials() *CredentialRepository { return &CredentialRepository{s: s} }
func (s *Store) Posts() *PostRepository             { return &PostRepository{s: s} }
func (s *Store) Comments() *CommentRepository       { return &CommentRepository{s: s} }
func (s *Store) Likes() *LikeRepository             { return &LikeRepository{s: s} }
func (s *Store) Signups() *SignupRepository         { return &SignupRepository{s: s} }
func (s *Store) RateLimits() *RateLimitRepository   { return &RateLimitRepository{s: s} }
func (s *Store) Invites() *InviteRepository         { return &InviteRepository{s: s} }
func (s *Store) NotificationLogs() *NotificationLogRepository {
	return &NotificationLogRepository{s: s}
}

// NotificationLog returns a copy of every recorded notification attempt.
func (s *Store) NotificationLog() []domain.NotificationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.NotificationLog, len(s.notifyLog))
	copy(out, s.notifyLog)
	return out
}

type UserRepository struct{ s *Store }

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (r *UserRepository) GetByAuthSubject(_ context.Context, subject string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.AuthSubject == subject {
			u := user
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, user domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; ok {
		return domain.ErrConflict
	}
	for _, existing := range r.s.users {
		if user.AuthSubject != "" && existing.AuthSubject == user.AuthSubject {
			return domain.ErrConflict
		}
	}
	r.s.users[user.ID] = user
	return nil
}

type AgentRepository struct{ s *Store }

func (r *AgentRepository) Create(_ context.Context, agent domain.Agent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.createAgentLocked(agent)
}

func (s *Store) createAgentLocked(agent domain.Agent) error {
	if _, ok := s.agents[agent.ID]; ok {
		return domain.ErrConflict
	}
	for _, existing := range s.agents {
		if existing.Handle == agent.Handle {
			return domain.ErrHandleTaken
		}
	}
	s.agents[agent.ID] = agent
	return nil
}

func (r *AgentRepository) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	agent, ok := r.s.agents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &agent, nil
}

func (r *AgentRepository) GetByHandle(_ context.Context, handle string) (*domain.Agent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, agent := range r.s.agents {
		if agent.Handle == handle {
			a := agent
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AgentRepository) GetByLegacyUserID(_ context.Context, userID string) (*domain.Agent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, agent := range r.s.agents {
		if agent.LegacyUserID == userID {
			a := agent
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AgentRepository) HandleExists(ctx context.Context, handle string) (bool, error) {
	_, err := r.GetByHandle(ctx, handle)
	if err == domain.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *AgentRepository) CountCreatedBy(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, agent := range r.s.agents {
		if agent.CreatedByUserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *AgentRepository) ListLinkedTo(_ context.Context, userID string) ([]domain.Agent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Agent
	for _, agent := range r.s.agents {
		if agent.LinkedUserID == userID {
			out = append(out, agent)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

func (r *AgentRepository) Update(_ context.Context, agent domain.Agent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.agents[agent.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, existing := range r.s.agents {
		if id != agent.ID && existing.Handle == agent.Handle {
			return domain.ErrHandleTaken
		}
	}
	r.s.agents[agent.ID] = agent
	return nil
}

func (r *AgentRepository) Link(_ context.Context, agentID, userID string, level domain.OversightLevel, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.linkAgentLocked(agentID, userID, level, at)
}

func (s *Store) linkAgentLocked(agentID, userID string, level domain.OversightLevel, at time.Time) error {
	agent, ok := s.agents[agentID]
	if !ok {
		return domain.ErrNotFound
	}
	if agent.LinkedUserID != "" && agent.LinkedUserID != userID {
		return domain.ErrAlreadyClaimed
	}
	if agent.LinkedUserID == "" {
		linkedAt := at
		agent.LinkedAt = &linkedAt
	}
	agent.LinkedUserID = userID
	agent.OversightLevel = level
	agent.UpdatedAt = at
	s.agents[agentID] = agent
	return nil
}

func (r *AgentRepository) Unlink(_ context.Context, agentID, userID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	agent, ok := r.s.agents[agentID]
	if !ok {
		return domain.ErrNotFound
	}
	if agent.LinkedUserID != userID {
		return domain.ErrForbidden
	}
	agent.LinkedUserID = ""
	agent.LinkedAt = nil
	agent.OversightLevel = domain.OversightUnset
	agent.UpdatedAt = at
	r.s.agents[agentID] = agent
	return nil
}

type CredentialRepository struct{ s *Store }

func (r *CredentialRepository) Create(_ context.Context, cred domain.Credential) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.createCredentialLocked(cred)
}

func (s *Store) createCredentialLocked(cred domain.Credential) error {
	for _, existing := range s.credentials {
		if existing.KeyHash == cred.KeyHash {
			return domain.ErrConflict
		}
	}
	s.credentials[cred.ID] = cred
	return nil
}

func (r *CredentialRepository) GetByID(_ context.Context, id string) (*domain.Credential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cred, ok := r.s.credentials[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cred, nil
}

func (r *CredentialRepository) GetByHash(_ context.Context, keyHash string) (*domain.Credential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cred := range r.s.credentials {
		if cred.KeyHash == keyHash {
			c := cred
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *CredentialRepository) ListByAgents(_ context.Context, agentIDs []string) ([]domain.Credential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := toSet(agentIDs)
	var out []domain.Credential
	for _, cred := range r.s.credentials {
		if _, ok := wanted[cred.AgentID]; ok {
			out = append(out, cred)
		}
	}
	sortCredentials(out)
	return out, nil
}

func (r *CredentialRepository) ListByUser(_ context.Context, userID string) ([]domain.Credential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Credential
	for _, cred := range r.s.credentials {
		if cred.UserID == userID {
			out = append(out, cred)
		}
	}
	sortCredentials(out)
	return out, nil
}

func (r *CredentialRepository) ListUnassigned(_ context.Context) ([]domain.Credential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Credential
	for _, cred := range r.s.credentials {
		if cred.AgentID == "" && cred.UserID != "" {
			out = append(out, cred)
		}
	}
	sortCredentials(out)
	return out, nil
}

func (r *CredentialRepository) Revoke(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cred, ok := r.s.credentials[id]
	if !ok {
		return domain.ErrNotFound
	}
	if cred.RevokedAt == nil {
		revokedAt := at
		cred.RevokedAt = &revokedAt
		r.s.credentials[id] = cred
	}
	return nil
}

func (r *CredentialRepository) TouchLastUsed(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cred, ok := r.s.credentials[id]
	if !ok {
		return domain.ErrNotFound
	}
	usedAt := at
	cred.LastUsedAt = &usedAt
	r.s.credentials[id] = cred
	return nil
}

type PostRepository struct{ s *Store }

func (r *PostRepository) Create(_ context.Context, post domain.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[post.ID]; ok {
		return domain.ErrConflict
	}
	post.Tags = append([]string(nil), post.Tags...)
	r.s.posts[post.ID] = post
	return nil
}

func (r *PostRepository) GetByID(_ context.Context, id string) (*domain.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	post, ok := r.s.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &post, nil
}

func (r *PostRepository) Transition(_ context.Context, id string, t domain.ReviewTransition) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	post, ok := r.s.posts[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if post.Status != domain.PostNeedsReview || post.IsDeleted {
		return false, nil
	}
	at := t.At
	post.Status = t.To
	switch t.To {
	case domain.PostApproved:
		verified := true
		post.IsHumanVerified = &verified
		post.PublishedAt = &at
		post.ReviewedAt = &at
		post.ReviewedBy = t.ReviewedBy
	case domain.PostAutoPublished:
		verified := false
		post.IsHumanVerified = &verified
		post.PublishedAt = &at
	case domain.PostDeclined:
		post.ReviewedAt = &at
		post.ReviewedBy = t.ReviewedBy
		post.DeclineReason = t.DeclineReason
	}
	if t.Title != nil {
		post.Title = *t.Title
	}
	if t.Content != nil {
		post.Content = *t.Content
	}
	if t.SearchText != nil {
		post.SearchText = *t.SearchText
	}
	if t.ReassignAgentID != "" {
		post.AgentID = t.ReassignAgentID
	}
	r.s.posts[id] = post
	return true, nil
}

func (r *PostRepository) ListOverdue(_ context.Context, now time.Time, limit int) ([]domain.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Post
	for _, post := range r.s.posts {
		if post.Status == domain.PostNeedsReview && !post.IsDeleted && post.ReviewDeadline.Before(now) {
			out = append(out, post)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewDeadline.Before(out[j].ReviewDeadline) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *PostRepository) ListPending(_ context.Context, filter usecase.PendingFilter) ([]domain.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	agents := toSet(filter.AgentIDs)
	var out []domain.Post
	for _, post := range r.s.posts {
		if post.Status != domain.PostNeedsReview || post.IsDeleted {
			continue
		}
		_, byAgent := agents[post.AgentID]
		if byAgent || (filter.UserID != "" && post.UserID == filter.UserID) {
			out = append(out, post)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *PostRepository) Feed(_ context.Context, limit int, before *time.Time) ([]domain.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Post
	for _, post := range r.s.posts {
		if !post.Visible() || post.PublishedAt == nil {
			continue
		}
		if before != nil && !post.PublishedAt.Before(*before) {
			continue
		}
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(*out[j].PublishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *PostRepository) SoftDelete(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	post, ok := r.s.posts[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if post.IsDeleted {
		return false, nil
	}
	post.IsDeleted = true
	r.s.posts[id] = post
	return true, nil
}

// Search is the in-memory counterpart of the SQL filter.
func (r *PostRepository) Search(_ context.Context, q usecase.SearchQuery) ([]domain.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	needle := strings.ToLower(strings.TrimSpace(q.Q))
	var out []domain.Post
	for _, post := range r.s.posts {
		if !post.Visible() {
			continue
		}
		if q.Package != "" && !strings.EqualFold(post.Package, q.Package) {
			continue
		}
		if q.Language != "" && !strings.EqualFold(post.Language, q.Language) {
			continue
		}
		if q.Version != "" && post.Version != q.Version {
			continue
		}
		if needle != "" && !strings.Contains(post.SearchText, needle) {
			continue
		}
		if !hasAllTags(post.Tags, q.Tags) {
			continue
		}
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

type CommentRepository struct{ s *Store }

func (r *CommentRepository) Create(_ context.Context, comment domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.comments[comment.ID] = comment
	return nil
}

func (r *CommentRepository) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comment, ok := r.s.comments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &comment, nil
}

func (r *CommentRepository) ListByPost(_ context.Context, postID string) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Comment
	for _, comment := range r.s.comments {
		if comment.PostID == postID {
			out = append(out, comment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type LikeRepository struct{ s *Store }

func (r *LikeRepository) Like(_ context.Context, like domain.CommentLike) (bool, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comment, ok := r.s.comments[like.CommentID]
	if !ok {
		return false, 0, domain.ErrNotFound
	}
	for _, existing := range r.s.likes {
		if existing.CommentID == like.CommentID && existing.AgentID == like.AgentID {
			return false, comment.Likes, nil
		}
	}
	r.s.likes[like.ID] = like
	comment.Likes++
	r.s.comments[comment.ID] = comment
	return true, comment.Likes, nil
}

type SignupRepository struct{ s *Store }

func (r *SignupRepository) Create(_ context.Context, req domain.SignupRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.signups {
		if existing.CodeHash == req.CodeHash {
			return domain.ErrConflict
		}
	}
	r.s.signups[req.ID] = req
	return nil
}

func (r *SignupRepository) GetByID(_ context.Context, id string) (*domain.SignupRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.signups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &req, nil
}

func (r *SignupRepository) GetByCodeHash(_ context.Context, codeHash string) (*domain.SignupRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.signups {
		if req.CodeHash == codeHash {
			out := req
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *SignupRepository) MarkExpired(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.signups[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if req.Status != domain.SignupPending {
		return false, nil
	}
	req.Status = domain.SignupExpired
	r.s.signups[id] = req
	return true, nil
}

func (r *SignupRepository) RecordFailedAttempt(_ context.Context, id string, maxAttempts int) (*domain.SignupRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.signups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if req.Status == domain.SignupPending {
		req.VerifyAttempts++
		if req.VerifyAttempts >= maxAttempts {
			req.Status = domain.SignupFailed
		}
		r.s.signups[id] = req
	}
	return &req, nil
}

func (r *SignupRepository) MarkVerified(_ context.Context, id string, v domain.SignupVerification) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.markVerifiedLocked(id, v)
}

func (s *Store) markVerifiedLocked(id string, v domain.SignupVerification) (bool, error) {
	req, ok := s.signups[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if req.Status != domain.SignupPending {
		return false, nil
	}
	verifiedAt := v.VerifiedAt
	claimExpiresAt := v.ClaimExpiresAt
	req.Status = domain.SignupVerified
	req.VerifiedAt = &verifiedAt
	req.Platform = v.Platform
	req.PostURL = v.PostURL
	req.AgentID = v.AgentID
	req.APIKeyID = v.APIKeyID
	req.KeyPrefix = v.KeyPrefix
	req.Handle = v.Handle
	req.ClaimEmail = v.ClaimEmail
	req.ClaimTokenHash = v.ClaimTokenHash
	req.ClaimExpiresAt = &claimExpiresAt
	s.signups[id] = req
	return true, nil
}

func (r *SignupRepository) ExpireOverdue(_ context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	expired := 0
	for id, req := range r.s.signups {
		if req.Status == domain.SignupPending && now.After(req.ExpiresAt) {
			req.Status = domain.SignupExpired
			r.s.signups[id] = req
			expired++
		}
	}
	return expired, nil
}

func (r *SignupRepository) RecordLink(_ context.Context, id, userID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.recordSignupLinkLocked(id, userID, at)
}

func (s *Store) recordSignupLinkLocked(id, userID string, at time.Time) error {
	req, ok := s.signups[id]
	if !ok {
		return domain.ErrNotFound
	}
	if req.LinkedUserID == userID {
		return nil
	}
	linkedAt := at
	req.LinkedUserID = userID
	req.LinkedAt = &linkedAt
	s.signups[id] = req
	return nil
}

type RateLimitRepository struct{ s *Store }

func (r *RateLimitRepository) UpdateRecord(_ context.Context, fingerprint string, fn func(rec *domain.RateLimitRecord) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.rateLimits[fingerprint]
	if !ok {
		rec = domain.RateLimitRecord{Fingerprint: fingerprint}
	}
	if err := fn(&rec); err != nil {
		return err
	}
	r.s.rateLimits[fingerprint] = rec
	return nil
}

func (r *RateLimitRepository) DeleteStaleRecords(_ context.Context, before time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	removed := 0
	for key, rec := range r.s.rateLimits {
		if rec.UpdatedAt.Before(before) {
			delete(r.s.rateLimits, key)
			removed++
		}
	}
	return removed, nil
}

type InviteRepository struct{ s *Store }

func (r *InviteRepository) GetByEmail(_ context.Context, email string) (*domain.Invite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	invite, ok := r.s.invites[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &invite, nil
}

func (r *InviteRepository) Save(_ context.Context, invite domain.Invite) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.invites[invite.Email] = invite
	return nil
}

type NotificationLogRepository struct{ s *Store }

func (r *NotificationLogRepository) Append(_ context.Context, entry domain.NotificationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notifyLog = append(r.s.notifyLog, entry)
	return nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func hasAllTags(have, want []string) bool {
	set := toSet(have)
	for _, tag := range want {
		if _, ok := set[strings.ToLower(strings.TrimSpace(tag))]; !ok {
			return false
		}
	}
	return true
}

func sortCredentials(creds []domain.Credential) {
	sort.Slice(creds, func(i, j int) bool { return creds[i].CreatedAt.Before(creds[j].CreatedAt) })
}

func sortNewestFirst(posts []domain.Post) {
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
}

var (
	_ usecase.UserRepository            = (*UserRepository)(nil)
	_ usecase.AgentRepository           = (*AgentRepository)(nil)
	_ usecase.CredentialRepository      = (*CredentialRepository)(nil)
	_ usecase.PostRepository            = (*PostRepository)(nil)
	_ usecase.SearchRepository          = (*PostRepository)(nil)
	_ usecase.CommentRepository         = (*CommentRepository)(nil)
	_ usecase.LikeRepository            = (*LikeRepository)(nil)
	_ usecase.SignupRepository          = (*SignupRepository)(nil)
	_ usecase.InviteRepository          = (*InviteRepository)(nil)
	_ usecase.NotificationLogRepository = (*NotificationLogRepository)(nil)
)
