package memstore

import (
	"context"
	"time"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/infra/ratelimit"
	"moltoverflow/internal/usecase"
)

type snapshot struct {
	users       map[string]domain.User
	agents      map[string]domain.Agent
	credentials map[string]domain.Credential
	posts       map[string]domain.Post
	comments    map[string]domain.Comment
	likes       map[string]domain.CommentLike
	signups     map[string]domain.SignupRequest
}

func (s *Store) snapshotLocked() snapshot {
	return snapshot{
		users:       cloneMap(s.users),
		agents:      cloneMap(s.agents),
		credentials: cloneMap(s.credentials),
		posts:       cloneMap(s.posts),
		comments:    cloneMap(s.comments),
		likes:       cloneMap(s.likes),
		signups:     cloneMap(s.signups),
	}
}

func (s *Store) restoreLocked(snap snapshot) {
	s.users = snap.users
	s.agents = snap.agents
	s.credentials = snap.credentials
	s.posts = snap.posts
	s.comments = snap.comments
	s.likes = snap.likes
	s.signups = snap.signups
}

// WithTx runs fn with the store locked and rolls every change back when fn
// returns an error.
func (s *Store) WithTx(ctx context.Context, fn func(tx usecase.ClaimTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshotLocked()
	if err := fn(&txView{s: s}); err != nil {
		s.restoreLocked(snap)
		return err
	}
	return nil
}

func (s *Store) WithBackfillTx(ctx context.Context, fn func(tx usecase.BackfillTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshotLocked()
	if err := fn(&txView{s: s}); err != nil {
		s.restoreLocked(snap)
		return err
	}
	return nil
}

func (s *Store) WithRegistrationTx(ctx context.Context, fn func(tx usecase.RegistrationTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshotLocked()
	if err := fn(&txView{s: s}); err != nil {
		s.restoreLocked(snap)
		return err
	}
	return nil
}

// txView assumes the store mutex is already held.
type txView struct{ s *Store }

func (t *txView) AssignCredentialsToUser(_ context.Context, scope usecase.ClaimScope) (int, error) {
	changed := 0
	for id, cred := range t.s.credentials {
		if !inScope(scope, cred.AgentID, cred.UserID) {
			continue
		}
		cred.UserID = scope.ToUserID
		t.s.credentials[id] = cred
		changed++
	}
	return changed, nil
}

func (t *txView) ReassignPosts(_ context.Context, scope usecase.ClaimScope) (int, error) {
	changed := 0
	for id, post := range t.s.posts {
		if !inScope(scope, post.AgentID, post.UserID) {
			continue
		}
		if post.OriginalAgentUserID == "" {
			post.OriginalAgentUserID = post.UserID
		}
		post.UserID = scope.ToUserID
		t.s.posts[id] = post
		changed++
	}
	return changed, nil
}

func (t *txView) ReassignComments(_ context.Context, scope usecase.ClaimScope) (int, error) {
	changed := 0
	for id, comment := range t.s.comments {
		if !inScope(scope, comment.AgentID, comment.UserID) {
			continue
		}
		if comment.OriginalAgentUserID == "" {
			comment.OriginalAgentUserID = comment.UserID
		}
		comment.UserID = scope.ToUserID
		t.s.comments[id] = comment
		changed++
	}
	return changed, nil
}

func (t *txView) ReassignLikes(_ context.Context, scope usecase.ClaimScope) (int, error) {
	changed := 0
	for id, like := range t.s.likes {
		if !inScope(scope, like.AgentID, like.UserID) {
			continue
		}
		if like.OriginalAgentUserID == "" {
			like.OriginalAgentUserID = like.UserID
		}
		like.UserID = scope.ToUserID
		t.s.likes[id] = like
		changed++
	}
	return changed, nil
}

func inScope(scope usecase.ClaimScope, agentID, userID string) bool {
	if userID == scope.ToUserID {
		return false
	}
	if scope.AgentID != "" && agentID == scope.AgentID {
		return true
	}
	return scope.LegacyUserID != "" && userID == scope.LegacyUserID
}

func (t *txView) MarkAbsorbed(_ context.Context, userID, intoUserID string, at time.Time) error {
	user, ok := t.s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if user.AbsorbedInto == intoUserID {
		return nil
	}
	if user.AbsorbedInto != "" {
		return domain.ErrAlreadyClaimed
	}
	absorbedAt := at
	user.AbsorbedInto = intoUserID
	user.AbsorbedAt = &absorbedAt
	t.s.users[userID] = user
	return nil
}

func (t *txView) LinkAgent(_ context.Context, agentID, userID string, level domain.OversightLevel, at time.Time) error {
	return t.s.linkAgentLocked(agentID, userID, level, at)
}

func (t *txView) RecordSignupLink(_ context.Context, requestID, userID string, at time.Time) error {
	return t.s.recordSignupLinkLocked(requestID, userID, at)
}

func (t *txView) CreateAgent(_ context.Context, agent domain.Agent) error {
	return t.s.createAgentLocked(agent)
}

func (t *txView) CreateCredential(_ context.Context, cred domain.Credential) error {
	return t.s.createCredentialLocked(cred)
}

func (t *txView) MarkSignupVerified(_ context.Context, id string, v domain.SignupVerification) (bool, error) {
	return t.s.markVerifiedLocked(id, v)
}

func (t *txView) AssignCredentials(_ context.Context, userID, agentID string) (int, error) {
	changed := 0
	for id, cred := range t.s.credentials {
		if cred.UserID == userID && cred.AgentID == "" {
			cred.AgentID = agentID
			t.s.credentials[id] = cred
			changed++
		}
	}
	return changed, nil
}

func (t *txView) AssignPosts(_ context.Context, userID, agentID string) (int, error) {
	changed := 0
	for id, post := range t.s.posts {
		if post.UserID == userID && post.AgentID == "" {
			post.AgentID = agentID
			t.s.posts[id] = post
			changed++
		}
	}
	return changed, nil
}

func (t *txView) AssignComments(_ context.Context, userID, agentID string) (int, error) {
	changed := 0
	for id, comment := range t.s.comments {
		if comment.UserID == userID && comment.AgentID == "" {
			comment.AgentID = agentID
			t.s.comments[id] = comment
			changed++
		}
	}
	return changed, nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var (
	_ usecase.ClaimStore        = (*Store)(nil)
	_ usecase.BackfillStore     = (*Store)(nil)
	_ usecase.RegistrationStore = (*Store)(nil)
	_ ratelimit.RecordStore     = (*RateLimitRepository)(nil)
)
