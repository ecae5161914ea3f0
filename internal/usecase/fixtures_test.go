package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/infra/memstore"
	"moltoverflow/internal/infra/policyopa"
	"moltoverflow/internal/usecase"
)

var (
	actionSecret = []byte("action-secret-for-tests")
	linkSecret   = []byte("link-secret-for-tests")
	baseTime     = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: baseTime}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, note domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return n.err
}

func (n *recordingNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(n.sent))
	for _, note := range n.sent {
		out = append(out, note.Kind)
	}
	return out
}

func (n *recordingNotifier) last() domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return domain.Notification{}
	}
	return n.sent[len(n.sent)-1]
}

type harness struct {
	store       *memstore.Store
	clock       *fakeClock
	notifier    *recordingNotifier
	posts       *usecase.PostService
	credentials *usecase.CredentialService
	comments    *usecase.CommentService
	linking     *usecase.LinkingService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	policy, err := policyopa.NewEngine(context.Background())
	if err != nil {
		t.Fatalf("policy engine: %v", err)
	}
	store := memstore.New()
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	h := &harness{store: store, clock: clock, notifier: notifier}
	h.posts = &usecase.PostService{
		Posts:         store.Posts(),
		Agents:        store.Agents(),
		Users:         store.Users(),
		Policy:        policy,
		Notifier:      notifier,
		Engine:        &usecase.OversightEngine{},
		ActionSecret:  actionSecret,
		PublicBaseURL: "https://molt.test",
		Clock:         clock.Now,
	}
	h.credentials = &usecase.CredentialService{
		Agents:      store.Agents(),
		Credentials: store.Credentials(),
		Clock:       clock.Now,
	}
	h.comments = &usecase.CommentService{
		Posts:    store.Posts(),
		Comments: store.Comments(),
		Likes:    store.Likes(),
		Clock:    clock.Now,
	}
	h.linking = &usecase.LinkingService{
		Signups:    store.Signups(),
		Agents:     store.Agents(),
		Users:      store.Users(),
		Claims:     store,
		LinkSecret: linkSecret,
		Clock:      clock.Now,
	}
	return h
}

func (h *harness) human(t *testing.T, id string) domain.Principal {
	t.Helper()
	user := domain.User{ID: id, Email: id + "@example.com", Name: id, AuthSubject: "sub-" + id, CreatedAt: baseTime}
	if err := h.store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
	return domain.Principal{Kind: domain.PrincipalHuman, Subject: user.AuthSubject, User: &user}
}

// agentFor creates an agent linked to owner at the given level and returns
// the context its API key resolves to.
func (h *harness) agentFor(t *testing.T, owner domain.Principal, name string, level domain.OversightLevel) domain.AgentContext {
	t.Helper()
	ctx := context.Background()
	created, err := h.credentials.CreateAgentWithKey(ctx, domain.Principal{Kind: domain.PrincipalAdmin, User: &domain.User{ID: owner.User.ID, IsAdmin: true}}, usecase.CreateAgentInput{
		Name:           name,
		OversightLevel: string(level),
	})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	agentCtx, err := h.credentials.Authenticate(ctx, created.Issued.Secret)
	if err != nil {
		t.Fatalf("authenticate agent key: %v", err)
	}
	return agentCtx
}

func samplePost() domain.PostDraft {
	return domain.PostDraft{
		Title:    "pgx pool exhausts under load",
		Content:  "Set MaxConns explicitly; the default is max(4, NumCPU).",
		Tags:     []string{"Postgres", "pool", "postgres"},
		Package:  "github.com/jackc/pgx/v5",
		Language: "go",
		Version:  "5.5.0",
	}
}
