package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"moltoverflow/internal/config"
	"moltoverflow/internal/domain"
	"moltoverflow/internal/infra/auth/gateway"
	"moltoverflow/internal/infra/memstore"
	"moltoverflow/internal/infra/policyopa"
	"moltoverflow/internal/infra/ratelimit"
	"moltoverflow/internal/infra/tokens"
	"moltoverflow/internal/usecase"

	"github.com/gin-gonic/gin"
)

const (
	testAdminKey = "admin-key-for-tests"
	testUser     = "user-ada"
)

var testActionSecret = []byte("action-secret-for-tests")

type captureNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *captureNotifier) Notify(_ context.Context, note domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return nil
}

type stubVerifier struct {
	result domain.SocialVerification
}

func (v stubVerifier) Verify(context.Context, domain.Platform, string, string, time.Time) domain.SocialVerification {
	return v.result
}

type testEnv struct {
	server   *Server
	store    *memstore.Store
	notifier *captureNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	policy, err := policyopa.NewEngine(context.Background())
	if err != nil {
		t.Fatalf("policy engine: %v", err)
	}
	store := memstore.New()
	notifier := &captureNotifier{}
	cfg := config.Config{
		AuthMode:      "header",
		AdminAPIKey:   testAdminKey,
		PublicBaseURL: "https://molt.test",
	}
	credentials := &usecase.CredentialService{Agents: store.Agents(), Credentials: store.Credentials()}
	posts := &usecase.PostService{
		Posts:         store.Posts(),
		Agents:        store.Agents(),
		Users:         store.Users(),
		Policy:        policy,
		Notifier:      notifier,
		Engine:        &usecase.OversightEngine{},
		ActionSecret:  testActionSecret,
		PublicBaseURL: cfg.PublicBaseURL,
	}
	signup := &usecase.SignupService{
		Signups:       store.Signups(),
		Agents:        store.Agents(),
		Credentials:   credentials,
		Registrations: store,
		Verifier:      stubVerifier{result: domain.SocialVerification{Verified: true}},
		Limiter:       ratelimit.NewMemoryLimiter(ratelimit.Config{Limit: 2, Window: time.Hour}),
		Notifier:      notifier,
		LinkSecret:    []byte("link-secret-for-tests"),
		PublicBaseURL: cfg.PublicBaseURL,
		VerifyBudget:  5 * time.Second,
	}
	server := NewServer(cfg, ServerDeps{
		Posts:       posts,
		Comments:    &usecase.CommentService{Posts: store.Posts(), Comments: store.Comments(), Likes: store.Likes()},
		Search:      &usecase.SearchService{Search: store.Posts()},
		Credentials: credentials,
		Signup:      signup,
		Linking: &usecase.LinkingService{
			Signups:    store.Signups(),
			Agents:     store.Agents(),
			Users:      store.Users(),
			Claims:     store,
			LinkSecret: []byte("link-secret-for-tests"),
		},
		Invites:  &usecase.InviteService{Invites: store.Invites(), Notifier: notifier, PublicBaseURL: cfg.PublicBaseURL},
		Backfill: &usecase.BackfillService{Users: store.Users(), Agents: store.Agents(), Credentials: store.Credentials(), Store: store},
		Humans:   gateway.NewAuthenticator(store.Users()),
	})
	return &testEnv{server: server, store: store, notifier: notifier}
}

type request struct {
	method  string
	path    string
	body    any
	apiKey  string
	user    string
	headers map[string]string
}

func (e *testEnv) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if req.body != nil {
		if err := json.NewEncoder(&body).Encode(req.body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	httpReq := httptest.NewRequest(req.method, req.path, &body)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.apiKey)
	}
	if req.user != "" {
		httpReq.Header.Set(headerUserID, req.user)
		httpReq.Header.Set(headerUserEmail, req.user+"@example.com")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, httpReq)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// createAgent signs in as user, creates an agent at level and returns its API key.
func (e *testEnv) createAgent(t *testing.T, user, name, level string) (string, string) {
	t.Helper()
	rec := e.do(t, request{method: http.MethodPost, path: "/api/v1/me/agents", user: user, body: createAgentRequest{Name: name, OversightLevel: level}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create agent: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Agent agentResponse     `json:"agent"`
		Key   issuedKeyResponse `json:"key"`
	}
	decode(t, rec, &resp)
	if resp.Key.APIKey == "" || resp.Agent.ID == "" {
		t.Fatalf("expected agent and key, got %+v", resp)
	}
	return resp.Agent.ID, resp.Key.APIKey
}

func (e *testEnv) createPost(t *testing.T, apiKey string) createPostResponse {
	t.Helper()
	rec := e.do(t, request{method: http.MethodPost, path: "/api/v1/posts", apiKey: apiKey, body: createPostRequest{
		Title:    "pgx pool exhausts under load",
		Content:  "Set **MaxConns** explicitly.",
		Package:  "github.com/jackc/pgx/v5",
		Language: "go",
		Version:  "5.5.0",
		Tags:     []string{"postgres", "pool"},
	}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create post: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp createPostResponse
	decode(t, rec, &resp)
	return resp
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, request{method: http.MethodGet, path: "/healthz"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"mode":"memory"`) {
		t.Fatalf("expected memory mode, got %s", rec.Body.String())
	}
}

func TestCreatePost_RequiresAPIKey(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, request{method: http.MethodPost, path: "/api/v1/posts", body: createPostRequest{Title: "x"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var resp errorResponse
	decode(t, rec, &resp)
	if resp.Code != "UNAUTHENTICATED" || resp.Error == "" {
		t.Fatalf("expected UNAUTHENTICATED with error text, got %+v", resp)
	}

	rec = env.do(t, request{method: http.MethodPost, path: "/api/v1/posts", apiKey: "molt_bogus", body: createPostRequest{Title: "x"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown key, got %d", rec.Code)
	}
}

func TestCreatePost_ValidationError(t *testing.T) {
	env := newTestEnv(t)
	_, key := env.createAgent(t, testUser, "Scout", "none")
	rec := env.do(t, request{method: http.MethodPost, path: "/api/v1/posts", apiKey: key, body: createPostRequest{Content: "no title"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp errorResponse
	decode(t, rec, &resp)
	if resp.Details["field"] == nil {
		t.Fatalf("expected field detail, got %+v", resp)
	}
}

func TestReviewFlow_ApproveThroughMe(t *testing.T) {
	env := newTestEnv(t)
	_, key := env.createAgent(t, testUser, "Scout", "review")
	created := env.createPost(t, key)
	if created.Status != string(domain.PostNeedsReview) || created.ReviewDeadline == nil {
		t.Fatalf("expected needs_review with deadline, got %+v", created)
	}

	rec := env.do(t, request{method: http.MethodGet, path: "/api/v1/me/reviews", user: testUser})
	if rec.Code != http.StatusOK {
		t.Fatalf("reviews: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var reviews struct {
		Posts []postResponse `json:"posts"`
		Count int            `json:"count"`
	}
	decode(t, rec, &reviews)
	if reviews.Count != 1 || reviews.Posts[0].ID != created.ID {
		t.Fatalf("expected the pending post, got %+v", reviews)
	}

	rec = env.do(t, request{method: http.MethodPost, path: "/api/v1/me/posts/" + created.ID + "/approve", user: "user-mallory"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger approve: expected 403, got %d: %s", rec.Code, rec.Body.String())
	}

	title := "pgx pool exhausts under heavy load"
	rec = env.do(t, request{method: http.MethodPost, path: "/api/v1/me/posts/" + created.ID + "/approve", user: testUser, body: approveRequest{Title: &title}})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, request{method: http.MethodPost, path: "/api/v1/me/posts/" + created.ID + "/approve", user: testUser})
	var again struct {
		AlreadyProcessed bool `json:"alreadyProcessed"`
	}
	decode(t, rec, &again)
	if rec.Code != http.StatusOK || !again.AlreadyProcessed {
		t.Fatalf("second approve: expected alreadyProcessed, got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, request{method: http.MethodGet, path: "/api/v1/posts/" + created.ID, apiKey: key})
	if rec.Code != http.StatusOK {
		t.Fatalf("get post: expected 200, got %d", rec.Code)
	}
	var post postResponse
	decode(t, rec, &post)
	if post.Status != string(domain.PostApproved) || post.Title != title || post.PublishedAt == nil {
		t.Fatalf("expected approved edited post, got %+v", post)
	}
}

func TestGetPost_MalformedIDIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, key := env.createAgent(t, testUser, "Scout", "none")
	rec := env.do(t, request{method: http.MethodGet, path: "/api/v1/posts/not-a-post", apiKey: key})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCommentsAndLikes(t *testing.T) {
	env := newTestEnv(t)
	_, author := env.createAgent(t, testUser, "Author", "none")
	_, reader := env.createAgent(t, testUser, "Reader", "none")
	post := env.createPost(t, author)

	rec := env.do(t, request{method: http.MethodPost, path: "/api/v1/posts/" + post.ID + "/comments", apiKey: reader, body: createCommentRequest{Content: "Worked for me on 5.6 too."}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("comment: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var comment struct {
		ID string `json:"id"`
	}
	decode(t, rec, &comment)

	for i, want := range []bool{false, true} {
		rec = env.do(t, request{method: http.MethodPost, path: "/api/v1/comments/" + comment.ID + "/like", apiKey: author})
		if rec.Code != http.StatusOK {
			t.Fatalf("like %d: expected 200, got %d: %s", i, rec.Code, rec.Body.String())
		}
		var like struct {
			AlreadyLiked bool `json:"alreadyLiked"`
			Likes        int  `json:"likes"`
		}
		decode(t, rec, &like)
		if like.AlreadyLiked != want || like.Likes != 1 {
			t.Fatalf("like %d: expected alreadyLiked=%v likes=1, got %+v", i, want, like)
		}
	}

	rec = env.do(t, request{method: http.MethodGet, path: "/api/v1/posts/" + post.ID + "/comments", apiKey: author})
	var list struct {
		Comments []commentResponse `json:"comments"`
		Count    int               `json:"count"`
	}
	decode(t, rec, &list)
	if list.Count != 1 || list.Comments[0].ID != comment.ID || list.Comments[0].Likes != 1 {
		t.Fatalf("unexpected comments: %+v", list)
	}
}

func TestKnowledge_RendersMarkdown(t *testing.T) {
	env := newTestEnv(t)
	_, key := env.createAgent(t, testUser, "Scout", "none")
	env.createPost(t, key)

	rec := env.do(t, request{method: http.MethodGet, path: "/api/v1/knowledge?language=go", apiKey: key})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing package: expected 400, got %d", rec.Code)
	}
	rec = env.do(t, request{method: http.MethodGet, path: "/api/v1/knowledge?package=github.com/jackc/pgx/v5&language=go&tag=postgres", apiKey: key})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown") {
		t.Fatalf("expected markdown content type, got %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "pgx pool exhausts under load") {
		t.Fatalf("expected post title in knowledge, got %s", rec.Body.String())
	}
}

func TestInvite_SecondSendIsRateLimited(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, request{method: http.MethodPost, path: "/api/v1/invite", body: inviteRequest{Email: "Human@Example.com"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("first invite: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, request{method: http.MethodPost, path: "/api/v1/invite", body: inviteRequest{Email: "human@example.com"}})
	var resp inviteResponse
	decode(t, rec, &resp)
	if rec.Code != http.StatusTooManyRequests || !resp.AlreadySent {
		t.Fatalf("second invite: expected 429 alreadySent, got %d %+v", rec.Code, resp)
	}
	if len(env.notifier.sent) != 1 {
		t.Fatalf("expected one invite email, got %d", len(env.notifier.sent))
	}
}

func TestEmailAction_DeclineRendersPage(t *testing.T) {
	env := newTestEnv(t)
	_, key := env.createAgent(t, testUser, "Scout", "review")
	post := env.createPost(t, key)

	token := tokens.SignAction(post.ID, tokens.ActionDecline, testActionSecret)
	rec := env.do(t, request{method: http.MethodGet, path: "/api/v1/email-actions/approve?token=" + token})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatched action: expected 400, got %d", rec.Code)
	}

	rec = env.do(t, request{method: http.MethodGet, path: "/api/v1/email-actions/decline?token=" + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("decline: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Post declined") || !strings.Contains(body, "<strong>MaxConns</strong>") {
		t.Fatalf("expected rendered decline page, got %s", body)
	}

	rec = env.do(t, request{method: http.MethodGet, path: "/api/v1/email-actions/decline?token=" + token})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Already processed") {
		t.Fatalf("repeat: expected already processed page, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestKeys_ListAndRevoke(t *testing.T) {
	env := newTestEnv(t)
	agentID, key := env.createAgent(t, testUser, "Scout", "none")

	rec := env.do(t, request{method: http.MethodPost, path: "/api/v1/me/agents/" + agentID + "/keys", user: testUser, body: createKeyRequest{Name: "ci"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create key: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, request{method: http.MethodGet, path: "/api/v1/me/keys", user: testUser})
	var list struct {
		Keys []keyResponse `json:"keys"`
	}
	decode(t, rec, &list)
	if len(list.Keys) != 2 {
		t.Fatalf("expected 2 keys, got %+v", list)
	}

	var original string
	for _, k := range list.Keys {
		if strings.HasPrefix(key, k.KeyPrefix) && k.Name == "Scout" {
			original = k.ID
		}
	}
	if original == "" {
		t.Fatalf("original key not listed: %+v", list.Keys)
	}
	rec = env.do(t, request{method: http.MethodDelete, path: "/api/v1/me/keys/" + original, user: "user-mallory"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger revoke: expected 403, got %d", rec.Code)
	}
	rec = env.do(t, request{method: http.MethodDelete, path: "/api/v1/me/keys/" + original, user: testUser})
	if rec.Code != http.StatusOK {
		t.Fatalf("revoke: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, request{method: http.MethodGet, path: "/api/v1/search?q=pgx", apiKey: key})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked key: expected 401, got %d", rec.Code)
	}
}

func TestUpdateAgent_RenameAndLevel(t *testing.T) {
	env := newTestEnv(t)
	agentID, _ := env.createAgent(t, testUser, "Scout", "none")
	handle := "scout-prime"
	level := "notify"
	rec := env.do(t, request{method: http.MethodPatch, path: "/api/v1/me/agents/" + agentID, user: testUser, body: updateAgentRequest{Handle: &handle, OversightLevel: &level}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var agent agentResponse
	decode(t, rec, &agent)
	if agent.Handle != handle || agent.OversightLevel != level {
		t.Fatalf("expected renamed notify agent, got %+v", agent)
	}

	bad := "Not A Handle!"
	rec = env.do(t, request{method: http.MethodPatch, path: "/api/v1/me/agents/" + agentID, user: testUser, body: updateAgentRequest{Handle: &bad}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid handle: expected 400, got %d", rec.Code)
	}
}

func TestMe_RequiresGatewayIdentity(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, request{method: http.MethodGet, path: "/api/v1/me/keys"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	env.server.cfg.AuthMode = "none"
	rec = env.do(t, request{method: http.MethodGet, path: "/api/v1/me/keys", user: testUser})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("auth mode none: expected 401, got %d", rec.Code)
	}
}

func TestAdminSweeps(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, request{method: http.MethodPost, path: "/api/v1/admin/sweeps/auto-publish", user: testUser})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin: expected 403, got %d", rec.Code)
	}
	rec = env.do(t, request{method: http.MethodPost, path: "/api/v1/admin/sweeps/auto-publish", headers: map[string]string{headerAdminKey: "wrong"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad admin key: expected 401, got %d", rec.Code)
	}
	for _, kind := range []string{"auto-publish", "signups", "rate-limits"} {
		rec = env.do(t, request{method: http.MethodPost, path: "/api/v1/admin/sweeps/" + kind, headers: map[string]string{headerAdminKey: testAdminKey}})
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", kind, rec.Code, rec.Body.String())
		}
	}
	rec = env.do(t, request{method: http.MethodPost, path: "/api/v1/admin/sweeps/everything", headers: map[string]string{headerAdminKey: testAdminKey}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown sweep: expected 404, got %d", rec.Code)
	}
	rec = env.do(t, request{method: http.MethodPost, path: "/api/v1/admin/migrations/legacy-agents", headers: map[string]string{headerAdminKey: testAdminKey}})
	if rec.Code != http.StatusOK {
		t.Fatalf("backfill: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSignupInit_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 2; i++ {
		rec := env.do(t, request{method: http.MethodPost, path: "/api/v1/agent-signup/init"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("init %d: expected 201, got %d: %s", i, rec.Code, rec.Body.String())
		}
		if rec.Header().Get("RateLimit-Limit") != "2" {
			t.Fatalf("expected RateLimit-Limit 2, got %q", rec.Header().Get("RateLimit-Limit"))
		}
	}
	rec := env.do(t, request{method: http.MethodPost, path: "/api/v1/agent-signup/init"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestSignupInit_LimitKeyedOnClientAddressOnly(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		rec := env.do(t, request{method: http.MethodPost, path: "/api/v1/agent-signup/init", headers: map[string]string{
			"User-Agent":      "agent/" + strings.Repeat("x", i+1),
			"X-Forwarded-For": "203.0.113." + string(rune('1'+i)),
		}})
		want := http.StatusCreated
		if i == 2 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("init %d: expected %d, got %d: %s", i, want, rec.Code, rec.Body.String())
		}
	}
}

func TestSignupVerify_RegistersAgent(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, request{method: http.MethodPost, path: "/api/v1/agent-signup/init"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("init: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var challenge signupInitResponse
	decode(t, rec, &challenge)

	rec = env.do(t, request{method: http.MethodPost, path: "/api/v1/agent-signup/verify", body: map[string]string{
		"verificationCode": challenge.VerificationCode,
		"socialPostUrl":    "https://x.com/someone/status/123",
		"handle":           "signup-bot",
	}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("verify: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var registered signupVerifyResponse
	decode(t, rec, &registered)
	if registered.Handle != "signup-bot" || registered.APIKey == "" || registered.ClaimURL == "" {
		t.Fatalf("unexpected verify response %+v", registered)
	}

	rec = env.do(t, request{method: http.MethodGet, path: "/api/v1/search?q=pool", apiKey: registered.APIKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("new key should authenticate, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, request{method: http.MethodPost, path: "/api/v1/agent-signup/verify", body: map[string]string{
		"verificationCode": challenge.VerificationCode,
		"socialPostUrl":    "https://x.com/someone/status/123",
		"handle":           "signup-bot-2",
	}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("reused code: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSignupClaim_RedirectsWithReason(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, request{method: http.MethodGet, path: "/api/v1/agent-signup/claim"})
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://molt.test/link?error=missing_token" {
		t.Fatalf("unexpected redirect %q", loc)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, request{method: http.MethodGet, path: "/api/v2/nothing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
