package usecase_test

import (
	"context"
	"errors"
	"testing"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/usecase"
)

func TestLink_DefaultsToReviewAndIsIdempotent(t *testing.T) {
	h := newHarness(t)
	owner := h.human(t, "pia")
	res, token := verifiedSignup(t, h, "pia-bot")
	ctx := context.Background()

	if reason := h.linking.CheckToken(ctx, token); reason != "" {
		t.Fatalf("fresh token rejected: %s", reason)
	}
	linked, err := h.linking.Link(ctx, owner, token, "")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if linked.AlreadyLinked || linked.Agent.LinkedUserID != "pia" || linked.Agent.OversightLevel != domain.OversightReview {
		t.Fatalf("unexpected link result %+v", linked)
	}
	again, err := h.linking.Link(ctx, owner, token, "none")
	if err != nil {
		t.Fatalf("relink: %v", err)
	}
	if !again.AlreadyLinked || again.Agent.OversightLevel != domain.OversightNone {
		t.Fatalf("relink should update level only: %+v", again)
	}
	if reason := h.linking.CheckToken(ctx, token); reason != usecase.LinkReasonAlreadyClaimed {
		t.Fatalf("expected already_claimed after link, got %q", reason)
	}

	agentCtx, err := h.credentials.Authenticate(ctx, res.APIKey)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	post, err := h.posts.Create(ctx, agentCtx, samplePost())
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if post.Status != domain.PostAutoPublished {
		t.Fatalf("none level should auto publish, got %s", post.Status)
	}
}

func TestLink_SecondHumanRejected(t *testing.T) {
	h := newHarness(t)
	first := h.human(t, "quinn")
	second := h.human(t, "ray")
	_, token := verifiedSignup(t, h, "quinn-bot")
	ctx := context.Background()

	if _, err := h.linking.Link(ctx, first, token, "review"); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := h.linking.Link(ctx, second, token, "review"); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}
	if _, err := h.linking.Claim(ctx, second, token); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed on claim, got %v", err)
	}
}

func TestLink_RejectsAgentAccountsAndBadTokens(t *testing.T) {
	h := newHarness(t)
	_, token := verifiedSignup(t, h, "sam-bot")
	ctx := context.Background()

	agentUser := domain.Principal{Kind: domain.PrincipalHuman, User: &domain.User{ID: "legacy", IsAgentUser: true}}
	if _, err := h.linking.Link(ctx, agentUser, token, ""); !errors.Is(err, domain.ErrAgentAccount) {
		t.Fatalf("expected agent account rejection, got %v", err)
	}
	owner := h.human(t, "sam")
	_, err := h.linking.Link(ctx, owner, token+"x", "")
	var lerr *usecase.LinkTokenError
	if !errors.As(err, &lerr) || !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected token error, got %v", err)
	}
	if _, err := h.linking.Link(ctx, owner, token, "sometimes"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid level, got %v", err)
	}
}

func TestClaim_MovesContentAndPreservesOriginalOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	legacy := domain.User{ID: "agent-user", Email: "bot@agents.local", IsAgentUser: true, CreatedAt: baseTime}
	if err := h.store.Users().Create(ctx, legacy); err != nil {
		t.Fatalf("legacy user: %v", err)
	}
	res, token := verifiedSignup(t, h, "legacy-bot")
	agent, _ := h.store.Agents().GetByID(ctx, res.AgentID)
	agent.LegacyUserID = legacy.ID
	if err := h.store.Agents().Update(ctx, *agent); err != nil {
		t.Fatalf("attach legacy: %v", err)
	}

	legacyPost := domain.Post{ID: "p-legacy", UserID: legacy.ID, Title: "old", Content: "old", Package: "x", Language: "go", Status: domain.PostApproved, CreatedAt: baseTime}
	if err := h.store.Posts().Create(ctx, legacyPost); err != nil {
		t.Fatalf("legacy post: %v", err)
	}
	agentCtx, _ := h.credentials.Authenticate(ctx, res.APIKey)
	created, err := h.posts.Create(ctx, agentCtx, samplePost())
	if err != nil {
		t.Fatalf("agent post: %v", err)
	}
	if created.Status != domain.PostNeedsReview {
		t.Fatalf("unlinked agent must be held, got %s", created.Status)
	}

	owner := h.human(t, "tess")
	result, err := h.linking.Claim(ctx, owner, token)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if result.PostsMoved != 2 || result.CredentialsMoved != 1 || result.AbsorbedLegacyUser != legacy.ID {
		t.Fatalf("unexpected claim result %+v", result)
	}
	if result.Agent.LinkedUserID != "tess" || result.Agent.OversightLevel != domain.OversightReview {
		t.Fatalf("agent not linked: %+v", result.Agent)
	}

	moved, _ := h.store.Posts().GetByID(ctx, "p-legacy")
	if moved.UserID != "tess" || moved.OriginalAgentUserID != legacy.ID {
		t.Fatalf("legacy post ownership wrong: %+v", moved)
	}
	absorbed, _ := h.store.Users().GetByID(ctx, legacy.ID)
	if absorbed.AbsorbedInto != "tess" || absorbed.AbsorbedAt == nil {
		t.Fatalf("legacy user not absorbed: %+v", absorbed)
	}

	// Re-running is a no-op and keeps the original owner.
	rerun, err := h.linking.Claim(ctx, owner, token)
	if err != nil {
		t.Fatalf("claim again: %v", err)
	}
	if rerun.PostsMoved != 0 || rerun.CredentialsMoved != 0 {
		t.Fatalf("rerun should move nothing: %+v", rerun)
	}
	moved, _ = h.store.Posts().GetByID(ctx, "p-legacy")
	if moved.OriginalAgentUserID != legacy.ID {
		t.Fatalf("original owner overwritten: %q", moved.OriginalAgentUserID)
	}

	pending, err := h.posts.ListPendingForUser(ctx, owner)
	if err != nil || len(pending) != 1 {
		t.Fatalf("claimed human should now review the held post: %v %v", pending, err)
	}
}

func TestUnlinkResetsOversight(t *testing.T) {
	h := newHarness(t)
	owner := h.human(t, "uma")
	_, token := verifiedSignup(t, h, "uma-bot")
	ctx := context.Background()
	linked, err := h.linking.Link(ctx, owner, token, "notify")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := h.linking.Unlink(ctx, h.human(t, "vic"), linked.Agent.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("stranger unlink should be forbidden, got %v", err)
	}
	if err := h.linking.Unlink(ctx, owner, linked.Agent.ID); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	agent, _ := h.store.Agents().GetByID(ctx, linked.Agent.ID)
	if agent.Linked() || agent.OversightLevel != domain.OversightUnset {
		t.Fatalf("unlink did not reset agent: %+v", agent)
	}
	if _, err := h.linking.SetOversightLevel(ctx, owner, agent.ID, "none"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("unlinked agent level change should be forbidden, got %v", err)
	}
}
