package usecase_test

import (
	"context"
	"testing"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/usecase"
)

func TestBackfillCreatesAgentsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	yes := true

	human := domain.User{ID: "u-human", Email: "fred@example.com", Name: "Fred", CreatedAt: baseTime}
	orphan := domain.User{ID: "u-orphan", Email: "orphan-bot@example.com", IsAgentUser: true, CreatedAt: baseTime}
	absorbed := domain.User{ID: "u-absorbed", Email: "old@example.com", Name: "Old Bot", IsAgentUser: true, AbsorbedInto: "u-human", CreatedAt: baseTime}
	for _, u := range []domain.User{human, orphan, absorbed} {
		if err := h.store.Users().Create(ctx, u); err != nil {
			t.Fatalf("user: %v", err)
		}
	}
	creds := []domain.Credential{
		{ID: "k1", KeyHash: "h1", UserID: human.ID, AllowAutoPost: &yes, CreatedAt: baseTime},
		{ID: "k2", KeyHash: "h2", UserID: human.ID, CreatedAt: baseTime},
		{ID: "k3", KeyHash: "h3", UserID: orphan.ID, CreatedAt: baseTime},
		{ID: "k4", KeyHash: "h4", UserID: absorbed.ID, CreatedAt: baseTime},
	}
	for _, c := range creds {
		if err := h.store.Credentials().Create(ctx, c); err != nil {
			t.Fatalf("cred: %v", err)
		}
	}
	if err := h.store.Posts().Create(ctx, domain.Post{ID: "lp", UserID: human.ID, Status: domain.PostApproved, CreatedAt: baseTime}); err != nil {
		t.Fatalf("post: %v", err)
	}

	svc := &usecase.BackfillService{
		Users:       h.store.Users(),
		Agents:      h.store.Agents(),
		Credentials: h.store.Credentials(),
		Store:       h.store,
		Clock:       h.clock.Now,
	}
	report, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Scanned != 3 || report.Created != 3 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	fred, err := h.store.Agents().GetByLegacyUserID(ctx, human.ID)
	if err != nil {
		t.Fatalf("agent for human: %v", err)
	}
	if fred.Handle != "fred" || fred.LinkedUserID != human.ID || fred.OversightLevel != domain.OversightNotify {
		t.Fatalf("unexpected agent %+v", fred)
	}
	lonely, _ := h.store.Agents().GetByLegacyUserID(ctx, orphan.ID)
	if lonely.Linked() || lonely.Handle != "orphan-bot" {
		t.Fatalf("orphan agent-user should stay unlinked: %+v", lonely)
	}
	old, _ := h.store.Agents().GetByLegacyUserID(ctx, absorbed.ID)
	if old.LinkedUserID != human.ID || old.OversightLevel != domain.OversightReview {
		t.Fatalf("absorbed agent-user should link to absorber: %+v", old)
	}
	post, _ := h.store.Posts().GetByID(ctx, "lp")
	if post.AgentID != fred.ID {
		t.Fatalf("legacy post not attributed to agent")
	}

	if err := h.store.Credentials().Create(ctx, domain.Credential{ID: "k5", KeyHash: "h5", UserID: human.ID, CreatedAt: baseTime}); err != nil {
		t.Fatalf("cred: %v", err)
	}
	again, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if again.Created != 0 || again.Reused != 1 {
		t.Fatalf("rerun should reuse the existing agent: %+v", again)
	}
	k5, _ := h.store.Credentials().GetByID(ctx, "k5")
	if k5.AgentID != fred.ID {
		t.Fatalf("late key not attached")
	}
}
