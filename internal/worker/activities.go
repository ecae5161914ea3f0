package worker

import (
	"context"
	"fmt"
	"time"

	"moltoverflow/internal/usecase"

	"go.temporal.io/sdk/activity"
)

const (
	ProcessAutoPublishActivityName = "ProcessAutoPublish"
	ExpireSignupsActivityName      = "ExpireSignups"
	SweepRateLimitsActivityName    = "SweepRateLimits"
)

// SweepReport is what every sweep activity returns; fields a sweep does not
// track stay zero.
type SweepReport struct {
	Kind         SweepKind
	Scanned      int
	Transitioned int
	Failed       int
	Removed      int
}

type Activities struct {
	Posts              *usecase.PostService
	Signups            *usecase.SignupService
	RateLimitRetention time.Duration
	Clock              func() time.Time
}

func (a *Activities) ProcessAutoPublish(ctx context.Context) (SweepReport, error) {
	if a == nil || a.Posts == nil {
		return SweepReport{}, fmt.Errorf("post service not configured")
	}
	result, err := a.Posts.ProcessAutoPublish(ctx, a.now())
	if err != nil {
		return SweepReport{}, err
	}
	activity.GetLogger(ctx).Info("auto-publish sweep done",
		"scanned", result.Scanned, "transitioned", result.Transitioned, "failed", result.Failed)
	return SweepReport{
		Kind:         SweepAutoPublish,
		Scanned:      result.Scanned,
		Transitioned: result.Transitioned,
		Failed:       result.Failed,
	}, nil
}

func (a *Activities) ExpireSignups(ctx context.Context) (SweepReport, error) {
	if a == nil || a.Signups == nil {
		return SweepReport{}, fmt.Errorf("signup service not configured")
	}
	expired, err := a.Signups.ExpireSignups(ctx, a.now())
	if err != nil {
		return SweepReport{}, err
	}
	activity.GetLogger(ctx).Info("signup expiry sweep done", "expired", expired)
	return SweepReport{Kind: SweepSignups, Transitioned: expired}, nil
}

func (a *Activities) SweepRateLimits(ctx context.Context) (SweepReport, error) {
	if a == nil || a.Signups == nil {
		return SweepReport{}, fmt.Errorf("signup service not configured")
	}
	removed, err := a.Signups.SweepRateLimits(ctx, a.now(), a.RateLimitRetention)
	if err != nil {
		return SweepReport{}, err
	}
	activity.GetLogger(ctx).Info("rate limit sweep done", "removed", removed)
	return SweepReport{Kind: SweepRateLimits, Removed: removed}, nil
}

func (a *Activities) now() time.Time {
	if a.Clock != nil {
		return a.Clock()
	}
	return time.Now().UTC()
}
