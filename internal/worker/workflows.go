package worker

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

type SweepKind string

const (
	SweepAutoPublish SweepKind = "auto-publish"
	SweepSignups     SweepKind = "signups"
	SweepRateLimits  SweepKind = "rate-limits"
)

type SweepInput struct {
	Kind SweepKind
}

func activityFor(kind SweepKind) (string, bool) {
	switch kind {
	case SweepAutoPublish:
		return ProcessAutoPublishActivityName, true
	case SweepSignups:
		return ExpireSignupsActivityName, true
	case SweepRateLimits:
		return SweepRateLimitsActivityName, true
	}
	return "", false
}

// SweepWorkflow runs one sweep. Sweeps are idempotent, so a retried activity
// only picks up what the previous attempt left behind.
func SweepWorkflow(ctx workflow.Context, input SweepInput) (SweepReport, error) {
	name, ok := activityFor(input.Kind)
	if !ok {
		return SweepReport{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown sweep kind %q", input.Kind), "UnknownSweepKind", nil)
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    2 * time.Minute,
			MaximumAttempts:    5,
		},
	})

	var report SweepReport
	if err := workflow.ExecuteActivity(ctx, name).Get(ctx, &report); err != nil {
		workflow.GetLogger(ctx).Error("sweep failed", "kind", input.Kind, "error", err)
		return SweepReport{}, err
	}
	return report, nil
}
