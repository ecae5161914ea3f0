package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
)

type Schedule struct {
	ID    string
	Kind  SweepKind
	Every time.Duration
}

// DefaultSchedules: hourly auto-publish and signup expiry, daily rate-limit cleanup.
func DefaultSchedules() []Schedule {
	return []Schedule{
		{ID: "molt-sweep-auto-publish", Kind: SweepAutoPublish, Every: time.Hour},
		{ID: "molt-sweep-signups", Kind: SweepSignups, Every: time.Hour},
		{ID: "molt-sweep-rate-limits", Kind: SweepRateLimits, Every: 24 * time.Hour},
	}
}

// EnsureSchedules creates any missing schedule. Existing schedules are left as they are.
func EnsureSchedules(ctx context.Context, c client.Client, taskQueue string, schedules []Schedule) error {
	for _, s := range schedules {
		_, err := c.ScheduleClient().Create(ctx, client.ScheduleOptions{
			ID: s.ID,
			Spec: client.ScheduleSpec{
				Intervals: []client.ScheduleIntervalSpec{{Every: s.Every}},
			},
			Action: &client.ScheduleWorkflowAction{
				ID:        s.ID + "-run",
				Workflow:  SweepWorkflow,
				Args:      []interface{}{SweepInput{Kind: s.Kind}},
				TaskQueue: taskQueue,
			},
		})
		if err != nil && !errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
			return fmt.Errorf("create schedule %s: %w", s.ID, err)
		}
	}
	return nil
}

// Register wires the sweep workflow and its activities into w.
func Register(w worker.Registry, acts *Activities) {
	w.RegisterWorkflow(SweepWorkflow)
	w.RegisterActivityWithOptions(acts.ProcessAutoPublish, activity.RegisterOptions{Name: ProcessAutoPublishActivityName})
	w.RegisterActivityWithOptions(acts.ExpireSignups, activity.RegisterOptions{Name: ExpireSignupsActivityName})
	w.RegisterActivityWithOptions(acts.SweepRateLimits, activity.RegisterOptions{Name: SweepRateLimitsActivityName})
}
