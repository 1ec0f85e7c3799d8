package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"svcore/internal/capability"
	"svcore/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_Cancellation(t *testing.T) {
	o := New(Config{})

	started := make(chan struct{})
	submitAll(t, o,
		Descriptor{
			ID:       "auth",
			Provides: types("access-token"),
			Init: func(ctx context.Context, scope *capability.Scope) error {
				close(started)
				<-ctx.Done()
				return ctx.Err()
			},
		},
		providerPackage("lobby", types("access-token"), nil, nil),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-started
		cancel()
	}()

	report, err := o.BeginInitialization(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, report.State)

	auth := outcome(t, report, "auth")
	assert.Equal(t, StatusFailed, auth.Status)
	assert.ErrorIs(t, auth.Err, context.Canceled)

	lobby := outcome(t, report, "lobby")
	assert.Equal(t, StatusSkipped, lobby.Status)
	assert.ErrorIs(t, lobby.Err, ErrSkipped)
	assert.ErrorIs(t, lobby.Err, context.Canceled)
}

func TestLifecycle_CancelledBeforeStart(t *testing.T) {
	o := New(Config{})
	log := &callLog{}
	submitAll(t, o,
		providerPackage("installation", nil, types("installation-id"), log),
		providerPackage("auth", types("installation-id"), nil, log),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := o.BeginInitialization(ctx)
	require.NoError(t, err)
	assert.Empty(t, log.snapshot())
	assert.Equal(t, []string{"auth", "installation"}, report.Skipped())
	for _, outcome := range report.Outcomes {
		assert.ErrorIs(t, outcome.Err, context.Canceled)
	}
}

func TestLifecycle_PackageTimeout(t *testing.T) {
	o := New(Config{PackageTimeout: 20 * time.Millisecond})
	submitAll(t, o,
		Descriptor{
			ID: "relay",
			Init: func(ctx context.Context, scope *capability.Scope) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(5 * time.Second):
					return nil
				}
			},
		},
		providerPackage("environment", nil, types("environment"), nil),
	)

	report, err := o.BeginInitialization(context.Background())
	require.NoError(t, err)

	relay := outcome(t, report, "relay")
	assert.Equal(t, StatusFailed, relay.Status)
	assert.ErrorIs(t, relay.Err, context.DeadlineExceeded)
	assert.Equal(t, StatusCompleted, outcome(t, report, "environment").Status)
}

func TestLifecycle_StateChangeEvents(t *testing.T) {
	o := New(Config{})
	events := o.SubscribeToStateChanges()

	submitAll(t, o,
		providerPackage("auth", nil, types("access-token"), nil),
		failingPackage("environment", nil, types("environment"), errors.New("no endpoint")),
		providerPackage("relay", types("environment"), nil, nil),
	)

	report, err := o.BeginInitialization(context.Background())
	require.NoError(t, err)

	transitions := make(map[string][]Status)
	for done := false; !done; {
		select {
		case event := <-events:
			assert.Equal(t, report.RunID, event.RunID)
			if len(transitions[event.Package]) == 0 {
				transitions[event.Package] = append(transitions[event.Package], event.OldState)
			}
			transitions[event.Package] = append(transitions[event.Package], event.NewState)
		default:
			done = true
		}
	}

	assert.Equal(t, map[string][]Status{
		"auth":        {StatusPending, StatusRunning, StatusCompleted},
		"environment": {StatusPending, StatusRunning, StatusFailed},
		"relay":       {StatusPending, StatusSkipped},
	}, transitions)
}

func TestLifecycle_Metrics(t *testing.T) {
	m := metrics.New()
	o := New(Config{Metrics: m})
	submitAll(t, o,
		providerPackage("auth", nil, types("access-token"), nil),
		providerPackage("lobby", types("access-token"), types("lobby-client"), nil),
		providerPackage("stats", types("leaderboard"), nil, nil),
	)

	report, err := o.BeginInitialization(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateFailed, report.State)

	outcomes, err := testutil.GatherAndCount(m.Registry(), "svcore_init_package_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 3, outcomes)

	runs, err := testutil.GatherAndCount(m.Registry(), "svcore_init_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}
