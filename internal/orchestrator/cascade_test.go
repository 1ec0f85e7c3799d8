package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCascade_FailureSkipsDependents(t *testing.T) {
	o := New(Config{})
	errBackend := errors.New("backend unavailable")

	submitAll(t, o,
		providerPackage("p1", nil, types("installation-id"), nil),
		failingPackage("p2", types("installation-id"), types("access-token"), errBackend),
		providerPackage("p3", types("access-token"), types("lobby-client"), nil),
	)

	report, err := o.BeginInitialization(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateFailed, report.State)
	assert.Equal(t, map[string]Status{
		"p1": StatusCompleted,
		"p2": StatusFailed,
		"p3": StatusSkipped,
	}, statuses(report))

	p2 := outcome(t, report, "p2")
	var initErr *PackageInitializationError
	require.ErrorAs(t, p2.Err, &initErr)
	assert.Equal(t, "p2", initErr.Package)
	assert.ErrorIs(t, p2.Err, errBackend)

	p3 := outcome(t, report, "p3")
	assert.ErrorIs(t, p3.Err, ErrSkipped)
	assert.Contains(t, p3.Err.Error(), "p2")
	assert.Zero(t, p3.Duration)

	assert.True(t, o.Registry().Has("installation-id"))
	assert.False(t, o.Registry().Has("access-token"))
	assert.False(t, o.Registry().Has("lobby-client"))
}

func TestCascade_TransitiveSkips(t *testing.T) {
	o := New(Config{})
	submitAll(t, o,
		failingPackage("installation", nil, types("installation-id"), errors.New("disk full")),
		providerPackage("auth", types("installation-id"), types("access-token"), nil),
		providerPackage("lobby", types("access-token"), types("lobby-client"), nil),
		providerPackage("matchmaking", types("lobby-client"), nil, nil),
		providerPackage("environment", nil, types("environment"), nil),
	)

	report, err := o.BeginInitialization(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"installation"}, report.Failed())
	assert.Equal(t, []string{"auth", "lobby", "matchmaking"}, report.Skipped())
	assert.Equal(t, []string{"environment"}, report.Completed())

	// Each skip names its direct upstream.
	assert.Contains(t, outcome(t, report, "matchmaking").Err.Error(), "lobby")

	joined := report.Err()
	require.Error(t, joined)
	assert.ErrorIs(t, joined, ErrSkipped)
}

func TestCascade_PartialProvidesStillSkips(t *testing.T) {
	o := New(Config{})
	submitAll(t, o,
		providerPackage("auth", nil, types("access-token"), nil),
		failingPackage("environment", nil, types("environment"), errors.New("no endpoint")),
		// Needs one capability that arrives and one that never does.
		providerPackage("relay", types("access-token", "environment"), nil, nil),
	)

	report, err := o.BeginInitialization(context.Background())
	require.NoError(t, err)

	relay := outcome(t, report, "relay")
	assert.Equal(t, StatusSkipped, relay.Status)
	assert.ErrorIs(t, relay.Err, ErrSkipped)
	assert.Equal(t, StatusCompleted, outcome(t, report, "auth").Status)
}

func TestCascade_SubmissionOrderIndependence(t *testing.T) {
	build := func() []Descriptor {
		return []Descriptor{
			providerPackage("installation", nil, types("installation-id"), nil),
			failingPackage("auth", types("installation-id"), types("access-token"), errors.New("denied")),
			providerPackage("lobby", types("access-token"), types("lobby-client"), nil),
			providerPackage("relay", types("access-token"), nil, nil),
			providerPackage("stats", types("leaderboard"), nil, nil),
		}
	}

	want := map[string]Status{
		"installation": StatusCompleted,
		"auth":         StatusFailed,
		"lobby":        StatusSkipped,
		"relay":        StatusSkipped,
		"stats":        StatusFailed,
	}

	descs := build()
	permutations := [][]int{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
		{3, 4, 1, 0, 2},
		{1, 2, 3, 4, 0},
	}
	for _, perm := range permutations {
		t.Run(fmt.Sprint(perm), func(t *testing.T) {
			o := New(Config{})
			for _, idx := range perm {
				_, err := o.Submit(descs[idx])
				require.NoError(t, err)
			}

			report, err := o.BeginInitialization(context.Background())
			require.NoError(t, err)
			assert.Equal(t, want, statuses(report))

			var unresolved *UnresolvedDependencyError
			assert.ErrorAs(t, outcome(t, report, "stats").Err, &unresolved)
		})
	}
}
