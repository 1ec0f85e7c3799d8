package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"svcore/internal/capability"

	"github.com/stretchr/testify/require"
)

// callLog records the order in which Init routines ran.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, id)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]string, len(l.calls))
	copy(result, l.calls)
	return result
}

// providerPackage builds a descriptor whose Init registers each provided type
// with the value "<id>:<type>".
func providerPackage(id string, requires, provides []capability.Type, log *callLog) Descriptor {
	return Descriptor{
		ID:       id,
		Requires: requires,
		Provides: provides,
		Init: func(ctx context.Context, scope *capability.Scope) error {
			if log != nil {
				log.add(id)
			}
			for _, t := range provides {
				if err := scope.Register(t, fmt.Sprintf("%s:%s", id, t)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func failingPackage(id string, requires, provides []capability.Type, err error) Descriptor {
	return Descriptor{
		ID:       id,
		Requires: requires,
		Provides: provides,
		Init: func(ctx context.Context, scope *capability.Scope) error {
			return err
		},
	}
}

func types(names ...string) []capability.Type {
	result := make([]capability.Type, len(names))
	for i, n := range names {
		result[i] = capability.Type(n)
	}
	return result
}

func submitAll(t *testing.T, o *Orchestrator, descriptors ...Descriptor) {
	t.Helper()
	for _, d := range descriptors {
		_, err := o.Submit(d)
		require.NoError(t, err)
	}
}

func statuses(report *Report) map[string]Status {
	result := make(map[string]Status, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		result[outcome.ID] = outcome.Status
	}
	return result
}

func outcome(t *testing.T, report *Report, id string) Outcome {
	t.Helper()
	o, ok := report.Outcome(id)
	require.True(t, ok, "no outcome for %s", id)
	return o
}
