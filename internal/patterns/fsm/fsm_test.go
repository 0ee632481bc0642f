package fsm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-event-hub/internal/hub"
	"go-event-hub/internal/journal"
)

func door() *Machine {
	m := New("door", "closed")
	m.AddTransition(Transition{From: "closed", Trigger: "open", To: "opened"})
	m.AddTransition(Transition{From: "opened", Trigger: "close", To: "closed"})
	return m
}

func TestTriggerEmitsLifecycle(t *testing.T) {
	m := door()
	var got []string
	record := func(name string) hub.Handler {
		return func(_ *hub.Hub, args ...any) error {
			got = append(got, fmt.Sprint(name, args))
			return nil
		}
	}
	m.OnFunc(EventExit, record(EventExit))
	m.OnFunc(EventTransition, record(EventTransition))
	m.OnFunc(EventEnter, record(EventEnter))

	require.NoError(t, m.Trigger(context.Background(), "open"))
	assert.Equal(t, State("opened"), m.State())
	assert.Equal(t, []string{
		"exit[closed]",
		"transition[closed open opened]",
		"enter[opened]",
	}, got)
}

func TestUnknownTriggerIsIgnored(t *testing.T) {
	m := door()
	calls := 0
	m.OnFunc(EventEnter, func(*hub.Hub, ...any) error {
		calls++
		return nil
	})
	require.NoError(t, m.Trigger(context.Background(), "close"))
	assert.Equal(t, State("closed"), m.State())
	assert.Zero(t, calls)
}

func TestExitListenerVetoesTransition(t *testing.T) {
	m := door()
	locked := errors.New("locked")
	m.OnceFunc(EventExit, func(*hub.Hub, ...any) error { return locked })

	assert.ErrorIs(t, m.Trigger(context.Background(), "open"), locked)
	assert.Equal(t, State("closed"), m.State())

	require.NoError(t, m.Trigger(context.Background(), "open"))
	assert.Equal(t, State("opened"), m.State())
}

func TestActionErrorKeepsState(t *testing.T) {
	m := New("job", "idle")
	jam := errors.New("jam")
	m.AddTransition(Transition{From: "idle", Trigger: "run", To: "running", Action: func(context.Context) error {
		return jam
	}})
	err := m.Trigger(context.Background(), "run")
	assert.ErrorIs(t, err, jam)
	assert.Equal(t, State("idle"), m.State())
}

func TestOnceOnEnter(t *testing.T) {
	m := door()
	opened := 0
	m.OnceFunc(EventEnter, func(_ *hub.Hub, args ...any) error {
		opened++
		return nil
	})
	ctx := context.Background()
	require.NoError(t, m.Trigger(ctx, "open"))
	require.NoError(t, m.Trigger(ctx, "close"))
	require.NoError(t, m.Trigger(ctx, "open"))
	assert.Equal(t, 1, opened)
}

func TestValidateTransitions(t *testing.T) {
	m := door()
	require.NoError(t, m.ValidateTransitions())

	m.AddTransition(Transition{From: "broken", Trigger: "fix", To: "closed"})
	assert.Error(t, m.ValidateTransitions())

	n := New("x", "a")
	n.AddTransition(Transition{From: "a", Trigger: "go"})
	assert.Error(t, n.ValidateTransitions())
}

func TestJournalTracksMachine(t *testing.T) {
	mr := miniredis.RunT(t)
	store := journal.NewRedisStore(&redis.Options{Addr: mr.Addr()}, "", nil)
	defer store.Close()
	ctx := context.Background()

	m := door()
	journal.Track(ctx, m, store, EventEnter, time.Minute)
	require.NoError(t, m.Trigger(ctx, "open"))
	require.NoError(t, m.Trigger(ctx, "close"))

	entry, err := store.Last(ctx, EventEnter)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.EqualValues(t, 2, entry.Version)
	assert.Equal(t, []any{"closed"}, entry.Args)
}
