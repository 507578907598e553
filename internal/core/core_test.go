package core

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sliink/liveplot/internal/argparse"
	"github.com/sliink/liveplot/internal/model"
	"github.com/sliink/liveplot/internal/render"
	"github.com/sliink/liveplot/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coreFixture struct {
	core    *Core
	store   *memstore.Store
	factory *fakeFactory
}

func newCoreFixture(t *testing.T) *coreFixture {
	t.Helper()
	f := &coreFixture{store: seededStore(t), factory: newFakeFactory()}
	f.core = NewCore(f.store, f.factory)
	return f
}

func startCore(t *testing.T) *coreFixture {
	t.Helper()
	f := newCoreFixture(t)
	require.True(t, f.core.Initialize())
	require.True(t, f.core.Start())
	t.Cleanup(func() { f.core.Stop() })

	require.Eventually(t, func() bool { return f.store.Listeners() == 1 }, waitFor, tick)
	return f
}

func (f *coreFixture) bind(t *testing.T, args ...string) string {
	t.Helper()
	id, err := f.core.Bind(args)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := f.core.Target(id)
		return ok
	}, waitFor, tick)
	return id
}

func (f *coreFixture) redraws(id string) uint64 {
	info, _ := f.core.Target(id)
	return info.Redraws
}

func TestNewCore(t *testing.T) {
	core := NewCore(memstore.New(), newFakeFactory())

	assert.NotNil(t, core.ctx)
	assert.NotNil(t, core.eventBus)
	assert.NotNil(t, core.configManager)
	assert.Nil(t, core.GetDispatcher())
	assert.Equal(t, "core", core.ID())
	assert.Equal(t, "Core System", core.Name())
}

func TestCoreInitialize(t *testing.T) {
	t.Run("Builds plotter and dispatcher", func(t *testing.T) {
		f := newCoreFixture(t)
		require.True(t, f.core.Initialize())

		assert.NotNil(t, f.core.plotter)
		assert.NotNil(t, f.core.GetDispatcher())
		assert.Equal(t, model.StatusInitialized, f.core.GetStatus())

		components := f.core.Status().Components
		for _, id := range []string{"event_bus", "subscription_registry", "config_manager", "health_monitor", "plotter", "dispatcher", "core"} {
			assert.Contains(t, components, id)
		}
	})

	t.Run("Invalid configuration fails", func(t *testing.T) {
		f := newCoreFixture(t)
		require.NoError(t, f.core.GetConfigManager().SetConfig("store.driver", "sqlite"))

		assert.False(t, f.core.Initialize())
		assert.Equal(t, model.StatusError, f.core.GetStatus())
	})

	t.Run("Start before Initialize fails", func(t *testing.T) {
		assert.False(t, newCoreFixture(t).core.Start())
	})
}

func TestCoreStartStop(t *testing.T) {
	f := newCoreFixture(t)
	require.True(t, f.core.Initialize())

	t.Run("Start runs every component", func(t *testing.T) {
		require.True(t, f.core.Start())
		assert.Equal(t, model.StatusRunning, f.core.GetStatus())
		assert.Equal(t, model.StatusRunning, f.core.eventBus.GetStatus())
		assert.Equal(t, model.StatusRunning, f.core.subscriptions.GetStatus())
		assert.Equal(t, model.StatusRunning, f.core.dispatcher.GetStatus())
		require.Eventually(t, func() bool { return f.store.Listeners() == 1 }, waitFor, tick)
	})

	t.Run("Stop halts dispatcher and listener", func(t *testing.T) {
		assert.True(t, f.core.Stop())
		assert.Equal(t, model.StatusStopped, f.core.GetStatus())
		assert.Equal(t, StateStopped, f.core.dispatcher.State())
		assert.Equal(t, 0, f.store.Listeners())

		select {
		case <-f.core.Done():
		default:
			t.Fatal("Done should be closed after Stop")
		}
	})

	t.Run("Second Stop is harmless", func(t *testing.T) {
		assert.True(t, f.core.Stop())
	})

	t.Run("Bind after Stop is refused", func(t *testing.T) {
		_, err := f.core.Bind([]string{"--list", "la"})
		assert.ErrorIs(t, err, ErrDispatcherStopped)
	})
}

func TestCoreLivePlot(t *testing.T) {
	f := startCore(t)
	id := f.bind(t, "--list", "la", "--target", "latency")

	t.Run("Append to watched list redraws once", func(t *testing.T) {
		require.NoError(t, f.store.RPush("la", model.Int(77)))

		require.Eventually(t, func() bool { return f.redraws(id) == 1 }, waitFor, tick)
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, uint64(1), f.redraws(id))

		info, _ := f.core.Target(id)
		assert.True(t, info.Visible)
		assert.Equal(t, 8, info.Points)
		assert.Equal(t, "latency", info.Spec.Target)
	})

	t.Run("Append to another list does nothing", func(t *testing.T) {
		require.NoError(t, f.store.RPush("lb", model.Int(1)))
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, uint64(1), f.redraws(id))
	})

	t.Run("Non-list events are ignored", func(t *testing.T) {
		f.core.HandleStoreEvent("set", "la")
		f.core.HandleStoreEvent("expire", "la")
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, uint64(1), f.redraws(id))
	})

	t.Run("Status lists targets and sources", func(t *testing.T) {
		status := f.core.Status()
		assert.Equal(t, "running", status.Details["dispatcher_state"])
		assert.Equal(t, 1, status.Details["targets"])
		assert.Equal(t, []string{"la"}, status.Details["sources"])
		assert.Contains(t, status.Components, "dispatcher")
	})

	t.Run("Health monitor observes target events", func(t *testing.T) {
		assert.Equal(t, uint64(1), f.core.GetHealthMonitor().EventCount(model.EventTargetCreated))
		assert.Equal(t, uint64(1), f.core.GetHealthMonitor().EventCount(model.EventTargetRedrawn))
	})

	t.Run("Close removes the target", func(t *testing.T) {
		require.NoError(t, f.core.CloseTarget(id))
		require.Eventually(t, func() bool { return len(f.core.Targets()) == 0 }, waitFor, tick)
		assert.Empty(t, f.core.GetSubscriptionRegistry().Sources())
	})
}

func TestCoreFanOutToManyTargets(t *testing.T) {
	f := startCore(t)

	ids := make([]string, 3)
	for i := range ids {
		ids[i] = f.bind(t, "--list", "la")
	}
	stale := NewMailbox[Change](0, nil)
	stale.Close()
	f.core.GetSubscriptionRegistry().Subscribe("la", "stale", stale)

	require.NoError(t, f.store.RPush("la", model.Int(3)))

	for _, id := range ids {
		id := id
		require.Eventually(t, func() bool { return f.redraws(id) == 1 }, waitFor, tick)
	}
	assert.Equal(t, []string{ids[0], ids[1], ids[2]}, f.core.GetSubscriptionRegistry().Subscribers("la"))
	require.Eventually(t, func() bool {
		return f.core.GetHealthMonitor().EventCount(model.EventNotificationDropped) == 1
	}, waitFor, tick)
}

func TestCoreDraw(t *testing.T) {
	f := newCoreFixture(t)
	require.True(t, f.core.Initialize())
	ctx := context.Background()

	t.Run("Default size bitmap", func(t *testing.T) {
		data, err := f.core.Draw(ctx, []string{"--list", "la"})
		require.NoError(t, err)
		assert.Len(t, data, render.HeaderSize+400*300*3)
	})

	t.Run("Draw is deterministic", func(t *testing.T) {
		args := []string{"--list", "la", "lb", "--width", "320", "--height", "200"}
		first, err := f.core.Draw(ctx, args)
		require.NoError(t, err)
		second, err := f.core.Draw(ctx, args)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Len(t, first, render.HeaderSize+320*200*3)
	})

	t.Run("PNG encoding", func(t *testing.T) {
		data, err := f.core.DrawPNG(ctx, []string{"--list", "la", "lb", "--index", "zip"})
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
	})

	t.Run("Invalid arguments", func(t *testing.T) {
		_, err := f.core.Draw(ctx, []string{"--width", "10"})
		assert.ErrorIs(t, err, argparse.ErrInvalidArgument)
	})

	t.Run("Draw works without a running dispatcher", func(t *testing.T) {
		assert.Equal(t, StateIdle, f.core.GetDispatcher().State())
	})

	t.Run("Draw before Initialize fails", func(t *testing.T) {
		_, err := NewCore(memstore.New(), newFakeFactory()).Draw(ctx, []string{"--list", "la"})
		assert.Error(t, err)
	})
}

func TestCoreWithoutDispatcher(t *testing.T) {
	core := NewCore(memstore.New(), newFakeFactory())

	_, err := core.BindSpec(model.BindingSpec{Sources: []string{"la"}, Width: 1, Height: 1})
	assert.ErrorIs(t, err, ErrDispatcherStopped)
	assert.ErrorIs(t, core.CloseTarget("x"), ErrUnknownTarget)
	assert.Nil(t, core.Targets())
	_, ok := core.Target("x")
	assert.False(t, ok)
	assert.NotNil(t, core.Status().Details)
}
