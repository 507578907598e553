package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMailbox(t *testing.T) {
	t.Run("Negative capacity means unbounded", func(t *testing.T) {
		mb := NewMailbox[int](-5, nil)
		assert.Equal(t, 0, mb.capacity)
		assert.NotNil(t, mb.wake)
	})

	t.Run("Shared wake channel is kept", func(t *testing.T) {
		wake := NewWakeChannel()
		a := NewMailbox[int](0, wake)
		b := NewMailbox[string](0, wake)
		assert.Equal(t, a.Ready(), b.Ready())
	})
}

func TestMailboxSendAndDrain(t *testing.T) {
	mb := NewMailbox[int](0, nil)

	t.Run("Drain of empty mailbox returns nil", func(t *testing.T) {
		assert.Nil(t, mb.Drain())
	})

	t.Run("Items come out in send order", func(t *testing.T) {
		for i := 1; i <= 5; i++ {
			assert.NoError(t, mb.Send(i))
		}
		assert.Equal(t, 5, mb.Len())
		assert.Equal(t, []int{1, 2, 3, 4, 5}, mb.Drain())
		assert.Equal(t, 0, mb.Len())
	})

	t.Run("Send signals the wake channel once", func(t *testing.T) {
		// drain a leftover token from the previous subtest
		select {
		case <-mb.Ready():
		default:
		}

		assert.NoError(t, mb.Send(6))
		assert.NoError(t, mb.Send(7))

		select {
		case <-mb.Ready():
		default:
			t.Fatal("expected wake signal")
		}
		select {
		case <-mb.Ready():
			t.Fatal("wake channel should coalesce signals")
		default:
		}
		assert.Equal(t, []int{6, 7}, mb.Drain())
	})

	t.Run("Status counts deliveries", func(t *testing.T) {
		status := mb.Status()
		assert.Equal(t, uint64(7), status.Delivered)
		assert.Equal(t, uint64(0), status.Dropped)
		assert.Equal(t, 0, status.Pending)
		assert.False(t, status.Closed)
		assert.False(t, status.LastUpdate.IsZero())
	})
}

func TestMailboxCapacity(t *testing.T) {
	mb := NewMailbox[string](2, nil)

	assert.NoError(t, mb.Send("a"))
	assert.NoError(t, mb.Send("b"))
	assert.ErrorIs(t, mb.Send("c"), ErrMailboxFull)

	assert.Equal(t, []string{"a", "b"}, mb.Drain())
	assert.NoError(t, mb.Send("d"))
	assert.Equal(t, uint64(1), mb.Status().Dropped)
}

func TestMailboxClose(t *testing.T) {
	mb := NewMailbox[int](0, nil)
	assert.NoError(t, mb.Send(1))

	assert.True(t, mb.Close())
	assert.False(t, mb.Close())
	assert.True(t, mb.Closed())

	t.Run("Pending items are discarded", func(t *testing.T) {
		assert.Nil(t, mb.Drain())
	})

	t.Run("Send after close fails without blocking", func(t *testing.T) {
		assert.ErrorIs(t, mb.Send(2), ErrMailboxClosed)
		status := mb.Status()
		assert.True(t, status.Closed)
		assert.Equal(t, uint64(1), status.Dropped)
	})
}

func TestMailboxConcurrentProducers(t *testing.T) {
	mb := NewMailbox[int](0, nil)

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = mb.Send(i)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, mb.Drain(), 800)
}

func TestLifecycle(t *testing.T) {
	l := NewLifecycle()
	assert.False(t, l.Fired())

	var wg sync.WaitGroup
	fired := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fired <- l.Signal()
		}()
	}
	wg.Wait()
	close(fired)

	count := 0
	for f := range fired {
		if f {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.True(t, l.Fired())

	select {
	case <-l.Done():
	default:
		t.Fatal("Done should be closed after Signal")
	}
}
