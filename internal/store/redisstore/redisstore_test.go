package redisstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sliink/liveplot/internal/model"
	"github.com/sliink/liveplot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := New(Options{Addr: mr.Addr()})
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRange(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := mr.RPush("la", "1", "2", "4", "9")
	require.NoError(t, err)
	require.NoError(t, mr.Set("str", "value"))

	t.Run("Returns list elements as strings", func(t *testing.T) {
		values, err := s.Range(ctx, "la")
		require.NoError(t, err)
		assert.Equal(t, model.Strings("1", "2", "4", "9"), values)
	})

	t.Run("Missing key", func(t *testing.T) {
		_, err := s.Range(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Wrong type", func(t *testing.T) {
		_, err := s.Range(ctx, "str")
		assert.ErrorIs(t, err, store.ErrWrongType)
	})
}

func TestWriter(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "lb", "3", "5"))
	list, err := mr.List("lb")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "5"}, list)

	require.NoError(t, s.Set(ctx, "out", []byte{0x89, 'P', 'N', 'G'}))
	got, err := mr.Get("out")
	require.NoError(t, err)
	assert.Equal(t, string([]byte{0x89, 'P', 'N', 'G'}), got)

	assert.ErrorIs(t, s.Append(ctx, "out", "1"), store.ErrWrongType)
	assert.NoError(t, s.Append(ctx, "empty"))
}

func TestListen(t *testing.T) {
	s, mr := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mutex sync.Mutex
	var got [][2]string
	done := make(chan error, 1)
	go func() {
		done <- s.Listen(ctx, func(kind, key string) {
			mutex.Lock()
			got = append(got, [2]string{kind, key})
			mutex.Unlock()
		})
	}()

	// miniredis does not emit keyspace events itself, so publish them the
	// way Redis would.
	require.Eventually(t, func() bool {
		return mr.PubSubNumPat() == 1
	}, time.Second, 5*time.Millisecond)
	mr.Publish("__keyspace@0__:la", "rpush")
	mr.Publish("__keyspace@0__:lb", "del")

	require.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	mutex.Lock()
	assert.Equal(t, [][2]string{{"rpush", "la"}, {"del", "lb"}}, got)
	mutex.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}
