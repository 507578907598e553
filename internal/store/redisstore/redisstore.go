// Package redisstore backs store.Store with Redis lists and keyspace
// notifications.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/sliink/liveplot/internal/model"
	"github.com/sliink/liveplot/internal/store"
)

// notifyFlags enables keyspace events for generic, list and expiry commands
const notifyFlags = "Kglx"

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	// ConfigureNotifications issues CONFIG SET notify-keyspace-events before
	// listening. Leave it off when the server is managed elsewhere.
	ConfigureNotifications bool
}

// Store talks to a Redis server
type Store struct {
	client *redis.Client
	opts   Options
	logger *slog.Logger
}

// New creates a store for the given options. No connection is made until
// the first command.
func New(opts Options) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Store{
		client: client,
		opts:   opts,
		logger: slog.Default().With("component", "redisstore", "addr", opts.Addr),
	}
}

// Ping checks connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Range implements store.Reader. TYPE and LRANGE run in one transaction so
// the type check and the read see the same key.
func (s *Store) Range(ctx context.Context, key string) ([]model.Value, error) {
	var typ *redis.StatusCmd
	var items *redis.StringSliceCmd

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		typ = pipe.Type(ctx, key)
		items = pipe.LRange(ctx, key, 0, -1)
		return nil
	})
	if typ == nil || typ.Err() != nil {
		if err == nil {
			err = typ.Err()
		}
		return nil, fmt.Errorf("type %s: %w", key, err)
	}

	switch typ.Val() {
	case "none":
		return nil, store.ErrNotFound
	case "list":
	default:
		return nil, store.ErrWrongType
	}
	if err != nil {
		if isWrongType(err) {
			return nil, store.ErrWrongType
		}
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	return model.Strings(items.Val()...), nil
}

// Set implements store.Writer
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Append implements store.Writer
func (s *Store) Append(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := s.client.RPush(ctx, key, args...).Err(); err != nil {
		if isWrongType(err) {
			return store.ErrWrongType
		}
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}

// Listen implements store.Notifier using keyspace notifications. The
// handler runs on this goroutine.
func (s *Store) Listen(ctx context.Context, handler store.Handler) error {
	if s.opts.ConfigureNotifications {
		if err := s.client.ConfigSet(ctx, "notify-keyspace-events", notifyFlags).Err(); err != nil {
			return fmt.Errorf("enable keyspace notifications: %w", err)
		}
	}

	prefix := fmt.Sprintf("__keyspace@%d__:", s.opts.DB)
	pubsub := s.client.PSubscribe(ctx, prefix+"*")
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting events
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("psubscribe %s*: %w", prefix, err)
	}
	s.logger.Info("listening for keyspace notifications", "pattern", prefix+"*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			key := strings.TrimPrefix(msg.Channel, prefix)
			handler(msg.Payload, key)
		}
	}
}

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

func isWrongType(err error) bool {
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return strings.HasPrefix(rerr.Error(), "WRONGTYPE")
	}
	return strings.Contains(err.Error(), "WRONGTYPE")
}
