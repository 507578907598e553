package core

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sliink/liveplot/internal/model"
)

// Change tells a render target that one of its sources was modified
type Change struct {
	Source string
	Kind   string
	At     time.Time
}

// Subscription links a source key to the mailbox of one render target
type Subscription struct {
	TargetID string
	Mailbox  *Mailbox[Change]
}

// NotifyResult summarizes one fan-out
type NotifyResult struct {
	Delivered int
	Dropped   int
	Pruned    int
}

// SubscriptionRegistry maps source keys to the render targets watching them.
// It is shared between the dispatcher, which subscribes and unsubscribes,
// and the store notifier, which fans out changes.
type SubscriptionRegistry struct {
	subscriptions map[string][]Subscription
	mutex         sync.RWMutex
	logger        *slog.Logger
	BaseComponent
}

// NewSubscriptionRegistry creates an empty registry
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		subscriptions: make(map[string][]Subscription),
		logger:        slog.Default().With("component", "subscription_registry"),
		BaseComponent: NewBaseComponent("subscription_registry", "Subscription Registry"),
	}
}

// Initialize prepares the registry for operation
func (r *SubscriptionRegistry) Initialize() bool {
	r.SetStatus(model.StatusInitialized)
	return true
}

// Start begins registry operation
func (r *SubscriptionRegistry) Start() bool {
	r.SetStatus(model.StatusRunning)
	return true
}

// Stop halts registry operation and forgets every subscription
func (r *SubscriptionRegistry) Stop() bool {
	r.mutex.Lock()
	r.subscriptions = make(map[string][]Subscription)
	r.mutex.Unlock()

	r.SetStatus(model.StatusStopped)
	return true
}

// Subscribe appends a subscription for source. Subscribing the same target
// twice to one source is a no-op.
func (r *SubscriptionRegistry) Subscribe(source, targetID string, mailbox *Mailbox[Change]) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, s := range r.subscriptions[source] {
		if s.TargetID == targetID {
			return false
		}
	}
	r.subscriptions[source] = append(r.subscriptions[source], Subscription{TargetID: targetID, Mailbox: mailbox})
	return true
}

// Unsubscribe removes every subscription held by targetID and returns how many were removed
func (r *SubscriptionRegistry) Unsubscribe(targetID string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	removed := 0
	for source, subs := range r.subscriptions {
		kept := subs[:0]
		for _, s := range subs {
			if s.TargetID == targetID {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(r.subscriptions, source)
		} else {
			r.subscriptions[source] = kept
		}
	}
	return removed
}

// Notify sends a change to every mailbox subscribed to source. Sends never
// block. A failed send is logged and does not stop delivery to the rest;
// subscriptions whose mailbox is closed are pruned afterwards.
func (r *SubscriptionRegistry) Notify(source, kind string) NotifyResult {
	change := Change{Source: source, Kind: kind, At: time.Now()}

	var result NotifyResult
	var failed []Subscription
	var failures []error

	r.mutex.RLock()
	for _, s := range r.subscriptions[source] {
		if err := s.Mailbox.Send(change); err != nil {
			failed = append(failed, s)
			failures = append(failures, err)
			continue
		}
		result.Delivered++
	}
	r.mutex.RUnlock()

	result.Dropped = len(failed)
	var stale []string
	for i, s := range failed {
		r.logger.Warn("subscription: notification not delivered",
			"source", source,
			"target", s.TargetID,
			"error", failures[i])
		if errors.Is(failures[i], ErrMailboxClosed) {
			stale = append(stale, s.TargetID)
		}
	}
	if len(stale) > 0 {
		result.Pruned = r.prune(source, stale)
	}
	return result
}

// prune drops subscriptions on source held by the given targets, but only
// while their mailbox is still closed
func (r *SubscriptionRegistry) prune(source string, targetIDs []string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	subs := r.subscriptions[source]
	kept := subs[:0]
	pruned := 0
	for _, s := range subs {
		if s.Mailbox.Closed() && containsString(targetIDs, s.TargetID) {
			pruned++
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		delete(r.subscriptions, source)
	} else {
		r.subscriptions[source] = kept
	}
	return pruned
}

// Count returns the number of subscriptions on source
func (r *SubscriptionRegistry) Count(source string) int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.subscriptions[source])
}

// Sources returns every source key with at least one subscription, sorted
func (r *SubscriptionRegistry) Sources() []string {
	r.mutex.RLock()
	sources := make([]string, 0, len(r.subscriptions))
	for source := range r.subscriptions {
		sources = append(sources, source)
	}
	r.mutex.RUnlock()

	sort.Strings(sources)
	return sources
}

// Subscribers returns the target ids subscribed to source in subscription order
func (r *SubscriptionRegistry) Subscribers(source string) []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ids := make([]string, 0, len(r.subscriptions[source]))
	for _, s := range r.subscriptions[source] {
		ids = append(ids, s.TargetID)
	}
	return ids
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
