// Package store provides the per-module session stores. Stores are the only
// writers of session state; everything else observes them through Subscribe.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/grovetools/lumin/pkg/models"
	"github.com/sirupsen/logrus"
)

// SubscriberBuffer is the number of updates a subscriber may fall behind
// before further updates to it are dropped.
const SubscriberBuffer = 100

// UpdateType defines what kind of data changed.
type UpdateType string

const (
	UpdateCreated   UpdateType = "created"
	UpdateUpload    UpdateType = "upload"
	UpdateProgress  UpdateType = "progress"
	UpdateResult    UpdateType = "result"
	UpdateStatus    UpdateType = "status"
	UpdateCompleted UpdateType = "completed"
	UpdateFailed    UpdateType = "failed"
	UpdateCleared   UpdateType = "cleared"
	UpdateOverlay   UpdateType = "overlay"
)

// Update represents a change to a store. Payload is a snapshot taken inside
// the mutation: models.ScriptAnalysis, models.CoachingSession,
// models.PosterJob or OverlayState.
type Update struct {
	Module    models.Module
	Type      UpdateType
	SessionID string
	Payload   interface{}
}

// Bus fans updates out to subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan Update]struct{}
	logger      *logrus.Entry
	dropped     atomic.Uint64
}

func newBus() *Bus {
	return &Bus{
		subscribers: make(map[chan Update]struct{}),
		logger:      logrus.NewEntry(logrus.StandardLogger()),
	}
}

// SetLogger sets where dropped updates are reported.
func (b *Bus) SetLogger(l *logrus.Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = l
}

// Subscribe creates a new subscription channel for state updates. The
// channel holds SubscriberBuffer updates; a subscriber that falls further
// behind misses updates until it drains, and each miss is counted in
// Dropped.
func (b *Bus) Subscribe() chan Update {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Update, SubscriberBuffer)
	b.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(ch chan Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)
}

// publish must be called with the owning store's lock held so that
// subscribers observe updates in mutation order.
func (b *Bus) publish(u Update) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- u:
		default:
			// Non-blocking send so a slow observer cannot stall a capture loop
			n := b.dropped.Add(1)
			b.logger.WithFields(logrus.Fields{
				"module":  u.Module.String(),
				"type":    string(u.Type),
				"session": u.SessionID,
				"dropped": n,
			}).Debug("Subscriber buffer full, update dropped")
		}
	}
}

// Dropped returns how many updates were not delivered because a
// subscriber's buffer was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Store groups the stores of every module behind one bus.
type Store struct {
	*Bus
	Script   *ScriptStore
	Coaching *CoachingStore
	Poster   *PosterStore
	Overlay  *Overlay
}

// New creates an empty Store.
func New() *Store {
	bus := newBus()
	return &Store{
		Bus:      bus,
		Script:   newScriptStore(bus),
		Coaching: newCoachingStore(bus),
		Poster:   newPosterStore(bus),
		Overlay:  newOverlay(bus),
	}
}

// clip bounds a progress value to [0,100].
func clip(p float64) float64 {
	switch {
	case p != p: // NaN
		return 0
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
