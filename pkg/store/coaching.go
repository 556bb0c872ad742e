package store

import (
	"sync"
	"time"

	"github.com/grovetools/lumin/pkg/models"
)

// CoachingStore owns the coaching session.
type CoachingStore struct {
	mu      sync.RWMutex
	bus     *Bus
	now     func() time.Time
	current *models.CoachingSession
}

func newCoachingStore(bus *Bus) *CoachingStore {
	return &CoachingStore{bus: bus, now: time.Now}
}

// Create starts a new coaching session, replacing any previous one.
func (s *CoachingStore) Create(sceneText, id string) models.CoachingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &models.CoachingSession{
		ID:              id,
		SceneText:       sceneText,
		StartedAt:       s.now(),
		Status:          models.StatusActive,
		FacialLandmarks: []models.FacialLandmark{},
	}
	snap := s.current.Clone()
	s.bus.publish(Update{Module: models.ModuleCoaching, Type: UpdateCreated, SessionID: id, Payload: snap})
	return snap
}

func (s *CoachingStore) active(id string) *models.CoachingSession {
	if s.current == nil || s.current.ID != id || s.current.Status.Terminal() {
		return nil
	}
	return s.current
}

func (s *CoachingStore) mutate(id string, typ UpdateType, fn func(cur *models.CoachingSession) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.active(id)
	if cur == nil || !fn(cur) {
		return false
	}
	s.bus.publish(Update{Module: models.ModuleCoaching, Type: typ, SessionID: id, Payload: cur.Clone()})
	return true
}

// UpdateMetrics replaces the latest metrics snapshot.
func (s *CoachingStore) UpdateMetrics(id string, m models.CoachingMetrics) bool {
	return s.mutate(id, UpdateResult, func(cur *models.CoachingSession) bool {
		cur.Metrics = m
		return true
	})
}

// UpdateLandmarks replaces the landmark set.
func (s *CoachingStore) UpdateLandmarks(id string, landmarks []models.FacialLandmark) bool {
	return s.mutate(id, UpdateResult, func(cur *models.CoachingSession) bool {
		cur.FacialLandmarks = append([]models.FacialLandmark(nil), landmarks...)
		return true
	})
}

// RecordFrame counts a captured frame.
func (s *CoachingStore) RecordFrame(id string) bool {
	return s.mutate(id, UpdateProgress, func(cur *models.CoachingSession) bool {
		cur.Frames++
		return true
	})
}

// Pause moves an active session to paused.
func (s *CoachingStore) Pause(id string) bool {
	return s.mutate(id, UpdateStatus, func(cur *models.CoachingSession) bool {
		if cur.Status != models.StatusActive {
			return false
		}
		cur.Status = models.StatusPaused
		return true
	})
}

// Resume moves a paused session back to active.
func (s *CoachingStore) Resume(id string) bool {
	return s.mutate(id, UpdateStatus, func(cur *models.CoachingSession) bool {
		if cur.Status != models.StatusPaused {
			return false
		}
		cur.Status = models.StatusActive
		return true
	})
}

// Complete ends the session.
func (s *CoachingStore) Complete(id string) bool {
	return s.mutate(id, UpdateCompleted, func(cur *models.CoachingSession) bool {
		cur.Status = models.StatusCompleted
		cur.Progress = 100
		return true
	})
}

// Fail moves the session to the terminal error status.
func (s *CoachingStore) Fail(id, message string) bool {
	return s.mutate(id, UpdateFailed, func(cur *models.CoachingSession) bool {
		cur.Status = models.StatusError
		cur.Error = message
		return true
	})
}

// Clear drops the current session.
func (s *CoachingStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.bus.publish(Update{Module: models.ModuleCoaching, Type: UpdateCleared})
}

// Current returns a copy of the current session.
func (s *CoachingStore) Current() (models.CoachingSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.CoachingSession{}, false
	}
	return s.current.Clone(), true
}
