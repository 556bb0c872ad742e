package store

import (
	"sync"

	"github.com/grovetools/lumin/pkg/models"
)

// PosterStore owns the poster generation job and the list of produced posters.
type PosterStore struct {
	mu      sync.RWMutex
	bus     *Bus
	current *models.PosterJob
	posters []models.GeneratedPoster
}

func newPosterStore(bus *Bus) *PosterStore {
	return &PosterStore{bus: bus}
}

func (s *PosterStore) snapshot() models.PosterJob {
	out := *s.current
	if s.current.Poster != nil {
		p := *s.current.Poster
		out.Poster = &p
	}
	return out
}

// Create starts a new generation job, replacing any previous one.
func (s *PosterStore) Create(req models.PosterRequest, id string) models.PosterJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &models.PosterJob{
		ID:      id,
		Request: req,
		Status:  models.StatusActive,
	}
	snap := s.snapshot()
	s.bus.publish(Update{Module: models.ModulePoster, Type: UpdateCreated, SessionID: id, Payload: snap})
	return snap
}

func (s *PosterStore) active(id string) *models.PosterJob {
	if s.current == nil || s.current.ID != id || s.current.Status.Terminal() {
		return nil
	}
	return s.current
}

// UpdateProgress sets job progress, clipped and monotonic.
func (s *PosterStore) UpdateProgress(id string, p float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.active(id)
	if cur == nil {
		return false
	}
	p = clip(p)
	if p < cur.Progress {
		return false
	}
	cur.Progress = p
	s.bus.publish(Update{Module: models.ModulePoster, Type: UpdateProgress, SessionID: id, Payload: s.snapshot()})
	return true
}

// SetResult completes the job with the generated poster. The poster is put
// at the front of Posters.
func (s *PosterStore) SetResult(id string, poster models.GeneratedPoster) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.active(id)
	if cur == nil {
		return false
	}
	cur.Poster = &poster
	cur.Progress = 100
	cur.Status = models.StatusCompleted
	s.posters = append([]models.GeneratedPoster{poster}, s.posters...)
	s.bus.publish(Update{Module: models.ModulePoster, Type: UpdateCompleted, SessionID: id, Payload: s.snapshot()})
	return true
}

// Fail moves the job to the terminal error status.
func (s *PosterStore) Fail(id, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.active(id)
	if cur == nil {
		return false
	}
	cur.Status = models.StatusError
	cur.Error = message
	s.bus.publish(Update{Module: models.ModulePoster, Type: UpdateFailed, SessionID: id, Payload: s.snapshot()})
	return true
}

// Clear drops the current job. Generated posters are kept.
func (s *PosterStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.bus.publish(Update{Module: models.ModulePoster, Type: UpdateCleared})
}

// Current returns a copy of the current job.
func (s *PosterStore) Current() (models.PosterJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.PosterJob{}, false
	}
	return s.snapshot(), true
}

// Posters returns every generated poster, newest first.
func (s *PosterStore) Posters() []models.GeneratedPoster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.GeneratedPoster, len(s.posters))
	copy(out, s.posters)
	return out
}
