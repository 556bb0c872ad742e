package store

import (
	"sync"
	"time"

	"github.com/grovetools/lumin/pkg/models"
)

// ScriptStore owns the script analysis session.
type ScriptStore struct {
	mu             sync.RWMutex
	bus            *Bus
	now            func() time.Time
	current        *models.ScriptAnalysis
	history        []models.ScriptAnalysis
	uploading      bool
	uploadFile     string
	uploadProgress float64
}

func newScriptStore(bus *Bus) *ScriptStore {
	return &ScriptStore{bus: bus, now: time.Now}
}

// BeginUpload marks a file as being uploaded. Upload progress is tracked
// separately from the analysis session, which does not exist yet.
func (s *ScriptStore) BeginUpload(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploading = true
	s.uploadFile = filename
	s.uploadProgress = 0
	s.bus.publish(Update{Module: models.ModuleScript, Type: UpdateUpload, Payload: 0.0})
}

// SetUploadProgress records upload progress; it only moves forward.
func (s *ScriptStore) SetUploadProgress(p float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = clip(p)
	if !s.uploading || p < s.uploadProgress {
		return false
	}
	s.uploadProgress = p
	s.bus.publish(Update{Module: models.ModuleScript, Type: UpdateUpload, Payload: p})
	return true
}

// UploadProgress returns the upload progress and whether an upload is running.
func (s *ScriptStore) UploadProgress() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploadProgress, s.uploading
}

// Create starts a new analysis session, replacing any previous one.
func (s *ScriptStore) Create(filename, id string) models.ScriptAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uploading {
		s.uploading = false
		s.uploadProgress = 100
	}
	s.current = &models.ScriptAnalysis{
		ID:         id,
		Filename:   filename,
		UploadedAt: s.now(),
		Status:     models.StatusAnalyzing,
		Progress:   0,
		Agents:     []models.AgentFeedback{},
	}
	snap := s.current.Clone()
	s.bus.publish(Update{Module: models.ModuleScript, Type: UpdateCreated, SessionID: id, Payload: snap})
	return snap
}

// active returns the session if it matches id and still accepts writes.
func (s *ScriptStore) active(id string) *models.ScriptAnalysis {
	if s.current == nil || s.current.ID != id || s.current.Status.Terminal() {
		return nil
	}
	return s.current
}

// UpdateProgress sets the analysis progress. Values are clipped to [0,100];
// lower values than the current one are ignored.
func (s *ScriptStore) UpdateProgress(id string, p float64) bool {
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
	s.bus.publish(Update{Module: models.ModuleScript, Type: UpdateProgress, SessionID: id, Payload: cur.Clone()})
	return true
}

// AppendFeedback adds one agent entry to the session.
func (s *ScriptStore) AppendFeedback(id string, fb models.AgentFeedback) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.active(id)
	if cur == nil {
		return false
	}
	fb.Suggestions = append([]string(nil), fb.Suggestions...)
	cur.Agents = append(cur.Agents, fb)
	s.bus.publish(Update{Module: models.ModuleScript, Type: UpdateResult, SessionID: id, Payload: cur.Clone()})
	return true
}

// Complete marks the session completed at 100% and records it in History.
func (s *ScriptStore) Complete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.active(id)
	if cur == nil {
		return false
	}
	cur.Status = models.StatusCompleted
	cur.Progress = 100
	snap := cur.Clone()
	s.history = append(s.history, snap)
	s.bus.publish(Update{Module: models.ModuleScript, Type: UpdateCompleted, SessionID: id, Payload: snap})
	return true
}

// Fail moves the session to the terminal error status.
func (s *ScriptStore) Fail(id, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.active(id)
	if cur == nil {
		return false
	}
	cur.Status = models.StatusError
	cur.Error = message
	s.bus.publish(Update{Module: models.ModuleScript, Type: UpdateFailed, SessionID: id, Payload: cur.Clone()})
	return true
}

// Clear drops the current session. History is kept.
func (s *ScriptStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.uploading = false
	s.uploadProgress = 0
	s.bus.publish(Update{Module: models.ModuleScript, Type: UpdateCleared})
}

// Current returns a copy of the current session.
func (s *ScriptStore) Current() (models.ScriptAnalysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.ScriptAnalysis{}, false
	}
	return s.current.Clone(), true
}

// History returns completed analyses, oldest first.
func (s *ScriptStore) History() []models.ScriptAnalysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ScriptAnalysis, len(s.history))
	copy(out, s.history)
	return out
}
