package simulation

import (
	"sync"

	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

// History is the session's append-only AttackLog record.
type History struct {
	mu   sync.RWMutex
	logs []models.AttackLog
}

func NewHistory() *History {
	return &History{}
}

// Append stores a copy of the log.
func (h *History) Append(log models.AttackLog) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logs = append(h.logs, log.Clone())
}

// List returns copies of every log, oldest first.
func (h *History) List() []models.AttackLog {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.AttackLog, len(h.logs))
	for i := range h.logs {
		out[i] = h.logs[i].Clone()
	}
	return out
}

// Get returns the log with the given id.
func (h *History) Get(id string) (models.AttackLog, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := range h.logs {
		if h.logs[i].ID == id {
			return h.logs[i].Clone(), true
		}
	}
	return models.AttackLog{}, false
}

// Latest returns the most recent log.
func (h *History) Latest() (models.AttackLog, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.logs) == 0 {
		return models.AttackLog{}, false
	}
	return h.logs[len(h.logs)-1].Clone(), true
}

// Len returns the number of logs.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.logs)
}

// Reset drops every log. Only a session reset calls this.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logs = nil
}
