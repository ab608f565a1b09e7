package router

import (
	"sync"

	"github.com/google/uuid"

	"reportrag/internal/agents"
	"reportrag/internal/models"
)

// Session is the per-user state the router keeps between queries. Every
// field is guarded by mu.
type Session struct {
	mu sync.Mutex

	id        string
	user      models.DocumentSet
	reference models.DocumentSet
	priority  []string
	vectorize bool

	analysis *agents.RAGAgent
	explore  *agents.RAGAgent
}

func newSession() *Session {
	return &Session{
		id:        uuid.NewString(),
		user:      models.NewDocumentSet(models.ProvenanceUser, nil),
		reference: models.NewDocumentSet(models.ProvenanceReference, nil),
	}
}

// SessionStatus is a read-only snapshot of a Session.
type SessionStatus struct {
	ID             string   `json:"session_id"`
	UserFiles      []string `json:"user_files"`
	ReferenceFiles []string `json:"reference_files"`
	PriorityFiles  []string `json:"priority_files"`
	Vectorized     bool     `json:"vectorized"`
	ExploreStarted bool     `json:"explore_started"`
}

func (s *Session) status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStatus{
		ID:             s.id,
		UserFiles:      s.user.Paths(),
		ReferenceFiles: s.reference.Paths(),
		PriorityFiles:  append([]string{}, s.priority...),
		Vectorized:     s.vectorize,
		ExploreStarted: s.explore != nil,
	}
}
