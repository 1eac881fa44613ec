package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/core/domain"
)

const defaultEventCapacity = 500

// DebugEventService keeps a bounded in-memory ring of recent pipeline events
// for the debug endpoint and mirrors each one to the structured log. Emission
// is best-effort and never fails the caller.
type DebugEventService struct {
	mu     sync.Mutex
	events []domain.DebugEvent
	next   int
	filled bool
	log    zerolog.Logger
}

func NewDebugEventService(capacity int, log zerolog.Logger) *DebugEventService {
	if capacity <= 0 {
		capacity = defaultEventCapacity
	}
	return &DebugEventService{events: make([]domain.DebugEvent, capacity), log: log}
}

func (s *DebugEventService) Emit(event domain.DebugEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.events[s.next] = event
	s.next++
	if s.next == len(s.events) {
		s.next = 0
		s.filled = true
	}
	s.mu.Unlock()

	s.log.Debug().
		Str("event_type", string(event.Type)).
		Str("action", event.Action).
		Str("correlation_id", event.CorrelationID).
		Msg("pipeline event")
}

// Recent returns up to n events, newest first.
func (s *DebugEventService) Recent(n int) []domain.DebugEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.next
	if s.filled {
		size = len(s.events)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]domain.DebugEvent, 0, n)
	for i := 0; i < n; i++ {
		idx := s.next - 1 - i
		if idx < 0 {
			idx += len(s.events)
		}
		out = append(out, s.events[idx])
	}
	return out
}
