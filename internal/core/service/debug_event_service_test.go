package service

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/core/domain"
)

func TestDebugEventService_NewestFirst(t *testing.T) {
	svc := NewDebugEventService(10, zerolog.Nop())
	for i := 0; i < 3; i++ {
		svc.Emit(domain.DebugEvent{Action: fmt.Sprintf("event-%d", i)})
	}

	recent := svc.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recent))
	}
	if recent[0].Action != "event-2" || recent[2].Action != "event-0" {
		t.Fatalf("expected newest first, got %s .. %s", recent[0].Action, recent[2].Action)
	}
}

func TestDebugEventService_RingOverwritesOldest(t *testing.T) {
	svc := NewDebugEventService(5, zerolog.Nop())
	for i := 0; i < 8; i++ {
		svc.Emit(domain.DebugEvent{Action: fmt.Sprintf("event-%d", i)})
	}

	recent := svc.Recent(100)
	if len(recent) != 5 {
		t.Fatalf("capacity is 5, got %d events", len(recent))
	}
	if recent[0].Action != "event-7" || recent[4].Action != "event-3" {
		t.Fatalf("unexpected window: %s .. %s", recent[0].Action, recent[4].Action)
	}
}

func TestDebugEventService_FillsIDAndTimestamp(t *testing.T) {
	svc := NewDebugEventService(5, zerolog.Nop())
	svc.Emit(domain.DebugEvent{Action: "bare"})

	recent := svc.Recent(1)
	if len(recent) != 1 {
		t.Fatalf("expected 1 event, got %d", len(recent))
	}
	if recent[0].ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatal("expected an assigned id")
	}
	if recent[0].Timestamp.IsZero() {
		t.Fatal("expected an assigned timestamp")
	}
}

func TestDebugEventService_ConcurrentEmit(t *testing.T) {
	svc := NewDebugEventService(50, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			svc.Emit(domain.DebugEvent{Action: fmt.Sprintf("event-%d", n)})
		}(i)
	}
	wg.Wait()

	recent := svc.Recent(100)
	if len(recent) != 50 {
		t.Fatalf("expected a full ring of 50, got %d", len(recent))
	}
}
