package session

import (
	"sync"
	"testing"

	"xarajat/internal/core"
)

func TestDefaultStateIsIdle(t *testing.T) {
	m := NewManager()
	if _, ok := m.Current(1).(Idle); !ok {
		t.Fatalf("unknown user should be Idle, got %T", m.Current(1))
	}
}

func TestSetAndCurrent(t *testing.T) {
	m := NewManager()
	m.Set(1, AwaitingCategory{Amount: core.Money{Units: 1500}})

	s, ok := m.Current(1).(AwaitingCategory)
	if !ok {
		t.Fatalf("expected AwaitingCategory, got %T", m.Current(1))
	}
	if s.Amount.Units != 1500 {
		t.Fatalf("buffered amount = %d, want 1500", s.Amount.Units)
	}
	// Other users are unaffected.
	if _, ok := m.Current(2).(Idle); !ok {
		t.Fatalf("user 2 should be Idle, got %T", m.Current(2))
	}
}

func TestIdleEvictsEntry(t *testing.T) {
	m := NewManager()
	m.Set(1, AwaitingAmount{})
	m.Set(2, AwaitingStartDate{})
	if got := m.Active(); got != 2 {
		t.Fatalf("Active = %d, want 2", got)
	}

	m.Set(1, Idle{})
	m.Clear(2)
	if got := m.Active(); got != 0 {
		t.Fatalf("Active after clears = %d, want 0", got)
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle{}, "idle"},
		{AwaitingAmount{}, "awaiting_amount"},
		{AwaitingCategory{}, "awaiting_category"},
		{AwaitingDescription{}, "awaiting_description"},
		{AwaitingStartDate{}, "awaiting_start_date"},
		{AwaitingEndDate{}, "awaiting_end_date"},
	}
	for _, tt := range tests {
		if got := Name(tt.state); got != tt.want {
			t.Errorf("Name(%T) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestLockSerializesPerUser(t *testing.T) {
	m := NewManager()
	const workers = 8
	const rounds = 100

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				lk := m.Lock(7)
				lk.Lock()
				counter++
				lk.Unlock()
			}
		}()
	}
	wg.Wait()

	if counter != workers*rounds {
		t.Fatalf("counter = %d, want %d", counter, workers*rounds)
	}
}
