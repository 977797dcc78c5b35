package services

import (
	"sync"
	"testing"
	"time"
)

func TestDenialStateLifecycle(t *testing.T) {
	s := NewSessionService(time.Minute)

	if _, ok := s.DeniedQuery("alice"); ok {
		t.Fatal("fresh session should have no armed denial")
	}

	s.ArmDenial("alice", "merger terms")

	query, ok := s.DeniedQuery("alice")
	if !ok || query != "merger terms" {
		t.Fatalf("DeniedQuery = (%q, %v), want (merger terms, true)", query, ok)
	}

	// Denial state is strictly session-scoped.
	if _, ok := s.DeniedQuery("bob"); ok {
		t.Fatal("denial must not leak across sessions")
	}

	s.ClearDenial("alice")
	if _, ok := s.DeniedQuery("alice"); ok {
		t.Fatal("denial should be gone after clear")
	}
}

func TestArmDenialReplacesPrevious(t *testing.T) {
	s := NewSessionService(time.Minute)
	s.ArmDenial("alice", "first query")
	s.ArmDenial("alice", "second query")

	query, ok := s.DeniedQuery("alice")
	if !ok || query != "second query" {
		t.Fatalf("DeniedQuery = (%q, %v), want (second query, true)", query, ok)
	}
}

func TestConsumeDenial(t *testing.T) {
	s := NewSessionService(time.Minute)
	s.ArmDenial("alice", "merger terms")

	query, ok := s.ConsumeDenial("alice")
	if !ok || query != "merger terms" {
		t.Fatalf("ConsumeDenial = (%q, %v), want (merger terms, true)", query, ok)
	}
	if _, ok := s.DeniedQuery("alice"); ok {
		t.Fatal("denial should be consumed")
	}
	if _, ok := s.ConsumeDenial("alice"); ok {
		t.Fatal("second consume should find nothing")
	}
}

func TestLockIsStablePerSession(t *testing.T) {
	s := NewSessionService(time.Minute)

	if s.Lock("alice") != s.Lock("alice") {
		t.Fatal("same session must get the same lock")
	}
	if s.Lock("alice") == s.Lock("bob") {
		t.Fatal("different sessions must get different locks")
	}
}

func TestLockConcurrentAccess(t *testing.T) {
	s := NewSessionService(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := s.Lock("shared")
			l.Lock()
			l.Unlock()
		}()
	}
	wg.Wait()
}
