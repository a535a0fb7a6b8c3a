package planner

import (
	"testing"
	"time"
)

func TestStoreGetOrCreate(t *testing.T) {
	s := NewStore()

	first, created := s.GetOrCreate("ABCD")
	if !created {
		t.Fatal("expected first call to create a session")
	}
	second, created := s.GetOrCreate("ABCD")
	if created || second != first {
		t.Fatal("expected second call to return the existing session")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestStoreRemoveIgnoresReplacedSession(t *testing.T) {
	s := NewStore()
	old, _ := s.GetOrCreate("ABCD")
	if !s.Remove(old) {
		t.Fatal("expected remove to succeed")
	}
	fresh, _ := s.GetOrCreate("ABCD")

	if s.Remove(old) {
		t.Fatal("removing a stale session must not drop its replacement")
	}
	if got, ok := s.Get("ABCD"); !ok || got != fresh {
		t.Fatal("replacement session missing")
	}
}

func TestStorePrune(t *testing.T) {
	s := NewStore()
	stale, _ := s.GetOrCreate("OLD1")
	stale.touched.Store(time.Now().Add(-3 * time.Hour).UnixNano())
	s.GetOrCreate("NEW1")

	pruned := s.Prune(time.Now().Add(-time.Hour))
	if len(pruned) != 1 || pruned[0] != "OLD1" {
		t.Fatalf("pruned = %v, want [OLD1]", pruned)
	}
	if _, ok := s.Get("NEW1"); !ok {
		t.Fatal("fresh session was pruned")
	}
}
