package framework

import (
	"errors"
	"testing"
)

func TestCycleStateReadNotFound(t *testing.T) {
	s := NewCycleState()
	if _, err := s.Read("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestCycleStateWriteThenRead(t *testing.T) {
	s := NewCycleState()
	s.Write(ScoringStrategyKey, ScoringStrategy("LeastAllocated"))
	v, err := s.Read(ScoringStrategyKey)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if v.(ScoringStrategy) != "LeastAllocated" {
		t.Fatalf("Read() = %v, want LeastAllocated", v)
	}
}

func TestCycleStateSkipFilterIsPerCycle(t *testing.T) {
	s := NewCycleState()
	if s.ShouldSkipFilter("fit") {
		t.Fatalf("ShouldSkipFilter() = true before SkipFilter was called")
	}
	s.SkipFilter("fit")
	if !s.ShouldSkipFilter("fit") {
		t.Fatalf("ShouldSkipFilter() = false after SkipFilter was called")
	}
}

func TestCycleStateCloneIsIndependent(t *testing.T) {
	s := NewCycleState()
	s.Write(ScoringStrategyKey, ScoringStrategy("LeastAllocated"))
	clone := s.Clone()
	clone.Write(ScoringStrategyKey, ScoringStrategy("MostAllocated"))

	original, _ := s.Read(ScoringStrategyKey)
	if original.(ScoringStrategy) != "LeastAllocated" {
		t.Fatalf("writing to the clone mutated the original: %v", original)
	}
}
