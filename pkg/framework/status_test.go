package framework

import "testing"

func TestStatusMergePrefersHighestPrecedenceCode(t *testing.T) {
	statuses := PluginToStatus{
		"a": NewStatus(Unschedulable, "a says no"),
		"b": NewStatus(UnschedulableAndUnresolvable, "b says never"),
		"c": NewStatus(Success),
	}
	merged := statuses.Merge()
	if merged.Code() != UnschedulableAndUnresolvable {
		t.Fatalf("Merge().Code() = %v, want UnschedulableAndUnresolvable", merged.Code())
	}
}

func TestStatusMergeOnEmptyMapReturnsNil(t *testing.T) {
	var statuses PluginToStatus
	if merged := statuses.Merge(); merged != nil {
		t.Fatalf("Merge() on empty map = %v, want nil", merged)
	}
}

func TestNilStatusIsSuccess(t *testing.T) {
	var s *Status
	if !s.IsSuccess() {
		t.Fatalf("nil Status.IsSuccess() = false, want true")
	}
	if s.Code() != Success {
		t.Fatalf("nil Status.Code() = %v, want Success", s.Code())
	}
}

func TestIsUnschedulableCoversBothUnschedulableCodes(t *testing.T) {
	for _, code := range []Code{Unschedulable, UnschedulableAndUnresolvable} {
		s := NewStatus(code)
		if !s.IsUnschedulable() {
			t.Fatalf("NewStatus(%v).IsUnschedulable() = false, want true", code)
		}
	}
	if NewStatus(Success).IsUnschedulable() {
		t.Fatalf("NewStatus(Success).IsUnschedulable() = true, want false")
	}
}
