package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
	fwkruntime "github.com/rk8s-dev/rks-scheduler/pkg/framework/runtime"
	"github.com/rk8s-dev/rks-scheduler/pkg/plugins/noderesourcesfit"
)

func fitOnlyFramework() *fwkruntime.Framework {
	fit := noderesourcesfit.New()
	return fwkruntime.New(
		nil,
		[]framework.PreFilterPlugin{fit},
		[]framework.FilterPlugin{fit},
		nil, nil,
		[]framework.ScorePlugin{fit},
		map[string]int64{noderesourcesfit.Name: 1},
		nil, nil, nil, nil, nil, nil,
	)
}

func TestScheduleOneAssignsPodToFittingHigherScoringNode(t *testing.T) {
	s := New(string(noderesourcesfit.LeastAllocated), fitOnlyFramework())
	s.cache.SetNodes([]*framework.NodeInfo{
		{Name: "node", Allocatable: framework.ResourceList{CPU: 2, Memory: 10}},
		{Name: "node2", Allocatable: framework.ResourceList{CPU: 1, Memory: 8}},
	})
	s.cache.UpdatePod(&framework.PodInfo{
		Name: "pod1",
		Spec: framework.PodSpec{Resources: framework.ResourceList{CPU: 1, Memory: 3}, Priority: 1},
	})
	s.queue.Push("pod1", 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assignments := s.Run(ctx)

	select {
	case a := <-assignments:
		if a.Err != nil {
			t.Fatalf("unexpected error assignment: %v", a.Err)
		}
		if a.PodName != "pod1" || a.NodeName != "node" {
			t.Fatalf("Assignment = %+v, want {pod1 node}", a.Assignment)
		}
	case <-time.After(time.Second):
		t.Fatalf("no assignment produced within 1s")
	}
}

func TestScheduleOneRequeuesPodThatFitsNoNode(t *testing.T) {
	s := New(string(noderesourcesfit.LeastAllocated), fitOnlyFramework())
	s.cache.SetNodes([]*framework.NodeInfo{
		{Name: "node", Allocatable: framework.ResourceList{CPU: 2, Memory: 10}},
	})
	s.cache.UpdatePod(&framework.PodInfo{
		Name: "pod1",
		// Requests far more CPU than any node can supply: Filter rejects
		// every candidate, filtered stays empty, and the cycle must break
		// with the pod requeued, not dropped.
		Spec: framework.PodSpec{Resources: framework.ResourceList{CPU: 100, Memory: 1}, Priority: 1},
	})
	s.queue.Push("pod1", 1)

	ctx := context.Background()
	s.scheduleOne(ctx)

	s.queue.mu.Lock()
	defer s.queue.mu.Unlock()
	if s.queue.backoff.Len() != 1 {
		t.Fatalf("backoff queue len = %d, want 1: a pod that fits no node must land in backoff, not vanish", s.queue.backoff.Len())
	}
	if got := s.queue.backoff[0].Pod.Name; got != "pod1" {
		t.Fatalf("backoff entry = %q, want pod1", got)
	}

	pod := s.cache.GetPod("pod1")
	if pod.Queued.Attempts != 1 {
		t.Fatalf("pod.Queued.Attempts = %d, want 1", pod.Queued.Attempts)
	}
}

func TestScheduleOneDiscardsStalePriorityEntry(t *testing.T) {
	s := New(string(noderesourcesfit.LeastAllocated), fitOnlyFramework())
	s.cache.SetNodes([]*framework.NodeInfo{{Name: "node", Allocatable: framework.ResourceList{CPU: 2, Memory: 10}}})
	s.cache.UpdatePod(&framework.PodInfo{
		Name: "pod1",
		Spec: framework.PodSpec{Resources: framework.ResourceList{CPU: 1, Memory: 3}, Priority: 2},
	})
	// Push a stale queue entry recorded under the pod's old priority.
	s.queue.Push("pod1", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assignments := s.Run(ctx)

	select {
	case a, ok := <-assignments:
		if ok {
			t.Fatalf("expected the stale entry to be silently discarded, got %+v", a)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatalf("Run did not close the assignments channel after ctx cancellation")
	}
}

func TestRunClosesAssignmentsChannelOnContextCancel(t *testing.T) {
	s := New(string(noderesourcesfit.LeastAllocated), fitOnlyFramework())
	ctx, cancel := context.WithCancel(context.Background())
	assignments := s.Run(ctx)
	cancel()

	select {
	case _, ok := <-assignments:
		if ok {
			t.Fatalf("expected assignments channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("assignments channel was not closed after context cancellation")
	}
}

func TestUnassumeRequeuesAssumedPod(t *testing.T) {
	s := New(string(noderesourcesfit.LeastAllocated), fitOnlyFramework())
	s.cache.SetNodes([]*framework.NodeInfo{{Name: "node", Allocatable: framework.ResourceList{CPU: 2, Memory: 10}}})
	s.cache.UpdatePod(&framework.PodInfo{Name: "pod1", Spec: framework.PodSpec{Resources: framework.ResourceList{CPU: 1, Memory: 1}, Priority: 1}})
	s.cache.Assume("pod1", "node")

	s.Unassume("pod1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	next, ok := s.queue.NextPod(ctx)
	if !ok || next.Name != "pod1" {
		t.Fatalf("NextPod() = %+v, %v, want (pod1, true) after Unassume", next, ok)
	}
}

func TestUpdateCachePodEnqueuesPreviouslyBoundPod(t *testing.T) {
	s := New(string(noderesourcesfit.LeastAllocated), fitOnlyFramework())
	s.cache.SetNodes([]*framework.NodeInfo{{Name: "node", Allocatable: framework.ResourceList{CPU: 2, Memory: 10}}})

	scheduledNode := "node"
	s.cache.UpdatePod(&framework.PodInfo{Name: "pod1", Scheduled: &scheduledNode, Spec: framework.PodSpec{Priority: 1}})

	ctx := context.Background()
	s.UpdateCachePod(ctx, &framework.PodInfo{Name: "pod1", Spec: framework.PodSpec{Priority: 1}})

	qctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	next, ok := s.queue.NextPod(qctx)
	if !ok || next.Name != "pod1" {
		t.Fatalf("NextPod() = %+v, %v, want (pod1, true): a pod that transitioned from bound to pending must be re-enqueued", next, ok)
	}
}

func TestUpdateCachePodDoesNotEnqueueWhilePodStaysPending(t *testing.T) {
	s := New(string(noderesourcesfit.LeastAllocated), fitOnlyFramework())
	s.cache.UpdatePod(&framework.PodInfo{Name: "pod1", Spec: framework.PodSpec{Priority: 1}})
	ctx := context.Background()

	// This pod was already pending and remains pending: per the original
	// scheduler's contract, this update alone must not push a new queue
	// entry (the pod is assumed to already be queued).
	s.UpdateCachePod(ctx, &framework.PodInfo{Name: "pod1", Spec: framework.PodSpec{Priority: 1}})

	qctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, ok := s.queue.NextPod(qctx); ok {
		t.Fatalf("NextPod() returned a pod, want none: updating an already-pending pod must not enqueue it")
	}
}
