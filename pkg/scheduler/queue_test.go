package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
	testingclock "k8s.io/utils/clock/testing"
)

func TestQueuePushAndNextPodOrdersByPriorityDescThenNameAsc(t *testing.T) {
	q := NewQueue(testingclock.NewFakeClock(time.Now()), nil)
	q.Push("pod1", 1)
	q.Push("pod3", 3)
	q.Push("pod2", 2)

	ctx := context.Background()
	wantOrder := []string{"pod3", "pod2", "pod1"}
	for _, want := range wantOrder {
		next, ok := q.NextPod(ctx)
		if !ok {
			t.Fatalf("NextPod() returned !ok, want %q", want)
		}
		if next.Name != want {
			t.Fatalf("NextPod() = %q, want %q", next.Name, want)
		}
	}
}

func TestQueueNextPodBlocksUntilPush(t *testing.T) {
	q := NewQueue(testingclock.NewFakeClock(time.Now()), nil)
	ctx := context.Background()

	type result struct {
		pn PriorityName
		ok bool
	}
	done := make(chan result, 1)
	go func() {
		pn, ok := q.NextPod(ctx)
		done <- result{pn, ok}
	}()

	select {
	case <-done:
		t.Fatalf("NextPod() returned before any pod was pushed")
	case <-time.After(50 * time.Millisecond):
	}

	q.Push("late", 1)
	select {
	case r := <-done:
		if !r.ok || r.pn.Name != "late" {
			t.Fatalf("NextPod() = %+v, %v, want (late, true)", r.pn, r.ok)
		}
	case <-time.After(time.Second):
		t.Fatalf("NextPod() did not wake up after Push")
	}
}

func TestQueuePushBackoffEscalatesPastMaxAttempts(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	q := NewQueue(clk, nil)

	pod := &framework.PodInfo{Name: "pod1", Spec: framework.PodSpec{Priority: 1}, Queued: framework.QueuedInfo{Attempts: maxAttempts}}
	q.PushBackoff(pod)

	q.mu.Lock()
	backoffLen, unschedulableLen := q.backoff.Len(), len(q.unschedulable)
	q.mu.Unlock()

	if backoffLen != 0 || unschedulableLen != 1 {
		t.Fatalf("after exceeding maxAttempts: backoff=%d unschedulable=%d, want backoff=0 unschedulable=1", backoffLen, unschedulableLen)
	}
}

func TestQueueFlushBackoffCompletedPromotesExpiredEntries(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	q := NewQueue(clk, nil)

	pod := &framework.PodInfo{Name: "pod1", Spec: framework.PodSpec{Priority: 1}}
	q.PushBackoff(pod) // attempts becomes 1, expire = now + 2s

	clk.Step(3 * time.Second)
	q.FlushBackoffCompleted()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	next, ok := q.NextPod(ctx)
	if !ok || next.Name != "pod1" {
		t.Fatalf("NextPod() = %+v, %v, want (pod1, true) after the backoff window elapsed", next, ok)
	}
}

func TestQueueHintIgnoresErroringHintFunctions(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	hints := []framework.ClusterEventWithHint{
		{Resource: framework.EventResourcePod, Hint: func(*framework.PodInfo, framework.Event) (framework.QueueingHint, error) {
			return framework.QueueImmediately, errBoom
		}},
	}
	q := NewQueue(clk, hints)
	pod := &framework.PodInfo{Name: "pod1", Spec: framework.PodSpec{Priority: 1}}
	q.PushBackoff(pod)

	q.Hint(framework.Event{Resource: framework.EventResourcePod}, map[string]*framework.PodInfo{"pod1": pod})

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.backoff.Len() != 1 {
		t.Fatalf("backoff.Len() = %d, want 1 (an erroring hint must not promote the pod)", q.backoff.Len())
	}
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
