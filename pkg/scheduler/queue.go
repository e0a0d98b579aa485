package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
	"k8s.io/utils/clock"
)

// maxAttempts is the number of backoff retries a pod gets before it is
// parked in the unschedulable tier instead of being retried again.
const maxAttempts = 8

// activeHeap is a max-heap on (priority desc, name asc), matching the
// tie-break decided for equal-priority pods: stable ascending name, no
// hashing or randomness.
type activeHeap []PriorityName

func (h activeHeap) Len() int { return len(h) }
func (h activeHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].Name < h[j].Name
}
func (h activeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *activeHeap) Push(x any)        { *h = append(*h, x.(PriorityName)) }
func (h *activeHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// backoffHeap is a min-heap on Expire.
type backoffHeap []BackoffEntry

func (h backoffHeap) Len() int           { return len(h) }
func (h backoffHeap) Less(i, j int) bool { return h[i].Expire.Before(h[j].Expire) }
func (h backoffHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *backoffHeap) Push(x any)        { *h = append(*h, x.(BackoffEntry)) }
func (h *backoffHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Queue is the three-tier scheduling queue: an active max-heap pods are
// popped from, a backoff min-heap for transient failures, and an
// unschedulable tier only a queueing hint (or the periodic sweep) can
// revive.
type Queue struct {
	clock clock.Clock

	mu            sync.Mutex
	cond          *sync.Cond
	active        activeHeap
	backoff       backoffHeap
	unschedulable []UnschedulableEntry

	podHints  []framework.ClusterEventWithHint
	nodeHints []framework.ClusterEventWithHint

	backoffFlushInterval       time.Duration
	unschedulableFlushInterval time.Duration
	unschedulableAge           time.Duration
}

// NewQueue builds an empty Queue. hints is partitioned by its Resource
// field into the pod- and node-event hint lists consulted by Hint.
func NewQueue(clk clock.Clock, hints []framework.ClusterEventWithHint, opts ...QueueOption) *Queue {
	q := &Queue{
		clock:                      clk,
		backoffFlushInterval:       time.Second,
		unschedulableFlushInterval: 30 * time.Second,
		unschedulableAge:           5 * time.Minute,
	}
	q.cond = sync.NewCond(&q.mu)
	for _, h := range hints {
		if h.Resource == framework.EventResourceNode {
			q.nodeHints = append(q.nodeHints, h)
		} else {
			q.podHints = append(q.podHints, h)
		}
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// QueueOption configures a Queue's timing knobs at construction time.
type QueueOption func(*Queue)

// WithBackoffFlushInterval overrides the default 1s cadence at which
// expired backoff entries are promoted to active.
func WithBackoffFlushInterval(d time.Duration) QueueOption {
	return func(q *Queue) { q.backoffFlushInterval = d }
}

// WithUnschedulableFlushInterval overrides the default 30s cadence at
// which the unschedulable tier is swept for aged entries.
func WithUnschedulableFlushInterval(d time.Duration) QueueOption {
	return func(q *Queue) { q.unschedulableFlushInterval = d }
}

// WithUnschedulableAge overrides the default 5-minute age threshold past
// which an unschedulable entry is swept back toward active/backoff.
func WithUnschedulableAge(d time.Duration) QueueOption {
	return func(q *Queue) { q.unschedulableAge = d }
}

// Push adds a pod directly to the active queue.
func (q *Queue) Push(name string, priority uint64) {
	q.mu.Lock()
	heap.Push(&q.active, PriorityName{Priority: priority, Name: name})
	q.mu.Unlock()
	q.cond.Broadcast()
}

// PushBackoff records a scheduling failure for pod: its attempt count is
// incremented and its next expiry computed as now + 2^attempts seconds. A
// pod that has now exceeded maxAttempts goes straight to the unschedulable
// tier instead of backoff.
func (q *Queue) PushBackoff(pod *framework.PodInfo) {
	pod.Queued.Attempts++
	entry := BackoffEntry{
		Pod:    PriorityName{Priority: pod.Spec.Priority, Name: pod.Name},
		Expire: q.clock.Now().Add(backoffDuration(pod.Queued.Attempts)),
	}
	q.mu.Lock()
	if pod.Queued.Attempts > maxAttempts {
		q.unschedulable = append(q.unschedulable, UnschedulableEntry{Entry: entry, EnqueuedAt: q.clock.Now()})
	} else {
		heap.Push(&q.backoff, entry)
	}
	q.mu.Unlock()
}

// PushUnschedulable unconditionally parks pod in the unschedulable tier,
// still incrementing its attempt count and computing an expiry so a later
// sweep can decide whether it is ready to retry.
func (q *Queue) PushUnschedulable(pod *framework.PodInfo) {
	pod.Queued.Attempts++
	entry := BackoffEntry{
		Pod:    PriorityName{Priority: pod.Spec.Priority, Name: pod.Name},
		Expire: q.clock.Now().Add(backoffDuration(pod.Queued.Attempts)),
	}
	q.mu.Lock()
	q.unschedulable = append(q.unschedulable, UnschedulableEntry{Entry: entry, EnqueuedAt: q.clock.Now()})
	q.mu.Unlock()
}

func backoffDuration(attempts int) time.Duration {
	return time.Duration(1<<uint(attempts)) * time.Second
}

// NextPod blocks until a pod is available in the active queue or ctx is
// done, and returns its (priority, name). Spurious wakeups are tolerated:
// the loop simply re-checks the heap.
func (q *Queue) NextPod(ctx context.Context) (PriorityName, bool) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			// Taking the mutex ensures the waiter is either inside Wait or
			// has not yet checked ctx, so the wakeup cannot be lost.
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.active.Len() == 0 {
		if ctx.Err() != nil {
			return PriorityName{}, false
		}
		q.cond.Wait()
	}
	next := heap.Pop(&q.active).(PriorityName)
	return next, true
}

// FlushBackoffCompleted moves every backoff entry whose Expire has passed
// into the active queue.
func (q *Queue) FlushBackoffCompleted() {
	q.mu.Lock()
	now := q.clock.Now()
	moved := false
	for q.backoff.Len() > 0 && !q.backoff[0].Expire.After(now) {
		entry := heap.Pop(&q.backoff).(BackoffEntry)
		heap.Push(&q.active, entry.Pod)
		moved = true
	}
	q.mu.Unlock()
	if moved {
		q.cond.Broadcast()
	}
}

// FlushUnschedulableLeftOver sweeps the unschedulable tier for entries
// older than the configured age threshold: an entry whose backoff has
// expired goes to active, otherwise it is demoted back to backoff so it
// will be retried on the normal cadence.
func (q *Queue) FlushUnschedulableLeftOver() {
	q.mu.Lock()
	now := q.clock.Now()
	remaining := q.unschedulable[:0]
	moved := false
	for _, e := range q.unschedulable {
		if now.Sub(e.EnqueuedAt) > q.unschedulableAge {
			if !e.Entry.Expire.After(now) {
				heap.Push(&q.active, e.Entry.Pod)
				moved = true
			} else {
				heap.Push(&q.backoff, e.Entry)
			}
			continue
		}
		remaining = append(remaining, e)
	}
	q.unschedulable = remaining
	q.mu.Unlock()
	if moved {
		q.cond.Broadcast()
	}
}

// Hint drains the backoff and unschedulable tiers, consulting the hint
// functions registered for event.Resource against the pods named in
// pods, and promotes to active every entry for which any hint function
// returns QueueImmediately. A hint function that errors counts as no
// opinion (QueueSkip), never as a promotion.
func (q *Queue) Hint(event framework.Event, pods map[string]*framework.PodInfo) {
	hints := q.podHints
	if event.Resource == framework.EventResourceNode {
		hints = q.nodeHints
	}
	if len(hints) == 0 {
		return
	}

	shouldPromote := func(name string) bool {
		pod, ok := pods[name]
		if !ok {
			return false
		}
		for _, h := range hints {
			verdict, err := h.Hint(pod, event)
			if err != nil {
				continue
			}
			if verdict == framework.QueueImmediately {
				return true
			}
		}
		return false
	}

	q.mu.Lock()
	var toPromote []PriorityName
	remainingBackoff := q.backoff[:0]
	for _, e := range q.backoff {
		if shouldPromote(e.Pod.Name) {
			toPromote = append(toPromote, e.Pod)
		} else {
			remainingBackoff = append(remainingBackoff, e)
		}
	}
	q.backoff = remainingBackoff
	heap.Init(&q.backoff)

	remainingUnschedulable := q.unschedulable[:0]
	for _, e := range q.unschedulable {
		if shouldPromote(e.Entry.Pod.Name) {
			toPromote = append(toPromote, e.Entry.Pod)
		} else {
			remainingUnschedulable = append(remainingUnschedulable, e)
		}
	}
	q.unschedulable = remainingUnschedulable

	for _, p := range toPromote {
		heap.Push(&q.active, p)
	}
	q.mu.Unlock()

	if len(toPromote) > 0 {
		q.cond.Broadcast()
	}
}

// Run starts the periodic backoff and unschedulable flushers in their own
// goroutines and returns immediately; the flushers stop once ctx is
// cancelled.
func (q *Queue) Run(ctx context.Context) {
	go q.runTicker(ctx, q.backoffFlushInterval, q.FlushBackoffCompleted)
	go q.runTicker(ctx, q.unschedulableFlushInterval, q.FlushUnschedulableLeftOver)
}

func (q *Queue) runTicker(ctx context.Context, interval time.Duration, fn func()) {
	ticker := q.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			fn()
		}
	}
}
