package scheduler

import (
	"context"
	"sort"

	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
	fwkruntime "github.com/rk8s-dev/rks-scheduler/pkg/framework/runtime"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
)

// Scheduler ties the cache, the queue, and the plugin pipeline together
// into the single cooperative scheduling loop.
type Scheduler struct {
	cache     *Cache
	queue     *Queue
	framework *fwkruntime.Framework
	strategy  string

	assignments chan Assignment
}

// Assignment reports that a pod was tentatively bound to a node. The sign
// of Err distinguishes a successful bind from a cycle that failed with an
// unexpected (non-status) error.
type Assignment struct {
	framework.Assignment
	Err error
}

// New builds a Scheduler around fw (the enabled plugin set for the given
// strategy) and an empty cache and queue. strategy is written into every
// cycle's CycleState under framework.ScoringStrategyKey so scoring plugins
// can read it back.
func New(strategy string, fw *fwkruntime.Framework, opts ...QueueOption) *Scheduler {
	clk := clock.RealClock{}
	return &Scheduler{
		cache:       NewCache(),
		queue:       NewQueue(clk, hintsFromFramework(fw), opts...),
		framework:   fw,
		strategy:    strategy,
		assignments: make(chan Assignment),
	}
}

func hintsFromFramework(fw *fwkruntime.Framework) []framework.ClusterEventWithHint {
	var hints []framework.ClusterEventWithHint
	for _, p := range fw.EnqueueExtensions() {
		hints = append(hints, p.EventsToRegister()...)
	}
	return hints
}

// Run starts the queue's periodic flushers and the scheduling loop. It
// returns a channel of Assignments that is closed once ctx is cancelled;
// the caller must keep draining it until then.
func (s *Scheduler) Run(ctx context.Context) <-chan Assignment {
	s.queue.Run(ctx)
	go func() {
		defer close(s.assignments)
		for {
			if ctx.Err() != nil {
				return
			}
			s.scheduleOne(ctx)
		}
	}()
	return s.assignments
}

func (s *Scheduler) scheduleOne(ctx context.Context) {
	next, ok := s.queue.NextPod(ctx)
	if !ok {
		return
	}

	pod := s.cache.GetPod(next.Name)
	nodes := s.cache.GetNodes()
	if pod == nil {
		return
	}
	if pod.Spec.Priority != next.Priority {
		// Stale: the pod's priority has since changed underneath this
		// queue entry. The current entry (pushed when it was updated)
		// supersedes this one.
		return
	}

	breakCycle := func(requeue func(*framework.PodInfo)) {
		if s.cache.AddFail(pod.Name) {
			requeue(pod)
		}
	}

	state := framework.NewCycleState()
	state.Write(framework.ScoringStrategyKey, framework.ScoringStrategy(s.strategy))

	excluded, status := s.framework.RunPreFilterPlugins(ctx, state, pod, nodes)
	switch {
	case status.Code() == framework.Pending:
		s.queue.Push(pod.Name, pod.Spec.Priority)
		return
	case status.Code() == framework.Unschedulable:
		breakCycle(s.queue.PushBackoff)
		return
	case status.Code() == framework.UnschedulableAndUnresolvable:
		breakCycle(s.queue.PushUnschedulable)
		return
	}

	candidates := excludeNodes(nodes, excluded)

	var filtered []*framework.NodeInfo
	for _, node := range candidates {
		statuses := s.framework.RunFilterPlugins(ctx, state, pod, node)
		if statuses.Merge().IsSuccess() {
			filtered = append(filtered, node)
		}
	}

	preScoreStatus := s.framework.RunPreScorePlugins(ctx, state, pod, filtered)
	if len(filtered) == 0 || !preScoreStatus.IsSuccess() {
		breakCycle(s.queue.PushBackoff)
		return
	}

	pluginScores, status := s.framework.RunScorePlugins(ctx, state, pod, filtered)
	if !status.IsSuccess() {
		breakCycle(s.queue.PushBackoff)
		return
	}

	best := bestNode(filtered, pluginScores)
	if best == "" {
		breakCycle(s.queue.PushBackoff)
		return
	}

	if reserveStatus := s.framework.RunReservePluginsReserve(ctx, state, pod, nodeByName(filtered, best)); !reserveStatus.IsSuccess() {
		s.framework.RunReservePluginsUnreserve(ctx, state, pod, nodeByName(filtered, best))
		breakCycle(s.queue.PushBackoff)
		return
	}

	if s.cache.Assume(pod.Name, best) {
		klog.V(4).InfoS("assumed pod", "pod", pod.Name, "node", best)
		select {
		case s.assignments <- Assignment{Assignment: framework.Assignment{PodName: pod.Name, NodeName: best}}:
		case <-ctx.Done():
		}
		return
	}
	breakCycle(s.queue.PushBackoff)
}

func excludeNodes(nodes []*framework.NodeInfo, excludeNames []string) []*framework.NodeInfo {
	if len(excludeNames) == 0 {
		return nodes
	}
	excluded := make(map[string]struct{}, len(excludeNames))
	for _, n := range excludeNames {
		excluded[n] = struct{}{}
	}
	var out []*framework.NodeInfo
	for _, n := range nodes {
		if _, skip := excluded[n.Name]; !skip {
			out = append(out, n)
		}
	}
	return out
}

func nodeByName(nodes []*framework.NodeInfo, name string) *framework.NodeInfo {
	for _, n := range nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// bestNode sums each plugin's (already weighted) score per node and
// returns the name of the node with the highest total, breaking ties by
// ascending name for determinism.
func bestNode(nodes []*framework.NodeInfo, pluginScores framework.PluginToNodeScores) string {
	totals := make(map[string]int64, len(nodes))
	for _, n := range nodes {
		totals[n.Name] = 0
	}
	for _, list := range pluginScores {
		for _, sc := range list {
			totals[sc.Name] += sc.Score
		}
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if totals[names[i]] != totals[names[j]] {
			return totals[names[i]] > totals[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// Enqueue runs the configured PreEnqueue plugins and, unless one of them
// rejects the pod outright, pushes it onto the active queue.
func (s *Scheduler) Enqueue(ctx context.Context, pod *framework.PodInfo) {
	status := s.framework.RunPreEnqueuePlugins(ctx, pod)
	if status != nil && !status.IsSuccess() && !status.IsSkip() && status.Code() != framework.Pending {
		return
	}
	s.queue.Push(pod.Name, pod.Spec.Priority)
}

// Unassume reverses a tentative binding and, if the pod was indeed
// assumed, pushes it back onto the active queue.
func (s *Scheduler) Unassume(podName string) {
	pod := s.cache.Unassume(podName)
	if pod != nil {
		s.queue.Push(pod.Name, pod.Spec.Priority)
	}
}

// UpdateCachePod upserts pod into the cache. If the update leaves the pod
// pending, the event router is consulted and the pod is (re-)enqueued
// unless the cache already held it as pending (such a pod is taken to be
// queued already; the queue itself is not checked).
func (s *Scheduler) UpdateCachePod(ctx context.Context, pod *framework.PodInfo) {
	prior := s.cache.UpdatePod(pod)

	if pod.Scheduled != nil {
		return
	}

	s.queue.Hint(framework.Event{
		Resource: framework.EventResourcePod,
		OldPod:   prior,
		NewPod:   pod,
	}, s.cache.GetPods())

	if prior == nil || prior.Scheduled != nil {
		s.Enqueue(ctx, pod)
	}
}

// RemoveCachePod deletes pod from the cache and lets the event router
// react to its removal.
func (s *Scheduler) RemoveCachePod(podName string) {
	prior := s.cache.RemovePod(podName)
	s.queue.Hint(framework.Event{
		Resource: framework.EventResourcePod,
		OldPod:   prior,
	}, s.cache.GetPods())
}

// SetCacheNodes replaces the entire node set.
func (s *Scheduler) SetCacheNodes(nodes []*framework.NodeInfo) {
	s.cache.SetNodes(nodes)
}

// UpdateCacheNode upserts node and lets the event router react to the
// change, which may promote waiting pods back to active.
func (s *Scheduler) UpdateCacheNode(node *framework.NodeInfo) {
	prior := s.cache.UpdateNode(node)
	s.queue.Hint(framework.Event{
		Resource: framework.EventResourceNode,
		OldNode:  prior,
		NewNode:  node,
	}, s.cache.GetPods())
}

// RemoveCacheNode removes node, requeueing every pod that was scheduled
// on it before the node disappears from the cache.
func (s *Scheduler) RemoveCacheNode(nodeName string) {
	displaced := s.cache.PopPodOnNode(nodeName)
	for _, pn := range displaced {
		s.queue.Push(pn.Name, pn.Priority)
	}
	s.cache.RemoveNode(nodeName)
}
