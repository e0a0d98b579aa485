package scheduler

import (
	"sync"

	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
)

// Cache is the scheduler's authoritative, concurrency-safe view of pods and
// nodes in the cluster. A single mutex guards both maps: cross-map
// invariants (assumed bindings debiting node capacity) must never be
// observed half-applied.
type Cache struct {
	mu sync.RWMutex

	pods  map[string]*framework.PodInfo
	nodes map[string]*framework.NodeInfo

	// assumed holds the set of pod names that have been tentatively bound
	// by a scheduling cycle but not yet confirmed by a cache update.
	assumed map[string]struct{}
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		pods:    make(map[string]*framework.PodInfo),
		nodes:   make(map[string]*framework.NodeInfo),
		assumed: make(map[string]struct{}),
	}
}

// GetPod returns a copy of the named pod, or nil if it is not present.
func (c *Cache) GetPod(name string) *framework.PodInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pods[name].DeepCopy()
}

// GetPods returns a snapshot of every pod currently known to the cache,
// keyed by name. The snapshot is safe to use without holding the cache lock.
func (c *Cache) GetPods() map[string]*framework.PodInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*framework.PodInfo, len(c.pods))
	for name, pod := range c.pods {
		out[name] = pod.DeepCopy()
	}
	return out
}

// GetNodes returns a snapshot slice of every node currently known to the
// cache.
func (c *Cache) GetNodes() []*framework.NodeInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*framework.NodeInfo, 0, len(c.nodes))
	for _, node := range c.nodes {
		out = append(out, node.DeepCopy())
	}
	return out
}

// UpdatePod upserts pod and returns a copy of whatever was previously
// stored under that name, or nil if the pod is new.
func (c *Cache) UpdatePod(pod *framework.PodInfo) *framework.PodInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	prior := c.pods[pod.Name].DeepCopy()
	c.pods[pod.Name] = pod.DeepCopy()
	if pod.Scheduled != nil {
		// A cache update that carries a node confirms any tentative binding.
		delete(c.assumed, pod.Name)
	}
	return prior
}

// RemovePod deletes the named pod and returns a copy of what was removed,
// or nil if it was not present.
func (c *Cache) RemovePod(name string) *framework.PodInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	prior := c.pods[name].DeepCopy()
	delete(c.pods, name)
	delete(c.assumed, name)
	return prior
}

// SetNodes replaces the entire node set in one atomic step.
func (c *Cache) SetNodes(nodes []*framework.NodeInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = make(map[string]*framework.NodeInfo, len(nodes))
	for _, n := range nodes {
		c.nodes[n.Name] = n.DeepCopy()
	}
}

// UpdateNode upserts node and returns a copy of the prior value, or nil if
// the node is new.
func (c *Cache) UpdateNode(node *framework.NodeInfo) *framework.NodeInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	prior := c.nodes[node.Name].DeepCopy()
	c.nodes[node.Name] = node.DeepCopy()
	return prior
}

// RemoveNode deletes the named node.
func (c *Cache) RemoveNode(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.nodes, name)
}

// PopPodOnNode removes, from the cache's bookkeeping, every pod scheduled
// onto the named node, and returns their (priority, name) pairs so the
// caller can requeue them. The pods themselves are marked unscheduled
// rather than deleted.
func (c *Cache) PopPodOnNode(nodeName string) []PriorityName {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []PriorityName
	for name, pod := range c.pods {
		if pod.Scheduled != nil && *pod.Scheduled == nodeName {
			out = append(out, PriorityName{Priority: pod.Spec.Priority, Name: name})
			pod.Scheduled = nil
			delete(c.assumed, name)
		}
	}
	return out
}

// Assume tentatively binds podName to nodeName: it debits the node's
// requested resources by the pod's request and marks the pod Scheduled.
// It reports false (and does nothing) if the pod or node is unknown, or if
// the node no longer fits the pod.
func (c *Cache) Assume(podName, nodeName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	pod, ok := c.pods[podName]
	if !ok {
		return false
	}
	node, ok := c.nodes[nodeName]
	if !ok {
		return false
	}
	if !node.Allocatable.Fits(node.Requested, pod.Spec.Resources) {
		return false
	}
	node.Requested = node.Requested.Add(pod.Spec.Resources)
	name := nodeName
	pod.Scheduled = &name
	pod.Queued.Attempts = 0
	c.assumed[podName] = struct{}{}
	return true
}

// Unassume reverts a tentative binding made by Assume: it credits the
// node's requested resources back and clears the pod's Scheduled field. It
// returns a copy of the pod as it stood before being unassumed, or nil if
// the pod was not assumed.
func (c *Cache) Unassume(podName string) *framework.PodInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.assumed[podName]; !ok {
		return nil
	}
	pod, ok := c.pods[podName]
	if !ok {
		return nil
	}
	prior := pod.DeepCopy()
	if pod.Scheduled != nil {
		if node, ok := c.nodes[*pod.Scheduled]; ok {
			node.Requested = node.Requested.Sub(pod.Spec.Resources)
		}
	}
	pod.Scheduled = nil
	delete(c.assumed, podName)
	return prior
}

// AddFail records a failed scheduling attempt for podName, reversing any
// tentative Assume made earlier in the same cycle, and reports whether the
// pod is still present in the cache and therefore worth requeueing. Most
// break-cycle paths (PreFilter-Unschedulable, empty-filtered, PreScore or
// Score failure) run before Assume is ever called, so the common case is a
// no-op Unassume and a true return; the false case is reserved for the rare
// race where the pod was removed from the cache mid-cycle.
func (c *Cache) AddFail(podName string) bool {
	c.Unassume(podName)
	c.mu.Lock()
	defer c.mu.Unlock()
	pod, ok := c.pods[podName]
	if !ok {
		return false
	}
	pod.Queued.Attempts++
	return true
}
