package framework

// ResourceList is a set of resource quantities in canonical integer units
// (e.g. millicores for CPU, bytes for memory). The scheduler never
// interprets the unit itself; it only ever adds, subtracts, and compares.
type ResourceList struct {
	CPU    int64
	Memory int64
}

// Add returns the element-wise sum of r and other.
func (r ResourceList) Add(other ResourceList) ResourceList {
	return ResourceList{CPU: r.CPU + other.CPU, Memory: r.Memory + other.Memory}
}

// Sub returns the element-wise difference r - other.
func (r ResourceList) Sub(other ResourceList) ResourceList {
	return ResourceList{CPU: r.CPU - other.CPU, Memory: r.Memory - other.Memory}
}

// Fits reports whether requesting req on top of used would still respect
// allocatable, i.e. used + req <= allocatable for every dimension.
func (allocatable ResourceList) Fits(used, req ResourceList) bool {
	return used.CPU+req.CPU <= allocatable.CPU && used.Memory+req.Memory <= allocatable.Memory
}

// PodSpec is the immutable part of a pod's scheduling request.
type PodSpec struct {
	Resources ResourceList
	Priority  uint64
	// Selector restricts scheduling to nodes whose Labels are a superset
	// of Selector. A nil/empty Selector matches every node.
	Selector map[string]string
}

// QueuedInfo tracks how many times a pod has failed to schedule.
type QueuedInfo struct {
	Attempts int
}

// PodInfo is the scheduler's view of a pod: its request, its queueing
// history, and whether it is bound.
type PodInfo struct {
	Name string
	Spec PodSpec
	// Queued is only meaningful while the pod is pending; it is reset to
	// zero on a successful bind.
	Queued QueuedInfo
	// Scheduled is nil while the pod is pending, and holds the bound node
	// name once it has been assigned (tentatively or confirmed).
	Scheduled *string
}

// DeepCopy returns an independent copy of p, safe to hand out from a
// snapshot without holding the cache lock.
func (p *PodInfo) DeepCopy() *PodInfo {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Spec.Selector != nil {
		cp.Spec.Selector = make(map[string]string, len(p.Spec.Selector))
		for k, v := range p.Spec.Selector {
			cp.Spec.Selector[k] = v
		}
	}
	if p.Scheduled != nil {
		node := *p.Scheduled
		cp.Scheduled = &node
	}
	return &cp
}

// NodeSpec carries a node's labels (matched against pod selectors) and
// taints (matched against the built-in unschedulable filter).
type NodeSpec struct {
	Labels map[string]string
	Taints map[string]string
}

// NodeInfo is the scheduler's view of a node: its capacity and how much of
// it is already spoken for by assumed or bound pods.
type NodeInfo struct {
	Name        string
	Allocatable ResourceList
	Requested   ResourceList
	Spec        NodeSpec
}

// DeepCopy returns an independent copy of n.
func (n *NodeInfo) DeepCopy() *NodeInfo {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Spec.Labels != nil {
		cp.Spec.Labels = make(map[string]string, len(n.Spec.Labels))
		for k, v := range n.Spec.Labels {
			cp.Spec.Labels[k] = v
		}
	}
	if n.Spec.Taints != nil {
		cp.Spec.Taints = make(map[string]string, len(n.Spec.Taints))
		for k, v := range n.Spec.Taints {
			cp.Spec.Taints[k] = v
		}
	}
	return &cp
}

// Assignment is emitted by the scheduling loop once a pod has been
// tentatively bound to a node.
type Assignment struct {
	PodName  string
	NodeName string
}
