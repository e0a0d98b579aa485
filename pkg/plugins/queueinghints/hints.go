package queueinghints

import (
	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
)

// Name is the plugin's registered name.
const Name = "QueueingHints"

// Hints implements framework.EnqueueExtensionsPlugin with the built-in
// filter and score plugins' cluster-event sensitivities: a pod becoming
// unscheduled again frees whatever it held, and a node gaining headroom
// may make a waiting pod fit.
type Hints struct{}

// New returns a Hints plugin instance.
func New() *Hints { return &Hints{} }

// Name implements framework.Plugin.
func (h *Hints) Name() string { return Name }

// EventsToRegister implements framework.EnqueueExtensionsPlugin.
func (h *Hints) EventsToRegister() []framework.ClusterEventWithHint {
	return []framework.ClusterEventWithHint{
		{Resource: framework.EventResourcePod, Hint: podFreedResources},
		{Resource: framework.EventResourceNode, Hint: nodeGainedHeadroomOrLabel},
	}
}

// podFreedResources fires when a pod that held capacity (OldPod.Scheduled
// set) no longer does (NewPod.Scheduled nil, or the pod was removed
// entirely), since that may be exactly the headroom a waiting pod needs.
func podFreedResources(pod *framework.PodInfo, event framework.Event) (framework.QueueingHint, error) {
	if event.OldPod == nil || event.OldPod.Scheduled == nil {
		return framework.QueueSkip, nil
	}
	if event.NewPod != nil && event.NewPod.Scheduled != nil {
		return framework.QueueSkip, nil
	}
	return framework.QueueImmediately, nil
}

// nodeGainedHeadroomOrLabel fires when a node is added or removed, or when
// a node update increases free capacity on any dimension or adds a label
// or changes a label's value, since any of these may let a previously
// rejected pod fit.
func nodeGainedHeadroomOrLabel(pod *framework.PodInfo, event framework.Event) (framework.QueueingHint, error) {
	if event.OldNode == nil || event.NewNode == nil {
		return framework.QueueImmediately, nil
	}
	oldFree := event.OldNode.Allocatable.Sub(event.OldNode.Requested)
	newFree := event.NewNode.Allocatable.Sub(event.NewNode.Requested)
	if newFree.CPU > oldFree.CPU || newFree.Memory > oldFree.Memory {
		return framework.QueueImmediately, nil
	}
	for k, v := range event.NewNode.Spec.Labels {
		if event.OldNode.Spec.Labels[k] != v {
			return framework.QueueImmediately, nil
		}
	}
	return framework.QueueSkip, nil
}
