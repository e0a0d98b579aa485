package nodeaffinity

import (
	"context"

	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
)

// Name is the plugin's registered name.
const Name = "NodeAffinity"

// Affinity filters out nodes whose labels don't cover a pod's selector.
type Affinity struct{}

// New returns an Affinity plugin instance.
func New() *Affinity { return &Affinity{} }

// Name implements framework.Plugin.
func (a *Affinity) Name() string { return Name }

// Filter implements framework.FilterPlugin: node is schedulable for pod
// only if every key/value pair in pod.Spec.Selector is present in
// node.Spec.Labels. An empty or nil selector matches every node.
func (a *Affinity) Filter(ctx context.Context, state *framework.CycleState, pod *framework.PodInfo, node *framework.NodeInfo) *framework.Status {
	for k, v := range pod.Spec.Selector {
		if node.Spec.Labels[k] != v {
			return framework.NewStatus(framework.UnschedulableAndUnresolvable, "node labels do not satisfy pod selector")
		}
	}
	return nil
}
