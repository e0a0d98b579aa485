package nodeunschedulable

import (
	"context"

	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
)

// Name is the plugin's registered name.
const Name = "NodeUnschedulable"

// taintKey is set by an operator to cordon a node off from new pods
// without removing it from the cluster.
const taintKey = "unschedulable"

// Unschedulable filters out nodes carrying the cordon taint.
type Unschedulable struct{}

// New returns an Unschedulable plugin instance.
func New() *Unschedulable { return &Unschedulable{} }

// Name implements framework.Plugin.
func (u *Unschedulable) Name() string { return Name }

// Filter implements framework.FilterPlugin.
func (u *Unschedulable) Filter(ctx context.Context, state *framework.CycleState, pod *framework.PodInfo, node *framework.NodeInfo) *framework.Status {
	if _, cordoned := node.Spec.Taints[taintKey]; cordoned {
		return framework.NewStatus(framework.UnschedulableAndUnresolvable, "node is cordoned")
	}
	return nil
}
