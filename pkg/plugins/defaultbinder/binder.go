package defaultbinder

import (
	"context"

	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
)

// Name is the plugin's registered name.
const Name = "DefaultBinder"

// Binder is a passthrough Bind plugin: by the time Bind runs, the cache's
// Assume call has already recorded the tentative binding, so there is
// nothing left for a Bind plugin to do. It returns Skip so any Bind
// plugin configured after it still gets a chance to run.
type Binder struct{}

// New returns a Binder plugin instance.
func New() *Binder { return &Binder{} }

// Name implements framework.Plugin.
func (b *Binder) Name() string { return Name }

// Bind implements framework.BindPlugin.
func (b *Binder) Bind(ctx context.Context, state *framework.CycleState, pod *framework.PodInfo, node *framework.NodeInfo) *framework.Status {
	return framework.NewStatus(framework.Skip)
}
