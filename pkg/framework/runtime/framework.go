package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
	"k8s.io/klog/v2"
)

// Framework holds the ordered, enabled set of plugins for one scoring
// strategy profile and knows how to run each extension point over a
// PodInfo/NodeInfo pair.
type Framework struct {
	preEnqueuePlugins []framework.PreEnqueuePlugin
	preFilterPlugins  []framework.PreFilterPlugin
	filterPlugins     []framework.FilterPlugin
	postFilterPlugins []framework.PostFilterPlugin
	preScorePlugins   []framework.PreScorePlugin
	scorePlugins      []framework.ScorePlugin
	scorePluginWeight map[string]int64
	reservePlugins    []framework.ReservePlugin
	preBindPlugins    []framework.PreBindPlugin
	bindPlugins       []framework.BindPlugin
	postBindPlugins   []framework.PostBindPlugin
	permitPlugins     []framework.PermitPlugin
	enqueueExtensions []framework.EnqueueExtensionsPlugin
}

// New builds a Framework from an already-resolved, ordered plugin set.
// weights maps a score plugin's name to the multiplier applied to its
// normalized score; a plugin absent from weights gets a weight of 1.
func New(
	preEnqueue []framework.PreEnqueuePlugin,
	preFilter []framework.PreFilterPlugin,
	filter []framework.FilterPlugin,
	postFilter []framework.PostFilterPlugin,
	preScore []framework.PreScorePlugin,
	score []framework.ScorePlugin,
	weights map[string]int64,
	reserve []framework.ReservePlugin,
	preBind []framework.PreBindPlugin,
	bind []framework.BindPlugin,
	postBind []framework.PostBindPlugin,
	permit []framework.PermitPlugin,
	enqueueExtensions []framework.EnqueueExtensionsPlugin,
) *Framework {
	if weights == nil {
		weights = map[string]int64{}
	}
	return &Framework{
		preEnqueuePlugins: preEnqueue,
		preFilterPlugins:  preFilter,
		filterPlugins:     filter,
		postFilterPlugins: postFilter,
		preScorePlugins:   preScore,
		scorePlugins:      score,
		scorePluginWeight: weights,
		reservePlugins:    reserve,
		preBindPlugins:    preBind,
		bindPlugins:       bind,
		postBindPlugins:   postBind,
		permitPlugins:     permit,
		enqueueExtensions: enqueueExtensions,
	}
}

// EnqueueExtensions returns the registered EnqueueExtensions plugins, used
// by the queue to build its pod/node hint lists.
func (f *Framework) EnqueueExtensions() []framework.EnqueueExtensionsPlugin {
	return f.enqueueExtensions
}

// RunPreEnqueuePlugins runs the set of configured PreEnqueue plugins. Only
// Success, Skip or Pending permit the pod onto the active queue. A plugin
// that errors is logged and ignored, same as every other extension point.
func (f *Framework) RunPreEnqueuePlugins(ctx context.Context, pod *framework.PodInfo) (status *framework.Status) {
	for _, pl := range f.preEnqueuePlugins {
		status = pl.PreEnqueue(ctx, pod)
		if status.Code() == framework.Error {
			klog.ErrorS(status.AsError(), "preenqueue plugin errored, ignoring its opinion", "plugin", pl.Name(), "pod", pod.Name)
			continue
		}
		if !status.IsSuccess() && !status.IsSkip() && status.Code() != framework.Pending {
			status.SetPluginName(pl.Name())
			return status
		}
	}
	return nil
}

// RunPreFilterPlugins runs set of configured PreFilter plugins. A plugin that errors is treated
// as having no opinion and does not abort the cycle; a plugin that asks to Skip is recorded so
// Filter knows to skip it too; any other non-Success code (Unschedulable,
// UnschedulableAndUnresolvable, Pending) aborts the cycle immediately with that status.
func (f *Framework) RunPreFilterPlugins(ctx context.Context, state *framework.CycleState,
	pod *framework.PodInfo, nodes []*framework.NodeInfo) (excludeNodeNames []string, status *framework.Status) {
	for _, pl := range f.preFilterPlugins {
		excluded, s := pl.PreFilter(ctx, state, pod, nodes)
		if s.Code() == framework.Error {
			klog.ErrorS(s.AsError(), "prefilter plugin errored, ignoring its opinion", "plugin", pl.Name(), "pod", pod.Name)
			continue
		}
		if s.IsSkip() {
			state.SkipFilter(pl.Name())
			continue
		}
		if !s.IsSuccess() {
			return nil, s.WithPluginName(pl.Name())
		}
		excludeNodeNames = append(excludeNodeNames, excluded...)
	}
	return excludeNodeNames, nil
}

// RunFilterPlugins runs the set of configured Filter plugins for pod on the given node. If any of
// these plugins returns neither "Success" nor "Skip", the given node is not suitable for the pod. A plugin
// that errors is logged and otherwise ignored for this node rather than aborting the cycle: an
// internal plugin failure degrades to that one plugin having no opinion, it never fails the whole
// node by itself.
func (f *Framework) RunFilterPlugins(ctx context.Context, state *framework.CycleState,
	pod *framework.PodInfo, node *framework.NodeInfo) framework.PluginToStatus {
	statuses := make(framework.PluginToStatus)
	for _, pl := range f.filterPlugins {
		if state.ShouldSkipFilter(pl.Name()) {
			continue
		}
		pluginStatus := pl.Filter(ctx, state, pod, node)
		if pluginStatus.Code() == framework.Error {
			klog.ErrorS(pluginStatus.AsError(), "filter plugin errored, ignoring its vote for this node",
				"plugin", pl.Name(), "pod", pod.Name, "node", node.Name)
			continue
		}
		if pluginStatus.IsSkip() {
			continue
		}
		if !pluginStatus.IsSuccess() {
			pluginStatus.SetPluginName(pl.Name())
			statuses[pl.Name()] = pluginStatus
		}
	}
	return statuses
}

// RunPostFilterPlugins runs the set of configured PostFilter plugins until the first Success is
// met, otherwise continues to execute all plugins. A plugin that errors is logged and treated as
// having no opinion, same as Filter and PreFilter.
func (f *Framework) RunPostFilterPlugins(ctx context.Context, state *framework.CycleState,
	pod *framework.PodInfo, filteredNodeStatusMap framework.NodeToStatusMap) (status *framework.Status) {
	statuses := make(framework.PluginToStatus)
	for _, pl := range f.postFilterPlugins {
		s := pl.PostFilter(ctx, state, pod, filteredNodeStatusMap)
		if s.Code() == framework.Error {
			klog.ErrorS(s.AsError(), "postfilter plugin errored, ignoring its opinion", "plugin", pl.Name(), "pod", pod.Name)
			continue
		}
		if s.IsSuccess() {
			return s
		}
		statuses[pl.Name()] = s
	}
	return statuses.Merge()
}

// RunPreScorePlugins runs the set of configured PreScore plugins. If any of these plugins returns
// any status other than "Success" or "Skip", the given pod is rejected. A plugin that errors is
// logged and skipped rather than rejecting the pod outright.
func (f *Framework) RunPreScorePlugins(ctx context.Context, state *framework.CycleState,
	pod *framework.PodInfo, nodes []*framework.NodeInfo) (status *framework.Status) {
	for _, pl := range f.preScorePlugins {
		s := pl.PreScore(ctx, state, pod, nodes)
		if s.Code() == framework.Error {
			klog.ErrorS(s.AsError(), "prescore plugin errored, ignoring its opinion", "plugin", pl.Name(), "pod", pod.Name)
			continue
		}
		if s.IsSkip() {
			state.SkipScore(pl.Name())
			continue
		}
		if !s.IsSuccess() {
			return s.WithPluginName(pl.Name())
		}
	}
	return nil
}

// RunScorePlugins runs the set of configured scoring plugins. It returns a map from scoring plugin
// name to the NodeScoreList it produced (already normalized and weighted), and a non-success Status
// if any plugin failed on a node it cannot recover its own opinion for. A plugin whose Score or
// NormalizeScore call errors is logged and that one plugin is dropped from the result entirely,
// rather than rejecting every node in the cycle.
func (f *Framework) RunScorePlugins(ctx context.Context, state *framework.CycleState,
	pod *framework.PodInfo, nodes []*framework.NodeInfo) (ps framework.PluginToNodeScores, status *framework.Status) {
	pluginToNodeScores := make(framework.PluginToNodeScores, len(f.scorePlugins))
plugins:
	for _, pl := range f.scorePlugins {
		if state.ShouldSkipScore(pl.Name()) {
			continue
		}
		nodeScoreList := make(framework.NodeScoreList, len(nodes))
		for i, node := range nodes {
			s, status := pl.Score(ctx, state, pod, node)
			if status.Code() == framework.Error {
				klog.ErrorS(status.AsError(), "score plugin errored, dropping its vote",
					"plugin", pl.Name(), "pod", pod.Name, "node", node.Name)
				continue plugins
			}
			if !status.IsSuccess() {
				return nil, status.WithPluginName(pl.Name())
			}
			nodeScoreList[i] = framework.NodeScore{Name: node.Name, Score: s}
		}

		if ext := pl.ScoreExtensions(); ext != nil {
			if status := ext.NormalizeScore(ctx, state, pod, nodeScoreList); !status.IsSuccess() {
				if status.Code() == framework.Error {
					klog.ErrorS(status.AsError(), "NormalizeScore errored, dropping plugin's vote", "plugin", pl.Name(), "pod", pod.Name)
					continue
				}
				return nil, status.WithPluginName(pl.Name())
			}
		}

		weight := f.scorePluginWeight[pl.Name()]
		if weight == 0 {
			weight = 1
		}
		for i := range nodeScoreList {
			nodeScoreList[i].Score *= weight
		}
		pluginToNodeScores[pl.Name()] = nodeScoreList
	}
	return pluginToNodeScores, nil
}

// RunReservePluginsReserve runs the Reserve method in the set of configured
// reserve plugins. If any of these plugins returns an error, it does not
// continue running the remaining ones and returns the error. In such a case,
// the pod will not be scheduled and the caller will be expected to call
// RunReservePluginsUnreserve.
func (f *Framework) RunReservePluginsReserve(ctx context.Context, state *framework.CycleState,
	pod *framework.PodInfo, node *framework.NodeInfo) (status *framework.Status) {
	for _, pl := range f.reservePlugins {
		status = pl.Reserve(ctx, state, pod, node)
		if !status.IsSuccess() {
			err := status.AsError()
			klog.ErrorS(err, "Failed running Reserve plugin", "plugin", pl.Name(), "pod", pod.Name)
			return framework.AsStatus(fmt.Errorf("running Reserve plugin %q: %w", pl.Name(), err))
		}
	}
	return nil
}

// RunReservePluginsUnreserve runs the Unreserve method in the set of
// configured reserve plugins.
func (f *Framework) RunReservePluginsUnreserve(ctx context.Context, state *framework.CycleState,
	pod *framework.PodInfo, node *framework.NodeInfo) {
	// Execute the Unreserve operation of each reserve plugin in the
	// *reverse* order in which the Reserve operation was executed.
	for i := len(f.reservePlugins) - 1; i >= 0; i-- {
		f.reservePlugins[i].Unreserve(ctx, state, pod, node)
	}
}

// RunPermitPlugins runs the set of configured Permit plugins. If any plugin rejects the pod, the
// binding cycle is aborted; if any asks to wait, the longest requested wait is returned.
func (f *Framework) RunPermitPlugins(ctx context.Context, state *framework.CycleState,
	pod *framework.PodInfo, node *framework.NodeInfo) (status *framework.Status, wait time.Duration) {
	for _, pl := range f.permitPlugins {
		s, d := pl.Permit(ctx, state, pod, node)
		if !s.IsSuccess() {
			if s.Code() == framework.Wait {
				if d > wait {
					wait = d
				}
				continue
			}
			err := s.AsError()
			klog.ErrorS(err, "Failed running Permit plugin", "plugin", pl.Name(), "pod", pod.Name)
			return framework.AsStatus(fmt.Errorf("running Permit plugin %q: %w", pl.Name(), err)), 0
		}
	}
	if wait > 0 {
		return framework.NewStatus(framework.Wait), wait
	}
	return nil, 0
}

// RunPreBindPlugins runs the set of configured PreBind plugins. It returns a non-success status if
// any of the plugins returns an error.
func (f *Framework) RunPreBindPlugins(ctx context.Context, state *framework.CycleState,
	pod *framework.PodInfo, node *framework.NodeInfo) (status *framework.Status) {
	for _, pl := range f.preBindPlugins {
		status = pl.PreBind(ctx, state, pod, node)
		if !status.IsSuccess() {
			err := status.AsError()
			klog.ErrorS(err, "Failed running PreBind plugin", "plugin", pl.Name(), "pod", pod.Name)
			return framework.AsStatus(fmt.Errorf("running PreBind plugin %q: %w", pl.Name(), err))
		}
	}
	return nil
}

// RunBindPlugins runs the set of configured Bind plugins until one returns a non-Skip status.
func (f *Framework) RunBindPlugins(ctx context.Context, state *framework.CycleState,
	pod *framework.PodInfo, node *framework.NodeInfo) (status *framework.Status) {
	if len(f.bindPlugins) == 0 {
		return framework.NewStatus(framework.Skip)
	}
	for _, bp := range f.bindPlugins {
		status = bp.Bind(ctx, state, pod, node)
		if status != nil && status.Code() == framework.Skip {
			continue
		}
		if !status.IsSuccess() {
			err := status.AsError()
			klog.ErrorS(err, "Failed running Bind plugin", "plugin", bp.Name(), "pod", pod.Name)
			return framework.AsStatus(fmt.Errorf("running Bind plugin %q: %w", bp.Name(), err))
		}
		return status
	}
	return status
}

// RunPostBindPlugins runs the set of configured PostBind plugins.
func (f *Framework) RunPostBindPlugins(ctx context.Context, state *framework.CycleState,
	pod *framework.PodInfo, node *framework.NodeInfo) {
	for _, pl := range f.postBindPlugins {
		pl.PostBind(ctx, state, pod, node)
	}
}
