package framework

import (
	"context"
	"time"
)

// Plugin is the parent type for all the scheduling framework plugins.
type Plugin interface {
	Name() string
}

// PreEnqueuePlugin is an interface that must be implemented by "PreEnqueue"
// plugins. These plugins are called before a pod is added to the active
// queue. A pod is only admitted to the queue if every PreEnqueue plugin
// returns Success, Skip, Pending or Error (an erroring plugin is logged and
// ignored); any other code drops the pod silently instead of queueing it.
type PreEnqueuePlugin interface {
	Plugin
	// PreEnqueue is called before the pod is added to the active queue.
	PreEnqueue(ctx context.Context, pod *PodInfo) *Status
}

// PreFilterPlugin is an interface that must be implemented by "PreFilter" plugins.
// These plugins are called at the beginning of the scheduling cycle.
type PreFilterPlugin interface {
	Plugin
	// PreFilter is called at the beginning of the scheduling cycle. All PreFilter plugins
	// must return success (or Skip) or the pod will be rejected; an Error status is logged
	// and ignored instead. PreFilter may also shrink
	// the candidate node set by returning node names to exclude from Filter.
	PreFilter(ctx context.Context, state *CycleState, pod *PodInfo, nodes []*NodeInfo) (excludeNodeNames []string, status *Status)
}

// FilterPlugin is an interface for Filter plugins. These plugins are called at the filter
// extension point for filtering out nodes on which we can not schedule the pod. This concept
// used to be called 'predicate' in the original scheduler. These plugins should return "Success",
// "Unschedulable" or "Error" in Status.code. However, the scheduler accepts other valid codes as
// well. Anything other than "Success", "Skip" or "Error" will lead to exclusion of the given node
// from the pod; an "Error" status is logged and ignored for that node.
type FilterPlugin interface {
	Plugin
	// Filter is called by the scheduling framework. All FilterPlugins should return "Success" to
	// declare that the given node fits the pod. If Filter doesn't return "Success", it will
	// return "Unschedulable", "UnschedulableAndUnresolvable" or "Error".
	Filter(ctx context.Context, state *CycleState, pod *PodInfo, node *NodeInfo) *Status
}

// PostFilterPlugin is an interface for "PostFilter" plugins. These plugins are called once no
// node survives Filter.
type PostFilterPlugin interface {
	Plugin
	// PostFilter is called by the scheduling framework when no node passed the filtering phase.
	// A PostFilter plugin should return one of the following statuses:
	// - Unschedulable: the plugin ran successfully but the pod still cannot be made schedulable.
	// - Success: the plugin ran successfully and the pod can be made schedulable.
	// - Error: the plugin aborted due to some internal error.
	PostFilter(ctx context.Context, state *CycleState, pod *PodInfo, filteredNodeStatusMap NodeToStatusMap) *Status
}

// PreScorePlugin is an interface for "PreScore" plugin. PreScore is an informational extension
// point. Plugins will be called with a list of nodes that passed the filtering phase. A plugin
// may use this data to update internal state or to generate logs/metrics.
type PreScorePlugin interface {
	Plugin
	// PreScore is called by the scheduling framework after a list of nodes passed the filtering
	// phase. All PreScore plugins must return Success or Skip or the pod will be rejected; an
	// Error status is logged and ignored instead.
	PreScore(ctx context.Context, state *CycleState, pod *PodInfo, nodes []*NodeInfo) *Status
}

// ScoreExtensions is an interface for Score extended functionality.
type ScoreExtensions interface {
	// NormalizeScore is called for all node scores produced by the same plugin's Score method.
	// A successful run of NormalizeScore updates the scores slice in place and returns a success
	// status. Implementations typically rescale raw scores into a bounded range before the
	// framework applies the plugin's configured weight.
	NormalizeScore(ctx context.Context, state *CycleState, pod *PodInfo, scores NodeScoreList) *Status
}

// ScorePlugin is an interface that must be implemented by "Score" plugins to rank nodes that passed
// the filtering phase.
type ScorePlugin interface {
	Plugin
	// Score is called on each filtered node. It must return success and an integer indicating the
	// rank of the node. Higher is better. All scoring plugins must return Success or the pod will
	// be rejected; an Error status only drops this plugin's scores for the cycle.
	Score(ctx context.Context, state *CycleState, pod *PodInfo, node *NodeInfo) (int64, *Status)

	// ScoreExtensions returns a ScoreExtensions interface if it implements one, or nil if it does not.
	ScoreExtensions() ScoreExtensions
}

// ReservePlugin is an interface for plugins with Reserve and Unreserve methods. These are meant
// to update the state of the plugin. This concept used to be called 'assume' in the original
// scheduler. These plugins should return only Success or Error in Status.code. However, the
// scheduler accepts other valid codes as well. Anything other than Success will lead to rejection
// of the pod.
type ReservePlugin interface {
	Plugin
	// Reserve is called by the scheduling framework when the scheduler cache is updated. If this
	// method returns a failed Status, the scheduler will call the Unreserve method for all enabled
	// ReservePlugins.
	Reserve(ctx context.Context, state *CycleState, pod *PodInfo, node *NodeInfo) *Status
	// Unreserve is called by the scheduling framework when a reserved pod was rejected, an error
	// occurred during reservation of subsequent plugins, or in a later phase. The Unreserve method
	// implementation must be idempotent and may be called even if the corresponding Reserve method
	// for the same plugin was not called.
	Unreserve(ctx context.Context, state *CycleState, pod *PodInfo, node *NodeInfo)
}

// PermitPlugin is an interface that must be implemented by "Permit" plugins. These plugins are
// called before a pod is bound to a node.
type PermitPlugin interface {
	Plugin
	// Permit is called before binding a pod (and before PreBind plugins). Permit plugins are used
	// to prevent or delay the binding of a pod. A permit plugin must return success or wait with a
	// timeout duration, or the pod will be rejected.
	Permit(ctx context.Context, state *CycleState, pod *PodInfo, node *NodeInfo) (*Status, time.Duration)
}

// PreBindPlugin is an interface that must be implemented by "PreBind" plugins. These plugins are
// called before a pod is bound.
type PreBindPlugin interface {
	Plugin
	// PreBind is called before binding a pod. All PreBind plugins must return success or the pod
	// will be rejected and won't be sent for binding.
	PreBind(ctx context.Context, state *CycleState, pod *PodInfo, node *NodeInfo) *Status
}

// BindPlugin is an interface that must be implemented by "Bind" plugins. Bind plugins are used to
// bind a pod to a node.
type BindPlugin interface {
	Plugin
	// Bind plugins will not be called until all PreBind plugins have completed. Each Bind plugin is
	// called in the configured order. A Bind plugin may choose whether or not to handle the given
	// pod. If a Bind plugin chooses to handle a pod, the remaining Bind plugins are skipped. When a
	// Bind plugin does not handle a pod, it must return Skip in its Status code.
	Bind(ctx context.Context, state *CycleState, pod *PodInfo, node *NodeInfo) *Status
}

// PostBindPlugin is an interface that must be implemented by "PostBind" plugins. These plugins are
// called after a pod is successfully bound to a node.
type PostBindPlugin interface {
	Plugin
	// PostBind is called after a pod is successfully bound. These plugins are informational. A
	// common application of this extension point is for cleaning up.
	PostBind(ctx context.Context, state *CycleState, pod *PodInfo, node *NodeInfo)
}

// EventResource identifies what kind of cluster object an Event describes.
type EventResource int

const (
	// EventResourcePod indicates the event describes a pod mutation.
	EventResourcePod EventResource = iota
	// EventResourceNode indicates the event describes a node mutation.
	EventResourceNode
)

// Event describes a cluster mutation the queue's hint machinery reacts to.
// Exactly one of the Pod or Node pair is populated, matching Resource.
type Event struct {
	Resource EventResource
	OldPod   *PodInfo
	NewPod   *PodInfo
	OldNode  *NodeInfo
	NewNode  *NodeInfo
}

// QueueingHint is the verdict a hint function returns for a given
// (pod, event) pair.
type QueueingHint int

const (
	// QueueSkip means the event does not change the outcome for this pod.
	QueueSkip QueueingHint = iota
	// QueueImmediately means the event may have made this pod schedulable
	// again and it should be promoted to the active queue right away.
	QueueImmediately
)

// QueueingHintFn is a pure predicate over (pod, event). A returned error is
// treated as QueueSkip ("no hint") by the caller, never as QueueImmediately.
type QueueingHintFn func(pod *PodInfo, event Event) (QueueingHint, error)

// ClusterEventWithHint pairs a cluster event with the hint function the
// queue should consult when that kind of event occurs.
type ClusterEventWithHint struct {
	Resource EventResource
	Hint     QueueingHintFn
}

// EnqueueExtensionsPlugin is implemented by plugins that can tell the queue
// which cluster events might make a previously-rejected pod schedulable
// again, and how to recognize that without re-running the full pipeline.
type EnqueueExtensionsPlugin interface {
	Plugin
	// EventsToRegister returns the (event, hint) pairs the queue should
	// consult when deciding whether to promote a waiting pod.
	EventsToRegister() []ClusterEventWithHint
}
