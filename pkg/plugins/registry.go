package plugins

import (
	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
	fwkruntime "github.com/rk8s-dev/rks-scheduler/pkg/framework/runtime"
	"github.com/rk8s-dev/rks-scheduler/pkg/plugins/defaultbinder"
	"github.com/rk8s-dev/rks-scheduler/pkg/plugins/nodeaffinity"
	"github.com/rk8s-dev/rks-scheduler/pkg/plugins/noderesourcesfit"
	"github.com/rk8s-dev/rks-scheduler/pkg/plugins/nodeunschedulable"
	"github.com/rk8s-dev/rks-scheduler/pkg/plugins/queueinghints"
	"github.com/rk8s-dev/rks-scheduler/pkg/scheduler"
	"k8s.io/klog/v2"
)

// Registry is the set of plugins this binary knows how to build, keyed by
// name. Unlike the teacher's static slice-of-all-plugins registry, each
// entry here is a constructor, called once for every extension point the
// profile names the plugin under. A plugin that implements several points
// (noderesourcesfit implements PreFilter, Filter and Score) is registered
// under each of them and must be listed under each point it should serve;
// every point gets its own instance.
type Registry struct {
	preEnqueue        map[string]func() framework.PreEnqueuePlugin
	preFilter         map[string]func() framework.PreFilterPlugin
	filter            map[string]func() framework.FilterPlugin
	postFilter        map[string]func() framework.PostFilterPlugin
	preScore          map[string]func() framework.PreScorePlugin
	score             map[string]func() framework.ScorePlugin
	reserve           map[string]func() framework.ReservePlugin
	permit            map[string]func() framework.PermitPlugin
	preBind           map[string]func() framework.PreBindPlugin
	bind              map[string]func() framework.BindPlugin
	postBind          map[string]func() framework.PostBindPlugin
	enqueueExtensions map[string]func() framework.EnqueueExtensionsPlugin
}

// NewRegistry builds the registry of built-in plugins.
func NewRegistry() *Registry {
	fit := func() *noderesourcesfit.Fit { return noderesourcesfit.New() }
	return &Registry{
		preFilter: map[string]func() framework.PreFilterPlugin{
			noderesourcesfit.Name: func() framework.PreFilterPlugin { return fit() },
		},
		filter: map[string]func() framework.FilterPlugin{
			noderesourcesfit.Name:      func() framework.FilterPlugin { return fit() },
			nodeaffinity.Name:          func() framework.FilterPlugin { return nodeaffinity.New() },
			nodeunschedulable.Name:     func() framework.FilterPlugin { return nodeunschedulable.New() },
		},
		score: map[string]func() framework.ScorePlugin{
			noderesourcesfit.Name: func() framework.ScorePlugin { return fit() },
		},
		bind: map[string]func() framework.BindPlugin{
			defaultbinder.Name: func() framework.BindPlugin { return defaultbinder.New() },
		},
		enqueueExtensions: map[string]func() framework.EnqueueExtensionsPlugin{
			queueinghints.Name: func() framework.EnqueueExtensionsPlugin { return queueinghints.New() },
		},
		preEnqueue:        map[string]func() framework.PreEnqueuePlugin{},
		postFilter:        map[string]func() framework.PostFilterPlugin{},
		preScore:          map[string]func() framework.PreScorePlugin{},
		reserve:           map[string]func() framework.ReservePlugin{},
		permit:            map[string]func() framework.PermitPlugin{},
		preBind:           map[string]func() framework.PreBindPlugin{},
		postBind:          map[string]func() framework.PostBindPlugin{},
	}
}

// Build resolves profile against the registry into a runnable Framework.
// A name in the profile that has no matching registry entry is dropped
// and logged, never treated as fatal.
func (r *Registry) Build(profile scheduler.PluginSet) *fwkruntime.Framework {
	weights := make(map[string]int64)
	for _, ref := range profile.Score {
		w := ref.Weight
		if w == 0 {
			w = 1
		}
		weights[ref.Name] = w
	}

	return fwkruntime.New(
		buildList(r.preEnqueue, names(profile.PreEnqueue), "PreEnqueue"),
		buildList(r.preFilter, names(profile.PreFilter), "PreFilter"),
		buildList(r.filter, names(profile.Filter), "Filter"),
		buildList(r.postFilter, names(profile.PostFilter), "PostFilter"),
		buildList(r.preScore, names(profile.PreScore), "PreScore"),
		buildList(r.score, names(profile.Score), "Score"),
		weights,
		buildList(r.reserve, names(profile.Reserve), "Reserve"),
		buildList(r.preBind, names(profile.PreBind), "PreBind"),
		buildList(r.bind, names(profile.Bind), "Bind"),
		buildList(r.postBind, names(profile.PostBind), "PostBind"),
		buildList(r.permit, names(profile.Permit), "Permit"),
		buildList(r.enqueueExtensions, names(profile.EnqueueExtension), "EnqueueExtensions"),
	)
}

func names(refs []scheduler.PluginRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Name
	}
	return out
}

func buildList[T any](registry map[string]func() T, wanted []string, point string) []T {
	out := make([]T, 0, len(wanted))
	for _, name := range wanted {
		ctor, ok := registry[name]
		if !ok {
			klog.V(2).InfoS("unknown plugin name in profile, dropping", "extensionPoint", point, "plugin", name)
			continue
		}
		out = append(out, ctor())
	}
	return out
}
