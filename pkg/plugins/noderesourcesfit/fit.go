package noderesourcesfit

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
)

// Name is the plugin's registered name.
const Name = "NodeResourcesFit"

// Strategy values recognized in a CycleState written under
// framework.ScoringStrategyKey.
const (
	LeastAllocated framework.ScoringStrategy = "LeastAllocated"
	MostAllocated  framework.ScoringStrategy = "MostAllocated"
)

// maxNodeScore bounds a single plugin's raw score before weighting, the
// same convention the teacher's status types document for PoolScore.
const maxNodeScore int64 = 100

// Fit implements PreFilter, Filter and Score for a node's spare CPU and
// memory capacity. PreFilter does no work of its own.
type Fit struct{}

// New returns a Fit plugin instance.
func New() *Fit { return &Fit{} }

// Name implements framework.Plugin.
func (f *Fit) Name() string { return Name }

// PreFilter implements framework.PreFilterPlugin. It excludes no nodes;
// Filter carries the actual fit check per node.
func (f *Fit) PreFilter(ctx context.Context, state *framework.CycleState, pod *framework.PodInfo, nodes []*framework.NodeInfo) ([]string, *framework.Status) {
	return nil, nil
}

// Filter implements framework.FilterPlugin: a node is unschedulable for
// pod if its requested-plus-pod resources would exceed its allocatable.
func (f *Fit) Filter(ctx context.Context, state *framework.CycleState, pod *framework.PodInfo, node *framework.NodeInfo) *framework.Status {
	if node.Allocatable.Fits(node.Requested, pod.Spec.Resources) {
		return nil
	}
	return framework.NewStatus(framework.Unschedulable, "insufficient cpu or memory")
}

// Score implements framework.ScorePlugin. The scoring strategy recorded in
// state decides whether free or used capacity is rewarded.
func (f *Fit) Score(ctx context.Context, state *framework.CycleState, pod *framework.PodInfo, node *framework.NodeInfo) (int64, *framework.Status) {
	strategy, err := readStrategy(state)
	if err != nil {
		return 0, framework.AsStatus(err)
	}

	free := node.Allocatable.Sub(node.Requested)
	switch strategy {
	case MostAllocated:
		return scoreFraction(node.Requested.Add(pod.Spec.Resources), node.Allocatable), nil
	default:
		return scoreFraction(free.Sub(pod.Spec.Resources), node.Allocatable), nil
	}
}

func scoreFraction(numerator, allocatable framework.ResourceList) int64 {
	score := int64(0)
	dims := 0
	if allocatable.CPU > 0 {
		score += numerator.CPU * maxNodeScore / allocatable.CPU
		dims++
	}
	if allocatable.Memory > 0 {
		score += numerator.Memory * maxNodeScore / allocatable.Memory
		dims++
	}
	if dims == 0 {
		return 0
	}
	return score / int64(dims)
}

func readStrategy(state *framework.CycleState) (framework.ScoringStrategy, error) {
	data, err := state.Read(framework.ScoringStrategyKey)
	if err != nil {
		return LeastAllocated, nil
	}
	strategy, ok := data.(framework.ScoringStrategy)
	if !ok {
		return LeastAllocated, errors.Errorf("unexpected type for scoring strategy: %T", data)
	}
	return strategy, nil
}

// ScoreExtensions implements framework.ScorePlugin.
func (f *Fit) ScoreExtensions() framework.ScoreExtensions { return f }

// NormalizeScore implements framework.ScoreExtensions by clamping any
// out-of-range raw score into [0, maxNodeScore].
func (f *Fit) NormalizeScore(ctx context.Context, state *framework.CycleState, pod *framework.PodInfo, scores framework.NodeScoreList) *framework.Status {
	for i, s := range scores {
		if s.Score < 0 {
			scores[i].Score = 0
		} else if s.Score > maxNodeScore {
			scores[i].Score = maxNodeScore
		}
	}
	return nil
}
