package noderesourcesfit

import (
	"context"
	"testing"

	"github.com/rk8s-dev/rks-scheduler/pkg/framework"
)

func TestFitFilterRejectsOverCapacityNode(t *testing.T) {
	f := New()
	pod := &framework.PodInfo{Spec: framework.PodSpec{Resources: framework.ResourceList{CPU: 2, Memory: 1}}}
	node := &framework.NodeInfo{Allocatable: framework.ResourceList{CPU: 1, Memory: 10}}

	status := f.Filter(context.Background(), framework.NewCycleState(), pod, node)
	if status.IsSuccess() {
		t.Fatalf("Filter() succeeded, want Unschedulable for a node without enough CPU")
	}
	if status.Code() != framework.Unschedulable {
		t.Fatalf("Filter() code = %v, want Unschedulable", status.Code())
	}
}

func TestFitScorePrefersLeastAllocatedNodeWithMoreHeadroom(t *testing.T) {
	f := New()
	pod := &framework.PodInfo{Spec: framework.PodSpec{Resources: framework.ResourceList{CPU: 1, Memory: 1}}}
	roomy := &framework.NodeInfo{Name: "roomy", Allocatable: framework.ResourceList{CPU: 10, Memory: 10}}
	tight := &framework.NodeInfo{Name: "tight", Allocatable: framework.ResourceList{CPU: 1, Memory: 1}}

	state := framework.NewCycleState()
	state.Write(framework.ScoringStrategyKey, LeastAllocated)

	roomyScore, status := f.Score(context.Background(), state, pod, roomy)
	if !status.IsSuccess() {
		t.Fatalf("Score(roomy) failed: %v", status.AsError())
	}
	tightScore, status := f.Score(context.Background(), state, pod, tight)
	if !status.IsSuccess() {
		t.Fatalf("Score(tight) failed: %v", status.AsError())
	}

	if roomyScore <= tightScore {
		t.Fatalf("roomyScore=%d tightScore=%d, want roomy node to score higher under LeastAllocated", roomyScore, tightScore)
	}
}

func TestFitScoreDefaultsToLeastAllocatedWhenStrategyUnset(t *testing.T) {
	f := New()
	pod := &framework.PodInfo{Spec: framework.PodSpec{Resources: framework.ResourceList{CPU: 1, Memory: 1}}}
	node := &framework.NodeInfo{Name: "n", Allocatable: framework.ResourceList{CPU: 10, Memory: 10}}

	_, status := f.Score(context.Background(), framework.NewCycleState(), pod, node)
	if !status.IsSuccess() {
		t.Fatalf("Score() failed with no strategy written: %v", status.AsError())
	}
}

func TestNormalizeScoreClampsOutOfRangeScores(t *testing.T) {
	f := New()
	scores := framework.NodeScoreList{{Name: "a", Score: -5}, {Name: "b", Score: 500}}
	status := f.NormalizeScore(context.Background(), framework.NewCycleState(), &framework.PodInfo{}, scores)
	if !status.IsSuccess() {
		t.Fatalf("NormalizeScore() failed: %v", status.AsError())
	}
	if scores[0].Score != 0 || scores[1].Score != maxNodeScore {
		t.Fatalf("scores = %+v, want clamped to [0, %d]", scores, maxNodeScore)
	}
}
