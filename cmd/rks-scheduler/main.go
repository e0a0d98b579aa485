package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rk8s-dev/rks-scheduler/pkg/plugins"
	"github.com/rk8s-dev/rks-scheduler/pkg/scheduler"
	"k8s.io/klog/v2"
)

func main() {
	profilePath := flag.String("profile", "", "Path to a YAML scheduler profile (strategy + enabled plugins)")
	strategy := flag.String("strategy", "LeastAllocated", "Default scoring strategy used when -profile omits one")
	flag.Parse()

	profile := &scheduler.Profile{Strategy: *strategy}
	if *profilePath != "" {
		loaded, err := scheduler.LoadProfile(*profilePath)
		if err != nil {
			klog.ErrorS(err, "failed to load scheduler profile")
			os.Exit(1)
		}
		if loaded.Strategy == "" {
			loaded.Strategy = *strategy
		}
		profile = loaded
	}

	fw := plugins.NewRegistry().Build(profile.Plugins)
	sched := scheduler.New(profile.Strategy, fw)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	assignments := sched.Run(ctx)
	klog.InfoS("scheduler started", "strategy", profile.Strategy)
	for a := range assignments {
		if a.Err != nil {
			klog.ErrorS(a.Err, "scheduling cycle failed")
			continue
		}
		klog.InfoS("pod assigned", "pod", a.PodName, "node", a.NodeName)
	}
	klog.InfoS("scheduler stopped")
}
