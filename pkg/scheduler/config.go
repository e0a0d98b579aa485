package scheduler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PluginRef names one enabled plugin and, for Score plugins, the weight
// its normalized score is multiplied by.
type PluginRef struct {
	Name   string `yaml:"name"`
	Weight int64  `yaml:"weight,omitempty"`
}

// PluginSet lists the plugins enabled at each extension point. A point
// left empty runs with no plugins rather than a default set: profiles are
// expected to be explicit.
type PluginSet struct {
	PreEnqueue       []PluginRef `yaml:"preEnqueue,omitempty"`
	PreFilter        []PluginRef `yaml:"preFilter,omitempty"`
	Filter           []PluginRef `yaml:"filter,omitempty"`
	PostFilter       []PluginRef `yaml:"postFilter,omitempty"`
	PreScore         []PluginRef `yaml:"preScore,omitempty"`
	Score            []PluginRef `yaml:"score,omitempty"`
	Reserve          []PluginRef `yaml:"reserve,omitempty"`
	Permit           []PluginRef `yaml:"permit,omitempty"`
	PreBind          []PluginRef `yaml:"preBind,omitempty"`
	Bind             []PluginRef `yaml:"bind,omitempty"`
	PostBind         []PluginRef `yaml:"postBind,omitempty"`
	EnqueueExtension []PluginRef `yaml:"enqueueExtensions,omitempty"`
}

// Profile is the top-level YAML document describing a scheduler's scoring
// strategy and enabled plugin set.
type Profile struct {
	Strategy string    `yaml:"strategy"`
	Plugins  PluginSet `yaml:"plugins"`
}

// LoadProfile reads and parses a Profile from the YAML file at path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scheduler profile %q: %w", path, err)
	}
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parsing scheduler profile %q: %w", path, err)
	}
	return &profile, nil
}
