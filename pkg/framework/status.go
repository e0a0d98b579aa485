package framework

import (
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
)

// NodeScoreList declares a list of nodes and their scores.
type NodeScoreList []NodeScore

// NodeScore is a struct with node name and score.
type NodeScore struct {
	Name  string
	Score int64
}

// PluginToNodeScores declares a map from plugin name to its NodeScoreList.
type PluginToNodeScores map[string]NodeScoreList

// NodeToStatusMap declares a map from node name to its status.
type NodeToStatusMap map[string]*Status

// Code is the Status code/type which is returned from plugins.
type Code int

// These are predefined codes used in a Status.
const (
	// Success means that plugin ran correctly and found the pod schedulable
	// with respect to that plugin.
	// NOTE: A nil status is also considered as "Success".
	Success Code = iota
	// Error is used for internal plugin errors, unexpected input, etc. The
	// pipeline degrades this to Skip for that plugin and keeps going.
	Error
	// Unschedulable is used when a plugin finds a pod unschedulable for now;
	// the pod is requeued to the backoff tier with attempts incremented.
	Unschedulable
	// UnschedulableAndUnresolvable is used when a plugin finds a pod
	// unschedulable in a way that will not resolve on its own. Returned by a
	// PreFilter plugin, it sends the pod straight to the unschedulable tier,
	// where only a queueing hint (or the 5-minute sweep) can revive it;
	// returned by a Filter plugin, it only removes that node from the
	// candidates, and a pod left with no candidates goes to backoff.
	UnschedulableAndUnresolvable
	// Pending is used when a plugin wants the cycle retried without
	// consuming an attempt, e.g. waiting on an external dependency. This
	// applies when a PreFilter plugin returns it (the pod goes straight back
	// to active); PreEnqueue treats it as admission.
	Pending
	// Wait is used when a Permit plugin finds scheduling should wait.
	Wait
	// Skip is used when a plugin chooses to skip its remaining work for
	// this cycle (e.g. PreFilter/PreScore opting a plugin out) or, for a
	// Bind plugin, to pass binding to the next one in line.
	Skip
)

// This list should be exactly the same as the codes iota defined above in the same order.
var codes = []string{"Success", "Error", "Unschedulable", "UnschedulableAndUnresolvable", "Pending", "Wait", "Skip"}

func (c Code) String() string {
	if int(c) < 0 || int(c) >= len(codes) {
		return "Unknown"
	}
	return codes[c]
}

// statusPrecedence defines a map from status to its precedence, larger value means higher precedent.
var statusPrecedence = map[Code]int{
	Error:                        3,
	UnschedulableAndUnresolvable: 2,
	Unschedulable:                1,
	// Any other statuses we know today, Skip, Wait or Pending, will take precedence over Success.
	Success: -1,
}

// Status indicates the result of running a plugin. It consists of a code, a message, an error,
// and a plugin name it fails by. When the status code is not Success, the reasons should explain
// why and when code is Success, all the other fields should be empty.
// NOTE: A nil Status is also considered as Success.
type Status struct {
	code       Code
	reasons    []string
	err        error
	pluginName string
}

// Code returns code of the Status.
func (s *Status) Code() Code {
	if s == nil {
		return Success
	}
	return s.code
}

// Message returns a concatenated message on reasons of the Status.
func (s *Status) Message() string {
	if s == nil {
		return ""
	}
	return strings.Join(s.reasons, ", ")
}

// SetPluginName sets the given plugin name to s.pluginName.
func (s *Status) SetPluginName(plugin string) {
	s.pluginName = plugin
}

// WithPluginName sets the given plugin name to s.pluginName, and returns the given status object.
func (s *Status) WithPluginName(plugin string) *Status {
	s.SetPluginName(plugin)
	return s
}

// PluginName returns the plugin name.
func (s *Status) PluginName() string {
	if s == nil {
		return ""
	}
	return s.pluginName
}

// Reasons returns reasons of the Status.
func (s *Status) Reasons() []string {
	if s == nil {
		return nil
	}
	return s.reasons
}

// AppendReason appends given reason to the Status.
func (s *Status) AppendReason(reason string) {
	s.reasons = append(s.reasons, reason)
}

// IsSuccess returns true if and only if "Status" is nil or Code is "Success".
func (s *Status) IsSuccess() bool {
	return s.Code() == Success
}

// IsSkip returns true if the Status code is Skip.
func (s *Status) IsSkip() bool {
	return s.Code() == Skip
}

// IsUnschedulable returns true if the Status is Unschedulable or
// UnschedulableAndUnresolvable.
func (s *Status) IsUnschedulable() bool {
	code := s.Code()
	return code == Unschedulable || code == UnschedulableAndUnresolvable
}

// AsError returns nil if the status is a success; otherwise returns an "error" object with a
// concatenated message on reasons of the Status.
func (s *Status) AsError() error {
	if s.IsSuccess() {
		return nil
	}
	if s.err != nil {
		return s.err
	}
	return errors.New(s.Message())
}

// Equal checks equality of two statuses. This is useful for testing with
// cmp.Equal.
func (s *Status) Equal(x *Status) bool {
	if s == nil || x == nil {
		return s.IsSuccess() && x.IsSuccess()
	}
	if s.code != x.code {
		return false
	}
	if s.code == Error {
		return cmp.Equal(s.err, x.err, cmpopts.EquateErrors())
	}
	return cmp.Equal(s.reasons, x.reasons)
}

// NewStatus makes a Status out of the given arguments and returns its pointer.
func NewStatus(code Code, reasons ...string) *Status {
	s := &Status{
		code:    code,
		reasons: reasons,
	}
	if code == Error {
		s.err = errors.New(s.Message())
	}
	return s
}

// AsStatus wraps an error in a Status.
func AsStatus(err error) *Status {
	return &Status{
		code:    Error,
		reasons: []string{err.Error()},
		err:     err,
	}
}

// PluginToStatus maps plugin name to status, used to identify which Filter plugin returned which
// status.
type PluginToStatus map[string]*Status

// Merge merges the statuses in the map into one. The resulting status code
// has the following precedence: Error, UnschedulableAndUnresolvable,
// Unschedulable.
func (p PluginToStatus) Merge() *Status {
	if len(p) == 0 {
		return nil
	}

	finalStatus := NewStatus(Success)
	for _, s := range p {
		if s.Code() == Error {
			finalStatus.err = s.AsError()
		}
		if statusPrecedence[s.Code()] > statusPrecedence[finalStatus.code] {
			finalStatus.code = s.Code()
			// Same as code, we keep the most relevant failedPlugin in the returned Status.
			finalStatus.pluginName = s.PluginName()
		}

		for _, r := range s.reasons {
			finalStatus.AppendReason(r)
		}
	}

	return finalStatus
}
