package framework

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is the not found error message.
	ErrNotFound = errors.New("not found")
)

// StateData is a generic type for arbitrary data stored in CycleState.
type StateData interface {
	// Clone is an interface to make a copy of StateData. For performance reasons,
	// clone should make shallow copies for members (e.g., slices or maps).
	Clone() StateData
}

// StateKey is the type of keys stored in CycleState.
type StateKey string

// ScoringStrategyKey is the well-known key the scheduling loop writes the
// active ScoringStrategy under before running the Score plugins.
const ScoringStrategyKey StateKey = "ScoringStrategyConfig"

// ScoringStrategy names which resource-scoring policy the noderesourcesfit
// plugin (or any other strategy-aware scorer) should use for the current
// cycle. It is immutable, so Clone is a copy-by-value.
type ScoringStrategy string

// Clone implements StateData.
func (s ScoringStrategy) Clone() StateData { return s }

// CycleState provides a mechanism for plugins to store and retrieve arbitrary data.
// StateData stored by one plugin can be read, altered, or deleted by another plugin.
// CycleState does not provide any data protection.
//
// It also tracks, for the current scheduling cycle only, which plugin names
// have asked to be skipped for the remainder of the Filter or Score phase
// (PreFilter/PreScore plugins request this by returning Skip).
type CycleState struct {
	mx      sync.RWMutex
	storage map[StateKey]StateData

	skipMx     sync.Mutex
	skipFilter map[string]struct{}
	skipScore  map[string]struct{}
}

// NewCycleState initializes a new CycleState and returns its pointer.
func NewCycleState() *CycleState {
	return &CycleState{
		storage:    make(map[StateKey]StateData),
		skipFilter: make(map[string]struct{}),
		skipScore:  make(map[string]struct{}),
	}
}

// Clone creates a copy of CycleState and returns its pointer. Clone returns
// nil if the context being cloned is nil.
func (c *CycleState) Clone() *CycleState {
	if c == nil {
		return nil
	}
	cp := NewCycleState()
	for k, v := range c.storage {
		cp.Write(k, v.Clone())
	}
	c.skipMx.Lock()
	for name := range c.skipFilter {
		cp.skipFilter[name] = struct{}{}
	}
	for name := range c.skipScore {
		cp.skipScore[name] = struct{}{}
	}
	c.skipMx.Unlock()
	return cp
}

// Read retrieves data with the given "key" from CycleState. If the key is not
// present an error is returned, this function is thread safe.
func (c *CycleState) Read(key StateKey) (StateData, error) {
	c.mx.RLock()
	defer c.mx.RUnlock()
	if v, ok := c.storage[key]; ok {
		return v, nil
	}
	return nil, ErrNotFound
}

// Write stores the given "val" in CycleState with the given "key", this function
// is thread safe.
func (c *CycleState) Write(key StateKey, val StateData) {
	c.mx.Lock()
	c.storage[key] = val
	c.mx.Unlock()
}

// Delete deletes data with the given "key" from CycleState, this function is thread safe.
func (c *CycleState) Delete(key StateKey) {
	c.mx.Lock()
	delete(c.storage, key)
	c.mx.Unlock()
}

// SkipFilter records that pluginName should be skipped for the remainder
// of the Filter phase in this cycle.
func (c *CycleState) SkipFilter(pluginName string) {
	c.skipMx.Lock()
	c.skipFilter[pluginName] = struct{}{}
	c.skipMx.Unlock()
}

// ShouldSkipFilter reports whether pluginName requested to be skipped for
// the Filter phase of this cycle.
func (c *CycleState) ShouldSkipFilter(pluginName string) bool {
	c.skipMx.Lock()
	defer c.skipMx.Unlock()
	_, ok := c.skipFilter[pluginName]
	return ok
}

// SkipScore records that pluginName should be skipped for the remainder
// of the Score phase in this cycle.
func (c *CycleState) SkipScore(pluginName string) {
	c.skipMx.Lock()
	c.skipScore[pluginName] = struct{}{}
	c.skipMx.Unlock()
}

// ShouldSkipScore reports whether pluginName requested to be skipped for
// the Score phase of this cycle.
func (c *CycleState) ShouldSkipScore(pluginName string) bool {
	c.skipMx.Lock()
	defer c.skipMx.Unlock()
	_, ok := c.skipScore[pluginName]
	return ok
}
