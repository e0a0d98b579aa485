package scheduler

import "time"

// PriorityName is the active queue's ordering key: a pod's priority and
// name at the moment it was pushed.
type PriorityName struct {
	Priority uint64
	Name     string
}

// BackoffEntry is a pod waiting out an exponential backoff before it is
// retried.
type BackoffEntry struct {
	Pod    PriorityName
	Expire time.Time
}

// UnschedulableEntry is a pod parked in the unschedulable tier: it only
// leaves on a matching queueing hint, or once the periodic sweep finds it
// has aged past the unschedulable leftover threshold.
type UnschedulableEntry struct {
	Entry      BackoffEntry
	EnqueuedAt time.Time
}
