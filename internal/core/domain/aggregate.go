package domain

// Aggregate is implemented by every root persisted through a unit of work.
type Aggregate interface {
	AggregateType() string
	AggregateID() string
	Version() int64
	// PullEvents returns the uncommitted events and clears them.
	PullEvents() []Event
	// Snapshot returns a serializable copy of the current state.
	Snapshot() any
}

// aggregateRoot carries the version and the uncommitted events of a root.
type aggregateRoot struct {
	version int64
	events  []Event
}

// Version is 0 for a new aggregate and increases by one on every save.
func (a *aggregateRoot) Version() int64 {
	return a.version
}

// MarkPersisted records the version assigned by the store after a save.
func (a *aggregateRoot) MarkPersisted(version int64) {
	a.version = version
}

func (a *aggregateRoot) raise(e Event) {
	a.events = append(a.events, e)
}

func (a *aggregateRoot) PullEvents() []Event {
	events := a.events
	a.events = nil
	return events
}

// PendingEvents returns the uncommitted events without clearing them.
func (a *aggregateRoot) PendingEvents() []Event {
	out := make([]Event, len(a.events))
	copy(out, a.events)
	return out
}
