package queue

type EventKind int

const (
	EventStarted EventKind = iota
	EventProgressed
	EventCanceled
	EventComplete
	EventError
	EventQueueEmpty
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventProgressed:
		return "progressed"
	case EventCanceled:
		return "canceled"
	case EventComplete:
		return "complete"
	case EventError:
		return "error"
	case EventQueueEmpty:
		return "queue-empty"
	}
	return "unknown"
}

// Event is a lifecycle notification. Task is zero for EventQueueEmpty,
// Downloaded/Total are only set for EventProgressed (Total is -1 when the
// size is unknown) and Err only for EventError.
type Event struct {
	Kind       EventKind
	Task       Task
	Downloaded int64
	Total      int64
	Err        error
}

// Observer receives events on the controller loop goroutine. Implementations
// must not block and must not call back into the controller synchronously.
type Observer interface {
	Notify(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) {
	f(e)
}
