package run

// EventKind classifies a pipeline notification.
type EventKind string

const (
	// EventProgress reports a progress percentage change.
	EventProgress EventKind = "progress"
	// EventStatus reports a state transition or a per-scene status message.
	EventStatus EventKind = "status"
	// EventError reports a fatal pipeline error.
	EventError EventKind = "error"
	// EventCompleted reports successful completion with the artifact location.
	EventCompleted EventKind = "completed"
)

// Event is a single pipeline notification.
type Event struct {
	Kind         EventKind `json:"kind"`
	RunID        string    `json:"run_id"`
	Message      string    `json:"message,omitempty"`
	Percent      int       `json:"percent,omitempty"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
}

// Notifier receives pipeline events as a run progresses.
type Notifier interface {
	Notify(e Event)
}

// NopNotifier discards all events.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(Event) {}

// ChannelNotifier forwards events to a channel. Sends never block: when the
// channel is full the event is dropped, so a slow consumer cannot stall the
// pipeline.
type ChannelNotifier struct {
	ch chan Event
}

// NewChannelNotifier creates a ChannelNotifier with the given buffer size.
func NewChannelNotifier(buffer int) *ChannelNotifier {
	return &ChannelNotifier{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the notifier.
func (c *ChannelNotifier) Events() <-chan Event {
	return c.ch
}

// Notify implements Notifier.
func (c *ChannelNotifier) Notify(e Event) {
	select {
	case c.ch <- e:
	default:
	}
}

// Close closes the event channel. Call only after the producing run has
// finished.
func (c *ChannelNotifier) Close() {
	close(c.ch)
}
