// Package streaming models the push-event channel a metered completion is
// delivered over: a single-producer, single-consumer sequence of content
// events closed by exactly one terminal event (complete or error). The
// Stream type enforces the terminal-state machine by construction; sends
// after a terminal event are dropped, so a consumer can never observe one.
package streaming

// EventType tags a stream event.
type EventType string

const (
	// EventContent carries one incremental content delta.
	EventContent EventType = "content"
	// EventComplete is terminal: carries the post-settlement balance and the
	// full accumulated text.
	EventComplete EventType = "complete"
	// EventError is terminal: the upstream failed mid-stream. Content already
	// delivered remains valid; no credit was charged.
	EventError EventType = "error"
)

// Event is one tagged variant pushed to the caller. Field presence follows
// the type: Content for content events, Credits+FullContent for complete,
// Error for error.
type Event struct {
	Type        EventType `json:"type"`
	Content     string    `json:"content,omitempty"`
	Credits     *float64  `json:"credits,omitempty"`
	FullContent string    `json:"fullContent,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Stream is the producer handle. Events returns the consumer side; the
// channel is closed as soon as a terminal event has been delivered.
type Stream struct {
	ch   chan Event
	done bool
}

// New creates a stream with a small buffer so the producer is not blocked on
// a consumer that is flushing to the network.
func New() *Stream {
	return &Stream{ch: make(chan Event, 16)}
}

// Events returns the receive side of the stream
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Send pushes one content delta. No-op once a terminal event was sent.
func (s *Stream) Send(content string) {
	if s.done {
		return
	}
	s.ch <- Event{Type: EventContent, Content: content}
}

// Complete pushes the terminal complete event and closes the stream.
func (s *Stream) Complete(credits float64, fullContent string) {
	if s.done {
		return
	}
	s.done = true
	s.ch <- Event{Type: EventComplete, Credits: &credits, FullContent: fullContent}
	close(s.ch)
}

// Fail pushes the terminal error event and closes the stream.
func (s *Stream) Fail(reason string) {
	if s.done {
		return
	}
	s.done = true
	s.ch <- Event{Type: EventError, Error: reason}
	close(s.ch)
}

// Abandon closes the stream without any terminal event. Used when the caller
// disconnected and there is no one left to deliver a terminal event to.
func (s *Stream) Abandon() {
	if s.done {
		return
	}
	s.done = true
	close(s.ch)
}
