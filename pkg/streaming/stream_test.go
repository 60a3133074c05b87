package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(s *Stream) []Event {
	var events []Event
	for e := range s.Events() {
		events = append(events, e)
	}
	return events
}

func TestStreamCompleteSequence(t *testing.T) {
	s := New()
	s.Send("Hel")
	s.Send("lo")
	s.Complete(4.25, "Hello")

	events := collect(s)
	require.Len(t, events, 3)

	assert.Equal(t, EventContent, events[0].Type)
	assert.Equal(t, "Hel", events[0].Content)
	assert.Equal(t, EventContent, events[1].Type)
	assert.Equal(t, "lo", events[1].Content)

	final := events[2]
	assert.Equal(t, EventComplete, final.Type)
	require.NotNil(t, final.Credits)
	assert.Equal(t, 4.25, *final.Credits)
	assert.Equal(t, "Hello", final.FullContent)
}

func TestStreamFail(t *testing.T) {
	s := New()
	s.Send("partial")
	s.Fail("stream failed")

	events := collect(s)
	require.Len(t, events, 2)
	assert.Equal(t, EventError, events[1].Type)
	assert.Equal(t, "stream failed", events[1].Error)
	assert.Nil(t, events[1].Credits)
}

func TestStreamTerminalIsFinal(t *testing.T) {
	s := New()
	s.Complete(1.0, "done")

	// Everything after a terminal event is dropped.
	s.Send("late")
	s.Fail("late failure")
	s.Complete(2.0, "again")
	s.Abandon()

	events := collect(s)
	require.Len(t, events, 1)
	assert.Equal(t, EventComplete, events[0].Type)
}

func TestStreamAbandon(t *testing.T) {
	s := New()
	s.Send("partial")
	s.Abandon()

	// The channel closes without any terminal event.
	events := collect(s)
	require.Len(t, events, 1)
	assert.Equal(t, EventContent, events[0].Type)
}
