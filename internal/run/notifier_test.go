package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelNotifier_Delivers(t *testing.T) {
	n := NewChannelNotifier(4)
	n.Notify(Event{Kind: EventProgress, RunID: "run-1", Percent: 10})
	n.Notify(Event{Kind: EventCompleted, RunID: "run-1", ArtifactPath: "/tmp/out.mp4"})
	n.Close()

	var events []Event
	for e := range n.Events() {
		events = append(events, e)
	}
	require.Len(t, events, 2)
	assert.Equal(t, EventProgress, events[0].Kind)
	assert.Equal(t, 10, events[0].Percent)
	assert.Equal(t, EventCompleted, events[1].Kind)
	assert.Equal(t, "/tmp/out.mp4", events[1].ArtifactPath)
}

func TestChannelNotifier_DropsWhenFull(t *testing.T) {
	n := NewChannelNotifier(1)
	n.Notify(Event{Kind: EventProgress, Percent: 1})
	// Buffer is full: this must not block.
	n.Notify(Event{Kind: EventProgress, Percent: 2})
	n.Close()

	var events []Event
	for e := range n.Events() {
		events = append(events, e)
	}
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].Percent)
}

func TestNopNotifier(t *testing.T) {
	// Must simply not panic.
	NopNotifier{}.Notify(Event{Kind: EventError})
}
