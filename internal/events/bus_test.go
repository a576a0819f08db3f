package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBusPublishInvokesSubscribers(t *testing.T) {
	b := NewBus(4)
	var got []Event
	b.Subscribe(func(e Event) { got = append(got, e) })

	b.Publish(New(RangeStarted))
	b.Publish(New(RangeCompleted))

	require.Len(t, got, 2)
	require.Equal(t, RangeStarted, got[0].Type)
}

func TestBusStreamReceivesPublishedEvents(t *testing.T) {
	b := NewBus(4)
	b.Publish(New(ClaimAcquired))

	select {
	case e := <-b.Stream():
		require.Equal(t, ClaimAcquired, e.Type)
	default:
		t.Fatal("expected an event on the stream channel")
	}
}

func TestBusPublishDropsWhenStreamFull(t *testing.T) {
	b := NewBus(1)
	b.Publish(New(RangeStarted))
	// Channel is now full; this publish must not block.
	b.Publish(New(RangeCompleted))

	e := <-b.Stream()
	require.Equal(t, RangeStarted, e.Type)
}
