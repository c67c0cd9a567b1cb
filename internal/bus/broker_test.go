package bus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	id1, ch1 := b.Subscribe()
	id2, ch2 := b.Subscribe()
	defer b.Unsubscribe(id1)
	defer b.Unsubscribe(id2)

	b.Publish(Event{Kind: KindEntry, Payload: `{"symbol":"ASELS"}`})

	require.Equal(t, KindEntry, (<-ch1).Kind)
	require.Equal(t, `{"symbol":"ASELS"}`, (<-ch2).Payload)
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	id, ch := b.Subscribe()
	b.Unsubscribe(id)

	_, open := <-ch
	require.False(t, open)
	require.Zero(t, b.ClientCount())

	// Double unsubscribe is harmless.
	b.Unsubscribe(id)
}

func TestBrokerSlowSubscriberDrops(t *testing.T) {
	b := NewBroker()
	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	for i := 0; i < subscriberBufSize+10; i++ {
		b.Publish(Event{Kind: KindReport})
	}
	require.Len(t, ch, subscriberBufSize)
}
