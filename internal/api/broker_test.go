package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	ch1 := b.Subscribe("p1")
	ch2 := b.Subscribe("p1")
	other := b.Subscribe("p2")

	b.Publish("p1", PlanEvent{Type: "plan.started"})

	require.Equal(t, "plan.started", (<-ch1).Type)
	require.Equal(t, "plan.started", (<-ch2).Type)
	require.Empty(t, other)

	b.Unsubscribe("p1", ch1)
	b.Publish("p1", PlanEvent{Type: "plan.completed"})
	require.Equal(t, "plan.completed", (<-ch2).Type)

	// Unsubscribe closes the channel.
	_, open := <-ch1
	require.False(t, open)
}

func TestBrokerPublishNeverBlocks(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("p1")
	for i := 0; i < 100; i++ {
		b.Publish("p1", PlanEvent{Type: "plan.route.built"})
	}
	// Buffered to 8; overflow is dropped rather than blocking the planner.
	require.Len(t, ch, 8)
}
