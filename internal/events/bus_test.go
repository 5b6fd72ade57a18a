package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(4)
	a, cancelA := bus.Subscribe()
	defer cancelA()
	b, cancelB := bus.Subscribe()
	defer cancelB()

	c := bus.Publish(TableTransactions, OpCreate)
	assert.Equal(t, int64(1), c.Version)
	assert.False(t, c.At.IsZero())

	assert.Equal(t, c, <-a)
	assert.Equal(t, c, <-b)
	assert.Equal(t, int64(1), bus.Version())
}

func TestPublishNeverBlocks(t *testing.T) {
	bus := NewBus(1)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(TableAccounts, OpCreate)
	last := bus.Publish(TableAccounts, OpUpdate) // dropped, buffer full

	got := <-ch
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, int64(2), last.Version)
	assert.Less(t, got.Version, bus.Version(), "subscriber can detect it is behind")
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(0)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	require.False(t, ok)

	// Publishing after unsubscribe must not panic on the closed channel.
	bus.Publish(TableAll, OpClear)
}
