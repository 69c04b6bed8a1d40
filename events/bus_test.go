package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToSubscribers(t *testing.T) {
	bus := NewBus()

	received := make(chan StickyRepostedEvent, 1)
	bus.Subscribe(EventTypeStickyReposted, func(ctx context.Context, event Event) {
		if reposted, ok := event.(StickyRepostedEvent); ok {
			received <- reposted
		} else {
			t.Errorf("Expected StickyRepostedEvent, got %T", event)
		}
	})

	sent := StickyRepostedEvent{GuildID: "1", ChannelID: "100", MessageID: "M2", PreviousMessageID: "M1"}
	require.NoError(t, bus.Publish(sent))

	select {
	case got := <-received:
		assert.Equal(t, sent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

func TestBus_OnlyMatchingTypes(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var seen []EventType
	bus.Subscribe(EventTypeStickyDeleted, func(ctx context.Context, event Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event.Type())
	})

	bus.Emit(context.Background(), StickyRepostedEvent{ChannelID: "100"})
	bus.Emit(context.Background(), StickyDeletedEvent{ChannelID: "100"})
	bus.Wait()

	assert.Equal(t, []EventType{EventTypeStickyDeleted}, seen)
}

func TestBus_SubscribeAllAndPanics(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(ctx context.Context, event Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	bus.Subscribe(EventTypeStickyDebounceArmed, func(ctx context.Context, event Event) {
		panic("boom")
	})

	for _, ev := range []Event{
		StickyRepostedEvent{},
		StickyDebounceArmedEvent{},
		StickyDeletedEvent{},
	} {
		assert.NotPanics(t, func() { bus.Emit(context.Background(), ev) })
	}
	bus.Wait()

	assert.Equal(t, 3, count)
}
