package desk

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/globalpulse/newsdesk/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
}

func receiveRefresh(t *testing.T, messages <-chan *message.Message) RefreshRequest {
	select {
	case msg := <-messages:
		msg.Ack()
		req := RefreshRequest{}
		require.Nil(t, json.Unmarshal(msg.Payload, &req))
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh request")
		return RefreshRequest{}
	}
}

func assertNoRefresh(t *testing.T, messages <-chan *message.Message) {
	select {
	case msg := <-messages:
		msg.Ack()
		t.Fatalf("unexpected extra refresh request: %s", string(msg.Payload))
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFilterStoreMutate(t *testing.T) {
	t.Run("Test one mutation publishes exactly one refresh", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		bus := newTestBus()
		messages, err := bus.Subscribe(ctx, TopicRefreshRequest)
		require.Nil(t, err)

		store := NewFilterStore(filter.Default(), bus)
		next, err := store.Mutate(TriggerFilter, func(s filter.State) filter.State {
			return s.WithLang("zh")
		})
		require.Nil(t, err)
		assert.Equal(t, "zh", next.Lang)

		req := receiveRefresh(t, messages)
		assert.Equal(t, TriggerFilter, req.Trigger)
		assertNoRefresh(t, messages)
	})

	t.Run("Test reset of a fully set filter still fires a single fetch", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		bus := newTestBus()
		messages, err := bus.Subscribe(ctx, TopicRefreshRequest)
		require.Nil(t, err)

		initial := filter.Default().WithLang("zh").WithChinaOnly(true).WithKeyword("trade").WithCountry("china").WithTopic("economy")
		store := NewFilterStore(initial, bus)

		next, err := store.Mutate(TriggerFilter, func(s filter.State) filter.State {
			return s.Reset()
		})
		require.Nil(t, err)
		assert.True(t, next.IsDefault())

		receiveRefresh(t, messages)
		assertNoRefresh(t, messages)
	})

	t.Run("Test refresh publishes without touching state", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		bus := newTestBus()
		messages, err := bus.Subscribe(ctx, TopicRefreshRequest)
		require.Nil(t, err)

		initial := filter.Default().WithKeyword("trade")
		store := NewFilterStore(initial, bus)
		require.Nil(t, store.Refresh(TriggerManual))

		req := receiveRefresh(t, messages)
		assert.Equal(t, TriggerManual, req.Trigger)
		assert.Equal(t, initial, store.Snapshot())
	})
}
