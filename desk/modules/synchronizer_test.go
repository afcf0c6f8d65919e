package modules

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/globalpulse/newsdesk/api"
	"github.com/globalpulse/newsdesk/desk"
	"github.com/globalpulse/newsdesk/filter"
	"github.com/globalpulse/newsdesk/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	newsPayload   = `{"total": 3, "items": [{"id": 1, "title": "plain"}, {"id": 2, "title": "flagged", "china_related": true}, {"id": 3, "title": "also flagged", "china_related": true}]}`
	healthPayload = `{"items": [{"source_name": "Reuters", "last_status": "up"}]}`
	retryPayload  = `{"pending": 2, "due": 1}`
)

func newTestBus() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
}

func receiveSnapshot(t *testing.T, messages <-chan *message.Message) desk.ViewSnapshot {
	select {
	case msg := <-messages:
		msg.Ack()
		snapshot := desk.ViewSnapshot{}
		require.Nil(t, json.Unmarshal(msg.Payload, &snapshot))
		return snapshot
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for view snapshot")
		return desk.ViewSnapshot{}
	}
}

func receiveResult(t *testing.T, messages <-chan *message.Message) desk.RunResult {
	select {
	case msg := <-messages:
		msg.Ack()
		result := desk.RunResult{}
		require.Nil(t, json.Unmarshal(msg.Payload, &result))
		return result
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for run result")
		return desk.RunResult{}
	}
}

func assertNoSnapshot(t *testing.T, messages <-chan *message.Message) {
	select {
	case msg := <-messages:
		msg.Ack()
		t.Fatalf("unexpected extra snapshot: %s", string(msg.Payload))
	case <-time.After(300 * time.Millisecond):
	}
}

func newSyncFixture(t *testing.T, handler http.Handler) (*Synchronizer, *desk.FilterStore, <-chan *message.Message, <-chan *message.Message, func()) {
	server := httptest.NewServer(handler)
	ctx, cancel := context.WithCancel(context.Background())

	bus := newTestBus()
	snapshots, err := bus.Subscribe(ctx, desk.TopicViewSnapshot)
	require.Nil(t, err)
	results, err := bus.Subscribe(ctx, desk.TopicRunResult)
	require.Nil(t, err)

	store := desk.NewFilterStore(filter.Default(), bus)
	sync := NewSynchronizer(
		SynchronizerConfig{Name: "synchronizer", PageSize: 30},
		api.NewClient(server.URL), store, model.FilterOptions{Countries: []string{}, Topics: []string{}}, bus,
	)
	return sync, store, snapshots, results, func() {
		cancel()
		server.Close()
	}
}

func healthyBackend() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/news":
			w.Write([]byte(newsPayload))
		case "/api/sources/health":
			w.Write([]byte(healthPayload))
		case "/api/retry/metrics":
			w.Write([]byte(retryPayload))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestRunOnce(t *testing.T) {
	t.Run("Test successful run publishes one atomic snapshot", func(t *testing.T) {
		sync, _, snapshots, results, teardown := newSyncFixture(t, healthyBackend())
		defer teardown()

		sync.RunOnce(context.Background(), desk.TriggerFilter)

		snapshot := receiveSnapshot(t, snapshots)
		assert.Equal(t, "", snapshot.Err)
		assert.Equal(t, 3, snapshot.News.Total)
		require.Len(t, snapshot.News.Items, 3)
		// Focus projection rides along with the same snapshot.
		require.Len(t, snapshot.Focus, 2)
		assert.Equal(t, int64(2), snapshot.Focus[0].Id)
		assert.Equal(t, int64(3), snapshot.Focus[1].Id)
		require.Len(t, snapshot.Health, 1)
		assert.Equal(t, model.RetryMetrics{Pending: 2, Due: 1}, snapshot.Retry)

		result := receiveResult(t, results)
		assert.True(t, result.Success)
		assert.False(t, result.Discarded)
		assert.Equal(t, desk.TriggerFilter, result.Trigger)
	})

	t.Run("Test health failure surfaces one error and no data update", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/news":
				w.Write([]byte(newsPayload))
			case "/api/sources/health":
				w.WriteHeader(http.StatusInternalServerError)
			case "/api/retry/metrics":
				w.Write([]byte(retryPayload))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})
		sync, _, snapshots, results, teardown := newSyncFixture(t, handler)
		defer teardown()

		sync.RunOnce(context.Background(), desk.TriggerPush)

		snapshot := receiveSnapshot(t, snapshots)
		assert.Contains(t, snapshot.Err, "sources/health")
		assert.Contains(t, snapshot.Err, "500")
		// The failed operation carries no partial data, the renderer keeps
		// whatever was on screen.
		assert.Empty(t, snapshot.News.Items)
		assert.Empty(t, snapshot.Health)

		result := receiveResult(t, results)
		assert.False(t, result.Success)
		assert.Equal(t, desk.TriggerPush, result.Trigger)
	})

	t.Run("Test superseded response is discarded, last requested wins", func(t *testing.T) {
		entered := make(chan struct{}, 1)
		release := make(chan struct{})
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/news":
				if r.URL.Query().Get("q") == "slow" {
					entered <- struct{}{}
					<-release
				}
				w.Write([]byte(newsPayload))
			case "/api/sources/health":
				w.Write([]byte(healthPayload))
			case "/api/retry/metrics":
				w.Write([]byte(retryPayload))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})
		sync, store, snapshots, results, teardown := newSyncFixture(t, handler)
		defer teardown()

		// First run is issued against the slow keyword and stalls in flight.
		_, err := store.Mutate(desk.TriggerFilter, func(s filter.State) filter.State {
			return s.WithKeyword("slow")
		})
		require.Nil(t, err)
		go sync.RunOnce(context.Background(), desk.TriggerFilter)
		<-entered

		// A second run is issued and completes while the first is stalled.
		_, err = store.Mutate(desk.TriggerFilter, func(s filter.State) filter.State {
			return s.WithKeyword("")
		})
		require.Nil(t, err)
		sync.RunOnce(context.Background(), desk.TriggerFilter)

		applied := receiveSnapshot(t, snapshots)
		assert.Equal(t, "", applied.Err)
		first := receiveResult(t, results)
		assert.True(t, first.Success)
		assert.False(t, first.Discarded)

		// Now the stalled response lands. It must not overwrite the view.
		close(release)
		second := receiveResult(t, results)
		assert.True(t, second.Discarded)
		assert.True(t, second.Seq < applied.Seq)
		assertNoSnapshot(t, snapshots)

		assert.Equal(t, applied.Seq, sync.LastApplied())
	})
}
