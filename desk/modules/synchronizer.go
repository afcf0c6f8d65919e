package modules

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/globalpulse/newsdesk/api"
	"github.com/globalpulse/newsdesk/desk"
	"github.com/globalpulse/newsdesk/filter"
	"github.com/globalpulse/newsdesk/model"
	Logger "github.com/globalpulse/newsdesk/utils/log"
)

type SynchronizerConfig struct {
	// Name of the synchronizer.
	Name string

	// Number of news items requested per run.
	PageSize int
}

// Synchronizer listens for refresh requests and serves each one with the
// three-way fetch: filtered news, source health and retry metrics issued
// together as one logical operation. A run reaches the view only as one
// atomic snapshot, and only when no newer run has already landed.
type Synchronizer struct {
	Config SynchronizerConfig

	client  *api.Client
	store   *desk.FilterStore
	options model.FilterOptions

	EventBus *gochannel.GoChannel

	// Tags each run at issue time. Last requested wins, not last completed.
	issued uint64

	mu      sync.Mutex
	applied uint64
}

// Return a new instance of Synchronizer. options is the one-shot vocabulary
// loaded at startup, carried into every snapshot for the renderer.
func NewSynchronizer(config SynchronizerConfig, client *api.Client, store *desk.FilterStore, options model.FilterOptions, e *gochannel.GoChannel) *Synchronizer {
	return &Synchronizer{
		Config:   config,
		client:   client,
		store:    store,
		options:  options,
		EventBus: e,
	}
}

func (s *Synchronizer) RunModule(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := s.EventBus.Subscribe(ctx, desk.TopicRefreshRequest)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		req := desk.RefreshRequest{}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			Logger.Log.Errorf("fail to decode refresh request: %s", err)
			continue
		}

		// Runs deliberately overlap. The sequence guard in RunOnce keeps a
		// superseded response from overwriting a newer one.
		go s.RunOnce(ctx, req.Trigger)
	}

	return nil
}

// RunOnce performs one three-way fetch against the current FilterState and
// publishes the outcome.
func (s *Synchronizer) RunOnce(ctx context.Context, trigger string) {
	seq := atomic.AddUint64(&s.issued, 1)
	state := s.store.Snapshot()
	start := time.Now()

	var (
		news   model.NewsList
		health []model.SourceHealth
		retry  model.RetryMetrics

		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		if err != nil {
			errOnce.Do(func() { firstErr = err })
		}
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		res, err := s.client.FetchNews(ctx, state, s.Config.PageSize, 0)
		news = res
		fail(err)
	}()
	go func() {
		defer wg.Done()
		res, err := s.client.FetchSourceHealth(ctx)
		health = res
		fail(err)
	}()
	go func() {
		defer wg.Done()
		res, err := s.client.FetchRetryMetrics(ctx)
		retry = res
		fail(err)
	}()
	wg.Wait()

	result := desk.RunResult{
		Trigger:    trigger,
		Seq:        seq,
		Success:    firstErr == nil,
		DurationMs: time.Since(start).Milliseconds(),
	}

	s.mu.Lock()
	stale := seq <= s.applied
	if !stale {
		s.applied = seq
	}
	s.mu.Unlock()

	if stale {
		// A newer run already reached the view, this response is discarded.
		result.Discarded = true
		s.publishResult(result)
		return
	}

	snapshot := desk.ViewSnapshot{
		Seq:     seq,
		State:   state,
		Options: s.options,
	}
	if firstErr != nil {
		// One textual error for the whole operation. The renderer keeps the
		// previously displayed data.
		result.Error = firstErr.Error()
		snapshot.Err = firstErr.Error()
		snapshot.News = model.NewsList{Items: []model.NewsItem{}}
		snapshot.Focus = []model.NewsItem{}
		snapshot.Health = []model.SourceHealth{}
	} else {
		snapshot.News = news
		snapshot.Focus = model.FocusSubset(news.Items, model.FocusSectionCap)
		snapshot.Health = health
		snapshot.Retry = retry
	}

	if err := desk.PublishEvent(s.EventBus, desk.TopicViewSnapshot, snapshot); err != nil {
		Logger.Log.Errorf("fail to publish view snapshot: %s", err)
	}
	s.publishResult(result)
}

func (s *Synchronizer) publishResult(result desk.RunResult) {
	if err := desk.PublishEvent(s.EventBus, desk.TopicRunResult, result); err != nil {
		Logger.Log.Errorf("fail to publish run result: %s", err)
	}
}

// LastApplied returns the sequence number of the newest run that reached the
// view.
func (s *Synchronizer) LastApplied() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// Snapshot of the filter currently driving runs, for display purposes.
func (s *Synchronizer) CurrentFilter() filter.State {
	return s.store.Snapshot()
}

func (s *Synchronizer) Name() string {
	return s.Config.Name
}

func (s *Synchronizer) Shutdown() {
	Logger.Log.Infoln("Module ", s.Config.Name, " gracefully shutdown")
}
