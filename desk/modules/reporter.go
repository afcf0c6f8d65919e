package modules

import (
	"context"
	"encoding/json"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/globalpulse/newsdesk/desk"
	Logger "github.com/globalpulse/newsdesk/utils/log"
)

const (
	metricRefreshSuccess = "newsdesk.refresh.success"
	metricRefreshFailure = "newsdesk.refresh.failure"
	metricRefreshStale   = "newsdesk.refresh.stale"
)

type ReporterConfig struct {
	Name string
}

// Reporter's job is to listen to run results and aggregate them, sending to
// Datadog (or other service if there's any) for monitoring purpose. With no
// statsd client configured it degrades to debug logging.
type Reporter struct {
	Config ReporterConfig

	Statsd *statsd.Client

	EventBus *gochannel.GoChannel
}

func NewReporter(config ReporterConfig, statsd *statsd.Client, e *gochannel.GoChannel) *Reporter {
	return &Reporter{
		Config:   config,
		Statsd:   statsd,
		EventBus: e,
	}
}

func (r *Reporter) RunModule(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := r.EventBus.Subscribe(ctx, desk.TopicRunResult)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		result := desk.RunResult{}
		if err := json.Unmarshal(msg.Payload, &result); err != nil {
			Logger.Log.Errorf("fail to decode run result: %s", err)
			continue
		}
		r.report(result)
	}

	return nil
}

func (r *Reporter) report(result desk.RunResult) {
	metric := metricRefreshSuccess
	if result.Discarded {
		metric = metricRefreshStale
	} else if !result.Success {
		metric = metricRefreshFailure
	}

	Logger.Log.Debugf("run %d trigger=%s metric=%s took %dms", result.Seq, result.Trigger, metric, result.DurationMs)

	if r.Statsd == nil {
		return
	}
	if err := r.Statsd.Incr(metric, []string{"trigger:" + result.Trigger}, 1); err != nil {
		Logger.Log.Infoln("cannot report run result")
	}
}

func (r *Reporter) Name() string {
	return r.Config.Name
}

func (r *Reporter) Shutdown() {
	Logger.Log.Infoln("Module ", r.Config.Name, " gracefully shutdown")
}
