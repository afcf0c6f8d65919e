package desk

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/globalpulse/newsdesk/filter"
	"github.com/globalpulse/newsdesk/model"
)

// RefreshRequest asks the synchronizer to refetch with the current
// FilterState. The payload deliberately carries no filter data: whichever
// snapshot is current when the request is processed wins.
type RefreshRequest struct {
	Trigger string `json:"trigger"`
}

// ViewSnapshot is one atomic replacement of the rendered view. Either Err is
// set and the data fields are empty, or Err is empty and the triple plus its
// focus projection is fully populated.
type ViewSnapshot struct {
	Seq     uint64               `json:"seq"`
	State   filter.State         `json:"state"`
	Err     string               `json:"err,omitempty"`
	News    model.NewsList       `json:"news"`
	Focus   []model.NewsItem     `json:"focus"`
	Health  []model.SourceHealth `json:"health"`
	Retry   model.RetryMetrics   `json:"retry"`
	Options model.FilterOptions  `json:"options"`
}

// RunResult reports the outcome of one synchronizer run for metric purposes.
type RunResult struct {
	Trigger    string `json:"trigger"`
	Seq        uint64 `json:"seq"`
	Success    bool   `json:"success"`
	Discarded  bool   `json:"discarded"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// PublishEvent marshals payload and publishes it on topic.
func PublishEvent(bus *gochannel.GoChannel, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	return bus.Publish(topic, msg)
}
