package modules

import (
	"bytes"
	"testing"
	"time"

	"github.com/globalpulse/newsdesk/desk"
	"github.com/globalpulse/newsdesk/filter"
	"github.com/globalpulse/newsdesk/model"
	"github.com/stretchr/testify/assert"
)

func renderToString(snapshot desk.ViewSnapshot) string {
	out := &bytes.Buffer{}
	renderer := NewRenderer(RendererConfig{Name: "renderer"}, out, newTestBus())
	renderer.Render(snapshot)
	return out.String()
}

func TestRender(t *testing.T) {
	t.Run("Test successful snapshot renders the whole triple", func(t *testing.T) {
		latency := int64(120)
		output := renderToString(desk.ViewSnapshot{
			Seq:   1,
			State: filter.Default().WithKeyword("trade"),
			News: model.NewsList{
				Total: 2,
				Items: []model.NewsItem{
					{Id: 1, SourceName: "Reuters World", Title: "Plain story", PublishedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), CountryTags: []string{"france"}, TopicTags: []string{}},
					{Id: 2, SourceName: "Xinhua Global", Title: "Flagged story", ChinaRelated: true, PublishedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), CountryTags: []string{}, TopicTags: []string{}},
				},
			},
			Focus: []model.NewsItem{{Id: 2, SourceName: "Xinhua Global", Title: "Flagged story", ChinaRelated: true, CountryTags: []string{}, TopicTags: []string{}}},
			Health: []model.SourceHealth{
				{SourceName: "Reuters World", LastStatus: model.SourceStatusUp, LastLatencyMs: &latency, LastItemsCount: 3, LastCheckedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
			},
			Retry: model.RetryMetrics{Pending: 2, Due: 1},
		})

		assert.Contains(t, output, "q=trade")
		assert.Contains(t, output, "China Focus")
		assert.Contains(t, output, "Flagged story")
		assert.Contains(t, output, "Plain story")
		assert.Contains(t, output, "Reuters World")
		assert.Contains(t, output, "120ms")
		assert.Contains(t, output, "retry queue: 2 pending, 1 due")
	})

	t.Run("Test failed snapshot renders only the error banner", func(t *testing.T) {
		output := renderToString(desk.ViewSnapshot{
			Seq:   2,
			State: filter.Default(),
			Err:   "fetch /api/sources/health failed with status 502",
		})

		assert.Contains(t, output, "refresh failed")
		assert.Contains(t, output, "502")
		assert.Contains(t, output, "previous results are kept")
		// No headline or table output sneaks into an error render.
		assert.NotContains(t, output, "Latest International Headlines")
	})

	t.Run("Test empty result set is stated explicitly", func(t *testing.T) {
		output := renderToString(desk.ViewSnapshot{
			State: filter.Default().WithChinaOnly(true),
			News:  model.NewsList{Items: []model.NewsItem{}},
			Focus: []model.NewsItem{},
		})
		assert.Contains(t, output, "no items match the current filters")
		assert.Contains(t, output, "focus-only")
	})
}
