package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/globalpulse/newsdesk/filter"
	"github.com/globalpulse/newsdesk/model"
	"github.com/google/go-querystring/query"
	"github.com/pkg/errors"
)

const defaultRequestTimeout = 15 * time.Second

// Client issues REST fetches against one resolved backend origin. The origin
// is read once at startup and injected here, nothing else in the process
// reaches for it.
type Client struct {
	origin string

	client *http.Client
}

func NewClient(origin string) *Client {
	return &Client{
		origin: strings.TrimRight(origin, "/"),
		client: &http.Client{Timeout: defaultRequestTimeout},
	}
}

// Origin returns the resolved backend origin this client fetches against.
func (c *Client) Origin() string {
	return c.origin
}

// newsQuery is the backend parameterization of a feed query. Distinct from
// the shareable view string: china_only is always present and paging is
// explicit.
type newsQuery struct {
	Lang      string `url:"lang"`
	ChinaOnly bool   `url:"china_only"`
	Limit     int    `url:"limit"`
	Offset    int    `url:"offset"`
	Keyword   string `url:"q,omitempty"`
	Country   string `url:"country,omitempty"`
	Topic     string `url:"topic,omitempty"`
}

func (c *Client) get(ctx context.Context, path string, values url.Values) (map[string]interface{}, error) {
	uri := c.origin + path
	if len(values) > 0 {
		uri += "?" + values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to build request for %s", path)
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to fetch %s", path)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return nil, errors.Errorf("fetch %s failed with status %d", path, res.StatusCode)
	}

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to read %s response", path)
	}
	raw := map[string]interface{}{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrapf(err, "fail to decode %s response", path)
	}
	return raw, nil
}

// FetchNews runs the filtered news query for one FilterState snapshot and
// returns the normalized page.
func (c *Client) FetchNews(ctx context.Context, state filter.State, limit int, offset int) (model.NewsList, error) {
	values, err := query.Values(newsQuery{
		Lang:      state.Lang,
		ChinaOnly: state.ChinaOnly,
		Limit:     limit,
		Offset:    offset,
		Keyword:   strings.TrimSpace(state.Keyword),
		Country:   strings.TrimSpace(state.Country),
		Topic:     strings.TrimSpace(state.Topic),
	})
	if err != nil {
		return model.NewsList{Items: []model.NewsItem{}}, errors.Wrap(err, "fail to encode news query")
	}
	raw, err := c.get(ctx, "/api/news", values)
	if err != nil {
		return model.NewsList{Items: []model.NewsItem{}}, err
	}
	return model.NormalizeNewsList(raw), nil
}

// FetchNewsDetail returns one normalized article by id.
func (c *Client) FetchNewsDetail(ctx context.Context, id int64, lang string) (model.NewsItem, error) {
	values := url.Values{}
	values.Set("lang", lang)
	raw, err := c.get(ctx, fmt.Sprintf("/api/news/%d", id), values)
	if err != nil {
		return model.NewsItem{}, err
	}
	return model.NormalizeNewsItem(raw), nil
}

// FetchSourceHealth returns the normalized point-in-time health snapshot of
// every upstream ingestion source.
func (c *Client) FetchSourceHealth(ctx context.Context) ([]model.SourceHealth, error) {
	raw, err := c.get(ctx, "/api/sources/health", nil)
	if err != nil {
		return nil, err
	}
	health := []model.SourceHealth{}
	items, ok := raw["items"].([]interface{})
	if !ok {
		return health, nil
	}
	for _, entry := range items {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		health = append(health, model.NormalizeSourceHealth(m))
	}
	return health, nil
}

// FetchFilterOptions is the one-shot vocabulary fetch populating the filter
// selectors.
func (c *Client) FetchFilterOptions(ctx context.Context) (model.FilterOptions, error) {
	raw, err := c.get(ctx, "/api/filters", nil)
	if err != nil {
		return model.FilterOptions{Countries: []string{}, Topics: []string{}}, err
	}
	return model.NormalizeFilterOptions(raw), nil
}

// FetchRetryMetrics returns the aggregate retry queue counters.
func (c *Client) FetchRetryMetrics(ctx context.Context) (model.RetryMetrics, error) {
	raw, err := c.get(ctx, "/api/retry/metrics", nil)
	if err != nil {
		return model.RetryMetrics{}, err
	}
	return model.NormalizeRetryMetrics(raw), nil
}

// PushEndpoint derives the push channel url from the backend origin,
// mirroring the scheme: http origins get ws, https origins get wss. An empty
// origin resolves to an empty endpoint, which disables the channel.
func PushEndpoint(origin string) string {
	origin = strings.TrimRight(origin, "/")
	if origin == "" {
		return ""
	}
	if strings.HasPrefix(origin, "https://") {
		return "wss://" + strings.TrimPrefix(origin, "https://") + "/ws/news"
	}
	if strings.HasPrefix(origin, "http://") {
		return "ws://" + strings.TrimPrefix(origin, "http://") + "/ws/news"
	}
	return ""
}
