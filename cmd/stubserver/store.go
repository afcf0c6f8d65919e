package main

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/globalpulse/newsdesk/model"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
)

// newsStore is the in-memory backend state: ingested items, one health row
// per source and the retry queue counters. Everything evolves on ingest
// ticks so a connected desk sees a live feed.
type newsStore struct {
	mu sync.Mutex

	items  []model.NewsItem
	health []model.SourceHealth
	retry  model.RetryMetrics
	nextId int64
}

var sampleHeadlines = []struct {
	source       string
	title        string
	summary      string
	chinaRelated bool
	countryTags  []string
	topicTags    []string
}{
	{"Reuters World", "Markets steady as central banks hold rates", "Global equities held gains after policy announcements.", false, []string{"united-states"}, []string{"economy"}},
	{"Xinhua Global", "Beijing unveils new trade corridor initiative", "A new logistics corridor aims to cut shipping times.", true, []string{"china"}, []string{"trade"}},
	{"AFP International", "Summit ends with joint climate pledge", "Leaders agreed on emission targets for the next decade.", false, []string{"france"}, []string{"climate"}},
	{"SCMP Desk", "Shanghai tech hub attracts record investment", "Venture funding doubled year over year.", true, []string{"china"}, []string{"technology"}},
	{"BBC Monitoring", "Elections watched closely across the region", "Observers reported a calm first round of voting.", false, []string{"united-kingdom"}, []string{"politics"}},
	{"Caixin Wire", "Yuan settlement volume hits new high", "Cross-border settlements grew for the sixth month.", true, []string{"china"}, []string{"economy", "trade"}},
}

func newNewsStore() *newsStore {
	s := &newsStore{nextId: 1}
	now := time.Now().UTC()

	for i, sample := range sampleHeadlines {
		s.appendLocked(sample.source, sample.title, sample.summary, sample.chinaRelated, sample.countryTags, sample.topicTags, now.Add(-time.Duration(i)*time.Hour))
	}

	sources := map[string]bool{}
	for _, item := range s.items {
		if sources[item.SourceName] {
			continue
		}
		sources[item.SourceName] = true
		latency := int64(80 + rand.Intn(200))
		successAt := now
		s.health = append(s.health, model.SourceHealth{
			SourceName:     item.SourceName,
			FeedUrl:        item.SourceUrl,
			LastStatus:     model.SourceStatusUp,
			LastLatencyMs:  &latency,
			LastItemsCount: 1,
			LastCheckedAt:  now,
			LastSuccessAt:  &successAt,
		})
	}
	sort.Slice(s.health, func(i, j int) bool { return s.health[i].SourceName < s.health[j].SourceName })
	return s
}

func (s *newsStore) appendLocked(source, title, summary string, chinaRelated bool, countryTags, topicTags []string, published time.Time) model.NewsItem {
	item := model.NewsItem{
		Id:           s.nextId,
		SourceName:   source,
		SourceUrl:    "https://example.org/" + strings.ToLower(strings.ReplaceAll(source, " ", "-")),
		ArticleUrl:   "https://example.org/articles/" + strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		Title:        title,
		Summary:      summary,
		Content:      summary + " Full text follows with additional background and sourcing.",
		Language:     model.LanguageEnglish,
		PublishedAt:  published,
		FetchedAt:    time.Now().UTC(),
		ChinaRelated: chinaRelated,
		CountryTags:  countryTags,
		TopicTags:    topicTags,
	}
	s.nextId++
	s.items = append([]model.NewsItem{item}, s.items...)
	return item
}

// seedFromFeed replaces the built-in samples with entries parsed from a live
// RSS feed.
func (s *newsStore) seedFromFeed(feedUrl string) error {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURL(feedUrl)
	if err != nil {
		return errors.Wrapf(err, "fail to parse seed feed %s", feedUrl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	for _, entry := range feed.Items {
		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		}
		title := entry.Title
		related := strings.Contains(strings.ToLower(title), "china")
		s.appendLocked(feed.Title, title, entry.Description, related, []string{}, entry.Categories, published)
	}
	return nil
}

// query mirrors the backend /api/news semantics over the in-memory set.
func (s *newsStore) query(lang string, chinaOnly bool, q, country, topic string, limit, offset int) (int, []model.NewsItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []model.NewsItem{}
	needle := strings.ToLower(strings.TrimSpace(q))
	for _, item := range s.items {
		if chinaOnly && !item.ChinaRelated {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(item.Title), needle) &&
			!strings.Contains(strings.ToLower(item.Summary), needle) {
			continue
		}
		if country != "" && !containsTag(item.CountryTags, country) {
			continue
		}
		if topic != "" && !containsTag(item.TopicTags, topic) {
			continue
		}
		// The production backend serves translations, the stub just stamps
		// the requested language on the canonical item.
		localized := item
		localized.Language = lang
		matched = append(matched, localized)
	}

	total := len(matched)
	if offset >= total {
		return total, []model.NewsItem{}
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return total, matched[offset:end]
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func (s *newsStore) get(id int64, lang string) (model.NewsItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.Id == id {
			item.Language = lang
			return item, true
		}
	}
	return model.NewsItem{}, false
}

func (s *newsStore) healthSnapshot() []model.SourceHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]model.SourceHealth, len(s.health))
	copy(snapshot, s.health)
	return snapshot
}

func (s *newsStore) retryMetrics() model.RetryMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retry
}

func (s *newsStore) filterOptions() model.FilterOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	countries, topics := map[string]bool{}, map[string]bool{}
	options := model.FilterOptions{Countries: []string{}, Topics: []string{}}
	for _, item := range s.items {
		for _, tag := range item.CountryTags {
			if !countries[tag] {
				countries[tag] = true
				options.Countries = append(options.Countries, tag)
			}
		}
		for _, tag := range item.TopicTags {
			if !topics[tag] {
				topics[tag] = true
				options.Topics = append(options.Topics, tag)
			}
		}
	}
	sort.Strings(options.Countries)
	sort.Strings(options.Topics)
	return options
}

// ingestTick simulates one backend ingestion round: it inserts one synthetic
// item, refreshes every health row and drifts the retry counters. Returns
// the number of inserted items.
func (s *newsStore) ingestTick() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample := sampleHeadlines[rand.Intn(len(sampleHeadlines))]
	now := time.Now().UTC()
	s.appendLocked(sample.source, sample.title+" ("+now.Format("15:04:05")+")", sample.summary, sample.chinaRelated, sample.countryTags, sample.topicTags, now)

	for i := range s.health {
		row := &s.health[i]
		row.LastCheckedAt = now
		latency := int64(60 + rand.Intn(400))
		row.LastLatencyMs = &latency
		if rand.Intn(10) == 0 {
			row.LastStatus = model.SourceStatusDegraded
			row.ConsecutiveFailures++
			message := "timeout while fetching feed"
			row.LastError = &message
		} else {
			row.LastStatus = model.SourceStatusUp
			row.ConsecutiveFailures = 0
			row.LastError = nil
			successAt := now
			row.LastSuccessAt = &successAt
			row.LastItemsCount = 1 + rand.Intn(5)
		}
	}

	s.retry.Pending = rand.Intn(6)
	if s.retry.Pending > 0 {
		s.retry.Due = rand.Intn(s.retry.Pending + 1)
	} else {
		s.retry.Due = 0
	}

	return 1
}
