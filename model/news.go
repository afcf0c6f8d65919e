package model

import (
	"time"
)

const (
	LanguageEnglish = "en"
	LanguageChinese = "zh"

	// A news item with no source attribution renders under this placeholder.
	UnknownSourceName = "Unknown Source"

	// Number of flagged items surfaced in the highlighted focus section.
	FocusSectionCap = 4
)

/*

NewsItem is one ingested article as served by the backend.

Id: backend-assigned identity, unique across the feed
SourceName: human readable name of the upstream source
SourceUrl: homepage of the upstream source
ArticleUrl: canonical link of the article itself
Title/Summary/Content: plain text content, already localized by the backend
Language: either "en" or "zh"
PublishedAt: publication time claimed by the source
FetchedAt: time the backend ingested the item
ChinaRelated: relevance flag driving the focus-only filter and focus section
ImageUrl: optional lead image, nil when the source provides none
CountryTags/TopicTags: deduplicated label sets used by the selectors

Every field has a defined default applied by NormalizeNewsItem, so an item
is always renderable no matter how sparse the wire payload was.
*/
type NewsItem struct {
	Id           int64     `json:"id"`
	SourceName   string    `json:"source_name"`
	SourceUrl    string    `json:"source_url"`
	ArticleUrl   string    `json:"article_url"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Content      string    `json:"content"`
	Language     string    `json:"language"`
	PublishedAt  time.Time `json:"published_at"`
	FetchedAt    time.Time `json:"fetched_at"`
	ChinaRelated bool      `json:"china_related"`
	ImageUrl     *string   `json:"image_url"`
	CountryTags  []string  `json:"country_tags"`
	TopicTags    []string  `json:"topic_tags"`
}

// NewsList is the backend response for a filtered news query. Total counts
// all matches, Items carries the requested page.
type NewsList struct {
	Total int        `json:"total"`
	Items []NewsItem `json:"items"`
}

// FocusSubset projects the already-fetched list down to flagged items, in
// source order, capped to max entries. Pure projection, no fetch involved.
func FocusSubset(items []NewsItem, max int) []NewsItem {
	subset := []NewsItem{}
	for _, item := range items {
		if !item.ChinaRelated {
			continue
		}
		subset = append(subset, item)
		if len(subset) == max {
			break
		}
	}
	return subset
}
