package model

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Normalization turns loosely decoded wire payloads into fully populated
// models. Each field falls back to its documented default independently, so
// a missing or wrong-typed field never fails the whole item.

func asString(raw map[string]interface{}, key string, fallback string) string {
	v, ok := raw[key]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}

func asBool(raw map[string]interface{}, key string) bool {
	v, ok := raw[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		return false
	}
	return b
}

func asInt(raw map[string]interface{}, key string, fallback int64) int64 {
	v, ok := raw[key]
	if !ok {
		return fallback
	}
	// encoding/json decodes any JSON number into float64.
	f, ok := v.(float64)
	if !ok {
		return fallback
	}
	return int64(f)
}

// asTime parses key tolerantly, accepting any timestamp layout dateparse
// understands. Absent or unparseable timestamps default to now, so an item
// sorts near the top instead of at the epoch.
func asTime(raw map[string]interface{}, key string) time.Time {
	s := asString(raw, key, "")
	if s == "" {
		return time.Now().UTC()
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}

func asOptionalTime(raw map[string]interface{}, key string) *time.Time {
	s := asString(raw, key, "")
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// asTags returns a deduplicated label set preserving first-seen order.
// Non-string members are skipped, anything non-array collapses to empty.
func asTags(raw map[string]interface{}, key string) []string {
	tags := []string{}
	v, ok := raw[key]
	if !ok {
		return tags
	}
	arr, ok := v.([]interface{})
	if !ok {
		return tags
	}
	seen := map[string]bool{}
	for _, entry := range arr {
		s, ok := entry.(string)
		if !ok || s == "" || seen[s] {
			continue
		}
		seen[s] = true
		tags = append(tags, s)
	}
	return tags
}

func normalizeLanguage(lang string) string {
	if lang == LanguageChinese {
		return LanguageChinese
	}
	return LanguageEnglish
}

// NormalizeNewsItem populates every NewsItem field from a loosely decoded
// payload, substituting the documented default for anything missing or
// wrong-typed.
func NormalizeNewsItem(raw map[string]interface{}) NewsItem {
	item := NewsItem{
		Id:           asInt(raw, "id", 0),
		SourceName:   asString(raw, "source_name", UnknownSourceName),
		SourceUrl:    asString(raw, "source_url", ""),
		ArticleUrl:   asString(raw, "article_url", ""),
		Title:        asString(raw, "title", ""),
		Summary:      asString(raw, "summary", ""),
		Content:      asString(raw, "content", ""),
		Language:     normalizeLanguage(asString(raw, "language", LanguageEnglish)),
		PublishedAt:  asTime(raw, "published_at"),
		FetchedAt:    asTime(raw, "fetched_at"),
		ChinaRelated: asBool(raw, "china_related"),
		CountryTags:  asTags(raw, "country_tags"),
		TopicTags:    asTags(raw, "topic_tags"),
	}
	if s := asString(raw, "image_url", ""); s != "" {
		item.ImageUrl = &s
	}
	if item.SourceName == "" {
		item.SourceName = UnknownSourceName
	}
	return item
}

// NormalizeNewsList normalizes a /api/news response payload.
func NormalizeNewsList(raw map[string]interface{}) NewsList {
	list := NewsList{
		Total: int(asInt(raw, "total", 0)),
		Items: []NewsItem{},
	}
	items, ok := raw["items"].([]interface{})
	if !ok {
		return list
	}
	for _, entry := range items {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		list.Items = append(list.Items, NormalizeNewsItem(m))
	}
	return list
}

func normalizeStatus(status string) string {
	switch strings.ToLower(status) {
	case SourceStatusUp, SourceStatusDegraded, SourceStatusDown:
		return strings.ToLower(status)
	default:
		return SourceStatusUnknown
	}
}

func clampNonNegative(n int64) int {
	if n < 0 {
		return 0
	}
	return int(n)
}

// NormalizeSourceHealth populates one health row, coercing the status into
// the known vocabulary and clamping counters to non-negative values.
func NormalizeSourceHealth(raw map[string]interface{}) SourceHealth {
	health := SourceHealth{
		SourceName:          asString(raw, "source_name", UnknownSourceName),
		FeedUrl:             asString(raw, "feed_url", ""),
		LastStatus:          normalizeStatus(asString(raw, "last_status", "")),
		ConsecutiveFailures: clampNonNegative(asInt(raw, "consecutive_failures", 0)),
		LastItemsCount:      clampNonNegative(asInt(raw, "last_items_count", 0)),
		LastCheckedAt:       asTime(raw, "last_checked_at"),
		LastSuccessAt:       asOptionalTime(raw, "last_success_at"),
	}
	if s := asString(raw, "last_error", ""); s != "" {
		health.LastError = &s
	}
	if v, ok := raw["last_latency_ms"]; ok {
		if f, ok := v.(float64); ok && f >= 0 {
			ms := int64(f)
			health.LastLatencyMs = &ms
		}
	}
	return health
}

// NormalizeRetryMetrics clamps both aggregate counts to non-negative values.
func NormalizeRetryMetrics(raw map[string]interface{}) RetryMetrics {
	return RetryMetrics{
		Pending: clampNonNegative(asInt(raw, "pending", 0)),
		Due:     clampNonNegative(asInt(raw, "due", 0)),
	}
}

// NormalizeFilterOptions never returns nil sets, so an absent vocabulary
// degrades the selectors instead of breaking them.
func NormalizeFilterOptions(raw map[string]interface{}) FilterOptions {
	return FilterOptions{
		Countries: asTags(raw, "countries"),
		Topics:    asTags(raw, "topics"),
	}
}
