package filter

import (
	"strings"

	"github.com/globalpulse/newsdesk/model"
)

// State is one immutable feed query: every user action produces a new value
// via the With* methods, never an in-place mutation. The zero value is not
// meaningful, use Default().
type State struct {
	Lang      string
	ChinaOnly bool
	Keyword   string
	Country   string
	Topic     string
}

// Default returns the state a fresh page load starts from: English, no focus
// restriction, no keyword, no selector choices.
func Default() State {
	return State{Lang: model.LanguageEnglish}
}

func (s State) WithLang(lang string) State {
	if lang != model.LanguageChinese {
		lang = model.LanguageEnglish
	}
	s.Lang = lang
	return s
}

func (s State) WithChinaOnly(chinaOnly bool) State {
	s.ChinaOnly = chinaOnly
	return s
}

// WithKeyword commits a keyword search. The committed value is always
// trimmed, the staging of a free-typed draft happens in the prompt layer.
func (s State) WithKeyword(keyword string) State {
	s.Keyword = strings.TrimSpace(keyword)
	return s
}

func (s State) WithCountry(country string) State {
	s.Country = strings.TrimSpace(country)
	return s
}

func (s State) WithTopic(topic string) State {
	s.Topic = strings.TrimSpace(topic)
	return s
}

// Reset clears all five fields back to their defaults in one snapshot, so
// exactly one downstream fetch fires.
func (s State) Reset() State {
	return Default()
}

func (s State) IsDefault() bool {
	return s == Default()
}
