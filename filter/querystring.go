package filter

import (
	"net/url"
	"strings"

	"github.com/globalpulse/newsdesk/model"
	"github.com/google/go-querystring/query"
)

// The shareable view string is the page query-string contract: lang, china
// ("1" when set), q, country, topic. A parameter equal to its default is
// omitted entirely, keeping the string minimal, and the all-default state
// encodes to "".
type shareableView struct {
	Lang    string `url:"lang,omitempty"`
	China   bool   `url:"china,int,omitempty"`
	Keyword string `url:"q,omitempty"`
	Country string `url:"country,omitempty"`
	Topic   string `url:"topic,omitempty"`
}

// Encode serializes state into its shareable query-string form.
func Encode(s State) string {
	view := shareableView{
		China:   s.ChinaOnly,
		Keyword: s.Keyword,
		Country: s.Country,
		Topic:   s.Topic,
	}
	if s.Lang != model.LanguageEnglish {
		view.Lang = s.Lang
	}
	values, err := query.Values(view)
	if err != nil {
		return ""
	}
	return values.Encode()
}

// Decode parses a query string into a State. It never fails: each parameter
// independently falls back to its default when missing or malformed, and a
// leading "?" is tolerated.
func Decode(queryString string) State {
	s := Default()
	values, err := url.ParseQuery(strings.TrimPrefix(queryString, "?"))
	if err != nil && len(values) == 0 {
		return s
	}
	if values.Get("lang") == model.LanguageChinese {
		s.Lang = model.LanguageChinese
	}
	s.ChinaOnly = values.Get("china") == "1"
	s.Keyword = strings.TrimSpace(values.Get("q"))
	s.Country = strings.TrimSpace(values.Get("country"))
	s.Topic = strings.TrimSpace(values.Get("topic"))
	return s
}
