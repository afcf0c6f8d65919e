package filter

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	t.Run("Test default state encodes to empty string", func(t *testing.T) {
		assert.Equal(t, "", Encode(Default()))
	})

	t.Run("Test defaults are omitted and set fields kept verbatim", func(t *testing.T) {
		state := Default().WithLang("zh").WithChinaOnly(true).WithKeyword("trade")
		values, err := url.ParseQuery(Encode(state))
		require.Nil(t, err)

		assert.Equal(t, "zh", values.Get("lang"))
		assert.Equal(t, "1", values.Get("china"))
		assert.Equal(t, "trade", values.Get("q"))
		_, hasCountry := values["country"]
		_, hasTopic := values["topic"]
		assert.False(t, hasCountry)
		assert.False(t, hasTopic)
	})

	t.Run("Test english lang is omitted as the default", func(t *testing.T) {
		state := Default().WithCountry("france")
		assert.Equal(t, "country=france", Encode(state))
	})
}

func TestDecode(t *testing.T) {
	t.Run("Test documented scenario decodes field by field", func(t *testing.T) {
		state := Decode("?lang=zh&china=1&q=trade")
		assert.Equal(t, State{Lang: "zh", ChinaOnly: true, Keyword: "trade"}, state)
	})

	t.Run("Test empty and missing parameters decode to defaults", func(t *testing.T) {
		assert.Equal(t, Default(), Decode(""))
		assert.Equal(t, Default(), Decode("?"))
	})

	t.Run("Test malformed parameters fall back per field", func(t *testing.T) {
		state := Decode("lang=klingon&china=true&country=germany")
		assert.Equal(t, "en", state.Lang)
		assert.False(t, state.ChinaOnly)
		assert.Equal(t, "germany", state.Country)
	})

	t.Run("Test garbage query string decodes to defaults", func(t *testing.T) {
		assert.Equal(t, Default(), Decode("%zz%%%"))
	})
}

func TestRoundTrip(t *testing.T) {
	states := []State{
		Default(),
		Default().WithLang("zh"),
		Default().WithChinaOnly(true),
		Default().WithKeyword("  trade war  "),
		Default().WithCountry("china").WithTopic("economy"),
		Default().WithLang("zh").WithChinaOnly(true).WithKeyword("tariffs").WithCountry("united-states").WithTopic("trade"),
	}
	for _, state := range states {
		assert.Equal(t, state, Decode(Encode(state)))
	}
}

func TestStateActions(t *testing.T) {
	t.Run("Test keyword commit trims the draft", func(t *testing.T) {
		state := Default().WithKeyword("  hello  ")
		assert.Equal(t, "hello", state.Keyword)
	})

	t.Run("Test unknown language collapses to english", func(t *testing.T) {
		assert.Equal(t, "en", Default().WithLang("de").Lang)
	})

	t.Run("Test reset clears every field in one snapshot", func(t *testing.T) {
		state := Default().WithLang("zh").WithChinaOnly(true).WithKeyword("x").WithCountry("y").WithTopic("z")
		assert.False(t, state.IsDefault())
		assert.True(t, state.Reset().IsDefault())
	})

	t.Run("Test actions return new snapshots", func(t *testing.T) {
		base := Default()
		mutated := base.WithChinaOnly(true)
		assert.False(t, base.ChinaOnly)
		assert.True(t, mutated.ChinaOnly)
	})
}
