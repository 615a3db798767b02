package wikibase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func renderTerms(t *testing.T, patches []termPatch) string {
	t.Helper()
	data, err := json.Marshal(patches)
	assert.NoError(t, err)
	return string(data)
}

func TestTermMapChanges(t *testing.T) {
	cs := changeSet{}
	m := newTermMap(Listener(cs.mark))
	assert.NoError(t, m.updateFromWire(json.RawMessage(
		`{"en":{"language":"en","value":"universe"},"de":{"language":"de","value":"Universum"}}`)))
	assert.Empty(t, cs.keys(), "server state is not a change")
	assert.Equal(t, []string{"en", "de"}, m.Languages())

	m.Set("fr", "univers")
	m.Delete("de")
	m.Delete("nv") // not present, must not schedule anything

	v, ok := m.Get("fr")
	assert.True(t, ok)
	assert.Equal(t, "univers", v)
	_, ok = m.Get("de")
	assert.False(t, ok)
	assert.Equal(t, 2, m.Len())

	assert.JSONEq(t,
		`[{"language":"de","remove":""},{"language":"fr","value":"univers"}]`,
		renderTerms(t, m.changes(cs)))
}

func TestTermMapSetThenDeleteRendersRemove(t *testing.T) {
	cs := changeSet{}
	m := newTermMap(Listener(cs.mark))
	m.Set("en", "universe")
	m.Delete("en")

	assert.JSONEq(t, `[{"language":"en","remove":""}]`, renderTerms(t, m.changes(cs)))
}

func TestTermMapNoOpUpdateStillRenders(t *testing.T) {
	cs := changeSet{}
	m := newTermMap(Listener(cs.mark))
	assert.NoError(t, m.updateFromWire(json.RawMessage(`{"en":{"language":"en","value":"universe"}}`)))

	m.Set("en", "universe")
	assert.JSONEq(t, `[{"language":"en","value":"universe"}]`, renderTerms(t, m.changes(cs)))
}

func TestAliasMapAutoVivifies(t *testing.T) {
	cs := changeSet{}
	m := newAliasMap(Listener(cs.mark))

	set := m.Get("de")
	assert.NotNil(t, set)
	assert.Equal(t, 0, set.Len())
	assert.True(t, m.Has("de"))
	assert.False(t, m.Has("en"))
	assert.Empty(t, cs.keys(), "access alone is not a change")
	assert.Same(t, set, m.Get("de"))

	set.Add("Weltall")
	assert.Equal(t, []string{"de"}, cs.keys())
	assert.Equal(t, []string{"Weltall"}, cs.sub("de").keys())
}

func TestAliasMapChanges(t *testing.T) {
	cs := changeSet{}
	m := newAliasMap(Listener(cs.mark))
	assert.NoError(t, m.updateFromWire(json.RawMessage(
		`{"de":[{"language":"de","value":"Weltall"},{"language":"de","value":"Kosmos"}]}`)))
	assert.Empty(t, cs.keys())
	assert.Equal(t, []string{"Weltall", "Kosmos"}, m.Get("de").All())

	m.Get("de").Add("Raum")
	m.Get("de").Remove("Weltall")
	m.Get("en").Add("cosmos")

	assert.JSONEq(t, `[
		{"language":"de","value":"Raum"},
		{"language":"de","value":"Weltall","remove":""},
		{"language":"en","value":"cosmos"}
	]`, renderTerms(t, m.changes(cs)))
}

func TestAliasSetRemoveAbsentSchedulesRemoval(t *testing.T) {
	cs := changeSet{}
	m := newAliasMap(Listener(cs.mark))
	m.Get("de").Remove("Weltall")

	assert.JSONEq(t, `[{"language":"de","value":"Weltall","remove":""}]`,
		renderTerms(t, m.changes(cs)))
}

func TestAliasSetAddTwiceKeepsOneEntry(t *testing.T) {
	cs := changeSet{}
	m := newAliasMap(Listener(cs.mark))
	set := m.Get("de")
	set.Add("Weltall")
	set.Add("Weltall")

	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Contains("Weltall"))
	assert.JSONEq(t, `[{"language":"de","value":"Weltall"}]`, renderTerms(t, m.changes(cs)))
}
