package wikibase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStatementDefaults(t *testing.T) {
	st := NewStatement(ValueSnak{Property: propID(t, "P31"), Value: itemID(t, "Q5")})
	assert.Equal(t, "", st.ID())
	assert.Equal(t, RankNormal, st.Rank())
	assert.Equal(t, "P31", st.P().ID)
	assert.True(t, st.Value().Equal(itemID(t, "Q5")))
	assert.Equal(t, 0, st.Qualifiers.Len())
	assert.Equal(t, 0, st.References.Len())
}

func TestStatementValueIsNilForNoValue(t *testing.T) {
	st := NewStatement(NoValueSnak{Property: propID(t, "P570")})
	assert.Nil(t, st.Value())
}

func TestStatementNotifications(t *testing.T) {
	st := NewStatement(ValueSnak{Property: propID(t, "P31"), Value: itemID(t, "Q5")})
	rec := &pathRecorder{}
	st.attach(rec.listener())

	st.SetRank(RankPreferred)
	st.SetMainsnak(ValueSnak{Property: propID(t, "P31"), Value: itemID(t, "Q523")})
	st.Qualifiers.Add(NoValueSnak{Property: propID(t, "P459")})

	ref := NewReference("www.wikidata.org")
	st.References.Append(ref)
	ref.Snaks.Add(NoValueSnak{Property: propID(t, "P248")})

	assert.Equal(t, [][]string{
		{"rank"},
		{"mainsnak"},
		{"qualifiers"},
		{"references"},
		{"references"},
	}, rec.paths)
	assert.Equal(t, RankPreferred, st.Rank())
	assert.True(t, st.Value().Equal(itemID(t, "Q523")))
}

func TestStatementLateAttachCoversChildren(t *testing.T) {
	// Containers built before the statement is added to an entity must
	// still report changes made afterwards.
	st := NewStatement(ValueSnak{Property: propID(t, "P31"), Value: itemID(t, "Q5")})
	ref := NewReference("www.wikidata.org")
	st.References.Append(ref)

	rec := &pathRecorder{}
	st.attach(rec.listener())
	ref.Snaks.Add(NoValueSnak{Property: propID(t, "P248")})

	assert.Equal(t, [][]string{{"references"}}, rec.paths)
}

func TestStatementWire(t *testing.T) {
	st := NewStatement(ValueSnak{Property: propID(t, "P31"), Value: itemID(t, "Q5")})
	st.Qualifiers.Add(ValueSnak{Property: propID(t, "P459"), Value: itemID(t, "Q15605")})
	st.Qualifiers.Add(NoValueSnak{Property: propID(t, "P31")})
	ref := NewReference("www.wikidata.org")
	ref.Snaks.Add(ValueSnak{Property: propID(t, "P248"), Value: itemID(t, "Q36578")})
	st.References.Append(ref)

	data, err := json.Marshal(st.toWire())
	assert.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "statement",
		"rank": "normal",
		"mainsnak": {"snaktype":"value","property":"P31","datavalue":{"type":"wikibase-entityid","value":{"id":"Q5"}}},
		"qualifiers": {
			"P459": [{"snaktype":"value","property":"P459","datavalue":{"type":"wikibase-entityid","value":{"id":"Q15605"}}}],
			"P31": [{"snaktype":"novalue","property":"P31"}]
		},
		"qualifiers-order": ["P459","P31"],
		"references": [{
			"snaks": {"P248": [{"snaktype":"value","property":"P248","datavalue":{"type":"wikibase-entityid","value":{"id":"Q36578"}}}]},
			"snaks-order": ["P248"]
		}]
	}`, string(data))
}

func TestStatementWireOmitsEmptyContainers(t *testing.T) {
	st := NewStatement(NoValueSnak{Property: propID(t, "P570")})
	data, err := json.Marshal(st.toWire())
	assert.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "statement",
		"rank": "normal",
		"mainsnak": {"snaktype":"novalue","property":"P570"},
		"qualifiers": {},
		"qualifiers-order": [],
		"references": []
	}`, string(data))
}

func TestStatementFromWire(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "statement",
		"id": "Q1$f02b42fc-48ad-128e-e091-a3f4110c62fb",
		"rank": "preferred",
		"mainsnak": {"snaktype":"value","property":"P31","datavalue":{"type":"wikibase-entityid","value":{"id":"Q5"}}},
		"qualifiers": {"P459": [{"snaktype":"novalue","property":"P459"}]},
		"qualifiers-order": ["P459"],
		"references": [{
			"hash": "fa278ebfc458360e5aed63d5058cca83c46134f1",
			"snaks": {"P248": [{"snaktype":"novalue","property":"P248"}]},
			"snaks-order": ["P248"]
		}]
	}`)

	st, err := statementFromWire("www.wikidata.org", raw)
	assert.NoError(t, err)
	assert.Equal(t, "Q1$f02b42fc-48ad-128e-e091-a3f4110c62fb", st.ID())
	assert.Equal(t, RankPreferred, st.Rank())
	assert.Equal(t, 1, st.Qualifiers.Len())
	assert.Equal(t, 1, st.References.Len())
	assert.Equal(t, "fa278ebfc458360e5aed63d5058cca83c46134f1", st.References.At(0).Hash())
	assert.True(t, st.References.At(0).Snaks.Contains(NoValueSnak{Property: propID(t, "P248")}))
}

func TestStatementFromWireErrors(t *testing.T) {
	_, err := statementFromWire("www.wikidata.org", json.RawMessage(`{"type":"claim","mainsnak":{"snaktype":"novalue","property":"P31"},"rank":"normal"}`))
	assert.Error(t, err)

	_, err = statementFromWire("www.wikidata.org", json.RawMessage(`{"type":"statement","mainsnak":{"snaktype":"novalue","property":"P31"},"rank":"usually"}`))
	assert.Error(t, err)

	_, err = statementFromWire("www.wikidata.org", json.RawMessage(`{"type":"statement","mainsnak":{"snaktype":"woo","property":"P31"},"rank":"normal"}`))
	assert.ErrorIs(t, err, ErrMalformedSnak)
}

func TestReferenceListKeepsDuplicates(t *testing.T) {
	st := NewStatement(NoValueSnak{Property: propID(t, "P31")})
	first := NewReference("www.wikidata.org")
	first.Snaks.Add(NoValueSnak{Property: propID(t, "P248")})
	second := NewReference("www.wikidata.org")
	second.Snaks.Add(NoValueSnak{Property: propID(t, "P248")})

	st.References.Append(first)
	st.References.Append(second)
	assert.Equal(t, 2, st.References.Len(), "references do not deduplicate")

	third := NewReference("www.wikidata.org")
	st.References.Insert(0, third)
	assert.Same(t, third, st.References.At(0))
	assert.Same(t, first, st.References.At(1))

	st.References.RemoveAt(0)
	assert.Same(t, first, st.References.At(0))
	assert.Equal(t, 2, st.References.Len())
}
