package wikibase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func propID(t *testing.T, id string) EntityID {
	t.Helper()
	p, err := NewPropertyID("www.wikidata.org", id)
	assert.NoError(t, err)
	return p
}

func itemID(t *testing.T, id string) EntityID {
	t.Helper()
	q, err := NewItemID("www.wikidata.org", id)
	assert.NoError(t, err)
	return q
}

func TestSnakSerialization(t *testing.T) {
	p := propID(t, "P31")

	tests := []struct {
		name string
		snak Snak
		want string
	}{
		{
			name: "value snak",
			snak: ValueSnak{Property: p, Value: itemID(t, "Q5")},
			want: `{"snaktype":"value","property":"P31","datavalue":{"type":"wikibase-entityid","value":{"id":"Q5"}}}`,
		},
		{
			name: "novalue snak",
			snak: NoValueSnak{Property: p},
			want: `{"snaktype":"novalue","property":"P31"}`,
		},
		{
			name: "somevalue snak",
			snak: SomeValueSnak{Property: p},
			want: `{"snaktype":"somevalue","property":"P31"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.snak.toWire())
			assert.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestSnakParsing(t *testing.T) {
	raw := `{"snaktype":"value","property":"P31","datavalue":{"type":"wikibase-entityid","value":{"id":"Q5"}},"hash":"deadbeef"}`
	snak, err := snakFromWire("www.wikidata.org", json.RawMessage(raw))
	assert.NoError(t, err)
	vs, ok := snak.(ValueSnak)
	assert.True(t, ok)
	assert.Equal(t, "P31", vs.P().ID)
	assert.True(t, vs.Value.Equal(EntityID{Site: "www.wikidata.org", ID: "Q5"}))

	snak, err = snakFromWire("www.wikidata.org", json.RawMessage(`{"snaktype":"novalue","property":"P570"}`))
	assert.NoError(t, err)
	_, ok = snak.(NoValueSnak)
	assert.True(t, ok)

	snak, err = snakFromWire("www.wikidata.org", json.RawMessage(`{"snaktype":"somevalue","property":"P570"}`))
	assert.NoError(t, err)
	_, ok = snak.(SomeValueSnak)
	assert.True(t, ok)
}

func TestSnakParsingErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "unknown snaktype", raw: `{"snaktype":"maybe","property":"P31"}`},
		{name: "item as property", raw: `{"snaktype":"novalue","property":"Q31"}`},
		{name: "missing property", raw: `{"snaktype":"novalue"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := snakFromWire("www.wikidata.org", json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, ErrMalformedSnak)
		})
	}
}

func TestSnakEqual(t *testing.T) {
	p31 := propID(t, "P31")
	p21 := propID(t, "P21")
	q5 := itemID(t, "Q5")

	a := ValueSnak{Property: p31, Value: q5}
	assert.True(t, a.Equal(ValueSnak{Property: p31, Value: q5}))
	assert.False(t, a.Equal(ValueSnak{Property: p21, Value: q5}))
	assert.False(t, a.Equal(ValueSnak{Property: p31, Value: String("human")}))
	assert.False(t, a.Equal(NoValueSnak{Property: p31}))
	assert.True(t, NoValueSnak{Property: p31}.Equal(NoValueSnak{Property: p31}))
	assert.False(t, NoValueSnak{Property: p31}.Equal(SomeValueSnak{Property: p31}))
}

func TestSnakConstructorsRejectItemIDs(t *testing.T) {
	q5 := itemID(t, "Q5")
	_, err := NewValueSnak(q5, String("nope"))
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = NewNoValueSnak(q5)
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = NewSomeValueSnak(q5)
	assert.ErrorIs(t, err, ErrInvalidID)

	snak, err := NewValueSnak(propID(t, "P31"), q5)
	assert.NoError(t, err)
	assert.Equal(t, "P31", snak.P().ID)
}
