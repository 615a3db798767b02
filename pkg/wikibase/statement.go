package wikibase

import (
	"encoding/json"
	"fmt"
)

// Rank orders statements about the same property by precedence.
type Rank string

const (
	RankPreferred  Rank = "preferred"
	RankNormal     Rank = "normal"
	RankDeprecated Rank = "deprecated"
)

func rankFromWire(s string) (Rank, error) {
	switch r := Rank(s); r {
	case RankPreferred, RankNormal, RankDeprecated:
		return r, nil
	default:
		return "", fmt.Errorf("unknown rank %q", s)
	}
}

// Statement is one fact about an entity: a main snak, a rank, qualifiers
// narrowing the claim and references citing sources. A statement built
// locally has no id until the entity is saved; the server assigns one.
type Statement struct {
	id       string
	mainsnak Snak
	rank     Rank
	notify   Listener

	Qualifiers *SnakSet
	References *ReferenceList
}

// NewStatement builds an unsaved statement around mainsnak with RankNormal
// and empty qualifiers and references.
func NewStatement(mainsnak Snak) *Statement {
	st := &Statement{mainsnak: mainsnak, rank: RankNormal}
	site := mainsnak.P().Site
	st.Qualifiers = NewSnakSet(site)
	st.Qualifiers.attach(st.childListener("qualifiers"))
	st.References = newReferenceList(site)
	st.References.attach(st.childListener("references"))
	return st
}

// attach wires change notifications for the statement and everything below
// it.
func (st *Statement) attach(l Listener) {
	st.notify = l
}

// childListener forwards child notifications under seg. It reads the
// statement's listener at call time, so a later attach covers the children
// too.
func (st *Statement) childListener(seg string) Listener {
	return func(path ...string) {
		full := make([]string, 0, len(path)+1)
		full = append(full, seg)
		full = append(full, path...)
		st.notify.notify(full...)
	}
}

// ID returns the server-assigned statement id, or "" before the first save.
func (st *Statement) ID() string { return st.id }

// P returns the property of the main snak.
func (st *Statement) P() EntityID { return st.mainsnak.P() }

// Mainsnak returns the main snak.
func (st *Statement) Mainsnak() Snak { return st.mainsnak }

// SetMainsnak replaces the main snak.
func (st *Statement) SetMainsnak(s Snak) {
	st.mainsnak = s
	st.notify.notify("mainsnak")
}

// Value returns the main snak's value, or nil for a novalue or somevalue
// main snak.
func (st *Statement) Value() Value {
	if vs, ok := st.mainsnak.(ValueSnak); ok {
		return vs.Value
	}
	return nil
}

// Rank returns the statement's rank.
func (st *Statement) Rank() Rank { return st.rank }

// SetRank changes the statement's rank.
func (st *Statement) SetRank(r Rank) {
	st.rank = r
	st.notify.notify("rank")
}

type wireStatement struct {
	Type            string                `json:"type"`
	ID              string                `json:"id,omitempty"`
	Mainsnak        wireSnak              `json:"mainsnak"`
	Rank            string                `json:"rank"`
	Qualifiers      map[string][]wireSnak `json:"qualifiers"`
	QualifiersOrder []string              `json:"qualifiers-order"`
	References      []wireReference       `json:"references"`
}

type wireReference struct {
	Hash       string                `json:"hash,omitempty"`
	Snaks      map[string][]wireSnak `json:"snaks"`
	SnaksOrder []string              `json:"snaks-order"`
}

func (st *Statement) toWire() wireStatement {
	qualifiers, order := st.Qualifiers.toWire()
	out := wireStatement{
		Type:            "statement",
		ID:              st.id,
		Mainsnak:        st.mainsnak.toWire(),
		Rank:            string(st.rank),
		Qualifiers:      qualifiers,
		QualifiersOrder: order,
		References:      make([]wireReference, 0, st.References.Len()),
	}
	if out.QualifiersOrder == nil {
		out.QualifiersOrder = []string{}
	}
	for _, ref := range st.References.All() {
		out.References = append(out.References, ref.toWire())
	}
	return out
}

func statementFromWire(site string, raw json.RawMessage) (*Statement, error) {
	var env struct {
		Type            string            `json:"type"`
		ID              string            `json:"id"`
		Mainsnak        json.RawMessage   `json:"mainsnak"`
		Rank            string            `json:"rank"`
		Qualifiers      json.RawMessage   `json:"qualifiers"`
		QualifiersOrder []string          `json:"qualifiers-order"`
		References      []json.RawMessage `json:"references"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode statement: %w", err)
	}
	if env.Type != "statement" {
		return nil, fmt.Errorf("unexpected claim type %q", env.Type)
	}
	mainsnak, err := snakFromWire(site, env.Mainsnak)
	if err != nil {
		return nil, err
	}
	rank, err := rankFromWire(env.Rank)
	if err != nil {
		return nil, err
	}
	st := NewStatement(mainsnak)
	st.id = env.ID
	st.rank = rank
	if err := st.Qualifiers.updateFromWire(env.Qualifiers, env.QualifiersOrder); err != nil {
		return nil, err
	}
	if err := st.References.updateFromWire(env.References); err != nil {
		return nil, err
	}
	return st, nil
}

// Reference is one source record of a statement: a snak set plus the hash
// the server derives from it.
type Reference struct {
	hash  string
	Snaks *SnakSet
}

// NewReference returns an empty reference record for snaks on site.
func NewReference(site string) *Reference {
	return &Reference{Snaks: NewSnakSet(site)}
}

// Hash returns the server-assigned record hash, or "" before the first
// save.
func (r *Reference) Hash() string { return r.hash }

func (r *Reference) toWire() wireReference {
	snaks, order := r.Snaks.toWire()
	out := wireReference{Hash: r.hash, Snaks: snaks, SnaksOrder: order}
	if out.SnaksOrder == nil {
		out.SnaksOrder = []string{}
	}
	return out
}

// ReferenceList is the ordered reference records of a statement. Unlike
// claims and qualifiers it enforces no uniqueness: two records citing the
// same source stay separate.
type ReferenceList struct {
	site   string
	notify Listener
	refs   []*Reference
}

func newReferenceList(site string) *ReferenceList {
	return &ReferenceList{site: site}
}

func (l *ReferenceList) attach(listener Listener) {
	l.notify = listener
}

// Len returns the number of reference records.
func (l *ReferenceList) Len() int { return len(l.refs) }

// At returns the record at index i.
func (l *ReferenceList) At(i int) *Reference { return l.refs[i] }

// All returns the records in order.
func (l *ReferenceList) All() []*Reference {
	out := make([]*Reference, len(l.refs))
	copy(out, l.refs)
	return out
}

// Append adds a record at the end.
func (l *ReferenceList) Append(r *Reference) {
	l.adopt(r)
	l.refs = append(l.refs, r)
	l.notify.notify()
}

// Insert adds a record at index i, shifting later records up.
func (l *ReferenceList) Insert(i int, r *Reference) {
	l.adopt(r)
	l.refs = append(l.refs, nil)
	copy(l.refs[i+1:], l.refs[i:])
	l.refs[i] = r
	l.notify.notify()
}

// RemoveAt deletes the record at index i.
func (l *ReferenceList) RemoveAt(i int) {
	l.refs = append(l.refs[:i], l.refs[i+1:]...)
	l.notify.notify()
}

// adopt wires a record's snaks into this list's notifications. The closure
// reads l.notify at call time so reattaching the list covers old records.
func (l *ReferenceList) adopt(r *Reference) {
	r.Snaks.attach(func(path ...string) {
		l.notify.notify(path...)
	})
}

// updateFromWire replaces the list from the wire records. No change
// notifications fire.
func (l *ReferenceList) updateFromWire(raws []json.RawMessage) error {
	l.refs = nil
	for _, raw := range raws {
		var env struct {
			Hash       string          `json:"hash"`
			Snaks      json.RawMessage `json:"snaks"`
			SnaksOrder []string        `json:"snaks-order"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode reference: %w", err)
		}
		ref := NewReference(l.site)
		ref.hash = env.Hash
		if err := ref.Snaks.updateFromWire(env.Snaks, env.SnaksOrder); err != nil {
			return err
		}
		l.adopt(ref)
		l.refs = append(l.refs, ref)
	}
	return nil
}
