package wikibase

import (
	"encoding/json"
	"fmt"
)

// termPatch is one outbound labels, descriptions or aliases entry.
type termPatch struct {
	Language string  `json:"language"`
	Value    string  `json:"value,omitempty"`
	Remove   *string `json:"remove,omitempty"`
}

func removeMarker() *string {
	s := ""
	return &s
}

// TermMap holds the per-language labels or descriptions of an entity,
// keeping languages in server order with local additions at the end.
type TermMap struct {
	notify Listener
	order  []string
	terms  map[string]string
}

func newTermMap(l Listener) *TermMap {
	return &TermMap{notify: l, terms: make(map[string]string)}
}

// Get returns the term for lang.
func (m *TermMap) Get(lang string) (string, bool) {
	v, ok := m.terms[lang]
	return v, ok
}

// Set stores the term for lang, replacing any previous one.
func (m *TermMap) Set(lang, value string) {
	if _, ok := m.terms[lang]; !ok {
		m.order = append(m.order, lang)
	}
	m.terms[lang] = value
	m.notify.notify(lang)
}

// Delete removes the term for lang and schedules its removal on the server.
// Deleting an absent language is a no-op.
func (m *TermMap) Delete(lang string) {
	if _, ok := m.terms[lang]; !ok {
		return
	}
	delete(m.terms, lang)
	m.order = deleteString(m.order, lang)
	m.notify.notify(lang)
}

// Len returns the number of languages with a term.
func (m *TermMap) Len() int { return len(m.terms) }

// Languages returns the languages in order.
func (m *TermMap) Languages() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *TermMap) updateFromWire(raw json.RawMessage) error {
	m.order = nil
	m.terms = make(map[string]string)
	return orderedObject(raw, func(key string, value json.RawMessage) error {
		var term struct {
			Language string `json:"language"`
			Value    string `json:"value"`
		}
		if err := json.Unmarshal(value, &term); err != nil {
			return fmt.Errorf("decode term for %q: %w", key, err)
		}
		m.order = append(m.order, key)
		m.terms[key] = term.Value
		return nil
	})
}

// changes renders the dirty languages: a language with a term becomes a set
// entry, one without becomes a remove entry.
func (m *TermMap) changes(dirty changeSet) []termPatch {
	out := make([]termPatch, 0, len(dirty))
	for _, lang := range dirty.keys() {
		if v, ok := m.terms[lang]; ok {
			out = append(out, termPatch{Language: lang, Value: v})
		} else {
			out = append(out, termPatch{Language: lang, Remove: removeMarker()})
		}
	}
	return out
}

// AliasMap holds the per-language alias sets of an entity. Accessing a
// language creates its set, so callers can write
// e.Aliases.Get("de").Add("...") without checking first.
type AliasMap struct {
	notify Listener
	order  []string
	sets   map[string]*AliasSet
}

func newAliasMap(l Listener) *AliasMap {
	return &AliasMap{notify: l, sets: make(map[string]*AliasSet)}
}

// Get returns the alias set for lang, creating an empty one if needed.
func (m *AliasMap) Get(lang string) *AliasSet {
	if set, ok := m.sets[lang]; ok {
		return set
	}
	set := newAliasSet(m.notify.prefixed(lang))
	m.sets[lang] = set
	m.order = append(m.order, lang)
	return set
}

// Has reports whether lang has an alias set, without creating one.
func (m *AliasMap) Has(lang string) bool {
	_, ok := m.sets[lang]
	return ok
}

// Len returns the number of languages with an alias set, including empty
// ones.
func (m *AliasMap) Len() int { return len(m.sets) }

// Languages returns the languages in order.
func (m *AliasMap) Languages() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *AliasMap) updateFromWire(raw json.RawMessage) error {
	m.order = nil
	m.sets = make(map[string]*AliasSet)
	return orderedObject(raw, func(key string, value json.RawMessage) error {
		var terms []struct {
			Language string `json:"language"`
			Value    string `json:"value"`
		}
		if err := json.Unmarshal(value, &terms); err != nil {
			return fmt.Errorf("decode aliases for %q: %w", key, err)
		}
		set := newAliasSet(m.notify.prefixed(key))
		for _, term := range terms {
			set.put(term.Value)
		}
		m.sets[key] = set
		m.order = append(m.order, key)
		return nil
	})
}

// changes renders the dirty aliases: an alias still in its language's set
// becomes a set entry, one no longer present becomes a remove entry.
func (m *AliasMap) changes(dirty changeSet) []termPatch {
	var out []termPatch
	for _, lang := range dirty.keys() {
		set := m.sets[lang]
		for _, alias := range dirty.sub(lang).keys() {
			if set != nil && set.Contains(alias) {
				out = append(out, termPatch{Language: lang, Value: alias})
			} else {
				out = append(out, termPatch{Language: lang, Value: alias, Remove: removeMarker()})
			}
		}
	}
	return out
}

// AliasSet is the set of aliases for one language, in insertion order.
type AliasSet struct {
	notify  Listener
	order   []string
	present map[string]bool
}

func newAliasSet(l Listener) *AliasSet {
	return &AliasSet{notify: l, present: make(map[string]bool)}
}

// Add inserts alias. Adding a present alias still schedules an update.
func (s *AliasSet) Add(alias string) {
	s.put(alias)
	s.notify.notify(alias)
}

func (s *AliasSet) put(alias string) {
	if !s.present[alias] {
		s.present[alias] = true
		s.order = append(s.order, alias)
	}
}

// Remove deletes alias. Removing an absent alias still schedules a removal.
func (s *AliasSet) Remove(alias string) {
	if s.present[alias] {
		delete(s.present, alias)
		s.order = deleteString(s.order, alias)
	}
	s.notify.notify(alias)
}

// Contains reports whether alias is in the set.
func (s *AliasSet) Contains(alias string) bool { return s.present[alias] }

// Len returns the number of aliases.
func (s *AliasSet) Len() int { return len(s.present) }

// All returns the aliases in insertion order.
func (s *AliasSet) All() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func deleteString(in []string, s string) []string {
	for i, v := range in {
		if v == s {
			return append(in[:i], in[i+1:]...)
		}
	}
	return in
}
