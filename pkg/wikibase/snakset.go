package wikibase

import (
	"encoding/json"
	"fmt"
)

// SnakSet groups snaks by property. Properties stay in first-insertion
// order and snaks keep insertion order within their property; adding a snak
// that is already present (by Equal) is a no-op. Qualifiers and reference
// records are SnakSets.
type SnakSet struct {
	site   string
	notify Listener
	order  []EntityID
	groups map[EntityID][]Snak
}

// NewSnakSet returns an empty set for snaks on site.
func NewSnakSet(site string) *SnakSet {
	return &SnakSet{site: site, groups: make(map[EntityID][]Snak)}
}

// attach wires change notifications. Containers notify without a path; the
// listener chain supplies the position in the entity.
func (s *SnakSet) attach(l Listener) {
	s.notify = l
}

// Add inserts snak unless an equal one is already present under the same
// property.
func (s *SnakSet) Add(snak Snak) {
	p := snak.P()
	group, known := s.groups[p]
	for _, existing := range group {
		if existing.Equal(snak) {
			return
		}
	}
	if !known {
		s.order = append(s.order, p)
	}
	s.groups[p] = append(group, snak)
	s.notify.notify()
}

// Remove deletes the snak equal to snak and reports whether it was present.
func (s *SnakSet) Remove(snak Snak) bool {
	p := snak.P()
	group := s.groups[p]
	for i, existing := range group {
		if existing.Equal(snak) {
			s.groups[p] = append(group[:i], group[i+1:]...)
			s.notify.notify()
			return true
		}
	}
	return false
}

// Contains reports whether a snak equal to snak is present.
func (s *SnakSet) Contains(snak Snak) bool {
	for _, existing := range s.groups[snak.P()] {
		if existing.Equal(snak) {
			return true
		}
	}
	return false
}

// Len returns the number of snaks across all properties.
func (s *SnakSet) Len() int {
	n := 0
	for _, group := range s.groups {
		n += len(group)
	}
	return n
}

// Properties returns the property ids in first-insertion order. Properties
// whose snaks were all removed are kept.
func (s *SnakSet) Properties() []EntityID {
	out := make([]EntityID, len(s.order))
	copy(out, s.order)
	return out
}

// All returns the snaks grouped by property, in property order.
func (s *SnakSet) All() []Snak {
	out := make([]Snak, 0, s.Len())
	for _, p := range s.order {
		out = append(out, s.groups[p]...)
	}
	return out
}

// ByProperty returns a live view of the snaks under p. The view reads
// through to the set, so later additions and removals show up in it.
func (s *SnakSet) ByProperty(p EntityID) SnakView {
	return SnakView{set: s, p: p}
}

// SnakView is a read-only window onto the snaks of one property.
type SnakView struct {
	set *SnakSet
	p   EntityID
}

// Len returns the number of snaks currently under the property.
func (v SnakView) Len() int {
	return len(v.set.groups[v.p])
}

// All returns the current snaks under the property.
func (v SnakView) All() []Snak {
	group := v.set.groups[v.p]
	out := make([]Snak, len(group))
	copy(out, group)
	return out
}

// Contains reports whether a snak equal to snak is under the property.
func (v SnakView) Contains(snak Snak) bool {
	for _, existing := range v.set.groups[v.p] {
		if existing.Equal(snak) {
			return true
		}
	}
	return false
}

// updateFromWire replaces the set from a grouped snaks object, following
// order when the server sent one and document order otherwise. No change
// notifications fire: server state is not a local change.
func (s *SnakSet) updateFromWire(raw json.RawMessage, order []string) error {
	s.order = nil
	s.groups = make(map[EntityID][]Snak)
	groups := make(map[string][]json.RawMessage)
	var seen []string
	err := orderedObject(raw, func(key string, value json.RawMessage) error {
		var snaks []json.RawMessage
		if err := json.Unmarshal(value, &snaks); err != nil {
			return fmt.Errorf("decode snaks for %q: %w", key, err)
		}
		groups[key] = snaks
		seen = append(seen, key)
		return nil
	})
	if err != nil {
		return err
	}
	if len(order) == 0 {
		order = seen
	} else {
		// Properties the order array misses still come through, in
		// document order.
		listed := make(map[string]bool, len(order))
		for _, key := range order {
			listed[key] = true
		}
		for _, key := range seen {
			if !listed[key] {
				order = append(order, key)
			}
		}
	}
	for _, key := range order {
		for _, rawSnak := range groups[key] {
			snak, err := snakFromWire(s.site, rawSnak)
			if err != nil {
				return err
			}
			p := snak.P()
			if _, known := s.groups[p]; !known {
				s.order = append(s.order, p)
			}
			s.groups[p] = append(s.groups[p], snak)
		}
	}
	return nil
}

// toWire renders the grouped snaks object plus the property order array.
func (s *SnakSet) toWire() (map[string][]wireSnak, []string) {
	object := make(map[string][]wireSnak, len(s.order))
	order := make([]string, 0, len(s.order))
	for _, p := range s.order {
		group := s.groups[p]
		if len(group) == 0 {
			continue
		}
		snaks := make([]wireSnak, 0, len(group))
		for _, snak := range group {
			snaks = append(snaks, snak.toWire())
		}
		object[p.ID] = snaks
		order = append(order, p.ID)
	}
	return object, order
}
