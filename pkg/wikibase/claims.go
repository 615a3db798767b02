package wikibase

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Claims is the statement container of an entity, grouped by main snak
// property. Statements are tracked by identity: adding the same *Statement
// twice is a no-op, but two separately built statements with equal content
// both go in.
type Claims struct {
	site   string
	notify Listener
	order  []EntityID
	groups map[EntityID][]*Statement
}

func newClaims(site string, l Listener) *Claims {
	return &Claims{site: site, notify: l, groups: make(map[EntityID][]*Statement)}
}

// Add inserts st and starts tracking changes to it. A statement without an
// id is recorded under the synthetic key "new" until the next save assigns
// one.
func (c *Claims) Add(st *Statement) {
	p := st.P()
	group, known := c.groups[p]
	for _, existing := range group {
		if existing == st {
			return
		}
	}
	if !known {
		c.order = append(c.order, p)
	}
	c.groups[p] = append(group, st)
	key := st.id
	if key == "" {
		key = "new"
	}
	st.attach(c.childListener(key))
	c.notify.notify(key)
}

// Remove deletes st and reports whether it was present. Removing a saved
// statement schedules its deletion; removing one that was never saved just
// forgets it.
func (c *Claims) Remove(st *Statement) bool {
	p := st.P()
	group := c.groups[p]
	for i, existing := range group {
		if existing == st {
			c.groups[p] = append(group[:i], group[i+1:]...)
			if st.id != "" {
				c.notify.notify(st.id)
			}
			return true
		}
	}
	return false
}

// Contains reports whether st is in the container.
func (c *Claims) Contains(st *Statement) bool {
	for _, existing := range c.groups[st.P()] {
		if existing == st {
			return true
		}
	}
	return false
}

// Len returns the number of statements across all properties.
func (c *Claims) Len() int {
	n := 0
	for _, group := range c.groups {
		n += len(group)
	}
	return n
}

// Properties returns the property ids in first-insertion order.
func (c *Claims) Properties() []EntityID {
	out := make([]EntityID, len(c.order))
	copy(out, c.order)
	return out
}

// All returns the statements grouped by property, in property order.
func (c *Claims) All() []*Statement {
	out := make([]*Statement, 0, c.Len())
	for _, p := range c.order {
		out = append(out, c.groups[p]...)
	}
	return out
}

// ByProperty returns a live view of the statements whose main snak asserts
// p.
func (c *Claims) ByProperty(p EntityID) StatementView {
	return StatementView{claims: c, p: p}
}

// StatementView is a read-only window onto the statements of one property.
type StatementView struct {
	claims *Claims
	p      EntityID
}

// Len returns the number of statements currently under the property.
func (v StatementView) Len() int {
	return len(v.claims.groups[v.p])
}

// All returns the current statements under the property.
func (v StatementView) All() []*Statement {
	group := v.claims.groups[v.p]
	out := make([]*Statement, len(group))
	copy(out, group)
	return out
}

// First returns the first statement under the property, or nil.
func (v StatementView) First() *Statement {
	group := v.claims.groups[v.p]
	if len(group) == 0 {
		return nil
	}
	return group[0]
}

func (c *Claims) childListener(key string) Listener {
	return func(path ...string) {
		full := make([]string, 0, len(path)+1)
		full = append(full, key)
		full = append(full, path...)
		c.notify.notify(full...)
	}
}

// updateFromWire replaces all statements from the wire claims object. No
// change notifications fire.
func (c *Claims) updateFromWire(raw json.RawMessage) error {
	c.order = nil
	c.groups = make(map[EntityID][]*Statement)
	return orderedObject(raw, func(key string, value json.RawMessage) error {
		var raws []json.RawMessage
		if err := json.Unmarshal(value, &raws); err != nil {
			return fmt.Errorf("decode claims for %q: %w", key, err)
		}
		for _, rawStatement := range raws {
			st, err := statementFromWire(c.site, rawStatement)
			if err != nil {
				return err
			}
			p := st.P()
			if _, known := c.groups[p]; !known {
				c.order = append(c.order, p)
			}
			c.groups[p] = append(c.groups[p], st)
			st.attach(c.childListener(st.id))
		}
		return nil
	})
}

// claimRemove schedules deletion of a saved statement.
type claimRemove struct {
	ID     string `json:"id"`
	Remove string `json:"remove"`
}

// changes renders the dirty statements: statements without an id are always
// sent whole, dirty statements still present are sent whole, and dirty ids
// with no surviving statement become remove markers.
func (c *Claims) changes(dirty changeSet) []any {
	pending := make(map[string]bool, len(dirty))
	for id := range dirty {
		if id != "new" {
			pending[id] = true
		}
	}
	out := make([]any, 0, len(dirty))
	for _, st := range c.All() {
		if st.id == "" {
			out = append(out, st.toWire())
			continue
		}
		if pending[st.id] {
			delete(pending, st.id)
			out = append(out, st.toWire())
		}
	}
	removed := make([]string, 0, len(pending))
	for id := range pending {
		removed = append(removed, id)
	}
	sort.Strings(removed)
	for _, id := range removed {
		out = append(out, claimRemove{ID: id})
	}
	return out
}
