package wikibase

import (
	"encoding/json"
	"fmt"
)

// Sitelink connects an item to a page on a client wiki, optionally carrying
// badges such as "featured article".
type Sitelink struct {
	Site   string
	Title  string
	Badges []EntityID
}

// SitelinkMap holds the sitelinks of an item, keyed by client wiki id like
// "enwiki".
type SitelinkMap struct {
	site   string
	notify Listener
	order  []string
	links  map[string]Sitelink
}

func newSitelinkMap(site string, l Listener) *SitelinkMap {
	return &SitelinkMap{site: site, notify: l, links: make(map[string]Sitelink)}
}

// Get returns the sitelink for wiki.
func (m *SitelinkMap) Get(wiki string) (Sitelink, bool) {
	link, ok := m.links[wiki]
	return link, ok
}

// Set stores link under link.Site, replacing any previous one.
func (m *SitelinkMap) Set(link Sitelink) {
	if _, ok := m.links[link.Site]; !ok {
		m.order = append(m.order, link.Site)
	}
	m.links[link.Site] = link
	m.notify.notify(link.Site)
}

// Delete removes the sitelink for wiki and schedules its removal on the
// server. Deleting an absent wiki is a no-op.
func (m *SitelinkMap) Delete(wiki string) {
	if _, ok := m.links[wiki]; !ok {
		return
	}
	delete(m.links, wiki)
	m.order = deleteString(m.order, wiki)
	m.notify.notify(wiki)
}

// Len returns the number of sitelinks.
func (m *SitelinkMap) Len() int { return len(m.links) }

// Wikis returns the client wiki ids in order.
func (m *SitelinkMap) Wikis() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *SitelinkMap) updateFromWire(raw json.RawMessage) error {
	m.order = nil
	m.links = make(map[string]Sitelink)
	return orderedObject(raw, func(key string, value json.RawMessage) error {
		var env struct {
			Site   string   `json:"site"`
			Title  string   `json:"title"`
			Badges []string `json:"badges"`
		}
		if err := json.Unmarshal(value, &env); err != nil {
			return fmt.Errorf("decode sitelink for %q: %w", key, err)
		}
		link := Sitelink{Site: key, Title: env.Title}
		for _, badge := range env.Badges {
			id, err := NewItemID(m.site, badge)
			if err != nil {
				return fmt.Errorf("sitelink %s: badge: %w", key, err)
			}
			link.Badges = append(link.Badges, id)
		}
		m.order = append(m.order, key)
		m.links[key] = link
		return nil
	})
}

// sitelinkPatch is one outbound sitelink replacement.
type sitelinkPatch struct {
	Site   string   `json:"site"`
	Title  string   `json:"title"`
	Badges []string `json:"badges"`
}

// sitelinkRemove schedules deletion of a sitelink.
type sitelinkRemove struct {
	Site   string `json:"site"`
	Remove string `json:"remove"`
}

// changes renders the dirty wikis: a wiki with a link becomes a replacement
// entry, one without becomes a remove entry.
func (m *SitelinkMap) changes(dirty changeSet) []any {
	out := make([]any, 0, len(dirty))
	for _, wiki := range dirty.keys() {
		link, ok := m.links[wiki]
		if !ok {
			out = append(out, sitelinkRemove{Site: wiki})
			continue
		}
		badges := make([]string, 0, len(link.Badges))
		for _, badge := range link.Badges {
			badges = append(badges, badge.ID)
		}
		out = append(out, sitelinkPatch{Site: wiki, Title: link.Title, Badges: badges})
	}
	return out
}
