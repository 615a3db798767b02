// Package wikibase is a client-side model of Wikibase entities. It tracks
// local changes against the last-fetched server state and turns them into
// the minimal wbeditentity payload, so a caller can mutate labels, aliases,
// statements and sitelinks naturally and save once.
//
// The package does no HTTP itself: anything that talks to the network goes
// through the Caller interface, implemented by mwapi.Client.
package wikibase

import (
	"context"
	"encoding/json"
	"fmt"
)

// Kind distinguishes items from properties.
type Kind string

const (
	KindItem     Kind = "item"
	KindProperty Kind = "property"
)

// Caller is the slice of the MediaWiki action API the entity model needs.
type Caller interface {
	// Call performs one API action and returns the raw response body.
	Call(ctx context.Context, action string, params map[string]any) (json.RawMessage, error)
	// CSRFToken returns the edit token for the connected user.
	CSRFToken(ctx context.Context) (string, error)
	// Site identifies the Wikibase instance, e.g. "www.wikidata.org".
	Site() string
	// Bot reports whether edits should carry the bot flag.
	Bot() bool
}

// Entity is an item or property on a Wikibase instance, together with any
// unsaved local changes. The zero value is not usable; build entities with
// NewItem, NewProperty, LoadItem, LoadProperty or EntityFromJSON.
//
// Entities are not safe for concurrent use.
type Entity struct {
	api      Caller
	kind     Kind
	id       string
	datatype string

	Labels       *TermMap
	Descriptions *TermMap
	Aliases      *AliasMap
	Claims       *Claims
	// Sitelinks is nil for properties.
	Sitelinks *SitelinkMap

	changes  changeSet
	snapshot json.RawMessage
}

func newEntity(api Caller, kind Kind, id string) *Entity {
	e := &Entity{api: api, kind: kind, id: id, changes: changeSet{}}
	e.Labels = newTermMap(e.part("labels"))
	e.Descriptions = newTermMap(e.part("descriptions"))
	e.Aliases = newAliasMap(e.part("aliases"))
	e.Claims = newClaims(api.Site(), e.part("claims"))
	if kind == KindItem {
		e.Sitelinks = newSitelinkMap(api.Site(), e.part("sitelinks"))
	}
	return e
}

// part returns the listener recording changes under a top-level key.
func (e *Entity) part(key string) Listener {
	return func(path ...string) {
		full := make([]string, 0, len(path)+1)
		full = append(full, key)
		full = append(full, path...)
		e.changes.mark(full...)
	}
}

// NewItem returns an item bound to id, without fetching it. An empty id
// makes a fresh item that the first Save creates on the server.
func NewItem(api Caller, id string) (*Entity, error) {
	if id != "" && !itemIDPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: %q is not an item id", ErrInvalidID, id)
	}
	return newEntity(api, KindItem, id), nil
}

// NewProperty returns a property bound to id, without fetching it. An empty
// id makes a fresh property that the first Save creates on the server.
func NewProperty(api Caller, id string) (*Entity, error) {
	if id != "" && !propertyIDPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: %q is not a property id", ErrInvalidID, id)
	}
	return newEntity(api, KindProperty, id), nil
}

// LoadItem fetches the item id.
func LoadItem(ctx context.Context, api Caller, id string) (*Entity, error) {
	e, err := NewItem(api, id)
	if err != nil {
		return nil, err
	}
	if err := e.Fetch(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// LoadProperty fetches the property id.
func LoadProperty(ctx context.Context, api Caller, id string) (*Entity, error) {
	e, err := NewProperty(api, id)
	if err != nil {
		return nil, err
	}
	if err := e.Fetch(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Load fetches the item or property id, picking the kind from the id
// prefix.
func Load(ctx context.Context, api Caller, id string) (*Entity, error) {
	switch {
	case itemIDPattern.MatchString(id):
		return LoadItem(ctx, api, id)
	case propertyIDPattern.MatchString(id):
		return LoadProperty(ctx, api, id)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
}

// EntityFromJSON builds an entity from one wbgetentities record, for
// callers that batch their own fetches. The entity is bound to api for
// later saves.
func EntityFromJSON(api Caller, data json.RawMessage) (*Entity, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	if _, missing := probe["missing"]; missing {
		var env struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(data, &env)
		return nil, fmt.Errorf("%w: %s", ErrEntityMissing, env.ID)
	}
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	var kind Kind
	switch env.Type {
	case "item":
		kind = KindItem
	case "property":
		kind = KindProperty
	default:
		return nil, fmt.Errorf("unknown entity type %q", env.Type)
	}
	e := newEntity(api, kind, "")
	if err := e.applyJSON(data); err != nil {
		return nil, err
	}
	return e, nil
}

// ID returns the entity id, or "" before a fresh entity's first save.
func (e *Entity) ID() string { return e.id }

// Kind returns whether the entity is an item or a property.
func (e *Entity) Kind() Kind { return e.kind }

// Site returns the Wikibase instance the entity lives on.
func (e *Entity) Site() string { return e.api.Site() }

// Datatype returns a property's value datatype, e.g. "wikibase-item". It is
// empty for items and for unfetched properties.
func (e *Entity) Datatype() string { return e.datatype }

// Dirty reports whether the entity has unsaved changes.
func (e *Entity) Dirty() bool { return len(e.changes) > 0 }

// Fetch replaces all local state with the entity's current server state,
// discarding unsaved changes.
func (e *Entity) Fetch(ctx context.Context) error {
	if e.id == "" {
		return fmt.Errorf("%w: entity has no id yet", ErrInvalidID)
	}
	raw, err := e.api.Call(ctx, "wbgetentities", map[string]any{"ids": e.id})
	if err != nil {
		return err
	}
	var resp struct {
		Entities map[string]json.RawMessage `json:"entities"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode entities: %w", err)
	}
	data, ok := resp.Entities[e.id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityMissing, e.id)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("decode entity %s: %w", e.id, err)
	}
	if _, missing := probe["missing"]; missing {
		return fmt.Errorf("%w: %s", ErrEntityMissing, e.id)
	}
	return e.applyJSON(data)
}

// applyJSON replaces all parts from a server entity payload and clears the
// change markers: server state always wins over local edits.
func (e *Entity) applyJSON(data json.RawMessage) error {
	var env struct {
		ID           string          `json:"id"`
		Datatype     string          `json:"datatype"`
		Labels       json.RawMessage `json:"labels"`
		Descriptions json.RawMessage `json:"descriptions"`
		Aliases      json.RawMessage `json:"aliases"`
		Claims       json.RawMessage `json:"claims"`
		Sitelinks    json.RawMessage `json:"sitelinks"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode entity: %w", err)
	}
	if err := e.Labels.updateFromWire(env.Labels); err != nil {
		return err
	}
	if err := e.Descriptions.updateFromWire(env.Descriptions); err != nil {
		return err
	}
	if err := e.Aliases.updateFromWire(env.Aliases); err != nil {
		return err
	}
	if err := e.Claims.updateFromWire(env.Claims); err != nil {
		return err
	}
	if e.Sitelinks != nil {
		if err := e.Sitelinks.updateFromWire(env.Sitelinks); err != nil {
			return err
		}
	}
	if env.ID != "" {
		e.id = env.ID
	}
	e.datatype = env.Datatype
	e.snapshot = append(json.RawMessage(nil), data...)
	e.changes = changeSet{}
	return nil
}

// Save sends the unsaved changes as one wbeditentity call and replaces
// local state with the entity the server returns. A fresh entity is created
// and adopts its server-assigned id. On error the local changes stay
// pending, so a retried Save sends them again.
func (e *Entity) Save(ctx context.Context, summary string) error {
	patch := make(map[string]any, len(e.changes))
	for _, key := range e.changes.keys() {
		dirty := e.changes.sub(key)
		switch key {
		case "labels":
			patch[key] = e.Labels.changes(dirty)
		case "descriptions":
			patch[key] = e.Descriptions.changes(dirty)
		case "aliases":
			patch[key] = e.Aliases.changes(dirty)
		case "claims":
			patch[key] = e.Claims.changes(dirty)
		case "sitelinks":
			patch[key] = e.Sitelinks.changes(dirty)
		}
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode changes: %w", err)
	}
	token, err := e.api.CSRFToken(ctx)
	if err != nil {
		return err
	}
	params := map[string]any{
		"data":  string(data),
		"token": token,
		"bot":   e.api.Bot(),
	}
	if summary != "" {
		params["summary"] = summary
	}
	if e.id == "" {
		params["new"] = string(e.kind)
	} else {
		params["id"] = e.id
	}
	raw, err := e.api.Call(ctx, "wbeditentity", params)
	if err != nil {
		return err
	}
	var resp struct {
		Entity json.RawMessage `json:"entity"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode edit response: %w", err)
	}
	return e.applyJSON(resp.Entity)
}

// rollback restores the last server snapshot, or resets a never-fetched
// entity to empty.
func (e *Entity) rollback() error {
	snapshot := e.snapshot
	if snapshot == nil {
		snapshot = json.RawMessage(`{}`)
	}
	return e.applyJSON(snapshot)
}

// Edit groups mutations into one save: Commit saves them under the edit's
// summary, Abort throws them away and restores the last-fetched state.
// Commit is sugar over Save; there is exactly one path to the server.
type Edit struct {
	entity  *Entity
	summary string
	done    bool
}

// BeginEdit starts an edit that will be saved with summary.
func (e *Entity) BeginEdit(summary string) *Edit {
	return &Edit{entity: e, summary: summary}
}

// Commit saves the entity. The edit is finished afterwards, even when the
// save fails.
func (ed *Edit) Commit(ctx context.Context) error {
	if ed.done {
		return ErrNoActiveEdit
	}
	ed.done = true
	return ed.entity.Save(ctx, ed.summary)
}

// Abort discards all unsaved changes on the entity, restoring the last
// server state.
func (ed *Edit) Abort() error {
	if ed.done {
		return ErrNoActiveEdit
	}
	ed.done = true
	return ed.entity.rollback()
}

// Edit runs fn and saves under summary when it returns nil. Any error from
// fn aborts instead, restoring the last-fetched state, and is returned.
func (e *Entity) Edit(ctx context.Context, summary string, fn func() error) error {
	ed := e.BeginEdit(summary)
	if err := fn(); err != nil {
		_ = ed.Abort()
		return err
	}
	return ed.Commit(ctx)
}
