package wikibase

import "errors"

var (
	// ErrEntityMissing indicates the entity does not exist on the server.
	ErrEntityMissing = errors.New("entity missing")
	// ErrInvalidID indicates an entity id that is neither a Q-id nor a P-id,
	// or the wrong kind of id for the operation.
	ErrInvalidID = errors.New("invalid entity id")
	// ErrMalformedSnak indicates a snak payload with an unknown snaktype or
	// a property that is not a P-id.
	ErrMalformedSnak = errors.New("malformed snak")
	// ErrUnsupportedValueType indicates a datavalue with an unknown type tag.
	ErrUnsupportedValueType = errors.New("unsupported value type")
	// ErrNoActiveEdit indicates a commit or abort on an edit that already
	// finished.
	ErrNoActiveEdit = errors.New("no active edit")
)
