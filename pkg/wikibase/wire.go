package wikibase

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// orderedObject calls fn for each member of a JSON object in document order,
// which json.Unmarshal into a map would lose. The server emits claims,
// qualifiers and terms in a meaningful order and the model preserves it. A
// null or empty payload is treated as an empty object: wbgetentities omits
// parts an entity does not have.
func orderedObject(raw json.RawMessage, fn func(key string, value json.RawMessage) error) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	// formatversion=2 serializes an empty container as [].
	if bytes.Equal(raw, []byte("[]")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode object: unexpected token %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode object key: unexpected token %v", keyTok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode object value for %q: %w", key, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}
