package wikibase

import "sort"

// Listener receives change notifications from the mutable containers of an
// entity. The path names what changed, outermost segment first, e.g.
// ("labels", "fr"). A nil Listener discards notifications, so containers can
// be used standalone before they are attached to an entity.
type Listener func(path ...string)

func (l Listener) notify(path ...string) {
	if l != nil {
		l(path...)
	}
}

// prefixed returns a listener that prepends seg to every path it forwards.
func (l Listener) prefixed(seg string) Listener {
	if l == nil {
		return nil
	}
	return func(path ...string) {
		full := make([]string, 0, len(path)+1)
		full = append(full, seg)
		full = append(full, path...)
		l(full...)
	}
}

// changeSet records which parts of an entity have unsaved changes, as a tree
// keyed by notification path segments. Only presence is tracked; the values
// themselves live in the containers and are read back at save time.
type changeSet map[string]changeSet

func (c changeSet) mark(path ...string) {
	node := c
	for _, seg := range path {
		child, ok := node[seg]
		if !ok {
			child = changeSet{}
			node[seg] = child
		}
		node = child
	}
}

// sub returns the subtree under key, or nil when the key is clean.
func (c changeSet) sub(key string) changeSet {
	if c == nil {
		return nil
	}
	return c[key]
}

// keys returns the dirty keys at this level, sorted so rendered patches come
// out deterministic.
func (c changeSet) keys() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
