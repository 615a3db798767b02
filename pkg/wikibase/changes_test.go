package wikibase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilListenerIsSafe(t *testing.T) {
	var l Listener
	l.notify("labels", "en")
	assert.Nil(t, l.prefixed("labels"), "prefixing a nil listener stays nil")
}

func TestPrefixedListener(t *testing.T) {
	rec := &pathRecorder{}
	l := rec.listener().prefixed("claims").prefixed("Q1$abc")

	l("rank")
	l()

	assert.Equal(t, [][]string{
		{"claims", "Q1$abc", "rank"},
		{"claims", "Q1$abc"},
	}, rec.paths)
}

func TestChangeSetMark(t *testing.T) {
	cs := changeSet{}
	cs.mark("labels", "en")
	cs.mark("labels", "de")
	cs.mark("claims")
	cs.mark("claims", "Q1$abc", "rank")

	assert.Equal(t, []string{"claims", "labels"}, cs.keys())
	assert.Equal(t, []string{"de", "en"}, cs.sub("labels").keys())
	assert.Equal(t, []string{"Q1$abc"}, cs.sub("claims").keys())
	assert.Equal(t, []string{"rank"}, cs.sub("claims").sub("Q1$abc").keys())
	assert.Nil(t, cs.sub("sitelinks"))
	assert.Empty(t, cs.sub("sitelinks").keys())
}

func TestChangeSetZeroSegmentMark(t *testing.T) {
	// Marking with no segments must not create keys: the prefix chain is
	// responsible for at least one segment.
	cs := changeSet{}
	cs.mark()
	assert.Empty(t, cs.keys())
}
