package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_AddAndSearch(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument(0, "cat dog cat")
	mi.AddDocument(1, "dog dog")
	mi.AddDocument(2, "cat")

	cat := mi.Search("cat")
	require.Len(t, cat, 2)
	assert.Equal(t, 0, cat[0].DocID)
	assert.Equal(t, 2, cat[0].Frequency)
	assert.Equal(t, []int{0, 2}, cat[0].Positions)
	assert.Equal(t, 2, cat[1].DocID)
	assert.Equal(t, 1, cat[1].Frequency)

	dog := mi.Search("dog")
	require.Len(t, dog, 2)
	assert.Equal(t, 1, dog[0].Frequency)
	assert.Equal(t, 2, dog[1].Frequency)

	assert.Nil(t, mi.Search("bird"))
	assert.Equal(t, 3, mi.DocCount())
	assert.Equal(t, 2, mi.TermCount())
}

func TestMemoryIndex_AddDocumentReturnsTokenCount(t *testing.T) {
	mi := NewMemoryIndex()

	assert.Equal(t, 3, mi.AddDocument(0, "cat dog cat"))
	assert.Equal(t, 0, mi.AddDocument(1, "?!"))
	assert.Equal(t, 2, mi.AddDocument(2, "Hello, world."))
}

func TestMemoryIndex_SearchIsExact(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument(0, "Cat sat")

	assert.Nil(t, mi.Search("Cat"), "index stores lowercased terms only")
	assert.Len(t, mi.Search("cat"), 1)
	assert.Nil(t, mi.Search("cat sat"))
}

func TestMemoryIndex_OnlyPositiveCounts(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument(0, "alpha beta")
	mi.AddDocument(1, "")
	mi.AddDocument(2, "beta")

	for _, entry := range mi.Snapshot() {
		for _, p := range entry.Postings {
			assert.GreaterOrEqual(t, p.Frequency, 1, "term %q doc %d", entry.Term, p.DocID)
		}
	}
	assert.Equal(t, 3, mi.DocCount())
}

func TestMemoryIndex_AddDocumentTwiceAccumulates(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument(4, "x")
	mi.AddDocument(4, "x x")

	postings := mi.Search("x")
	require.Len(t, postings, 1)
	assert.Equal(t, 3, postings[0].Frequency)
}

func TestMemoryIndex_SearchReturnsCopies(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument(0, "word")

	first := mi.Search("word")
	first[0].Frequency = 100

	assert.Equal(t, 1, mi.Search("word")[0].Frequency)
}

func TestMemoryIndex_Snapshot(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument(1, "b a")
	mi.AddDocument(0, "a")

	snap := mi.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Term)
	assert.Equal(t, 0, snap[0].Postings[0].DocID)
	assert.Equal(t, 1, snap[0].Postings[1].DocID)
	assert.Equal(t, "b", snap[1].Term)
}

func TestMemoryIndex_Reset(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument(0, "something")
	mi.Reset()

	assert.Equal(t, 0, mi.DocCount())
	assert.Equal(t, 0, mi.TermCount())
	assert.Nil(t, mi.Search("something"))
}
