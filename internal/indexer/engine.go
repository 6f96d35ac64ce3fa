// Package indexer builds an in-memory inverted index over an ordered
// document collection and answers single-word queries against it.
package indexer

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/searcher/ranker"
)

// Engine holds the index for one document collection. Documents are
// identified by their position in the slice given to NewEngine.
type Engine struct {
	memIndex    *index.MemoryIndex
	docLengths  []int
	totalTokens int64
	logger      *slog.Logger
}

// NewEngine tokenizes and indexes every document.
func NewEngine(documents []string) *Engine {
	e := &Engine{
		memIndex:   index.NewMemoryIndex(),
		docLengths: make([]int, len(documents)),
		logger:     slog.Default().With("component", "indexer"),
	}
	for docID, text := range documents {
		n := e.memIndex.AddDocument(docID, text)
		e.docLengths[docID] = n
		e.totalTokens += int64(n)
	}
	e.logger.Debug("documents indexed",
		"docs", e.memIndex.DocCount(),
		"terms", e.memIndex.TermCount(),
		"tokens", e.totalTokens,
	)
	return e
}

// Query returns the positions of the documents containing q, most frequent
// first, ties broken by the higher position. A query that matches nothing
// yields an empty, non-nil slice.
func (e *Engine) Query(q string) []int {
	return ranker.DocIDs(e.memIndex.Search(tokenizer.Normalize(q)))
}

// QueryScored is Query with the per-document frequencies.
func (e *Engine) QueryScored(q string, limit int) []ranker.ScoredDoc {
	return ranker.Rank(e.memIndex.Search(tokenizer.Normalize(q)), limit)
}

// QueryAll answers each query in order.
func (e *Engine) QueryAll(queries []string) [][]int {
	results := make([][]int, len(queries))
	for i, q := range queries {
		results[i] = e.Query(q)
	}
	return results
}

func (e *Engine) DocCount() int {
	return e.memIndex.DocCount()
}

func (e *Engine) TermCount() int {
	return e.memIndex.TermCount()
}

// DocLength is the token count of the document at docID, or 0 when out of
// range.
func (e *Engine) DocLength(docID int) int {
	if docID < 0 || docID >= len(e.docLengths) {
		return 0
	}
	return e.docLengths[docID]
}

func (e *Engine) TotalTokens() int64 {
	return e.totalTokens
}

// IndexDocuments indexes documents from scratch and returns one ranked list
// of document positions per query, in query order.
func IndexDocuments(documents []string, queries []string) [][]int {
	return NewEngine(documents).QueryAll(queries)
}
