package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/indexer/tokenizer"
)

// MemoryIndex is an inverted index from term to document position to
// posting. Only documents where a term occurs at least once appear under it.
type MemoryIndex struct {
	mu       sync.RWMutex
	index    map[string]map[int]*Posting
	docCount int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]map[int]*Posting),
	}
}

// AddDocument tokenizes text and counts every token occurrence under docID.
// Adding the same docID twice accumulates counts. It returns the number of
// tokens in text.
func (m *MemoryIndex) AddDocument(docID int, text string) int {
	tokens := tokenizer.Tokenize(text)

	termData := make(map[string]*Posting)
	for _, token := range tokens {
		p, exists := termData[token.Term]
		if !exists {
			p = &Posting{
				DocID:     docID,
				Positions: make([]int, 0, 4),
			}
			termData[token.Term] = p
		}
		p.Frequency++
		p.Positions = append(p.Positions, token.Position)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for term, posting := range termData {
		docs, exists := m.index[term]
		if !exists {
			docs = make(map[int]*Posting)
			m.index[term] = docs
		}
		if prev, ok := docs[docID]; ok {
			prev.Frequency += posting.Frequency
			prev.Positions = append(prev.Positions, posting.Positions...)
			continue
		}
		docs[docID] = posting
	}
	m.docCount++
	return len(tokens)
}

// Search returns copies of the postings for an exact term, ordered by DocID.
// The term is matched as given; callers normalise it.
func (m *MemoryIndex) Search(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, docs := range m.index {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docCount
}

func (m *MemoryIndex) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[int]*Posting)
	m.docCount = 0
}
