package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/indexer/index"
)

// ScoredDoc is a document position with the query term's frequency in it.
type ScoredDoc struct {
	DocID     int `json:"doc_id"`
	Frequency int `json:"frequency"`
}

// Rank orders postings by frequency descending, ties broken by the higher
// document position first. Postings with a zero frequency are dropped.
// limit <= 0 means no limit.
func Rank(postings index.PostingList, limit int) []ScoredDoc {
	result := make([]ScoredDoc, 0, len(postings))
	for _, p := range postings {
		if p.Frequency < 1 {
			continue
		}
		result = append(result, ScoredDoc{DocID: p.DocID, Frequency: p.Frequency})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Frequency != result[j].Frequency {
			return result[i].Frequency > result[j].Frequency
		}
		return result[i].DocID > result[j].DocID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// DocIDs ranks postings and returns only the document positions. The result
// is never nil.
func DocIDs(postings index.PostingList) []int {
	ranked := Rank(postings, 0)
	ids := make([]int, len(ranked))
	for i, doc := range ranked {
		ids[i] = doc.DocID
	}
	return ids
}
