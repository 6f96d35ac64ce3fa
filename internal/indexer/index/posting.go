package index

// Posting records how often a term occurs in one document. DocID is the
// document's position in the collection.
type Posting struct {
	DocID     int
	Frequency int
	Positions []int
}

type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}
