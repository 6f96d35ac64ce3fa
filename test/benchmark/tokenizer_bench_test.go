package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `The index is built fresh for every batch of documents. Each document is
        lowercased and split on every character that is not a letter, a digit or an
        underscore. Punctuation such as commas, dots and exclamation marks never ends
        up in a token, so "cat," and "Cat!" both count as the word cat.`,
	"long": strings.Repeat(`Information retrieval systems form the backbone of modern search
        infrastructure. An inverted index maps each word to the documents containing
        it together with the number of occurrences. Queries are single words, matched
        case-insensitively, and the documents are ordered by how often the word occurs.
        Caching layers reduce latency for repeated batches. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := tokenizer.Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := tokenizer.Tokenize(text)
			_ = tokens
		}
	})
}

func BenchmarkTerms(b *testing.B) {
	text := "Ćma, ĆMA! cma_01 - zażółć gęślą jaźń; 2024 x²"
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		terms := tokenizer.Terms(text)
		_ = terms
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "cat dog bird, Cat! DOG? bird_1 "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := tokenizer.Tokenize(text)
				_ = tokens
			}
		})
	}
}
