package knowledge_base //nolint:revive // var-naming: using underscores for domain clarity

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

const defaultMaxFeatures = 1000

// Match is one ranked similarity hit.
type Match struct {
	Index int
	Score float64
}

// Index is a TF-IDF vector space over a fixed set of documents. It is
// immutable once built.
type Index struct {
	vocab   map[string]int
	idf     []float64
	vectors []map[int]float64
}

// tokenize lowercases text and splits it into word tokens of two or more
// characters, dropping stop words.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	out := words[:0]
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// BuildIndex fits the vocabulary and inverse document frequencies on docs.
// The vocabulary is capped at maxFeatures terms by corpus frequency.
func BuildIndex(docs []string, maxFeatures int) *Index {
	if maxFeatures <= 0 {
		maxFeatures = defaultMaxFeatures
	}

	tokenized := make([][]string, len(docs))
	termCount := map[string]int{}
	docFreq := map[string]int{}
	for i, doc := range docs {
		tokens := tokenize(doc)
		tokenized[i] = tokens
		seen := map[string]struct{}{}
		for _, t := range tokens {
			termCount[t]++
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				docFreq[t]++
			}
		}
	}

	terms := make([]string, 0, len(termCount))
	for t := range termCount {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termCount[terms[i]] != termCount[terms[j]] {
			return termCount[terms[i]] > termCount[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	idx := &Index{
		vocab: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	n := float64(len(docs))
	for i, t := range terms {
		idx.vocab[t] = i
		// smoothed idf: ln((1+n)/(1+df)) + 1
		idx.idf[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}

	idx.vectors = make([]map[int]float64, len(docs))
	for i, tokens := range tokenized {
		idx.vectors[i] = idx.vectorize(tokens)
	}
	return idx
}

// Len reports the number of indexed documents.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.vectors)
}

func (x *Index) vectorize(tokens []string) map[int]float64 {
	vec := map[int]float64{}
	for _, t := range tokens {
		if col, ok := x.vocab[t]; ok {
			vec[col]++
		}
	}
	var norm float64
	for col, tf := range vec {
		w := tf * x.idf[col]
		vec[col] = w
		norm += w * w
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for col := range vec {
		vec[col] /= norm
	}
	return vec
}

// Query returns up to topK documents whose cosine similarity to text is
// strictly greater than minScore, best first. Equal scores keep document order.
func (x *Index) Query(text string, topK int, minScore float64) []Match {
	if x.Len() == 0 || topK <= 0 {
		return nil
	}
	q := x.vectorize(tokenize(text))
	if len(q) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(x.vectors))
	for i, doc := range x.vectors {
		var dot float64
		for col, w := range q {
			dot += w * doc[col]
		}
		matches = append(matches, Match{Index: i, Score: dot})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	if len(matches) > topK {
		matches = matches[:topK]
	}
	out := matches[:0]
	for _, m := range matches {
		if m.Score > minScore {
			out = append(out, m)
		}
	}
	return out
}
