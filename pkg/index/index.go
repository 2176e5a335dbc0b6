// Package index provides a lexical TF-IDF similarity index over runbooks.
//
// An Index is immutable once built and safe for concurrent queries.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/netops/pkg/types"
)

// epsilon keeps cosine similarity finite for empty or all-stop-word vectors.
const epsilon = 1e-8

var (
	// ErrEmptyCorpus is returned when building an index from no runbooks.
	ErrEmptyCorpus = errors.New("runbook corpus is empty")
	// ErrIndexNotBuilt is returned when querying before the index is built.
	ErrIndexNotBuilt = errors.New("index not built")
	// ErrInvalidTopK is returned when top_k is less than one.
	ErrInvalidTopK = errors.New("top_k must be at least 1")
)

// Match is a runbook and its similarity score for a query.
type Match struct {
	Runbook types.Runbook `json:"runbook"`
	Score   float64       `json:"similarity_score"`
}

// Index is a TF-IDF vector space built over a fixed runbook corpus.
type Index struct {
	runbooks []types.Runbook
	vocab    map[string]int
	terms    []string
	idf      []float64
	vectors  [][]float64
	norms    []float64
}

// Build tokenizes each runbook's title, category, steps and commands and
// weights terms by raw frequency times smoothed inverse document frequency.
// Document vectors are L2-normalized.
func Build(runbooks []types.Runbook) (*Index, error) {
	if len(runbooks) == 0 {
		return nil, ErrEmptyCorpus
	}

	docs := make([]map[string]int, len(runbooks))
	df := make(map[string]int)

	for i, rb := range runbooks {
		docs[i] = termCounts(tokenize(rb.SearchText()))
		for term := range docs[i] {
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}

	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(runbooks))

	for j, term := range terms {
		vocab[term] = j
		idf[j] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	idx := &Index{
		runbooks: append([]types.Runbook(nil), runbooks...),
		vocab:    vocab,
		terms:    terms,
		idf:      idf,
		vectors:  make([][]float64, len(runbooks)),
		norms:    make([]float64, len(runbooks)),
	}

	for i, counts := range docs {
		idx.vectors[i] = idx.weigh(counts)
		idx.norms[i] = norm(idx.vectors[i])
	}

	return idx, nil
}

// weigh projects term counts into the vector space, ignoring unknown terms.
func (idx *Index) weigh(counts map[string]int) []float64 {
	vec := make([]float64, len(idx.terms))
	for term, tf := range counts {
		if j, ok := idx.vocab[term]; ok {
			vec[j] = float64(tf) * idx.idf[j]
		}
	}

	if n := norm(vec); n > 0 {
		for j := range vec {
			vec[j] /= n
		}
	}

	return vec
}

// Query scores every runbook against text by cosine similarity and returns
// the topK best matches in descending score order. Ties keep corpus order.
func (idx *Index) Query(text string, topK int) ([]Match, error) {
	if idx == nil || idx.vectors == nil {
		return nil, ErrIndexNotBuilt
	}

	if topK < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}

	query := idx.weigh(termCounts(tokenize(text)))
	queryNorm := norm(query)

	order := make([]int, len(idx.runbooks))
	scores := make([]float64, len(idx.runbooks))

	for i, vec := range idx.vectors {
		order[i] = i
		scores[i] = dot(vec, query) / (idx.norms[i]*(queryNorm+epsilon) + epsilon)
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK > len(order) {
		topK = len(order)
	}

	matches := make([]Match, 0, topK)
	for _, i := range order[:topK] {
		matches = append(matches, Match{Runbook: idx.runbooks[i], Score: scores[i]})
	}

	return matches, nil
}

// Len returns the number of indexed runbooks.
func (idx *Index) Len() int {
	return len(idx.runbooks)
}

// VocabularySize returns the number of distinct indexed terms.
func (idx *Index) VocabularySize() int {
	return len(idx.terms)
}

// Runbooks returns a copy of the indexed runbooks in corpus order.
func (idx *Index) Runbooks() []types.Runbook {
	return append([]types.Runbook(nil), idx.runbooks...)
}

// Vectors returns a copy of each runbook's vector keyed by runbook ID.
func (idx *Index) Vectors() map[string][]float64 {
	out := make(map[string][]float64, len(idx.runbooks))
	for i, rb := range idx.runbooks {
		out[rb.ID] = append([]float64(nil), idx.vectors[i]...)
	}

	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}

	return sum
}

func norm(v []float64) float64 {
	return math.Sqrt(dot(v, v))
}

// Holder publishes a built Index to concurrent readers. Queries before the
// first Build fail with ErrIndexNotBuilt.
type Holder struct {
	log logrus.FieldLogger
	idx atomic.Pointer[Index]
}

// NewHolder creates an empty holder.
func NewHolder(log logrus.FieldLogger) *Holder {
	return &Holder{log: log.WithField("component", "runbook_index")}
}

// Build builds a new index from runbooks and publishes it, replacing any
// previous one.
func (h *Holder) Build(runbooks []types.Runbook) (*Index, error) {
	idx, err := Build(runbooks)
	if err != nil {
		return nil, err
	}

	h.idx.Store(idx)

	h.log.WithFields(logrus.Fields{
		"runbook_count": idx.Len(),
		"vocabulary":    idx.VocabularySize(),
	}).Info("Runbook index built")

	return idx, nil
}

// Index returns the published index.
func (h *Holder) Index() (*Index, error) {
	idx := h.idx.Load()
	if idx == nil {
		return nil, ErrIndexNotBuilt
	}

	return idx, nil
}

// Query runs a query against the published index.
func (h *Holder) Query(text string, topK int) ([]Match, error) {
	idx, err := h.Index()
	if err != nil {
		return nil, err
	}

	return idx.Query(text, topK)
}
