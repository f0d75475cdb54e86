// Package knowledge_base answers information requests from a question/answer
// corpus indexed with TF-IDF vectors.
package knowledge_base //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/agext/levenshtein"

	"github.com/lewisedginton/ward_desk/internal/storage_manager"
	"github.com/lewisedginton/ward_desk/pkg/logger"
)

const (
	DefaultCorpusPath    = "knowledge_base.json"
	DefaultTopK          = 3
	DefaultMinSimilarity = 0.1
	// DefaultDuplicateRatio is the normalised edit similarity at or above which
	// a learned question counts as a duplicate of an existing one.
	DefaultDuplicateRatio = 0.9
)

var (
	// ErrDuplicateQuestion rejects a learned entry too close to an existing one.
	ErrDuplicateQuestion = errors.New("question already in knowledge base")
	// ErrInvalidEntry rejects an entry with no question, answer or category.
	ErrInvalidEntry = errors.New("entry needs a question, an answer and a category")
)

// Result is one ranked search hit.
type Result struct {
	Question string  `json:"question"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Config configures a KnowledgeBase. Zero values take the package defaults.
type Config struct {
	Provider       storage_manager.FileProvider
	Path           string
	TopK           int
	MinSimilarity  float64
	DuplicateRatio float64
	MaxFeatures    int
	Logger         logger.Logger
}

type snapshot struct {
	corpus  *Corpus
	entries []Entry
	index   *Index
}

// KnowledgeBase is safe for concurrent use. Searches read an immutable
// snapshot; Learn swaps in a rebuilt one.
type KnowledgeBase struct {
	cfg Config
	log logger.Logger

	mu    sync.RWMutex
	state *snapshot
}

// New builds a knowledge base over corpus without any backing file.
func New(corpus *Corpus, cfg Config) *KnowledgeBase {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = DefaultMinSimilarity
	}
	if cfg.DuplicateRatio <= 0 {
		cfg.DuplicateRatio = DefaultDuplicateRatio
	}
	if cfg.Path == "" {
		cfg.Path = DefaultCorpusPath
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	if corpus == nil {
		corpus = NewCorpus()
	}
	kb := &KnowledgeBase{cfg: cfg, log: cfg.Logger}
	kb.state = kb.build(corpus)
	return kb
}

// Load reads the corpus from cfg.Provider. A missing file is replaced by the
// default corpus, which is written back. An unreadable or malformed file
// leaves the knowledge base empty so searches return nothing.
func Load(ctx context.Context, cfg Config) *KnowledgeBase {
	kb := New(nil, cfg)
	log := kb.log.WithFields(logger.StringField("corpus_path", kb.cfg.Path))

	if kb.cfg.Provider == nil {
		log.Warn("No corpus provider configured, knowledge retrieval disabled")
		return kb
	}

	data, err := kb.cfg.Provider.Read(ctx, kb.cfg.Path)
	switch {
	case errors.Is(err, storage_manager.ErrNotFound):
		log.Warn("Knowledge base file not found, creating default")
		kb.swap(kb.build(DefaultCorpus()))
		if err := kb.persist(ctx); err != nil {
			log.Error("Failed to write default knowledge base", logger.ErrorField(err))
		}
	case err != nil:
		log.Warn("Failed to read knowledge base, retrieval disabled", logger.ErrorField(err))
	default:
		corpus, err := DecodeCorpus(data)
		if err != nil {
			log.Warn("Failed to parse knowledge base, retrieval disabled", logger.ErrorField(err))
			break
		}
		kb.swap(kb.build(corpus))
	}

	log.Info("Knowledge base loaded", logger.IntField("entries", kb.Len()))
	return kb
}

func (kb *KnowledgeBase) build(corpus *Corpus) *snapshot {
	entries := corpus.Entries()
	docs := make([]string, len(entries))
	for i, e := range entries {
		docs[i] = e.Question
	}
	return &snapshot{corpus: corpus, entries: entries, index: BuildIndex(docs, kb.cfg.MaxFeatures)}
}

func (kb *KnowledgeBase) current() *snapshot {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.state
}

func (kb *KnowledgeBase) swap(s *snapshot) {
	kb.mu.Lock()
	kb.state = s
	kb.mu.Unlock()
}

// Len counts indexed entries.
func (kb *KnowledgeBase) Len() int {
	return len(kb.current().entries)
}

// Corpus returns a copy of the loaded corpus.
func (kb *KnowledgeBase) Corpus() *Corpus {
	return kb.current().corpus.Clone()
}

// Search ranks stored questions by cosine similarity to query, best first,
// keeping at most TopK hits above MinSimilarity. An empty corpus yields nil.
func (kb *KnowledgeBase) Search(query string) []Result {
	s := kb.current()
	matches := s.index.Query(query, kb.cfg.TopK, kb.cfg.MinSimilarity)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		e := s.entries[m.Index]
		out = append(out, Result{Question: e.Question, Category: e.Category, Score: m.Score})
	}
	return out
}

// Answer resolves a known question, compared case-insensitively, to its answer.
func (kb *KnowledgeBase) Answer(question string) (string, bool) {
	for _, e := range kb.current().entries {
		if strings.EqualFold(e.Question, question) {
			return e.Answer, e.Answer != ""
		}
	}
	return "", false
}

// similarity is 1 minus the edit distance normalised by the longer string.
func similarity(a, b string) float64 {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.Distance(a, b, nil))/float64(longest)
}

// Learn adds e, rebuilds the index and persists the corpus through the
// provider. A question within DuplicateRatio of an existing one is rejected.
// The in-memory index is updated even when persisting fails.
func (kb *KnowledgeBase) Learn(ctx context.Context, e Entry) error {
	e.Question = strings.TrimSpace(e.Question)
	e.Answer = strings.TrimSpace(e.Answer)
	e.Category = strings.TrimSpace(e.Category)
	if e.Question == "" || e.Answer == "" || e.Category == "" {
		return ErrInvalidEntry
	}

	kb.mu.Lock()
	for _, existing := range kb.state.entries {
		if similarity(existing.Question, e.Question) >= kb.cfg.DuplicateRatio {
			kb.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrDuplicateQuestion, existing.Question)
		}
	}
	corpus := kb.state.corpus.Clone()
	corpus.Add(e)
	kb.state = kb.build(corpus)
	kb.mu.Unlock()

	kb.log.Info("Learned knowledge base entry",
		logger.StringField("category", e.Category),
		logger.StringField("question", e.Question))

	if err := kb.persist(ctx); err != nil {
		return fmt.Errorf("failed to persist knowledge base: %w", err)
	}
	return nil
}

func (kb *KnowledgeBase) persist(ctx context.Context) error {
	if kb.cfg.Provider == nil {
		return nil
	}
	data, err := EncodeCorpus(kb.current().corpus)
	if err != nil {
		return err
	}
	return kb.cfg.Provider.Write(ctx, kb.cfg.Path, data)
}
