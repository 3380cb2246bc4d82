// Package knowledge provides local persistent storage for per-contractor
// pricing knowledge.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/tinkerloft/quotecraft/internal/metrics"
	"github.com/tinkerloft/quotecraft/internal/model"
)

// Params tunes the learning behavior of a Store. Zero fields take defaults.
type Params struct {
	// MaxAdjustments caps learned_adjustments per category (default 20).
	MaxAdjustments int
	// SmoothingK is the half-rise point of the confidence curve (default 6).
	SmoothingK int
	// ConfidenceCap is the asymptote of the confidence curve (default 0.95).
	ConfidenceCap float64
}

func (p Params) withDefaults() Params {
	if p.MaxAdjustments <= 0 {
		p.MaxAdjustments = 20
	}
	if p.SmoothingK <= 0 {
		p.SmoothingK = 6
	}
	if p.ConfidenceCap <= 0 {
		p.ConfidenceCap = 0.95
	}
	return p
}

// CategoryPatch carries the optional category fields an upsert may set.
// Learning state (adjustments, samples, confidence) is never patched directly.
type CategoryPatch struct {
	DisplayName       *string
	TypicalPriceRange *model.PriceRange
	PricingUnit       *model.PricingUnit
	BaseRate          *float64
	Notes             *string
}

// Store manages pricing knowledge on the local filesystem.
// Layout: {BaseDir}/{contractor-id}.yaml — one document per contractor,
// read and written as a unit. All mutations for one contractor are serialized
// behind a per-contractor lock; reads for different contractors never block
// each other.
type Store struct {
	baseDir string
	params  Params

	// Metrics is optional; when set, eviction events are counted.
	Metrics *metrics.Metrics

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewStore creates a Store using the given base directory.
func NewStore(baseDir string, params Params) *Store {
	return &Store{
		baseDir: baseDir,
		params:  params.withDefaults(),
		locks:   make(map[string]*sync.RWMutex),
	}
}

// DefaultStore creates a Store using ~/.quotecraft/knowledge.
func DefaultStore() *Store {
	home, _ := os.UserHomeDir()
	return NewStore(filepath.Join(home, ".quotecraft", "knowledge"), Params{})
}

// BaseDir returns the base directory for this store.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) lockFor(contractorID string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[contractorID]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[contractorID] = l
	}
	return l
}

// Get returns the full pricing knowledge for a contractor. A contractor with
// no stored knowledge yet gets an empty aggregate, not an error.
func (s *Store) Get(contractorID string) (*model.PricingKnowledge, error) {
	l := s.lockFor(contractorID)
	l.RLock()
	defer l.RUnlock()
	return s.read(contractorID)
}

// GetCategory returns the category for key, or ok=false if absent.
// Absence is a valid miss, not an error.
func (s *Store) GetCategory(contractorID, key string) (*model.Category, bool, error) {
	kn, err := s.Get(contractorID)
	if err != nil {
		return nil, false, err
	}
	cat := kn.Category(key)
	if cat == nil {
		return nil, false, nil
	}
	return cat, true, nil
}

// UpsertCategory creates the category if absent (zero samples, zero
// confidence, no adjustments) and applies the patch fields that are set.
func (s *Store) UpsertCategory(contractorID, key string, patch CategoryPatch) (*model.Category, error) {
	var result *model.Category
	err := s.update(contractorID, func(kn *model.PricingKnowledge) error {
		cat := kn.Category(key)
		if cat == nil {
			cat = &model.Category{Key: key, DisplayName: key}
			kn.Categories[key] = cat
		}
		if patch.DisplayName != nil {
			cat.DisplayName = *patch.DisplayName
		}
		if patch.TypicalPriceRange != nil {
			cat.TypicalPriceRange = patch.TypicalPriceRange
		}
		if patch.PricingUnit != nil {
			cat.PricingUnit = *patch.PricingUnit
		}
		if patch.BaseRate != nil {
			cat.BaseRate = patch.BaseRate
		}
		if patch.Notes != nil {
			cat.Notes = *patch.Notes
		}
		result = cat
		return nil
	})
	return result, err
}

// AppendAdjustment appends a learned adjustment to a category. A statement
// that normalizes to an existing one is not duplicated; the existing entry is
// refreshed to the most-recent position instead. When the cap would be
// exceeded, the oldest entry is evicted first.
func (s *Store) AppendAdjustment(contractorID, key, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.update(contractorID, func(kn *model.PricingKnowledge) error {
		cat := kn.Category(key)
		if cat == nil {
			return fmt.Errorf("unknown category %q", key)
		}

		norm := normalizeStatement(text)
		for i, existing := range cat.LearnedAdjustments {
			if normalizeStatement(existing) == norm {
				// Refresh: move to the newest position so it is last to be evicted.
				cat.LearnedAdjustments = append(
					append(cat.LearnedAdjustments[:i:i], cat.LearnedAdjustments[i+1:]...),
					existing,
				)
				return nil
			}
		}

		cat.LearnedAdjustments = append(cat.LearnedAdjustments, text)
		for len(cat.LearnedAdjustments) > s.params.MaxAdjustments {
			cat.LearnedAdjustments = cat.LearnedAdjustments[1:]
			if s.Metrics != nil {
				s.Metrics.AdjustmentsEvictedTotal.Inc()
			}
		}
		return nil
	})
}

// RecordSample increments the category's sample count and recomputes its
// confidence: min(cap, samples/(samples+k)). Confidence is saturating and
// monotonically increasing in the sample count.
func (s *Store) RecordSample(contractorID, key string) (*model.Category, error) {
	var result *model.Category
	err := s.update(contractorID, func(kn *model.PricingKnowledge) error {
		cat := kn.Category(key)
		if cat == nil {
			return fmt.Errorf("unknown category %q", key)
		}
		cat.Samples++
		cat.Confidence = Confidence(cat.Samples, s.params.SmoothingK, s.params.ConfidenceCap)
		result = cat
		return nil
	})
	return result, err
}

// AddGlobalRule appends a contractor-wide pricing rule. Exact duplicates are
// ignored.
func (s *Store) AddGlobalRule(contractorID, rule string) error {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil
	}
	return s.update(contractorID, func(kn *model.PricingKnowledge) error {
		for _, existing := range kn.GlobalRules {
			if normalizeStatement(existing) == normalizeStatement(rule) {
				return nil
			}
		}
		kn.GlobalRules = append(kn.GlobalRules, rule)
		return nil
	})
}

// Confidence computes the saturating confidence score for a sample count.
func Confidence(samples, smoothingK int, ceiling float64) float64 {
	if samples <= 0 {
		return 0
	}
	c := float64(samples) / float64(samples+smoothingK)
	if c > ceiling {
		return ceiling
	}
	return c
}

// update applies fn to the contractor's knowledge as one atomic
// read-modify-write. A failed read or write is retried once with fresh state
// before the error is surfaced as transient.
func (s *Store) update(contractorID string, fn func(*model.PricingKnowledge) error) error {
	l := s.lockFor(contractorID)
	l.Lock()
	defer l.Unlock()

	attempt := func() (bool, error) {
		kn, err := s.read(contractorID)
		if err != nil {
			return true, err
		}
		if err := fn(kn); err != nil {
			return false, err
		}
		if err := s.write(contractorID, kn); err != nil {
			return true, err
		}
		return false, nil
	}

	retriable, err := attempt()
	if err != nil && retriable {
		_, err = attempt()
		if err != nil {
			return fmt.Errorf("knowledge update for %s: %w", contractorID, err)
		}
	}
	return err
}

func (s *Store) path(contractorID string) string {
	return filepath.Join(s.baseDir, contractorID+".yaml")
}

func (s *Store) read(contractorID string) (*model.PricingKnowledge, error) {
	data, err := os.ReadFile(s.path(contractorID))
	if os.IsNotExist(err) {
		return model.NewPricingKnowledge(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading knowledge file: %w", err)
	}

	var kn model.PricingKnowledge
	if err := yaml.Unmarshal(data, &kn); err != nil {
		return nil, fmt.Errorf("unmarshaling knowledge: %w", err)
	}
	if kn.Categories == nil {
		kn.Categories = map[string]*model.Category{}
	}
	return &kn, nil
}

func (s *Store) write(contractorID string, kn *model.PricingKnowledge) error {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("creating knowledge dir: %w", err)
	}
	data, err := yaml.Marshal(kn)
	if err != nil {
		return fmt.Errorf("marshaling knowledge: %w", err)
	}
	return os.WriteFile(s.path(contractorID), data, 0o644)
}

// normalizeStatement reduces a statement to a comparison form: lowercase,
// collapsed whitespace, trailing punctuation stripped.
func normalizeStatement(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r)
	})
}
