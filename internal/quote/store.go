// Package quote provides local persistent storage for quotes and enforces
// the draft -> edited -> learned lifecycle.
package quote

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tinkerloft/quotecraft/internal/model"
)

// ErrNotFound is returned when no quote exists for the given contractor and ID.
var ErrNotFound = errors.New("quote not found")

// Store manages quotes on the local filesystem.
// Layout: {BaseDir}/{contractor-id}/{quote-id}.yaml
type Store struct {
	baseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a Store using the given base directory.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir, locks: make(map[string]*sync.Mutex)}
}

// DefaultStore creates a Store using ~/.quotecraft/quotes.
func DefaultStore() *Store {
	home, _ := os.UserHomeDir()
	return NewStore(filepath.Join(home, ".quotecraft", "quotes"))
}

func (s *Store) lockFor(contractorID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[contractorID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[contractorID] = l
	}
	return l
}

// Create persists a freshly generated quote in draft state.
func (s *Store) Create(q *model.Quote) error {
	l := s.lockFor(q.ContractorID)
	l.Lock()
	defer l.Unlock()

	q.Status = model.QuoteStatusDraft
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now
	return s.write(q)
}

// Get returns a quote by contractor and ID.
func (s *Store) Get(contractorID, quoteID string) (*model.Quote, error) {
	l := s.lockFor(contractorID)
	l.Lock()
	defer l.Unlock()
	return s.load(contractorID, quoteID)
}

// load reads a quote off disk. Callers must hold the contractor lock.
func (s *Store) load(contractorID, quoteID string) (*model.Quote, error) {
	data, err := os.ReadFile(s.path(contractorID, quoteID))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("quote %q: %w", quoteID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading quote: %w", err)
	}

	var q model.Quote
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("unmarshaling quote: %w", err)
	}
	return &q, nil
}

// List returns all quotes for a contractor, most recently updated first.
func (s *Store) List(contractorID string) ([]*model.Quote, error) {
	dir := filepath.Join(s.baseDir, contractorID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading quotes dir: %w", err)
	}

	var quotes []*model.Quote
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		q, err := s.Get(contractorID, strings.TrimSuffix(e.Name(), ".yaml"))
		if err != nil {
			continue // skip malformed quotes
		}
		quotes = append(quotes, q)
	}

	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].UpdatedAt.After(quotes[j].UpdatedAt)
	})
	return quotes, nil
}

// RecordEdits stores the user-finalized line items and total, transitioning
// the quote to edited. A learned quote is immutable and rejects further edits.
func (s *Store) RecordEdits(contractorID, quoteID string, items []model.LineItem, total float64) (*model.Quote, error) {
	l := s.lockFor(contractorID)
	l.Lock()
	defer l.Unlock()

	q, err := s.load(contractorID, quoteID)
	if err != nil {
		return nil, err
	}
	if q.Status == model.QuoteStatusLearned {
		return nil, fmt.Errorf("quote %q: %w: already learned", quoteID, model.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	q.EditDetails = &model.EditDetails{LineItems: items, Total: total, EditedAt: now}
	q.WasEdited = true
	q.Status = model.QuoteStatusEdited
	q.UpdatedAt = now

	if err := s.write(q); err != nil {
		return nil, err
	}
	return q, nil
}

// MarkLearned transitions an edited quote to learned. Marking an
// already-learned quote is a no-op, so learn retries stay idempotent.
// A draft cannot learn directly.
func (s *Store) MarkLearned(contractorID, quoteID string) (*model.Quote, error) {
	l := s.lockFor(contractorID)
	l.Lock()
	defer l.Unlock()

	q, err := s.load(contractorID, quoteID)
	if err != nil {
		return nil, err
	}
	if q.Status == model.QuoteStatusLearned {
		return q, nil
	}
	if !q.Status.CanTransitionTo(model.QuoteStatusLearned) {
		return nil, fmt.Errorf("quote %q: %w: %s -> learned", quoteID, model.ErrInvalidTransition, q.Status)
	}

	q.Status = model.QuoteStatusLearned
	q.UpdatedAt = time.Now().UTC()
	if err := s.write(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Store) path(contractorID, quoteID string) string {
	return filepath.Join(s.baseDir, contractorID, quoteID+".yaml")
}

func (s *Store) write(q *model.Quote) error {
	dir := filepath.Join(s.baseDir, q.ContractorID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating quotes dir: %w", err)
	}
	data, err := yaml.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshaling quote: %w", err)
	}

	// Write-then-rename so a reader in another process never sees a
	// half-written quote file.
	path := s.path(q.ContractorID, q.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing quote: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing quote: %w", err)
	}
	return nil
}
