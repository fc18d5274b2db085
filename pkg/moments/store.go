// Package moments keeps a journal of past camrng results on disk.
package moments

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Modes a moment can be recorded in.
const (
	ModeNumbers     = "numbers"
	ModeCoinFlip    = "coin-flip"
	ModeLuckyDigits = "lucky-digits"
)

// ErrNotFound is returned when no moment has the requested ID.
var ErrNotFound = errors.New("moments: not found")

// Moment is one recorded result.
type Moment struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Mode        string    `json:"mode"`
	Seed        string    `json:"seed"`
	ResultTitle string    `json:"result_title"`
	ResultValue string    `json:"result_value"`
	Annotation  string    `json:"annotation,omitempty"`
	PhotoPath   string    `json:"photo_path,omitempty"`
}

// Store defines the journal operations.
type Store interface {
	// Add records a moment, assigning ID and CreatedAt when unset.
	Add(m *Moment) error

	// Get retrieves a moment by ID.
	Get(id string) (*Moment, error)

	// List returns all moments, newest first.
	List() ([]*Moment, error)

	// UpdateAnnotation replaces the annotation of a moment.
	UpdateAnnotation(id, annotation string) error

	// Count returns the number of moments.
	Count() int
}

// JSONStore implements Store using a JSON file for persistence.
type JSONStore struct {
	path    string
	logger  *slog.Logger
	moments map[string]*Moment
	mu      sync.RWMutex
}

// storeData is the JSON structure for the store file.
type storeData struct {
	Version   int       `json:"version"`
	UpdatedAt string    `json:"updated_at"`
	Moments   []*Moment `json:"moments"`
}

const currentVersion = 1

// NewJSONStore opens the journal at path, creating its directory.
// A missing or blank file starts empty. An unreadable journal also starts
// empty, with a warning, and is replaced on the next write.
func NewJSONStore(path string, logger *slog.Logger) (*JSONStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store := &JSONStore{
		path:    path,
		logger:  logger,
		moments: make(map[string]*Moment),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := store.load(); err != nil {
		logger.Warn("discarding unreadable moments journal", "path", path, "error", err)
		store.moments = make(map[string]*Moment)
	}
	return store, nil
}

// NewDefaultStore opens the journal at ~/.camrng/moments.json.
func NewDefaultStore(logger *slog.Logger) (*JSONStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewJSONStore(filepath.Join(homeDir, ".camrng", "moments.json"), logger)
}

// load reads the store from disk.
func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	for _, m := range stored.Moments {
		if m == nil || m.ID == "" {
			continue
		}
		s.moments[m.ID] = m
	}
	return nil
}

// save writes the store to disk. Callers hold the write lock.
func (s *JSONStore) save() error {
	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Moments:   s.sorted(),
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Write to temp file first, then rename (atomic write)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// sorted returns the moments newest first, ties broken by ID.
func (s *JSONStore) sorted() []*Moment {
	list := lo.Values(s.moments)
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// Add records a copy of m. The assigned ID and CreatedAt are written back
// to m; later changes to m do not affect the store.
func (s *JSONStore) Add(m *Moment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *m
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}

	s.moments[copied.ID] = &copied
	if err := s.save(); err != nil {
		delete(s.moments, copied.ID)
		return err
	}
	m.ID, m.CreatedAt = copied.ID, copied.CreatedAt
	return nil
}

// Get retrieves a moment by ID.
func (s *JSONStore) Get(id string) (*Moment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.moments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	copied := *m
	return &copied, nil
}

// List returns all moments, newest first.
func (s *JSONStore) List() ([]*Moment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.sorted(), func(m *Moment, _ int) *Moment {
		copied := *m
		return &copied
	}), nil
}

// UpdateAnnotation replaces the annotation of a moment.
func (s *JSONStore) UpdateAnnotation(id, annotation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.moments[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := m.Annotation
	m.Annotation = annotation
	if err := s.save(); err != nil {
		m.Annotation = prev
		return err
	}
	return nil
}

// Count returns the number of moments.
func (s *JSONStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.moments)
}
