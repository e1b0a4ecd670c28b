// Package climbstore is the authoritative in-memory collection of climbs.
// Every mutation is written through to a storage.Provider before returning.
package climbstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/chalkbook/internal/apperr"
	"github.com/starford/chalkbook/internal/checksum"
	"github.com/starford/chalkbook/internal/grade"
	"github.com/starford/chalkbook/internal/models"
	"github.com/starford/chalkbook/internal/storage"
)

// DefaultKey is the settings key the collection is stored under.
const DefaultKey = "SavedClimbs"

// EventKind names a store change.
type EventKind string

const (
	EventAdded    EventKind = "added"
	EventRemoved  EventKind = "removed"
	EventReloaded EventKind = "reloaded"
)

// Event is delivered to subscribers after a change has been persisted.
// Climb is the zero value for EventReloaded.
type Event struct {
	Kind  EventKind
	Climb models.Climb
}

// Stats bundles the aggregate figures shown alongside the climb list.
type Stats struct {
	Total         int            `json:"total"`
	Highest       string         `json:"highest,omitempty"`
	PerDifficulty map[string]int `json:"per_difficulty"`
}

// Store owns the climb collection.
type Store struct {
	provider storage.Provider
	key      string
	now      func() time.Time
	newID    func() string
	loc      *time.Location
	logger   *slog.Logger

	mu      sync.RWMutex
	climbs  []models.Climb // insertion order
	lastSum string         // checksum of the blob last written or read

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New creates a store over provider and restores any saved collection.
// Missing or undecodable data yields an empty store.
func New(provider storage.Provider, opts ...Option) *Store {
	s := &Store{
		provider: provider,
		key:      DefaultKey,
		now:      time.Now,
		newID:    uuid.NewString,
		loc:      time.Local,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

// Location returns the calendar used for day grouping.
func (s *Store) Location() *time.Location {
	return s.loc
}

func (s *Store) load() {
	data, err := s.provider.Get(s.key)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("climbstore: load failed", slog.String("key", s.key), slog.String("error", err.Error()))
		}
		return
	}
	climbs, err := decode(data)
	if err != nil {
		s.logger.Warn("climbstore: decode failed, starting empty", slog.String("key", s.key), slog.String("error", err.Error()))
		return
	}
	s.climbs = climbs
	s.lastSum = checksum.Sum(data)
}

// persistLocked writes the full collection. Caller holds s.mu.
func (s *Store) persistLocked() {
	data, err := encode(s.climbs)
	if err != nil {
		s.logger.Warn("climbstore: encode failed", slog.String("error", err.Error()))
		return
	}
	if err := s.provider.Set(s.key, data); err != nil {
		s.logger.Warn("climbstore: save failed", slog.String("key", s.key), slog.String("error", err.Error()))
		return
	}
	s.lastSum = checksum.Sum(data)
}

// Add creates a climb with a fresh id, appends it and persists the collection.
// Name and difficulty are stored as given.
func (s *Store) Add(name, difficulty string, opts ...AddOption) models.Climb {
	var p addParams
	for _, opt := range opts {
		opt(&p)
	}
	if !p.hasDate {
		p.date = s.now()
	}
	c := models.Climb{
		ID:         s.newID(),
		Name:       name,
		Difficulty: difficulty,
		Date:       p.date,
		Photo:      p.photo,
	}

	s.mu.Lock()
	s.climbs = append(s.climbs, c)
	s.persistLocked()
	s.mu.Unlock()

	s.publish(Event{Kind: EventAdded, Climb: c.Clone()})
	return c.Clone()
}

// RemoveAt removes the climb at index in insertion order. Out-of-range
// indexes are ignored and nothing is written.
func (s *Store) RemoveAt(index int) {
	s.mu.Lock()
	if index < 0 || index >= len(s.climbs) {
		s.mu.Unlock()
		return
	}
	removed := s.climbs[index]
	s.climbs = slices.Delete(s.climbs, index, index+1)
	s.persistLocked()
	s.mu.Unlock()

	s.publish(Event{Kind: EventRemoved, Climb: removed})
}

// Remove deletes every climb sharing c's id. The collection is persisted
// even when nothing matched.
func (s *Store) Remove(c models.Climb) {
	s.RemoveByID(c.ID)
}

// RemoveByID deletes every climb with the given id and reports whether any
// were found. The collection is persisted either way.
func (s *Store) RemoveByID(id string) bool {
	s.mu.Lock()
	var removed []models.Climb
	s.climbs = slices.DeleteFunc(s.climbs, func(c models.Climb) bool {
		if c.ID == id {
			removed = append(removed, c)
			return true
		}
		return false
	})
	s.persistLocked()
	s.mu.Unlock()

	for _, c := range removed {
		s.publish(Event{Kind: EventRemoved, Climb: c})
	}
	return len(removed) > 0
}

// Get returns the climb with the given id.
func (s *Store) Get(id string) (models.Climb, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.climbs {
		if c.ID == id {
			return c.Clone(), nil
		}
	}
	return models.Climb{}, fmt.Errorf("climb %s: %w", id, apperr.ErrNotFound)
}

// All returns every climb, newest first. Equal dates keep insertion order.
func (s *Store) All() []models.Climb {
	s.mu.RLock()
	out := cloneAll(s.climbs)
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out
}

// OnDate returns the climbs on the same calendar day as t, newest first.
func (s *Store) OnDate(t time.Time) []models.Climb {
	y, m, d := t.In(s.loc).Date()

	s.mu.RLock()
	var out []models.Climb
	for _, c := range s.climbs {
		cy, cm, cd := c.Date.In(s.loc).Date()
		if cy == y && cm == m && cd == d {
			out = append(out, c.Clone())
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	return out
}

// CountsInMonth returns the number of climbs per day of month.
// Days without climbs are absent from the map.
func (s *Store) CountsInMonth(year int, month time.Month) map[int]int {
	out := make(map[int]int)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.climbs {
		cy, cm, cd := c.Date.In(s.loc).Date()
		if cy == year && cm == month {
			out[cd]++
		}
	}
	return out
}

// Count returns the total number of climbs.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.climbs)
}

// HighestDifficulty returns the highest ranked difficulty present, by
// position on grade.Scale. Unknown grades lose to every known one. Among
// equal ranks the first one added wins. ok is false when the store is empty.
func (s *Store) HighestDifficulty() (difficulty string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return highest(s.climbs)
}

func highest(climbs []models.Climb) (string, bool) {
	if len(climbs) == 0 {
		return "", false
	}
	best := climbs[0].Difficulty
	for _, c := range climbs[1:] {
		if grade.Compare(c.Difficulty, best) > 0 {
			best = c.Difficulty
		}
	}
	return best, true
}

// CountsByDifficulty returns the number of climbs per difficulty string.
func (s *Store) CountsByDifficulty() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countsByDifficulty(s.climbs)
}

func countsByDifficulty(climbs []models.Climb) map[string]int {
	out := make(map[string]int)
	for _, c := range climbs {
		out[c.Difficulty]++
	}
	return out
}

// Stats returns total, highest grade and per-grade counts from one snapshot.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, _ := highest(s.climbs)
	return Stats{
		Total:         len(s.climbs),
		Highest:       h,
		PerDifficulty: countsByDifficulty(s.climbs),
	}
}

// Reload re-reads the persisted collection and adopts it when it differs
// from what this store last wrote or read. A missing or undecodable blob
// leaves the in-memory state untouched.
func (s *Store) Reload() (bool, error) {
	// The read must happen under the lock: a mutation landing between the
	// read and the swap would otherwise be replaced by the older blob.
	s.mu.Lock()
	data, err := s.provider.Get(s.key)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("climbstore: reload: %w", err)
	}
	if checksum.Matches(data, s.lastSum) {
		s.mu.Unlock()
		return false, nil
	}
	climbs, err := decode(data)
	if err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("climbstore: reload: %w", err)
	}
	s.climbs = climbs
	s.lastSum = checksum.Sum(data)
	s.mu.Unlock()

	s.publish(Event{Kind: EventReloaded})
	return true, nil
}

func encode(climbs []models.Climb) ([]byte, error) {
	if climbs == nil {
		climbs = []models.Climb{}
	}
	return json.Marshal(climbs)
}

func decode(data []byte) ([]models.Climb, error) {
	var climbs []models.Climb
	if err := json.Unmarshal(data, &climbs); err != nil {
		return nil, err
	}
	return climbs, nil
}

func cloneAll(climbs []models.Climb) []models.Climb {
	out := make([]models.Climb, len(climbs))
	for i, c := range climbs {
		out[i] = c.Clone()
	}
	return out
}

func sortNewestFirst(climbs []models.Climb) {
	slices.SortStableFunc(climbs, func(a, b models.Climb) int {
		return b.Date.Compare(a.Date)
	})
}
