package climbstore

import (
	"log/slog"
	"time"
)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for climbs added without a date.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// WithLocation sets the calendar used for day grouping. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithKey sets the settings key the collection is stored under.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used to report swallowed persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// AddOption sets optional fields of a climb being added.
type AddOption func(*addParams)

type addParams struct {
	date    time.Time
	hasDate bool
	photo   []byte
}

// WithDate sets the climb date. Without it the store clock is used.
func WithDate(t time.Time) AddOption {
	return func(p *addParams) {
		p.date = t
		p.hasDate = true
	}
}

// WithPhoto attaches a photo. The bytes are copied; an empty slice means no photo.
func WithPhoto(photo []byte) AddOption {
	return func(p *addParams) {
		if len(photo) == 0 {
			p.photo = nil
			return
		}
		p.photo = append([]byte(nil), photo...)
	}
}
