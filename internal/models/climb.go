// Package models defines the domain types for Chalkbook.
package models

import "time"

// Climb is a single logged bouldering ascent.
type Climb struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Difficulty string    `json:"difficulty"`
	Date       time.Time `json:"date"`
	Photo      []byte    `json:"photo,omitempty"` // base64 in JSON
}

// HasPhoto reports whether the climb carries a photo.
func (c Climb) HasPhoto() bool {
	return len(c.Photo) > 0
}

// Clone returns a copy that does not share the photo buffer.
func (c Climb) Clone() Climb {
	if c.Photo != nil {
		c.Photo = append([]byte(nil), c.Photo...)
	}
	return c
}
