package api

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/chalkbook/internal/climbstore"
	"github.com/starford/chalkbook/internal/grade"
	"github.com/starford/chalkbook/internal/models"
)

const maxPhotoBytes = 10 << 20 // 10 MB decoded

// CreateClimbRequest is the request body for logging a climb.
type CreateClimbRequest struct {
	Name       string `json:"name" example:"The Crimper" validate:"required"`
	Difficulty string `json:"difficulty" example:"6A" validate:"required"`
	Date       string `json:"date,omitempty" example:"2024-01-10"`
	Photo      []byte `json:"photo,omitempty" swaggertype:"string" format:"base64"`
}

// Validate applies the form rules: a non-blank name and a grade from the scale.
func (r *CreateClimbRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.By(notBlank)),
		validation.Field(&r.Difficulty, validation.Required, validation.In(grade.Values()...)),
		validation.Field(&r.Photo, validation.Length(0, maxPhotoBytes)),
	)
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
}

// ClimbResponse is a climb without its photo bytes.
type ClimbResponse struct {
	ID         string    `json:"id" example:"0b6c6c4e-0d0e-4a53-9a43-1f1f8c0d7a11" validate:"required"`
	Name       string    `json:"name" example:"The Crimper" validate:"required"`
	Difficulty string    `json:"difficulty" example:"6A" validate:"required"`
	Date       time.Time `json:"date" validate:"required"`
	HasPhoto   bool      `json:"has_photo"`
	PhotoURL   string    `json:"photo_url,omitempty" example:"/api/climbs/0b6c.../photo"`
}

func toResponse(c models.Climb) ClimbResponse {
	r := ClimbResponse{
		ID:         c.ID,
		Name:       c.Name,
		Difficulty: c.Difficulty,
		Date:       c.Date,
		HasPhoto:   c.HasPhoto(),
	}
	if r.HasPhoto {
		r.PhotoURL = "/api/climbs/" + c.ID + "/photo"
	}
	return r
}

func toResponses(climbs []models.Climb) []ClimbResponse {
	out := make([]ClimbResponse, len(climbs))
	for i, c := range climbs {
		out[i] = toResponse(c)
	}
	return out
}

// ClimbListResponse wraps climb listings.
type ClimbListResponse struct {
	Climbs []ClimbResponse `json:"climbs" validate:"required"`
	Total  int             `json:"total" example:"42" validate:"required"`
}

// StatsResponse is the aggregate statistics payload.
type StatsResponse = climbstore.Stats

// GradesResponse lists the grade scale, easiest first.
type GradesResponse struct {
	Grades []string `json:"grades" validate:"required"`
}

// CalendarCell is one day in a calendar week. Null cells pad the grid.
type CalendarCell struct {
	Date   string `json:"date" example:"2024-01-10"`
	Day    int    `json:"day" example:"10"`
	Climbs int    `json:"climbs" example:"2"`
}

// CalendarResponse is a Sunday-first month grid.
type CalendarResponse struct {
	Month    string             `json:"month" example:"2024-01"`
	Prev     string             `json:"prev" example:"2023-12"`
	Next     string             `json:"next" example:"2024-02"`
	Weekdays []string           `json:"weekdays"`
	Weeks    [][7]*CalendarCell `json:"weeks"`
}
