package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chalkbook/internal/apperr"
	"github.com/starford/chalkbook/internal/calendar"
	"github.com/starford/chalkbook/internal/climbstore"
	"github.com/starford/chalkbook/internal/grade"
)

const maxBodyBytes = 16 << 20 // base64 photo plus fields

// Handler holds API route handlers.
type Handler struct {
	store *climbstore.Store
}

// NewHandler creates a new Handler.
func NewHandler(store *climbstore.Store) *Handler {
	return &Handler{store: store}
}

// ListClimbs handles GET /api/climbs.
//
//	@Summary		List all climbs, newest first
//	@Tags			climbs
//	@Produce		json
//	@Success		200	{object}	ClimbListResponse
//	@Security		BearerAuth
//	@Router			/climbs [get]
func (h *Handler) ListClimbs(w http.ResponseWriter, _ *http.Request) {
	climbs := h.store.All()
	writeJSON(w, http.StatusOK, ClimbListResponse{
		Climbs: toResponses(climbs),
		Total:  len(climbs),
	})
}

// CreateClimb handles POST /api/climbs.
//
//	@Summary		Log a climb
//	@Tags			climbs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateClimbRequest	true	"Climb to log"
//	@Success		201		{object}	ClimbResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/climbs [post]
func (h *Handler) CreateClimb(w http.ResponseWriter, r *http.Request) {
	var req CreateClimbRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var opts []climbstore.AddOption
	if req.Date != "" {
		date, err := calendar.ParseDate(req.Date, h.store.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be RFC 3339 or YYYY-MM-DD")
			return
		}
		opts = append(opts, climbstore.WithDate(date))
	}
	if len(req.Photo) > 0 {
		opts = append(opts, climbstore.WithPhoto(req.Photo))
	}

	c := h.store.Add(req.Name, req.Difficulty, opts...)
	writeJSON(w, http.StatusCreated, toResponse(c))
}

// GetClimb handles GET /api/climbs/{id}.
//
//	@Summary		Get a single climb
//	@Tags			climbs
//	@Produce		json
//	@Param			id	path		string	true	"Climb ID"
//	@Success		200	{object}	ClimbResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/climbs/{id} [get]
func (h *Handler) GetClimb(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.store.Get(id)
	if err != nil {
		if errorStatus(err) == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			slog.Error("get climb failed", slog.String("id", id), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, toResponse(c))
}

// ClimbPhoto handles GET /api/climbs/{id}/photo.
//
//	@Summary		Get a climb's photo
//	@Tags			climbs
//	@Produce		image/png,image/jpeg,image/gif,image/webp
//	@Param			id	path		string	true	"Climb ID"
//	@Success		200	{file}		binary
//	@Failure		404	"Climb or photo not found"
//	@Security		BearerAuth
//	@Router			/climbs/{id}/photo [get]
func (h *Handler) ClimbPhoto(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil || !c.HasPhoto() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(c.Photo))
	w.Header().Set("Content-Length", strconv.Itoa(len(c.Photo)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(c.Photo)
}

// DeleteClimb handles DELETE /api/climbs/{id}.
//
//	@Summary		Delete a climb
//	@Tags			climbs
//	@Param			id	path	string	true	"Climb ID"
//	@Success		204	"Climb deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/climbs/{id} [delete]
func (h *Handler) DeleteClimb(w http.ResponseWriter, r *http.Request) {
	if !h.store.RemoveByID(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteClimbAt handles DELETE /api/climbs/at/{index}. The index refers to
// insertion order; out-of-range indexes are ignored.
//
//	@Summary		Delete a climb by position
//	@Tags			climbs
//	@Param			index	path	int	true	"Zero-based position in insertion order"
//	@Success		204		"Climb deleted, or index out of range"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/climbs/at/{index} [delete]
func (h *Handler) DeleteClimbAt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	h.store.RemoveAt(index)
	w.WriteHeader(http.StatusNoContent)
}

// ClimbsOnDay handles GET /api/days/{date}.
//
//	@Summary		Climbs logged on a calendar day
//	@Tags			calendar
//	@Produce		json
//	@Param			date	path		string	true	"Day (YYYY-MM-DD)"
//	@Success		200		{object}	ClimbListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/{date} [get]
func (h *Handler) ClimbsOnDay(w http.ResponseWriter, r *http.Request) {
	d, err := calendar.ParseDay(chi.URLParam(r, "date"), h.store.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	climbs := h.store.OnDate(d)
	writeJSON(w, http.StatusOK, ClimbListResponse{
		Climbs: toResponses(climbs),
		Total:  len(climbs),
	})
}

// Calendar handles GET /api/calendar/{month}.
//
//	@Summary		Month grid with per-day climb counts
//	@Tags			calendar
//	@Produce		json
//	@Param			month	path		string	true	"Month (YYYY-MM)"
//	@Success		200		{object}	CalendarResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar/{month} [get]
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	year, month, err := calendar.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}
	m := calendar.Build(year, month, h.store.Location(), h.store)

	resp := CalendarResponse{
		Month:    monthKey(m.Year, m.Month),
		Prev:     monthKey(calendar.Prev(m.Year, m.Month)),
		Next:     monthKey(calendar.Next(m.Year, m.Month)),
		Weekdays: calendar.Weekdays,
		Weeks:    make([][7]*CalendarCell, len(m.Weeks)),
	}
	for i, week := range m.Weeks {
		for j, c := range week {
			if c == nil {
				continue
			}
			resp.Weeks[i][j] = &CalendarCell{
				Date:   c.Date.Format(time.DateOnly),
				Day:    c.Day,
				Climbs: c.Climbs,
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// Stats handles GET /api/stats.
//
//	@Summary		Total climbs, highest grade and per-grade counts
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// Grades handles GET /api/grades.
//
//	@Summary		Ordered grade scale
//	@Tags			grades
//	@Produce		json
//	@Success		200	{object}	GradesResponse
//	@Security		BearerAuth
//	@Router			/grades [get]
func (h *Handler) Grades(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, GradesResponse{Grades: grade.Scale})
}

// errorStatus maps sentinel errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
