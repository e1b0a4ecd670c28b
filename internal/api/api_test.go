package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/chalkbook/internal/climbstore"
	"github.com/starford/chalkbook/internal/testutil"
)

// testEnv sets up an in-memory store and router. A non-empty authToken
// enables token mode.
func testEnv(t *testing.T, authToken string) (*climbstore.Store, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (*climbstore.Store, http.Handler) {
	t.Helper()
	store := testutil.TestStore(t, nil)
	return store, NewRouter(store, authEnabled, token, sseHandler)
}

func postClimb(t *testing.T, router http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/climbs", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetClimb(t *testing.T) {
	_, router := testEnv(t, "")

	w := postClimb(t, router, map[string]string{"name": "The Crimper", "difficulty": "6A", "date": "2024-01-10"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created ClimbResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.ID == "" {
		t.Fatal("expected id")
	}
	if !created.Date.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", created.Date)
	}

	w = get(router, "/climbs/"+created.ID)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got ClimbResponse
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Name != "The Crimper" || got.Difficulty != "6A" {
		t.Errorf("got %+v", got)
	}
	if got.HasPhoto {
		t.Error("climb without photo reports has_photo")
	}
}

func TestCreateClimb_RFC3339Date(t *testing.T) {
	store, router := testEnv(t, "")
	w := postClimb(t, router, map[string]string{"name": "Roof", "difficulty": "5C", "date": "2024-01-11T18:30:00Z"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	all := store.All()
	if len(all) != 1 || !all[0].Date.Equal(time.Date(2024, 1, 11, 18, 30, 0, 0, time.UTC)) {
		t.Errorf("stored = %+v", all)
	}
}

func TestCreateClimb_Rejections(t *testing.T) {
	store, router := testEnv(t, "")

	cases := []struct {
		name string
		body map[string]string
	}{
		{"blank name", map[string]string{"name": "   ", "difficulty": "6A"}},
		{"empty name", map[string]string{"name": "", "difficulty": "6A"}},
		{"missing grade", map[string]string{"name": "x"}},
		{"unknown grade", map[string]string{"name": "x", "difficulty": "Z9"}},
		{"bad date", map[string]string{"name": "x", "difficulty": "6A", "date": "10/01/2024"}},
	}
	for _, tc := range cases {
		w := postClimb(t, router, tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, w.Code)
		}
	}
	if store.Count() != 0 {
		t.Errorf("rejected requests must not reach the store, count = %d", store.Count())
	}

	req := httptest.NewRequest(http.MethodPost, "/climbs", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", w.Code)
	}
}

func TestPhotoUploadAndServe(t *testing.T) {
	_, router := testEnv(t, "")
	png := []byte("\x89PNG\r\n\x1a\n0000")

	w := postClimb(t, router, map[string]any{"name": "Slab", "difficulty": "4C", "photo": png})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	var created ClimbResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if !created.HasPhoto || created.PhotoURL == "" {
		t.Fatalf("expected photo url, got %+v", created)
	}

	w = get(router, "/climbs/"+created.ID+"/photo")
	if w.Code != http.StatusOK {
		t.Fatalf("photo = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), png) {
		t.Error("photo bytes mismatch")
	}
}

func TestPhoto_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := postClimb(t, router, map[string]string{"name": "NoPic", "difficulty": "4A"})
	var created ClimbResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	if w := get(router, "/climbs/"+created.ID+"/photo"); w.Code != http.StatusNotFound {
		t.Errorf("photo of climb without photo = %d, want 404", w.Code)
	}
	if w := get(router, "/climbs/ghost/photo"); w.Code != http.StatusNotFound {
		t.Errorf("photo of missing climb = %d, want 404", w.Code)
	}
}

func TestListClimbs_NewestFirst(t *testing.T) {
	_, router := testEnv(t, "")
	for _, c := range []struct{ name, date string }{
		{"old", "2024-01-01"},
		{"new", "2024-03-01"},
		{"mid", "2024-02-01"},
	} {
		postClimb(t, router, map[string]string{"name": c.name, "difficulty": "5A", "date": c.date})
	}

	w := get(router, "/climbs")
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp ClimbListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 3 {
		t.Fatalf("total = %d, want 3", resp.Total)
	}
	order := []string{resp.Climbs[0].Name, resp.Climbs[1].Name, resp.Climbs[2].Name}
	if fmt.Sprint(order) != "[new mid old]" {
		t.Errorf("order = %v", order)
	}
}

func TestDeleteClimb(t *testing.T) {
	_, router := testEnv(t, "")
	w := postClimb(t, router, map[string]string{"name": "bye", "difficulty": "4A"})
	var created ClimbResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	req := httptest.NewRequest(http.MethodDelete, "/climbs/"+created.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}

	if w := get(router, "/climbs/"+created.ID); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/climbs/"+created.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestDeleteClimbAt(t *testing.T) {
	store, router := testEnv(t, "")
	postClimb(t, router, map[string]string{"name": "first", "difficulty": "4A", "date": "2024-02-01"})
	postClimb(t, router, map[string]string{"name": "second", "difficulty": "4A", "date": "2024-01-01"})

	for _, idx := range []string{"5", "-1"} {
		req := httptest.NewRequest(http.MethodDelete, "/climbs/at/"+idx, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Errorf("out of range %s = %d, want 204", idx, w.Code)
		}
	}
	if store.Count() != 2 {
		t.Fatalf("out-of-range removal changed count to %d", store.Count())
	}

	req := httptest.NewRequest(http.MethodDelete, "/climbs/at/0", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete at 0 = %d", w.Code)
	}
	all := store.All()
	if len(all) != 1 || all[0].Name != "second" {
		t.Errorf("remaining = %+v, want only second", all)
	}

	req = httptest.NewRequest(http.MethodDelete, "/climbs/at/abc", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-integer index = %d, want 400", w.Code)
	}
}

func TestClimbsOnDay(t *testing.T) {
	_, router := testEnv(t, "")
	postClimb(t, router, map[string]string{"name": "The Crimper", "difficulty": "6A", "date": "2024-01-10T10:00:00Z"})
	postClimb(t, router, map[string]string{"name": "Slopers #3", "difficulty": "7B", "date": "2024-01-10T11:00:00Z"})
	postClimb(t, router, map[string]string{"name": "Roof", "difficulty": "5C", "date": "2024-01-11T10:00:00Z"})

	w := get(router, "/days/2024-01-10")
	if w.Code != http.StatusOK {
		t.Fatalf("day = %d", w.Code)
	}
	var resp ClimbListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || resp.Climbs[0].Name != "Slopers #3" || resp.Climbs[1].Name != "The Crimper" {
		t.Errorf("day climbs = %+v", resp.Climbs)
	}

	if w := get(router, "/days/not-a-day"); w.Code != http.StatusBadRequest {
		t.Errorf("bad day = %d, want 400", w.Code)
	}
}

func TestCalendar(t *testing.T) {
	_, router := testEnv(t, "")
	postClimb(t, router, map[string]string{"name": "a", "difficulty": "6A", "date": "2024-01-10"})
	postClimb(t, router, map[string]string{"name": "b", "difficulty": "6A", "date": "2024-01-10"})

	w := get(router, "/calendar/2024-01")
	if w.Code != http.StatusOK {
		t.Fatalf("calendar = %d", w.Code)
	}
	var resp CalendarResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Month != "2024-01" || resp.Prev != "2023-12" || resp.Next != "2024-02" {
		t.Errorf("navigation = %s %s %s", resp.Prev, resp.Month, resp.Next)
	}
	if len(resp.Weeks) != 5 || len(resp.Weekdays) != 7 {
		t.Fatalf("weeks = %d, weekdays = %d", len(resp.Weeks), len(resp.Weekdays))
	}
	// 2024-01-10 is the Wednesday of the second row.
	cell := resp.Weeks[1][3]
	if cell == nil || cell.Day != 10 || cell.Climbs != 2 {
		t.Errorf("cell = %+v, want day 10 with 2 climbs", cell)
	}
	if resp.Weeks[0][0] != nil {
		t.Error("leading padding cell should be null")
	}

	if w := get(router, "/calendar/2024-13"); w.Code != http.StatusBadRequest {
		t.Errorf("bad month = %d, want 400", w.Code)
	}
}

func TestStats(t *testing.T) {
	_, router := testEnv(t, "")
	for _, g := range []string{"6A", "7B", "5C"} {
		postClimb(t, router, map[string]string{"name": "c", "difficulty": g})
	}

	w := get(router, "/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("stats = %d", w.Code)
	}
	var resp StatsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 3 || resp.Highest != "7B" {
		t.Errorf("stats = %+v", resp)
	}
	if resp.PerDifficulty["6A"] != 1 || resp.PerDifficulty["5C"] != 1 {
		t.Errorf("per difficulty = %v", resp.PerDifficulty)
	}
}

func TestStats_Empty(t *testing.T) {
	_, router := testEnv(t, "")
	w := get(router, "/stats")
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if _, ok := resp["highest"]; ok {
		t.Errorf("empty store should omit highest, got %v", resp)
	}
}

func TestGrades(t *testing.T) {
	_, router := testEnv(t, "")
	w := get(router, "/grades")
	var resp GradesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Grades) != 22 || resp.Grades[0] != "4A" || resp.Grades[21] != "9A" {
		t.Errorf("grades = %v", resp.Grades)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	raw, _ := json.Marshal(map[string]string{"name": "auth", "difficulty": "4A"})
	req := httptest.NewRequest(http.MethodPost, "/climbs", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := get(router, "/climbs"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/climbs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_QueryTokenOnlyForGET(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := get(router, "/climbs?access_token=secret123"); w.Code != http.StatusOK {
		t.Errorf("GET with query token = %d, want 200", w.Code)
	}

	raw, _ := json.Marshal(map[string]string{"name": "x", "difficulty": "4A"})
	req := httptest.NewRequest(http.MethodPost, "/climbs?access_token=secret123", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST with query token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	if w := get(router, "/climbs"); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func sseStub() http.Handler {
	// Writes headers and blocks until the request context is done.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", sseStub())
	if w := get(router, "/events"); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE without token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestSSEEvents_NotMountedWithoutHandler(t *testing.T) {
	_, router := testEnv(t, "")
	if w := get(router, "/events"); w.Code != http.StatusNotFound {
		t.Errorf("events without handler = %d, want 404", w.Code)
	}
}
