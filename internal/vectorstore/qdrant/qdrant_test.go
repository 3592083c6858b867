package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"coursechat/internal/vectorstore"
	"coursechat/internal/vectorstore/vectortest"
	"coursechat/models"
)

// recordedRequest captures one call against the fake qdrant server.
type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeQdrant serves scripted responses keyed by "METHOD path" and records
// every request for assertion.
type fakeQdrant struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]any
}

func (f *fakeQdrant) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&body)
		}
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		resp, ok := f.responses[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			resp = map[string]any{"status": "ok"}
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func (f *fakeQdrant) find(method, path string) (recordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			return r, true
		}
	}
	return recordedRequest{}, false
}

func newFakeStore(t *testing.T, fake *fakeQdrant) vectorstore.Store {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	raw, err := New(Config{URL: srv.URL, Dimension: 8, MaxResults: 5, MinSimilarity: 0.3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return Wrap(raw, vectortest.NewTokenEmbedder())
}

func TestNewEnsuresBothCollections(t *testing.T) {
	fake := &fakeQdrant{}
	newFakeStore(t, fake)

	for _, coll := range []string{"course_catalog", "course_content"} {
		req, ok := fake.find(http.MethodPut, "/collections/"+coll)
		if !ok {
			t.Fatalf("collection %s not created", coll)
		}
		vectors, _ := req.Body["vectors"].(map[string]any)
		if vectors["distance"] != "Cosine" {
			t.Fatalf("expected cosine distance for %s, got %v", coll, vectors["distance"])
		}
	}
}

func TestAddCourseMetadataUpsertsCatalogPoint(t *testing.T) {
	fake := &fakeQdrant{}
	store := newFakeStore(t, fake)

	course := models.Course{Title: "Intro to Vectors", Link: "https://example.com/vectors"}
	if err := store.AddCourseMetadata(context.Background(), course); err != nil {
		t.Fatalf("AddCourseMetadata: %v", err)
	}

	req, ok := fake.find(http.MethodPut, "/collections/course_catalog/points")
	if !ok {
		t.Fatal("no catalog upsert request")
	}
	points, _ := req.Body["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	point := points[0].(map[string]any)
	id, _ := point["id"].(string)
	if len(id) != 36 || strings.Count(id, "-") != 4 {
		t.Fatalf("point id must be a uuid, got %q", id)
	}
	payload := point["payload"].(map[string]any)
	if payload["title"] != "Intro to Vectors" {
		t.Fatalf("unexpected payload title %v", payload["title"])
	}
}

func TestAddCourseContentDerivesStableIDs(t *testing.T) {
	fake := &fakeQdrant{}
	store := newFakeStore(t, fake)

	chunks := []models.CourseChunk{{Content: "chunk text", CourseTitle: "Intro to Vectors", LessonNumber: 1, ChunkIndex: 0}}
	if err := store.AddCourseContent(context.Background(), chunks); err != nil {
		t.Fatalf("AddCourseContent: %v", err)
	}
	first, ok := fake.find(http.MethodPut, "/collections/course_content/points")
	if !ok {
		t.Fatal("no content upsert request")
	}
	firstID := first.Body["points"].([]any)[0].(map[string]any)["id"]

	// Re-ingesting the same chunk must hit the same point id, so the
	// upsert overwrites instead of duplicating.
	fake.mu.Lock()
	fake.requests = nil
	fake.mu.Unlock()
	if err := store.AddCourseContent(context.Background(), chunks); err != nil {
		t.Fatalf("AddCourseContent: %v", err)
	}
	second, _ := fake.find(http.MethodPut, "/collections/course_content/points")
	secondID := second.Body["points"].([]any)[0].(map[string]any)["id"]
	if firstID != secondID {
		t.Fatalf("same chunk produced different ids: %v vs %v", firstID, secondID)
	}
	payload := second.Body["points"].([]any)[0].(map[string]any)["payload"].(map[string]any)
	if payload["chunk_id"] != "Intro to Vectors_1_0" {
		t.Fatalf("unexpected chunk_id %v", payload["chunk_id"])
	}
}

func TestResolveCourseNameUsesScoreThreshold(t *testing.T) {
	fake := &fakeQdrant{responses: map[string]any{
		"POST /collections/course_catalog/points/search": map[string]any{
			"result": []map[string]any{{"score": 0.82, "payload": map[string]any{"title": "Intro to Vectors"}}},
		},
	}}
	store := newFakeStore(t, fake)

	title, err := store.ResolveCourseName(context.Background(), "vectors intro")
	if err != nil {
		t.Fatalf("ResolveCourseName: %v", err)
	}
	if title != "Intro to Vectors" {
		t.Fatalf("unexpected title %q", title)
	}
	req, _ := fake.find(http.MethodPost, "/collections/course_catalog/points/search")
	if req.Body["score_threshold"] != 0.3 {
		t.Fatalf("similarity cutoff not forwarded: %v", req.Body["score_threshold"])
	}
	if req.Body["limit"] != float64(1) {
		t.Fatalf("resolution must be top-1, got limit %v", req.Body["limit"])
	}
}

func TestResolveCourseNameNotFound(t *testing.T) {
	fake := &fakeQdrant{responses: map[string]any{
		"POST /collections/course_catalog/points/search": map[string]any{"result": []any{}},
	}}
	store := newFakeStore(t, fake)

	_, err := store.ResolveCourseName(context.Background(), "Thermodynamics")
	if err != vectorstore.ErrCourseNotFound {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestSearchSendsANDFilters(t *testing.T) {
	fake := &fakeQdrant{responses: map[string]any{
		"POST /collections/course_catalog/points/search": map[string]any{
			"result": []map[string]any{{"score": 0.9, "payload": map[string]any{"title": "Intro to Vectors"}}},
		},
		"POST /collections/course_content/points/search": map[string]any{
			"result": []map[string]any{{
				"score": 0.8,
				"payload": map[string]any{
					"content":       "lesson text",
					"course_title":  "Intro to Vectors",
					"lesson_number": 2,
					"chunk_index":   0,
				},
			}},
		},
	}}
	store := newFakeStore(t, fake)

	lesson := 2
	results, err := store.Search(context.Background(), "dot products", "vectors", &lesson, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results.Error != "" || len(results.Documents) != 1 {
		t.Fatalf("unexpected results %+v", results)
	}
	if results.Metadata[0].CourseTitle != "Intro to Vectors" || results.Metadata[0].LessonNumber != 2 {
		t.Fatalf("unexpected metadata %+v", results.Metadata[0])
	}
	// Qdrant scores are similarities; callers see distances.
	if results.Distances[0] != 1-0.8 {
		t.Fatalf("score not converted to distance: %v", results.Distances[0])
	}

	req, _ := fake.find(http.MethodPost, "/collections/course_content/points/search")
	filter, _ := req.Body["filter"].(map[string]any)
	must, _ := filter["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("expected 2 AND clauses, got %v", filter)
	}
	keys := map[string]any{}
	for _, clause := range must {
		m := clause.(map[string]any)
		keys[m["key"].(string)] = m["match"].(map[string]any)["value"]
	}
	if keys["course_title"] != "Intro to Vectors" || keys["lesson_number"] != float64(2) {
		t.Fatalf("unexpected filter clauses %v", keys)
	}
}

func TestSearchUnresolvableCourseYieldsErrorStatus(t *testing.T) {
	fake := &fakeQdrant{responses: map[string]any{
		"POST /collections/course_catalog/points/search": map[string]any{"result": []any{}},
	}}
	store := newFakeStore(t, fake)

	results, err := store.Search(context.Background(), "anything", "Ghost Course", nil, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results.Error != "No course found matching 'Ghost Course'" {
		t.Fatalf("unexpected error status %q", results.Error)
	}
	if _, hit := fake.find(http.MethodPost, "/collections/course_content/points/search"); hit {
		t.Fatal("content search must not run when the course is unresolvable")
	}
}

func TestClearCourseDeletesFromBothCollections(t *testing.T) {
	fake := &fakeQdrant{}
	store := newFakeStore(t, fake)

	if err := store.ClearCourse(context.Background(), "Intro to Vectors"); err != nil {
		t.Fatalf("ClearCourse: %v", err)
	}
	for _, coll := range []string{"course_catalog", "course_content"} {
		if _, ok := fake.find(http.MethodPost, "/collections/"+coll+"/points/delete"); !ok {
			t.Fatalf("no delete issued against %s", coll)
		}
	}
}

func TestServerErrorSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Let collection creation succeed, fail everything else.
		if r.Method == http.MethodPut && strings.Count(r.URL.Path, "/") == 2 {
			json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
			return
		}
		http.Error(w, "out of disk", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	raw, err := New(Config{URL: srv.URL, Dimension: 8, MaxResults: 5, MinSimilarity: 0.3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store := Wrap(raw, vectortest.NewTokenEmbedder())

	err = store.AddCourseMetadata(context.Background(), models.Course{Title: "X"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("status not surfaced: %v", err)
	}
}
