package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"coursechat/internal/vectorstore"
	"coursechat/models"
)

const (
	catalogCollection = "course_catalog"
	contentCollection = "course_content"
)

// Store is a REST client to Qdrant maintaining the two course collections.
// It assumes cosine distance and creates collections on first use.
type Store struct {
	url           string
	apiKey        string
	dimension     int
	maxResults    int
	minSimilarity float64
	client        *http.Client
}

// Config carries connection settings for the Qdrant backend.
type Config struct {
	URL           string
	APIKey        string
	Dimension     int
	MaxResults    int
	MinSimilarity float64
	Timeout       time.Duration
}

// New creates the client and ensures both collections exist.
func New(cfg Config) (*Store, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	s := &Store{
		url:           cfg.URL,
		apiKey:        cfg.APIKey,
		dimension:     cfg.Dimension,
		maxResults:    cfg.MaxResults,
		minSimilarity: cfg.MinSimilarity,
		client:        &http.Client{Timeout: timeout},
	}
	for _, coll := range []string{catalogCollection, contentCollection} {
		if err := s.ensureCollection(coll); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) ensureCollection(name string) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 when the collection already exists with the same
	// schema, so this doubles as an existence check.
	return s.do(context.Background(), http.MethodPut, fmt.Sprintf("/collections/%s", name), body, nil)
}

// pointID derives a stable UUID from a logical key, since Qdrant only
// accepts UUID or integer point ids. Re-upserting the same key overwrites.
func pointID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// embedded pairs the raw client with an embedder so it satisfies the full
// vectorstore.Store contract.
type embedded struct {
	*Store
	embedder vectorstore.Embedder
}

// Wrap pairs the Qdrant client with an embedder, producing a complete
// vectorstore.Store.
func Wrap(s *Store, embedder vectorstore.Embedder) vectorstore.Store {
	return &embedded{Store: s, embedder: embedder}
}

func (s *embedded) AddCourseMetadata(ctx context.Context, course models.Course) error {
	vecs, err := s.embedder.CreateEmbedding(ctx, []string{course.Title})
	if err != nil {
		return fmt.Errorf("embedding catalog entry: %w", err)
	}
	courseJSON, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("marshaling course: %w", err)
	}
	body := map[string]any{
		"points": []map[string]any{{
			"id":     pointID("catalog:" + course.Title),
			"vector": vecs[0],
			"payload": map[string]any{
				"title":  course.Title,
				"course": json.RawMessage(courseJSON),
			},
		}},
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", catalogCollection), body, nil)
}

func (s *embedded) AddCourseContent(ctx context.Context, chunks []models.CourseChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := s.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding content chunks: %w", err)
	}
	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		points[i] = map[string]any{
			"id":     pointID("content:" + c.ID()),
			"vector": vecs[i],
			"payload": map[string]any{
				"chunk_id":      c.ID(),
				"content":       c.Content,
				"course_title":  c.CourseTitle,
				"lesson_number": c.LessonNumber,
				"chunk_index":   c.ChunkIndex,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", contentCollection), body, nil)
}

func (s *embedded) ResolveCourseName(ctx context.Context, name string) (string, error) {
	vecs, err := s.embedder.CreateEmbedding(ctx, []string{name})
	if err != nil {
		return "", fmt.Errorf("embedding course name: %w", err)
	}
	req := map[string]any{
		"vector":          vecs[0],
		"limit":           1,
		"with_payload":    true,
		"score_threshold": s.minSimilarity,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", catalogCollection), req, &resp); err != nil {
		return "", err
	}
	if len(resp.Result) == 0 {
		return "", vectorstore.ErrCourseNotFound
	}
	title, _ := resp.Result[0].Payload["title"].(string)
	if title == "" {
		return "", vectorstore.ErrCourseNotFound
	}
	return title, nil
}

func (s *embedded) Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) (vectorstore.SearchResults, error) {
	title := ""
	if courseName != "" {
		resolved, err := s.ResolveCourseName(ctx, courseName)
		if err == vectorstore.ErrCourseNotFound {
			return vectorstore.ErrorResults("No course found matching '%s'", courseName), nil
		}
		if err != nil {
			return vectorstore.SearchResults{}, err
		}
		title = resolved
	}

	vecs, err := s.embedder.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return vectorstore.SearchResults{}, fmt.Errorf("embedding query: %w", err)
	}
	if limit <= 0 {
		limit = s.maxResults
	}

	var must []map[string]any
	if title != "" {
		must = append(must, map[string]any{"key": "course_title", "match": map[string]any{"value": title}})
	}
	if lessonNumber != nil {
		must = append(must, map[string]any{"key": "lesson_number", "match": map[string]any{"value": *lessonNumber}})
	}
	req := map[string]any{
		"vector":       vecs[0],
		"limit":        limit,
		"with_payload": true,
	}
	if len(must) > 0 {
		req["filter"] = map[string]any{"must": must}
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", contentCollection), req, &resp); err != nil {
		return vectorstore.SearchResults{}, err
	}

	var results vectorstore.SearchResults
	for _, r := range resp.Result {
		content, _ := r.Payload["content"].(string)
		courseTitle, _ := r.Payload["course_title"].(string)
		lesson := -1
		if v, ok := r.Payload["lesson_number"].(float64); ok {
			lesson = int(v)
		}
		index := 0
		if v, ok := r.Payload["chunk_index"].(float64); ok {
			index = int(v)
		}
		results.Documents = append(results.Documents, content)
		results.Metadata = append(results.Metadata, vectorstore.ChunkMetadata{
			CourseTitle:  courseTitle,
			LessonNumber: lesson,
			ChunkIndex:   index,
		})
		// Qdrant reports cosine similarity; callers expect distance.
		results.Distances = append(results.Distances, 1-r.Score)
	}
	return results, nil
}

func (s *embedded) ExistingCourseTitles(ctx context.Context) ([]string, error) {
	courses, err := s.AllCoursesMetadata(ctx)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(courses))
	for _, c := range courses {
		titles = append(titles, c.Title)
	}
	return titles, nil
}

func (s *embedded) CourseCount(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/count", catalogCollection), map[string]any{"exact": true}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *embedded) AllCoursesMetadata(ctx context.Context) ([]models.Course, error) {
	req := map[string]any{
		"limit":        1000,
		"with_payload": true,
	}
	var resp struct {
		Result struct {
			Points []struct {
				Payload struct {
					Course json.RawMessage `json:"course"`
				} `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/scroll", catalogCollection), req, &resp); err != nil {
		return nil, err
	}
	courses := make([]models.Course, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		var c models.Course
		if err := json.Unmarshal(p.Payload.Course, &c); err != nil {
			continue
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func (s *embedded) CourseMetadata(ctx context.Context, title string) (models.Course, error) {
	courses, err := s.AllCoursesMetadata(ctx)
	if err != nil {
		return models.Course{}, err
	}
	for _, c := range courses {
		if c.Title == title {
			return c, nil
		}
	}
	return models.Course{}, vectorstore.ErrCourseNotFound
}

func (s *embedded) ClearCourse(ctx context.Context, title string) error {
	catalogFilter := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{{"key": "title", "match": map[string]any{"value": title}}},
		},
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", catalogCollection), catalogFilter, nil); err != nil {
		return err
	}
	contentFilter := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{{"key": "course_title", "match": map[string]any{"value": title}}},
		},
	}
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", contentCollection), contentFilter, nil)
}

func (s *embedded) ClearAll(ctx context.Context) error {
	for _, coll := range []string{catalogCollection, contentCollection} {
		if err := s.do(ctx, http.MethodDelete, fmt.Sprintf("/collections/%s", coll), nil, nil); err != nil {
			return err
		}
		if err := s.ensureCollection(coll); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
	}
	return nil
}
