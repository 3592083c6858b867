package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"coursechat/internal/vectorstore"
	"coursechat/models"
)

type catalogEntry struct {
	title  string
	vector []float32
	course models.Course
}

type contentEntry struct {
	id     string
	vector []float32
	chunk  models.CourseChunk
}

// Store is an in-memory dual-collection vector store using brute-force
// cosine similarity. It exists for small corpora and for tests, and is safe
// for concurrent use.
type Store struct {
	embedder      vectorstore.Embedder
	maxResults    int
	minSimilarity float64

	mu      sync.RWMutex
	catalog []catalogEntry
	content []contentEntry
}

// New creates a store. maxResults bounds search output when callers pass no
// limit; minSimilarity is the course-name resolution cutoff.
func New(embedder vectorstore.Embedder, maxResults int, minSimilarity float64) *Store {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Store{embedder: embedder, maxResults: maxResults, minSimilarity: minSimilarity}
}

func (s *Store) AddCourseMetadata(ctx context.Context, course models.Course) error {
	vecs, err := s.embedder.CreateEmbedding(ctx, []string{course.Title})
	if err != nil {
		return fmt.Errorf("embedding catalog entry: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.catalog {
		if s.catalog[i].title == course.Title {
			s.catalog[i] = catalogEntry{title: course.Title, vector: vecs[0], course: course}
			return nil
		}
	}
	s.catalog = append(s.catalog, catalogEntry{title: course.Title, vector: vecs[0], course: course})
	return nil
}

func (s *Store) AddCourseContent(ctx context.Context, chunks []models.CourseChunk) error {
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
	if len(vecs) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(chunks))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range chunks {
		entry := contentEntry{id: c.ID(), vector: vecs[i], chunk: c}
		replaced := false
		for j := range s.content {
			if s.content[j].id == entry.id {
				s.content[j] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			s.content = append(s.content, entry)
		}
	}
	return nil
}

func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, error) {
	vecs, err := s.embedder.CreateEmbedding(ctx, []string{name})
	if err != nil {
		return "", fmt.Errorf("embedding course name: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	best := ""
	bestScore := math.Inf(-1)
	for _, e := range s.catalog {
		if score := cosine(vecs[0], e.vector); score > bestScore {
			best, bestScore = e.title, score
		}
	}
	if best == "" || bestScore < s.minSimilarity {
		return "", vectorstore.ErrCourseNotFound
	}
	return best, nil
}

func (s *Store) Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) (vectorstore.SearchResults, error) {
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

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entry    contentEntry
		distance float64
	}
	var hits []scored
	for _, e := range s.content {
		if title != "" && e.chunk.CourseTitle != title {
			continue
		}
		if lessonNumber != nil && e.chunk.LessonNumber != *lessonNumber {
			continue
		}
		hits = append(hits, scored{entry: e, distance: 1 - cosine(vecs[0], e.vector)})
	}
	// Stable sort keeps insertion order for equal distances, which makes
	// result ordering deterministic in tests.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	var results vectorstore.SearchResults
	for _, h := range hits {
		results.Documents = append(results.Documents, h.entry.chunk.Content)
		results.Metadata = append(results.Metadata, vectorstore.ChunkMetadata{
			CourseTitle:  h.entry.chunk.CourseTitle,
			LessonNumber: h.entry.chunk.LessonNumber,
			ChunkIndex:   h.entry.chunk.ChunkIndex,
		})
		results.Distances = append(results.Distances, h.distance)
	}
	return results, nil
}

func (s *Store) ExistingCourseTitles(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	titles := make([]string, 0, len(s.catalog))
	for _, e := range s.catalog {
		titles = append(titles, e.title)
	}
	return titles, nil
}

func (s *Store) CourseCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.catalog), nil
}

func (s *Store) AllCoursesMetadata(ctx context.Context) ([]models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	courses := make([]models.Course, 0, len(s.catalog))
	for _, e := range s.catalog {
		courses = append(courses, e.course)
	}
	return courses, nil
}

func (s *Store) CourseMetadata(ctx context.Context, title string) (models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.catalog {
		if e.title == title {
			return e.course, nil
		}
	}
	return models.Course{}, vectorstore.ErrCourseNotFound
}

func (s *Store) ClearCourse(ctx context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	catalog := s.catalog[:0]
	for _, e := range s.catalog {
		if e.title != title {
			catalog = append(catalog, e)
		}
	}
	s.catalog = catalog
	content := s.content[:0]
	for _, e := range s.content {
		if e.chunk.CourseTitle != title {
			content = append(content, e)
		}
	}
	s.content = content
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = nil
	s.content = nil
	return nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
