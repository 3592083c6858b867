package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"coursechat/models"
)

// ErrCourseNotFound indicates a fuzzy course name matched nothing in the
// catalog above the similarity cutoff.
var ErrCourseNotFound = errors.New("course not found")

// Embedder converts texts into vectors. One embedding model is shared by
// the catalog and content collections so their spaces are comparable.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkMetadata identifies where a retrieved chunk came from.
type ChunkMetadata struct {
	CourseTitle  string `json:"course_title"`
	LessonNumber int    `json:"lesson_number"`
	ChunkIndex   int    `json:"chunk_index"`
}

// SearchResults is an ordered set of retrieved chunks. Error carries an
// explanatory status ("No course found matching ...") as data rather than a
// Go error, so callers can distinguish "no matching course" from "no
// matching content".
type SearchResults struct {
	Documents []string
	Metadata  []ChunkMetadata
	Distances []float64
	Error     string
}

// IsEmpty reports whether the search produced no documents.
func (r SearchResults) IsEmpty() bool { return len(r.Documents) == 0 }

// ErrorResults builds an empty result set carrying an explanatory status.
func ErrorResults(format string, args ...interface{}) SearchResults {
	return SearchResults{Error: fmt.Sprintf(format, args...)}
}

// Store is the dual-collection vector store: a course catalog (one entry
// per course, used only for fuzzy name resolution) and course content (one
// entry per chunk). The two collections are physically separate; a chunk is
// never retrievable via catalog similarity and vice versa.
type Store interface {
	// AddCourseMetadata upserts one catalog entry keyed by course title.
	// Re-adding the same title overwrites.
	AddCourseMetadata(ctx context.Context, course models.Course) error

	// AddCourseContent upserts content entries keyed by derived chunk ids.
	// Inserting a duplicate id silently overwrites the previous entry.
	AddCourseContent(ctx context.Context, chunks []models.CourseChunk) error

	// ResolveCourseName maps a fuzzy course reference to the exact stored
	// title via nearest-neighbor search over the catalog. Returns
	// ErrCourseNotFound when the best match falls below the similarity
	// cutoff or the catalog is empty.
	ResolveCourseName(ctx context.Context, name string) (string, error)

	// Search embeds the query and performs nearest-neighbor search over
	// content entries. A non-empty courseName is first resolved to an exact
	// title; an unresolvable name yields ErrorResults, not an error. When
	// both filters are present they combine with AND semantics. Results are
	// ordered by ascending distance, ties broken by insertion order. A
	// limit <= 0 uses the store's configured maximum.
	Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) (SearchResults, error)

	// ExistingCourseTitles lists every title present in the catalog.
	ExistingCourseTitles(ctx context.Context) ([]string, error)

	// CourseCount returns the number of catalog entries.
	CourseCount(ctx context.Context) (int, error)

	// AllCoursesMetadata returns the full catalog, one course per entry.
	AllCoursesMetadata(ctx context.Context) ([]models.Course, error)

	// CourseMetadata returns the catalog entry for an exact title.
	CourseMetadata(ctx context.Context, title string) (models.Course, error)

	// ClearCourse removes all catalog and content entries for a title.
	ClearCourse(ctx context.Context, title string) error

	// ClearAll wipes both collections.
	ClearAll(ctx context.Context) error
}

// GetLessonLink looks up a lesson link through the catalog entry for the
// given course title. Returns "" when either is unknown.
func GetLessonLink(ctx context.Context, s Store, title string, lessonNumber int) string {
	course, err := s.CourseMetadata(ctx, title)
	if err != nil {
		return ""
	}
	if lesson, ok := course.Lesson(lessonNumber); ok {
		return lesson.Link
	}
	return ""
}

// GetCourseLink looks up the course link for an exact title.
func GetCourseLink(ctx context.Context, s Store, title string) string {
	course, err := s.CourseMetadata(ctx, title)
	if err != nil {
		return ""
	}
	return course.Link
}
