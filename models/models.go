package models

import "fmt"

// Lesson is a single numbered lesson inside a course. The number defines
// ordering and is unique within its course.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course is the unit of ingestion. The title is the only external
// identifier; re-ingesting a title that already exists is a no-op.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"course_link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Lesson returns the lesson with the given number, if present.
func (c Course) Lesson(number int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l, true
		}
	}
	return Lesson{}, false
}

// CourseChunk is the unit of retrieval: a bounded span of lesson text plus
// the metadata needed to attribute it back to its course and lesson.
// Chunks are derived, never authored, and are regenerated wholesale when a
// course is re-indexed.
type CourseChunk struct {
	Content     string `json:"content"`
	CourseTitle string `json:"course_title"`
	// LessonNumber is -1 for course-level content that belongs to no lesson.
	LessonNumber int `json:"lesson_number"`
	ChunkIndex   int `json:"chunk_index"`
}

// ID derives the stable storage identifier for the chunk.
func (c CourseChunk) ID() string {
	return fmt.Sprintf("%s_%d_%d", c.CourseTitle, c.LessonNumber, c.ChunkIndex)
}

// Source is a citation attached to an answer: a human-readable label such
// as "Intro to Vectors - Lesson 1" and an optional link.
type Source struct {
	Label string `json:"text"`
	Link  string `json:"url,omitempty"`
}

// Exchange is one query/answer pair inside a session history.
type Exchange struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}
