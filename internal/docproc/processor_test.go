package docproc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

const sampleDoc = `Course Title: Intro to Vectors
Course Link: https://example.com/vectors
Course Instructor: Dr. Grace Hopper

Lesson 0: Welcome
Lesson Link: https://example.com/vectors/lesson-0
Vectors describe magnitude and direction. They appear everywhere in physics.

Lesson 1: Vector Addition
Lesson Link: https://example.com/vectors/lesson-1
Adding vectors follows the parallelogram rule. Components add independently. The order of addition never matters.

Lesson 2: Empty Lesson
`

func TestProcessParsesCourseHeader(t *testing.T) {
	p := New(800, 100)
	course, _, err := p.Process(sampleDoc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if course.Title != "Intro to Vectors" {
		t.Fatalf("expected title Intro to Vectors, got %q", course.Title)
	}
	if course.Link != "https://example.com/vectors" {
		t.Fatalf("unexpected course link %q", course.Link)
	}
	if course.Instructor != "Dr. Grace Hopper" {
		t.Fatalf("unexpected instructor %q", course.Instructor)
	}
	if len(course.Lessons) != 3 {
		t.Fatalf("expected 3 lessons, got %d", len(course.Lessons))
	}
	if course.Lessons[1].Number != 1 || course.Lessons[1].Title != "Vector Addition" {
		t.Fatalf("unexpected lesson 1: %+v", course.Lessons[1])
	}
	if course.Lessons[1].Link != "https://example.com/vectors/lesson-1" {
		t.Fatalf("unexpected lesson 1 link %q", course.Lessons[1].Link)
	}
}

func TestProcessMissingTitleIsError(t *testing.T) {
	p := New(800, 100)
	_, _, err := p.Process("Lesson 0: Orphan\nSome text.")
	if !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
}

func TestProcessEmptyLessonYieldsNoChunks(t *testing.T) {
	p := New(800, 100)
	_, chunks, err := p.Process(sampleDoc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for _, c := range chunks {
		if c.LessonNumber == 2 {
			t.Fatalf("empty lesson produced chunk %q", c.Content)
		}
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks from non-empty lessons")
	}
}

func TestChunksArePrefixedAndAttributed(t *testing.T) {
	p := New(800, 100)
	_, chunks, err := p.Process(sampleDoc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for _, c := range chunks {
		prefix := fmt.Sprintf("Course Intro to Vectors Lesson %d content: ", c.LessonNumber)
		if !strings.HasPrefix(c.Content, prefix) {
			t.Fatalf("chunk missing context prefix: %q", c.Content)
		}
		if c.CourseTitle != "Intro to Vectors" {
			t.Fatalf("chunk has wrong course title %q", c.CourseTitle)
		}
	}
}

func TestChunkDeterminism(t *testing.T) {
	p := New(120, 30)
	_, first, err := p.Process(sampleDoc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	_, second, err := p.Process(sampleDoc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("re-processing identical input produced different chunks")
	}
	for i := range first {
		if first[i].ID() != second[i].ID() {
			t.Fatalf("chunk id drifted: %s vs %s", first[i].ID(), second[i].ID())
		}
	}
}

func TestChunkIDFormat(t *testing.T) {
	p := New(800, 100)
	_, chunks, err := p.Process(sampleDoc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := fmt.Sprintf("%s_%d_%d", chunks[0].CourseTitle, chunks[0].LessonNumber, chunks[0].ChunkIndex)
	if chunks[0].ID() != want {
		t.Fatalf("expected id %q, got %q", want, chunks[0].ID())
	}
}

func TestChunkTextRespectsSizeAndOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "Sentence number %d carries a modest amount of text. ", i)
	}
	p := New(200, 60)
	chunks := p.ChunkText(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 200 {
			t.Fatalf("chunk %d exceeds size limit: %d chars", i, len(c))
		}
	}
	// Consecutive chunks share trailing/leading sentences up to the overlap
	// budget, adjusted to sentence boundaries.
	for i := 1; i < len(chunks); i++ {
		prevSentences := splitSentences(chunks[i-1])
		lead := splitSentences(chunks[i])[0]
		shared := false
		for _, s := range prevSentences {
			if s == lead {
				shared = true
				break
			}
		}
		if !shared && len(lead) <= 60 {
			t.Fatalf("chunk %d does not overlap its predecessor: %q", i, lead)
		}
	}
}

func TestChunkTextSingleLongSentence(t *testing.T) {
	long := strings.Repeat("word ", 100) + "."
	p := New(100, 20)
	chunks := p.ChunkText(long)
	if len(chunks) != 1 {
		t.Fatalf("an unsplittable sentence should become one chunk, got %d", len(chunks))
	}
}

func TestSplitSentencesKeepsUnterminatedTail(t *testing.T) {
	got := splitSentences("First sentence. Second without terminator")
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %v", len(got), got)
	}
	if got[1] != "Second without terminator" {
		t.Fatalf("unexpected tail %q", got[1])
	}
}
