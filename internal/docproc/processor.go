package docproc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"coursechat/models"
)

// ErrMissingTitle is returned for documents whose header has no course title.
var ErrMissingTitle = errors.New("document missing course title")

// Processor parses course documents in the canonical layout and splits
// lesson bodies into fixed-size overlapping chunks.
//
// Canonical layout:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<body...>
//	Lesson 1: ...
type Processor struct {
	chunkSize    int
	chunkOverlap int
}

var (
	lessonHeaderRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

// New creates a processor. chunkSize is the maximum chunk length in
// characters, chunkOverlap the number of trailing characters carried into
// the next chunk.
func New(chunkSize, chunkOverlap int) *Processor {
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if chunkOverlap < 0 {
		chunkOverlap = 100
	}
	return &Processor{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// ProcessFile reads and processes a single course document from disk.
func (p *Processor) ProcessFile(path string) (models.Course, []models.CourseChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Course{}, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	course, chunks, err := p.Process(string(data))
	if err != nil {
		return models.Course{}, nil, fmt.Errorf("processing %s: %w", filepath.Base(path), err)
	}
	return course, chunks, nil
}

// Process parses raw document text into one course and its chunks.
// A lesson with an empty body yields zero chunks without failing the
// document; a missing course title is a hard parse error.
func (p *Processor) Process(text string) (models.Course, []models.CourseChunk, error) {
	lines := strings.Split(text, "\n")

	course := models.Course{}
	i := 0
	// Header lines precede the first lesson marker.
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if lessonHeaderRe.MatchString(line) {
			break
		}
		switch {
		case hasPrefixFold(line, "Course Title:"):
			course.Title = strings.TrimSpace(line[len("Course Title:"):])
		case hasPrefixFold(line, "Course Link:"):
			course.Link = strings.TrimSpace(line[len("Course Link:"):])
		case hasPrefixFold(line, "Course Instructor:"):
			course.Instructor = strings.TrimSpace(line[len("Course Instructor:"):])
		}
	}
	if course.Title == "" {
		return models.Course{}, nil, ErrMissingTitle
	}

	var chunks []models.CourseChunk
	for i < len(lines) {
		m := lessonHeaderRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			i++
			continue
		}
		number, _ := strconv.Atoi(m[1])
		lesson := models.Lesson{Number: number, Title: strings.TrimSpace(m[2])}
		i++

		if i < len(lines) && hasPrefixFold(strings.TrimSpace(lines[i]), "Lesson Link:") {
			lesson.Link = strings.TrimSpace(strings.TrimSpace(lines[i])[len("Lesson Link:"):])
			i++
		}

		var body []string
		for i < len(lines) && !lessonHeaderRe.MatchString(strings.TrimSpace(lines[i])) {
			body = append(body, lines[i])
			i++
		}

		course.Lessons = append(course.Lessons, lesson)

		for idx, piece := range p.ChunkText(strings.Join(body, "\n")) {
			chunks = append(chunks, models.CourseChunk{
				// Each chunk carries its own context so retrieval never
				// depends on neighboring chunks for attribution.
				Content:      fmt.Sprintf("Course %s Lesson %d content: %s", course.Title, lesson.Number, piece),
				CourseTitle:  course.Title,
				LessonNumber: lesson.Number,
				ChunkIndex:   idx,
			})
		}
	}

	return course, chunks, nil
}

// ChunkText splits text into chunks of at most chunkSize characters,
// breaking at sentence boundaries, with roughly chunkOverlap characters of
// trailing text repeated at the start of the next chunk. The final chunk
// may be shorter than chunkSize.
func (p *Processor) ChunkText(text string) []string {
	sentences := splitSentences(normalizeWhitespace(text))
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		size := 0
		j := i
		for j < len(sentences) {
			add := len(sentences[j])
			if size > 0 {
				add++ // joining space
			}
			if size+add > p.chunkSize && size > 0 {
				break
			}
			size += add
			j++
		}
		chunks = append(chunks, strings.Join(sentences[i:j], " "))
		if j >= len(sentences) {
			break
		}

		// Walk back over trailing sentences until the overlap budget is
		// spent, always keeping at least one sentence of forward progress.
		next := j
		carried := 0
		for next > i+1 {
			add := len(sentences[next-1])
			if carried > 0 {
				add++
			}
			if carried+add > p.chunkOverlap {
				break
			}
			carried += add
			next--
		}
		i = next
	}
	return chunks
}

func normalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// splitSentences breaks text on terminal punctuation. Trailing text with no
// terminator still counts as a sentence so nothing is dropped.
func splitSentences(text string) []string {
	if text == "" {
		return nil
	}
	locs := sentenceRe.FindAllStringIndex(text, -1)
	var out []string
	last := 0
	for _, loc := range locs {
		s := strings.TrimSpace(text[loc[0]:loc[1]])
		if s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
