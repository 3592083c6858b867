package tools

import (
	"context"
	"fmt"
	"strings"

	"coursechat/internal/vectorstore"
	"coursechat/models"
	"coursechat/provider"
)

// SearchTool searches course content with fuzzy course-name matching and
// optional lesson filtering.
type SearchTool struct {
	store vectorstore.Store
}

func NewSearchTool(store vectorstore.Store) *SearchTool {
	return &SearchTool{store: store}
}

func (t *SearchTool) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]any{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (string, []models.Source, error) {
	query := stringArg(args, "query")
	if query == "" {
		return "", nil, fmt.Errorf("search_course_content requires a query")
	}
	courseName := stringArg(args, "course_name")
	lessonNumber := intArg(args, "lesson_number")

	results, err := t.store.Search(ctx, query, courseName, lessonNumber, 0)
	if err != nil {
		return "", nil, err
	}
	if results.Error != "" {
		return results.Error, nil, nil
	}
	if results.IsEmpty() {
		return emptyMessage(courseName, lessonNumber), nil, nil
	}
	return t.formatResults(ctx, results)
}

func emptyMessage(courseName string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseName != "" {
		msg += fmt.Sprintf(" in course '%s'", courseName)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}

// formatResults renders each hit as a labeled block and collects the
// parallel source list for citation.
func (t *SearchTool) formatResults(ctx context.Context, results vectorstore.SearchResults) (string, []models.Source, error) {
	var blocks []string
	var sources []models.Source
	for i, doc := range results.Documents {
		meta := results.Metadata[i]
		label := meta.CourseTitle
		link := ""
		if meta.LessonNumber >= 0 {
			label = fmt.Sprintf("%s - Lesson %d", meta.CourseTitle, meta.LessonNumber)
			link = vectorstore.GetLessonLink(ctx, t.store, meta.CourseTitle, meta.LessonNumber)
		} else {
			link = vectorstore.GetCourseLink(ctx, t.store, meta.CourseTitle)
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", label, doc))
		sources = append(sources, models.Source{Label: label, Link: link})
	}
	return strings.Join(blocks, "\n\n"), sources, nil
}
