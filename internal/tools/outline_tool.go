package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coursechat/internal/vectorstore"
	"coursechat/models"
	"coursechat/provider"
)

// OutlineTool returns a course's structure: title, link, instructor and the
// complete lesson list.
type OutlineTool struct {
	store vectorstore.Store
}

func NewOutlineTool(store vectorstore.Store) *OutlineTool {
	return &OutlineTool{store: store}
}

func (t *OutlineTool) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        "get_course_outline",
		Description: "Get the outline of a course: title, link, instructor and the full lesson list",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work)",
				},
			},
			"required": []string{"course_name"},
		},
	}
}

func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) (string, []models.Source, error) {
	courseName := stringArg(args, "course_name")
	if courseName == "" {
		return "", nil, fmt.Errorf("get_course_outline requires a course_name")
	}

	title, err := t.store.ResolveCourseName(ctx, courseName)
	if errors.Is(err, vectorstore.ErrCourseNotFound) {
		return fmt.Sprintf("No course found matching '%s'", courseName), nil, nil
	}
	if err != nil {
		return "", nil, err
	}

	course, err := t.store.CourseMetadata(ctx, title)
	if err != nil {
		return fmt.Sprintf("Could not retrieve outline for '%s'", title), nil, nil
	}

	var sources []models.Source
	if course.Link != "" {
		sources = append(sources, models.Source{Label: course.Title, Link: course.Link})
	}
	return formatOutline(course), sources, nil
}

func formatOutline(course models.Course) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&sb, "Course Link: %s\n", course.Link)
	}
	if course.Instructor != "" {
		fmt.Fprintf(&sb, "Instructor: %s\n", course.Instructor)
	}
	fmt.Fprintf(&sb, "Total Lessons: %d\n", len(course.Lessons))
	if len(course.Lessons) > 0 {
		sb.WriteString("Lessons:\n")
		for _, l := range course.Lessons {
			if l.Link != "" {
				fmt.Fprintf(&sb, "%d. %s - %s\n", l.Number, l.Title, l.Link)
			} else {
				fmt.Fprintf(&sb, "%d. %s\n", l.Number, l.Title)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
