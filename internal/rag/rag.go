package rag

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"coursechat/internal/docproc"
	"coursechat/internal/generation"
	"coursechat/internal/telemetry"
	"coursechat/internal/tools"
	"coursechat/internal/vectorstore"
	"coursechat/models"
	"coursechat/provider"
	"coursechat/session"
)

// System orchestrates document ingestion, retrieval and answer generation.
type System struct {
	processor *docproc.Processor
	store     vectorstore.Store
	generator *generation.Generator
	sessions  session.Store
	metrics   *telemetry.Metrics
	logger    *log.Logger
}

// QueryResult is one answered question.
type QueryResult struct {
	Answer    string          `json:"answer"`
	Sources   []models.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

// Analytics summarizes the loaded catalog.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

func New(processor *docproc.Processor, store vectorstore.Store, prov provider.Provider, sessions session.Store, maxToolRounds int, metrics *telemetry.Metrics, logger *log.Logger) (*System, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[RAG] ", log.LstdFlags)
	}
	manager, err := tools.NewManager(tools.NewSearchTool(store), tools.NewOutlineTool(store))
	if err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	var exec generation.ToolExecutor = manager
	if metrics != nil {
		exec = &countingTools{inner: manager, metrics: metrics}
	}
	return &System{
		processor: processor,
		store:     store,
		generator: generation.New(prov, exec, maxToolRounds, logger),
		sessions:  sessions,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// countingTools counts tool executions by name before delegating.
type countingTools struct {
	inner   generation.ToolExecutor
	metrics *telemetry.Metrics
}

func (c *countingTools) Definitions() []provider.ToolDefinition { return c.inner.Definitions() }

func (c *countingTools) Execute(ctx context.Context, name string, args map[string]any) (string, []models.Source, error) {
	c.metrics.ToolCallsTotal.WithLabelValues(name).Inc()
	return c.inner.Execute(ctx, name, args)
}

// AddCourseDocument ingests one course file into both collections and
// returns the parsed course plus the number of chunks written.
func (s *System) AddCourseDocument(ctx context.Context, path string) (models.Course, int, error) {
	course, chunks, err := s.processor.ProcessFile(path)
	if err != nil {
		return models.Course{}, 0, fmt.Errorf("process %s: %w", path, err)
	}
	if err := s.store.AddCourseMetadata(ctx, course); err != nil {
		return models.Course{}, 0, fmt.Errorf("add catalog entry for %q: %w", course.Title, err)
	}
	if err := s.store.AddCourseContent(ctx, chunks); err != nil {
		return models.Course{}, 0, fmt.Errorf("add content for %q: %w", course.Title, err)
	}
	if s.metrics != nil {
		s.metrics.DocumentsIngested.Inc()
		s.metrics.ChunksIngested.Add(float64(len(chunks)))
	}
	return course, len(chunks), nil
}

// IngestFailure records one document that could not be ingested.
type IngestFailure struct {
	File string
	Err  error
}

// IngestReport summarizes one folder ingestion run.
type IngestReport struct {
	CoursesAdded int
	ChunksAdded  int
	Failures     []IngestFailure
}

// AddCourseFolder ingests every course document in dir, skipping courses
// whose title is already in the catalog. Re-running it against the same
// folder is a no-op. A document that fails to parse or to store is
// recorded in the report and skipped; one bad document never blocks the
// rest of the folder. The returned error covers folder-level problems
// only.
func (s *System) AddCourseFolder(ctx context.Context, dir string) (IngestReport, error) {
	var report IngestReport

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("read documents folder %s: %w", dir, err)
	}

	existingTitles, err := s.store.ExistingCourseTitles(ctx)
	if err != nil {
		return report, fmt.Errorf("list existing courses: %w", err)
	}
	existing := make(map[string]struct{}, len(existingTitles))
	for _, title := range existingTitles {
		existing[title] = struct{}{}
	}

	fail := func(name string, err error) {
		s.logger.Printf("skipping %s: %v", name, err)
		report.Failures = append(report.Failures, IngestFailure{File: name, Err: err})
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		course, chunks, perr := s.processor.ProcessFile(path)
		if perr != nil {
			fail(entry.Name(), perr)
			continue
		}
		if _, ok := existing[course.Title]; ok {
			continue
		}

		if err := s.store.AddCourseMetadata(ctx, course); err != nil {
			fail(entry.Name(), fmt.Errorf("add catalog entry for %q: %w", course.Title, err))
			continue
		}
		if err := s.store.AddCourseContent(ctx, chunks); err != nil {
			fail(entry.Name(), fmt.Errorf("add content for %q: %w", course.Title, err))
			continue
		}
		existing[course.Title] = struct{}{}
		report.CoursesAdded++
		report.ChunksAdded += len(chunks)
		if s.metrics != nil {
			s.metrics.DocumentsIngested.Inc()
			s.metrics.ChunksIngested.Add(float64(len(chunks)))
		}
	}

	if s.metrics != nil {
		if count, cerr := s.store.CourseCount(ctx); cerr == nil {
			s.metrics.CoursesLoaded.Set(float64(count))
		}
	}
	s.logger.Printf("ingestion complete: %d new courses, %d new chunks, %d failures",
		report.CoursesAdded, report.ChunksAdded, len(report.Failures))
	return report, nil
}

// Query answers one question. An empty sessionID starts a new session;
// the id is echoed back so the client can continue the conversation.
func (s *System) Query(ctx context.Context, query, sessionID string) (QueryResult, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.QueriesTotal.Inc()
	}

	result, err := s.query(ctx, query, sessionID)
	if err != nil && s.metrics != nil {
		s.metrics.QueryFailures.Inc()
	}
	if s.metrics != nil {
		s.metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}
	return result, err
}

func (s *System) query(ctx context.Context, query, sessionID string) (QueryResult, error) {
	if sessionID == "" {
		id, err := s.sessions.Create(ctx)
		if err != nil {
			return QueryResult{}, fmt.Errorf("create session: %w", err)
		}
		sessionID = id
	}

	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		return QueryResult{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	prompt := "Answer this question about course materials: " + query
	answer, sources, err := s.generator.Generate(ctx, prompt, history)
	if err != nil {
		return QueryResult{}, fmt.Errorf("generate answer: %w", err)
	}

	if err := s.sessions.AddExchange(ctx, sessionID, models.Exchange{Query: query, Answer: answer}); err != nil {
		return QueryResult{}, fmt.Errorf("record exchange: %w", err)
	}
	if sources == nil {
		sources = []models.Source{}
	}
	return QueryResult{Answer: answer, Sources: sources, SessionID: sessionID}, nil
}

// CourseAnalytics reports how many courses are loaded and their titles.
func (s *System) CourseAnalytics(ctx context.Context) (Analytics, error) {
	count, err := s.store.CourseCount(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("count courses: %w", err)
	}
	titles, err := s.store.ExistingCourseTitles(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("list courses: %w", err)
	}
	sort.Strings(titles)
	if titles == nil {
		titles = []string{}
	}
	return Analytics{TotalCourses: count, CourseTitles: titles}, nil
}

// ClearSession drops a session's conversation history.
func (s *System) ClearSession(ctx context.Context, id string) error {
	return s.sessions.Clear(ctx, id)
}
