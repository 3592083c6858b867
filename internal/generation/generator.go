package generation

import (
	"context"
	"fmt"
	"log"
	"strings"

	"coursechat/models"
	"coursechat/provider"
)

const systemPrompt = `You are an AI assistant specialized in course materials and educational content.

You have two tools available:
- search_course_content: searches inside course materials for specific topics or lesson details
- get_course_outline: retrieves a course's title, link and complete lesson list

Tool usage:
- Use search_course_content for questions about specific course content or concepts
- Use get_course_outline for questions about a course's structure or lesson list
- Synthesize tool results into accurate, fact-based answers
- If a tool yields no results, state that clearly without offering alternatives

Responses:
- Be brief, concise and focused
- Do not mention the search process, the tools or your reasoning in the answer
- Answer general knowledge questions directly from your own knowledge`

// ToolExecutor is the tool registry surface the generator drives.
type ToolExecutor interface {
	Definitions() []provider.ToolDefinition
	Execute(ctx context.Context, name string, args map[string]any) (string, []models.Source, error)
}

// Generator runs the tool-calling conversation loop against a provider.
type Generator struct {
	provider      provider.Provider
	tools         ToolExecutor
	maxToolRounds int
	logger        *log.Logger
}

func New(p provider.Provider, tools ToolExecutor, maxToolRounds int, logger *log.Logger) *Generator {
	if maxToolRounds <= 0 {
		maxToolRounds = 2
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{provider: p, tools: tools, maxToolRounds: maxToolRounds, logger: logger}
}

// Generate answers the prompt, letting the model call tools for up to
// maxToolRounds rounds before a final call without tools. The returned
// sources come from the last tool execution that produced any.
func (g *Generator) Generate(ctx context.Context, prompt string, history []models.Exchange) (string, []models.Source, error) {
	system := systemPrompt
	if len(history) > 0 {
		system += "\n\nPrevious conversation:\n" + formatHistory(history)
	}

	messages := []provider.Message{provider.TextMessage("user", prompt)}
	defs := g.tools.Definitions()

	var sources []models.Source
	for round := 0; round < g.maxToolRounds; round++ {
		reply, err := g.provider.Generate(ctx, provider.Request{
			System:   system,
			Messages: messages,
			Tools:    defs,
		})
		if err != nil {
			return "", nil, fmt.Errorf("generate round %d: %w", round+1, err)
		}
		if !reply.WantsTools() {
			return reply.Text, sources, nil
		}

		messages = append(messages, provider.Message{Role: "assistant", Content: reply.Content})

		results := make([]provider.ContentBlock, 0, len(reply.ToolCalls))
		for _, call := range reply.ToolCalls {
			out, srcs, err := g.tools.Execute(ctx, call.Name, call.Input)
			if err != nil {
				g.logger.Printf("tool %s failed: %v", call.Name, err)
				results = append(results, provider.ContentBlock{
					Type:      "tool_result",
					ToolUseID: call.ID,
					Content:   fmt.Sprintf("Tool execution failed: %v", err),
					IsError:   true,
				})
				continue
			}
			if len(srcs) > 0 {
				sources = srcs
			}
			results = append(results, provider.ContentBlock{
				Type:      "tool_result",
				ToolUseID: call.ID,
				Content:   out,
			})
		}
		messages = append(messages, provider.ToolResultMessage(results))
	}

	// Round budget exhausted, force a text answer.
	reply, err := g.provider.Generate(ctx, provider.Request{System: system, Messages: messages})
	if err != nil {
		return "", nil, fmt.Errorf("final generate: %w", err)
	}
	return reply.Text, sources, nil
}

func formatHistory(history []models.Exchange) string {
	var b strings.Builder
	for i, ex := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "User: %s\nAssistant: %s", ex.Query, ex.Answer)
	}
	return b.String()
}
