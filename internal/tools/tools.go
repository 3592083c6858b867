// Package tools holds the callable capabilities advertised to the language
// model and the registry that executes them by name.
package tools

import (
	"context"
	"fmt"

	"coursechat/models"
	"coursechat/provider"
)

// Tool is one capability the model may invoke. Execute returns the textual
// tool result fed back to the model, plus any sources to surface to the
// user once the final answer is produced. Sources are returned, never
// stored on the tool, so concurrent queries cannot interleave them.
type Tool interface {
	Definition() provider.ToolDefinition
	Execute(ctx context.Context, args map[string]any) (string, []models.Source, error)
}

// Manager registers tools under their declared names and dispatches
// execution requests from the generation loop.
type Manager struct {
	tools map[string]Tool
	order []string
}

// NewManager creates a manager with the given tools pre-registered.
func NewManager(ts ...Tool) (*Manager, error) {
	m := &Manager{tools: make(map[string]Tool)}
	for _, t := range ts {
		if err := m.Register(t); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register adds a tool under its declared name.
func (m *Manager) Register(t Tool) error {
	name := t.Definition().Name
	if name == "" {
		return fmt.Errorf("tool must have a name in its definition")
	}
	if _, exists := m.tools[name]; !exists {
		m.order = append(m.order, name)
	}
	m.tools[name] = t
	return nil
}

// Definitions lists every registered tool schema in registration order.
func (m *Manager) Definitions() []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, 0, len(m.order))
	for _, name := range m.order {
		defs = append(defs, m.tools[name].Definition())
	}
	return defs
}

// Execute runs the named tool. An unknown name produces a tool-result
// message, not an error, so the model can recover.
func (m *Manager) Execute(ctx context.Context, name string, args map[string]any) (string, []models.Source, error) {
	t, ok := m.tools[name]
	if !ok {
		return fmt.Sprintf("Tool '%s' not found", name), nil, nil
	}
	return t.Execute(ctx, args)
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg extracts an optional integer argument; JSON numbers decode as
// float64.
func intArg(args map[string]any, key string) *int {
	switch v := args[key].(type) {
	case float64:
		n := int(v)
		return &n
	case int:
		n := v
		return &n
	}
	return nil
}
