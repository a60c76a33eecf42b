// Package tools exposes the fixed query-tool surface over the search
// engine. Every tool takes a flat argument map, returns a human-readable
// Result, and is registered in a Registry the MCP server fronts.
package tools

import "context"

// Tool is the interface all query tools implement.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// --- argument helpers ---

func argString(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argInt(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}
