package mcp

import (
	"context"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/nextlevelbuilder/waindex/internal/tools"
)

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echoes its input" }

func (echoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{"type": "string"},
		},
		"required": []string{"text"},
	}
}

func (echoTool) Execute(_ context.Context, args map[string]interface{}) *tools.Result {
	text, _ := args["text"].(string)
	if text == "" {
		return tools.ErrorResult("text is required")
	}
	return tools.NewResult("echo: " + text)
}

func TestServerExportsRegistryTools(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(echoTool{})

	srv, err := NewServer("waindex-test", "0.0.0", registry)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Name = "echo"
	req.Params.Arguments = map[string]interface{}{"text": "hello"}

	result, err := srv.handler("echo")(context.Background(), req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}

	req.Params.Arguments = map[string]interface{}{}
	result, err = srv.handler("echo")(context.Background(), req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Fatal("missing argument should produce an error result")
	}
}
