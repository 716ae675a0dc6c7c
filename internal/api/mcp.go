package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mkravets/voicelog/internal/pipeline"
	"github.com/mkravets/voicelog/internal/query"
	"github.com/mkravets/voicelog/internal/transcribe"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Ingestor Ingestor
	Query    *query.Service
}

// NewMCPServer creates an MCP server exposing the conversation log to LLM
// agents: text ingestion plus the same keyword/search/filter queries the
// HTTP API serves.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"voicelog",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("voicelog: a searchable log of transcribed conversations and their keywords."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ingest_text",
			mcp.WithDescription("Store a transcribed conversation; keywords are extracted automatically."),
			mcp.WithString("text", mcp.Description("The conversation text to store"), mcp.Required()),
		),
		mcpIngestText(deps),
	)

	s.AddTool(
		mcp.NewTool("search_conversations",
			mcp.WithDescription("Find stored conversations with at least one keyword containing the given substring."),
			mcp.WithString("keyword", mcp.Description("Keyword substring to search for"), mcp.Required()),
		),
		mcpSearchConversations(deps),
	)

	s.AddTool(
		mcp.NewTool("list_keywords",
			mcp.WithDescription("List every distinct recognized keyword, most recent first."),
		),
		mcpListKeywords(deps),
	)

	s.AddTool(
		mcp.NewTool("filter_logs",
			mcp.WithDescription("Filter conversation logs by inclusive date bounds and/or keyword substring."),
			mcp.WithString("start_date", mcp.Description("Inclusive lower bound, YYYY-MM-DD")),
			mcp.WithString("end_date", mcp.Description("Inclusive upper bound, YYYY-MM-DD")),
			mcp.WithString("keyword", mcp.Description("Keyword substring filter")),
		),
		mcpFilterLogs(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"voicelog://keywords",
			"Recognized Keywords",
			mcp.WithResourceDescription("All distinct recognized keywords as a JSON array"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceKeywords(deps),
	)

	return s
}

func mcpIngestText(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		result := deps.Ingestor.Ingest(ctx, pipeline.Request{
			Submission: transcribe.Submission{Text: text},
		})
		if !result.Success {
			return mcpError("failed to store conversation"), nil
		}

		b, err := json.Marshal(map[string]any{
			"id":       result.ConversationID,
			"keywords": result.Keywords,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchConversations(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keyword, err := req.RequireString("keyword")
		if err != nil {
			return mcpError("keyword is required"), nil
		}

		logs, err := deps.Query.Search(keyword)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		b, err := json.Marshal(logs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListKeywords(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(deps.Query.Keywords())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal keywords: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpFilterLogs(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := req.GetString("start_date", "")
		end := req.GetString("end_date", "")
		keyword := req.GetString("keyword", "")

		logs, err := deps.Query.Logs(start, end, keyword)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		b, err := json.Marshal(logs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal logs: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceKeywords(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Query.Keywords())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal keywords: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
