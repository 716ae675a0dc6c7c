package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mkravets/voicelog/internal/keywords"
	"github.com/mkravets/voicelog/internal/pipeline"
	"github.com/mkravets/voicelog/internal/query"
	"github.com/mkravets/voicelog/internal/storage"
)

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	extractor := keywords.NewExtractor(nil, "")
	return MCPDeps{
		Ingestor: pipeline.NewIngestor(testTranscriber{}, extractor, store),
		Query:    query.NewService(store),
	}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPTool_IngestText(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	handler := mcpIngestText(deps)

	result, err := handler(context.Background(), makeCallToolRequest("ingest_text", map[string]interface{}{
		"text": "quarterly budget planning session",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var resp struct {
		ID       int64              `json:"id"`
		Keywords []keywords.Keyword `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
	if resp.ID == 0 || len(resp.Keywords) == 0 {
		t.Fatalf("result = %+v, want stored conversation with keywords", resp)
	}

	logs, err := store.FilterLogs(storage.LogFilter{})
	if err != nil {
		t.Fatalf("FilterLogs: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("stored conversations = %d, want 1", len(logs))
	}
}

func TestMCPTool_SearchConversations(t *testing.T) {
	deps, store := newTestMCPDeps(t)

	id, err := store.CreateConversation("deadline discussion")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if err := store.AttachKeywords(id, []keywords.Keyword{keywords.Plain("deadline")}); err != nil {
		t.Fatalf("AttachKeywords: %v", err)
	}

	handler := mcpSearchConversations(deps)
	result, err := handler(context.Background(), makeCallToolRequest("search_conversations", map[string]interface{}{
		"keyword": "dead",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var logs []storage.ConversationLog
	if err := json.Unmarshal([]byte(toolText(t, result)), &logs); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
	if len(logs) != 1 || logs[0].ID != id {
		t.Errorf("logs = %v, want conversation %d", logs, id)
	}
}

func TestMCPTool_FilterLogs_InvalidDate(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpFilterLogs(deps)

	result, err := handler(context.Background(), makeCallToolRequest("filter_logs", map[string]interface{}{
		"start_date": "not-a-date",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for malformed date")
	}
}

func TestMCPTool_ListKeywords(t *testing.T) {
	deps, store := newTestMCPDeps(t)

	if err := store.AttachKeywords(0, []keywords.Keyword{keywords.Plain("wakeword")}); err != nil {
		t.Fatalf("AttachKeywords: %v", err)
	}

	handler := mcpListKeywords(deps)
	result, err := handler(context.Background(), makeCallToolRequest("list_keywords", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var kws []string
	if err := json.Unmarshal([]byte(toolText(t, result)), &kws); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
	if len(kws) != 1 || kws[0] != "wakeword" {
		t.Errorf("keywords = %v, want [wakeword]", kws)
	}
}
