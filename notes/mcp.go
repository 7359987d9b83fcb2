package notes

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/embelhq/embel/kit"
)

// RegisterMCP registers the note tools on an MCP server. MCP sessions are
// single-user: every tool call runs as the configured identity.
func (s *Service) RegisterMCP(srv *mcp.Server, userID string) {
	s.registerCreateTool(srv, userID)
	s.registerStatusTool(srv, userID)
	s.registerTopicsTool(srv, userID)
	s.registerFlashcardsTool(srv, userID)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sc["required"] = required
	}
	return sc
}

func asUser(userID string) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return kit.WithUserID(ctx, userID)
	}
}

// --- create ---

type mcpCreateReq struct {
	Text     string   `json:"text"`
	Settings Settings `json:"settings"`
}

func (s *Service) registerCreateTool(srv *mcp.Server, userID string) {
	tool := &mcp.Tool{
		Name:        "embel_create_note",
		Description: "Submit raw text notes for asynchronous enhancement. Returns the pending note; poll embel_note_status for progress.",
		InputSchema: inputSchema(map[string]any{
			"text": map[string]any{"type": "string", "description": "Raw note text"},
			"settings": map[string]any{
				"type":        "object",
				"description": "Enhancement settings (add_bullet_points, add_headers, expand, summarize, focus_topics, style, ...)",
			},
		}, []string{"text"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpCreateReq)
		return s.CreateFromText(ctx, kit.GetUserID(ctx), r.Text, r.Settings)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r mcpCreateReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: asUser(userID)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- status ---

type mcpStatusReq struct {
	NoteID string `json:"note_id"`
}

func (s *Service) registerStatusTool(srv *mcp.Server, userID string) {
	tool := &mcp.Tool{
		Name:        "embel_note_status",
		Description: "Fetch a note with its processing status, progress and enhanced content once completed.",
		InputSchema: inputSchema(map[string]any{
			"note_id": map[string]any{"type": "string", "description": "Note ID"},
		}, []string{"note_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpStatusReq)
		return s.Get(ctx, kit.GetUserID(ctx), r.NoteID)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r mcpStatusReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: asUser(userID)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- topic preview ---

type mcpTopicsReq struct {
	Text string `json:"text"`
}

func (s *Service) registerTopicsTool(srv *mcp.Server, userID string) {
	tool := &mcp.Tool{
		Name:        "embel_suggest_topics",
		Description: "Suggest focus topics for note text before submission. Needs at least 50 characters.",
		InputSchema: inputSchema(map[string]any{
			"text": map[string]any{"type": "string", "description": "Note text to analyze"},
		}, []string{"text"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpTopicsReq)
		topics, err := s.TopicPreview(ctx, r.Text)
		if err != nil {
			return nil, err
		}
		return map[string]any{"topics": topics}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r mcpTopicsReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: asUser(userID)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- flashcards ---

type mcpFlashcardsReq struct {
	NoteID string `json:"note_id"`
}

func (s *Service) registerFlashcardsTool(srv *mcp.Server, userID string) {
	tool := &mcp.Tool{
		Name:        "embel_list_flashcards",
		Description: "List the flashcards attached to a note.",
		InputSchema: inputSchema(map[string]any{
			"note_id": map[string]any{"type": "string", "description": "Note ID"},
		}, []string{"note_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpFlashcardsReq)
		cards, err := s.ListFlashcards(ctx, kit.GetUserID(ctx), r.NoteID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"flashcards": cards, "count": len(cards)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r mcpFlashcardsReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: asUser(userID)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
