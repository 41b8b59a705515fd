package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"query-registry-mcp/internal/auth"
	"query-registry-mcp/internal/guard"
	"query-registry-mcp/internal/repository"
	"query-registry-mcp/internal/services"
	"query-registry-mcp/internal/validation"
	"query-registry-mcp/pkg/models"
)

type Server struct {
	mcpServer *server.MCPServer
	queries   *services.QueryService
}

func NewServer(queries *services.QueryService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Query Registry",
			"1.0.0",
			server.WithToolCapabilities(true),
			server.WithPromptCapabilities(true),
		),
		queries: queries,
	}

	s.registerTools()
	s.registerPrompts()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_queries",
			mcp.WithDescription("List all active queries in the registry. The primary discovery tool — call it before deciding which query to run."),
			mcp.WithString("tags", mcp.Description("Optional comma-separated tag filter; queries matching at least one tag are returned")),
		),
		s.handleListQueries,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_query",
			mcp.WithDescription("Return full detail for a single named query, including its SQL text and parameter definitions"),
			mcp.WithString("name", mcp.Required(), mcp.Description("The query slug to look up")),
		),
		s.handleGetQuery,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"run_query",
			mcp.WithDescription("Execute a registered query with validated bind parameters and return up to max_rows rows. Mutating queries additionally require confirm_mutation=true."),
			mcp.WithString("name", mcp.Required(), mcp.Description("The query slug to execute")),
			mcp.WithObject("parameters", mcp.Description("Key-value map of bind parameter names to their values")),
			mcp.WithNumber("max_rows", mcp.Description("Maximum rows to return; the server enforces a hard ceiling this cannot exceed")),
			mcp.WithBoolean("confirm_mutation", mcp.Description("Must be true to run a MUTATING query; ignored for READ queries")),
		),
		s.handleRunQuery,
	)
}

func (s *Server) handleListQueries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	var tags []string
	if raw, ok := args["tags"].(string); ok {
		tags = models.SplitTags(raw)
	}

	summaries, err := s.queries.List(ctx, tags)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list queries: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(summaries)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("Missing required parameter: name"), nil
	}

	def, err := s.queries.Describe(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}

	detail := map[string]any{
		"name":           def.Name,
		"description":    def.Description,
		"sql_text":       def.SQLText,
		"parameters":     def.Parameters,
		"statement_kind": def.Kind,
		"version":        def.Version,
		"tags":           def.Tags,
	}
	jsonBytes, _ := json.Marshal(detail)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleRunQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("Missing required parameter: name"), nil
	}

	req := services.RunRequest{
		Name:       name,
		Parameters: map[string]any{},
		Caller:     auth.CallerFromContext(ctx),
	}
	if params, ok := args["parameters"].(map[string]interface{}); ok {
		req.Parameters = params
	}
	if maxRows, ok := args["max_rows"].(float64); ok {
		req.MaxRows = int(maxRows)
		req.MaxRowsSet = true
	}
	if confirm, ok := args["confirm_mutation"].(bool); ok {
		req.ConfirmMutation = confirm
	}

	result, err := s.queries.Run(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}

	jsonBytes, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// toolError maps the pipeline's error taxonomy onto caller-facing messages.
// Each class stays distinguishable so clients know whether to fix parameters,
// resend with corrected options, or give up.
func toolError(err error) string {
	var integrity *repository.IntegrityError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Sprintf("Not found: %v", err)
	case errors.As(err, &integrity):
		return fmt.Sprintf("Internal error: registry integrity fault for query %q", integrity.Name)
	case errors.Is(err, guard.ErrConfirmationRequired), errors.Is(err, guard.ErrInvalidRowCap):
		return fmt.Sprintf("Request rejected: %v", err)
	default:
		var execErr *repository.ExecutionError
		if errors.As(err, &execErr) {
			return fmt.Sprintf("Execution failed: %v", execErr)
		}
		if ve, ok := validation.AsError(err); ok {
			return fmt.Sprintf("Validation failed (%s): %v", ve.Kind, ve)
		}
		return fmt.Sprintf("Error: %v", err)
	}
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
