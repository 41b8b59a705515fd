package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// The prompts walk an MCP client through the intended workflows: discovering
// queries, exploring data, drafting new registry entries, and reviewing the
// audit trail.
func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(
		mcp.NewPrompt(
			"query_discovery",
			mcp.WithPromptDescription("Walk through discovering available queries in the registry"),
			mcp.WithArgument("tags", mcp.ArgumentDescription("Optional comma-separated tags to focus discovery on")),
		),
		s.handleQueryDiscovery,
	)

	s.mcpServer.AddPrompt(
		mcp.NewPrompt(
			"data_exploration",
			mcp.WithPromptDescription("Guide an exploratory session over the registered read-only queries"),
		),
		s.handleDataExploration,
	)

	s.mcpServer.AddPrompt(
		mcp.NewPrompt(
			"query_authoring",
			mcp.WithPromptDescription("Help draft a new registry entry: SQL text, parameter schema, and tags"),
		),
		s.handleQueryAuthoring,
	)

	s.mcpServer.AddPrompt(
		mcp.NewPrompt(
			"audit_review",
			mcp.WithPromptDescription("Review recent query executions for error rates and slow queries"),
			mcp.WithArgument("time_range", mcp.ArgumentDescription("Lookback period: 1h, 24h, 7d, or 30d (default 24h)")),
			mcp.WithArgument("query_name", mcp.ArgumentDescription("Optional query name to focus the review on")),
		),
		s.handleAuditReview,
	)
}

func promptResult(description, text string) *mcp.GetPromptResult {
	return mcp.NewGetPromptResult(description, []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
	})
}

func (s *Server) handleQueryDiscovery(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	tags := request.Params.Arguments["tags"]

	var b strings.Builder
	b.WriteString("You are helping a user discover and understand queries available in the query registry. Follow these steps:\n\n")
	b.WriteString("## Step 1 — List available queries\n")
	b.WriteString("Call the `list_queries` tool")
	if tags != "" {
		fmt.Fprintf(&b, " with tags=%q", tags)
	}
	b.WriteString(" and present the results as a concise table with columns: Name, Description, Tags.\n\n")
	b.WriteString("## Step 2 — Narrow by tags (if needed)\n")
	b.WriteString("If the full list is large, ask the user which domain they are interested in and re-call `list_queries` with a tag filter.\n\n")
	b.WriteString("## Step 3 — Inspect a specific query\n")
	b.WriteString("Once the user identifies a query of interest, call `get_query` with its name. Present its description, parameters (name, type, required/optional, allowed values, defaults), statement kind, and tags.\n\n")
	b.WriteString("## Step 4 — Suggest execution\n")
	b.WriteString("Help the user build the correct `parameters` map and suggest calling `run_query`. Confirm parameter values with the user before executing.\n\n")
	b.WriteString("## Guidelines\n")
	b.WriteString("- Never guess parameter values; always ask the user.\n")
	b.WriteString("- If a parameter has allowed values, list them for the user.\n")
	b.WriteString("- If a parameter is optional, explain what happens when it is omitted.\n")
	b.WriteString("- A MUTATING query requires an explicit second pass with confirm_mutation=true; never set it on the user's behalf.")
	if tags != "" {
		fmt.Fprintf(&b, "\n\nThe user is interested in queries tagged with: %q. Start by filtering with these tags.", tags)
	}

	return promptResult("Query discovery workflow", b.String()), nil
}

func (s *Server) handleDataExploration(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := "You are guiding an exploratory data session over the registered queries.\n\n" +
		"Start with `list_queries` to map the available domains, then pick READ queries relevant to the user's question. " +
		"Inspect each candidate with `get_query` before running it, run with a small max_rows first (for example 50), " +
		"and only widen the cap once the shape of the result is confirmed. " +
		"Summarize each result set briefly and suggest the next query to try. " +
		"Never run a MUTATING query during exploration."

	return promptResult("Guided data exploration", text), nil
}

func (s *Server) handleQueryAuthoring(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := "You are helping the user draft a new entry for the query registry. Produce a proposal with:\n\n" +
		"1. **name** — a stable slug (lowercase, underscores).\n" +
		"2. **description** — one sentence on what the query answers.\n" +
		"3. **sql_text** — the statement with @name bind placeholders only; never concatenate values into the SQL. " +
		"Optional filter clauses go into /*[ ... ]*/ template blocks that are kept only when every bind they reference is supplied.\n" +
		"4. **parameters** — for each bind: name, type (NUMBER, TEXT, DATE, TIMESTAMP), required flag, optional allowed_values, " +
		"optional default (literal values only; defaults are bound at validation time, not evaluated by the store), and sensitive flag for values that must be masked in audit logs.\n" +
		"5. **statement_kind** — READ or MUTATING.\n" +
		"6. **tags** — comma-separated domains for discovery.\n\n" +
		"Registry rows are immutable: remind the user that a change to an existing query is a new version that deactivates the prior one, " +
		"and that registration itself happens out-of-band by an administrator, not through this server."

	return promptResult("Query authoring checklist", text), nil
}

var auditTimeRanges = map[string]string{
	"1h":  "1 hour",
	"24h": "24 hours",
	"7d":  "7 days",
	"30d": "30 days",
}

func (s *Server) handleAuditReview(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	label, ok := auditTimeRanges[request.Params.Arguments["time_range"]]
	if !ok {
		label = "24 hours"
	}
	queryName := request.Params.Arguments["query_name"]

	var b strings.Builder
	fmt.Fprintf(&b, "You are reviewing query execution audit data for the past %s. ", label)
	b.WriteString("Every execution is recorded to the `query_audit_log` table; use the audit-focused queries in the registry (tag: audit) to surface insights.\n\n")
	b.WriteString("Report on:\n")
	b.WriteString("- Error rate: ERROR vs SUCCESS counts, and the most common error messages.\n")
	b.WriteString("- Slow queries: highest duration_ms, grouped by query_name and version.\n")
	b.WriteString("- Usage: most-run queries and their row counts.\n")
	b.WriteString("- Anomalies: spikes in a single caller_id or repeated validation failures, which can indicate a misconfigured client.")
	if queryName != "" {
		fmt.Fprintf(&b, "\n\nThe user wants to focus specifically on query `%s`. Filter or highlight rows matching this query name.", queryName)
	}

	return promptResult("Audit review workflow", b.String()), nil
}
