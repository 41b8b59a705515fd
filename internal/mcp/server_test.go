package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-registry-mcp/internal/audit"
	"query-registry-mcp/internal/guard"
	"query-registry-mcp/internal/repository"
	"query-registry-mcp/internal/services"
	"query-registry-mcp/internal/validation"
	"query-registry-mcp/pkg/models"
)

type fakeRegistry struct {
	def *models.QueryDefinition
}

func (f *fakeRegistry) GetActiveDefinition(_ context.Context, name string) (*models.QueryDefinition, error) {
	if f.def == nil || f.def.Name != name {
		return nil, repository.ErrNotFound
	}
	return f.def, nil
}

func (f *fakeRegistry) ListActiveDefinitions(_ context.Context, _ []string) ([]models.QuerySummary, error) {
	if f.def == nil {
		return nil, nil
	}
	return []models.QuerySummary{f.def.Summary()}, nil
}

type fakeExecutor struct {
	result *repository.ResultSet
	err    error
}

func (f *fakeExecutor) Execute(_ context.Context, _ string, _ map[string]any, _ int) (*repository.ResultSet, error) {
	return f.result, f.err
}

type dropRecorder struct{}

func (dropRecorder) Record(_ *audit.Record) {}

type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

func newTestServer(def *models.QueryDefinition, exec *fakeExecutor) *Server {
	svc := services.NewQueryService(&fakeRegistry{def: def}, exec, dropRecorder{},
		guard.Limits{HardMaxRows: 2000, DefaultMaxRows: 500},
		models.EnvLocal, quietLogger{})
	return NewServer(svc)
}

func callTool(t *testing.T, s *Server, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func testDefinition() *models.QueryDefinition {
	return &models.QueryDefinition{
		Name:     "active_orders",
		Version:  3,
		SQLText:  "SELECT id FROM orders WHERE customer_id = @customer_id",
		Kind:     models.StatementKindRead,
		IsActive: true,
		Parameters: []models.ParameterSpec{
			{Name: "customer_id", Type: models.ParamTypeNumber, Required: true},
		},
	}
}

func TestHandleGetQuery(t *testing.T) {
	s := newTestServer(testDefinition(), &fakeExecutor{})

	result := callTool(t, s, s.handleGetQuery, map[string]any{"name": "active_orders"})
	assert.False(t, result.IsError)

	var detail map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &detail))
	assert.Equal(t, "active_orders", detail["name"])
	assert.Equal(t, float64(3), detail["version"])
}

func TestHandleGetQueryMissingName(t *testing.T) {
	s := newTestServer(testDefinition(), &fakeExecutor{})

	result := callTool(t, s, s.handleGetQuery, map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Missing required parameter: name")
}

func TestHandleGetQueryNotFound(t *testing.T) {
	s := newTestServer(testDefinition(), &fakeExecutor{})

	result := callTool(t, s, s.handleGetQuery, map[string]any{"name": "no_such"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Not found:")
}

func TestHandleRunQuery(t *testing.T) {
	exec := &fakeExecutor{result: &repository.ResultSet{
		Columns:  []string{"id"},
		Rows:     []map[string]any{{"id": int64(1)}},
		RowCount: 1,
	}}
	s := newTestServer(testDefinition(), exec)

	result := callTool(t, s, s.handleRunQuery, map[string]any{
		"name":       "active_orders",
		"parameters": map[string]any{"customer_id": float64(42)},
	})
	assert.False(t, result.IsError)

	var rs repository.ResultSet
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &rs))
	assert.Equal(t, 1, rs.RowCount)
	assert.False(t, rs.Truncated)
}

func TestHandleRunQueryValidationFailure(t *testing.T) {
	s := newTestServer(testDefinition(), &fakeExecutor{})

	result := callTool(t, s, s.handleRunQuery, map[string]any{
		"name":       "active_orders",
		"parameters": map[string]any{"customer_id": "not-a-number"},
	})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Validation failed (type_mismatch)")
}

func TestToolErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"not found", repository.ErrNotFound, "Not found:"},
		{"integrity", &repository.IntegrityError{Name: "q", ActiveVersions: 2}, "Internal error: registry integrity fault"},
		{"confirmation", guard.ErrConfirmationRequired, "Request rejected:"},
		{"row cap", guard.ErrInvalidRowCap, "Request rejected:"},
		{"execution", &repository.ExecutionError{Cause: errors.New("boom")}, "Execution failed:"},
		{"validation", &validation.Error{Kind: validation.MissingParameter, Param: "x"}, "Validation failed (missing_parameter)"},
		{"other", errors.New("odd"), "Error: odd"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, toolError(tc.err), tc.want)
		})
	}
}
