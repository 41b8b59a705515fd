package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"query-registry-mcp/internal/audit"
	"query-registry-mcp/internal/guard"
	"query-registry-mcp/internal/masking"
	"query-registry-mcp/internal/repository"
	"query-registry-mcp/internal/validation"
	"query-registry-mcp/pkg/models"
)

// QueryService runs the request pipeline: registry lookup, parameter
// validation, guard checks, execution, and audit dispatch. The pipeline is
// synchronous on the caller's context; only the audit dispatch runs detached.
type QueryService struct {
	registry    repository.RegistryStore
	executor    repository.QueryExecutor
	recorder    AuditRecorder
	limits      guard.Limits
	env         models.Environment
	logger      Logger
	execCounter metric.Int64Counter
}

// NewQueryService creates a new QueryService.
func NewQueryService(registry repository.RegistryStore, executor repository.QueryExecutor,
	recorder AuditRecorder, limits guard.Limits, env models.Environment, logger Logger) *QueryService {

	counter, err := otel.Meter("query-registry-mcp").Int64Counter(
		"query_executions_total",
		metric.WithDescription("Completed query invocations by status."),
	)
	if err != nil {
		logger.Warn("execution counter unavailable", "error", err)
	}

	return &QueryService{
		registry:    registry,
		executor:    executor,
		recorder:    recorder,
		limits:      limits,
		env:         env,
		logger:      logger,
		execCounter: counter,
	}
}

// RunRequest is one caller invocation of a registered query.
type RunRequest struct {
	Name            string
	Parameters      map[string]any
	MaxRows         int
	MaxRowsSet      bool
	ConfirmMutation bool
	// Caller is the opaque identity supplied by the transport layer.
	Caller string
}

// List returns summaries of the active registry entries, optionally filtered
// by tags (match-any).
func (s *QueryService) List(ctx context.Context, tags []string) ([]models.QuerySummary, error) {
	return s.registry.ListActiveDefinitions(ctx, tags)
}

// Describe returns the full active definition of a named query.
func (s *QueryService) Describe(ctx context.Context, name string) (*models.QueryDefinition, error) {
	return s.registry.GetActiveDefinition(ctx, name)
}

// Run resolves, validates, guards, and executes one registered query. Every
// invocation that resolves to a definition is audited, on the success and
// the error path alike; audit dispatch never delays the returned result.
func (s *QueryService) Run(ctx context.Context, req RunRequest) (*repository.ResultSet, error) {
	def, err := s.registry.GetActiveDefinition(ctx, req.Name)
	if err != nil {
		var integrity *repository.IntegrityError
		if errors.As(err, &integrity) {
			s.logger.Error("registry integrity fault", "query", req.Name, "active_versions", integrity.ActiveVersions)
		}
		return nil, err
	}
	start := time.Now()

	bound, err := validation.Validate(def.Parameters, req.Parameters)
	if err != nil {
		s.finish(def, masking.Parameters(req.Parameters, def.Parameters, s.env), req.Caller, start, 0, err)
		return nil, err
	}

	rowCap, err := guard.Check(def, guard.Request{
		MaxRows:         req.MaxRows,
		MaxRowsSet:      req.MaxRowsSet,
		ConfirmMutation: req.ConfirmMutation,
	}, s.limits)
	masked := masking.Parameters(bound.Values(), def.Parameters, s.env)
	if err != nil {
		s.finish(def, masked, req.Caller, start, 0, err)
		return nil, err
	}

	sqlText := validation.RenderTemplate(def.SQLText, bound)

	// Execution is detached from caller cancellation: tearing down a
	// statement mid-flight against a mutating target leaves ambiguous
	// partial effects, so it runs to completion and is audited either way.
	result, err := s.executor.Execute(context.WithoutCancel(ctx), sqlText, bound.Values(), rowCap)
	if err != nil {
		s.logger.Error("query execution failed", "query", def.Name, "version", def.Version, "cause", errors.Unwrap(err))
		s.finish(def, masked, req.Caller, start, 0, err)
		return nil, err
	}

	s.finish(def, masked, req.Caller, start, result.RowCount, nil)
	return result, nil
}

// finish builds the invocation's audit record and hands it off. The record
// reflects the final outcome and is never mutated afterward.
func (s *QueryService) finish(def *models.QueryDefinition, maskedParams map[string]any,
	caller string, start time.Time, rowCount int, runErr error) {

	status := audit.StatusSuccess
	detail := ""
	if runErr != nil {
		status = audit.StatusError
		detail = runErr.Error()
	}

	s.recorder.Record(&audit.Record{
		QueryName:    def.Name,
		QueryVersion: def.Version,
		Parameters:   maskedParams,
		Status:       status,
		Error:        detail,
		RowCount:     rowCount,
		DurationMs:   time.Since(start).Milliseconds(),
		CallerID:     caller,
	})

	if s.execCounter != nil {
		s.execCounter.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("query", def.Name),
			attribute.String("status", string(status)),
		))
	}
}
