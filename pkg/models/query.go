// Package models defines the domain models for the query registry service
package models

import "strings"

// ParamType is the closed set of types a registered parameter may declare.
type ParamType string

const (
	ParamTypeNumber    ParamType = "NUMBER"
	ParamTypeText      ParamType = "TEXT"
	ParamTypeDate      ParamType = "DATE"
	ParamTypeTimestamp ParamType = "TIMESTAMP"
)

// StatementKind classifies a registered statement as read-only or mutating.
type StatementKind string

const (
	StatementKindRead     StatementKind = "READ"
	StatementKindMutating StatementKind = "MUTATING"
)

// ParameterSpec declares a single named bind parameter of a registered query.
type ParameterSpec struct {
	Name          string    `json:"name"`
	Type          ParamType `json:"type"`
	Required      bool      `json:"required"`
	Description   string    `json:"description,omitempty"`
	AllowedValues []any     `json:"allowed_values,omitempty"`
	Default       any       `json:"default,omitempty"`
	Sensitive     bool      `json:"sensitive,omitempty"`
}

// QueryDefinition is one immutable, versioned row of the registry. A change
// to a query creates a new version and deactivates the prior one; exactly one
// version per name is active at any time.
type QueryDefinition struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Version     int             `json:"version" db:"version"`
	Description string          `json:"description" db:"description"`
	SQLText     string          `json:"sql_text" db:"sql_text"`
	Parameters  []ParameterSpec `json:"parameters" db:"parameters"`
	Kind        StatementKind   `json:"statement_kind" db:"statement_kind"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	Tags        []string        `json:"tags" db:"tags"`
}

// QuerySummary is the discovery view of a definition, without SQL text.
type QuerySummary struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Parameters  []ParameterSpec `json:"parameters"`
}

// Summary returns the discovery view of d.
func (d *QueryDefinition) Summary() QuerySummary {
	return QuerySummary{
		Name:        d.Name,
		Description: d.Description,
		Tags:        d.Tags,
		Parameters:  d.Parameters,
	}
}

// SplitTags parses a comma-separated tag column into a clean slice.
func SplitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// JoinTags is the inverse of SplitTags, for writing the tag column.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
