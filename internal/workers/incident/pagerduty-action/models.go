package pagerdutyaction

import (
	"context"

	"pagerduty-workers/internal/common/database"
	"pagerduty-workers/internal/common/logger"
	"pagerduty-workers/internal/common/observability"
)

// Request is one declarative action invocation.
type Request struct {
	Entity string                 `json:"entity"`
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// Result is the (ok, value) pair handed back to the process. OK is true on
// every path that returns without error.
type Result struct {
	OK    bool        `json:"ok"`
	Value interface{} `json:"value"`
}

type Input struct {
	JobKey int64
	Request
}

type Output struct {
	Success  bool        `json:"success"`
	Result   interface{} `json:"result"`
	Replayed bool        `json:"replayed,omitempty"`
}

// AuditRecorder persists one row per mutating dispatch.
type AuditRecorder interface {
	Record(ctx context.Context, rec database.AuditRecord) (string, error)
}

type ServiceDependencies struct {
	Dispatcher    *Dispatcher
	Store         ResultStore
	Audit         AuditRecorder
	Observability *observability.Observability
	Logger        logger.Logger
}
