package pagerdutyaction

import (
	"context"

	"pagerduty-workers/internal/common/database"
	"pagerduty-workers/internal/common/errors"
	"pagerduty-workers/internal/common/metrics"
)

// Service wraps the dispatcher with the job-level concerns: replaying
// stored results, auditing and metrics.
type Service struct {
	deps   ServiceDependencies
	config *Config
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{deps: deps, config: config}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	kind := KindOf(input.Method)
	mutating := kind.Mutating()

	if mutating && s.deps.Store != nil {
		stored, found, err := s.deps.Store.Get(ctx, input.JobKey)
		if err != nil {
			return nil, errors.NewIdempotencyStoreFailedError(err)
		}
		if found {
			metrics.IdempotentReplays.WithLabelValues(TaskType).Inc()
			s.deps.Logger.Info("Returning stored result for redelivered job", map[string]interface{}{
				"jobKey": input.JobKey,
				"entity": input.Entity,
				"method": input.Method,
			})
			return &Output{Success: true, Result: stored, Replayed: true}, nil
		}
	}

	result, err := s.deps.Dispatcher.Dispatch(ctx, input.Entity, input.Method, input.Params)

	var stdErr *errors.StandardError
	outcome := "success"
	if err != nil {
		stdErr = convertToStandardError(err)
		outcome = string(stdErr.Code)
	}
	entityLabel := s.deps.Dispatcher.EntityLabel(input.Entity)
	metrics.ActionsDispatched.WithLabelValues(entityLabel, string(kind), outcome).Inc()
	s.deps.Observability.RecordDispatch(ctx, entityLabel, string(kind), outcome)

	if mutating {
		s.audit(ctx, input, stdErr)
	}

	if err != nil {
		return nil, stdErr
	}

	if mutating && s.deps.Store != nil {
		if err := s.deps.Store.Put(ctx, input.JobKey, result.Value); err != nil {
			s.deps.Logger.Warn("Failed to store action result", map[string]interface{}{
				"jobKey": input.JobKey,
				"error":  err.Error(),
			})
		}
	}

	return &Output{Success: result.OK, Result: result.Value}, nil
}

func (s *Service) audit(ctx context.Context, input *Input, stdErr *errors.StandardError) {
	if s.deps.Audit == nil {
		return
	}

	rec := database.AuditRecord{
		JobKey:    input.JobKey,
		Entity:    input.Entity,
		Method:    input.Method,
		EntityID:  paramString(input.Params, "entity_id"),
		FromEmail: paramString(input.Params, "from_email"),
		Success:   stdErr == nil,
	}
	if stdErr != nil {
		rec.ErrorCode = string(stdErr.Code)
	}

	if _, err := s.deps.Audit.Record(ctx, rec); err != nil {
		s.deps.Logger.Warn("Failed to write audit record", map[string]interface{}{
			"jobKey": input.JobKey,
			"error":  err.Error(),
		})
	}
}

func paramString(params map[string]interface{}, key string) string {
	return stringValue(params[key])
}
