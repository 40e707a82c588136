// internal/workers/incident/pagerduty-action/dispatcher.go
package pagerdutyaction

import (
	"context"
	"fmt"

	"pagerduty-workers/internal/common/errors"
	"pagerduty-workers/internal/common/logger"
	"pagerduty-workers/internal/common/pagerduty"
	"pagerduty-workers/internal/common/validation"
)

// Client is the PagerDuty surface the dispatcher calls into.
// *pagerduty.Client implements it.
type Client interface {
	Find(ctx context.Context, entity string, params pagerduty.Params) ([]map[string]interface{}, error)
	Fetch(ctx context.Context, entity, id string, params pagerduty.Params) (map[string]interface{}, error)
	Delete(ctx context.Context, entity, id string, params pagerduty.Params) (map[string]interface{}, error)
	Create(ctx context.Context, entity, fromEmail string, payload interface{}, params pagerduty.Params) (map[string]interface{}, error)
	Call(ctx context.Context, entity, method, id string, params pagerduty.Params) (interface{}, error)
}

// MethodRegistry knows which entities and per-object methods exist.
// *registry.ActionRegistry implements it.
type MethodRegistry interface {
	HasEntity(name string) bool
	HasMethod(entity, method string) bool
	CreateSchema(entity string) map[string]interface{}
}

type Dispatcher struct {
	client         Client
	registry       MethodRegistry
	strictEntities bool
	logger         logger.Logger
}

type DispatcherOption func(*Dispatcher)

// WithMethodRegistry makes generic methods and create payloads subject to
// the registry.
func WithMethodRegistry(reg MethodRegistry) DispatcherOption {
	return func(d *Dispatcher) { d.registry = reg }
}

// WithStrictEntities rejects entities the registry does not list, for every
// method.
func WithStrictEntities() DispatcherOption {
	return func(d *Dispatcher) { d.strictEntities = true }
}

func NewDispatcher(client Client, log logger.Logger, opts ...DispatcherOption) *Dispatcher {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	d := &Dispatcher{client: client, logger: log}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch validates the invocation and performs exactly one client call.
// Validation failures are *errors.StandardError values with a validation
// code; client errors are returned as they came.
func (d *Dispatcher) Dispatch(ctx context.Context, entity, method string, params map[string]interface{}) (Result, error) {
	if entity == "" {
		return Result{}, errors.NewMissingRequiredFieldError(method, []string{"entity"})
	}
	if method == "" {
		return Result{}, errors.NewMissingRequiredFieldError(method, []string{"method"})
	}

	kind := KindOf(method)
	if missing := MissingFields(kind, params); len(missing) > 0 {
		return Result{}, errors.NewMissingRequiredFieldError(method, missing)
	}

	action, err := ParseAction(method, params)
	if err != nil {
		return Result{}, errors.NewValidationFailedError(err.Error())
	}

	if err := d.checkRegistry(entity, action); err != nil {
		return Result{}, err
	}

	value, err := d.run(ctx, entity, action)
	if err != nil {
		return Result{}, err
	}
	return Result{OK: true, Value: value}, nil
}

const otherEntityLabel = "other"

// EntityLabel returns entity for use as a metric label. Anything that is
// neither a PagerDuty collection nor registered is reported as "other".
func (d *Dispatcher) EntityLabel(entity string) string {
	if pagerduty.KnownCollection(entity) || (d.registry != nil && d.registry.HasEntity(entity)) {
		return entity
	}
	return otherEntityLabel
}

func (d *Dispatcher) checkRegistry(entity string, action Action) error {
	if d.registry == nil {
		return nil
	}
	if d.strictEntities && !d.registry.HasEntity(entity) {
		return errors.NewUnknownEntityError(entity)
	}

	switch a := action.(type) {
	case GenericAction:
		if !d.registry.HasMethod(entity, a.Method) {
			return errors.NewUnsupportedMethodError(entity, a.Method)
		}
	case CreateAction:
		schema := d.registry.CreateSchema(entity)
		if schema == nil {
			return nil
		}
		result, err := validation.ValidateJSONSchema(a.Data, schema)
		if err != nil {
			return errors.NewValidationFailedError(fmt.Sprintf("create schema for %s: %v", entity, err))
		}
		if !result.Valid {
			return errors.NewPayloadSchemaViolationError(entity, result.GetErrorMessages())
		}
	}
	return nil
}

func (d *Dispatcher) run(ctx context.Context, entity string, action Action) (interface{}, error) {
	switch a := action.(type) {
	case FindAction:
		d.logger.Debug("Finding PagerDuty objects", map[string]interface{}{
			"entity": entity,
			"params": a.Extra,
		})
		return d.client.Find(ctx, entity, a.Extra)

	case FetchAction:
		d.logger.Debug("Fetching PagerDuty object", map[string]interface{}{
			"entity":   entity,
			"entityId": a.EntityID,
		})
		return d.client.Fetch(ctx, entity, a.EntityID, a.Extra)

	case DeleteAction:
		d.logger.Debug("Deleting PagerDuty object", map[string]interface{}{
			"entity":   entity,
			"entityId": a.EntityID,
		})
		return d.client.Delete(ctx, entity, a.EntityID, a.Extra)

	case CreateAction:
		d.logger.Debug("Creating PagerDuty object", map[string]interface{}{
			"entity":    entity,
			"fromEmail": a.FromEmail,
		})
		return d.client.Create(ctx, entity, a.FromEmail, a.Data, a.Extra)

	case GenericAction:
		d.logger.Debug("Calling PagerDuty object method", map[string]interface{}{
			"entity":   entity,
			"method":   a.Method,
			"entityId": a.EntityID,
		})
		return d.client.Call(ctx, entity, a.Method, a.EntityID, a.Extra)

	default:
		return nil, fmt.Errorf("unhandled action %T", action)
	}
}
