// internal/workers/incident/pagerduty-action/handler.go
package pagerdutyaction

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"net/url"
	"time"

	"pagerduty-workers/internal/common/camunda"
	"pagerduty-workers/internal/common/config"
	"pagerduty-workers/internal/common/database"
	"pagerduty-workers/internal/common/errors"
	"pagerduty-workers/internal/common/logger"
	"pagerduty-workers/internal/common/metrics"
	"pagerduty-workers/internal/common/observability"
	"pagerduty-workers/internal/common/pagerduty"
	"pagerduty-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const TaskType = "pagerduty-action"

type Handler struct {
	config       *Config
	logger       logger.Logger
	camunda      *camunda.Client
	service      *Service
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	worker       *camunda.Worker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	// Client overrides the PagerDuty REST client built from config.
	Client        Client
	Registry      MethodRegistry
	Redis         *redis.Client
	DB            *sql.DB
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.With(map[string]interface{}{"worker": TaskType})

	client := opts.Client
	if client == nil {
		client = pagerduty.NewClient(pagerduty.ClientConfig{
			APIToken: workerConfig.APIToken,
			BaseURL:  workerConfig.BaseURL,
			Timeout:  workerConfig.RequestTimeout,
			PageSize: workerConfig.PageSize,
		})
	}

	var dispatcherOpts []DispatcherOption
	if opts.Registry != nil {
		dispatcherOpts = append(dispatcherOpts, WithMethodRegistry(opts.Registry))
		if workerConfig.StrictRegistry {
			dispatcherOpts = append(dispatcherOpts, WithStrictEntities())
		}
	}

	deps := ServiceDependencies{
		Dispatcher:    NewDispatcher(client, loggerInstance, dispatcherOpts...),
		Observability: opts.Observability,
		Logger:        loggerInstance,
	}
	if workerConfig.IdempotencyEnabled && opts.Redis != nil {
		deps.Store = NewRedisResultStore(opts.Redis, workerConfig.IdempotencyTTL)
	}
	if workerConfig.AuditEnabled && opts.DB != nil {
		deps.Audit = database.NewAuditStore(opts.DB, workerConfig.AuditTable)
	}

	return &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		camunda:      opts.Camunda,
		service:      NewService(deps, workerConfig),
		errorHandler: errors.NewErrorHandler(loggerInstance),
		obs:          opts.Observability,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing PagerDuty action", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.recordFailure(ctx, startTime, err)
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.recordFailure(ctx, startTime, err)
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.obs.RecordJobProcessed(ctx, "completed")
	h.obs.RecordJobDuration(ctx, time.Since(startTime), "completed")
}

// Execute runs one action outside of a job, e.g. from tests or tooling.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Execute(ctx, input)
}

// parseInput reads entity and method from the job variables. Params come
// from the "params" object when present, otherwise from every other
// variable.
func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewValidationFailedError(
			fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()),
		)
	}

	input := &Input{
		JobKey: job.GetKey(),
		Request: Request{
			Entity: variables["entity"].(string),
			Method: variables["method"].(string),
		},
	}

	if params, ok := variables["params"].(map[string]interface{}); ok {
		input.Params = params
		return input, nil
	}

	input.Params = make(map[string]interface{}, len(variables))
	for k, v := range variables {
		if k == "entity" || k == "method" || k == "params" {
			continue
		}
		input.Params[k] = v
	}
	return input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	variables := map[string]interface{}{
		"success": output.Success,
		"result":  output.Result,
	}

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("Completed PagerDuty action", map[string]interface{}{
		"jobKey":   job.GetKey(),
		"success":  output.Success,
		"replayed": output.Replayed,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	h.errorHandler.HandleJobError(ctx, client, job, convertToStandardError(err))
}

func (h *Handler) recordFailure(ctx context.Context, startTime time.Time, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
	h.obs.RecordJobProcessed(ctx, "failed")
	h.obs.RecordJobDuration(ctx, time.Since(startTime), "failed")
}

// Register opens the job worker on the configured Camunda client.
func (h *Handler) Register() error {
	if h.camunda == nil {
		return fmt.Errorf("camunda client is required to register %s", TaskType)
	}
	h.worker = camunda.StartWorker(h.camunda.GetClient(), TaskType, config.WorkerConfig{
		Enabled:       h.config.Enabled,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       int(h.config.Timeout.Milliseconds()),
	}, h, h.logger)
	return nil
}

func (h *Handler) Close() {
	if h.worker != nil {
		h.worker.Stop()
		h.worker = nil
	}
}

func (h *Handler) HealthCheck(ctx context.Context) error {
	if h.camunda == nil {
		return nil
	}
	if err := h.camunda.HealthCheck(ctx); err != nil {
		return fmt.Errorf("camunda health check failed: %w", err)
	}
	return nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

// convertToStandardError maps dispatcher and client errors onto the
// worker's error codes.
func convertToStandardError(err error) *errors.StandardError {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	var argErr *pagerduty.ArgumentError
	if stderrors.As(err, &argErr) {
		return errors.NewValidationFailedError(argErr.Error())
	}

	var unknown *pagerduty.UnknownMethodError
	if stderrors.As(err, &unknown) {
		return errors.NewUnsupportedMethodError(unknown.Entity, unknown.Method)
	}

	var apiErr *pagerduty.APIError
	if stderrors.As(err, &apiErr) {
		switch {
		case pagerduty.IsNotFound(err):
			return errors.NewPagerDutyNotFoundError(err)
		case pagerduty.IsRateLimited(err):
			return errors.NewPagerDutyRateLimitedError(err)
		case pagerduty.IsUnauthorized(err):
			return errors.NewPagerDutyAuthError(err)
		case pagerduty.IsRetryable(err):
			return errors.NewPagerDutyUnavailableError(err)
		default:
			return errors.NewPagerDutyAPIError(apiErr.StatusCode, err)
		}
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewPagerDutyTimeoutError(err)
	}

	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return errors.NewPagerDutyTimeoutError(err)
		}
		return errors.NewPagerDutyUnavailableError(err)
	}

	return errors.Normalize(err)
}

func extractErrorCode(err error) string {
	return string(convertToStandardError(err).Code)
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}

	wcfg := config.GetWorkerConfig(appConfig, TaskType)
	cfg.Enabled = wcfg.Enabled
	if wcfg.MaxJobsActive > 0 {
		cfg.MaxJobsActive = wcfg.MaxJobsActive
	}
	if wcfg.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wcfg.Timeout)
	}

	pd := appConfig.Integrations.PagerDuty
	cfg.APIToken = pd.APIToken
	if pd.BaseURL != "" {
		cfg.BaseURL = pd.BaseURL
	}
	if pd.Timeout > 0 {
		cfg.RequestTimeout = config.GetDuration(pd.Timeout)
	}
	if pd.PageSize > 0 {
		cfg.PageSize = pd.PageSize
	}

	cfg.IdempotencyEnabled = appConfig.Idempotency.Enabled
	if appConfig.Idempotency.TTL > 0 {
		cfg.IdempotencyTTL = time.Duration(appConfig.Idempotency.TTL) * time.Second
	}

	cfg.AuditEnabled = appConfig.Audit.Enabled
	if appConfig.Audit.Table != "" {
		cfg.AuditTable = appConfig.Audit.Table
	}

	cfg.StrictRegistry = appConfig.Registry.Strict
	return cfg
}
