// internal/workers/allocation/compute-eligibility/handler.go
package computeeligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"club-tickets/internal/allocation"
	"club-tickets/internal/common/errors"
	"club-tickets/internal/common/logger"
	"club-tickets/internal/common/metrics"
	"club-tickets/internal/common/validation"
	"club-tickets/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "compute-eligibility"
)

// EligibilityService evaluates a stored game's application window.
type EligibilityService interface {
	Eligibility(ctx context.Context, gameID string, now time.Time) (*models.Game, allocation.Eligibility, error)
}

type Handler struct {
	config       *Config
	service      EligibilityService
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	now          func() time.Time
	logger       logger.Logger
}

func NewHandler(config *Config, service EligibilityService, validator *validation.Validator, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      service,
		validator:    validator,
		errorHandler: errors.NewErrorHandler(scoped),
		now:          time.Now,
		logger:       scoped,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if err := h.validator.Check(TaskType, job.Variables); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job,
			fmt.Errorf("%w: parse input: %v", validation.ErrInputValidation, err))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	now := h.now()
	if input.Now != "" {
		parsed, err := time.Parse(time.RFC3339, input.Now)
		if err != nil {
			return nil, fmt.Errorf("%w: now must be RFC 3339: %v", validation.ErrInputValidation, err)
		}
		now = parsed
	}

	game, elig, err := h.service.Eligibility(ctx, input.GameID, now)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("eligibility computed", map[string]interface{}{
		"gameId":        game.ID,
		"daysUntilGame": elig.DaysUntilGame,
		"isOpen":        elig.IsOpen,
	})

	return &Output{
		GameID:            game.ID,
		DaysUntilGame:     elig.DaysUntilGame,
		IsOpen:            elig.IsOpen,
		DecisionLeadDays:  game.DecisionLeadDays,
		RemainingCapacity: game.RemainingCapacity,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}
