// internal/workers/allocation/run-allocation/handler.go
package runallocation

import (
	"context"
	"encoding/json"
	stderrors "errors"
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
	TaskType = "run-allocation"
)

// Allocator runs allocation for one game.
type Allocator interface {
	RunAllocation(ctx context.Context, gameID, actingAdminID string) (*allocation.RunResult, error)
}

// GameReader supplies the remaining capacity when nothing was decided.
type GameReader interface {
	GetGame(ctx context.Context, gameID string) (*models.Game, error)
}

// ApplicationLister lists a game's applications, oldest first.
type ApplicationLister interface {
	ApplicationsForGame(ctx context.Context, gameID string) ([]models.Application, error)
}

type Handler struct {
	config       *Config
	allocator    Allocator
	games        GameReader
	applications ApplicationLister
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, allocator Allocator, games GameReader, applications ApplicationLister, validator *validation.Validator, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		allocator:    allocator,
		games:        games,
		applications: applications,
		validator:    validator,
		errorHandler: errors.NewErrorHandler(scoped),
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
	result, err := h.allocator.RunAllocation(ctx, input.GameID, input.AdminID)
	if stderrors.Is(err, allocation.ErrNothingToDecide) {
		return h.nothingDecided(ctx, input.GameID)
	}
	if err != nil {
		return nil, err
	}

	h.logger.Info("allocation run committed", map[string]interface{}{
		"gameId":   result.GameID,
		"runId":    result.RunID,
		"approved": result.ApprovedCount,
		"rejected": result.RejectedCount,
	})

	output := &Output{
		GameID:            result.GameID,
		Decided:           true,
		RunID:             result.RunID,
		ApprovedCount:     result.ApprovedCount,
		RejectedCount:     result.RejectedCount,
		RemainingCapacity: result.RemainingAfter,
		DecidedAt:         result.DecidedAt.UTC().Format(time.RFC3339),
		Decisions:         result.Decisions,
		Applications:      []models.Application{},
	}

	// The run is committed; a failed listing must not fail the job, or the
	// retry would report nothing decided and the decisions would be lost.
	apps, err := h.listApplications(ctx, input.GameID)
	if err != nil {
		h.logger.Warn("failed to list applications after run", map[string]interface{}{
			"gameId": input.GameID,
			"error":  err,
		})
		return output, nil
	}
	output.Applications = apps
	return output, nil
}

func (h *Handler) listApplications(ctx context.Context, gameID string) ([]models.Application, error) {
	if h.applications == nil {
		return []models.Application{}, nil
	}
	apps, err := h.applications.ApplicationsForGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, nil
}

func (h *Handler) nothingDecided(ctx context.Context, gameID string) (*Output, error) {
	h.logger.Info("no pending applications", map[string]interface{}{"gameId": gameID})

	output := &Output{GameID: gameID, Decisions: []models.Decision{}}
	if h.games != nil {
		game, err := h.games.GetGame(ctx, gameID)
		if err != nil {
			return nil, err
		}
		output.RemainingCapacity = game.RemainingCapacity
	}

	apps, err := h.listApplications(ctx, gameID)
	if err != nil {
		return nil, err
	}
	output.Applications = apps
	return output, nil
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
		"jobKey":  job.Key,
		"decided": output.Decided,
	})
}
