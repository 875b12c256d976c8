// internal/workers/games/create-game/handler.go
package creategame

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"club-tickets/internal/common/errors"
	"club-tickets/internal/common/logger"
	"club-tickets/internal/common/metrics"
	"club-tickets/internal/common/validation"
	"club-tickets/internal/games"
	"club-tickets/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "create-game"
)

type GameCreator interface {
	CreateGame(ctx context.Context, in models.NewGame, createdBy string, now time.Time) (*models.Game, error)
}

type Handler struct {
	config       *Config
	creator      GameCreator
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	now          func() time.Time
	logger       logger.Logger
}

func NewHandler(config *Config, creator GameCreator, validator *validation.Validator, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		creator:      creator,
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
	scheduledAt, err := time.Parse(time.RFC3339, input.ScheduledAt)
	if err != nil {
		return nil, fmt.Errorf("%w: scheduledAt must be RFC 3339: %v", games.ErrInvalidGame, err)
	}

	game, err := h.creator.CreateGame(ctx, models.NewGame{
		Team1:            input.Team1,
		Team2:            input.Team2,
		TotalCapacity:    input.TotalCapacity,
		ScheduledAt:      scheduledAt,
		DecisionLeadDays: input.DecisionLeadDays,
	}, input.AdminID, h.now())
	if err != nil {
		return nil, err
	}

	return &Output{
		GameID:            game.ID,
		Matchup:           game.Matchup(),
		TotalCapacity:     game.TotalCapacity,
		RemainingCapacity: game.RemainingCapacity,
		ScheduledAt:       game.ScheduledAt.UTC().Format(time.RFC3339),
		DecisionLeadDays:  game.DecisionLeadDays,
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
		"gameId": output.GameID,
	})
}
