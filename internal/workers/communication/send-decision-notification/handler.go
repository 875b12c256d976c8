// internal/workers/communication/send-decision-notification/handler.go
package senddecisionnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"club-tickets/internal/common/errors"
	"club-tickets/internal/common/logger"
	"club-tickets/internal/common/metrics"
	"club-tickets/internal/common/validation"
	"club-tickets/internal/models"
	"club-tickets/internal/notify"
	"club-tickets/internal/store/postgres"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-decision-notification"
)

type GameReader interface {
	GetGame(ctx context.Context, gameID string) (*models.Game, error)
}

type ApplicationReader interface {
	GetApplication(ctx context.Context, applicationID string) (*models.Application, error)
}

type ContactReader interface {
	ApplicantContact(ctx context.Context, applicantID string) (*models.Applicant, error)
}

type Sender interface {
	Notify(ctx context.Context, notice models.DecisionNotice) (*notify.Result, error)
}

type Handler struct {
	config       *Config
	games        GameReader
	applications ApplicationReader
	contacts     ContactReader
	sender       Sender
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, games GameReader, applications ApplicationReader, contacts ContactReader, sender Sender, validator *validation.Validator, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		games:        games,
		applications: applications,
		contacts:     contacts,
		sender:       sender,
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

// Execute notifies the applicant of the stored decision. The job's status
// variable is only a hint; a mismatch is logged and the stored status wins.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	app, err := h.applications.GetApplication(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app.GameID != input.GameID || app.ApplicantID != input.ApplicantID {
		return nil, fmt.Errorf("%w: application %s does not belong to applicant %s for game %s",
			postgres.ErrApplicationNotFound, input.ApplicationID, input.ApplicantID, input.GameID)
	}
	if !app.IsDecided() {
		return nil, fmt.Errorf("%w: application %s", notify.ErrNotDecided, app.ID)
	}
	if input.Status != "" && models.ApplicationStatus(input.Status) != app.Status {
		h.logger.Warn("job status differs from stored decision", map[string]interface{}{
			"applicationId": app.ID,
			"jobStatus":     input.Status,
			"storedStatus":  app.Status,
		})
	}

	game, err := h.games.GetGame(ctx, input.GameID)
	if err != nil {
		return nil, err
	}

	contact, err := h.contacts.ApplicantContact(ctx, input.ApplicantID)
	if err != nil {
		return nil, err
	}

	result, err := h.sender.Notify(ctx, models.DecisionNotice{
		ApplicationID: app.ID,
		GameID:        game.ID,
		Matchup:       game.Matchup(),
		Status:        app.Status,
		Recipient:     *contact,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		NotificationID: result.NotificationID,
		Status:         result.Status,
		Channels:       result.Channels,
		SentAt:         result.SentAt.UTC().Format(time.RFC3339),
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
		"jobKey":         job.Key,
		"notificationId": output.NotificationID,
	})
}
