// internal/workers/applications/submit-application/handler.go
package submitapplication

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

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "submit-application"
)

// Submitter creates pending applications.
type Submitter interface {
	SubmitApplication(ctx context.Context, gameID, applicantID string, now time.Time) (*models.Application, error)
}

type Handler struct {
	config       *Config
	submitter    Submitter
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	now          func() time.Time
	logger       logger.Logger
}

func NewHandler(config *Config, submitter Submitter, validator *validation.Validator, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		submitter:    submitter,
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

// Execute submits the application. Window, duplicate and missing-game
// rejections come back as errors and are thrown as BPMN errors by Handle.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	app, err := h.submitter.SubmitApplication(ctx, input.GameID, input.ApplicantID, h.now())
	if err != nil {
		return nil, err
	}

	return &Output{
		ApplicationID: app.ID,
		Status:        string(app.Status),
		AppliedAt:     app.AppliedAt.UTC().Format(time.RFC3339),
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
		"jobKey":        job.Key,
		"applicationId": output.ApplicationID,
	})
}
