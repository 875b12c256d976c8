// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"club-tickets/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler fails or throws jobs with standardized error variables.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Outcome is what HandleJobError will do with a failed job.
type Outcome struct {
	Standard *StandardError
	BPMN     *BPMNError
	// Retries is the remaining retry count sent with a fail command. Zero
	// means the error is thrown into the process instead.
	Retries int32
}

func (o Outcome) Throw() bool {
	return o.Retries == 0
}

// Resolve decides between failing with retries and throwing a BPMN error.
// Retryable errors decrement the job's remaining retries, capped by the
// code's budget; once they run out the error is thrown.
func (h *ErrorHandler) Resolve(job entities.Job, err error) Outcome {
	stdErr := FromDomainError(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	out := Outcome{Standard: stdErr, BPMN: bpmnErr}
	if bpmnErr.Retries > 0 && job.Retries > 1 {
		remaining := job.Retries - 1
		if remaining > int32(bpmnErr.Retries) {
			remaining = int32(bpmnErr.Retries)
		}
		out.Retries = remaining
	}
	return out
}

// HandleJobError handles any error in a worker job.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	out := h.Resolve(job, err)
	h.logError(job, out)
	metrics.WorkerJobsFailed.WithLabelValues(job.Type, string(out.Standard.Code)).Inc()

	if out.Throw() {
		h.throwBPMNError(ctx, client, job, out.BPMN)
		return
	}
	h.failJobWithRetries(ctx, client, job, out.BPMN, out.Retries)
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int32) {
	varsJSON, _ := json.Marshal(bpmnErr.ToErrorVariables())

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(bpmnErr.Message + ": " + bpmnErr.Details)

	withVars, err := cmd.VariablesFromString(string(varsJSON))
	if err != nil {
		_, err = cmd.Send(ctx)
	} else {
		_, err = withVars.Send(ctx)
	}
	if err != nil {
		h.logger.Error("failed to send fail job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	varsJSON, _ := json.Marshal(bpmnErr.ToErrorVariables())

	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Details)

	withVars, err := cmd.VariablesFromString(string(varsJSON))
	if err != nil {
		_, err = cmd.Send(ctx)
	} else {
		_, err = withVars.Send(ctx)
	}
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
}

func (h *ErrorHandler) logError(job entities.Job, out Outcome) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(out.Standard.Code),
		"message":          out.BPMN.Message,
		"details":          out.Standard.Details,
		"retryable":        out.Standard.Retryable,
		"retries":          out.Retries,
		"errorCategory":    GetErrorCategory(out.Standard.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
