// internal/allocation/coordinator.go
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"club-tickets/internal/common/logger"
	"club-tickets/internal/common/metrics"
	"club-tickets/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultFairnessWindow is how far back an approved grant deprioritises an
// applicant.
const DefaultFairnessWindow = 30 * day

const tracerName = "club-tickets/allocation"

// Run outcomes, used as metric labels.
const (
	OutcomeDecided         = "decided"
	OutcomeNothingToDecide = "nothing_to_decide"
	OutcomeConflict        = "conflict"
	OutcomeNotFound        = "not_found"
	OutcomeError           = "error"
)

// Options configures a Coordinator. Zero values fall back to defaults.
type Options struct {
	FairnessWindow time.Duration
	Locker         RunLocker
	Auditor        Auditor
	Clock          func() time.Time
}

// RunRecorder receives run outcomes for telemetry.
type RunRecorder interface {
	RecordRun(ctx context.Context, outcome string, duration time.Duration)
	RecordDecisions(ctx context.Context, approved, rejected int)
}

// RunResult summarises a committed allocation run.
type RunResult struct {
	RunID           string            `json:"runId"`
	GameID          string            `json:"gameId"`
	ApprovedCount   int               `json:"approvedCount"`
	RejectedCount   int               `json:"rejectedCount"`
	RemainingBefore int               `json:"remainingBefore"`
	RemainingAfter  int               `json:"remainingAfter"`
	DecidedAt       time.Time         `json:"decidedAt"`
	Decisions       []models.Decision `json:"decisions"`
}

// Coordinator drives application submission and allocation runs against a Store.
type Coordinator struct {
	store          Store
	locker         RunLocker
	auditor        Auditor
	recorder       RunRecorder
	now            func() time.Time
	fairnessWindow time.Duration
	logger         logger.Logger
}

func NewCoordinator(store Store, log logger.Logger, opts Options) *Coordinator {
	c := &Coordinator{
		store:          store,
		locker:         opts.Locker,
		auditor:        opts.Auditor,
		now:            opts.Clock,
		fairnessWindow: opts.FairnessWindow,
		logger:         log.WithFields(map[string]interface{}{"component": "allocation"}),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.fairnessWindow <= 0 {
		c.fairnessWindow = DefaultFairnessWindow
	}
	return c
}

// SetRecorder attaches an OpenTelemetry run recorder.
func (c *Coordinator) SetRecorder(r RunRecorder) {
	c.recorder = r
}

// FairnessWindow returns the configured recency window.
func (c *Coordinator) FairnessWindow() time.Duration {
	return c.fairnessWindow
}

// Eligibility evaluates the application window of a stored game.
func (c *Coordinator) Eligibility(ctx context.Context, gameID string, now time.Time) (*models.Game, Eligibility, error) {
	game, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, Eligibility{}, err
	}
	return game, ComputeEligibility(game.ScheduledAt, game.DecisionLeadDays, now), nil
}

// SubmitApplication creates a pending application when the game's window is
// open and the applicant has not applied yet. Nothing is written on failure.
func (c *Coordinator) SubmitApplication(ctx context.Context, gameID, applicantID string, now time.Time) (*models.Application, error) {
	log := c.logger.WithFields(map[string]interface{}{
		"gameId":      gameID,
		"applicantId": applicantID,
	})

	game, elig, err := c.Eligibility(ctx, gameID, now)
	if err != nil {
		metrics.ApplicationSubmissions.WithLabelValues(submissionLabel(err)).Inc()
		return nil, err
	}

	if !elig.IsOpen {
		metrics.ApplicationSubmissions.WithLabelValues("window_closed").Inc()
		return nil, fmt.Errorf("%w: applications close %d days before the game, %d days remain",
			ErrWindowClosed, game.DecisionLeadDays, elig.DaysUntilGame)
	}

	exists, err := c.store.HasApplication(ctx, gameID, applicantID)
	if err != nil {
		metrics.ApplicationSubmissions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}
	if exists {
		metrics.ApplicationSubmissions.WithLabelValues("duplicate").Inc()
		return nil, fmt.Errorf("%w: applicant %s already applied for game %s",
			ErrDuplicateApplication, applicantID, gameID)
	}

	app := NewApplication(gameID, applicantID, now)
	if err := c.store.CreateApplication(ctx, app); err != nil {
		metrics.ApplicationSubmissions.WithLabelValues(submissionLabel(err)).Inc()
		return nil, err
	}

	metrics.ApplicationSubmissions.WithLabelValues("accepted").Inc()
	log.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"daysUntilGame": elig.DaysUntilGame,
	})
	return app, nil
}

// RunAllocation decides every pending application of the game in one atomic
// commit. It returns ErrNothingToDecide when no application is pending and
// ErrStorageConflict when a concurrent run got there first; re-invoking after
// a conflict is safe because all state is re-read.
func (c *Coordinator) RunAllocation(ctx context.Context, gameID, actingAdminID string) (result *RunResult, err error) {
	if actingAdminID == "" {
		return nil, ErrActorRequired
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "allocation.run")
	span.SetAttributes(attribute.String("game.id", gameID))
	start := time.Now()
	defer func() {
		outcome := runOutcome(err)
		elapsed := time.Since(start)
		metrics.AllocationRuns.WithLabelValues(outcome).Inc()
		metrics.AllocationRunDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
		if c.recorder != nil {
			c.recorder.RecordRun(ctx, outcome, elapsed)
		}
		if err != nil && outcome != OutcomeNothingToDecide {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	log := c.logger.WithFields(map[string]interface{}{
		"gameId":  gameID,
		"adminId": actingAdminID,
	})

	if c.locker != nil {
		release, acquired, lockErr := c.locker.Acquire(ctx, gameID)
		if lockErr != nil {
			return nil, fmt.Errorf("acquire run lock: %w", lockErr)
		}
		if !acquired {
			log.Warn("allocation run already in progress", nil)
			return nil, fmt.Errorf("%w: allocation run for game %s already in progress", ErrStorageConflict, gameID)
		}
		defer func() {
			if relErr := release(context.Background()); relErr != nil {
				log.Warn("failed to release run lock", map[string]interface{}{"error": relErr})
			}
		}()
	}

	game, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	pending, err := c.store.PendingApplications(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load pending applications: %w", err)
	}
	if len(pending) == 0 {
		log.Info("no pending applications", nil)
		return nil, fmt.Errorf("%w: no pending applications for game %s", ErrNothingToDecide, gameID)
	}

	now := c.now().UTC()
	recent, err := c.store.RecentGrants(ctx, applicantIDs(pending), now.Add(-c.fairnessWindow))
	if err != nil {
		return nil, fmt.Errorf("load recent grants: %w", err)
	}

	candidates := make([]Candidate, 0, len(pending))
	for _, app := range pending {
		candidates = append(candidates, Candidate{
			Application:    app,
			HasRecentGrant: recent[app.ApplicantID],
		})
	}

	alloc := Allocate(Rank(candidates), game.RemainingCapacity)
	if err := checkTransitions(pending, alloc.Decisions); err != nil {
		return nil, err
	}

	commit := RunCommit{
		GameID:          game.ID,
		ExpectedVersion: game.Version,
		NewRemaining:    alloc.RemainingAfter,
		DecidedAt:       now,
		DecidedBy:       actingAdminID,
		Decisions:       alloc.Decisions,
	}
	if err := c.store.CommitRun(ctx, commit); err != nil {
		if errors.Is(err, ErrStorageConflict) {
			log.Warn("allocation commit conflicted with a concurrent run", map[string]interface{}{
				"expectedVersion": game.Version,
			})
		}
		return nil, err
	}

	result = &RunResult{
		RunID:           uuid.New().String(),
		GameID:          game.ID,
		ApprovedCount:   alloc.ApprovedCount,
		RejectedCount:   alloc.RejectedCount,
		RemainingBefore: alloc.RemainingBefore,
		RemainingAfter:  alloc.RemainingAfter,
		DecidedAt:       now,
		Decisions:       alloc.Decisions,
	}

	metrics.ApplicationsDecided.WithLabelValues(string(models.StatusApproved)).Add(float64(result.ApprovedCount))
	metrics.ApplicationsDecided.WithLabelValues(string(models.StatusRejected)).Add(float64(result.RejectedCount))
	metrics.RemainingCapacityAfterRun.Observe(float64(result.RemainingAfter))
	if c.recorder != nil {
		c.recorder.RecordDecisions(ctx, result.ApprovedCount, result.RejectedCount)
	}
	span.SetAttributes(
		attribute.Int("allocation.approved", result.ApprovedCount),
		attribute.Int("allocation.rejected", result.RejectedCount),
	)

	log.Info("allocation run committed", map[string]interface{}{
		"runId":           result.RunID,
		"approved":        result.ApprovedCount,
		"rejected":        result.RejectedCount,
		"remainingBefore": result.RemainingBefore,
		"remainingAfter":  result.RemainingAfter,
	})

	c.audit(ctx, log, result, actingAdminID)
	return result, nil
}

// audit failures never fail a committed run.
func (c *Coordinator) audit(ctx context.Context, log logger.Logger, result *RunResult, adminID string) {
	if c.auditor == nil {
		return
	}
	record := models.RunRecord{
		RunID:              result.RunID,
		GameID:             result.GameID,
		DecidedBy:          adminID,
		DecidedAt:          result.DecidedAt,
		RemainingBefore:    result.RemainingBefore,
		RemainingAfter:     result.RemainingAfter,
		ApprovedCount:      result.ApprovedCount,
		RejectedCount:      result.RejectedCount,
		FairnessWindowDays: int(c.fairnessWindow / day),
		Decisions:          result.Decisions,
	}
	if err := c.auditor.Record(ctx, record); err != nil {
		log.Warn("audit record failed", map[string]interface{}{
			"error": err,
			"runId": result.RunID,
		})
	}
}

// checkTransitions verifies every decision leaves a loaded pending
// application. CommitRun re-checks status = 'pending' inside its transaction.
func checkTransitions(pending []models.Application, decisions []models.Decision) error {
	status := make(map[string]models.ApplicationStatus, len(pending))
	for _, app := range pending {
		status[app.ID] = app.Status
	}
	for _, d := range decisions {
		from, ok := status[d.ApplicationID]
		if !ok || !CanTransition(from, d.Status) {
			return fmt.Errorf("%w: application %s %q -> %q", ErrInvalidTransition, d.ApplicationID, from, d.Status)
		}
	}
	return nil
}

func applicantIDs(apps []models.Application) []string {
	seen := make(map[string]bool, len(apps))
	ids := make([]string, 0, len(apps))
	for _, app := range apps {
		if seen[app.ApplicantID] {
			continue
		}
		seen[app.ApplicantID] = true
		ids = append(ids, app.ApplicantID)
	}
	return ids
}

func runOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeDecided
	case errors.Is(err, ErrNothingToDecide):
		return OutcomeNothingToDecide
	case errors.Is(err, ErrStorageConflict):
		return OutcomeConflict
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

func submissionLabel(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateApplication):
		return "duplicate"
	default:
		return "error"
	}
}
