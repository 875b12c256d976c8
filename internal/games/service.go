// internal/games/service.go
package games

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"club-tickets/internal/allocation"
	"club-tickets/internal/common/logger"
	"club-tickets/internal/models"

	"github.com/google/uuid"
)

const (
	MinDecisionLeadDays = 1
	MaxDecisionLeadDays = 30
)

var ErrInvalidGame = errors.New("INVALID_GAME")

// Store is the persistence the games service needs.
type Store interface {
	InsertGame(ctx context.Context, game *models.Game) error
	ListUpcomingGames(ctx context.Context, from time.Time) ([]models.Game, error)
	ApplicationsForApplicant(ctx context.Context, applicantID string, gameIDs []string) (map[string]models.Application, error)
	ApplicationsForGame(ctx context.Context, gameID string) ([]models.Application, error)
	ListGames(ctx context.Context) ([]models.Game, error)
	PendingCounts(ctx context.Context, gameIDs []string) (map[string]int, error)
	DeleteGame(ctx context.Context, gameID string) error
}

type Service struct {
	store  Store
	logger logger.Logger
}

func NewService(store Store, log logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "games"}),
	}
}

// Validate checks a new game against the scheduling rules.
func Validate(in models.NewGame, now time.Time) error {
	switch {
	case strings.TrimSpace(in.Team1) == "" || strings.TrimSpace(in.Team2) == "":
		return fmt.Errorf("%w: both team names are required", ErrInvalidGame)
	case in.TotalCapacity <= 0:
		return fmt.Errorf("%w: total capacity must be positive, got %d", ErrInvalidGame, in.TotalCapacity)
	case in.DecisionLeadDays < MinDecisionLeadDays || in.DecisionLeadDays > MaxDecisionLeadDays:
		return fmt.Errorf("%w: decision lead days must be between %d and %d, got %d",
			ErrInvalidGame, MinDecisionLeadDays, MaxDecisionLeadDays, in.DecisionLeadDays)
	case !in.ScheduledAt.After(now):
		return fmt.Errorf("%w: game must be scheduled in the future", ErrInvalidGame)
	}
	return nil
}

// CreateGame validates and stores a game whose remaining capacity starts at
// its total capacity.
func (s *Service) CreateGame(ctx context.Context, in models.NewGame, createdBy string, now time.Time) (*models.Game, error) {
	if err := Validate(in, now); err != nil {
		return nil, err
	}

	game := &models.Game{
		ID:                uuid.New().String(),
		Team1:             strings.TrimSpace(in.Team1),
		Team2:             strings.TrimSpace(in.Team2),
		TotalCapacity:     in.TotalCapacity,
		RemainingCapacity: in.TotalCapacity,
		ScheduledAt:       in.ScheduledAt.UTC(),
		DecisionLeadDays:  in.DecisionLeadDays,
		Version:           0,
		CreatedBy:         createdBy,
		CreatedAt:         now.UTC(),
		UpdatedAt:         now.UTC(),
	}
	if err := s.store.InsertGame(ctx, game); err != nil {
		return nil, err
	}

	s.logger.Info("game created", map[string]interface{}{
		"gameId":   game.ID,
		"matchup":  game.Matchup(),
		"capacity": game.TotalCapacity,
	})
	return game, nil
}

// ListAvailable returns upcoming games as seen by one applicant.
func (s *Service) ListAvailable(ctx context.Context, applicantID string, now time.Time) ([]models.GameAvailability, error) {
	upcoming, err := s.store.ListUpcomingGames(ctx, now)
	if err != nil {
		return nil, err
	}

	gameIDs := make([]string, len(upcoming))
	for i, g := range upcoming {
		gameIDs[i] = g.ID
	}

	own := map[string]models.Application{}
	if applicantID != "" {
		own, err = s.store.ApplicationsForApplicant(ctx, applicantID, gameIDs)
		if err != nil {
			return nil, err
		}
	}

	out := make([]models.GameAvailability, 0, len(upcoming))
	for _, g := range upcoming {
		elig := allocation.ComputeEligibility(g.ScheduledAt, g.DecisionLeadDays, now)
		avail := models.GameAvailability{
			Game:          g,
			DaysUntilGame: elig.DaysUntilGame,
		}
		if app, ok := own[g.ID]; ok {
			app := app
			avail.UserApplication = &app
		}
		avail.CanApply = elig.IsOpen && avail.UserApplication == nil
		out = append(out, avail)
	}
	return out, nil
}

// ApplicationsForGame lists every application of a game, oldest first.
func (s *Service) ApplicationsForGame(ctx context.Context, gameID string) ([]models.Application, error) {
	return s.store.ApplicationsForGame(ctx, gameID)
}

// ListGames returns every game for the admin panel, including played games
// and games whose application window has closed.
func (s *Service) ListGames(ctx context.Context, now time.Time) ([]models.GameOverview, error) {
	all, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, err
	}

	gameIDs := make([]string, len(all))
	for i, g := range all {
		gameIDs[i] = g.ID
	}
	pending, err := s.store.PendingCounts(ctx, gameIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.GameOverview, 0, len(all))
	for _, g := range all {
		elig := allocation.ComputeEligibility(g.ScheduledAt, g.DecisionLeadDays, now)
		overview := models.GameOverview{
			Game:          g,
			DaysUntilGame: elig.DaysUntilGame,
			WindowOpen:    elig.IsOpen,
			Played:        !g.ScheduledAt.After(now),
			PendingCount:  pending[g.ID],
		}
		overview.AwaitingAllocation = !overview.WindowOpen && !overview.Played && overview.PendingCount > 0
		out = append(out, overview)
	}
	return out, nil
}

// DeleteGame removes a game and, with it, every application for it.
func (s *Service) DeleteGame(ctx context.Context, gameID, adminID string) error {
	if strings.TrimSpace(adminID) == "" {
		return fmt.Errorf("%w: deleting game %s", allocation.ErrActorRequired, gameID)
	}
	if err := s.store.DeleteGame(ctx, gameID); err != nil {
		return err
	}

	s.logger.Info("game deleted", map[string]interface{}{
		"gameId":  gameID,
		"adminId": adminID,
	})
	return nil
}
