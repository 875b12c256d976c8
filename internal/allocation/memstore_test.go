package allocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"club-tickets/internal/models"
)

// memStore is an in-memory Store with the same atomicity and version
// semantics as the postgres store.
type memStore struct {
	mu           sync.Mutex
	games        map[string]*models.Game
	applications map[string]*models.Application

	recentGrantCalls int
	commitErr        error
	// beforeCommit runs after the run has read state and before it commits.
	beforeCommit func()
}

func newMemStore() *memStore {
	return &memStore{
		games:        map[string]*models.Game{},
		applications: map[string]*models.Application{},
	}
}

func (s *memStore) addGame(g models.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = &g
}

func (s *memStore) addApplication(a models.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications[a.ID] = &a
}

func (s *memStore) game(id string) models.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.games[id]
}

func (s *memStore) byStatus(gameID string, status models.ApplicationStatus) []models.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Application
	for _, a := range s.applications {
		if a.GameID == gameID && a.Status == status {
			out = append(out, *a)
		}
	}
	return out
}

func (s *memStore) GetGame(_ context.Context, gameID string) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (s *memStore) PendingApplications(_ context.Context, gameID string) ([]models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Application
	for _, a := range s.applications {
		if a.GameID == gameID && a.Status == models.StatusPending {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) RecentGrants(_ context.Context, applicantIDs []string, since time.Time) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recentGrantCalls++
	out := make(map[string]bool, len(applicantIDs))
	for _, id := range applicantIDs {
		out[id] = false
	}
	for _, a := range s.applications {
		if _, wanted := out[a.ApplicantID]; !wanted {
			continue
		}
		if a.Status == models.StatusApproved && a.DecidedAt != nil && !a.DecidedAt.Before(since) {
			out[a.ApplicantID] = true
		}
	}
	return out, nil
}

func (s *memStore) HasApplication(_ context.Context, gameID, applicantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.applications {
		if a.GameID == gameID && a.ApplicantID == applicantID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateApplication(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.applications {
		if a.GameID == app.GameID && a.ApplicantID == app.ApplicantID {
			return ErrDuplicateApplication
		}
	}
	copied := *app
	s.applications[app.ID] = &copied
	return nil
}

func (s *memStore) CommitRun(_ context.Context, commit RunCommit) error {
	if s.beforeCommit != nil {
		s.beforeCommit()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}

	g, ok := s.games[commit.GameID]
	if !ok {
		return ErrNotFound
	}
	if g.Version != commit.ExpectedVersion {
		return ErrStorageConflict
	}

	// Validate everything before touching anything.
	staged := make([]models.Application, 0, len(commit.Decisions))
	for _, d := range commit.Decisions {
		a, ok := s.applications[d.ApplicationID]
		if !ok {
			return ErrStorageConflict
		}
		copied := *a
		if err := Decide(&copied, d.Status, commit.DecidedAt, commit.DecidedBy); err != nil {
			if errors.Is(err, ErrAlreadyDecided) {
				return ErrStorageConflict
			}
			return err
		}
		staged = append(staged, copied)
	}

	for i := range staged {
		s.applications[staged[i].ID] = &staged[i]
	}
	g.RemainingCapacity = commit.NewRemaining
	g.Version++
	return nil
}
