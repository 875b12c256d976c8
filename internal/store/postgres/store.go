// internal/store/postgres/store.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"club-tickets/internal/allocation"
	"club-tickets/internal/models"

	"github.com/lib/pq"
)

// Postgres error codes the store maps to domain errors.
const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

var (
	ErrQueryFailed         = errors.New("DATABASE_QUERY_FAILED")
	ErrCommitFailed        = errors.New("DATABASE_COMMIT_FAILED")
	ErrApplicantNotFound   = errors.New("APPLICANT_NOT_FOUND")
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
)

const gameColumns = `id, team1, team2, total_tickets, available_tickets, game_date,
	ticket_decision_days, version, COALESCE(created_by, ''), created_at, updated_at`

const applicationColumns = `id, game_id, user_id, status, applied_at, decided_at, COALESCE(decided_by, '')`

// Store implements allocation.Store and games.Store on top of database/sql.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGame(row scanner) (*models.Game, error) {
	var g models.Game
	err := row.Scan(
		&g.ID, &g.Team1, &g.Team2, &g.TotalCapacity, &g.RemainingCapacity, &g.ScheduledAt,
		&g.DecisionLeadDays, &g.Version, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.ScheduledAt = g.ScheduledAt.UTC()
	return &g, nil
}

func scanApplication(row scanner) (*models.Application, error) {
	var (
		a         models.Application
		status    string
		decidedAt sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.GameID, &a.ApplicantID, &status, &a.AppliedAt, &decidedAt, &a.DecidedBy); err != nil {
		return nil, err
	}
	a.Status = models.ApplicationStatus(status)
	if decidedAt.Valid {
		t := decidedAt.Time.UTC()
		a.DecidedAt = &t
	}
	return &a, nil
}

func (s *Store) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`, gameID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isPQCode(err, invalidTextRepresentation) {
			return nil, fmt.Errorf("%w: %s", allocation.ErrNotFound, gameID)
		}
		return nil, fmt.Errorf("%w: get game: %v", ErrQueryFailed, err)
	}
	return g, nil
}

func (s *Store) PendingApplications(ctx context.Context, gameID string) ([]models.Application, error) {
	return s.queryApplications(ctx, `
		SELECT `+applicationColumns+`
		FROM ticket_applications
		WHERE game_id = $1 AND status = 'pending'
		ORDER BY applied_at, id`, gameID)
}

// GetApplication loads one application by id.
func (s *Store) GetApplication(ctx context.Context, applicationID string) (*models.Application, error) {
	a, err := scanApplication(s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM ticket_applications WHERE id = $1`, applicationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isPQCode(err, invalidTextRepresentation) {
			return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, applicationID)
		}
		return nil, fmt.Errorf("%w: get application: %v", ErrQueryFailed, err)
	}
	return a, nil
}

// ApplicationsForGame lists every application of the game, oldest first,
// with the applicant's email and name attached when the user row exists.
func (s *Store) ApplicationsForGame(ctx context.Context, gameID string) ([]models.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ta.id, ta.game_id, ta.user_id, ta.status, ta.applied_at, ta.decided_at,
			COALESCE(ta.decided_by, ''), u.email, COALESCE(u.name, '')
		FROM ticket_applications ta
		LEFT JOIN users u ON u.id = ta.user_id
		WHERE ta.game_id = $1
		ORDER BY ta.applied_at, ta.id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("%w: query applications: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		var (
			a         models.Application
			status    string
			decidedAt sql.NullTime
			email     sql.NullString
			name      string
		)
		if err := rows.Scan(&a.ID, &a.GameID, &a.ApplicantID, &status, &a.AppliedAt,
			&decidedAt, &a.DecidedBy, &email, &name); err != nil {
			return nil, fmt.Errorf("%w: scan application: %v", ErrQueryFailed, err)
		}
		a.Status = models.ApplicationStatus(status)
		if decidedAt.Valid {
			t := decidedAt.Time.UTC()
			a.DecidedAt = &t
		}
		if email.Valid {
			a.Applicant = &models.Applicant{ID: a.ApplicantID, Email: email.String, Name: name}
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate applications: %v", ErrQueryFailed, err)
	}
	return apps, nil
}

// ApplicationsForApplicant returns the applicant's applications keyed by game id,
// restricted to the given games.
func (s *Store) ApplicationsForApplicant(ctx context.Context, applicantID string, gameIDs []string) (map[string]models.Application, error) {
	out := make(map[string]models.Application, len(gameIDs))
	if len(gameIDs) == 0 {
		return out, nil
	}
	apps, err := s.queryApplications(ctx, `
		SELECT `+applicationColumns+`
		FROM ticket_applications
		WHERE user_id = $1 AND game_id = ANY($2)`, applicantID, pq.Array(gameIDs))
	if err != nil {
		return nil, err
	}
	for _, a := range apps {
		out[a.GameID] = a
	}
	return out, nil
}

func (s *Store) queryApplications(ctx context.Context, query string, args ...interface{}) ([]models.Application, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query applications: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan application: %v", ErrQueryFailed, err)
		}
		apps = append(apps, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate applications: %v", ErrQueryFailed, err)
	}
	return apps, nil
}

func (s *Store) RecentGrants(ctx context.Context, applicantIDs []string, since time.Time) (map[string]bool, error) {
	out := make(map[string]bool, len(applicantIDs))
	for _, id := range applicantIDs {
		out[id] = false
	}
	if len(applicantIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id
		FROM ticket_applications
		WHERE user_id = ANY($1) AND status = 'approved' AND decided_at >= $2`,
		pq.Array(applicantIDs), since)
	if err != nil {
		return nil, fmt.Errorf("%w: recent grants: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan recent grant: %v", ErrQueryFailed, err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate recent grants: %v", ErrQueryFailed, err)
	}
	return out, nil
}

func (s *Store) HasApplication(ctx context.Context, gameID, applicantID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM ticket_applications
			WHERE game_id = $1 AND user_id = $2
		)`, gameID, applicantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: duplicate check: %v", ErrQueryFailed, err)
	}
	return exists, nil
}

func (s *Store) CreateApplication(ctx context.Context, app *models.Application) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ticket_applications (id, game_id, user_id, status, applied_at)
		VALUES ($1, $2, $3, $4, $5)`,
		app.ID, app.GameID, app.ApplicantID, string(app.Status), app.AppliedAt,
	)
	if err != nil {
		if isPQCode(err, uniqueViolation) {
			return fmt.Errorf("%w: applicant %s already applied for game %s",
				allocation.ErrDuplicateApplication, app.ApplicantID, app.GameID)
		}
		return fmt.Errorf("%w: insert application: %v", ErrQueryFailed, err)
	}
	return nil
}

// CommitRun applies a run in one read-committed transaction. The version
// predicate on games and the status predicate on ticket_applications turn any
// interleaving with another run into a zero-row update, which rolls back.
func (s *Store) CommitRun(ctx context.Context, commit allocation.RunCommit) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrCommitFailed, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE games
		SET available_tickets = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		commit.NewRemaining, commit.DecidedAt, commit.GameID, commit.ExpectedVersion,
	)
	if err != nil {
		return fmt.Errorf("%w: update game: %v", ErrCommitFailed, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("%w: update game: %v", ErrCommitFailed, err)
	} else if n != 1 {
		return fmt.Errorf("%w: game %s changed since version %d",
			allocation.ErrStorageConflict, commit.GameID, commit.ExpectedVersion)
	}

	ids := make([]string, len(commit.Decisions))
	statuses := make([]string, len(commit.Decisions))
	for i, d := range commit.Decisions {
		ids[i] = d.ApplicationID
		statuses[i] = string(d.Status)
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE ticket_applications AS ta
		SET status = d.status, decided_at = $3, decided_by = $4
		FROM unnest($1::text[], $2::text[]) AS d(id, status)
		WHERE ta.id = d.id::uuid AND ta.game_id = $5 AND ta.status = 'pending'`,
		pq.Array(ids), pq.Array(statuses), commit.DecidedAt, commit.DecidedBy, commit.GameID,
	)
	if err != nil {
		return fmt.Errorf("%w: update applications: %v", ErrCommitFailed, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("%w: update applications: %v", ErrCommitFailed, err)
	} else if n != int64(len(commit.Decisions)) {
		return fmt.Errorf("%w: %d of %d applications were no longer pending",
			allocation.ErrStorageConflict, int64(len(commit.Decisions))-n, len(commit.Decisions))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrCommitFailed, err)
	}
	return nil
}

// InsertGame persists a new game with version 0.
func (s *Store) InsertGame(ctx context.Context, g *models.Game) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (
			id, team1, team2, total_tickets, available_tickets, game_date,
			ticket_decision_days, version, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, NULLIF($8, ''), $9, $9)`,
		g.ID, g.Team1, g.Team2, g.TotalCapacity, g.RemainingCapacity, g.ScheduledAt,
		g.DecisionLeadDays, g.CreatedBy, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert game: %v", ErrQueryFailed, err)
	}
	return nil
}

// ListUpcomingGames returns games scheduled at or after from, soonest first.
func (s *Store) ListUpcomingGames(ctx context.Context, from time.Time) ([]models.Game, error) {
	return s.queryGames(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE game_date >= $1
		ORDER BY game_date, id`, from)
}

// ListGames returns every game, past ones included, soonest first.
func (s *Store) ListGames(ctx context.Context) ([]models.Game, error) {
	return s.queryGames(ctx, `
		SELECT `+gameColumns+`
		FROM games
		ORDER BY game_date, id`)
}

// DeleteGame removes a game. Its applications go with it (ON DELETE CASCADE).
func (s *Store) DeleteGame(ctx context.Context, gameID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, gameID)
	if err != nil {
		if isPQCode(err, invalidTextRepresentation) {
			return fmt.Errorf("%w: %s", allocation.ErrNotFound, gameID)
		}
		return fmt.Errorf("%w: delete game: %v", ErrQueryFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete game: %v", ErrQueryFailed, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", allocation.ErrNotFound, gameID)
	}
	return nil
}

// PendingCounts returns the number of pending applications per game. Games
// without pending applications are absent from the map.
func (s *Store) PendingCounts(ctx context.Context, gameIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(gameIDs))
	if len(gameIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, COUNT(*)
		FROM ticket_applications
		WHERE game_id::text = ANY($1) AND status = 'pending'
		GROUP BY game_id`, pq.Array(gameIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: pending counts: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("%w: scan pending count: %v", ErrQueryFailed, err)
		}
		out[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate pending counts: %v", ErrQueryFailed, err)
	}
	return out, nil
}

func (s *Store) queryGames(ctx context.Context, query string, args ...interface{}) ([]models.Game, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list games: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan game: %v", ErrQueryFailed, err)
		}
		games = append(games, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate games: %v", ErrQueryFailed, err)
	}
	return games, nil
}

// ApplicantContact loads the notification contact of an applicant.
func (s *Store) ApplicantContact(ctx context.Context, applicantID string) (*models.Applicant, error) {
	var a models.Applicant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(name, ''), COALESCE(phone, '')
		FROM users
		WHERE id = $1`, applicantID).Scan(&a.ID, &a.Email, &a.Name, &a.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrApplicantNotFound, applicantID)
		}
		return nil, fmt.Errorf("%w: applicant contact: %v", ErrQueryFailed, err)
	}
	return &a, nil
}

func isPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
