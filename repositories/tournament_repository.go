package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

var (
	ErrTournamentNotFound    = errors.New("tournament not found")
	ErrTournamentStatusStale = errors.New("tournament status changed concurrently")
)

type TournamentRepository interface {
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	// UpdateStatus переводит статус только из ожидаемого значения;
	// проигравший гонки получает ErrTournamentStatusStale.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `
		SELECT id, name, kind, status, max_participants, wager_points, created_at
		FROM tournaments
		WHERE id = $1`

	t := &models.Tournament{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Kind,
		&t.Status,
		&t.MaxParticipants,
		&t.WagerPoints,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, classifyUnavailable(fmt.Errorf("failed to get tournament %d: %w", id, err))
	}
	return t, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error {
	query := `
		UPDATE tournaments
		SET status = $1
		WHERE id = $2 AND status = $3`

	result, err := exec.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return classifyUnavailable(fmt.Errorf("failed to update tournament %d status: %w", id, err))
	}
	return checkAffectedRows(result, ErrTournamentStatusStale)
}
