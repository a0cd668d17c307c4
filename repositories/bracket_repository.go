package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/lib/pq"
)

var (
	ErrBracketNotFound = errors.New("bracket not found")
	// ErrBracketConflict: действующая сетка для турнира уже записана.
	// Гарантируется частичным уникальным индексом по tournament_id
	// среди не вытесненных сеток, а не блокировкой в процессе.
	ErrBracketConflict = errors.New("current bracket already exists for tournament")
)

type BracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error
	GetCurrentByTournament(ctx context.Context, tournamentID int) (*models.Bracket, error)
	// MarkReady публикует сетку читателям; вызывается только после
	// записи всех матчей.
	MarkReady(ctx context.Context, exec SQLExecutor, id int) error
	// Supersede вытесняет действующую сетку турнира при
	// принудительной регенерации.
	Supersede(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error {
	query := `
		INSERT INTO brackets
			(public_id, tournament_id, kind, seeding_method, round_count, match_count, ready, superseded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false)
		RETURNING id, generated_at`

	err := exec.QueryRowContext(ctx, query,
		bracket.PublicID,
		bracket.TournamentID,
		bracket.Kind,
		bracket.SeedingMethod,
		bracket.RoundCount,
		bracket.MatchCount,
		bracket.Ready,
	).Scan(&bracket.ID, &bracket.GeneratedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "brackets_current_tournament_key" {
			return ErrBracketConflict
		}
		return classifyUnavailable(fmt.Errorf("failed to create bracket for tournament %d: %w", bracket.TournamentID, err))
	}
	return nil
}

func (r *postgresBracketRepository) GetCurrentByTournament(ctx context.Context, tournamentID int) (*models.Bracket, error) {
	query := `
		SELECT id, public_id, tournament_id, kind, seeding_method, round_count, match_count, ready, superseded, generated_at
		FROM brackets
		WHERE tournament_id = $1 AND NOT superseded`

	b := &models.Bracket{}
	err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(
		&b.ID,
		&b.PublicID,
		&b.TournamentID,
		&b.Kind,
		&b.SeedingMethod,
		&b.RoundCount,
		&b.MatchCount,
		&b.Ready,
		&b.Superseded,
		&b.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, classifyUnavailable(fmt.Errorf("failed to get current bracket for tournament %d: %w", tournamentID, err))
	}
	return b, nil
}

func (r *postgresBracketRepository) MarkReady(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := exec.ExecContext(ctx, `UPDATE brackets SET ready = true WHERE id = $1`, id)
	if err != nil {
		return classifyUnavailable(fmt.Errorf("failed to mark bracket %d ready: %w", id, err))
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

func (r *postgresBracketRepository) Supersede(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := exec.ExecContext(ctx,
		`UPDATE brackets SET superseded = true WHERE tournament_id = $1 AND NOT superseded`, tournamentID)
	if err != nil {
		return classifyUnavailable(fmt.Errorf("failed to supersede brackets for tournament %d: %w", tournamentID, err))
	}
	return nil
}
