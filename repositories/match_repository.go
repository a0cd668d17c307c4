package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchStateStale: CAS-переход не применился, потому что статус
	// матча уже изменен конкурентом. Вызывающий перечитывает и решает.
	ErrMatchStateStale   = errors.New("match state changed concurrently")
	ErrMatchSlotOccupied = errors.New("match slot already occupied")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	GetByUID(ctx context.Context, bracketID int, uid string) (*models.Match, error)
	ListByBracket(ctx context.Context, bracketID int) ([]*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
	UpdateAdvancementLinks(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID, winnerToSlot, loserNextMatchID, loserToSlot *int) error
	// UpdateTransition записывает изменяемые поля воркфлоу одним
	// атомарным UPDATE при условии, что текущий статус равен from.
	UpdateTransition(ctx context.Context, exec SQLExecutor, match *models.Match, from models.MatchStatus) error
	// SetPlayerSlot заполняет пустой слот матча игроком; занятый слот
	// не перезаписывается.
	SetPlayerSlot(ctx context.Context, exec SQLExecutor, matchID, slot, participantID int) error
	// UpdateHandicap прикрепляет фору, рассчитанную в момент, когда
	// оба игрока матча стали известны.
	UpdateHandicap(ctx context.Context, exec SQLExecutor, matchID int, record *models.HandicapRecord) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, tournament_id, bracket_id, bracket_match_uid, round, order_in_round, branch,
	player1_id, player2_id, status, score1, score2, winner_id, handicap, walkover,
	next_match_id, winner_to_slot, loser_next_match_id, loser_to_slot,
	submitted_by, submitted_note, submitted_at, confirmed_by, confirmed_at, confirm_note,
	approved_by, approval_note, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	var handicapJSON interface{}
	if match.Handicap != nil {
		data, err := json.Marshal(match.Handicap)
		if err != nil {
			return fmt.Errorf("failed to marshal handicap for match %s: %w", match.UID, err)
		}
		handicapJSON = data
	}

	query := `
		INSERT INTO matches
			(tournament_id, bracket_id, bracket_match_uid, round, order_in_round, branch,
			 player1_id, player2_id, status, score1, score2, winner_id, handicap, walkover,
			 next_match_id, winner_to_slot, loser_next_match_id, loser_to_slot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		match.TournamentID,
		match.BracketID,
		match.UID,
		match.Round,
		match.OrderInRound,
		match.Branch,
		match.Player1ID,
		match.Player2ID,
		match.Status,
		match.Score1,
		match.Score2,
		match.WinnerID,
		handicapJSON,
		match.Walkover,
		match.NextMatchID,
		match.WinnerToSlot,
		match.LoserNextMatchID,
		match.LoserToSlot,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		return classifyUnavailable(fmt.Errorf("failed to create match %s: %w", match.UID, err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	var handicapRaw []byte
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.BracketID, &m.UID, &m.Round, &m.OrderInRound, &m.Branch,
		&m.Player1ID, &m.Player2ID, &m.Status, &m.Score1, &m.Score2, &m.WinnerID, &handicapRaw, &m.Walkover,
		&m.NextMatchID, &m.WinnerToSlot, &m.LoserNextMatchID, &m.LoserToSlot,
		&m.SubmittedBy, &m.SubmittedNote, &m.SubmittedAt, &m.ConfirmedBy, &m.ConfirmedAt, &m.ConfirmNote,
		&m.ApprovedBy, &m.ApprovalNote, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(handicapRaw) > 0 {
		record, err := models.DecodeHandicapRecord(handicapRaw)
		if err != nil {
			return nil, fmt.Errorf("match %d: %w", m.ID, err)
		}
		m.Handicap = record
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, classifyUnavailable(fmt.Errorf("failed to get match %d: %w", id, err))
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByUID(ctx context.Context, bracketID int, uid string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE bracket_id = $1 AND bracket_match_uid = $2`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, bracketID, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, classifyUnavailable(fmt.Errorf("failed to get match %s in bracket %d: %w", uid, bracketID, err))
	}
	return m, nil
}

func (r *postgresMatchRepository) list(ctx context.Context, query string, arg interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, classifyUnavailable(fmt.Errorf("failed to list matches: %w", err))
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyUnavailable(err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) ListByBracket(ctx context.Context, bracketID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE bracket_id = $1 ORDER BY branch, round, order_in_round`
	return r.list(ctx, query, bracketID)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY branch, round, order_in_round`
	return r.list(ctx, query, tournamentID)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return classifyUnavailable(fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err))
	}
	return nil
}

func (r *postgresMatchRepository) UpdateAdvancementLinks(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID, winnerToSlot, loserNextMatchID, loserToSlot *int) error {
	query := `
		UPDATE matches
		SET next_match_id = $1, winner_to_slot = $2, loser_next_match_id = $3, loser_to_slot = $4
		WHERE id = $5`

	result, err := exec.ExecContext(ctx, query, nextMatchID, winnerToSlot, loserNextMatchID, loserToSlot, matchID)
	if err != nil {
		return classifyUnavailable(fmt.Errorf("failed to update advancement links for match %d: %w", matchID, err))
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateTransition(ctx context.Context, exec SQLExecutor, match *models.Match, from models.MatchStatus) error {
	query := `
		UPDATE matches
		SET status = $1, score1 = $2, score2 = $3, winner_id = $4,
		    submitted_by = $5, submitted_note = $6, submitted_at = $7,
		    confirmed_by = $8, confirmed_at = $9, confirm_note = $10,
		    approved_by = $11, approval_note = $12
		WHERE id = $13 AND status = $14`

	result, err := exec.ExecContext(ctx, query,
		match.Status,
		match.Score1,
		match.Score2,
		match.WinnerID,
		match.SubmittedBy,
		match.SubmittedNote,
		match.SubmittedAt,
		match.ConfirmedBy,
		match.ConfirmedAt,
		match.ConfirmNote,
		match.ApprovedBy,
		match.ApprovalNote,
		match.ID,
		from,
	)
	if err != nil {
		return classifyUnavailable(fmt.Errorf("failed to transition match %d: %w", match.ID, err))
	}
	return checkAffectedRows(result, ErrMatchStateStale)
}

func (r *postgresMatchRepository) SetPlayerSlot(ctx context.Context, exec SQLExecutor, matchID, slot, participantID int) error {
	var query string
	switch slot {
	case 1:
		query = `UPDATE matches SET player1_id = $1 WHERE id = $2 AND player1_id IS NULL`
	case 2:
		query = `UPDATE matches SET player2_id = $1 WHERE id = $2 AND player2_id IS NULL`
	default:
		return fmt.Errorf("invalid player slot %d for match %d", slot, matchID)
	}

	result, err := exec.ExecContext(ctx, query, participantID, matchID)
	if err != nil {
		return classifyUnavailable(fmt.Errorf("failed to set player slot %d for match %d: %w", slot, matchID, err))
	}
	return checkAffectedRows(result, ErrMatchSlotOccupied)
}

func (r *postgresMatchRepository) UpdateHandicap(ctx context.Context, exec SQLExecutor, matchID int, record *models.HandicapRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal handicap for match %d: %w", matchID, err)
	}
	result, err := exec.ExecContext(ctx, `UPDATE matches SET handicap = $1 WHERE id = $2`, data, matchID)
	if err != nil {
		return classifyUnavailable(fmt.Errorf("failed to update handicap for match %d: %w", matchID, err))
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
