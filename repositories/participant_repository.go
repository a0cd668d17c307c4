package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

// ParticipantRepository открывает каталог участников. Движок читает только
// подтвержденные регистрации и никогда их не изменяет.
type ParticipantRepository interface {
	ListConfirmedByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error)
	GetByID(ctx context.Context, id int) (*models.Participant, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) ListConfirmedByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	query := `
		SELECT id, tournament_id, display_name, rank, rating, registered_at
		FROM participants
		WHERE tournament_id = $1 AND status = 'confirmed'
		ORDER BY registered_at, id`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, classifyUnavailable(fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err))
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p := &models.Participant{}
		if err := rows.Scan(&p.ID, &p.TournamentID, &p.DisplayName, &p.Rank, &p.Rating, &p.RegisteredAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyUnavailable(err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, display_name, rank, rating, registered_at
		FROM participants
		WHERE id = $1`

	p := &models.Participant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.TournamentID, &p.DisplayName, &p.Rank, &p.Rating, &p.RegisteredAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, classifyUnavailable(fmt.Errorf("failed to get participant %d: %w", id, err))
	}
	return p, nil
}
