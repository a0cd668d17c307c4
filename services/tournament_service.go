package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

type TournamentService interface {
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	// GetFullTournamentData собирает турнир вместе с участниками,
	// действующей сеткой и матчами параллельными запросами.
	GetFullTournamentData(ctx context.Context, id int) (*models.Tournament, error)
	// ChangeStatus выполняет проверенный переход статуса турнира.
	ChangeStatus(ctx context.Context, id int, to models.TournamentStatus) (*models.Tournament, error)
}

type tournamentService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
) TournamentService {
	return &tournamentService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		bracketRepo:     bracketRepo,
		matchRepo:       matchRepo,
	}
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) GetFullTournamentData(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		participants, err := s.participantRepo.ListConfirmedByTournament(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to load participants: %w", err)
		}
		tournament.Participants = make([]models.Participant, len(participants))
		for i, p := range participants {
			tournament.Participants[i] = *p
		}
		return nil
	})

	g.Go(func() error {
		bracket, err := s.bracketRepo.GetCurrentByTournament(gctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrBracketNotFound) {
				return nil
			}
			return fmt.Errorf("failed to load bracket: %w", err)
		}
		tournament.Bracket = bracket

		matches, err := s.matchRepo.ListByBracket(gctx, bracket.ID)
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		tournament.Matches = make([]models.Match, len(matches))
		for i, m := range matches {
			tournament.Matches[i] = *m
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to assemble tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) ChangeStatus(ctx context.Context, id int, to models.TournamentStatus) (*models.Tournament, error) {
	tournament, err := s.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.ValidStatusTransition(tournament.Status, to) {
		return nil, fmt.Errorf("%w: tournament status %q -> %q", ErrInvalidTransition, tournament.Status, to)
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, s.db, id, tournament.Status, to); err != nil {
		if errors.Is(err, repositories.ErrTournamentStatusStale) {
			return nil, ErrStaleTournamentStatus
		}
		return nil, fmt.Errorf("failed to update status of tournament %d: %w", id, err)
	}
	tournament.Status = to
	return tournament, nil
}
