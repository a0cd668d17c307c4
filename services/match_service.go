package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/handicap"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

// SubmitScoreParams описывает заявку участника на результат матча.
type SubmitScoreParams struct {
	MatchID     int
	SubmitterID int
	Score1      float64
	Score2      float64
	Note        *string
}

type MatchService interface {
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListTournamentMatches(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// SubmitScore переводит матч scheduled -> score_submitted.
	// Автор неподтвержденной заявки может подать ее повторно.
	SubmitScore(ctx context.Context, params SubmitScoreParams) (*models.Match, error)
	// ConfirmScore фиксирует подтверждение соперником. accept=true ведет в
	// pending_approval (момент подтверждения фиксируется в метаданных),
	// accept=false возвращает матч в scheduled для повторной подачи.
	ConfirmScore(ctx context.Context, matchID, confirmerID int, accept bool, note *string) (*models.Match, error)
	// ApproveResult фиксирует финальное решение организатора. approve=true
	// завершает матч и продвигает игроков по сетке.
	ApproveResult(ctx context.Context, matchID, approverID int, approve bool, note *string) (*models.Match, error)
}

type matchService struct {
	db              *sql.DB
	matchRepo       repositories.MatchRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	calculator      *handicap.Calculator
	notifier        Notifier
	ranking         RankingNotifier
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	calculator *handicap.Calculator,
	notifier Notifier,
	ranking RankingNotifier,
) MatchService {
	if notifier == nil {
		notifier = NewNoopNotifier()
	}
	if ranking == nil {
		ranking = NewNoopNotifier()
	}
	return &matchService{
		db:              db,
		matchRepo:       matchRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		calculator:      calculator,
		notifier:        notifier,
		ranking:         ranking,
	}
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", id, err)
	}
	return match, nil
}

func (s *matchService) ListTournamentMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

func (s *matchService) SubmitScore(ctx context.Context, params SubmitScoreParams) (*models.Match, error) {
	match, err := s.GetMatch(ctx, params.MatchID)
	if err != nil {
		return nil, err
	}
	if match.Walkover {
		return nil, ErrWalkoverMatch
	}
	if !match.Ready() {
		return nil, ErrMatchNotReady
	}
	if !match.HasParticipant(params.SubmitterID) {
		return nil, ErrNotMatchParticipant
	}
	from := match.Status
	switch from {
	case models.MatchScheduled:
	case models.MatchScoreSubmitted:
		// Автор может перезаписать собственную неподтвержденную заявку.
		if match.SubmittedBy == nil || *match.SubmittedBy != params.SubmitterID {
			return nil, fmt.Errorf("%w: a pending submission of another participant cannot be overwritten", ErrInvalidTransition)
		}
	default:
		return nil, fmt.Errorf("%w: cannot submit score from status %q", ErrInvalidTransition, from)
	}
	if params.Score1 < 0 || params.Score2 < 0 {
		return nil, ErrNegativeScore
	}
	if params.Score1 == params.Score2 {
		return nil, ErrTieScore
	}

	now := time.Now()
	match.Status = models.MatchScoreSubmitted
	match.Score1 = &params.Score1
	match.Score2 = &params.Score2
	match.WinnerID = nil
	match.SubmittedBy = &params.SubmitterID
	match.SubmittedNote = params.Note
	match.SubmittedAt = &now
	// Повторная подача перезаписывает следы предыдущего прохода.
	match.ConfirmedBy = nil
	match.ConfirmedAt = nil
	match.ConfirmNote = nil
	match.ApprovedBy = nil
	match.ApprovalNote = nil

	if err := s.transition(ctx, match, from); err != nil {
		return nil, err
	}
	go s.notifier.MatchTransition(match.TournamentID, match)
	return match, nil
}

func (s *matchService) ConfirmScore(ctx context.Context, matchID, confirmerID int, accept bool, note *string) (*models.Match, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchScoreSubmitted {
		return nil, fmt.Errorf("%w: cannot confirm score from status %q", ErrInvalidTransition, match.Status)
	}
	if !match.HasParticipant(confirmerID) {
		return nil, ErrNotMatchParticipant
	}
	if match.SubmittedBy != nil && *match.SubmittedBy == confirmerID {
		return nil, ErrConfirmerIsSubmitter
	}

	now := time.Now()
	match.ConfirmedBy = &confirmerID
	match.ConfirmedAt = &now
	match.ConfirmNote = note
	if accept {
		match.Status = models.MatchPendingApproval
	} else {
		// Отклонение соперником возвращает матч к исходному состоянию:
		// заявка и ее следы стираются, остается только запись о том,
		// кто и почему отклонил. Терминальный rejected зарезервирован
		// за решением организатора.
		match.Status = models.MatchScheduled
		match.Score1 = nil
		match.Score2 = nil
		match.SubmittedBy = nil
		match.SubmittedAt = nil
		match.SubmittedNote = nil
	}

	if err := s.transition(ctx, match, models.MatchScoreSubmitted); err != nil {
		return nil, err
	}
	go s.notifier.MatchTransition(match.TournamentID, match)
	return match, nil
}

func (s *matchService) ApproveResult(ctx context.Context, matchID, approverID int, approve bool, note *string) (*models.Match, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchPendingApproval {
		return nil, fmt.Errorf("%w: cannot approve result from status %q", ErrInvalidTransition, match.Status)
	}

	match.ApprovedBy = &approverID
	match.ApprovalNote = note
	if !approve {
		match.Status = models.MatchRejected
		match.Score1 = nil
		match.Score2 = nil
		if err := s.transition(ctx, match, models.MatchPendingApproval); err != nil {
			return nil, err
		}
		go s.notifier.MatchTransition(match.TournamentID, match)
		return match, nil
	}

	if match.Score1 == nil || match.Score2 == nil {
		return nil, fmt.Errorf("%w: match %d reached approval without scores", ErrInvariantViolation, match.ID)
	}
	if *match.Score1 == *match.Score2 {
		return nil, fmt.Errorf("%w: match %d reached approval with a tie", ErrInvariantViolation, match.ID)
	}
	winnerID := *match.Player1ID
	if *match.Score2 > *match.Score1 {
		winnerID = *match.Player2ID
	}
	match.Status = models.MatchCompleted
	match.WinnerID = &winnerID

	if err := s.transition(ctx, match, models.MatchPendingApproval); err != nil {
		return nil, err
	}

	if err := s.advanceFrom(ctx, match); err != nil {
		// Матч завершен, продвижение не откатывается: сбой виден в
		// логах и устраняется повторным прогоном.
		log.Printf("Failed to advance players from match %d: %v", match.ID, err)
	}

	go s.notifier.MatchTransition(match.TournamentID, match)
	outcome := MatchOutcome{
		TournamentID: match.TournamentID,
		MatchID:      match.ID,
		WinnerID:     winnerID,
	}
	if loserID, ok := match.Opponent(winnerID); ok {
		outcome.LoserID = loserID
	}
	go s.ranking.MatchCompleted(outcome)
	return match, nil
}

func (s *matchService) transition(ctx context.Context, match *models.Match, from models.MatchStatus) error {
	if err := s.matchRepo.UpdateTransition(ctx, s.db, match, from); err != nil {
		if errors.Is(err, repositories.ErrMatchStateStale) {
			return ErrStaleMatchState
		}
		return fmt.Errorf("failed to persist transition of match %d: %w", match.ID, err)
	}
	return nil
}

// advanceFrom раскладывает победителя и проигравшего завершенного
// матча по целевым слотам, достраивает reset гранд-финала и закрывает
// турнир после финального матча.
func (s *matchService) advanceFrom(ctx context.Context, match *models.Match) error {
	if match.WinnerID == nil {
		return nil
	}
	winnerID := *match.WinnerID

	if match.NextMatchID != nil && match.WinnerToSlot != nil {
		if err := s.placePlayer(ctx, *match.NextMatchID, *match.WinnerToSlot, winnerID); err != nil {
			return err
		}
	}
	if match.LoserNextMatchID != nil && match.LoserToSlot != nil {
		if loserID, ok := match.Opponent(winnerID); ok {
			if err := s.placePlayer(ctx, *match.LoserNextMatchID, *match.LoserToSlot, loserID); err != nil {
				return err
			}
		}
	}

	if match.Branch == models.BranchGrandFinal && match.UID == brackets.GrandFinalUID {
		// Reset создается только если чемпион нижней сетки (слот 2)
		// выиграл первый гранд-финал.
		if match.Player2ID != nil && winnerID == *match.Player2ID {
			return s.spawnGrandFinalReset(ctx, match)
		}
	}

	if match.NextMatchID == nil {
		return s.completeTournament(ctx, match.TournamentID)
	}
	return nil
}

// placePlayer ставит игрока в слот целевого матча; если матч был
// ожидающим walkover, он завершается немедленно и продвижение
// продолжается дальше по сетке.
func (s *matchService) placePlayer(ctx context.Context, targetID, slot, playerID int) error {
	if err := s.matchRepo.SetPlayerSlot(ctx, s.db, targetID, slot, playerID); err != nil {
		if errors.Is(err, repositories.ErrMatchSlotOccupied) {
			return fmt.Errorf("%w: slot %d of match %d is already taken", ErrInvariantViolation, slot, targetID)
		}
		return fmt.Errorf("failed to place player %d into match %d: %w", playerID, targetID, err)
	}

	target, err := s.matchRepo.GetByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to reload match %d after placement: %w", targetID, err)
	}

	if target.Walkover && !target.Status.Terminal() {
		target.Status = models.MatchCompleted
		target.WinnerID = &playerID
		if err := s.transition(ctx, target, models.MatchScheduled); err != nil {
			return err
		}
		go s.notifier.MatchTransition(target.TournamentID, target)
		return s.advanceFrom(ctx, target)
	}

	if target.Ready() && target.Handicap == nil {
		if err := s.attachHandicap(ctx, target); err != nil {
			// Фора носит информационный характер, продвижение важнее.
			log.Printf("Failed to attach handicap to match %d: %v", target.ID, err)
		}
	}
	return nil
}

// attachHandicap считает фору пары в момент, когда оба игрока матча
// стали известны.
func (s *matchService) attachHandicap(ctx context.Context, match *models.Match) error {
	if s.calculator == nil {
		return nil
	}
	p1, err := s.participantRepo.GetByID(ctx, *match.Player1ID)
	if err != nil {
		return err
	}
	p2, err := s.participantRepo.GetByID(ctx, *match.Player2ID)
	if err != nil {
		return err
	}
	if p1 == nil || p2 == nil {
		return nil
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return err
	}
	wager := tournament.WagerPoints
	if wager <= 0 {
		wager = 100
	}
	record, err := s.calculator.Compute(p1.EffectiveRank(), p2.EffectiveRank(), wager)
	if err != nil || record == nil {
		return err
	}
	match.Handicap = record
	return s.matchRepo.UpdateHandicap(ctx, s.db, match.ID, record)
}

// spawnGrandFinalReset дописывает второй гранд-финал между теми же
// игроками после победы чемпиона нижней сетки в первом.
func (s *matchService) spawnGrandFinalReset(ctx context.Context, gf *models.Match) error {
	reset := &models.Match{
		TournamentID: gf.TournamentID,
		BracketID:    gf.BracketID,
		UID:          brackets.GrandFinalResetUID,
		Round:        gf.Round + 1,
		OrderInRound: 1,
		Branch:       models.BranchGrandFinal,
		Player1ID:    gf.Player1ID,
		Player2ID:    gf.Player2ID,
		Status:       models.MatchScheduled,
		Handicap:     gf.Handicap,
	}
	if err := s.matchRepo.Create(ctx, s.db, reset); err != nil {
		return fmt.Errorf("failed to create grand final reset for match %d: %w", gf.ID, err)
	}
	go s.notifier.MatchTransition(reset.TournamentID, reset)
	return nil
}

func (s *matchService) completeTournament(ctx context.Context, tournamentID int) error {
	err := s.tournamentRepo.UpdateStatus(ctx, s.db, tournamentID, models.StatusOngoing, models.StatusCompleted)
	if err != nil && !errors.Is(err, repositories.ErrTournamentStatusStale) {
		return fmt.Errorf("failed to complete tournament %d: %w", tournamentID, err)
	}
	return nil
}
