package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/handicap"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

// ValidationResult содержит результат предварительной проверки турнира перед
// генерацией сетки.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type BracketService interface {
	// GenerateBracket строит и сохраняет сетку турнира. При force=true
	// действующая сетка вытесняется вместе с матчами и строится заново.
	GenerateBracket(ctx context.Context, tournamentID int, method models.SeedingMethod, force bool) (*models.Bracket, error)
	ValidateTournament(ctx context.Context, tournamentID int) (*ValidationResult, error)
	GetCurrentBracket(ctx context.Context, tournamentID int) (*models.Bracket, []*models.Match, error)
}

type bracketService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
	seeder          *brackets.Seeder
	calculator      *handicap.Calculator
	notifier        Notifier
	archiver        SnapshotArchiver
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	seeder *brackets.Seeder,
	calculator *handicap.Calculator,
	notifier Notifier,
	archiver SnapshotArchiver,
) BracketService {
	if notifier == nil {
		notifier = NewNoopNotifier()
	}
	return &bracketService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		bracketRepo:     bracketRepo,
		matchRepo:       matchRepo,
		seeder:          seeder,
		calculator:      calculator,
		notifier:        notifier,
		archiver:        archiver,
	}
}

// persistStrategy описывает один способ записи построенной сетки. Стратегии
// пробуются по порядку; переход к следующей происходит только при
// недоступности хранилища, ошибки валидации не перепробуются.
type persistStrategy struct {
	name  string
	apply func(ctx context.Context, tournament *models.Tournament, bracket *models.Bracket, generated []*brackets.BracketMatch, force bool) ([]*models.Match, error)
}

func (s *bracketService) GenerateBracket(ctx context.Context, tournamentID int, method models.SeedingMethod, force bool) (*models.Bracket, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if !tournament.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", brackets.ErrUnsupportedBracketKind, tournament.Kind)
	}

	existing, err := s.bracketRepo.GetCurrentByTournament(ctx, tournamentID)
	if err != nil && !errors.Is(err, repositories.ErrBracketNotFound) {
		return nil, fmt.Errorf("failed to check current bracket for tournament %d: %w", tournamentID, err)
	}
	if existing != nil && !force {
		return nil, ErrBracketAlreadyExists
	}

	participants, err := s.participantRepo.ListConfirmedByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed participants for tournament %d: %w", tournamentID, err)
	}
	if err := validateParticipantCount(tournament.Kind, len(participants)); err != nil {
		return nil, err
	}

	if method == "" {
		method = defaultSeedingMethod(tournament.Kind)
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeedingMethod, method)
	}

	seeded, err := s.seeder.Seed(participants, method)
	if err != nil {
		return nil, err
	}

	generator, err := generatorFor(tournament.Kind)
	if err != nil {
		return nil, err
	}
	result, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		Tournament:   tournament,
		Participants: seeded,
		Handicap:     s.calculator,
		Wager:        tournament.WagerPoints,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s bracket for tournament %d: %w", generator.GetName(), tournamentID, err)
	}

	bracket := &models.Bracket{
		PublicID:      uuid.New(),
		TournamentID:  tournamentID,
		Kind:          tournament.Kind,
		SeedingMethod: method,
		RoundCount:    result.RoundCount,
		MatchCount:    len(result.Matches),
	}

	strategies := []persistStrategy{
		{name: "transactional", apply: s.persistTransactional},
		{name: "per-match", apply: s.persistPerMatch},
	}
	var persisted []*models.Match
	for i, strategy := range strategies {
		persisted, err = strategy.apply(ctx, tournament, bracket, result.Matches, force)
		if err == nil {
			break
		}
		if Kind(err) != KindCollaborator || i == len(strategies)-1 {
			return nil, err
		}
		log.Printf("Bracket persistence strategy %q failed for tournament %d: %v. Falling back to %q.",
			strategy.name, tournamentID, err, strategies[i+1].name)
		bracket.ID = 0
		bracket.Ready = false
	}
	if err != nil {
		return nil, err
	}

	if tournament.Status == models.StatusRegistrationClosed {
		if err := s.tournamentRepo.UpdateStatus(ctx, s.db, tournamentID, models.StatusRegistrationClosed, models.StatusOngoing); err != nil {
			// Сетка уже записана, перевод статуса не фатален.
			log.Printf("Failed to move tournament %d to ongoing after bracket generation: %v", tournamentID, err)
		}
	}

	go s.notifier.BracketReady(tournamentID, bracket)
	if s.archiver != nil {
		archived := persisted
		go func() {
			if err := s.archiver.ArchiveBracket(context.Background(), bracket, archived); err != nil {
				log.Printf("Failed to archive bracket %d snapshot: %v", bracket.ID, err)
			}
		}()
	}
	return bracket, nil
}

// persistTransactional записывает сетку одной транзакцией: вытеснение
// старой сетки (при force), вставка всех матчей, проводка ссылок
// продвижения и только затем пометка ready.
func (s *bracketService) persistTransactional(ctx context.Context, tournament *models.Tournament, bracket *models.Bracket, generated []*brackets.BracketMatch, force bool) ([]*models.Match, error) {
	if s.db == nil {
		return nil, fmt.Errorf("transactional persistence requires a database handle: %w", repositories.ErrStorageUnavailable)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction (%v): %w", err, repositories.ErrStorageUnavailable)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if force {
		if err := s.bracketRepo.Supersede(ctx, tx, tournament.ID); err != nil {
			return nil, fmt.Errorf("failed to supersede current bracket: %w", err)
		}
		if err := s.matchRepo.DeleteByTournament(ctx, tx, tournament.ID); err != nil {
			return nil, fmt.Errorf("failed to delete matches of superseded bracket: %w", err)
		}
	}

	if err := s.createBracketRow(ctx, tx, bracket); err != nil {
		return nil, err
	}

	persisted, byUID, err := s.createMatches(ctx, tx, tournament, bracket, generated)
	if err != nil {
		return nil, err
	}
	if err := s.wireAdvancement(ctx, tx, generated, byUID); err != nil {
		return nil, err
	}

	if err := s.bracketRepo.MarkReady(ctx, tx, bracket.ID); err != nil {
		return nil, fmt.Errorf("failed to mark bracket %d ready: %w", bracket.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bracket transaction (%v): %w", err, repositories.ErrStorageUnavailable)
	}
	bracket.Ready = true
	return persisted, nil
}

// persistPerMatch реализует деградированный путь: каждая запись выполняется
// отдельно с одним повтором при недоступности хранилища. Сетка
// помечается ready последней, поэтому частично записанный набор никогда
// не виден читателям; force-перегенерация его вытесняет.
func (s *bracketService) persistPerMatch(ctx context.Context, tournament *models.Tournament, bracket *models.Bracket, generated []*brackets.BracketMatch, force bool) ([]*models.Match, error) {
	if force {
		if err := withRetry(func() error {
			return s.bracketRepo.Supersede(ctx, s.db, tournament.ID)
		}); err != nil {
			return nil, fmt.Errorf("failed to supersede current bracket: %w", err)
		}
		if err := withRetry(func() error {
			return s.matchRepo.DeleteByTournament(ctx, s.db, tournament.ID)
		}); err != nil {
			return nil, fmt.Errorf("failed to delete matches of superseded bracket: %w", err)
		}
	}

	if err := withRetry(func() error {
		return s.createBracketRow(ctx, s.db, bracket)
	}); err != nil {
		return nil, err
	}

	persisted := make([]*models.Match, 0, len(generated))
	byUID := make(map[string]int, len(generated))
	for _, bm := range generated {
		match := matchFromGenerated(tournament, bracket, bm)
		if err := withRetry(func() error {
			return s.matchRepo.Create(ctx, s.db, match)
		}); err != nil {
			return nil, fmt.Errorf("failed to create match %s: %w", bm.UID, err)
		}
		persisted = append(persisted, match)
		byUID[bm.UID] = match.ID
	}

	if err := s.wireAdvancement(ctx, s.db, generated, byUID); err != nil {
		return nil, err
	}

	if err := withRetry(func() error {
		return s.bracketRepo.MarkReady(ctx, s.db, bracket.ID)
	}); err != nil {
		return nil, fmt.Errorf("failed to mark bracket %d ready: %w", bracket.ID, err)
	}
	bracket.Ready = true
	return persisted, nil
}

func (s *bracketService) createBracketRow(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket) error {
	if err := s.bracketRepo.Create(ctx, exec, bracket); err != nil {
		if errors.Is(err, repositories.ErrBracketConflict) {
			return ErrBracketAlreadyExists
		}
		return fmt.Errorf("failed to create bracket: %w", err)
	}
	return nil
}

// createMatches выполняет первый проход: вставку всех матчей и накопление
// соответствия UID -> id БД для проводки ссылок вторым проходом.
func (s *bracketService) createMatches(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, bracket *models.Bracket, generated []*brackets.BracketMatch) ([]*models.Match, map[string]int, error) {
	persisted := make([]*models.Match, 0, len(generated))
	byUID := make(map[string]int, len(generated))
	for _, bm := range generated {
		match := matchFromGenerated(tournament, bracket, bm)
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return nil, nil, fmt.Errorf("failed to create match %s: %w", bm.UID, err)
		}
		persisted = append(persisted, match)
		byUID[bm.UID] = match.ID
	}
	return persisted, byUID, nil
}

// advancementLinks собирает для каждого исходного матча цели победителя
// и проигравшего из ссылок Source1/Source2 последующих матчей.
type advancementLinks struct {
	nextUID      string
	winnerToSlot int
	loserNextUID string
	loserToSlot  int
}

func collectAdvancement(generated []*brackets.BracketMatch) map[string]*advancementLinks {
	links := make(map[string]*advancementLinks)
	record := func(src *brackets.SourceRef, targetUID string, slot int) {
		if src == nil {
			return
		}
		l := links[src.MatchUID]
		if l == nil {
			l = &advancementLinks{}
			links[src.MatchUID] = l
		}
		if src.Loser {
			l.loserNextUID = targetUID
			l.loserToSlot = slot
		} else {
			l.nextUID = targetUID
			l.winnerToSlot = slot
		}
	}
	for _, bm := range generated {
		record(bm.Source1, bm.UID, 1)
		record(bm.Source2, bm.UID, 2)
	}
	return links
}

// wireAdvancement выполняет второй проход: проставление next_match_id и
// loser_next_match_id по собранным ссылкам.
func (s *bracketService) wireAdvancement(ctx context.Context, exec repositories.SQLExecutor, generated []*brackets.BracketMatch, byUID map[string]int) error {
	links := collectAdvancement(generated)
	for _, bm := range generated {
		l := links[bm.UID]
		if l == nil {
			continue
		}
		var nextID, winnerSlot, loserNextID, loserSlot *int
		if l.nextUID != "" {
			id, ok := byUID[l.nextUID]
			if !ok {
				return fmt.Errorf("%w: match %s links to unknown match %s", ErrInvariantViolation, bm.UID, l.nextUID)
			}
			slot := l.winnerToSlot
			nextID, winnerSlot = &id, &slot
		}
		if l.loserNextUID != "" {
			id, ok := byUID[l.loserNextUID]
			if !ok {
				return fmt.Errorf("%w: match %s links to unknown match %s", ErrInvariantViolation, bm.UID, l.loserNextUID)
			}
			slot := l.loserToSlot
			loserNextID, loserSlot = &id, &slot
		}
		matchID := byUID[bm.UID]
		if err := s.matchRepo.UpdateAdvancementLinks(ctx, exec, matchID, nextID, winnerSlot, loserNextID, loserSlot); err != nil {
			return fmt.Errorf("failed to wire advancement for match %s: %w", bm.UID, err)
		}
	}
	return nil
}

// matchFromGenerated переводит элемент графа генератора в строку БД.
// Walkover с известным победителем записывается сразу завершенным;
// walkover, ожидающий игрока из предыдущего матча, остается scheduled и
// завершается процедурой продвижения.
func matchFromGenerated(tournament *models.Tournament, bracket *models.Bracket, bm *brackets.BracketMatch) *models.Match {
	match := &models.Match{
		TournamentID: tournament.ID,
		BracketID:    bracket.ID,
		UID:          bm.UID,
		Round:        bm.Round,
		OrderInRound: bm.OrderInRound,
		Branch:       bm.Branch,
		Player1ID:    bm.Participant1ID,
		Player2ID:    bm.Participant2ID,
		Status:       models.MatchScheduled,
		Handicap:     bm.Handicap,
		Walkover:     bm.Walkover,
	}
	if bm.Walkover {
		if bm.WinnerID != nil {
			match.Status = models.MatchCompleted
			match.WinnerID = bm.WinnerID
		} else if !bm.Live() {
			// Мертвая bye-ветка: завершен без победителя.
			match.Status = models.MatchCompleted
		}
	}
	return match
}

func (s *bracketService) ValidateTournament(ctx context.Context, tournamentID int) (*ValidationResult, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if !tournament.Kind.Valid() {
		return &ValidationResult{Reason: fmt.Sprintf("unsupported bracket kind %q", tournament.Kind)}, nil
	}
	if tournament.Status == models.StatusCompleted || tournament.Status == models.StatusCanceled {
		return &ValidationResult{Reason: fmt.Sprintf("tournament is %s", tournament.Status)}, nil
	}

	existing, err := s.bracketRepo.GetCurrentByTournament(ctx, tournamentID)
	if err != nil && !errors.Is(err, repositories.ErrBracketNotFound) {
		return nil, fmt.Errorf("failed to check current bracket for tournament %d: %w", tournamentID, err)
	}
	if existing != nil {
		return &ValidationResult{Reason: "bracket already exists; regenerate with force to replace it"}, nil
	}

	participants, err := s.participantRepo.ListConfirmedByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed participants for tournament %d: %w", tournamentID, err)
	}
	if err := validateParticipantCount(tournament.Kind, len(participants)); err != nil {
		return &ValidationResult{Reason: err.Error()}, nil
	}
	return &ValidationResult{Valid: true}, nil
}

func (s *bracketService) GetCurrentBracket(ctx context.Context, tournamentID int) (*models.Bracket, []*models.Match, error) {
	bracket, err := s.bracketRepo.GetCurrentByTournament(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, nil, ErrBracketNotFound
		}
		return nil, nil, fmt.Errorf("failed to load current bracket for tournament %d: %w", tournamentID, err)
	}
	matches, err := s.matchRepo.ListByBracket(ctx, bracket.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list matches of bracket %d: %w", bracket.ID, err)
	}
	return bracket, matches, nil
}

func validateParticipantCount(kind models.TournamentKind, count int) error {
	if kind == models.KindSaboDouble16 {
		if count < models.SaboCapacity {
			return fmt.Errorf("%w (confirmed %d)", ErrTooFewParticipants, count)
		}
		if count > models.SaboCapacity {
			return fmt.Errorf("%w (confirmed %d)", ErrTooManyParticipants, count)
		}
		return nil
	}
	if count < 2 {
		return fmt.Errorf("%w: confirmed %d", brackets.ErrInsufficientParticipants, count)
	}
	return nil
}

// defaultSeedingMethod: фиксированная сетка SABO садится по порядку
// регистрации, остальные форматы по рейтингу.
func defaultSeedingMethod(kind models.TournamentKind) models.SeedingMethod {
	if kind == models.KindSaboDouble16 {
		return models.SeedingRegistrationOrder
	}
	return models.SeedingRatingBased
}

func generatorFor(kind models.TournamentKind) (brackets.BracketGenerator, error) {
	switch kind {
	case models.KindSingleElimination:
		return brackets.NewSingleEliminationGenerator(), nil
	case models.KindDoubleElimination:
		return brackets.NewDoubleEliminationGenerator(), nil
	case models.KindSaboDouble16:
		return brackets.NewSaboFixedBracketGenerator(), nil
	default:
		return nil, fmt.Errorf("%w: %q", brackets.ErrUnsupportedBracketKind, kind)
	}
}

// withRetry повторяет операцию один раз, только если первая попытка
// уперлась в недоступность хранилища.
func withRetry(op func() error) error {
	err := op()
	if err != nil && errors.Is(err, repositories.ErrStorageUnavailable) {
		err = op()
	}
	return err
}
