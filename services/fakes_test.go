package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

// In-memory реализации репозиториев для сервисных тестов. Возвращают
// копии, как и настоящие: мутации доменных объектов не видны
// хранилищу до явной записи.

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	repo := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
	for _, tournament := range tournaments {
		copied := *tournament
		repo.tournaments[tournament.ID] = &copied
	}
	return repo
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, from, to models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if stored.Status != from {
		return repositories.ErrTournamentStatusStale
	}
	stored.Status = to
	return nil
}

func (r *fakeTournamentRepo) status(id int) models.TournamentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tournaments[id].Status
}

type fakeParticipantRepo struct {
	participants []*models.Participant
}

func (r *fakeParticipantRepo) ListConfirmedByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	var result []*models.Participant
	for _, p := range r.participants {
		if p.TournamentID == tournamentID {
			copied := *p
			result = append(result, &copied)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].RegisteredAt.Equal(result[j].RegisteredAt) {
			return result[i].RegisteredAt.Before(result[j].RegisteredAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *fakeParticipantRepo) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	for _, p := range r.participants {
		if p.ID == id {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

type fakeBracketRepo struct {
	mu       sync.Mutex
	nextID   int
	brackets map[int]*models.Bracket
}

func newFakeBracketRepo() *fakeBracketRepo {
	return &fakeBracketRepo{brackets: make(map[int]*models.Bracket)}
}

func (r *fakeBracketRepo) Create(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.brackets {
		if stored.TournamentID == bracket.TournamentID && !stored.Superseded {
			return repositories.ErrBracketConflict
		}
	}
	r.nextID++
	bracket.ID = r.nextID
	bracket.GeneratedAt = time.Now()
	copied := *bracket
	r.brackets[bracket.ID] = &copied
	return nil
}

func (r *fakeBracketRepo) GetCurrentByTournament(ctx context.Context, tournamentID int) (*models.Bracket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.brackets {
		if stored.TournamentID == tournamentID && !stored.Superseded {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, repositories.ErrBracketNotFound
}

func (r *fakeBracketRepo) MarkReady(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.brackets[id]
	if !ok {
		return repositories.ErrBracketNotFound
	}
	stored.Ready = true
	return nil
}

func (r *fakeBracketRepo) Supersede(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.brackets {
		if stored.TournamentID == tournamentID {
			stored.Superseded = true
		}
	}
	return nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[int]*models.Match

	// failCreates заставляет первые n вызовов Create вернуть ошибку
	// недоступности хранилища.
	failCreates int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) put(match *models.Match) *models.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	if match.ID == 0 {
		r.nextID++
		match.ID = r.nextID
	} else if match.ID > r.nextID {
		r.nextID = match.ID
	}
	copied := *match
	r.matches[match.ID] = &copied
	return r.matches[match.ID]
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	if r.failCreates > 0 {
		r.failCreates--
		r.mu.Unlock()
		return fmt.Errorf("create rejected: %w", repositories.ErrStorageUnavailable)
	}
	r.mu.Unlock()
	match.CreatedAt = time.Now()
	r.put(match)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeMatchRepo) GetByUID(ctx context.Context, bracketID int, uid string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.matches {
		if stored.BracketID == bracketID && stored.UID == uid {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByBracket(ctx context.Context, bracketID int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Match
	for _, stored := range r.matches {
		if stored.BracketID == bracketID {
			copied := *stored
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Match
	for _, stored := range r.matches {
		if stored.TournamentID == tournamentID {
			copied := *stored
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, stored := range r.matches {
		if stored.TournamentID == tournamentID {
			delete(r.matches, id)
		}
	}
	return nil
}

func (r *fakeMatchRepo) UpdateAdvancementLinks(ctx context.Context, exec repositories.SQLExecutor, matchID int, nextMatchID, winnerToSlot, loserNextMatchID, loserToSlot *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.NextMatchID = nextMatchID
	stored.WinnerToSlot = winnerToSlot
	stored.LoserNextMatchID = loserNextMatchID
	stored.LoserToSlot = loserToSlot
	return nil
}

func (r *fakeMatchRepo) UpdateTransition(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, from models.MatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.matches[match.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if stored.Status != from {
		return repositories.ErrMatchStateStale
	}
	stored.Status = match.Status
	stored.Score1 = match.Score1
	stored.Score2 = match.Score2
	stored.WinnerID = match.WinnerID
	stored.SubmittedBy = match.SubmittedBy
	stored.SubmittedNote = match.SubmittedNote
	stored.SubmittedAt = match.SubmittedAt
	stored.ConfirmedBy = match.ConfirmedBy
	stored.ConfirmedAt = match.ConfirmedAt
	stored.ConfirmNote = match.ConfirmNote
	stored.ApprovedBy = match.ApprovedBy
	stored.ApprovalNote = match.ApprovalNote
	return nil
}

func (r *fakeMatchRepo) SetPlayerSlot(ctx context.Context, exec repositories.SQLExecutor, matchID, slot, participantID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	switch slot {
	case 1:
		if stored.Player1ID != nil {
			return repositories.ErrMatchSlotOccupied
		}
		stored.Player1ID = &participantID
	case 2:
		if stored.Player2ID != nil {
			return repositories.ErrMatchSlotOccupied
		}
		stored.Player2ID = &participantID
	default:
		return fmt.Errorf("invalid player slot %d", slot)
	}
	return nil
}

func (r *fakeMatchRepo) UpdateHandicap(ctx context.Context, exec repositories.SQLExecutor, matchID int, record *models.HandicapRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.Handicap = record
	return nil
}

// capturingNotifier копит события для проверок. Потокобезопасен,
// потому что сервисы шлют уведомления из горутин.
type capturingNotifier struct {
	mu         sync.Mutex
	bracketIDs []int
	matchIDs   []int
	outcomes   []MatchOutcome
}

func (n *capturingNotifier) BracketReady(tournamentID int, bracket *models.Bracket) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bracketIDs = append(n.bracketIDs, bracket.ID)
}

func (n *capturingNotifier) MatchTransition(tournamentID int, match *models.Match) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.matchIDs = append(n.matchIDs, match.ID)
}

func (n *capturingNotifier) MatchCompleted(outcome MatchOutcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome)
}
