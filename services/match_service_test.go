package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/handicap"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

func intPtr(v int) *int { return &v }

type matchServiceFixture struct {
	service        MatchService
	tournamentRepo *fakeTournamentRepo
	matchRepo      *fakeMatchRepo

	m1, m2, final *models.Match
}

// Фикстура: сетка на четырех игроков, матчи первого раунда заполнены,
// финал ждет победителей.
func newMatchServiceFixture() *matchServiceFixture {
	tournamentRepo := newFakeTournamentRepo(&models.Tournament{
		ID:          1,
		Kind:        models.KindSingleElimination,
		Status:      models.StatusOngoing,
		WagerPoints: 200,
	})
	matchRepo := newFakeMatchRepo()

	participants := []*models.Participant{
		{ID: 1, TournamentID: 1, Rank: models.RankE},
		{ID: 2, TournamentID: 1, Rank: models.RankG},
		{ID: 3, TournamentID: 1, Rank: models.RankH},
		{ID: 4, TournamentID: 1, Rank: models.RankI},
	}

	final := matchRepo.put(&models.Match{
		TournamentID: 1, BracketID: 1, UID: "R2M1",
		Round: 2, OrderInRound: 1, Branch: models.BranchWinners,
		Status: models.MatchScheduled,
	})
	m1 := matchRepo.put(&models.Match{
		TournamentID: 1, BracketID: 1, UID: "R1M1",
		Round: 1, OrderInRound: 1, Branch: models.BranchWinners,
		Player1ID: intPtr(1), Player2ID: intPtr(4),
		Status:      models.MatchScheduled,
		NextMatchID: &final.ID, WinnerToSlot: intPtr(1),
	})
	m2 := matchRepo.put(&models.Match{
		TournamentID: 1, BracketID: 1, UID: "R1M2",
		Round: 1, OrderInRound: 2, Branch: models.BranchWinners,
		Player1ID: intPtr(2), Player2ID: intPtr(3),
		Status:      models.MatchScheduled,
		NextMatchID: &final.ID, WinnerToSlot: intPtr(2),
	})

	service := NewMatchService(
		nil,
		matchRepo,
		tournamentRepo,
		&fakeParticipantRepo{participants: participants},
		handicap.NewCalculator(handicap.DefaultConfig()),
		nil,
		nil,
	)
	return &matchServiceFixture{
		service:        service,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		m1:             m1,
		m2:             m2,
		final:          final,
	}
}

// submitAndConfirm проводит заявку до pending_approval.
func (f *matchServiceFixture) submitAndConfirm(t *testing.T, matchID, submitterID, confirmerID int, score1, score2 float64) {
	t.Helper()
	ctx := context.Background()
	_, err := f.service.SubmitScore(ctx, SubmitScoreParams{
		MatchID: matchID, SubmitterID: submitterID, Score1: score1, Score2: score2,
	})
	require.NoError(t, err)
	_, err = f.service.ConfirmScore(ctx, matchID, confirmerID, true, nil)
	require.NoError(t, err)
}

func (f *matchServiceFixture) stored(t *testing.T, id int) *models.Match {
	t.Helper()
	match, err := f.matchRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return match
}

func TestSubmitScore(t *testing.T) {
	fixture := newMatchServiceFixture()
	note := "table 3"

	match, err := fixture.service.SubmitScore(context.Background(), SubmitScoreParams{
		MatchID: fixture.m1.ID, SubmitterID: 1, Score1: 8, Score2: 5, Note: &note,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MatchScoreSubmitted, match.Status)

	stored := fixture.stored(t, fixture.m1.ID)
	assert.Equal(t, models.MatchScoreSubmitted, stored.Status)
	require.NotNil(t, stored.Score1)
	assert.Equal(t, 8.0, *stored.Score1)
	assert.Equal(t, 5.0, *stored.Score2)
	require.NotNil(t, stored.SubmittedBy)
	assert.Equal(t, 1, *stored.SubmittedBy)
	assert.Equal(t, note, *stored.SubmittedNote)
	assert.NotNil(t, stored.SubmittedAt)
	assert.Nil(t, stored.WinnerID)
}

func TestSubmitScoreRejectsBadInput(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	_, err := fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 99, Score1: 8, Score2: 5})
	assert.ErrorIs(t, err, ErrNotMatchParticipant)

	_, err = fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 1, Score1: 7, Score2: 7})
	assert.ErrorIs(t, err, ErrTieScore)

	_, err = fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 1, Score1: -1, Score2: 5})
	assert.ErrorIs(t, err, ErrNegativeScore)

	_, err = fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: 999, SubmitterID: 1, Score1: 8, Score2: 5})
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestSubmitScoreWalkoverAndUnready(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	walkover := fixture.matchRepo.put(&models.Match{
		TournamentID: 1, BracketID: 1, UID: "R1M3",
		Player1ID: intPtr(1), Status: models.MatchCompleted,
		WinnerID: intPtr(1), Walkover: true,
	})
	_, err := fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: walkover.ID, SubmitterID: 1, Score1: 8, Score2: 5})
	assert.ErrorIs(t, err, ErrWalkoverMatch)

	// В финале еще нет игроков.
	_, err = fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.final.ID, SubmitterID: 1, Score1: 8, Score2: 5})
	assert.ErrorIs(t, err, ErrMatchNotReady)
}

func TestSubmitScoreOverwriteOwnSubmission(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	_, err := fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 1, Score1: 8, Score2: 5})
	require.NoError(t, err)

	// Автор поправляет собственную заявку до подтверждения.
	_, err = fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 1, Score1: 8, Score2: 6})
	require.NoError(t, err)
	stored := fixture.stored(t, fixture.m1.ID)
	assert.Equal(t, 6.0, *stored.Score2)

	// Соперник перезаписать чужую подачу не может, только отклонить.
	_, err = fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 4, Score1: 6, Score2: 8})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConfirmScoreGuards(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	// Подтверждать нечего, заявка не подана.
	_, err := fixture.service.ConfirmScore(ctx, fixture.m1.ID, 4, true, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 1, Score1: 8, Score2: 5})
	require.NoError(t, err)

	_, err = fixture.service.ConfirmScore(ctx, fixture.m1.ID, 1, true, nil)
	assert.ErrorIs(t, err, ErrConfirmerIsSubmitter)

	_, err = fixture.service.ConfirmScore(ctx, fixture.m1.ID, 99, true, nil)
	assert.ErrorIs(t, err, ErrNotMatchParticipant)
}

func TestConfirmScoreAccept(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	_, err := fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 1, Score1: 8, Score2: 5})
	require.NoError(t, err)

	match, err := fixture.service.ConfirmScore(ctx, fixture.m1.ID, 4, true, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchPendingApproval, match.Status)

	stored := fixture.stored(t, fixture.m1.ID)
	assert.Equal(t, models.MatchPendingApproval, stored.Status)
	require.NotNil(t, stored.ConfirmedBy)
	assert.Equal(t, 4, *stored.ConfirmedBy)
	assert.NotNil(t, stored.ConfirmedAt)
	// Счет сохраняется до решения организатора.
	require.NotNil(t, stored.Score1)
	assert.Equal(t, 8.0, *stored.Score1)
}

func TestConfirmScoreRejectReturnsMatchToScheduled(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	_, err := fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 1, Score1: 8, Score2: 5})
	require.NoError(t, err)

	reason := "score was 8-6"
	match, err := fixture.service.ConfirmScore(ctx, fixture.m1.ID, 4, false, &reason)
	require.NoError(t, err)
	assert.Equal(t, models.MatchScheduled, match.Status)

	// Заявка стерта целиком, осталась только запись об отклонении.
	stored := fixture.stored(t, fixture.m1.ID)
	assert.Equal(t, models.MatchScheduled, stored.Status)
	assert.Nil(t, stored.Score1)
	assert.Nil(t, stored.Score2)
	assert.Nil(t, stored.SubmittedBy)
	assert.Nil(t, stored.SubmittedAt)
	assert.Nil(t, stored.SubmittedNote)
	require.NotNil(t, stored.ConfirmedBy)
	assert.Equal(t, 4, *stored.ConfirmedBy)
	assert.Equal(t, reason, *stored.ConfirmNote)

	// Любой участник подает заново, следы первого прохода стираются.
	_, err = fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 4, Score1: 6, Score2: 8})
	require.NoError(t, err)
	stored = fixture.stored(t, fixture.m1.ID)
	assert.Equal(t, models.MatchScoreSubmitted, stored.Status)
	assert.Equal(t, 4, *stored.SubmittedBy)
	assert.Nil(t, stored.ConfirmedBy)
	assert.Nil(t, stored.ConfirmNote)
}

func TestAuthorityRejectedMatchIsTerminal(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	fixture.submitAndConfirm(t, fixture.m1.ID, 1, 4, 8, 5)
	match, err := fixture.service.ApproveResult(ctx, fixture.m1.ID, 10, false, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchRejected, match.Status)
	assert.True(t, match.Status.Terminal())

	// Решение организатора закрывает матч для любых новых заявок.
	_, err = fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 1, Score1: 9, Score2: 3})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 4, Score1: 3, Score2: 9})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored := fixture.stored(t, fixture.m1.ID)
	assert.Equal(t, models.MatchRejected, stored.Status)
}

func TestApproveResultGuards(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	// Без подтверждения соперника утверждать нечего.
	_, err := fixture.service.ApproveResult(ctx, fixture.m1.ID, 10, true, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = fixture.service.SubmitScore(ctx, SubmitScoreParams{MatchID: fixture.m1.ID, SubmitterID: 1, Score1: 8, Score2: 5})
	require.NoError(t, err)
	_, err = fixture.service.ApproveResult(ctx, fixture.m1.ID, 10, true, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApproveResultReject(t *testing.T) {
	fixture := newMatchServiceFixture()
	fixture.submitAndConfirm(t, fixture.m1.ID, 1, 4, 8, 5)

	note := "recorded on the wrong match"
	match, err := fixture.service.ApproveResult(context.Background(), fixture.m1.ID, 10, false, &note)
	require.NoError(t, err)
	assert.Equal(t, models.MatchRejected, match.Status)

	stored := fixture.stored(t, fixture.m1.ID)
	assert.Nil(t, stored.Score1)
	assert.Nil(t, stored.WinnerID)
	require.NotNil(t, stored.ApprovedBy)
	assert.Equal(t, 10, *stored.ApprovedBy)
	assert.Equal(t, note, *stored.ApprovalNote)

	// Финал не тронут.
	final := fixture.stored(t, fixture.final.ID)
	assert.Nil(t, final.Player1ID)
}

func TestApproveResultCompletesAndAdvancesWinner(t *testing.T) {
	fixture := newMatchServiceFixture()
	fixture.submitAndConfirm(t, fixture.m1.ID, 1, 4, 8, 5)

	match, err := fixture.service.ApproveResult(context.Background(), fixture.m1.ID, 10, true, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, match.Status)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, 1, *match.WinnerID)

	final := fixture.stored(t, fixture.final.ID)
	require.NotNil(t, final.Player1ID)
	assert.Equal(t, 1, *final.Player1ID)
	assert.Nil(t, final.Player2ID)
	assert.Nil(t, final.Handicap, "handicap waits for the second player")

	// Турнир продолжается, финал впереди.
	assert.Equal(t, models.StatusOngoing, fixture.tournamentRepo.status(1))
}

func TestApproveResultWinnerByHigherScore(t *testing.T) {
	fixture := newMatchServiceFixture()
	fixture.submitAndConfirm(t, fixture.m2.ID, 2, 3, 4, 8)

	match, err := fixture.service.ApproveResult(context.Background(), fixture.m2.ID, 10, true, nil)
	require.NoError(t, err)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, 3, *match.WinnerID, "player 2 of the pair won 8-4")

	final := fixture.stored(t, fixture.final.ID)
	require.NotNil(t, final.Player2ID)
	assert.Equal(t, 3, *final.Player2ID)
}

func TestHandicapAttachedWhenMatchFills(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	fixture.submitAndConfirm(t, fixture.m1.ID, 1, 4, 8, 5)
	_, err := fixture.service.ApproveResult(ctx, fixture.m1.ID, 10, true, nil)
	require.NoError(t, err)
	fixture.submitAndConfirm(t, fixture.m2.ID, 2, 3, 4, 8)
	_, err = fixture.service.ApproveResult(ctx, fixture.m2.ID, 10, true, nil)
	require.NoError(t, err)

	// Финал: E против H при ставке 200, фора в пользу второго слота.
	final := fixture.stored(t, fixture.final.ID)
	require.NotNil(t, final.Handicap)
	assert.Equal(t, 12, final.Handicap.RaceTo)
	assert.Zero(t, final.Handicap.InitialScoreA)
	assert.Greater(t, final.Handicap.InitialScoreB, 0.0)
}

func TestFinalVictoryCompletesTournament(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	fixture.submitAndConfirm(t, fixture.m1.ID, 1, 4, 8, 5)
	_, err := fixture.service.ApproveResult(ctx, fixture.m1.ID, 10, true, nil)
	require.NoError(t, err)
	fixture.submitAndConfirm(t, fixture.m2.ID, 2, 3, 4, 8)
	_, err = fixture.service.ApproveResult(ctx, fixture.m2.ID, 10, true, nil)
	require.NoError(t, err)

	fixture.submitAndConfirm(t, fixture.final.ID, 1, 3, 12, 9)
	match, err := fixture.service.ApproveResult(ctx, fixture.final.ID, 10, true, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, match.Status)
	assert.Equal(t, 1, *match.WinnerID)

	assert.Equal(t, models.StatusCompleted, fixture.tournamentRepo.status(1))
}

func TestAdvancementCompletesPendingWalkoverChain(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	// Нижняя сетка с нехваткой игроков: победитель m1 попадает в
	// отложенный walkover и должен проследовать сквозь него.
	after := fixture.matchRepo.put(&models.Match{
		TournamentID: 1, BracketID: 1, UID: "L2M1",
		Round: 2, OrderInRound: 1, Branch: models.BranchLosers,
		Status: models.MatchScheduled,
	})
	pending := fixture.matchRepo.put(&models.Match{
		TournamentID: 1, BracketID: 1, UID: "L1M1",
		Round: 1, OrderInRound: 1, Branch: models.BranchLosers,
		Status: models.MatchScheduled, Walkover: true,
		NextMatchID: &after.ID, WinnerToSlot: intPtr(1),
	})
	fixture.matchRepo.UpdateAdvancementLinks(ctx, nil, fixture.m1.ID,
		fixture.m1.NextMatchID, fixture.m1.WinnerToSlot, &pending.ID, intPtr(1))

	fixture.submitAndConfirm(t, fixture.m1.ID, 1, 4, 8, 5)
	_, err := fixture.service.ApproveResult(ctx, fixture.m1.ID, 10, true, nil)
	require.NoError(t, err)

	// Проигравший (4) поставлен в walkover, walkover закрыт немедленно.
	resolved := fixture.stored(t, pending.ID)
	assert.Equal(t, models.MatchCompleted, resolved.Status)
	require.NotNil(t, resolved.WinnerID)
	assert.Equal(t, 4, *resolved.WinnerID)

	// И продвинут дальше по нижней сетке.
	next := fixture.stored(t, after.ID)
	require.NotNil(t, next.Player1ID)
	assert.Equal(t, 4, *next.Player1ID)
}

func TestOccupiedSlotIsInvariantViolation(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	fixture.matchRepo.SetPlayerSlot(ctx, nil, fixture.final.ID, 1, 7)

	fixture.submitAndConfirm(t, fixture.m1.ID, 1, 4, 8, 5)
	// Матч завершается, сбой продвижения не откатывает результат.
	match, err := fixture.service.ApproveResult(ctx, fixture.m1.ID, 10, true, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, match.Status)

	final := fixture.stored(t, fixture.final.ID)
	assert.Equal(t, 7, *final.Player1ID, "the occupied slot is left untouched")
}

func grandFinalFixture(winnersChampion, losersChampion int) *matchServiceFixture {
	tournamentRepo := newFakeTournamentRepo(&models.Tournament{
		ID:     1,
		Kind:   models.KindDoubleElimination,
		Status: models.StatusOngoing,
	})
	matchRepo := newFakeMatchRepo()
	gf := matchRepo.put(&models.Match{
		TournamentID: 1, BracketID: 1, UID: brackets.GrandFinalUID,
		Round: 1, OrderInRound: 1, Branch: models.BranchGrandFinal,
		Player1ID: &winnersChampion, Player2ID: &losersChampion,
		Status: models.MatchScheduled,
	})
	service := NewMatchService(nil, matchRepo, tournamentRepo,
		&fakeParticipantRepo{}, nil, nil, nil)
	return &matchServiceFixture{
		service:        service,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		final:          gf,
	}
}

func TestGrandFinalLowerBracketWinSpawnsReset(t *testing.T) {
	fixture := grandFinalFixture(1, 2)
	ctx := context.Background()

	// Чемпион нижней сетки (слот 2) выигрывает первый гранд-финал:
	// счет позиционный, Score2 принадлежит второму слоту.
	fixture.submitAndConfirm(t, fixture.final.ID, 2, 1, 7, 10)
	_, err := fixture.service.ApproveResult(ctx, fixture.final.ID, 10, true, nil)
	require.NoError(t, err)

	reset, err := fixture.matchRepo.GetByUID(ctx, 1, brackets.GrandFinalResetUID)
	require.NoError(t, err, "the bracket reset match must exist")
	assert.Equal(t, models.MatchScheduled, reset.Status)
	assert.Equal(t, 1, *reset.Player1ID)
	assert.Equal(t, 2, *reset.Player2ID)
	assert.Equal(t, fixture.final.Round+1, reset.Round)

	// Турнир не завершен, впереди второй гранд-финал.
	assert.Equal(t, models.StatusOngoing, fixture.tournamentRepo.status(1))
}

func TestGrandFinalUpperBracketWinEndsTournament(t *testing.T) {
	fixture := grandFinalFixture(1, 2)
	ctx := context.Background()

	fixture.submitAndConfirm(t, fixture.final.ID, 1, 2, 10, 4)
	_, err := fixture.service.ApproveResult(ctx, fixture.final.ID, 10, true, nil)
	require.NoError(t, err)

	_, err = fixture.matchRepo.GetByUID(ctx, 1, brackets.GrandFinalResetUID)
	assert.Error(t, err, "no reset after an upper bracket champion win")
	assert.Equal(t, models.StatusCompleted, fixture.tournamentRepo.status(1))
}

func TestStaleTransitionDetected(t *testing.T) {
	fixture := newMatchServiceFixture()
	ctx := context.Background()

	submitted, err := fixture.service.SubmitScore(ctx, SubmitScoreParams{
		MatchID: fixture.m1.ID, SubmitterID: 1, Score1: 8, Score2: 5,
	})
	require.NoError(t, err)

	// Конкурент уже увел матч из score_submitted.
	_, err = fixture.service.ConfirmScore(ctx, submitted.ID, 4, false, nil)
	require.NoError(t, err)
	_, err = fixture.service.SubmitScore(ctx, SubmitScoreParams{
		MatchID: fixture.m1.ID, SubmitterID: 4, Score1: 6, Score2: 8,
	})
	require.NoError(t, err)

	// Запись по устаревшему снимку упирается в CAS хранилища.
	stale := *submitted
	stale.Status = models.MatchRejected
	err = fixture.matchRepo.UpdateTransition(ctx, nil, &stale, models.MatchRejected)
	assert.ErrorIs(t, err, repositories.ErrMatchStateStale)
}
