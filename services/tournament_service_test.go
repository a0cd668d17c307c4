package services

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/handicap"
	"github.com/Dosada05/bracket-engine/models"
)

func TestChangeStatus(t *testing.T) {
	repo := newFakeTournamentRepo(&models.Tournament{
		ID:     1,
		Kind:   models.KindSingleElimination,
		Status: models.StatusRegistration,
	})
	service := NewTournamentService(nil, repo, &fakeParticipantRepo{}, newFakeBracketRepo(), newFakeMatchRepo())
	ctx := context.Background()

	tournament, err := service.ChangeStatus(ctx, 1, models.StatusRegistrationClosed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistrationClosed, tournament.Status)
	assert.Equal(t, models.StatusRegistrationClosed, repo.status(1))

	// Перепрыгнуть через ongoing нельзя.
	_, err = service.ChangeStatus(ctx, 1, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.StatusRegistrationClosed, repo.status(1))

	_, err = service.ChangeStatus(ctx, 999, models.StatusOngoing)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestGetFullTournamentData(t *testing.T) {
	tournamentRepo := newFakeTournamentRepo(&models.Tournament{
		ID:     1,
		Kind:   models.KindSingleElimination,
		Status: models.StatusRegistrationClosed,
	})
	participantRepo := &fakeParticipantRepo{participants: makeParticipants(1, 4)}
	bracketRepo := newFakeBracketRepo()
	matchRepo := newFakeMatchRepo()
	ctx := context.Background()

	service := NewTournamentService(nil, tournamentRepo, participantRepo, bracketRepo, matchRepo)

	// До генерации: участники есть, сетки нет.
	tournament, err := service.GetFullTournamentData(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, tournament.Participants, 4)
	assert.Nil(t, tournament.Bracket)
	assert.Empty(t, tournament.Matches)

	generation := NewBracketService(nil, tournamentRepo, participantRepo, bracketRepo, matchRepo,
		brackets.NewSeeder(rand.New(rand.NewSource(1))),
		handicap.NewCalculator(handicap.DefaultConfig()), nil, nil)
	_, err = generation.GenerateBracket(ctx, 1, "", false)
	require.NoError(t, err)

	tournament, err = service.GetFullTournamentData(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, tournament.Bracket)
	assert.True(t, tournament.Bracket.Ready)
	assert.Len(t, tournament.Matches, 3)
}
