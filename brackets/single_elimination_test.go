package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/handicap"
	"github.com/Dosada05/bracket-engine/models"
)

func TestSingleEliminationFourPlayers(t *testing.T) {
	seeded := testParticipants(4)
	result, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: seeded,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.RoundCount)
	require.Len(t, result.Matches, 3)

	// Первый посев против четвертого, второй против третьего.
	r1m1 := matchByUID(result.Matches, "R1M1")
	require.NotNil(t, r1m1)
	assert.Equal(t, seeded[0].ID, *r1m1.Participant1ID)
	assert.Equal(t, seeded[3].ID, *r1m1.Participant2ID)

	r1m2 := matchByUID(result.Matches, "R1M2")
	require.NotNil(t, r1m2)
	assert.Equal(t, seeded[1].ID, *r1m2.Participant1ID)
	assert.Equal(t, seeded[2].ID, *r1m2.Participant2ID)

	final := matchByUID(result.Matches, "R2M1")
	require.NotNil(t, final)
	assert.Equal(t, "R1M1", final.Source1.MatchUID)
	assert.Equal(t, "R1M2", final.Source2.MatchUID)
	assert.False(t, final.Source1.Loser)
}

func TestSingleEliminationByesBecomeWalkovers(t *testing.T) {
	seeded := testParticipants(5)
	result, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: seeded,
	})
	require.NoError(t, err)

	// Сетка дополняется до 8: раунд r содержит 8/2^r матчей.
	assert.Equal(t, 3, result.RoundCount)
	require.Len(t, result.Matches, 7)

	// Bye верхнего посева фиксируется как walkover с победителем.
	r1m1 := matchByUID(result.Matches, "R1M1")
	require.NotNil(t, r1m1)
	assert.True(t, r1m1.Walkover)
	require.NotNil(t, r1m1.WinnerID)
	assert.Equal(t, seeded[0].ID, *r1m1.WinnerID)

	// Пары посевов 4 и 5 играют единственный настоящий матч раунда.
	r1m2 := matchByUID(result.Matches, "R1M2")
	require.NotNil(t, r1m2)
	assert.False(t, r1m2.Walkover)
	assert.Equal(t, seeded[3].ID, *r1m2.Participant1ID)
	assert.Equal(t, seeded[4].ID, *r1m2.Participant2ID)

	// Победители walkover продвинуты во второй раунд немедленно.
	r2m1 := matchByUID(result.Matches, "R2M1")
	require.NotNil(t, r2m1)
	assert.False(t, r2m1.Walkover)
	require.NotNil(t, r2m1.Participant1ID)
	assert.Equal(t, seeded[0].ID, *r2m1.Participant1ID)
	assert.Nil(t, r2m1.Participant2ID, "slot fed by a live match stays open")

	r2m2 := matchByUID(result.Matches, "R2M2")
	require.NotNil(t, r2m2)
	assert.False(t, r2m2.Walkover)
	require.NotNil(t, r2m2.Participant1ID)
	require.NotNil(t, r2m2.Participant2ID)
	assert.Equal(t, seeded[1].ID, *r2m2.Participant1ID)
	assert.Equal(t, seeded[2].ID, *r2m2.Participant2ID)
}

func TestSingleEliminationTwoPlayers(t *testing.T) {
	result, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: testParticipants(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RoundCount)
	assert.Len(t, result.Matches, 1)
}

func TestSingleEliminationTooFewPlayers(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	_, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{Participants: testParticipants(1)})
	assert.ErrorIs(t, err, ErrInsufficientParticipants)

	_, err = gen.GenerateBracket(context.Background(), GenerateBracketParams{Participants: nil})
	assert.ErrorIs(t, err, ErrInsufficientParticipants)
}

func TestSingleEliminationMatchCountForAnySize(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	for n := 2; n <= 33; n++ {
		result, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{
			Participants: testParticipants(n),
		})
		require.NoErrorf(t, err, "size %d", n)

		bracketSize := 1
		for bracketSize < n {
			bracketSize *= 2
		}
		assert.Equalf(t, bracketSize-1, len(result.Matches), "size %d", n)
	}
}

func TestSingleEliminationAttachesHandicap(t *testing.T) {
	seeded := testParticipants(4)
	// Разводим разряды: сильнейший E, слабейший существенно ниже.
	seeded[0].Rank = models.RankE
	seeded[3].Rank = models.RankI

	calc := handicap.NewCalculator(handicap.DefaultConfig())
	result, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: seeded,
		Handicap:     calc,
		Wager:        200,
	})
	require.NoError(t, err)

	r1m1 := matchByUID(result.Matches, "R1M1")
	require.NotNil(t, r1m1)
	require.NotNil(t, r1m1.Handicap, "pair with a rank gap must carry a handicap record")
	assert.Equal(t, 12, r1m1.Handicap.RaceTo)
	_, side := r1m1.Handicap.Spot()
	assert.Equal(t, 2, side, "the weaker seed sits in slot 2 and gets the spot")
}
