package handicap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func TestComputeEqualRanksReturnsNoRecord(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	record, err := calc.Compute(models.RankG, models.RankG, 100)
	require.NoError(t, err)
	assert.Nil(t, record, "equal ranks must produce no handicap record at all")
}

func TestComputeSpotGoesToWeakerSide(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	// G (tier 6) против I (tier 2): разрыв 4 под-разряда.
	record, err := calc.Compute(models.RankG, models.RankI, 100)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, 4, record.RankGap)
	assert.Equal(t, 8, record.RaceTo)
	assert.Equal(t, 0.0, record.InitialScoreA, "stronger side must not get a spot")
	assert.Equal(t, 2.0, record.InitialScoreB)
}

func TestComputeIsSymmetric(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	forward, err := calc.Compute(models.RankG, models.RankI, 200)
	require.NoError(t, err)
	backward, err := calc.Compute(models.RankI, models.RankG, 200)
	require.NoError(t, err)

	fSpot, fSide := forward.Spot()
	bSpot, bSide := backward.Spot()
	assert.Equal(t, fSpot, bSpot)
	assert.NotEqual(t, fSide, bSide, "the spot must follow the weaker player, not the argument order")
	assert.Equal(t, forward.RankGap, backward.RankGap)
}

func TestComputeSpotGrowsWithWager(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	// Разрыв 3 под-разряда: H (tier 4) против K+ (tier 1).
	low, err := calc.Compute(models.RankH, models.RankKPlus, 50)
	require.NoError(t, err)
	high, err := calc.Compute(models.RankH, models.RankKPlus, 100)
	require.NoError(t, err)

	lowSpot, _ := low.Spot()
	highSpot, _ := high.Spot()
	assert.Less(t, lowSpot, highSpot, "a higher wager must produce a strictly larger spot for the same gap")
}

func TestComputeSpotClampedToHalfRace(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	// Максимальный разрыв и максимальная ставка.
	record, err := calc.Compute(models.RankEPlus, models.RankK, 600)
	require.NoError(t, err)
	require.NotNil(t, record)

	spot, _ := record.Spot()
	assert.Equal(t, 22, record.RaceTo)
	assert.LessOrEqual(t, spot, float64(record.RaceTo)/2)
	assert.Equal(t, models.HandicapHeavy, record.Severity())
}

func TestComputeMinimumSpotIsHalfPoint(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	record, err := calc.Compute(models.RankKPlus, models.RankK, 50)
	require.NoError(t, err)
	require.NotNil(t, record)

	spot, _ := record.Spot()
	assert.Equal(t, 0.5, spot)
}

func TestRaceToBreakpoints(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	tests := []struct {
		wager  int
		raceTo int
	}{
		{50, 8},
		{100, 8},
		{150, 8},
		{200, 12},
		{300, 14},
		{400, 16},
		{500, 18},
		{599, 18},
		{600, 22},
		{1000, 22},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.raceTo, calc.RaceTo(tt.wager), "wager %d", tt.wager)
	}
}

func TestComputeRejectsUnknownRank(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	_, err := calc.Compute(models.Rank("Z"), models.RankG, 100)
	assert.ErrorIs(t, err, ErrUnknownRank)

	_, err = calc.Compute(models.RankG, models.Rank(""), 100)
	assert.ErrorIs(t, err, ErrUnknownRank)
}

func TestComputeRejectsNonPositiveWager(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	_, err := calc.Compute(models.RankG, models.RankI, 0)
	assert.ErrorIs(t, err, ErrInvalidWager)

	_, err = calc.Compute(models.RankG, models.RankI, -100)
	assert.ErrorIs(t, err, ErrInvalidWager)
}

func TestComputeRecordValidates(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	for gap := 1; gap <= 11; gap++ {
		record, err := calc.Compute(models.RankLadder[0], models.RankLadder[gap], 300)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.NoError(t, record.Validate())
	}
}
