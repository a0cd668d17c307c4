package brackets

import (
	"context"
	"fmt"
	"math"

	"github.com/Dosada05/bracket-engine/models"
)

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket строит сетку на выбывание: размер округляется вверх
// до степени двойки, bye достаются верхним посевам и фиксируются как
// walkover, так что раунд r всегда содержит bracketSize/2^r матчей.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GenerateResult, error) {
	seeded := params.Participants
	n := len(seeded)
	if n < 2 {
		return nil, ErrInsufficientParticipants
	}

	numRounds := int(math.Ceil(math.Log2(float64(n))))
	bracketSize := 1 << uint(numRounds)

	matches := make([]*BracketMatch, 0, bracketSize-1)
	byID := participantsByID(seeded)

	// Первый раунд: пары по посеву, индексы за пределами n дают bye.
	for i, pair := range seedPairs(bracketSize) {
		bm := &BracketMatch{
			UID:          fmt.Sprintf("R1M%d", i+1),
			Round:        1,
			OrderInRound: i + 1,
			Branch:       models.BranchWinners,
		}
		if pair[0] < n {
			id := seeded[pair[0]].ID
			bm.Participant1ID = &id
		} else {
			bm.Vacant1 = true
		}
		if pair[1] < n {
			id := seeded[pair[1]].ID
			bm.Participant2ID = &id
		} else {
			bm.Vacant2 = true
		}
		matches = append(matches, bm)
	}

	// Последующие раунды: слоты питаются победителями предыдущего.
	for r := 2; r <= numRounds; r++ {
		matchesInRound := bracketSize >> uint(r)
		for i := 1; i <= matchesInRound; i++ {
			matches = append(matches, &BracketMatch{
				UID:          fmt.Sprintf("R%dM%d", r, i),
				Round:        r,
				OrderInRound: i,
				Branch:       models.BranchWinners,
				Source1:      &SourceRef{MatchUID: fmt.Sprintf("R%dM%d", r-1, 2*i-1)},
				Source2:      &SourceRef{MatchUID: fmt.Sprintf("R%dM%d", r-1, 2*i)},
			})
		}
	}

	resolveWalkovers(matches)

	for _, bm := range matches {
		if bm.Walkover {
			continue
		}
		if err := attachHandicap(bm, params, byID); err != nil {
			return nil, fmt.Errorf("handicap for match %s: %w", bm.UID, err)
		}
	}

	return &GenerateResult{Matches: matches, RoundCount: numRounds}, nil
}
