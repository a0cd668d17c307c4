package brackets

import (
	"context"
	"fmt"
	"math"

	"github.com/Dosada05/bracket-engine/models"
)

// GrandFinalUID помечает матч гранд-финала, создаваемый при генерации.
// Повторный гранд-финал (bracket reset) создается лениво процедурой
// продвижения, только если первый выигрывает финалист нижней сетки.
const (
	GrandFinalUID      = "GF1"
	GrandFinalResetUID = "GF2"
)

type DoubleEliminationGenerator struct {
}

func NewDoubleEliminationGenerator() BracketGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) GetName() string {
	return "DoubleElimination"
}

// GenerateBracket строит верхнюю сетку, зеркальную одиночному
// выбыванию, нижнюю сетку с чередованием внутренних раундов и раундов
// приема проигравших, и единственный гранд-финал.
//
// Для нижней сетки при k раундах верхней: раунды j=1..k-1 дают по два
// раунда: минорный 2j-1 (пары внутри нижней сетки; для j=1 это
// проигравшие первого раунда верхней) и мажорный 2j (победители
// минорного против проигравших раунда j+1 верхней), каждый по
// 2^(k-1-j) матчей.
func (g *DoubleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GenerateResult, error) {
	seeded := params.Participants
	n := len(seeded)
	if n < 2 {
		return nil, ErrInsufficientParticipants
	}

	k := int(math.Ceil(math.Log2(float64(n))))
	bracketSize := 1 << uint(k)
	byID := participantsByID(seeded)

	matches := make([]*BracketMatch, 0, 2*bracketSize-1)

	// Верхняя сетка, раунд 1 по посеву.
	for i, pair := range seedPairs(bracketSize) {
		bm := &BracketMatch{
			UID:          fmt.Sprintf("W1M%d", i+1),
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

	for r := 2; r <= k; r++ {
		for i := 1; i <= bracketSize>>uint(r); i++ {
			matches = append(matches, &BracketMatch{
				UID:          fmt.Sprintf("W%dM%d", r, i),
				Round:        r,
				OrderInRound: i,
				Branch:       models.BranchWinners,
				Source1:      &SourceRef{MatchUID: fmt.Sprintf("W%dM%d", r-1, 2*i-1)},
				Source2:      &SourceRef{MatchUID: fmt.Sprintf("W%dM%d", r-1, 2*i)},
			})
		}
	}

	// Нижняя сетка.
	for j := 1; j <= k-1; j++ {
		count := 1 << uint(k-1-j)

		minor := 2*j - 1
		for i := 1; i <= count; i++ {
			bm := &BracketMatch{
				UID:          fmt.Sprintf("L%dM%d", minor, i),
				Round:        minor,
				OrderInRound: i,
				Branch:       models.BranchLosers,
			}
			if j == 1 {
				bm.Source1 = &SourceRef{MatchUID: fmt.Sprintf("W1M%d", 2*i-1), Loser: true}
				bm.Source2 = &SourceRef{MatchUID: fmt.Sprintf("W1M%d", 2*i), Loser: true}
			} else {
				bm.Source1 = &SourceRef{MatchUID: fmt.Sprintf("L%dM%d", minor-1, 2*i-1)}
				bm.Source2 = &SourceRef{MatchUID: fmt.Sprintf("L%dM%d", minor-1, 2*i)}
			}
			matches = append(matches, bm)
		}

		major := 2 * j
		for i := 1; i <= count; i++ {
			matches = append(matches, &BracketMatch{
				UID:          fmt.Sprintf("L%dM%d", major, i),
				Round:        major,
				OrderInRound: i,
				Branch:       models.BranchLosers,
				Source1:      &SourceRef{MatchUID: fmt.Sprintf("L%dM%d", minor, i)},
				Source2:      &SourceRef{MatchUID: fmt.Sprintf("W%dM%d", j+1, i), Loser: true},
			})
		}
	}

	// Гранд-финал: чемпион верхней сетки против чемпиона нижней.
	// Финалист нижней сетки всегда занимает второй слот, на этом
	// строится ленивое создание повторного финала.
	grandFinal := &BracketMatch{
		UID:          GrandFinalUID,
		Round:        1,
		OrderInRound: 1,
		Branch:       models.BranchGrandFinal,
		Source1:      &SourceRef{MatchUID: fmt.Sprintf("W%dM1", k)},
	}
	if k == 1 {
		// Два участника: нижней сетки нет, проигравший единственного
		// матча верхней получает второй шанс сразу в гранд-финале.
		grandFinal.Source2 = &SourceRef{MatchUID: "W1M1", Loser: true}
	} else {
		grandFinal.Source2 = &SourceRef{MatchUID: fmt.Sprintf("L%dM1", 2*(k-1))}
	}
	matches = append(matches, grandFinal)

	resolveWalkovers(matches)

	for _, bm := range matches {
		if bm.Walkover {
			continue
		}
		if err := attachHandicap(bm, params, byID); err != nil {
			return nil, fmt.Errorf("handicap for match %s: %w", bm.UID, err)
		}
	}

	roundCount := k + 1
	if k > 1 {
		roundCount = k + 2*(k-1) + 1
	}
	return &GenerateResult{Matches: matches, RoundCount: roundCount}, nil
}
