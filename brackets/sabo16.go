package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

// Раунды фиксированной сетки SABO-16. Метки раундов нижних веток
// нарочно разнесены по сотням: ветка A принимает проигравших первого
// раунда верхней сетки, ветка B принимает проигравших второго, и их точки слияния не
// следуют обычному удвоению двойного выбывания.
const (
	SaboWinnersR1 = 1
	SaboWinnersR2 = 2
	SaboWinnersR3 = 3

	SaboLosersA1 = 101
	SaboLosersA2 = 102
	SaboLosersA3 = 103

	SaboLosersB1 = 201
	SaboLosersB2 = 202

	SaboSemifinal = 250
	SaboFinal     = 300
)

// SaboMatchCount задает полное число матчей фиксированной сетки:
// 14 в верхней, 7 в ветке A, 3 в ветке B, 2 полуфинала и финал.
const SaboMatchCount = 27

// saboSeedPairs содержит пары посевов первого раунда (нулевые индексы),
// слот за слотом. Статическая таблица, а не формула.
var saboSeedPairs = [8][2]int{
	{0, 15},
	{7, 8},
	{3, 12},
	{4, 11},
	{1, 14},
	{6, 9},
	{2, 13},
	{5, 10},
}

// saboStage описывает один матч фиксированного графа: откуда приходят
// игроки и к какой ветке он относится. Победные и проигрышные потоки
// заданы таблицей, продвижение не вычисляется.
type saboStage struct {
	uid    string
	round  int
	order  int
	branch models.BracketBranch
	src1   SourceRef
	src2   SourceRef
}

var saboStageTable = []saboStage{
	// Верхняя сетка: раунды 2 и 3 (останавливается на двух финалистах).
	{uid: "W2M1", round: SaboWinnersR2, order: 1, branch: models.BranchWinners, src1: SourceRef{MatchUID: "W1M1"}, src2: SourceRef{MatchUID: "W1M2"}},
	{uid: "W2M2", round: SaboWinnersR2, order: 2, branch: models.BranchWinners, src1: SourceRef{MatchUID: "W1M3"}, src2: SourceRef{MatchUID: "W1M4"}},
	{uid: "W2M3", round: SaboWinnersR2, order: 3, branch: models.BranchWinners, src1: SourceRef{MatchUID: "W1M5"}, src2: SourceRef{MatchUID: "W1M6"}},
	{uid: "W2M4", round: SaboWinnersR2, order: 4, branch: models.BranchWinners, src1: SourceRef{MatchUID: "W1M7"}, src2: SourceRef{MatchUID: "W1M8"}},
	{uid: "W3M1", round: SaboWinnersR3, order: 1, branch: models.BranchWinners, src1: SourceRef{MatchUID: "W2M1"}, src2: SourceRef{MatchUID: "W2M2"}},
	{uid: "W3M2", round: SaboWinnersR3, order: 2, branch: models.BranchWinners, src1: SourceRef{MatchUID: "W2M3"}, src2: SourceRef{MatchUID: "W2M4"}},

	// Ветка A: восемь проигравших первого раунда верхней сетки.
	{uid: "LA101M1", round: SaboLosersA1, order: 1, branch: models.BranchLosers, src1: SourceRef{MatchUID: "W1M1", Loser: true}, src2: SourceRef{MatchUID: "W1M2", Loser: true}},
	{uid: "LA101M2", round: SaboLosersA1, order: 2, branch: models.BranchLosers, src1: SourceRef{MatchUID: "W1M3", Loser: true}, src2: SourceRef{MatchUID: "W1M4", Loser: true}},
	{uid: "LA101M3", round: SaboLosersA1, order: 3, branch: models.BranchLosers, src1: SourceRef{MatchUID: "W1M5", Loser: true}, src2: SourceRef{MatchUID: "W1M6", Loser: true}},
	{uid: "LA101M4", round: SaboLosersA1, order: 4, branch: models.BranchLosers, src1: SourceRef{MatchUID: "W1M7", Loser: true}, src2: SourceRef{MatchUID: "W1M8", Loser: true}},
	{uid: "LA102M1", round: SaboLosersA2, order: 1, branch: models.BranchLosers, src1: SourceRef{MatchUID: "LA101M1"}, src2: SourceRef{MatchUID: "LA101M2"}},
	{uid: "LA102M2", round: SaboLosersA2, order: 2, branch: models.BranchLosers, src1: SourceRef{MatchUID: "LA101M3"}, src2: SourceRef{MatchUID: "LA101M4"}},
	{uid: "LA103M1", round: SaboLosersA3, order: 1, branch: models.BranchLosers, src1: SourceRef{MatchUID: "LA102M1"}, src2: SourceRef{MatchUID: "LA102M2"}},

	// Ветка B: четыре проигравших второго раунда верхней сетки.
	{uid: "LB201M1", round: SaboLosersB1, order: 1, branch: models.BranchLosers, src1: SourceRef{MatchUID: "W2M1", Loser: true}, src2: SourceRef{MatchUID: "W2M2", Loser: true}},
	{uid: "LB201M2", round: SaboLosersB1, order: 2, branch: models.BranchLosers, src1: SourceRef{MatchUID: "W2M3", Loser: true}, src2: SourceRef{MatchUID: "W2M4", Loser: true}},
	{uid: "LB202M1", round: SaboLosersB2, order: 1, branch: models.BranchLosers, src1: SourceRef{MatchUID: "LB201M1"}, src2: SourceRef{MatchUID: "LB201M2"}},

	// Финальная серия: два финалиста верхней сетки против чемпионов
	// веток A и B, затем финал.
	{uid: "SF250M1", round: SaboSemifinal, order: 1, branch: models.BranchGrandFinal, src1: SourceRef{MatchUID: "W3M1"}, src2: SourceRef{MatchUID: "LA103M1"}},
	{uid: "SF250M2", round: SaboSemifinal, order: 2, branch: models.BranchGrandFinal, src1: SourceRef{MatchUID: "W3M2"}, src2: SourceRef{MatchUID: "LB202M1"}},
	{uid: "F300M1", round: SaboFinal, order: 1, branch: models.BranchGrandFinal, src1: SourceRef{MatchUID: "SF250M1"}, src2: SourceRef{MatchUID: "SF250M2"}},
}

type SaboFixedBracketGenerator struct {
}

func NewSaboFixedBracketGenerator() BracketGenerator {
	return &SaboFixedBracketGenerator{}
}

func (g *SaboFixedBracketGenerator) GetName() string {
	return "SaboDoubleElimination16"
}

// GenerateBracket разворачивает статическую таблицу SABO-16.
// Требуется ровно 16 участников: это жесткое предусловие, а не
// предупреждение валидации.
func (g *SaboFixedBracketGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GenerateResult, error) {
	seeded := params.Participants
	if len(seeded) != models.SaboCapacity {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrParticipantCountMismatch, models.SaboCapacity, len(seeded))
	}

	byID := participantsByID(seeded)
	matches := make([]*BracketMatch, 0, SaboMatchCount)

	for i, pair := range saboSeedPairs {
		id1 := seeded[pair[0]].ID
		id2 := seeded[pair[1]].ID
		bm := &BracketMatch{
			UID:            fmt.Sprintf("W1M%d", i+1),
			Round:          SaboWinnersR1,
			OrderInRound:   i + 1,
			Branch:         models.BranchWinners,
			Participant1ID: &id1,
			Participant2ID: &id2,
		}
		if err := attachHandicap(bm, params, byID); err != nil {
			return nil, fmt.Errorf("handicap for match %s: %w", bm.UID, err)
		}
		matches = append(matches, bm)
	}

	for _, stage := range saboStageTable {
		src1 := stage.src1
		src2 := stage.src2
		matches = append(matches, &BracketMatch{
			UID:          stage.uid,
			Round:        stage.round,
			OrderInRound: stage.order,
			Branch:       stage.branch,
			Source1:      &src1,
			Source2:      &src2,
		})
	}

	// 3 раунда верхней сетки, 3 + 2 нижних, полуфинал и финал.
	return &GenerateResult{Matches: matches, RoundCount: 9}, nil
}
