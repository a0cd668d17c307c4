package models

// Rank представляет разряд игрока в лестнице SABO (от низшего K к высшему E+).
type Rank string

const (
	RankK     Rank = "K"
	RankKPlus Rank = "K+"
	RankI     Rank = "I"
	RankIPlus Rank = "I+"
	RankH     Rank = "H"
	RankHPlus Rank = "H+"
	RankG     Rank = "G"
	RankGPlus Rank = "G+"
	RankF     Rank = "F"
	RankFPlus Rank = "F+"
	RankE     Rank = "E"
	RankEPlus Rank = "E+"
)

// RankLadder задает полный порядок разрядов, от слабейшего к сильнейшему.
var RankLadder = []Rank{
	RankK, RankKPlus,
	RankI, RankIPlus,
	RankH, RankHPlus,
	RankG, RankGPlus,
	RankF, RankFPlus,
	RankE, RankEPlus,
}

// rankRatingFloor задает минимальный рейтинг ELO для каждого разряда.
var rankRatingFloor = map[Rank]int{
	RankK:     1000,
	RankKPlus: 1100,
	RankI:     1200,
	RankIPlus: 1300,
	RankH:     1400,
	RankHPlus: 1500,
	RankG:     1600,
	RankGPlus: 1700,
	RankF:     1800,
	RankFPlus: 1900,
	RankE:     2000,
	RankEPlus: 2100,
}

func (r Rank) Valid() bool {
	_, ok := rankRatingFloor[r]
	return ok
}

// TierIndex возвращает позицию разряда в лестнице (0 для K, 11 для E+).
func (r Rank) TierIndex() (int, bool) {
	for i, rank := range RankLadder {
		if rank == r {
			return i, true
		}
	}
	return 0, false
}

// RankByRating возвращает высший разряд, порог которого покрывает рейтинг.
func RankByRating(rating int) Rank {
	for i := len(RankLadder) - 1; i >= 0; i-- {
		if rating >= rankRatingFloor[RankLadder[i]] {
			return RankLadder[i]
		}
	}
	return RankK
}
