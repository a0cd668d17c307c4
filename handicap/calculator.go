package handicap

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

var (
	ErrUnknownRank  = errors.New("unknown rank tier")
	ErrInvalidWager = errors.New("wager must be positive")
)

// WagerBreakpoint связывает ставку с дистанцией матча (race-to).
type WagerBreakpoint struct {
	Wager  int
	RaceTo int
}

// Config хранит настраиваемые параметры расчета форы. Величины шага и
// границы масштабирования подобраны по таблицам SABO, но не зашиты
// в алгоритм намертво.
type Config struct {
	// RaceToByWager задает контрольные точки ставок; берется наибольшая
	// точка, не превышающая ставку.
	RaceToByWager []WagerBreakpoint
	// SpotPerStep задает базовую фору за один под-разряд разницы
	// при базовой ставке.
	SpotPerStep float64
	// BaseWager задает ставку, при которой масштаб равен 1.0.
	BaseWager int
	// MinScale и MaxScale ограничивают влияние ставки на фору.
	MinScale float64
	MaxScale float64
}

func DefaultConfig() Config {
	return Config{
		RaceToByWager: []WagerBreakpoint{
			{Wager: 100, RaceTo: 8},
			{Wager: 200, RaceTo: 12},
			{Wager: 300, RaceTo: 14},
			{Wager: 400, RaceTo: 16},
			{Wager: 500, RaceTo: 18},
			{Wager: 600, RaceTo: 22},
		},
		SpotPerStep: 0.5,
		BaseWager:   100,
		MinScale:    0.5,
		MaxScale:    3.5,
	}
}

type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	if len(cfg.RaceToByWager) == 0 {
		cfg = DefaultConfig()
	}
	sort.Slice(cfg.RaceToByWager, func(i, j int) bool {
		return cfg.RaceToByWager[i].Wager < cfg.RaceToByWager[j].Wager
	})
	return &Calculator{cfg: cfg}
}

// RaceTo возвращает дистанцию матча для ставки.
func (c *Calculator) RaceTo(wager int) int {
	raceTo := c.cfg.RaceToByWager[0].RaceTo
	for _, bp := range c.cfg.RaceToByWager {
		if wager >= bp.Wager {
			raceTo = bp.RaceTo
		}
	}
	return raceTo
}

// Compute рассчитывает фору для пары разрядов и ставки.
//
// Функция симметрична: фору получает более слабая сторона независимо
// от порядка аргументов. При равных разрядах запись отсутствует:
// возвращается nil, а не "нулевая" фора.
func (c *Calculator) Compute(rankA, rankB models.Rank, wager int) (*models.HandicapRecord, error) {
	tierA, ok := rankA.TierIndex()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRank, rankA)
	}
	tierB, ok := rankB.TierIndex()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRank, rankB)
	}
	if wager <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWager, wager)
	}

	gap := tierA - tierB
	if gap < 0 {
		gap = -gap
	}
	if gap == 0 {
		return nil, nil
	}

	raceTo := c.RaceTo(wager)
	spot := c.spot(gap, wager, raceTo)

	record := &models.HandicapRecord{
		RaceTo:  raceTo,
		RankGap: gap,
		Wager:   wager,
	}
	if tierA < tierB {
		record.InitialScoreA = spot
	} else {
		record.InitialScoreB = spot
	}
	return record, nil
}

// spot масштабирует фору ставкой и ограничивает ее половиной
// дистанции, чтобы избежать вырожденных гонок.
func (c *Calculator) spot(gap, wager, raceTo int) float64 {
	scale := float64(wager) / float64(c.cfg.BaseWager)
	if scale < c.cfg.MinScale {
		scale = c.cfg.MinScale
	}
	if scale > c.cfg.MaxScale {
		scale = c.cfg.MaxScale
	}

	spot := float64(gap) * c.cfg.SpotPerStep * scale

	max := float64(raceTo) / 2
	if spot > max {
		spot = max
	}
	// Фора выдается с шагом в пол-очка.
	spot = math.Round(spot*2) / 2
	if spot < 0.5 {
		spot = 0.5
	}
	return spot
}
