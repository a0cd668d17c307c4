package brackets

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/Dosada05/bracket-engine/models"
)

// Seeder упорядочивает участников по стартовым слотам сетки.
// Генератор случайности внедряется явно, чтобы тесты могли получать
// детерминированные перестановки.
type Seeder struct {
	rng *rand.Rand
}

func NewSeeder(rng *rand.Rand) *Seeder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Seeder{rng: rng}
}

// Seed возвращает новый срез участников в порядке посева.
// Исходный срез не изменяется.
func (s *Seeder) Seed(participants []*models.Participant, method models.SeedingMethod) ([]*models.Participant, error) {
	if len(participants) == 0 {
		return nil, ErrInsufficientParticipants
	}

	seeded := make([]*models.Participant, len(participants))
	copy(seeded, participants)

	switch method {
	case models.SeedingRatingBased:
		sort.SliceStable(seeded, func(i, j int) bool {
			if seeded[i].Rating != seeded[j].Rating {
				return seeded[i].Rating > seeded[j].Rating
			}
			if !seeded[i].RegisteredAt.Equal(seeded[j].RegisteredAt) {
				return seeded[i].RegisteredAt.Before(seeded[j].RegisteredAt)
			}
			return seeded[i].ID < seeded[j].ID
		})
	case models.SeedingRegistrationOrder:
		sort.SliceStable(seeded, func(i, j int) bool {
			if !seeded[i].RegisteredAt.Equal(seeded[j].RegisteredAt) {
				return seeded[i].RegisteredAt.Before(seeded[j].RegisteredAt)
			}
			return seeded[i].ID < seeded[j].ID
		})
	case models.SeedingRandom:
		s.rng.Shuffle(len(seeded), func(i, j int) {
			seeded[i], seeded[j] = seeded[j], seeded[i]
		})
	default:
		return nil, fmt.Errorf("unknown seeding method %q", method)
	}

	return seeded, nil
}

// seedPairs возвращает пары посевов первого раунда для полной сетки
// размера bracketSize в порядке слотов: сеяный 1 против последнего,
// сеяный 2 против предпоследнего, со "змейкой", не сводящей топовые
// посевы раньше финала. Индексы нулевые; индекс >= числу участников
// означает bye.
func seedPairs(bracketSize int) [][2]int {
	positions := []int{1}
	for len(positions) < bracketSize {
		doubled := len(positions) * 2
		next := make([]int, 0, doubled)
		for _, seed := range positions {
			next = append(next, seed, doubled+1-seed)
		}
		positions = next
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i+1 < len(positions); i += 2 {
		pairs = append(pairs, [2]int{positions[i] - 1, positions[i+1] - 1})
	}
	return pairs
}
