package brackets

import (
	"context"
	"errors"

	"github.com/Dosada05/bracket-engine/handicap"
	"github.com/Dosada05/bracket-engine/models"
)

var (
	ErrInsufficientParticipants = errors.New("not enough participants to generate a bracket (minimum 2)")
	ErrUnsupportedBracketKind   = errors.New("unsupported bracket kind")
	ErrParticipantCountMismatch = errors.New("participant count does not match the fixed bracket capacity")
)

// SourceRef указывает матч, из которого в слот приходит игрок.
// Loser=true означает, что слот заполняет проигравший (нижняя сетка).
type SourceRef struct {
	MatchUID string
	Loser    bool
}

// BracketMatch описывает элемент абстрактного графа матчей, построенного
// генератором до записи в БД. Слоты либо заполнены участниками, либо
// ссылаются на исходные матчи, либо вакантны (bye-ветка).
type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int
	Branch       models.BracketBranch

	Participant1ID *int
	Participant2ID *int

	Source1 *SourceRef
	Source2 *SourceRef

	// Vacant1/Vacant2: в слот никогда не придет игрок (bye-ветка).
	Vacant1 bool
	Vacant2 bool

	// Walkover: матч разрешен автоматически. При известном участнике
	// WinnerID заполнен; матч, питаемый только вакансиями, остается
	// без победителя, и его исходящие потоки вакантны.
	Walkover bool
	WinnerID *int

	Handicap *models.HandicapRecord
}

// Live сообщает, может ли в матч еще прийти хотя бы один игрок.
// Walkover без победителя и без живых слотов мертв: его исходящие
// потоки вакантны.
func (bm *BracketMatch) Live() bool {
	if bm.Participant1ID != nil || bm.Participant2ID != nil {
		return true
	}
	return (bm.Source1 != nil && !bm.Vacant1) || (bm.Source2 != nil && !bm.Vacant2)
}

type GenerateBracketParams struct {
	Tournament   *models.Tournament
	Participants []*models.Participant

	// Handicap, если задан, прикрепляет фору к парам с разными
	// разрядами. Wager масштабирует ее величину.
	Handicap *handicap.Calculator
	Wager    int
}

type GenerateResult struct {
	Matches    []*BracketMatch
	RoundCount int
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GenerateResult, error)

	GetName() string
}

// attachHandicap прикрепляет фору к матчу, если оба участника известны
// и их разряды различаются.
func attachHandicap(bm *BracketMatch, params GenerateBracketParams, byID map[int]*models.Participant) error {
	if params.Handicap == nil || bm.Participant1ID == nil || bm.Participant2ID == nil {
		return nil
	}
	p1, ok1 := byID[*bm.Participant1ID]
	p2, ok2 := byID[*bm.Participant2ID]
	if !ok1 || !ok2 {
		return nil
	}
	wager := params.Wager
	if wager <= 0 {
		wager = 100
	}
	record, err := params.Handicap.Compute(p1.EffectiveRank(), p2.EffectiveRank(), wager)
	if err != nil {
		return err
	}
	bm.Handicap = record
	return nil
}

// resolveWalkovers продвигает победителей bye-матчей в слоты следующих
// раундов и распространяет вакансии по графу до неподвижной точки.
// Матч, оставшийся с участником против вакансии, сам становится
// walkover; матч, питаемый только вакансиями, остается walkover без
// победителя.
func resolveWalkovers(matches []*BracketMatch) {
	byUID := make(map[string]*BracketMatch, len(matches))
	for _, bm := range matches {
		byUID[bm.UID] = bm
	}

	resolveSlot := func(source *SourceRef, participant **int, vacant *bool) bool {
		if source == nil || *participant != nil || *vacant {
			return false
		}
		src, ok := byUID[source.MatchUID]
		if !ok || !src.Walkover {
			return false
		}
		if source.Loser {
			// У walkover нет проигравшего.
			*vacant = true
			return true
		}
		if src.WinnerID != nil {
			id := *src.WinnerID
			*participant = &id
			return true
		}
		if !src.Live() {
			// Мертвый walkover: победителя не будет.
			*vacant = true
			return true
		}
		// Ожидающий walkover: победитель определится в момент
		// прихода игрока, слот остается связанным.
		return false
	}

	for changed := true; changed; {
		changed = false
		for _, bm := range matches {
			if resolveSlot(bm.Source1, &bm.Participant1ID, &bm.Vacant1) {
				changed = true
			}
			if resolveSlot(bm.Source2, &bm.Participant2ID, &bm.Vacant2) {
				changed = true
			}

			if bm.Walkover {
				continue
			}
			switch {
			case bm.Participant1ID != nil && bm.Vacant2:
				bm.Walkover = true
				bm.WinnerID = bm.Participant1ID
				changed = true
			case bm.Participant2ID != nil && bm.Vacant1:
				bm.Walkover = true
				bm.WinnerID = bm.Participant2ID
				changed = true
			case (bm.Vacant1 || bm.Vacant2) && !(bm.Vacant1 && bm.Vacant2):
				// Единственный живой слот: матч станет walkover,
				// когда игрок придет из исходного матча.
				bm.Walkover = true
				changed = true
			case bm.Vacant1 && bm.Vacant2:
				bm.Walkover = true
				changed = true
			}
		}
	}
}

func participantsByID(participants []*models.Participant) map[int]*models.Participant {
	byID := make(map[int]*models.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}
	return byID
}
