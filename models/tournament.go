package models

import "time"

// TournamentKind определяет тип сетки турнира.
type TournamentKind string

const (
	KindSingleElimination TournamentKind = "single_elimination"
	KindDoubleElimination TournamentKind = "double_elimination"
	KindSaboDouble16      TournamentKind = "sabo_double_elimination_16"
)

func (k TournamentKind) Valid() bool {
	switch k {
	case KindSingleElimination, KindDoubleElimination, KindSaboDouble16:
		return true
	}
	return false
}

// SaboCapacity задает фиксированную вместимость формата SABO-16.
const SaboCapacity = 16

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusRegistration       TournamentStatus = "registration"
	StatusRegistrationClosed TournamentStatus = "registration_closed"
	StatusOngoing            TournamentStatus = "ongoing"
	StatusCompleted          TournamentStatus = "completed"
	StatusCanceled           TournamentStatus = "canceled"
)

// validStatusTransitions перечисляет допустимые переходы статуса турнира.
var validStatusTransitions = map[TournamentStatus][]TournamentStatus{
	StatusRegistration:       {StatusRegistrationClosed, StatusCanceled},
	StatusRegistrationClosed: {StatusOngoing, StatusRegistration, StatusCanceled},
	StatusOngoing:            {StatusCompleted, StatusCanceled},
}

func ValidStatusTransition(from, to TournamentStatus) bool {
	for _, allowed := range validStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Tournament представляет турнир. Создается внешним потоком настройки;
// движок меняет только статус в рамках генерации сетки.
type Tournament struct {
	ID              int              `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Kind            TournamentKind   `json:"kind" db:"kind"`
	Status          TournamentStatus `json:"status" db:"status"`
	MaxParticipants int              `json:"max_participants" db:"max_participants"`
	// WagerPoints задает ставку турнира, масштабирующую фору в парах с
	// разными разрядами.
	WagerPoints int       `json:"wager_points" db:"wager_points"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Bracket      *Bracket      `json:"bracket,omitempty" db:"-"`
	Matches      []Match       `json:"matches,omitempty" db:"-"`
}
