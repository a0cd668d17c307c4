package models

import "time"

type MatchStatus string

const (
	MatchScheduled      MatchStatus = "scheduled"
	MatchScoreSubmitted MatchStatus = "score_submitted"
	// MatchScoreConfirmed зарезервирован за промежуточным шагом цепочки
	// подтверждения. Движок записывает подтверждение одной CAS-операцией
	// сразу в pending_approval (момент и автор хранятся в ConfirmedBy/
	// ConfirmedAt), поэтому строка в этом статусе не сохраняется.
	MatchScoreConfirmed  MatchStatus = "score_confirmed"
	MatchPendingApproval MatchStatus = "pending_approval"
	MatchCompleted       MatchStatus = "completed"
	MatchRejected        MatchStatus = "rejected"
)

// Terminal сообщает, является ли статус конечным.
func (s MatchStatus) Terminal() bool {
	return s == MatchCompleted || s == MatchRejected
}

// BracketBranch указывает ветку сетки, к которой относится матч.
type BracketBranch string

const (
	BranchWinners    BracketBranch = "winners"
	BranchLosers     BracketBranch = "losers"
	BranchGrandFinal BracketBranch = "grand_final"
)

// Match представляет атомарную единицу игры внутри сетки.
// Создается пакетно оркестратором генерации; изменяется только через
// переходы воркфлоу счета и процедуру продвижения победителей.
type Match struct {
	ID           int           `json:"id" db:"id"`
	TournamentID int           `json:"tournament_id" db:"tournament_id"`
	BracketID    int           `json:"bracket_id" db:"bracket_id"`
	UID          string        `json:"uid" db:"bracket_match_uid"`
	Round        int           `json:"round" db:"round"`
	OrderInRound int           `json:"order_in_round" db:"order_in_round"`
	Branch       BracketBranch `json:"branch" db:"branch"`

	Player1ID *int `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID *int `json:"player2_id,omitempty" db:"player2_id"`

	Status   MatchStatus `json:"status" db:"status"`
	Score1   *float64    `json:"score1,omitempty" db:"score1"`
	Score2   *float64    `json:"score2,omitempty" db:"score2"`
	WinnerID *int        `json:"winner_id,omitempty" db:"winner_id"`

	Handicap *HandicapRecord `json:"handicap,omitempty" db:"-"`

	// Связи продвижения: победитель и проигравший заполняют слоты
	// следующих матчей, определенные при генерации.
	NextMatchID      *int `json:"next_match_id,omitempty" db:"next_match_id"`
	WinnerToSlot     *int `json:"winner_to_slot,omitempty" db:"winner_to_slot"`
	LoserNextMatchID *int `json:"loser_next_match_id,omitempty" db:"loser_next_match_id"`
	LoserToSlot      *int `json:"loser_to_slot,omitempty" db:"loser_to_slot"`

	// Walkover помечает матч, разрешенный автоматически на этапе генерации
	// (bye). Не участвует в воркфлоу счета.
	Walkover bool `json:"walkover,omitempty" db:"walkover"`

	// Метаданные текущей подачи счета. Перезаписываются при повторной
	// подаче после отклонения соперником.
	SubmittedBy   *int       `json:"submitted_by,omitempty" db:"submitted_by"`
	SubmittedNote *string    `json:"submitted_note,omitempty" db:"submitted_note"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`
	ConfirmedBy   *int       `json:"confirmed_by,omitempty" db:"confirmed_by"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
	ConfirmNote   *string    `json:"confirm_note,omitempty" db:"confirm_note"`
	ApprovedBy    *int       `json:"approved_by,omitempty" db:"approved_by"`
	ApprovalNote  *string    `json:"approval_note,omitempty" db:"approval_note"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Ready сообщает, назначены ли оба игрока.
func (m *Match) Ready() bool {
	return m.Player1ID != nil && m.Player2ID != nil
}

// HasParticipant проверяет, что игрок относится к матчу.
func (m *Match) HasParticipant(participantID int) bool {
	if m.Player1ID != nil && *m.Player1ID == participantID {
		return true
	}
	if m.Player2ID != nil && *m.Player2ID == participantID {
		return true
	}
	return false
}

// Opponent возвращает соперника указанного участника, если оба назначены.
func (m *Match) Opponent(participantID int) (int, bool) {
	if !m.Ready() || !m.HasParticipant(participantID) {
		return 0, false
	}
	if *m.Player1ID == participantID {
		return *m.Player2ID, true
	}
	return *m.Player1ID, true
}
