package services

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

// Notifier описывает нисходящий коллаборатор уведомлений. Вызовы fire-and-forget:
// движок не ждет ответа и не зависит от него.
type Notifier interface {
	BracketReady(tournamentID int, bracket *models.Bracket)
	MatchTransition(tournamentID int, match *models.Match)
}

// MatchOutcome содержит полезную нагрузку для коллаборатора рейтинга.
type MatchOutcome struct {
	TournamentID int `json:"tournament_id"`
	MatchID      int `json:"match_id"`
	WinnerID     int `json:"winner_id"`
	LoserID      int `json:"loser_id,omitempty"`
}

// RankingNotifier получает результаты завершенных матчей для
// начисления очков. Fire-and-forget.
type RankingNotifier interface {
	MatchCompleted(outcome MatchOutcome)
}

// SnapshotArchiver сохраняет снимок сгенерированной сетки во внешнем
// хранилище для аудита. Сбой архивации не влияет на результат генерации.
type SnapshotArchiver interface {
	ArchiveBracket(ctx context.Context, bracket *models.Bracket, matches []*models.Match) error
}

type noopNotifier struct{}

func (noopNotifier) BracketReady(int, *models.Bracket)    {}
func (noopNotifier) MatchTransition(int, *models.Match)   {}
func (noopNotifier) MatchCompleted(MatchOutcome)          {}

// NewNoopNotifier возвращает заглушку для окружений без подписчиков.
func NewNoopNotifier() interface {
	Notifier
	RankingNotifier
} {
	return noopNotifier{}
}
