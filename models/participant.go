package models

import "time"

// Participant представляет подтвержденную регистрацию игрока на турнир.
// Поставляется каталогом участников; движок никогда его не изменяет.
type Participant struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	DisplayName  string    `json:"display_name"`
	Rank         Rank      `json:"rank"`
	Rating       int       `json:"rating"`
	RegisteredAt time.Time `json:"registered_at"`
}

// EffectiveRank возвращает разряд участника, выводя его из рейтинга,
// если разряд не подтвержден.
func (p *Participant) EffectiveRank() Rank {
	if p.Rank.Valid() {
		return p.Rank
	}
	return RankByRating(p.Rating)
}
