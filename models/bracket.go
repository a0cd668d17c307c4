package models

import (
	"time"

	"github.com/google/uuid"
)

// SeedingMethod определяет политику рассеивания участников по слотам.
type SeedingMethod string

const (
	SeedingRatingBased       SeedingMethod = "rating_based"
	SeedingRegistrationOrder SeedingMethod = "registration_order"
	SeedingRandom            SeedingMethod = "random"
)

func (m SeedingMethod) Valid() bool {
	switch m {
	case SeedingRatingBased, SeedingRegistrationOrder, SeedingRandom:
		return true
	}
	return false
}

// Bracket хранит сгенерированное расписание одного турнира.
// На турнир существует не более одной действующей (не вытесненной) сетки.
type Bracket struct {
	ID            int            `json:"id" db:"id"`
	PublicID      uuid.UUID      `json:"public_id" db:"public_id"`
	TournamentID  int            `json:"tournament_id" db:"tournament_id"`
	Kind          TournamentKind `json:"kind" db:"kind"`
	SeedingMethod SeedingMethod  `json:"seeding_method" db:"seeding_method"`
	RoundCount    int            `json:"round_count" db:"round_count"`
	MatchCount    int            `json:"match_count" db:"match_count"`
	// Ready выставляется только после записи всех матчей сетки.
	// Частично записанная сетка никогда не видна читателям как готовая.
	Ready       bool      `json:"ready" db:"ready"`
	Superseded  bool      `json:"superseded" db:"superseded"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
}
