package services

import (
	"errors"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/handicap"
	"github.com/Dosada05/bracket-engine/repositories"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурсы
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrBracketNotFound    = errors.New("bracket not found")
	ErrMatchNotFound      = errors.New("match not found")

	// Ошибки валидации и бизнес-правил генерации
	ErrBracketAlreadyExists = errors.New("a current bracket already exists for this tournament")
	ErrTooFewParticipants   = errors.New("fixed bracket requires exactly 16 participants: too few confirmed")
	ErrTooManyParticipants  = errors.New("fixed bracket requires exactly 16 participants: too many confirmed")
	ErrUnknownSeedingMethod = errors.New("unknown seeding method")

	// Ошибки воркфлоу счета
	ErrMatchNotReady        = errors.New("match does not have two assigned players yet")
	ErrNotMatchParticipant  = errors.New("caller is not a participant of this match")
	ErrConfirmerIsSubmitter = errors.New("score must be confirmed by the opposing participant")
	ErrInvalidTransition    = errors.New("operation is not legal from the current match status")
	ErrTieScore             = errors.New("tie score is not a valid elimination result")
	ErrNegativeScore        = errors.New("scores must be non-negative")
	ErrWalkoverMatch        = errors.New("walkover match does not accept score operations")

	// Конкурентные конфликты
	ErrStaleMatchState       = errors.New("match state changed concurrently, re-read and retry")
	ErrStaleTournamentStatus = errors.New("tournament status changed concurrently, re-read and retry")

	// Нарушения инвариантов: всегда ошибка программы или данных,
	// никогда не маскируются.
	ErrInvariantViolation = errors.New("data integrity invariant violated")
)

// ErrorKind задает таксономию ошибок движка.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindStateConflict ErrorKind = "state_conflict"
	// KindCollaborator: временный сбой внешнего коллаборатора; для
	// генерации включает резервный путь, для скоринга флаг retry.
	KindCollaborator ErrorKind = "collaborator_unavailable"
	KindInvariant    ErrorKind = "invariant_violation"
	KindInternal     ErrorKind = "internal"
)

// Kind классифицирует ошибку сервисного слоя.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTournamentNotFound),
		errors.Is(err, ErrBracketNotFound),
		errors.Is(err, ErrMatchNotFound):
		return KindNotFound
	case errors.Is(err, ErrBracketAlreadyExists),
		errors.Is(err, ErrStaleMatchState),
		errors.Is(err, ErrStaleTournamentStatus):
		return KindStateConflict
	case errors.Is(err, ErrTooFewParticipants),
		errors.Is(err, ErrTooManyParticipants),
		errors.Is(err, ErrMatchNotReady),
		errors.Is(err, ErrNotMatchParticipant),
		errors.Is(err, ErrConfirmerIsSubmitter),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrTieScore),
		errors.Is(err, ErrNegativeScore),
		errors.Is(err, ErrWalkoverMatch),
		errors.Is(err, ErrUnknownSeedingMethod),
		errors.Is(err, brackets.ErrInsufficientParticipants),
		errors.Is(err, brackets.ErrUnsupportedBracketKind),
		errors.Is(err, brackets.ErrParticipantCountMismatch),
		errors.Is(err, handicap.ErrUnknownRank),
		errors.Is(err, handicap.ErrInvalidWager):
		return KindValidation
	case errors.Is(err, repositories.ErrStorageUnavailable):
		return KindCollaborator
	case errors.Is(err, ErrInvariantViolation):
		return KindInvariant
	default:
		return KindInternal
	}
}

// Retriable подсказывает вызывающему, имеет ли смысл повтор после
// перечитывания состояния.
func Retriable(err error) bool {
	kind := Kind(err)
	return kind == KindStateConflict || kind == KindCollaborator
}
