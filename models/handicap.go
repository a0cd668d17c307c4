package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// HandicapSeverity классифицирует величину форы для отображения.
type HandicapSeverity string

const (
	HandicapNone   HandicapSeverity = "none"
	HandicapLight  HandicapSeverity = "light"
	HandicapMedium HandicapSeverity = "medium"
	HandicapHeavy  HandicapSeverity = "heavy"
)

// HandicapRecord прикрепляется к матчу при генерации, если разряды
// игроков различаются. Фора дается ровно одной стороне либо никому.
type HandicapRecord struct {
	RaceTo        int     `json:"race_to"`
	InitialScoreA float64 `json:"initial_score_a"`
	InitialScoreB float64 `json:"initial_score_b"`
	RankGap       int     `json:"rank_gap"`
	Wager         int     `json:"wager"`
}

// Validate проверяет инвариант: фора не может быть у обеих сторон сразу.
func (h *HandicapRecord) Validate() error {
	if h.InitialScoreA != 0 && h.InitialScoreB != 0 {
		return fmt.Errorf("handicap cannot favor both sides (a=%.1f, b=%.1f)", h.InitialScoreA, h.InitialScoreB)
	}
	if h.RaceTo < 1 {
		return fmt.Errorf("handicap race_to must be positive, got %d", h.RaceTo)
	}
	return nil
}

// Spot возвращает величину форы и сторону, которой она дана
// (1 или 2; 0 означает отсутствие форы).
func (h *HandicapRecord) Spot() (float64, int) {
	if h.InitialScoreA > 0 {
		return h.InitialScoreA, 1
	}
	if h.InitialScoreB > 0 {
		return h.InitialScoreB, 2
	}
	return 0, 0
}

// ShortCode возвращает краткую запись форы, например "+1.5".
func (h *HandicapRecord) ShortCode() string {
	spot, side := h.Spot()
	if side == 0 {
		return "0"
	}
	return fmt.Sprintf("+%.1f", spot)
}

// DisplayText возвращает человекочитаемое описание для презентационных слоев.
func (h *HandicapRecord) DisplayText() string {
	spot, side := h.Spot()
	if side == 0 {
		return fmt.Sprintf("race to %d, no spot", h.RaceTo)
	}
	return fmt.Sprintf("race to %d, player %d starts at %.1f", h.RaceTo, side, spot)
}

// Severity классифицирует фору относительно дистанции матча.
func (h *HandicapRecord) Severity() HandicapSeverity {
	spot, side := h.Spot()
	if side == 0 || h.RaceTo == 0 {
		return HandicapNone
	}
	ratio := spot / float64(h.RaceTo)
	switch {
	case ratio < 0.15:
		return HandicapLight
	case ratio < 0.3:
		return HandicapMedium
	default:
		return HandicapHeavy
	}
}

// DecodeHandicapRecord разбирает сохраненный JSON форы.
// Неизвестные поля отклоняются, а не пропускаются.
func DecodeHandicapRecord(data []byte) (*HandicapRecord, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var record HandicapRecord
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("invalid handicap record: %w", err)
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return &record, nil
}
