package services

import (
	"github.com/Dosada05/bracket-engine/handicap"
	"github.com/Dosada05/bracket-engine/models"
)

// HandicapPreview содержит расчет форы для пары разрядов без привязки к матчу.
type HandicapPreview struct {
	Record      *models.HandicapRecord  `json:"record,omitempty"`
	ShortCode   string                  `json:"short_code,omitempty"`
	DisplayText string                  `json:"display_text,omitempty"`
	Severity    models.HandicapSeverity `json:"severity"`
	RaceTo      int                     `json:"race_to"`
}

type HandicapService interface {
	ComputePreview(rankA, rankB models.Rank, wager int) (*HandicapPreview, error)
}

type handicapService struct {
	calculator *handicap.Calculator
}

func NewHandicapService(calculator *handicap.Calculator) HandicapService {
	if calculator == nil {
		calculator = handicap.NewCalculator(handicap.DefaultConfig())
	}
	return &handicapService{calculator: calculator}
}

func (s *handicapService) ComputePreview(rankA, rankB models.Rank, wager int) (*HandicapPreview, error) {
	record, err := s.calculator.Compute(rankA, rankB, wager)
	if err != nil {
		return nil, err
	}
	if record == nil {
		// Равные разряды: форы нет, остается только дистанция.
		return &HandicapPreview{Severity: models.HandicapNone, RaceTo: s.calculator.RaceTo(wager)}, nil
	}
	return &HandicapPreview{
		Record:      record,
		ShortCode:   record.ShortCode(),
		DisplayText: record.DisplayText(),
		Severity:    record.Severity(),
		RaceTo:      record.RaceTo,
	}, nil
}
