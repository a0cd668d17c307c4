package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/services"
)

type HandicapHandler struct {
	handicapService services.HandicapService
}

func NewHandicapHandler(handicapService services.HandicapService) *HandicapHandler {
	return &HandicapHandler{handicapService: handicapService}
}

// Preview обрабатывает GET /handicap/preview?rank_a=G&rank_b=I%2B&wager=200.
// Расчет не привязан к матчу и доступен без аутентификации.
func (h *HandicapHandler) Preview(w http.ResponseWriter, r *http.Request) {
	rankA := models.Rank(r.URL.Query().Get("rank_a"))
	rankB := models.Rank(r.URL.Query().Get("rank_b"))
	if rankA == "" || rankB == "" {
		badRequestResponse(w, r, errors.New("rank_a and rank_b query parameters are required"))
		return
	}

	wager := 100
	if wagerStr := r.URL.Query().Get("wager"); wagerStr != "" {
		var err error
		wager, err = strconv.Atoi(wagerStr)
		if err != nil {
			badRequestResponse(w, r, errors.New("wager must be an integer"))
			return
		}
	}

	preview, err := h.handicapService.ComputePreview(rankA, rankB, wager)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, preview, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
