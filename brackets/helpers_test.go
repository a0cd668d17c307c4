package brackets

import (
	"time"

	"github.com/Dosada05/bracket-engine/models"
)

// testParticipants возвращает n участников с убывающим рейтингом:
// участник с ID 1 сильнейший. Порядок среза совпадает с посевом
// rating_based.
func testParticipants(n int) []*models.Participant {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	participants := make([]*models.Participant, 0, n)
	for i := 0; i < n; i++ {
		rating := 2000 - i*50
		participants = append(participants, &models.Participant{
			ID:           i + 1,
			TournamentID: 1,
			DisplayName:  "player",
			Rating:       rating,
			Rank:         models.RankByRating(rating),
			RegisteredAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return participants
}

func matchByUID(matches []*BracketMatch, uid string) *BracketMatch {
	for _, bm := range matches {
		if bm.UID == uid {
			return bm
		}
	}
	return nil
}
