package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dosada05/bracket-engine/models"
)

// bracketSnapshot описывает документ, сохраняемый в объектное хранилище после
// генерации сетки. Служит аудиторским следом: последующие перегенерации
// не перезаписывают старые снимки.
type bracketSnapshot struct {
	Bracket    *models.Bracket `json:"bracket"`
	Matches    []*models.Match `json:"matches"`
	ArchivedAt time.Time       `json:"archived_at"`
}

// BracketArchiver пишет снимки сгенерированных сеток в ObjectStore.
type BracketArchiver struct {
	store ObjectStore
}

func NewBracketArchiver(store ObjectStore) *BracketArchiver {
	return &BracketArchiver{store: store}
}

func (a *BracketArchiver) ArchiveBracket(ctx context.Context, bracket *models.Bracket, matches []*models.Match) error {
	snapshot := bracketSnapshot{
		Bracket:    bracket,
		Matches:    matches,
		ArchivedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal bracket %d snapshot: %w", bracket.ID, err)
	}

	key := fmt.Sprintf("brackets/tournament_%d/%s.json", bracket.TournamentID, bracket.PublicID)
	if _, err := a.store.Put(ctx, key, "application/json", bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store bracket %d snapshot: %w", bracket.ID, err)
	}
	return nil
}
