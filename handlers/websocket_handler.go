package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin.
		return true
	},
}

type WebSocketHandler struct {
	hub *brackets.Hub
}

func NewWebSocketHandler(hub *brackets.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeWs обрабатывает подписку на события одного турнира.
// Клиент подключается к /ws/tournaments/{tournamentID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentIDStr := chi.URLParam(r, "tournamentID")
	if tournamentIDStr == "" {
		http.Error(w, "Missing tournamentID", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade сам отправляет HTTP ошибку клиенту.
		log.Printf("Failed to upgrade connection for tournament %s: %v", tournamentIDStr, err)
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: "tournament_" + tournamentIDStr,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// HubNotifier транслирует события движка в комнаты websocket-хаба.
// Реализует services.Notifier и services.RankingNotifier.
type HubNotifier struct {
	hub *brackets.Hub
}

func NewHubNotifier(hub *brackets.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func tournamentRoom(tournamentID int) string {
	return fmt.Sprintf("tournament_%d", tournamentID)
}

func (n *HubNotifier) BracketReady(tournamentID int, bracket *models.Bracket) {
	n.hub.BroadcastToRoom(tournamentRoom(tournamentID), brackets.Event{
		Type:    brackets.EventBracketReady,
		Payload: bracket,
	})
}

func (n *HubNotifier) MatchTransition(tournamentID int, match *models.Match) {
	n.hub.BroadcastToRoom(tournamentRoom(tournamentID), brackets.Event{
		Type:    brackets.EventMatchUpdated,
		Payload: match,
	})
}

func (n *HubNotifier) MatchCompleted(outcome services.MatchOutcome) {
	n.hub.BroadcastToRoom(tournamentRoom(outcome.TournamentID), brackets.Event{
		Type:    brackets.EventMatchCompleted,
		Payload: outcome,
	})
}
