package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/bracket-engine/handlers"
	"github.com/Dosada05/bracket-engine/middleware"
)

// SetupRoutes собирает дерево маршрутов движка. Генерация сетки и
// утверждение результатов доступны организаторам, подача и
// подтверждение счета любому аутентифицированному участнику.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	tournamentHandler *handlers.TournamentHandler,
	bracketHandler *handlers.BracketHandler,
	matchHandler *handlers.MatchHandler,
	handicapHandler *handlers.HandicapHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Get("/handicap/preview", handicapHandler.Preview)

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		// Публичные маршруты для просмотра
		r.Get("/", tournamentHandler.Get)
		r.Get("/bracket", bracketHandler.GetCurrent)
		r.Get("/bracket/validation", bracketHandler.Validate)
		r.Get("/matches", matchHandler.ListByTournament)

		// Только организаторы
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(middleware.RoleOrganizer, middleware.RoleAdmin))

			r.Post("/bracket", bracketHandler.Generate)
			r.Post("/status", tournamentHandler.ChangeStatus)
		})
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/", matchHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))

			r.Post("/score", matchHandler.SubmitScore)
			r.Post("/confirmation", matchHandler.ConfirmScore)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Authorize(middleware.RoleOrganizer, middleware.RoleAdmin))
				r.Post("/approval", matchHandler.ApproveResult)
			})
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
