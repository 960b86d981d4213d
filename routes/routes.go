package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/swiss-tournament/handlers"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/swiss-tournament/docs" // регистрирует swagger-документ
)

const requestTimeout = 30 * time.Second

func SetupRoutes(
	router chi.Router,
	allowedOrigins []string,
	tournamentHandler *handlers.TournamentHandler,
	playerHandler *handlers.PlayerHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Вебсокет живёт дольше любого таймаута запроса, поэтому снаружи группы с Timeout.
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(requestTimeout))

		r.Route("/players", func(r chi.Router) {
			r.Post("/", playerHandler.CreateHandler)
			r.Get("/", playerHandler.ListHandler)
			r.Get("/{playerID}", playerHandler.GetByIDHandler)
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Post("/", tournamentHandler.CreateHandler)
			r.Get("/", tournamentHandler.ListHandler)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", tournamentHandler.GetByIDHandler)
				r.Get("/standings", tournamentHandler.StandingsHandler)
				r.Get("/pairings/preview", tournamentHandler.PreviewPairingsHandler)
				r.Post("/finish", tournamentHandler.FinishHandler)
				r.Post("/confirm", tournamentHandler.ConfirmHandler)

				r.Route("/participants", func(r chi.Router) {
					r.Post("/", tournamentHandler.AddParticipantHandler)
					r.Delete("/{participantID}", tournamentHandler.RemoveParticipantHandler)
					r.Post("/{participantID}/drop", tournamentHandler.ToggleDropHandler)
				})

				r.Route("/rounds", func(r chi.Router) {
					r.Post("/", tournamentHandler.CreateRoundHandler)
					r.Delete("/last", tournamentHandler.DeleteLastRoundHandler)
					r.Put("/{roundID}/matches", tournamentHandler.ReplacePairingsHandler)
					r.Put("/{roundID}/matches/{matchID}/result", tournamentHandler.RecordResultHandler)
				})
			})
		})
	})
}
