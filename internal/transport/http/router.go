package http

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"lan-quiz-service/internal/app"
)

// NewRouter wires every HTTP and websocket route.
func NewRouter(service *app.QuizService, opts Options) http.Handler {
	api := NewAPI(service, opts)
	participants := NewWSHandler(service)
	host := NewHostHandler(service, opts)

	mux := httprouter.New()
	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		log.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("handler panic")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}

	mux.GET("/healthz", api.Healthz)
	mux.GET("/version", api.Version)

	mux.GET("/join/:quizId", api.Join)
	mux.GET("/api/quiz/:quizId", api.QuizInfo)
	mux.GET("/api/join-url", api.JoinURL)
	mux.GET("/qr", api.QR)
	mux.GET("/ws", participants.ServeWS)

	mux.POST("/api/quiz/:quizId/load", api.hostOnly(api.LoadQuiz))
	mux.POST("/api/game/start", api.hostOnly(api.StartGame))
	mux.GET("/api/participants", api.hostOnly(api.Participants))
	mux.GET("/api/state", api.hostOnly(api.State))
	mux.GET("/api/results/:quizId", api.hostOnly(api.Results))
	mux.GET("/host/ws", host.ServeWS)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}
