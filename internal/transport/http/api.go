package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"lan-quiz-service/internal/app"
	"lan-quiz-service/internal/domain"
	"lan-quiz-service/internal/lan"
)

const qrSize = 320

// Options configures the HTTP surface.
type Options struct {
	// HostKey protects host endpoints when set.
	HostKey string
	Version string
	// BaseURL returns the address participants use, e.g. http://192.168.1.20:3000.
	BaseURL func() string
}

func (o Options) joinURL(quizID string) string {
	base := ""
	if o.BaseURL != nil {
		base = o.BaseURL()
	}
	return lan.JoinURL(base, quizID)
}

// API serves the JSON endpoints.
type API struct {
	service *app.QuizService
	opts    Options
}

func NewAPI(service *app.QuizService, opts Options) *API {
	return &API{service: service, opts: opts}
}

type quizInfo struct {
	QuizID    string `json:"quizId"`
	QuizTitle string `json:"quizTitle"`
}

type joinInfo struct {
	QuizID    string `json:"quizId"`
	QuizTitle string `json:"quizTitle"`
	WSPath    string `json:"wsPath"`
}

type joinURLInfo struct {
	QuizID  string `json:"quizId"`
	JoinURL string `json:"joinUrl"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (a *API) Healthz(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	_, _ = w.Write([]byte("ok"))
}

func (a *API) Version(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"version": a.opts.Version})
}

// QuizInfo answers 404 unless quizId is the loaded quiz.
func (a *API) QuizInfo(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	quiz, ok := a.currentQuiz(w, ps.ByName("quizId"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, quizInfo{QuizID: quiz.ID, QuizTitle: quiz.Title})
}

// Join tells a participant device where to connect for the loaded quiz.
func (a *API) Join(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	quiz, ok := a.currentQuiz(w, ps.ByName("quizId"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, joinInfo{QuizID: quiz.ID, QuizTitle: quiz.Title, WSPath: "/ws"})
}

func (a *API) JoinURL(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	quiz, err := a.service.CurrentQuiz()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinURLInfo{QuizID: quiz.ID, JoinURL: a.opts.joinURL(quiz.ID)})
}

// QR renders the join URL of the loaded quiz as a PNG.
func (a *API) QR(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	quiz, err := a.service.CurrentQuiz()
	if err != nil {
		writeError(w, err)
		return
	}
	png, err := qrcode.Encode(a.opts.joinURL(quiz.ID), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (a *API) LoadQuiz(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()
	quiz, err := a.service.LoadQuiz(ctx, ps.ByName("quizId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizLoaded(quiz, a.opts))
}

func (a *API) StartGame(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if err := a.service.StartGame(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) Participants(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	roster, err := a.service.Participants()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.RosterPayload{Participants: roster})
}

func (a *API) State(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	snap, err := a.service.State()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) Results(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	result, err := a.service.LatestResult(r.Context(), ps.ByName("quizId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// hostOnly rejects requests without the host key.
func (a *API) hostOnly(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !authorized(r, a.opts.HostKey) {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
			return
		}
		next(w, r, ps)
	}
}

func (a *API) currentQuiz(w http.ResponseWriter, quizID string) (domain.Quiz, bool) {
	quiz, err := a.service.CurrentQuiz()
	if err != nil || quiz.ID != quizID {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "quiz not found"})
		return domain.Quiz{}, false
	}
	return quiz, true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrNoQuizLoaded), errors.Is(err, domain.ErrResultNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuiz):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrEngineStopped):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}
