package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

// API serves the REST endpoints.
type API struct {
	answers  *app.AnswerService
	rounds   *app.RoundService
	picker   *app.QuestionPicker
	board    app.Leaderboard
	schedule *app.RoundSchedule
	now      func() time.Time
	log      *slog.Logger
}

// APIDeps wires the handlers; Now and Log default when nil.
type APIDeps struct {
	Answers     *app.AnswerService
	Rounds      *app.RoundService
	Picker      *app.QuestionPicker
	Leaderboard app.Leaderboard
	Schedule    *app.RoundSchedule
	Now         func() time.Time
	Log         *slog.Logger
}

func NewAPI(deps APIDeps) *API {
	a := &API{
		answers:  deps.Answers,
		rounds:   deps.Rounds,
		picker:   deps.Picker,
		board:    deps.Leaderboard,
		schedule: deps.Schedule,
		now:      deps.Now,
		log:      deps.Log,
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	return a
}

// Register mounts the routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /answers", a.submitAnswer)
	mux.HandleFunc("GET /leaderboard", a.leaderboard)
	mux.HandleFunc("GET /questions/next", a.nextQuestion)
	mux.HandleFunc("GET /rounds/preview", a.previewRound)
}

type answerRequest struct {
	UserID              string  `json:"userId"`
	QuestionID          string  `json:"questionId"`
	SelectedOption      int     `json:"selectedOption"`
	ResponseTimeSeconds float64 `json:"responseTimeSeconds"`
	AttemptNumber       int     `json:"attemptNumber"`
}

func (r answerRequest) submission() domain.AnswerSubmission {
	return domain.AnswerSubmission{
		UserID:              r.UserID,
		QuestionID:          r.QuestionID,
		SelectedOption:      r.SelectedOption,
		ResponseTimeSeconds: r.ResponseTimeSeconds,
		AttemptNumber:       r.AttemptNumber,
	}
}

// questionView hides the correct option from players.
type questionView struct {
	ID          string          `json:"id"`
	Category    domain.Category `json:"category"`
	Difficulty  int             `json:"difficulty"`
	OptionCount int             `json:"optionCount"`
}

type previewResponse struct {
	Window  domain.RoundWindow    `json:"window"`
	Active  bool                  `json:"active"`
	Results []domain.RankedResult `json:"results"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (a *API) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid answer payload")
		return
	}
	if req.UserID == "" || req.QuestionID == "" {
		a.writeError(w, http.StatusBadRequest, "missing userId or questionId")
		return
	}
	outcome, err := a.answers.SubmitAnswer(r.Context(), req.submission())
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, outcome)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			a.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := app.Standings(r.Context(), a.board, limit)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, entries)
}

func (a *API) nextQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := a.picker.Next(r.Context())
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, questionView{
		ID:          q.ID,
		Category:    q.Category,
		Difficulty:  q.Difficulty,
		OptionCount: q.OptionCount,
	})
}

func (a *API) previewRound(w http.ResponseWriter, r *http.Request) {
	now := a.now()
	window, active := a.schedule.Active(now)
	if !active {
		var ok bool
		window, ok = a.schedule.LastCompleted(now)
		if !ok {
			a.writeError(w, http.StatusNotFound, "no prize round scheduled")
			return
		}
	}
	results, err := a.rounds.Preview(r.Context(), window)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, previewResponse{Window: window, Active: active, Results: results})
}

func (a *API) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		a.writeError(w, status, "internal error")
		return
	}
	a.writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuestionNotFound), errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrNoQuestions):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidOption):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAttemptNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrVersionConflict), errors.Is(err, domain.ErrRoundAlreadySettled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Warn("encode response", "err", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, errorPayload{Message: msg})
}
