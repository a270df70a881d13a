package http

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// statusCacheControl lets a fronting cache serve one status read to many pollers.
const statusCacheControl = "public, s-maxage=2, stale-while-revalidate=5"

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// Handler serves the game session REST API.
type Handler struct {
	service   *app.GameService
	log       logrus.FieldLogger
	publicURL string
}

func NewHandler(service *app.GameService, log logrus.FieldLogger, publicURL string) *Handler {
	return &Handler{
		service:   service,
		log:       log,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/games", h.CreateGame).Methods(http.MethodPost)
	api.HandleFunc("/games", h.GetGame).Methods(http.MethodGet)
	api.HandleFunc("/games", h.MutateGame).Methods(http.MethodPatch)
	api.HandleFunc("/games/status", h.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/games/leaderboard", h.GetLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/games/qr", h.GetQRCode).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", h.DeleteGame).Methods(http.MethodDelete)
	api.HandleFunc("/events/{id}/leaderboard", h.GetEventLeaderboard).Methods(http.MethodGet)
}

type createRequest struct {
	QuizID  string `json:"quizId"`
	EventID string `json:"eventId"`
}

type mutateRequest struct {
	Action        string   `json:"action"`
	GamePin       string   `json:"gamePin"`
	PlayerName    string   `json:"playerName"`
	QuestionIndex *int     `json:"questionIndex"`
	Answer        *int     `json:"answer"`
	TimeSpent     *float64 `json:"timeSpent"`
}

func (r mutateRequest) actionRequest() app.ActionRequest {
	spent := 0
	if r.TimeSpent != nil {
		spent = int(math.Round(*r.TimeSpent))
	}
	return app.ActionRequest{
		Action:        r.Action,
		PlayerName:    r.PlayerName,
		QuestionIndex: r.QuestionIndex,
		Answer:        r.Answer,
		TimeSpent:     spent,
	}
}

type sessionResponse struct {
	Success bool                 `json:"success"`
	Session domain.SessionDetail `json:"session"`
}

type statusResponse struct {
	Success bool `json:"success"`
	domain.StatusSummary
}

type leaderboardResponse struct {
	Success     bool               `json:"success"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
}

type eventLeaderboardResponse struct {
	Success bool `json:"success"`
	domain.EventLeaderboard
}

type okResponse struct {
	Success bool `json:"success"`
}

// CreateGame launches a quiz: POST /api/games {quizId, eventId?}.
func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: invalid request body", domain.ErrPreconditionFailed))
		return
	}
	detail, err := h.service.CreateSession(r.Context(), req.QuizID, req.EventID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Success: true, Session: detail})
}

// GetGame returns the full session: GET /api/games?pin=.
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetSession(r.Context(), r.URL.Query().Get("pin"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: detail})
}

// MutateGame applies one action: PATCH /api/games {action, gamePin, ...}.
func (h *Handler) MutateGame(w http.ResponseWriter, r *http.Request) {
	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: invalid request body", domain.ErrPreconditionFailed))
		return
	}
	cmd, err := app.ParseCommand(req.actionRequest())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	detail, err := h.service.Mutate(r.Context(), req.GamePin, cmd)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: detail})
}

// DeleteGame removes a session by id: DELETE /api/games/{id}.
func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

// GetStatus returns the cheap polling projection: GET /api/games/status?pin=.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Status(r.Context(), r.URL.Query().Get("pin"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.Header().Set("Cache-Control", statusCacheControl)
	writeJSON(w, http.StatusOK, statusResponse{Success: true, StatusSummary: summary})
}

// GetLeaderboard ranks the players of a session: GET /api/games/leaderboard?pin=.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Leaderboard(r.Context(), r.URL.Query().Get("pin"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, leaderboardResponse{Success: true, Leaderboard: board})
}

// GetEventLeaderboard aggregates all sessions of an event: GET /api/events/{id}/leaderboard.
func (h *Handler) GetEventLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.EventLeaderboard(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, eventLeaderboardResponse{Success: true, EventLeaderboard: board})
}

// GetQRCode renders a PNG QR code of the player join link: GET /api/games/qr?pin=&size=.
func (h *Handler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	pin := strings.TrimSpace(r.URL.Query().Get("pin"))
	if _, err := h.service.Status(r.Context(), pin); err != nil {
		writeError(w, h.log, err)
		return
	}

	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			size = min(max(n, minQRSize), maxQRSize)
		}
	}

	png, err := qrcode.Encode(h.joinURL(r, pin), qrcode.Medium, size)
	if err != nil {
		writeError(w, h.log, fmt.Errorf("encode qr code: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

// joinURL points players at the join page for pin.
func (h *Handler) joinURL(r *http.Request, pin string) string {
	base := h.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/play/" + pin
}
