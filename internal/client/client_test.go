package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	transport "live-quiz-service/internal/transport/http"
)

func newAPI(t *testing.T) (*Client, *app.GameService) {
	t.Helper()
	log, _ := test.NewNullLogger()
	quiz := domain.Quiz{
		ID:    "quiz-1",
		Title: "Capitals",
		Questions: []domain.Question{
			{Text: "Capital of France?", Options: []string{"Lyon", "Paris"}, CorrectAnswerIndex: 1},
		},
	}
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{quiz.ID: quiz}), time.Minute)
	service := app.NewGameService(memory.NewSessionStore(), quizzes, memory.NewEventStore(), app.WithLogger(log))

	router := mux.NewRouter()
	transport.NewHandler(service, log, "").Register(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return New(server.URL, server.Client()), service
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, service := newAPI(t)
	created, err := service.CreateSession(ctx, "quiz-1", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pin := created.GamePin

	if _, err := c.Act(ctx, ActionRequest{Action: "join", GamePin: pin, PlayerName: "Zoe"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := c.Act(ctx, ActionRequest{Action: "start", GamePin: pin}); err != nil {
		t.Fatalf("start: %v", err)
	}
	zero, one := 0, 1
	session, err := c.Act(ctx, ActionRequest{Action: "answer", GamePin: pin, PlayerName: "zoe", QuestionIndex: &zero, Answer: &one, TimeSpent: 2})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if got := session.Players[0].Score; got != 1180 {
		t.Fatalf("expected 1180, got %d", got)
	}

	status, err := c.Status(ctx, pin)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != domain.StatusActive || status.PlayerCount != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}

	full, err := c.Session(ctx, pin)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if full.Quiz.Title != "Capitals" || len(full.Players[0].Answers) != 1 {
		t.Fatalf("unexpected session: %+v", full)
	}
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	c, _ := newAPI(t)

	_, err := c.Status(ctx, "000000")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.NotFound() {
		t.Fatalf("expected not found api error, got %v", err)
	}

	_, err = c.Act(ctx, ActionRequest{Action: "teleport", GamePin: "000000"})
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}
