package app_test

import (
	"errors"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Arithmetic",
		Questions: []domain.Question{
			{Text: "1 + 1?", Options: []string{"1", "2", "3"}, CorrectAnswerIndex: 1, TimeLimitSeconds: 20},
			{Text: "2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswerIndex: 1, TimeLimitSeconds: 20},
		},
	}
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func newSession(now time.Time) domain.Session {
	return domain.Session{
		ID:             "s1",
		GamePin:        "123456",
		QuizID:         "quiz-1",
		Status:         domain.StatusWaiting,
		Players:        []domain.Player{},
		CreatedAt:      now,
		UpdatedAt:      now,
		StateChangedAt: now,
	}
}

func mustApply(t *testing.T, engine *app.Engine, s *domain.Session, quiz domain.Quiz, cmd app.Command) bool {
	t.Helper()
	changed, err := engine.Apply(s, quiz, cmd)
	if err != nil {
		t.Fatalf("%s failed: %v", cmd.Action(), err)
	}
	return changed
}

func TestEngineGameScenario(t *testing.T) {
	clock := fixedClock()
	engine := app.NewEngine(clock)
	quiz := twoQuestionQuiz()
	s := newSession(clock())

	mustApply(t, engine, &s, quiz, app.Join{Name: "Ann"})
	if mustApply(t, engine, &s, quiz, app.Join{Name: "ann"}) {
		t.Fatalf("second join with different case should be a no-op")
	}
	if len(s.Players) != 1 || s.Players[0].Name != "Ann" {
		t.Fatalf("expected single player Ann, got %+v", s.Players)
	}

	mustApply(t, engine, &s, quiz, app.Start{})
	if s.Status != domain.StatusActive || s.CurrentQuestionIndex != 0 {
		t.Fatalf("expected active at 0, got %s at %d", s.Status, s.CurrentQuestionIndex)
	}

	mustApply(t, engine, &s, quiz, app.Answer{Name: "Ann", QuestionIndex: 0, ChosenOption: 1, TimeSpentSeconds: 5})
	if s.Players[0].Score != 1150 {
		t.Fatalf("expected 1150, got %d", s.Players[0].Score)
	}

	if mustApply(t, engine, &s, quiz, app.Answer{Name: "Ann", QuestionIndex: 0, ChosenOption: 2, TimeSpentSeconds: 3}) {
		t.Fatalf("second answer for the same question should be a no-op")
	}
	if s.Players[0].Score != 1150 || len(s.Players[0].Answers) != 1 {
		t.Fatalf("retry changed the player: %+v", s.Players[0])
	}

	mustApply(t, engine, &s, quiz, app.Advance{})
	if s.CurrentQuestionIndex != 1 || s.Status != domain.StatusActive {
		t.Fatalf("expected active at 1, got %s at %d", s.Status, s.CurrentQuestionIndex)
	}

	mustApply(t, engine, &s, quiz, app.Answer{Name: "ann", QuestionIndex: 1, ChosenOption: 0, TimeSpentSeconds: 20})
	if s.Players[0].Score != 1150 {
		t.Fatalf("incorrect answer changed the score to %d", s.Players[0].Score)
	}
	if a := s.Players[0].Answers[1]; a.Correct || a.Awarded != 0 {
		t.Fatalf("expected incorrect answer record, got %+v", a)
	}

	mustApply(t, engine, &s, quiz, app.Advance{})
	if s.Status != domain.StatusFinished || s.CurrentQuestionIndex != 1 {
		t.Fatalf("expected finished at 1, got %s at %d", s.Status, s.CurrentQuestionIndex)
	}
	if mustApply(t, engine, &s, quiz, app.Advance{}) {
		t.Fatalf("advance on a finished game should be a no-op")
	}
}

func TestEngineRejections(t *testing.T) {
	clock := fixedClock()
	engine := app.NewEngine(clock)
	quiz := twoQuestionQuiz()

	cases := []struct {
		name    string
		prepare []app.Command
		cmd     app.Command
		want    error
	}{
		{"blank join name", nil, app.Join{Name: "  "}, domain.ErrPreconditionFailed},
		{"join after start", []app.Command{app.Start{}}, app.Join{Name: "Late"}, domain.ErrPreconditionFailed},
		{"answer while waiting", []app.Command{app.Join{Name: "Ann"}}, app.Answer{Name: "Ann", ChosenOption: 1}, domain.ErrPreconditionFailed},
		{"answer by stranger", []app.Command{app.Join{Name: "Ann"}, app.Start{}}, app.Answer{Name: "Bob", ChosenOption: 1}, domain.ErrPlayerNotFound},
		{"answer out of range", []app.Command{app.Join{Name: "Ann"}, app.Start{}}, app.Answer{Name: "Ann", QuestionIndex: 2}, domain.ErrPreconditionFailed},
		{"answer without name", []app.Command{app.Start{}}, app.Answer{QuestionIndex: 0}, domain.ErrPreconditionFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newSession(clock())
			for _, cmd := range tc.prepare {
				mustApply(t, engine, &s, quiz, cmd)
			}
			before := s.Clone()
			changed, err := engine.Apply(&s, quiz, tc.cmd)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if changed || !s.UpdatedAt.Equal(before.UpdatedAt) || len(s.Players) != len(before.Players) || s.Status != before.Status {
				t.Fatalf("rejected command modified the session")
			}
		})
	}
}

func TestEngineResetClearsResults(t *testing.T) {
	clock := fixedClock()
	engine := app.NewEngine(clock)
	quiz := twoQuestionQuiz()
	s := newSession(clock())

	for _, cmd := range []app.Command{
		app.Join{Name: "Ann"},
		app.Join{Name: "Bob"},
		app.Start{},
		app.Answer{Name: "Bob", QuestionIndex: 0, ChosenOption: 1, TimeSpentSeconds: 0},
		app.Advance{},
	} {
		mustApply(t, engine, &s, quiz, cmd)
	}

	mustApply(t, engine, &s, quiz, app.Reset{})
	if s.Status != domain.StatusWaiting || s.CurrentQuestionIndex != 0 {
		t.Fatalf("expected waiting at 0, got %s at %d", s.Status, s.CurrentQuestionIndex)
	}
	if len(s.Players) != 2 {
		t.Fatalf("reset must keep players, got %d", len(s.Players))
	}
	for _, p := range s.Players {
		if p.Score != 0 || len(p.Answers) != 0 {
			t.Fatalf("expected cleared player, got %+v", p)
		}
	}
	if mustApply(t, engine, &s, quiz, app.Reset{}) {
		t.Fatalf("second reset should be a no-op")
	}
}

func TestEngineVersionTracksStatusFields(t *testing.T) {
	clock := fixedClock()
	engine := app.NewEngine(clock)
	quiz := twoQuestionQuiz()
	s := newSession(clock())

	version := app.Project(s).Version
	step := func(cmd app.Command, wantBump bool) {
		t.Helper()
		mustApply(t, engine, &s, quiz, cmd)
		next := app.Project(s).Version
		if wantBump && next <= version {
			t.Fatalf("%s: expected version to grow from %d, got %d", cmd.Action(), version, next)
		}
		if !wantBump && next != version {
			t.Fatalf("%s: expected version %d to stay, got %d", cmd.Action(), version, next)
		}
		version = next
	}

	step(app.Join{Name: "Ann"}, true)
	step(app.Join{Name: "ANN"}, false)
	step(app.Start{}, true)
	step(app.Answer{Name: "Ann", QuestionIndex: 0, ChosenOption: 1}, false)
	step(app.Advance{}, true)
	step(app.Advance{}, true)
	step(app.Reset{}, true)
}

func TestEngineStampsAreStrictlyIncreasing(t *testing.T) {
	clock := fixedClock()
	engine := app.NewEngine(clock)
	quiz := twoQuestionQuiz()
	s := newSession(clock())

	prev := s.UpdatedAt
	for _, name := range []string{"a", "b", "c"} {
		mustApply(t, engine, &s, quiz, app.Join{Name: name})
		if !s.UpdatedAt.After(prev) {
			t.Fatalf("expected updatedAt after %v, got %v", prev, s.UpdatedAt)
		}
		prev = s.UpdatedAt
	}
}

func TestAnswerClampsNegativeTimeAndTimeout(t *testing.T) {
	clock := fixedClock()
	engine := app.NewEngine(clock)
	quiz := twoQuestionQuiz()
	s := newSession(clock())
	for _, cmd := range []app.Command{app.Join{Name: "Ann"}, app.Join{Name: "Bob"}, app.Start{}} {
		mustApply(t, engine, &s, quiz, cmd)
	}

	mustApply(t, engine, &s, quiz, app.Answer{Name: "Ann", QuestionIndex: 0, ChosenOption: 1, TimeSpentSeconds: -7})
	if got := s.Players[0].Score; got != 1200 {
		t.Fatalf("expected full bonus 1200, got %d", got)
	}
	if got := s.Players[0].Answers[0].TimeSpentSeconds; got != 0 {
		t.Fatalf("expected clamped time 0, got %d", got)
	}

	mustApply(t, engine, &s, quiz, app.Answer{Name: "Bob", QuestionIndex: 0, ChosenOption: -1, TimeSpentSeconds: 20})
	if a := s.Players[1].Answers[0]; a.Correct || a.ChosenOptionIndex != -1 {
		t.Fatalf("expected recorded timeout, got %+v", a)
	}
}

func TestParseCommand(t *testing.T) {
	one := 1
	zero := 0

	cmd, err := app.ParseCommand(app.ActionRequest{Action: "answer", PlayerName: "Ann", QuestionIndex: &zero, Answer: &one, TimeSpent: 4})
	if err != nil {
		t.Fatalf("parse answer: %v", err)
	}
	answer, ok := cmd.(app.Answer)
	if !ok || answer.ChosenOption != 1 || answer.TimeSpentSeconds != 4 || answer.Name != "Ann" {
		t.Fatalf("unexpected answer command: %#v", cmd)
	}

	cmd, err = app.ParseCommand(app.ActionRequest{Action: "answer", PlayerName: "Ann", QuestionIndex: &zero})
	if err != nil {
		t.Fatalf("parse timed-out answer: %v", err)
	}
	if cmd.(app.Answer).ChosenOption != -1 {
		t.Fatalf("missing answer should map to -1")
	}

	if _, err := app.ParseCommand(app.ActionRequest{Action: "answer", PlayerName: "Ann"}); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected precondition error for missing question index, got %v", err)
	}
	if _, err := app.ParseCommand(app.ActionRequest{}); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected precondition error for empty action, got %v", err)
	}
	if _, err := app.ParseCommand(app.ActionRequest{Action: "kick"}); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("expected invalid action, got %v", err)
	}

	for _, name := range []string{"join", "start", "advance", "reset"} {
		cmd, err := app.ParseCommand(app.ActionRequest{Action: name, PlayerName: "Ann"})
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		if string(cmd.Action()) != name {
			t.Fatalf("expected action %s, got %s", name, cmd.Action())
		}
	}
}
