package app

import (
	"fmt"
	"strings"
	"time"

	"live-quiz-service/internal/domain"
)

// Action names one of the supported session mutations.
type Action string

const (
	ActionJoin    Action = "join"
	ActionStart   Action = "start"
	ActionAdvance Action = "advance"
	ActionReset   Action = "reset"
	ActionAnswer  Action = "answer"
)

// Command is a session mutation. The set of implementations is closed: every
// command carries its own transition, so a new action cannot be added without
// a handler.
type Command interface {
	Action() Action
	apply(t *transition) (bool, error)
}

// Join adds a player to a waiting session.
type Join struct {
	Name string
}

// Start moves the session to the first question.
type Start struct{}

// Advance moves to the next question or finishes the game after the last one.
type Advance struct{}

// Reset returns the session to the lobby and clears all results.
type Reset struct{}

// Answer records a player's choice for one question. A negative ChosenOption
// means no option was picked before the timer ran out.
type Answer struct {
	Name             string
	QuestionIndex    int
	ChosenOption     int
	TimeSpentSeconds int
}

func (Join) Action() Action    { return ActionJoin }
func (Start) Action() Action   { return ActionStart }
func (Advance) Action() Action { return ActionAdvance }
func (Reset) Action() Action   { return ActionReset }
func (Answer) Action() Action  { return ActionAnswer }

// ActionRequest is the loosely typed form of a command as it arrives from clients.
type ActionRequest struct {
	Action        string
	PlayerName    string
	QuestionIndex *int
	Answer        *int
	TimeSpent     int
}

// ParseCommand converts a client request into a Command.
func ParseCommand(req ActionRequest) (Command, error) {
	switch Action(strings.TrimSpace(req.Action)) {
	case ActionJoin:
		return Join{Name: req.PlayerName}, nil
	case ActionStart:
		return Start{}, nil
	case ActionAdvance:
		return Advance{}, nil
	case ActionReset:
		return Reset{}, nil
	case ActionAnswer:
		if req.QuestionIndex == nil {
			return nil, fmt.Errorf("%w: question index is required", domain.ErrPreconditionFailed)
		}
		chosen := -1
		if req.Answer != nil {
			chosen = *req.Answer
		}
		return Answer{
			Name:             req.PlayerName,
			QuestionIndex:    *req.QuestionIndex,
			ChosenOption:     chosen,
			TimeSpentSeconds: req.TimeSpent,
		}, nil
	case "":
		return nil, fmt.Errorf("%w: action is required", domain.ErrPreconditionFailed)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAction, req.Action)
	}
}

// Engine applies commands to session documents. It holds no session state.
type Engine struct {
	now func() time.Time
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

type transition struct {
	session *domain.Session
	quiz    domain.Quiz
	now     time.Time
}

// Apply mutates session in place. It reports whether anything changed; a
// failed or idempotent command leaves the session untouched.
func (e *Engine) Apply(session *domain.Session, quiz domain.Quiz, cmd Command) (bool, error) {
	now := e.now().UTC()
	before := Project(*session)

	changed, err := cmd.apply(&transition{session: session, quiz: quiz, now: now})
	if err != nil || !changed {
		return false, err
	}

	session.UpdatedAt = nextStamp(session.UpdatedAt, now)
	after := Project(*session)
	if before.Status != after.Status ||
		before.CurrentQuestionIndex != after.CurrentQuestionIndex ||
		before.PlayerCount != after.PlayerCount {
		session.StateChangedAt = nextStamp(session.StateChangedAt, now)
	}
	return true, nil
}

// nextStamp returns a millisecond timestamp strictly after prev.
func nextStamp(prev, now time.Time) time.Time {
	now = now.Truncate(time.Millisecond)
	if !now.After(prev) {
		return prev.Truncate(time.Millisecond).Add(time.Millisecond)
	}
	return now
}

func (c Join) apply(t *transition) (bool, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return false, fmt.Errorf("%w: player name is required", domain.ErrPreconditionFailed)
	}
	if t.session.Status != domain.StatusWaiting {
		return false, fmt.Errorf("%w: game already started", domain.ErrPreconditionFailed)
	}
	if findPlayer(t.session.Players, name) >= 0 {
		return false, nil
	}
	t.session.Players = append(t.session.Players, domain.Player{
		Name:     name,
		Answers:  []domain.Answer{},
		JoinedAt: t.now,
	})
	return true, nil
}

func (Start) apply(t *transition) (bool, error) {
	if t.session.Status == domain.StatusActive && t.session.CurrentQuestionIndex == 0 {
		return false, nil
	}
	t.session.Status = domain.StatusActive
	t.session.CurrentQuestionIndex = 0
	return true, nil
}

func (Advance) apply(t *transition) (bool, error) {
	if t.session.CurrentQuestionIndex < t.quiz.LastIndex() {
		t.session.CurrentQuestionIndex++
		return true, nil
	}
	if t.session.Status == domain.StatusFinished {
		return false, nil
	}
	t.session.Status = domain.StatusFinished
	return true, nil
}

func (Reset) apply(t *transition) (bool, error) {
	changed := t.session.Status != domain.StatusWaiting || t.session.CurrentQuestionIndex != 0
	t.session.Status = domain.StatusWaiting
	t.session.CurrentQuestionIndex = 0
	for i := range t.session.Players {
		p := &t.session.Players[i]
		if p.Score != 0 || len(p.Answers) > 0 {
			changed = true
		}
		p.Score = 0
		p.Answers = []domain.Answer{}
	}
	return changed, nil
}

func (c Answer) apply(t *transition) (bool, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return false, fmt.Errorf("%w: player name is required", domain.ErrPreconditionFailed)
	}
	if t.session.Status != domain.StatusActive {
		return false, fmt.Errorf("%w: game is not active", domain.ErrPreconditionFailed)
	}
	idx := findPlayer(t.session.Players, name)
	if idx < 0 {
		return false, fmt.Errorf("%w: %q", domain.ErrPlayerNotFound, name)
	}
	if c.QuestionIndex < 0 || c.QuestionIndex >= len(t.quiz.Questions) {
		return false, fmt.Errorf("%w: invalid question index %d", domain.ErrPreconditionFailed, c.QuestionIndex)
	}

	player := &t.session.Players[idx]
	if player.HasAnswered(c.QuestionIndex) {
		return false, nil
	}

	spent := c.TimeSpentSeconds
	if spent < 0 {
		spent = 0
	}
	correct, points := ScoreAnswer(t.quiz.Questions[c.QuestionIndex], c.ChosenOption, spent)
	player.Answers = append(player.Answers, domain.Answer{
		QuestionIndex:     c.QuestionIndex,
		ChosenOptionIndex: c.ChosenOption,
		Correct:           correct,
		TimeSpentSeconds:  spent,
		Awarded:           points,
	})
	player.Score += points
	return true, nil
}

// findPlayer matches names ignoring case; join and answer share this identity rule.
func findPlayer(players []domain.Player, name string) int {
	for i := range players {
		if strings.EqualFold(players[i].Name, name) {
			return i
		}
	}
	return -1
}
