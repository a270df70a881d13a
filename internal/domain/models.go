package domain

import (
	"fmt"
	"time"
)

// DefaultTimeLimitSeconds applies to questions stored without a time limit.
const DefaultTimeLimitSeconds = 20

// Status is the lifecycle phase of a game session.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Question models a multiple-choice question with a single correct option.
type Question struct {
	Text               string   `json:"text" yaml:"text"`
	Options            []string `json:"options" yaml:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex" yaml:"correctAnswerIndex"`
	TimeLimitSeconds   int      `json:"timeLimitSeconds" yaml:"timeLimitSeconds"` // defaults to 20 if zero
}

// TimeLimit returns the effective time limit in seconds.
func (q Question) TimeLimit() int {
	if q.TimeLimitSeconds <= 0 {
		return DefaultTimeLimitSeconds
	}
	return q.TimeLimitSeconds
}

// Quiz is an ordered collection of questions. The order defines question indexes.
type Quiz struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description"`
	Questions   []Question `json:"questions" yaml:"questions"`
}

// LastIndex returns the index of the final question, or -1 for an empty quiz.
func (q Quiz) LastIndex() int {
	return len(q.Questions) - 1
}

// Validate checks that every question has options and a valid correct answer.
func (q Quiz) Validate() error {
	for i, question := range q.Questions {
		if len(question.Options) < 2 {
			return fmt.Errorf("quiz %s question %d: at least two options required", q.ID, i)
		}
		if question.CorrectAnswerIndex < 0 || question.CorrectAnswerIndex >= len(question.Options) {
			return fmt.Errorf("quiz %s question %d: correct answer index %d out of range", q.ID, i, question.CorrectAnswerIndex)
		}
	}
	return nil
}

// Answer is a single recorded submission for one question.
type Answer struct {
	QuestionIndex     int  `json:"questionIndex"`
	ChosenOptionIndex int  `json:"chosenOptionIndex"`
	Correct           bool `json:"correct"`
	TimeSpentSeconds  int  `json:"timeSpentSeconds"`
	Awarded           int  `json:"awarded"`
}

// Player is a participant of exactly one session.
type Player struct {
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Answers  []Answer  `json:"answers"`
	JoinedAt time.Time `json:"joinedAt"`
}

// HasAnswered reports whether the player already answered the question.
func (p Player) HasAnswered(questionIndex int) bool {
	for _, a := range p.Answers {
		if a.QuestionIndex == questionIndex {
			return true
		}
	}
	return false
}

// Session is the single authoritative document for one launched game.
type Session struct {
	ID                   string    `json:"id"`
	GamePin              string    `json:"gamePin"`
	QuizID               string    `json:"quizId"`
	EventID              string    `json:"eventId,omitempty"`
	Status               Status    `json:"status"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	Players              []Player  `json:"players"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
	StateChangedAt       time.Time `json:"stateChangedAt"`
}

// Clone returns a deep copy so that stores never share player slices with callers.
func (s Session) Clone() Session {
	out := s
	if s.Players != nil {
		out.Players = make([]Player, len(s.Players))
		for i, p := range s.Players {
			out.Players[i] = p
			if p.Answers != nil {
				out.Players[i].Answers = append([]Answer(nil), p.Answers...)
			}
		}
	}
	return out
}

// SessionDetail is a session with its quiz denormalized for display.
type SessionDetail struct {
	Session
	Quiz Quiz `json:"quiz"`
}

// StatusSummary is the minimal projection clients poll to detect change.
type StatusSummary struct {
	Status               Status `json:"status"`
	CurrentQuestionIndex int    `json:"currentQuestionIndex"`
	PlayerCount          int    `json:"playerCount"`
	Version              int64  `json:"version"`
}

// Event groups several sessions, e.g. rounds of one evening.
type Event struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description"`
	SessionIDs  []string   `json:"sessionIds" yaml:"sessionIds"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty" yaml:"scheduledAt"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
}

// LeaderboardEntry is a snapshot-friendly view of a player.
type LeaderboardEntry struct {
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Answered int    `json:"answered"`
	Correct  int    `json:"correct"`
}

// Leaderboard captures the ordered scoreboard for a session.
type Leaderboard struct {
	SessionID string             `json:"sessionId"`
	GamePin   string             `json:"gamePin"`
	QuizTitle string             `json:"quizTitle"`
	Status    Status             `json:"status"`
	Entries   []LeaderboardEntry `json:"entries"`
}

// AggregateEntry sums a player's results over all sessions of an event.
type AggregateEntry struct {
	Name          string `json:"name"`
	TotalScore    int    `json:"totalScore"`
	QuizzesPlayed int    `json:"quizzesPlayed"`
	AverageScore  int    `json:"averageScore"`
}

// EventLeaderboard combines per-session boards with the event-wide aggregate.
type EventLeaderboard struct {
	Event     Event            `json:"event"`
	Sessions  []Leaderboard    `json:"sessions"`
	Aggregate []AggregateEntry `json:"aggregate"`
}
