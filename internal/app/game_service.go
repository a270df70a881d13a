package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"live-quiz-service/internal/domain"
)

// SessionRepository abstracts where session documents live (in-memory, Redis, Postgres).
// Every write replaces the whole document; the last write wins.
type SessionRepository interface {
	// Create stores a new session and fails with domain.ErrPinConflict if its PIN is taken.
	Create(ctx context.Context, session domain.Session) error
	GetByPin(ctx context.Context, pin string) (domain.Session, error)
	GetByID(ctx context.Context, id string) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	Delete(ctx context.Context, id string) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// EventRepository exposes the parts of events that sessions touch.
type EventRepository interface {
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	AddSession(ctx context.Context, eventID, sessionID string) error
	RemoveSession(ctx context.Context, eventID, sessionID string) error
}

// GameService contains the game session use cases.
type GameService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	events   EventRepository
	statuses StatusCache
	pins     *PinAllocator
	engine   *Engine
	log      logrus.FieldLogger
	now      func() time.Time
}

// Option customizes a GameService.
type Option func(*GameService)

// WithStatusCache puts a shared cache in front of status reads.
func WithStatusCache(cache StatusCache) Option {
	return func(s *GameService) { s.statuses = cache }
}

func WithPinAllocator(pins *PinAllocator) Option {
	return func(s *GameService) { s.pins = pins }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *GameService) { s.log = log }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

func NewGameService(sessions SessionRepository, quizzes QuizRepository, events EventRepository, opts ...Option) *GameService {
	s := &GameService{
		sessions: sessions,
		quizzes:  quizzes,
		events:   events,
		pins:     NewPinAllocator(DefaultPinAttempts),
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = NewEngine(s.now)
	return s
}

// CreateSession launches a quiz in the waiting state under a fresh PIN.
func (s *GameService) CreateSession(ctx context.Context, quizID, eventID string) (domain.SessionDetail, error) {
	quizID = strings.TrimSpace(quizID)
	eventID = strings.TrimSpace(eventID)
	if quizID == "" {
		return domain.SessionDetail{}, fmt.Errorf("%w: quiz id is required", domain.ErrPreconditionFailed)
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionDetail{}, err
	}
	if eventID != "" {
		if _, err := s.events.GetEvent(ctx, eventID); err != nil {
			return domain.SessionDetail{}, err
		}
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	session := domain.Session{
		ID:             uuid.NewString(),
		QuizID:         quiz.ID,
		EventID:        eventID,
		Status:         domain.StatusWaiting,
		Players:        []domain.Player{},
		CreatedAt:      now,
		UpdatedAt:      now,
		StateChangedAt: now,
	}

	pin, err := s.pins.Allocate(ctx, func(ctx context.Context, pin string) error {
		session.GamePin = pin
		return s.sessions.Create(ctx, session)
	})
	if err != nil {
		return domain.SessionDetail{}, fmt.Errorf("create session: %w", err)
	}
	session.GamePin = pin

	if eventID != "" {
		if err := s.events.AddSession(ctx, eventID, session.ID); err != nil {
			return domain.SessionDetail{}, fmt.Errorf("link session to event: %w", err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"pin":     pin,
		"quiz":    quiz.ID,
		"session": session.ID,
		"event":   eventID,
	}).Info("game session created")

	return domain.SessionDetail{Session: session, Quiz: quiz}, nil
}

// GetSession returns the full session with its quiz.
func (s *GameService) GetSession(ctx context.Context, pin string) (domain.SessionDetail, error) {
	session, err := s.load(ctx, pin)
	if err != nil {
		return domain.SessionDetail{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.SessionDetail{}, err
	}
	return domain.SessionDetail{Session: session, Quiz: quiz}, nil
}

// Status returns the polling projection, served from the status cache when possible.
func (s *GameService) Status(ctx context.Context, pin string) (domain.StatusSummary, error) {
	pin = strings.TrimSpace(pin)
	if s.statuses != nil && pin != "" {
		summary, ok, err := s.statuses.GetStatus(ctx, pin)
		if err != nil {
			s.log.WithError(err).WithField("pin", pin).Warn("status cache read failed")
		} else if ok {
			return summary, nil
		}
	}

	session, err := s.load(ctx, pin)
	if err != nil {
		return domain.StatusSummary{}, err
	}
	summary := Project(session)

	if s.statuses != nil {
		if err := s.statuses.SetStatus(ctx, pin, summary); err != nil {
			s.log.WithError(err).WithField("pin", pin).Warn("status cache write failed")
		}
	}
	return summary, nil
}

// Mutate applies one command to the session addressed by pin and persists the
// result. Idempotent repeats return the current state without writing.
func (s *GameService) Mutate(ctx context.Context, pin string, cmd Command) (domain.SessionDetail, error) {
	session, err := s.load(ctx, pin)
	if err != nil {
		return domain.SessionDetail{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.SessionDetail{}, err
	}

	changed, err := s.engine.Apply(&session, quiz, cmd)
	if err != nil {
		return domain.SessionDetail{}, err
	}

	entry := s.log.WithFields(logrus.Fields{"pin": session.GamePin, "action": cmd.Action()})
	if changed {
		if err := s.sessions.Save(ctx, session); err != nil {
			return domain.SessionDetail{}, fmt.Errorf("save session: %w", err)
		}
		s.invalidate(ctx, session.GamePin)
		entry.WithFields(logrus.Fields{
			"status":   session.Status,
			"question": session.CurrentQuestionIndex,
			"players":  len(session.Players),
		}).Debug("session updated")
	} else {
		entry.Debug("session unchanged")
	}
	return domain.SessionDetail{Session: session, Quiz: quiz}, nil
}

// DeleteSession removes a session and unlinks it from its event.
func (s *GameService) DeleteSession(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrPreconditionFailed)
	}
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.invalidate(ctx, session.GamePin)

	if session.EventID != "" {
		if err := s.events.RemoveSession(ctx, session.EventID, id); err != nil && !errors.Is(err, domain.ErrEventNotFound) {
			return fmt.Errorf("unlink session from event: %w", err)
		}
	}
	s.log.WithFields(logrus.Fields{"pin": session.GamePin, "session": id}).Info("game session deleted")
	return nil
}

// Leaderboard ranks the players of one session.
func (s *GameService) Leaderboard(ctx context.Context, pin string) (domain.Leaderboard, error) {
	detail, err := s.GetSession(ctx, pin)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return BuildLeaderboard(detail.Session, detail.Quiz.Title), nil
}

// EventLeaderboard ranks players per session of an event and across the whole event.
func (s *GameService) EventLeaderboard(ctx context.Context, eventID string) (domain.EventLeaderboard, error) {
	event, err := s.events.GetEvent(ctx, strings.TrimSpace(eventID))
	if err != nil {
		return domain.EventLeaderboard{}, err
	}

	boards := make([]domain.Leaderboard, 0, len(event.SessionIDs))
	for _, id := range event.SessionIDs {
		session, err := s.sessions.GetByID(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return domain.EventLeaderboard{}, err
		}
		title := "Quiz"
		if quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID); err == nil && quiz.Title != "" {
			title = quiz.Title
		}
		boards = append(boards, BuildLeaderboard(session, title))
	}

	return domain.EventLeaderboard{
		Event:     event,
		Sessions:  boards,
		Aggregate: AggregateLeaderboards(boards),
	}, nil
}

func (s *GameService) load(ctx context.Context, pin string) (domain.Session, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return domain.Session{}, fmt.Errorf("%w: game pin is required", domain.ErrPreconditionFailed)
	}
	return s.sessions.GetByPin(ctx, pin)
}

func (s *GameService) invalidate(ctx context.Context, pin string) {
	if s.statuses == nil {
		return
	}
	if err := s.statuses.Invalidate(ctx, pin); err != nil {
		s.log.WithError(err).WithField("pin", pin).Warn("status cache invalidation failed")
	}
}
