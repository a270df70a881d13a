package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"live-quiz-service/internal/domain"
)

// sessionRow stores the session document as JSONB next to the columns it is
// looked up by.
type sessionRow struct {
	bun.BaseModel `bun:"table:game_sessions"`

	ID        string         `bun:"id,pk"`
	GamePin   string         `bun:"game_pin,notnull"`
	QuizID    string         `bun:"quiz_id,notnull"`
	EventID   string         `bun:"event_id,nullzero"`
	Status    string         `bun:"status,notnull"`
	Document  domain.Session `bun:"document,type:jsonb"`
	CreatedAt time.Time      `bun:"created_at,notnull"`
	UpdatedAt time.Time      `bun:"updated_at,notnull"`
}

func newSessionRow(s domain.Session) *sessionRow {
	return &sessionRow{
		ID:        s.ID,
		GamePin:   s.GamePin,
		QuizID:    s.QuizID,
		EventID:   s.EventID,
		Status:    string(s.Status),
		Document:  s,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// SessionStore is the Postgres implementation of app.SessionRepository.
// The unique index on game_pin makes Create the atomic PIN check.
type SessionStore struct {
	db *bun.DB
}

func NewSessionStore(db *bun.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, session domain.Session) error {
	_, err := s.db.NewInsert().Model(newSessionRow(session)).Exec(ctx)
	if isUniqueViolation(err) {
		return domain.ErrPinConflict
	}
	return err
}

func (s *SessionStore) GetByPin(ctx context.Context, pin string) (domain.Session, error) {
	return s.getWhere(ctx, "game_pin = ?", pin)
}

func (s *SessionStore) GetByID(ctx context.Context, id string) (domain.Session, error) {
	return s.getWhere(ctx, "id = ?", id)
}

func (s *SessionStore) getWhere(ctx context.Context, query string, arg string) (domain.Session, error) {
	row := new(sessionRow)
	err := s.db.NewSelect().Model(row).Where(query, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	return row.Document, nil
}

func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	res, err := s.db.NewUpdate().
		Model(newSessionRow(session)).
		Column("status", "document", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*sessionRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
