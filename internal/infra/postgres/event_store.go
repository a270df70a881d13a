package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"live-quiz-service/internal/domain"
)

type eventRow struct {
	bun.BaseModel `bun:"table:events"`

	ID          string     `bun:"id,pk"`
	Title       string     `bun:"title,notnull"`
	Description string     `bun:"description"`
	SessionIDs  []string   `bun:"session_ids,array"`
	ScheduledAt *time.Time `bun:"scheduled_at"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
}

// EventStore reads events and maintains their session lists.
type EventStore struct {
	db bun.IDB
}

func NewEventStore(db bun.IDB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	row := new(eventRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", eventID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.Event{}, err
	}
	ids := row.SessionIDs
	if ids == nil {
		ids = []string{}
	}
	return domain.Event{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		SessionIDs:  ids,
		ScheduledAt: row.ScheduledAt,
		CreatedAt:   row.CreatedAt,
	}, nil
}

// CreateEvent inserts an event; used when seeding from the catalog.
func (s *EventStore) CreateEvent(ctx context.Context, event domain.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	ids := event.SessionIDs
	if ids == nil {
		ids = []string{}
	}
	_, err := s.db.NewInsert().Model(&eventRow{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		SessionIDs:  ids,
		ScheduledAt: event.ScheduledAt,
		CreatedAt:   event.CreatedAt,
	}).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	return err
}

func (s *EventStore) AddSession(ctx context.Context, eventID, sessionID string) error {
	res, err := s.db.NewUpdate().
		Model((*eventRow)(nil)).
		Set("session_ids = CASE WHEN ? = ANY(session_ids) THEN session_ids ELSE array_append(session_ids, ?) END", sessionID, sessionID).
		Where("id = ?", eventID).
		Exec(ctx)
	return checkEventUpdate(res, err)
}

func (s *EventStore) RemoveSession(ctx context.Context, eventID, sessionID string) error {
	res, err := s.db.NewUpdate().
		Model((*eventRow)(nil)).
		Set("session_ids = array_remove(session_ids, ?)", sessionID).
		Where("id = ?", eventID).
		Exec(ctx)
	return checkEventUpdate(res, err)
}

func checkEventUpdate(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}
