package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"live-quiz-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID   string      `bun:"id,pk"`
	Data domain.Quiz `bun:"data,type:jsonb"`
}

// SeedCatalog upserts quizzes and inserts missing events in one transaction.
func SeedCatalog(ctx context.Context, db *bun.DB, quizzes []domain.Quiz, events []domain.Event) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, quiz := range quizzes {
			_, err := tx.NewInsert().
				Model(&quizRow{ID: quiz.ID, Data: quiz}).
				On("CONFLICT (id) DO UPDATE").
				Set("data = EXCLUDED.data").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("seed quiz %s: %w", quiz.ID, err)
			}
		}
		store := NewEventStore(tx)
		for _, event := range events {
			if err := store.CreateEvent(ctx, event); err != nil {
				return fmt.Errorf("seed event %s: %w", event.ID, err)
			}
		}
		return nil
	})
}
