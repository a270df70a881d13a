package app

import (
	"context"

	"live-quiz-service/internal/domain"
)

// StatusCache holds recent status projections so that many pollers can share
// one store read. Entries may be slightly stale.
type StatusCache interface {
	GetStatus(ctx context.Context, pin string) (domain.StatusSummary, bool, error)
	SetStatus(ctx context.Context, pin string, summary domain.StatusSummary) error
	Invalidate(ctx context.Context, pin string) error
}

// Project derives the polling summary of a session.
func Project(s domain.Session) domain.StatusSummary {
	var version int64
	if !s.StateChangedAt.IsZero() {
		version = s.StateChangedAt.UnixMilli()
	}
	return domain.StatusSummary{
		Status:               s.Status,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		PlayerCount:          len(s.Players),
		Version:              version,
	}
}
