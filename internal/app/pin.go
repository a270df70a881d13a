package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/cenkalti/backoff/v4"
	"live-quiz-service/internal/domain"
)

// DefaultPinAttempts bounds how many random PINs are tried per session.
const DefaultPinAttempts = 25

// ReserveFunc atomically claims pin in the session store. It must return
// domain.ErrPinConflict when the PIN is already taken.
type ReserveFunc func(ctx context.Context, pin string) error

// PinAllocator hands out random 6-digit game PINs.
type PinAllocator struct {
	attempts int
	generate func() string
}

func NewPinAllocator(attempts int) *PinAllocator {
	return NewPinAllocatorWithGenerator(attempts, randomPin)
}

// NewPinAllocatorWithGenerator is used by tests to control the PIN sequence.
func NewPinAllocatorWithGenerator(attempts int, generate func() string) *PinAllocator {
	if attempts <= 0 {
		attempts = DefaultPinAttempts
	}
	return &PinAllocator{attempts: attempts, generate: generate}
}

// Allocate draws PINs until reserve accepts one. Only conflicts are retried;
// any other reserve error is returned as is. Running out of attempts yields
// domain.ErrUnavailable.
func (a *PinAllocator) Allocate(ctx context.Context, reserve ReserveFunc) (string, error) {
	var pin string
	operation := func() error {
		candidate := a.generate()
		err := reserve(ctx, candidate)
		switch {
		case err == nil:
			pin = candidate
			return nil
		case errors.Is(err, domain.ErrPinConflict):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(a.attempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, domain.ErrPinConflict) {
			return "", fmt.Errorf("%w: no free game pin after %d attempts", domain.ErrUnavailable, a.attempts)
		}
		return "", err
	}
	return pin, nil
}

func randomPin() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}
