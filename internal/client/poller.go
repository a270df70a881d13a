package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// Intervals are the polling delays per phase of the game.
type Intervals struct {
	Waiting  time.Duration
	Active   time.Duration
	Answered time.Duration
	Host     time.Duration
}

// DefaultIntervals keep request volume low while the game is idle.
var DefaultIntervals = Intervals{
	Waiting:  8 * time.Second,
	Active:   5 * time.Second,
	Answered: 10 * time.Second,
	Host:     4 * time.Second,
}

// Fetcher is the subset of Client the poller needs.
type Fetcher interface {
	Status(ctx context.Context, pin string) (domain.StatusSummary, error)
	Session(ctx context.Context, pin string) (domain.SessionDetail, error)
}

// Update is delivered whenever the poller has read something new.
type Update struct {
	Status  domain.StatusSummary
	Session domain.SessionDetail
}

// Poller follows one session. In player mode it reads the status projection
// and fetches the full session only when the version moved; in host mode it
// fetches the full session every tick.
type Poller struct {
	fetcher   Fetcher
	pin       string
	player    string
	host      bool
	intervals Intervals
	log       logrus.FieldLogger
	retry     func() backoff.BackOff
}

type PollerOption func(*Poller)

// AsPlayer makes the poller slow down once player has answered the current question.
func AsPlayer(name string) PollerOption {
	return func(p *Poller) { p.player = strings.TrimSpace(name) }
}

func AsHost() PollerOption {
	return func(p *Poller) { p.host = true }
}

func WithIntervals(intervals Intervals) PollerOption {
	return func(p *Poller) { p.intervals = intervals }
}

func WithPollerLogger(log logrus.FieldLogger) PollerOption {
	return func(p *Poller) { p.log = log }
}

// WithRetry sets the delay policy used after failed reads.
func WithRetry(policy func() backoff.BackOff) PollerOption {
	return func(p *Poller) { p.retry = policy }
}

func NewPoller(fetcher Fetcher, pin string, opts ...PollerOption) *Poller {
	p := &Poller{
		fetcher:   fetcher,
		pin:       strings.TrimSpace(pin),
		intervals: DefaultIntervals,
		log:       logrus.StandardLogger(),
		retry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is done, the game finishes (player mode) or the
// session disappears. onUpdate is called from the polling goroutine.
func (p *Poller) Run(ctx context.Context, onUpdate func(Update)) error {
	retry := backoff.WithContext(p.retry(), ctx)
	var (
		last    Update
		fetched bool
	)
	for {
		next, done, err := p.tick(ctx, &last, &fetched, onUpdate)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.NotFound() {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			next = retry.NextBackOff()
			if next == backoff.Stop {
				return err
			}
			p.log.WithError(err).WithFields(logrus.Fields{"pin": p.pin, "retry_in": next}).Warn("poll failed")
		} else {
			retry.Reset()
		}
		if done {
			return nil
		}
		if err := sleep(ctx, next); err != nil {
			return err
		}
	}
}

func (p *Poller) tick(ctx context.Context, last *Update, fetched *bool, onUpdate func(Update)) (time.Duration, bool, error) {
	if p.host {
		detail, err := p.fetcher.Session(ctx, p.pin)
		if err != nil {
			return 0, false, err
		}
		update := Update{Status: app.Project(detail.Session), Session: detail}
		*last, *fetched = update, true
		onUpdate(update)
		return p.intervals.Host, false, nil
	}

	status, err := p.fetcher.Status(ctx, p.pin)
	if err != nil {
		return 0, false, err
	}
	if !*fetched || status.Version != last.Status.Version {
		detail, err := p.fetcher.Session(ctx, p.pin)
		if err != nil {
			return 0, false, err
		}
		*last, *fetched = Update{Status: status, Session: detail}, true
		onUpdate(*last)
	} else {
		last.Status = status
	}

	if status.Status == domain.StatusFinished {
		return 0, true, nil
	}
	return p.interval(*last), false, nil
}

func (p *Poller) interval(u Update) time.Duration {
	switch u.Status.Status {
	case domain.StatusWaiting:
		return p.intervals.Waiting
	case domain.StatusActive:
		if p.answeredCurrent(u) {
			return p.intervals.Answered
		}
		return p.intervals.Active
	default:
		return p.intervals.Waiting
	}
}

func (p *Poller) answeredCurrent(u Update) bool {
	if p.player == "" {
		return false
	}
	for _, player := range u.Session.Players {
		if strings.EqualFold(player.Name, p.player) {
			return player.HasAnswered(u.Session.CurrentQuestionIndex)
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
