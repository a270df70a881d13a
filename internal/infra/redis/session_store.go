package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"live-quiz-service/internal/domain"
)

// SessionStore keeps each session as one msgpack document in Redis.
// Keys:
//
//	quiz:session:{pin}     session document
//	quiz:session:id:{id}   pin of the session, for lookups by id
//
// Both keys share the configured TTL, refreshed on every write, so abandoned
// games eventually free their PIN. A zero TTL keeps sessions until deleted.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, session domain.Session) error {
	doc, err := msgpack.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.pinKey(session.GamePin), doc, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPinConflict
	}
	return s.client.Set(ctx, s.idKey(session.ID), session.GamePin, s.ttl).Err()
}

func (s *SessionStore) GetByPin(ctx context.Context, pin string) (domain.Session, error) {
	raw, err := s.client.Get(ctx, s.pinKey(pin)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	var session domain.Session
	if err := msgpack.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session %s: %w", pin, err)
	}
	return session, nil
}

func (s *SessionStore) GetByID(ctx context.Context, id string) (domain.Session, error) {
	pin, err := s.client.Get(ctx, s.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	return s.GetByPin(ctx, pin)
}

func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	doc, err := msgpack.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	var set *redis.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		set = pipe.SetXX(ctx, s.pinKey(session.GamePin), doc, s.ttl)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.idKey(session.ID), s.ttl)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !set.Val() {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	pin, err := s.client.Get(ctx, s.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	return s.client.Del(ctx, s.pinKey(pin), s.idKey(id)).Err()
}

func (s *SessionStore) pinKey(pin string) string {
	return "quiz:session:" + pin
}

func (s *SessionStore) idKey(id string) string {
	return "quiz:session:id:" + id
}
