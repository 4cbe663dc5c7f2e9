// Package redisstore persists identities in Redis.
//
// Each identity is one record keyed by id, plus an email index key holding
// that id. Inserts and updates run under WATCH so the email index stays
// unique across concurrent writers.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cignalottu/authcore/identity"
)

const (
	DefaultPrefix = "ac"
	maxTxRetries  = 4
)

var ErrUnavailable = errors.New("identity redis unavailable")

// Store implements identity.Store on a Redis client.
type Store struct {
	redis    redis.UniversalClient
	prefix   string
	encoding Encoding
	now      func() time.Time
}

var _ identity.Store = (*Store)(nil)

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithEncoding(enc Encoding) Option {
	return func(s *Store) { s.encoding = enc }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		redis:    client,
		prefix:   DefaultPrefix,
		encoding: EncodingBinary,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":email:" + identity.NormalizeEmail(email)
}

func (s *Store) idKey(id int64) string {
	return s.prefix + ":id:" + strconv.FormatInt(id, 10)
}

func (s *Store) seqKey() string {
	return s.prefix + ":seq"
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.emailKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.load(ctx, s.redis, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) load(ctx context.Context, g getter, id int64) (*identity.Identity, error) {
	data, err := g.Get(ctx, s.idKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Decode(data)
}

// Save inserts ident when its ID is zero and updates it otherwise.
func (s *Store) Save(ctx context.Context, ident *identity.Identity) (*identity.Identity, error) {
	if ident == nil {
		return nil, identity.ErrNotFound
	}
	rec := ident.Clone()
	rec.Email = identity.NormalizeEmail(rec.Email)

	for i := 0; i < maxTxRetries; i++ {
		var (
			saved *identity.Identity
			err   error
		)
		if rec.ID == 0 {
			saved, err = s.insert(ctx, rec.Clone())
		} else {
			saved, err = s.update(ctx, rec.Clone())
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return saved, err
	}
	return nil, fmt.Errorf("%w: too much contention", ErrUnavailable)
}

func (s *Store) insert(ctx context.Context, rec *identity.Identity) (*identity.Identity, error) {
	emailKey := s.emailKey(rec.Email)

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, emailKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return identity.ErrDuplicateEmail
		}

		id, err := tx.Incr(ctx, s.seqKey()).Result()
		if err != nil {
			return err
		}
		now := s.now().UTC()
		rec.ID = id
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now

		encoded, err := Encode(rec, s.encoding)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.idKey(id), encoded, 0)
			pipe.Set(ctx, emailKey, id, 0)
			return nil
		})
		return err
	}, emailKey)

	if err != nil {
		return nil, s.wrap(err)
	}
	return rec, nil
}

func (s *Store) update(ctx context.Context, rec *identity.Identity) (*identity.Identity, error) {
	idKey := s.idKey(rec.ID)
	emailKey := s.emailKey(rec.Email)

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.load(ctx, tx, rec.ID)
		if err != nil {
			return err
		}

		oldEmailKey := s.emailKey(current.Email)
		if oldEmailKey != emailKey {
			n, err := tx.Exists(ctx, emailKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return identity.ErrDuplicateEmail
			}
		}

		rec.CreatedAt = current.CreatedAt
		rec.UpdatedAt = s.now().UTC()
		encoded, err := Encode(rec, s.encoding)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if oldEmailKey != emailKey {
				pipe.Del(ctx, oldEmailKey)
				pipe.Set(ctx, emailKey, rec.ID, 0)
			}
			pipe.Set(ctx, idKey, encoded, 0)
			return nil
		})
		return err
	}, idKey, emailKey)

	if err != nil {
		return nil, s.wrap(err)
	}
	return rec, nil
}

func (s *Store) wrap(err error) error {
	switch {
	case errors.Is(err, redis.TxFailedErr),
		errors.Is(err, identity.ErrDuplicateEmail),
		errors.Is(err, identity.ErrNotFound),
		errors.Is(err, ErrUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// Delete removes the identity registered under email. It is idempotent.
func (s *Store) Delete(ctx context.Context, email string) error {
	ident, err := s.FindByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.redis.Del(ctx, s.emailKey(email), s.idKey(ident.ID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
