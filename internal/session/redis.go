package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/naveenspark/clubdesk/pkg/domain"
)

// RedisStore keeps the session in redis so a kiosk terminal pool can share
// one sign-in. The three entries are written and deleted in a single
// MULTI/EXEC transaction and read with one MGET.
type RedisStore struct {
	rdb     redis.Cmdable
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisStore creates a store using keys "<prefix>token", "<prefix>user"
// and "<prefix>club".
func NewRedisStore(rdb redis.Cmdable, prefix string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisStore{
		rdb:     rdb,
		prefix:  prefix,
		timeout: 3 * time.Second,
		logger:  logger.With("store", "redis"),
	}
}

func (r *RedisStore) key(name string) string {
	return r.prefix + name
}

func (r *RedisStore) Load() *domain.Session {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	vals, err := r.rdb.MGet(ctx, r.key("token"), r.key("user"), r.key("club")).Result()
	if err != nil {
		r.logger.Warn("load session from redis", "error", err)
		return nil
	}
	return decode(entries{
		token: str(vals[0]),
		user:  []byte(str(vals[1])),
		club:  []byte(str(vals[2])),
	}, r.logger)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func (r *RedisStore) Save(s *domain.Session) error {
	if err := checkComplete(s); err != nil {
		return err
	}
	e, err := encode(s)
	if err != nil {
		return fmt.Errorf("session.RedisStore.Save: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.key("token"), e.token, 0)
		p.Set(ctx, r.key("user"), e.user, 0)
		if e.club != nil {
			p.Set(ctx, r.key("club"), e.club, 0)
		} else {
			p.Del(ctx, r.key("club"))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session.RedisStore.Save: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	err := r.rdb.Del(ctx, r.key("token"), r.key("user"), r.key("club")).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session.RedisStore.Clear: %w", err)
	}
	return nil
}
