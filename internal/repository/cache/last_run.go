package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"NoticeEmitter/internal/domain"
	"github.com/go-redis/redis/v8"
	"github.com/wb-go/wbf/zlog"
)

// LastRunKey ключ итогов последнего прохода в Redis.
const LastRunKey = "notices:last_run"

// LastRunStore хранит итоги последнего прохода доставки в Redis.
type LastRunStore struct {
	redis domain.RedisRepository
	ttl   time.Duration
}

// NewLastRunStore создает новый экземпляр LastRunStore.
func NewLastRunStore(redis domain.RedisRepository, ttl time.Duration) *LastRunStore {
	return &LastRunStore{redis: redis, ttl: ttl}
}

// OnNoticesEmitted сохраняет итоги прохода.
func (s *LastRunStore) OnNoticesEmitted(ctx context.Context, ev domain.EmittedNotices) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := s.redis.SetWithExpiration(ctx, LastRunKey, data, s.ttl); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to store last run")
		return err
	}
	return nil
}

// LastRun возвращает итоги последнего прохода.
func (s *LastRunStore) LastRun(ctx context.Context) (*domain.EmittedNotices, error) {
	data, err := s.redis.Get(ctx, LastRunKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var ev domain.EmittedNotices
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to unmarshal last run")
		return nil, err
	}
	return &ev, nil
}
