package domain

import (
	"context"
	"time"
)

// RedisRepository кэш настроек и итогов проходов.
// Get возвращает redis.Nil, если ключа нет; вызывающий код трактует любую ошибку как промах.
type RedisRepository interface {
	Get(ctx context.Context, key string) (string, error)
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}
