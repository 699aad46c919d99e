package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Noop кэш без хранилища для работы при недоступном Redis: чтение всегда промах, запись игнорируется.
type Noop struct{}

// Get всегда возвращает redis.Nil.
func (Noop) Get(context.Context, string) (string, error) {
	return "", redis.Nil
}

// SetWithExpiration ничего не сохраняет.
func (Noop) SetWithExpiration(context.Context, string, interface{}, time.Duration) error {
	return nil
}
