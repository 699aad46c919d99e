// Package lockfile реализует межпроцессную блокировку на файле (flock).
// Блокировка рекомендательная и защищает только от параллельных запусков на одном хосте.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// DefaultName имя блокировки прохода доставки по умолчанию.
const DefaultName = "send_notices"

const retryDelay = 50 * time.Millisecond

var (
	// ErrAlreadyLocked блокировка уже захвачена другим процессом.
	ErrAlreadyLocked = errors.New("lock already in place")
	// ErrLockTimeout истекло время ожидания блокировки.
	ErrLockTimeout = errors.New("waiting for the lock timed out")
)

// FileLock захваченная блокировка.
type FileLock struct {
	fl   *flock.Flock
	once sync.Once
	err  error
}

// Acquire захватывает блокировку <dir>/<name>.lock.
// При timeout <= 0 делается одна попытка и возвращается ErrAlreadyLocked,
// иначе блокировка ожидается не дольше timeout и возвращается ErrLockTimeout.
func Acquire(ctx context.Context, dir, name string, timeout time.Duration) (*FileLock, error) {
	if name == "" {
		name = DefaultName
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir %q: %w", dir, err)
	}

	fl := flock.New(filepath.Join(dir, name+".lock"))

	if timeout <= 0 {
		ok, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("try lock %q: %w", fl.Path(), err)
		}
		if !ok {
			return nil, ErrAlreadyLocked
		}
		return &FileLock{fl: fl}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err := fl.TryLockContext(waitCtx, retryDelay)
	if err != nil {
		// истек именно наш таймаут, а не родительский контекст
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("wait lock %q: %w", fl.Path(), err)
	}
	if !ok {
		return nil, ErrLockTimeout
	}
	return &FileLock{fl: fl}, nil
}

// Path возвращает путь к файлу блокировки.
func (l *FileLock) Path() string {
	return l.fl.Path()
}

// Release освобождает блокировку. Повторный вызов ничего не делает.
func (l *FileLock) Release() error {
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		l.err = l.fl.Close()
	})
	return l.err
}
