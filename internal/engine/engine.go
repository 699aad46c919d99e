// Package engine реализует проход доставки отложенных уведомлений (emit_notices).
//
// Проход захватывает файловую блокировку, обрабатывает все пачки, окно доставки которых
// открыто, удаляет доставленные и просроченные пачки и сообщает администраторам
// о непредвиденных ошибках. Ошибка доставки одному получателю не прерывает пачку.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"NoticeEmitter/internal/domain"
	"NoticeEmitter/internal/lockfile"
	"github.com/wb-go/wbf/zlog"
)

// Config параметры движка.
type Config struct {
	LockDir         string
	LockName        string
	LockWaitTimeout time.Duration
	SiteName        string
}

// Result итог вызова SendAll.
type Result struct {
	State   State
	Stats   domain.EmittedNotices
	Expired int64
	// Err ошибка, прервавшая проход. Она уже залогирована и отправлена администраторам.
	Err error
}

// Engine движок доставки.
type Engine struct {
	cfg        Config
	batches    domain.BatchRepository
	recipients domain.RecipientRepository
	notifier   domain.Notifier
	mailer     domain.AdminMailer
	listeners  []domain.NoticesEmittedListener
	now        func() time.Time
}

// Option функция настройки движка.
type Option func(*Engine)

// WithListeners добавляет получателей итогов прохода.
func WithListeners(l ...domain.NoticesEmittedListener) Option {
	return func(e *Engine) {
		e.listeners = append(e.listeners, l...)
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New создает новый экземпляр Engine.
func New(cfg Config, batches domain.BatchRepository, recipients domain.RecipientRepository,
	notifier domain.Notifier, mailer domain.AdminMailer, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		batches:    batches,
		recipients: recipients,
		notifier:   notifier,
		mailer:     mailer,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SendAll выполняет один проход доставки. Никогда не возвращает ошибку вызывающему:
// конкуренция за блокировку означает пропуск, ошибки прохода логируются и отправляются администраторам.
func (e *Engine) SendAll(ctx context.Context) Result {
	zlog.Logger.Debug().Str("state", StateLockAcquiring.String()).Msg("acquiring lock...")
	lock := e.acquireLock(ctx)
	if lock == nil {
		zlog.Logger.Debug().Str("state", StateSkipped.String()).Msg("no lock acquired. skipping sending.")
		return Result{State: StateSkipped}
	}
	zlog.Logger.Debug().Str("lock", lock.Path()).Msg("acquired.")

	start := time.Now()
	p := &pass{}

	func() {
		defer func() {
			zlog.Logger.Debug().Msg("releasing lock...")
			if err := lock.Release(); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to release lock")
				return
			}
			zlog.Logger.Debug().Msg("released.")
		}()

		zlog.Logger.Debug().Str("state", StateRunning.String()).Msg("running delivery pass")
		if err := e.guard(ctx, p, start); err != nil {
			p.err = err
			e.handleFailure(ctx, err)
		}
	}()

	elapsed := time.Since(start)
	zlog.Logger.Info().
		Int("batches", p.stats.Batches).
		Int("sent", p.stats.Sent).
		Int("sent_actual", p.stats.SentActual).
		Int64("expired", p.expired).
		Msgf("%d batches, %d sent, %d expired", p.stats.Batches, p.stats.Sent, p.expired)
	zlog.Logger.Info().Dur("elapsed", elapsed).Msgf("done in %.2f seconds", elapsed.Seconds())

	res := Result{State: StateDone, Expired: p.expired, Err: p.err}
	if p.err == nil {
		res.Stats = p.stats
	}
	return res
}

// acquireLock возвращает nil, если проход нужно пропустить.
func (e *Engine) acquireLock(ctx context.Context) *lockfile.FileLock {
	lock, err := lockfile.Acquire(ctx, e.cfg.LockDir, e.cfg.LockName, e.cfg.LockWaitTimeout)
	switch {
	case err == nil:
		return lock
	case errors.Is(err, lockfile.ErrAlreadyLocked):
		zlog.Logger.Debug().Msg("lock already in place. quitting.")
	case errors.Is(err, lockfile.ErrLockTimeout):
		zlog.Logger.Debug().Msg("waiting for the lock timed out. quitting.")
	default:
		zlog.Logger.Error().Err(err).Msg("failed to acquire lock")
	}
	return nil
}

// pass счетчики текущего прохода.
type pass struct {
	stats   domain.EmittedNotices
	expired int64
	err     error
}

// guard выполняет проход и превращает panic в ошибку со стеком.
func (e *Engine) guard(ctx context.Context, p *pass, start time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPassError(fmt.Errorf("panic: %v", r))
		}
	}()

	if err := e.run(ctx, p, start); err != nil {
		return newPassError(err)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, p *pass, start time.Time) error {
	now := e.now()

	queued, err := e.batches.ListEligible(ctx, now)
	if err != nil {
		return fmt.Errorf("list eligible batches: %w", err)
	}

	for i := range queued {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.processBatch(ctx, &queued[i], p); err != nil {
			return err
		}
		p.stats.Batches++
	}

	p.stats.RunTime = time.Since(start)
	p.stats.FinishedAt = e.now()
	e.emit(ctx, p.stats)

	expired, err := e.batches.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("delete expired batches: %w", err)
	}
	p.expired = expired
	return nil
}

func (e *Engine) processBatch(ctx context.Context, b *domain.QueuedBatch, p *pass) error {
	notices, err := domain.DecodePayload(b.Payload)
	if err != nil {
		return fmt.Errorf("batch %s: %w", b.ID, err)
	}

	wasSent := false
	for _, n := range notices {
		out, err := e.emitNotice(ctx, n)
		if err != nil {
			return fmt.Errorf("batch %s: %w", b.ID, err)
		}
		if out == outcomeDelivered {
			p.stats.SentActual++
			wasSent = true
		}
		p.stats.Sent++
	}

	if !wasSent {
		zlog.Logger.Debug().Str("batch_id", b.ID.String()).Msg("nothing delivered, batch stays queued")
		return nil
	}

	if err := e.batches.Delete(ctx, b.ID); err != nil {
		if errors.Is(err, domain.ErrNoRowAffected) {
			zlog.Logger.Warn().Str("batch_id", b.ID.String()).Msg("batch already deleted")
			return nil
		}
		return fmt.Errorf("delete batch %s: %w", b.ID, err)
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, ev domain.EmittedNotices) {
	for _, l := range e.listeners {
		if err := l.OnNoticesEmitted(ctx, ev); err != nil {
			zlog.Logger.Warn().Err(err).Msgf("listener %T failed", l)
		}
	}
}
