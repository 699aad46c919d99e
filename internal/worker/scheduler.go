package worker

import (
	"context"
	"time"

	"NoticeEmitter/internal/engine"
	"github.com/wb-go/wbf/zlog"
)

// Emitter выполняет один проход доставки.
type Emitter interface {
	SendAll(ctx context.Context) engine.Result
}

// Scheduler периодически запускает проход доставки внутри сервера.
// Параллельные проходы других процессов исключает файловая блокировка движка.
type Scheduler struct {
	emitter  Emitter
	interval time.Duration
}

// NewScheduler создает новый экземпляр Scheduler.
func NewScheduler(emitter Emitter, interval time.Duration) *Scheduler {
	return &Scheduler{emitter: emitter, interval: interval}
}

// Start блокируется до отмены ctx. При interval <= 0 сразу возвращается.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		zlog.Logger.Info().Msg("scheduled delivery disabled")
		return
	}

	zlog.Logger.Info().Dur("interval", s.interval).Msg("scheduled delivery started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("scheduled delivery stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	res := s.emitter.SendAll(ctx)
	zlog.Logger.Debug().
		Str("state", res.State.String()).
		Int("batches", res.Stats.Batches).
		Int("sent_actual", res.Stats.SentActual).
		Bool("failed", res.Err != nil).
		Msg("scheduled delivery pass finished")
}
