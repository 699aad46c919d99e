package engine

import (
	"context"

	"NoticeEmitter/internal/domain"
	"github.com/wb-go/wbf/zlog"
)

// LogListener пишет итоги прохода в лог.
type LogListener struct{}

// OnNoticesEmitted логирует итоги прохода.
func (LogListener) OnNoticesEmitted(_ context.Context, ev domain.EmittedNotices) error {
	zlog.Logger.Info().
		Int("batches", ev.Batches).
		Int("sent", ev.Sent).
		Int("sent_actual", ev.SentActual).
		Dur("run_time", ev.RunTime).
		Msg("notices emitted")
	return nil
}
