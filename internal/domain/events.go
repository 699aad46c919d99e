package domain

import (
	"context"
	"time"
)

// EmittedNotices итоги одного прохода доставки.
type EmittedNotices struct {
	Batches    int           `json:"batches"`
	Sent       int           `json:"sent"`
	SentActual int           `json:"sent_actual"`
	RunTime    time.Duration `json:"run_time"`
	FinishedAt time.Time     `json:"finished_at"`
}

// NoticesEmittedListener получатель итогов прохода.
type NoticesEmittedListener interface {
	// OnNoticesEmitted вызывается после обработки всех пачек прохода.
	OnNoticesEmitted(ctx context.Context, ev EmittedNotices) error
}

// LastRunReader источник итогов последнего прохода.
type LastRunReader interface {
	// LastRun возвращает итоги последнего прохода, ErrNotFound если проходов еще не было
	LastRun(ctx context.Context) (*EmittedNotices, error)
}
