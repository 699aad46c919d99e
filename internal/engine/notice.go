package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"NoticeEmitter/internal/domain"
	"github.com/wb-go/wbf/zlog"
)

// outcome результат обработки одного уведомления.
type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeNotDelivered
	outcomeRecipientGone
	outcomeFailed
)

// emitNotice доставляет одно уведомление. Ошибка возвращается только для сбоев,
// которые должны прервать весь проход (например, недоступна база пользователей).
func (e *Engine) emitNotice(ctx context.Context, n domain.Notice) (outcome, error) {
	r, err := e.recipients.GetByID(ctx, n.Recipient)
	if err != nil {
		if errors.Is(err, domain.ErrRecipientNotFound) {
			zlog.Logger.Warn().
				Str("label", n.Label).
				Str("recipient", n.Recipient.String()).
				Msgf("not emitting notice %s to user %s since it does not exist", n.Label, n.Recipient)
			return outcomeRecipientGone, nil
		}
		return outcomeFailed, fmt.Errorf("resolve recipient %s: %w", n.Recipient, err)
	}

	zlog.Logger.Info().
		Str("label", n.Label).
		Str("recipient", r.ID.String()).
		Msgf("emitting notice %s to %s", n.Label, r)

	delivered, err := e.deliver(ctx, *r, n)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("label", n.Label).
			Str("recipient", r.ID.String()).
			Bool("delivered", delivered).
			Msg("failed to emit notice")
		if delivered {
			return outcomeDelivered, nil
		}
		return outcomeFailed, nil
	}
	if !delivered {
		return outcomeNotDelivered, nil
	}
	return outcomeDelivered, nil
}

// deliver вызывает Notifier и изолирует panic одного получателя.
func (e *Engine) deliver(ctx context.Context, r domain.Recipient, n domain.Notice) (delivered bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while delivering: %v\n%s", rec, debug.Stack())
		}
	}()
	return e.notifier.SendNow(ctx, r, n.Label, n.ExtraContext, n.Sender)
}
