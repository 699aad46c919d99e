// Package notifier немедленная доставка уведомлений по каналам.
package notifier

import (
	"context"
	"fmt"

	"NoticeEmitter/internal/domain"
	"github.com/wb-go/wbf/zlog"
)

// DeliveryObserver учитывает успешные доставки по каналам.
type DeliveryObserver interface {
	ObserveDelivered(backend string)
}

// Notifier доставляет уведомление по всем каналам, разрешенным для получателя.
type Notifier struct {
	noticeTypes domain.NoticeTypeRepository
	backends    []Backend
	observer    DeliveryObserver
}

// New создает новый экземпляр Notifier. observer может быть nil.
func New(noticeTypes domain.NoticeTypeRepository, observer DeliveryObserver, backends ...Backend) *Notifier {
	return &Notifier{
		noticeTypes: noticeTypes,
		backends:    backends,
		observer:    observer,
	}
}

// SendNow доставляет уведомление label получателю r.
// Ошибка канала прерывает доставку, результат показывает, доставил ли ее хотя бы один канал до ошибки.
func (n *Notifier) SendNow(ctx context.Context, r domain.Recipient, label string, extra map[string]interface{},
	sender string) (bool, error) {
	t, err := n.noticeTypes.GetByLabel(ctx, label)
	if err != nil {
		return false, fmt.Errorf("notice type %s: %w", label, err)
	}

	sent := false
	for _, b := range n.backends {
		ok, err := b.CanSend(ctx, r, t, "")
		if err != nil {
			return sent, fmt.Errorf("%s backend: %w", b.Name(), err)
		}
		if !ok {
			zlog.Logger.Debug().Str("backend", b.Name()).Str("recipient", r.ID.String()).Msg("backend skipped")
			continue
		}
		if err := b.Deliver(ctx, r, sender, t, extra); err != nil {
			return sent, fmt.Errorf("%s backend: %w", b.Name(), err)
		}
		sent = true
		if n.observer != nil {
			n.observer.ObserveDelivered(b.Name())
		}
	}
	return sent, nil
}
