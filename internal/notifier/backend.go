package notifier

import (
	"context"

	"NoticeEmitter/internal/domain"
)

// Backend канал доставки уведомлений.
type Backend interface {
	// Name имя канала в логах и метриках
	Name() string
	// CanSend проверяет, можно ли доставить уведомление получателю
	CanSend(ctx context.Context, r domain.Recipient, t *domain.NoticeType, scope string) (bool, error)
	// Deliver доставляет уведомление
	Deliver(ctx context.Context, r domain.Recipient, sender string, t *domain.NoticeType, extra map[string]interface{}) error
}

// TemplateContext данные, доступные шаблонам уведомлений.
type TemplateContext struct {
	Recipient   domain.Recipient
	Sender      string
	NoticeType  domain.NoticeType
	Extra       map[string]interface{}
	CurrentSite string
	Message     RenderedMessage
}

// RenderedMessage короткий и полный тексты уведомления.
type RenderedMessage struct {
	Short string
	Full  string
}
