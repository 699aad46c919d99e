package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notifier немедленная доставка одного уведомления получателю.
type Notifier interface {
	// SendNow доставляет уведомление по всем разрешенным каналам.
	// Возвращает true, если хотя бы один канал доставил уведомление.
	SendNow(ctx context.Context, r Recipient, label string, extra map[string]interface{}, sender string) (bool, error)
}

// QueueService интерфейс для постановки уведомлений в очередь и управления типами.
type QueueService interface {
	// Queue ставит уведомления в очередь одной пачкой
	Queue(ctx context.Context, params QueueParams) (*QueuedBatch, error)
	// Send доставляет уведомления сразу или ставит их в очередь
	Send(ctx context.Context, params QueueParams, now bool) (*SendResult, error)
	// CreateNoticeType создает или обновляет тип уведомления
	CreateNoticeType(ctx context.Context, t NoticeType) (*NoticeType, error)
	// GetNoticeType получает тип уведомления
	GetNoticeType(ctx context.Context, label string) (*NoticeType, error)
	// UpdateNoticeType обновляет поля типа уведомления
	UpdateNoticeType(ctx context.Context, label string, opts ...NoticeTypeOption) (*NoticeType, error)
	// ListBatches возвращает раскодированное содержимое очереди
	ListBatches(ctx context.Context, limit, offset int) ([]BatchView, error)
}

// SettingsService интерфейс для работы с настройками доставки.
type SettingsService interface {
	// Setting получает настройку, создавая ее со значением по умолчанию при первом обращении
	Setting(ctx context.Context, userID uuid.UUID, t *NoticeType, medium Medium, scope string) (*NoticeSetting, error)
	// ShouldSend проверяет, нужно ли отправлять уведомление пользователю в канал
	ShouldSend(ctx context.Context, userID uuid.UUID, t *NoticeType, medium Medium, scope string) (bool, error)
	// UpdateSetting меняет флаг отправки
	UpdateSetting(ctx context.Context, key SettingKey, send bool) (*NoticeSetting, error)
}

// QueueParams параметры постановки в очередь.
type QueueParams struct {
	Recipients   []uuid.UUID
	Label        string
	ExtraContext map[string]interface{}
	Sender       string
	SendAfter    *time.Time
	SendTill     *time.Time
}

// SendResult результат вызова Send.
type SendResult struct {
	Queued    *QueuedBatch
	Delivered int
	Skipped   int
}
