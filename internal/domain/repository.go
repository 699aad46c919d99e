package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BatchRepository интерфейс для работы с очередью пачек уведомлений.
type BatchRepository interface {
	// Create сохраняет новую пачку
	Create(ctx context.Context, p CreateBatchParams) (*QueuedBatch, error)
	// ListEligible возвращает пачки, окно доставки которых содержит now,
	// в порядке постановки в очередь
	ListEligible(ctx context.Context, now time.Time) ([]QueuedBatch, error)
	// List возвращает все пачки очереди. Если limit или offset равны 0, они не включаются в запрос
	List(ctx context.Context, limit, offset int) ([]QueuedBatch, error)
	// Delete удаляет пачку
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteExpired удаляет пачки с истекшим send_till и возвращает их количество
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// NoticeTypeRepository интерфейс для работы с типами уведомлений.
type NoticeTypeRepository interface {
	// Upsert создает тип уведомления или обновляет существующий с тем же label
	Upsert(ctx context.Context, t NoticeType) (*NoticeType, error)
	// GetByLabel получает тип уведомления по label
	GetByLabel(ctx context.Context, label string) (*NoticeType, error)
	// Update обновляет поля типа уведомления
	Update(ctx context.Context, label string, opts ...NoticeTypeOption) error
}

// NoticeSettingRepository интерфейс для работы с настройками доставки.
type NoticeSettingRepository interface {
	// Get получает настройку по ключу
	Get(ctx context.Context, key SettingKey) (*NoticeSetting, error)
	// Create создает настройку, если ее еще нет, и возвращает сохраненное значение
	Create(ctx context.Context, s NoticeSetting) (*NoticeSetting, error)
	// SetSend меняет флаг отправки
	SetSend(ctx context.Context, key SettingKey, send bool) error
}

// RecipientRepository интерфейс для чтения пользователей основного приложения.
type RecipientRepository interface {
	// GetByID получает пользователя, ErrRecipientNotFound если его больше нет
	GetByID(ctx context.Context, id uuid.UUID) (*Recipient, error)
	// ListByIDs получает существующих пользователей из списка
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]Recipient, error)
}

// NoticeTypeOption функция для обновления параметров типа уведомления.
type NoticeTypeOption func(*NoticeTypeUpdate)

// NoticeTypeUpdate параметры для обновления типа уведомления.
type NoticeTypeUpdate struct {
	Display     *string
	Description *string
	Default     *int
}

// WithDisplay создает опцию для установки отображаемого имени.
func WithDisplay(display string) NoticeTypeOption {
	return func(u *NoticeTypeUpdate) {
		u.Display = &display
	}
}

// WithDescription создает опцию для установки описания.
func WithDescription(description string) NoticeTypeOption {
	return func(u *NoticeTypeUpdate) {
		u.Description = &description
	}
}

// WithDefault создает опцию для установки уровня по умолчанию.
func WithDefault(def int) NoticeTypeOption {
	return func(u *NoticeTypeUpdate) {
		u.Default = &def
	}
}
