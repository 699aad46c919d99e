package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueuedBatch пачка уведомлений, поставленная в очередь одним вызовом Queue.
type QueuedBatch struct {
	ID        uuid.UUID
	Payload   []byte
	CreatedAt time.Time
	SendAfter *time.Time
	SendTill  *time.Time
}

// IsExpired проверяет, истек ли срок доставки пачки.
func (b *QueuedBatch) IsExpired(now time.Time) bool {
	return b.SendTill != nil && b.SendTill.Before(now)
}

// IsEligible проверяет, попадает ли now в окно доставки [SendAfter, SendTill).
func (b *QueuedBatch) IsEligible(now time.Time) bool {
	if b.SendTill != nil && !b.SendTill.After(now) {
		return false
	}
	if b.SendAfter != nil && b.SendAfter.After(now) {
		return false
	}
	return true
}

// Notice единица доставки внутри пачки.
type Notice struct {
	Recipient    uuid.UUID
	Label        string
	ExtraContext map[string]interface{}
	Sender       string
}

// CreateBatchParams параметры для сохранения новой пачки.
type CreateBatchParams struct {
	Payload   []byte
	SendAfter *time.Time
	SendTill  *time.Time
}

// BatchView пачка с раскодированным содержимым, используется для просмотра очереди.
type BatchView struct {
	ID        uuid.UUID
	CreatedAt time.Time
	SendAfter *time.Time
	SendTill  *time.Time
	Notices   []Notice
	DecodeErr string
}
