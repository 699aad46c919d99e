package handlers

import (
	"time"

	"NoticeEmitter/internal/domain"
	"github.com/google/uuid"
)

// SendRequest запрос на отправку или постановку уведомлений в очередь.
type SendRequest struct {
	Recipients   []string               `json:"recipients" validate:"required,min=1,dive,uuid"`
	Label        string                 `json:"label" validate:"required,max=40"`
	ExtraContext map[string]interface{} `json:"extra_context"`
	Sender       string                 `json:"sender"`
	SendAfter    string                 `json:"send_after" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	SendTill     string                 `json:"send_till" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Now          bool                   `json:"now"`
}

// NoticeTypeRequest запрос на создание типа уведомления.
type NoticeTypeRequest struct {
	Label       string `json:"label" validate:"required,max=40"`
	Display     string `json:"display" validate:"required,max=50"`
	Description string `json:"description" validate:"max=100"`
	Default     int    `json:"default" validate:"min=0"`
}

// NoticeTypeUpdateRequest запрос на обновление типа уведомления.
type NoticeTypeUpdateRequest struct {
	Display     *string `json:"display" validate:"omitempty,max=50"`
	Description *string `json:"description" validate:"omitempty,max=100"`
	Default     *int    `json:"default" validate:"omitempty,min=0"`
}

// SettingRequest запрос на изменение настройки доставки.
type SettingRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Label  string `json:"label" validate:"required"`
	Medium string `json:"medium" validate:"required"`
	Scope  string `json:"scope"`
	Send   *bool  `json:"send" validate:"required"`
}

// BatchResponse пачка в очереди.
type BatchResponse struct {
	ID        uuid.UUID        `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	SendAfter *time.Time       `json:"send_after,omitempty"`
	SendTill  *time.Time       `json:"send_till,omitempty"`
	Notices   []NoticeResponse `json:"notices"`
	Error     string           `json:"error,omitempty"`
}

// NoticeResponse уведомление внутри пачки.
type NoticeResponse struct {
	Recipient    uuid.UUID              `json:"recipient"`
	Label        string                 `json:"label"`
	ExtraContext map[string]interface{} `json:"extra_context,omitempty"`
	Sender       string                 `json:"sender,omitempty"`
}

// SendResponse результат отправки.
type SendResponse struct {
	BatchID   *uuid.UUID `json:"batch_id,omitempty"`
	Queued    bool       `json:"queued"`
	Delivered int        `json:"delivered"`
	Skipped   int        `json:"skipped"`
}

// NoticeTypeResponse тип уведомления.
type NoticeTypeResponse struct {
	Label       string `json:"label"`
	Display     string `json:"display"`
	Description string `json:"description"`
	Default     int    `json:"default"`
}

// SettingResponse настройка доставки.
type SettingResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Label  string    `json:"label"`
	Medium string    `json:"medium"`
	Scope  string    `json:"scope"`
	Send   bool      `json:"send"`
}

// LastRunResponse итоги последнего прохода.
type LastRunResponse struct {
	Batches    int       `json:"batches"`
	Sent       int       `json:"sent"`
	SentActual int       `json:"sent_actual"`
	RunTime    string    `json:"run_time"`
	FinishedAt time.Time `json:"finished_at"`
}

func toBatchResponse(v domain.BatchView) BatchResponse {
	res := BatchResponse{
		ID:        v.ID,
		CreatedAt: v.CreatedAt,
		SendAfter: v.SendAfter,
		SendTill:  v.SendTill,
		Notices:   make([]NoticeResponse, 0, len(v.Notices)),
		Error:     v.DecodeErr,
	}
	for _, n := range v.Notices {
		res.Notices = append(res.Notices, NoticeResponse{
			Recipient:    n.Recipient,
			Label:        n.Label,
			ExtraContext: n.ExtraContext,
			Sender:       n.Sender,
		})
	}
	return res
}

func toNoticeTypeResponse(t *domain.NoticeType) NoticeTypeResponse {
	return NoticeTypeResponse{
		Label:       t.Label,
		Display:     t.Display,
		Description: t.Description,
		Default:     t.Default,
	}
}
