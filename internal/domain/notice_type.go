package domain

import "github.com/google/uuid"

// Medium канал доставки уведомлений.
type Medium string

// String возвращает строковое представление канала.
func (m Medium) String() string {
	return string(m)
}

// IsValid проверяет, является ли канал валидным.
func (m Medium) IsValid() bool {
	switch m {
	case MediumEmail:
		return true
	default:
		return false
	}
}

const (
	MediumEmail Medium = "email"
)

// MediaDefaults минимальный NoticeType.Default, при котором канал включен по умолчанию.
var MediaDefaults = map[Medium]int{
	MediumEmail: 2,
}

// NoticeType категория уведомлений.
type NoticeType struct {
	Label       string
	Display     string
	Description string
	Default     int
}

// DefaultSend вычисляет значение настройки по умолчанию для канала.
func (t *NoticeType) DefaultSend(medium Medium) bool {
	threshold, ok := MediaDefaults[medium]
	if !ok {
		return false
	}
	return threshold <= t.Default
}

// NoticeSetting настройка доставки для пары пользователь/тип уведомления в канале.
type NoticeSetting struct {
	ID     int64
	UserID uuid.UUID
	Label  string
	Medium Medium
	Scope  string
	Send   bool
}

// SettingKey ключ настройки.
type SettingKey struct {
	UserID uuid.UUID
	Label  string
	Medium Medium
	Scope  string
}

// Recipient пользователь, которому доставляются уведомления.
type Recipient struct {
	ID       uuid.UUID
	Username string
	Email    string
	IsActive bool
}

// String используется в логах.
func (r Recipient) String() string {
	if r.Username != "" {
		return r.Username
	}
	return r.ID.String()
}
