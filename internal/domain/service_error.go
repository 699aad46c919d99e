package domain

import "errors"

var (
	// ErrEmptyLabel ошибка пустого label типа уведомления.
	ErrEmptyLabel = errors.New("notice label is empty")
	// ErrNoRecipients ошибка пустого списка получателей.
	ErrNoRecipients = errors.New("no recipients")
	// ErrInvalidMedium ошибка невалидного канала доставки.
	ErrInvalidMedium = errors.New("invalid medium")
	// ErrEmptyUpdateOptions ошибка пустых параметров обновления.
	ErrEmptyUpdateOptions = errors.New("no update options provided")
)
