package domain

import "errors"

var (
	// ErrNoRowAffected ошибка, когда ни одна строка не была изменена.
	ErrNoRowAffected = errors.New("no row affected")
	// ErrNotFound ошибка, когда запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrRecipientNotFound ошибка, когда получатель больше не существует.
	ErrRecipientNotFound = errors.New("recipient does not exist")
	// ErrNoticeTypeNotFound ошибка, когда тип уведомления не найден.
	ErrNoticeTypeNotFound = errors.New("notice type not found")
)
