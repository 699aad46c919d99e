package domain

import "context"

// Message письмо для отправки.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// EmailSender интерфейс для отправки email.
type EmailSender interface {
	// Send отправляет письмо.
	Send(ctx context.Context, m Message) error
}

// AdminMailer интерфейс для отправки отчетов администраторам.
type AdminMailer interface {
	// MailAdmins отправляет письмо всем администраторам.
	MailAdmins(ctx context.Context, subject, body string) error
}
