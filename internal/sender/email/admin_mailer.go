package email_sender

import (
	"context"
	"strings"

	"NoticeEmitter/internal/domain"
	"github.com/wb-go/wbf/zlog"
)

// AdminMailer отправляет отчеты администраторам сайта.
type AdminMailer struct {
	sender domain.EmailSender
	admins []string
}

// NewAdminMailer создает новый экземпляр AdminMailer. Пустые адреса отбрасываются.
func NewAdminMailer(sender domain.EmailSender, admins []string) *AdminMailer {
	clean := make([]string, 0, len(admins))
	for _, a := range admins {
		if a = strings.TrimSpace(a); a != "" {
			clean = append(clean, a)
		}
	}
	return &AdminMailer{sender: sender, admins: clean}
}

// MailAdmins отправляет письмо всем администраторам. Без администраторов ничего не делает.
func (m *AdminMailer) MailAdmins(ctx context.Context, subject, body string) error {
	if len(m.admins) == 0 {
		zlog.Logger.Debug().Str("subject", subject).Msg("no admins configured, report not mailed")
		return nil
	}
	return m.sender.Send(ctx, domain.Message{
		To:      m.admins,
		Subject: subject,
		Body:    body,
	})
}
