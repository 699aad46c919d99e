package notifier

import (
	"context"
	"fmt"
	"strings"

	"NoticeEmitter/internal/domain"
	"github.com/sony/gobreaker"
	"github.com/wb-go/wbf/zlog"
)

// EmailBackend доставка уведомлений по email.
type EmailBackend struct {
	settings  domain.SettingsService
	templates *TemplateStore
	sender    domain.EmailSender
	breaker   *gobreaker.CircuitBreaker
	siteName  string
}

// NewEmailBackend создает новый экземпляр EmailBackend.
func NewEmailBackend(settings domain.SettingsService, templates *TemplateStore, sender domain.EmailSender,
	siteName string) *EmailBackend {
	return &EmailBackend{
		settings:  settings,
		templates: templates,
		sender:    sender,
		breaker:   CircuitBreaker("smtp"),
		siteName:  siteName,
	}
}

// Name возвращает имя канала.
func (b *EmailBackend) Name() string {
	return domain.MediumEmail.String()
}

// CanSend проверяет активность получателя, наличие адреса и настройку доставки.
func (b *EmailBackend) CanSend(ctx context.Context, r domain.Recipient, t *domain.NoticeType, scope string) (bool, error) {
	if !r.IsActive || r.Email == "" {
		return false, nil
	}
	return b.settings.ShouldSend(ctx, r.ID, t, domain.MediumEmail, scope)
}

// Deliver рендерит письмо и отправляет его через SMTP.
func (b *EmailBackend) Deliver(ctx context.Context, r domain.Recipient, sender string, t *domain.NoticeType,
	extra map[string]interface{}) error {
	msg, err := b.render(r, sender, t, extra)
	if err != nil {
		return err
	}

	_, err = b.breaker.Execute(func() (interface{}, error) {
		return nil, b.sender.Send(ctx, msg)
	})
	if err != nil {
		zlog.Logger.Debug().Err(err).Str("breaker", b.breaker.State().String()).Msg("email delivery failed")
		return fmt.Errorf("send email to %s: %w", r.Email, err)
	}
	return nil
}

func (b *EmailBackend) render(r domain.Recipient, sender string, t *domain.NoticeType,
	extra map[string]interface{}) (domain.Message, error) {
	data := TemplateContext{
		Recipient:   r,
		Sender:      sender,
		NoticeType:  *t,
		Extra:       extra,
		CurrentSite: b.siteName,
	}

	var err error
	if data.Message.Short, err = b.templates.RenderNotice(t.Label, "short.txt", data); err != nil {
		return domain.Message{}, err
	}
	if data.Message.Full, err = b.templates.RenderNotice(t.Label, "full.txt", data); err != nil {
		return domain.Message{}, err
	}
	data.Message.Short = strings.TrimSpace(data.Message.Short)

	subject, err := b.templates.RenderNotice(t.Label, "email_subject.txt", data)
	if err != nil {
		return domain.Message{}, err
	}
	body, err := b.templates.RenderNotice(t.Label, "email_body.txt", data)
	if err != nil {
		return domain.Message{}, err
	}

	return domain.Message{
		To:      []string{r.Email},
		Subject: strings.Join(strings.Fields(subject), " "),
		Body:    body,
	}, nil
}
