package email_sender

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"NoticeEmitter/internal/domain"
	"github.com/wb-go/wbf/zlog"
)

// SMTPSender структура для отправки email через SMTP.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	SSL      bool

	Timeout time.Duration

	mu     sync.Mutex
	client *smtp.Client
}

// NewSMTPSender создает новый экземпляр SMTPSender. Соединение устанавливается при первой отправке.
func NewSMTPSender(host string, port int, username, password, from string, ssl bool) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		SSL:      ssl,
		Timeout:  10 * time.Second,
	}
}

// dial открывает TCP соединение, сразу в TLS при SSL.
func (s *SMTPSender) dial() (net.Conn, error) {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	dialer := &net.Dialer{Timeout: s.Timeout}
	if s.SSL {
		return tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.Host})
	}
	return dialer.Dial("tcp", addr)
}

// connect устанавливает соединение и проходит STARTTLS и аутентификацию.
func (s *SMTPSender) connect() error {
	conn, err := s.dial()
	if err != nil {
		return fmt.Errorf("dial smtp %s:%d: %w", s.Host, s.Port, err)
	}
	// ограничиваем ожидание приветствия сервера
	_ = conn.SetDeadline(time.Now().Add(s.Timeout))
	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp greeting: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	if err := s.handshake(client); err != nil {
		_ = client.Close()
		return err
	}
	s.client = client
	return nil
}

func (s *SMTPSender) handshake(client *smtp.Client) error {
	if ok, _ := client.Extension("STARTTLS"); ok && !s.SSL {
		if err := client.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	// MailHog и подобные серверы работают без учетных данных
	if s.Username == "" && s.Password == "" {
		return nil
	}
	if ok, _ := client.Extension("AUTH"); !ok {
		zlog.Logger.Debug().Str("host", s.Host).Msg("SMTP server does not advertise AUTH")
		return nil
	}
	if err := client.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	return nil
}

// ensureConnected проверяет и восстанавливает соединение с SMTP сервером.
func (s *SMTPSender) ensureConnected() error {
	if s.client != nil {
		if err := s.client.Noop(); err == nil {
			return nil
		}
		_ = s.client.Close()
		s.client = nil
	}
	return s.connect()
}

// Send отправляет письмо.
func (s *SMTPSender) Send(ctx context.Context, m domain.Message) error {
	if len(m.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}

	done := make(chan error, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.ensureConnected(); err != nil {
			done <- err
			return
		}
		err := s.sendMessage(m.To, BuildMessage(s.From, m))
		if err != nil {
			_ = s.client.Reset()
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		zlog.Logger.Debug().Err(err).Strs("to", m.To).Msg("send email")
		return err
	}
}

// BuildMessage формирует текст письма с заголовками.
func BuildMessage(from string, m domain.Message) []byte {
	subject := strings.NewReplacer("\r", " ", "\n", " ").Replace(m.Subject)
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		from,
		strings.Join(m.To, ", "),
		subject,
		strings.ReplaceAll(m.Body, "\n", "\r\n"),
	))
}

// sendMessage отправляет сообщение через установленное SMTP соединение.
func (s *SMTPSender) sendMessage(to []string, msg []byte) error {
	if err := s.client.Mail(s.From); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := s.client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := s.client.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		return err
	}

	return w.Close()
}

// Close закрывает SMTP соединение.
func (s *SMTPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		_ = s.client.Quit()
		s.client = nil
	}

	return nil
}
