package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"
)

// PassError ошибка, прервавшая проход, вместе со стеком в момент перехвата.
type PassError struct {
	Err   error
	Stack []byte
}

func newPassError(err error) *PassError {
	return &PassError{Err: err, Stack: debug.Stack()}
}

func (e *PassError) Error() string {
	return e.Err.Error()
}

func (e *PassError) Unwrap() error {
	return e.Err
}

// Trace форматирует цепочку ошибок и стек для письма администраторам.
func (e *PassError) Trace() string {
	var b strings.Builder
	b.WriteString("Traceback (most recent call last):\n")
	b.Write(e.Stack)
	b.WriteString("\n")
	for err := error(e.Err); err != nil; err = errors.Unwrap(err) {
		fmt.Fprintf(&b, "%T: %s\n", err, err.Error())
	}
	return b.String()
}

// ReportSubject тема письма администраторам.
func ReportSubject(siteName string, err error) string {
	return fmt.Sprintf("[%s emit_notices] %s", siteName, err)
}

func (e *Engine) handleFailure(ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) {
		zlog.Logger.Warn().Err(err).Msg("delivery pass interrupted")
		return
	}

	body := err.Error()
	var pe *PassError
	if errors.As(err, &pe) {
		body = pe.Trace()
	}

	e.mailAdmins(ctx, ReportSubject(e.cfg.SiteName, err), body)

	zlog.Logger.WithLevel(zerolog.FatalLevel).Err(err).Msgf("an exception occurred: %v", err)
}

// mailAdmins отправляет отчет без права на ошибку: сбой отправки только логируется.
func (e *Engine) mailAdmins(ctx context.Context, subject, body string) {
	if e.mailer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().Msgf("panic while mailing admins: %v", r)
		}
	}()
	if err := e.mailer.MailAdmins(context.WithoutCancel(ctx), subject, body); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to mail admins")
	}
}
