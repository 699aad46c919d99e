package pg

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"NoticeEmitter/internal/domain"
	"github.com/lib/pq"
)

const foreignKeyViolation = "23503"

// buildNoticeTypeUpdateSQL строит SQL запрос для обновления типа уведомления.
func buildNoticeTypeUpdateSQL(label string, params *domain.NoticeTypeUpdate) (string, []interface{}, error) {
	var (
		sets   []string
		args   []interface{}
		argIdx = 1
	)

	if params.Display != nil {
		sets = append(sets, fmt.Sprintf("display = $%d", argIdx))
		args = append(args, *params.Display)
		argIdx++
	}
	if params.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *params.Description)
		argIdx++
	}
	if params.Default != nil {
		sets = append(sets, fmt.Sprintf("default_level = $%d", argIdx))
		args = append(args, *params.Default)
		argIdx++
	}
	if len(sets) == 0 {
		return "", nil, fmt.Errorf("no fields to update")
	}
	query := fmt.Sprintf("UPDATE notice_types SET %s WHERE label = $%d",
		strings.Join(sets, ", "), argIdx) //nolint:nolint
	args = append(args, label)

	return query, args, nil
}

// mapForeignKeyError переводит нарушение внешнего ключа notice_settings в доменную ошибку.
func mapForeignKeyError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != foreignKeyViolation {
		return nil
	}
	switch pqErr.Constraint {
	case "notice_settings_user_id_fkey":
		return domain.ErrRecipientNotFound
	case "notice_settings_label_fkey":
		return domain.ErrNoticeTypeNotFound
	default:
		return err
	}
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
