package pg

import (
	"context"
	"database/sql"
	"errors"

	"NoticeEmitter/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// RecipientRepo читает пользователей основного приложения.
type RecipientRepo struct {
	DB *dbpg.DB
}

// NewRecipientRepo создает новый экземпляр RecipientRepo.
func NewRecipientRepo(db *dbpg.DB) *RecipientRepo {
	return &RecipientRepo{
		DB: db,
	}
}

// GetByID получает пользователя по ID.
func (r *RecipientRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	sqlQuery := `SELECT id, username, email, is_active FROM users WHERE id = $1 LIMIT 1`

	var result domain.Recipient
	if err := r.DB.QueryRowContext(ctx, sqlQuery, id).Scan(
		&result.ID, &result.Username, &result.Email, &result.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecipientNotFound
		}
		zlog.Logger.Error().Err(err).Msg("Error scan recipient fields")
		return nil, err
	}
	return &result, nil
}

// ListByIDs получает существующих пользователей из списка.
func (r *RecipientRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	sqlQuery := `SELECT id, username, email, is_active FROM users WHERE id = ANY($1)`

	strIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		strIDs = append(strIDs, id.String())
	}

	rows, err := r.DB.QueryContext(ctx, sqlQuery, pq.Array(strIDs))
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Error exec list recipients sql")
		return nil, err
	}

	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var result []domain.Recipient
	for rows.Next() {
		var val domain.Recipient
		if err = rows.Scan(&val.ID, &val.Username, &val.Email, &val.IsActive); err != nil {
			zlog.Logger.Error().Err(err).Msg("Error scan recipient row")
			return nil, err
		}
		result = append(result, val)
	}
	return result, rows.Err()
}
