package pg

import (
	"context"
	"database/sql"
	"errors"

	"NoticeEmitter/internal/domain"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// SettingRepo структура для работы с настройками доставки.
type SettingRepo struct {
	DB *dbpg.DB
}

// NewSettingRepo создает новый экземпляр SettingRepo.
func NewSettingRepo(db *dbpg.DB) *SettingRepo {
	return &SettingRepo{
		DB: db,
	}
}

// Get получает настройку по ключу.
func (r *SettingRepo) Get(ctx context.Context, key domain.SettingKey) (*domain.NoticeSetting, error) {
	sqlQuery := `SELECT id, send FROM notice_settings
	WHERE user_id = $1 AND label = $2 AND medium = $3 AND scope = $4 LIMIT 1`

	result := domain.NoticeSetting{UserID: key.UserID, Label: key.Label, Medium: key.Medium, Scope: key.Scope}
	if err := r.DB.QueryRowContext(ctx, sqlQuery, key.UserID, key.Label, key.Medium, key.Scope).
		Scan(&result.ID, &result.Send); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		zlog.Logger.Error().Err(err).Msg("Error scan notice setting fields")
		return nil, err
	}
	return &result, nil
}

// Create создает настройку. Если она уже есть, возвращается сохраненное значение.
func (r *SettingRepo) Create(ctx context.Context, s domain.NoticeSetting) (*domain.NoticeSetting, error) {
	sqlQuery := `INSERT INTO notice_settings (user_id, label, medium, scope, send) VALUES ($1, $2, $3, $4, $5)
 ON CONFLICT (user_id, label, medium, scope) DO UPDATE SET send = notice_settings.send
 RETURNING id, send`

	result := s
	if err := r.DB.QueryRowContext(ctx, sqlQuery, s.UserID, s.Label, s.Medium, s.Scope, s.Send).
		Scan(&result.ID, &result.Send); err != nil {
		if mapped := mapForeignKeyError(err); mapped != nil {
			return nil, mapped
		}
		zlog.Logger.Error().Err(err).Msg("Error insert notice setting")
		return nil, err
	}
	return &result, nil
}

// SetSend меняет флаг отправки.
func (r *SettingRepo) SetSend(ctx context.Context, key domain.SettingKey, send bool) error {
	sqlQuery := `UPDATE notice_settings SET send = $1
	WHERE user_id = $2 AND label = $3 AND medium = $4 AND scope = $5`

	res, err := r.DB.ExecContext(ctx, sqlQuery, send, key.UserID, key.Label, key.Medium, key.Scope)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Error exec update notice setting")
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrNoRowAffected
	}
	return nil
}
