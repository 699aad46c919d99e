package pg

import (
	"context"
	"database/sql"
	"errors"

	"NoticeEmitter/internal/domain"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// NoticeTypeRepo структура для работы с типами уведомлений.
type NoticeTypeRepo struct {
	DB *dbpg.DB
}

// NewNoticeTypeRepo создает новый экземпляр NoticeTypeRepo.
func NewNoticeTypeRepo(db *dbpg.DB) *NoticeTypeRepo {
	return &NoticeTypeRepo{
		DB: db,
	}
}

// Upsert создает тип уведомления или обновляет существующий.
func (r *NoticeTypeRepo) Upsert(ctx context.Context, t domain.NoticeType) (*domain.NoticeType, error) {
	sqlQuery := `INSERT INTO notice_types (label, display, description, default_level) VALUES ($1, $2, $3, $4)
 ON CONFLICT (label) DO UPDATE SET display = EXCLUDED.display, description = EXCLUDED.description,
 default_level = EXCLUDED.default_level`

	if _, err := r.DB.ExecContext(ctx, sqlQuery, t.Label, t.Display, t.Description, t.Default); err != nil {
		zlog.Logger.Error().Err(err).Msg("Error upsert notice type")
		return nil, err
	}
	zlog.Logger.Debug().Msgf("Upserted notice type %s", t.Label)
	return &t, nil
}

// GetByLabel получает тип уведомления по label.
func (r *NoticeTypeRepo) GetByLabel(ctx context.Context, label string) (*domain.NoticeType, error) {
	sqlQuery := `SELECT label, display, description, default_level FROM notice_types WHERE label = $1 LIMIT 1`

	var result domain.NoticeType
	if err := r.DB.QueryRowContext(ctx, sqlQuery, label).Scan(
		&result.Label, &result.Display, &result.Description, &result.Default); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoticeTypeNotFound
		}
		zlog.Logger.Error().Err(err).Msg("Error scan notice type fields")
		return nil, err
	}
	return &result, nil
}

// Update обновляет поля типа уведомления.
func (r *NoticeTypeRepo) Update(ctx context.Context, label string, opts ...domain.NoticeTypeOption) error {
	if len(opts) == 0 {
		return domain.ErrEmptyUpdateOptions
	}

	params := &domain.NoticeTypeUpdate{}
	for _, opt := range opts {
		opt(params)
	}

	query, args, err := buildNoticeTypeUpdateSQL(label, params)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Error build update sql notice type")
		return err
	}

	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Error exec update sql notice type")
		return err
	}
	rowAffected, _ := result.RowsAffected()
	if rowAffected == 0 {
		zlog.Logger.Warn().Msgf("Update notice type %s No rows affected", label)
		return domain.ErrNoRowAffected
	}
	return nil
}
