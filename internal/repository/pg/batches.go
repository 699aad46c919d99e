package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"NoticeEmitter/internal/domain"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

const batchColumns = `id, payload, created_at, send_after, send_till`

// BatchRepo структура для работы с очередью пачек в PostgreSQL.
type BatchRepo struct {
	DB *dbpg.DB
}

// NewBatchRepo создает новый экземпляр BatchRepo.
func NewBatchRepo(db *dbpg.DB) *BatchRepo {
	return &BatchRepo{
		DB: db,
	}
}

// Create сохраняет новую пачку в очереди.
func (r *BatchRepo) Create(ctx context.Context, p domain.CreateBatchParams) (*domain.QueuedBatch, error) {
	sqlQuery := `INSERT INTO notice_queue_batches (id, payload, send_after, send_till) VALUES ($1, $2, $3, $4)
 RETURNING created_at`

	result := domain.QueuedBatch{
		ID:        uuid.New(),
		Payload:   p.Payload,
		SendAfter: p.SendAfter,
		SendTill:  p.SendTill,
	}
	if err := r.DB.QueryRowContext(ctx, sqlQuery, result.ID, p.Payload, p.SendAfter, p.SendTill).
		Scan(&result.CreatedAt); err != nil {
		zlog.Logger.Error().Err(err).Msg("Error inserting queued batch")
		return nil, err
	}

	zlog.Logger.Debug().Msgf("Queued batch id: %s size: %d bytes send_after: %v send_till: %v",
		result.ID, len(p.Payload), p.SendAfter, p.SendTill)
	return &result, nil
}

// ListEligible получает пачки, окно доставки которых содержит now.
func (r *BatchRepo) ListEligible(ctx context.Context, now time.Time) ([]domain.QueuedBatch, error) {
	start := time.Now()

	sqlQuery := `SELECT ` + batchColumns + `
	FROM notice_queue_batches
	WHERE (send_till IS NULL OR send_till > $1)
	  AND (send_after IS NULL OR send_after <= $1)
	ORDER BY created_at, id`

	batches, err := r.query(ctx, sqlQuery, now)
	if err != nil {
		return nil, err
	}
	zlog.Logger.Debug().Msgf("Eligible batches: %d TIME: %s", len(batches), time.Since(start))
	return batches, nil
}

// List получает все пачки очереди.
func (r *BatchRepo) List(ctx context.Context, limit, offset int) ([]domain.QueuedBatch, error) {
	sqlQuery := `SELECT ` + batchColumns + ` FROM notice_queue_batches ORDER BY created_at, id`
	if limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", offset)
	}
	return r.query(ctx, sqlQuery)
}

// Delete удаляет пачку.
func (r *BatchRepo) Delete(ctx context.Context, id uuid.UUID) error {
	sqlQuery := `DELETE FROM notice_queue_batches WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, sqlQuery, id)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Error exec delete batch")
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		zlog.Logger.Warn().Msgf("Delete batch id: %v No rows affected", id)
		return domain.ErrNoRowAffected
	}
	return nil
}

// DeleteExpired удаляет пачки с send_till раньше now.
func (r *BatchRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	sqlQuery := `DELETE FROM notice_queue_batches WHERE send_till IS NOT NULL AND send_till < $1`

	res, err := r.DB.ExecContext(ctx, sqlQuery, now)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Error exec delete expired batches")
		return 0, err
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}

func (r *BatchRepo) query(ctx context.Context, sqlQuery string, args ...interface{}) ([]domain.QueuedBatch, error) {
	rows, err := r.DB.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Error exec list batches sql")
		return nil, err
	}

	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var batches []domain.QueuedBatch
	for rows.Next() {
		var (
			b           domain.QueuedBatch
			after, till sql.NullTime
		)
		if err = rows.Scan(&b.ID, &b.Payload, &b.CreatedAt, &after, &till); err != nil {
			zlog.Logger.Error().Err(err).Msg("Error scan batch row")
			return nil, err
		}
		b.SendAfter = nullTime(after)
		b.SendTill = nullTime(till)
		batches = append(batches, b)
	}
	if err = rows.Err(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Error iterating batch rows")
		return nil, err
	}
	return batches, nil
}
