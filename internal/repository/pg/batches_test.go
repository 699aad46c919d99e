package pg_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"NoticeEmitter/internal/domain"
	"NoticeEmitter/internal/repository/pg"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"
)

var batchRowColumns = []string{"id", "payload", "created_at", "send_after", "send_till"}

func newMockDB(t *testing.T) (*dbpg.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &dbpg.DB{Master: db}, mock
}

func TestBatchRepo_Create_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pg.NewBatchRepo(db)

	now := time.Now()
	till := now.Add(time.Hour)
	payload := []byte(`{"version":1,"notices":[]}`)

	mock.ExpectQuery(`INSERT INTO notice_queue_batches`).
		WithArgs(sqlmock.AnyArg(), payload, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	result, err := repo.Create(context.Background(), domain.CreateBatchParams{Payload: payload, SendTill: &till})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, result.ID)
	assert.Equal(t, payload, result.Payload)
	assert.Equal(t, now, result.CreatedAt)
	assert.Nil(t, result.SendAfter)
	assert.Equal(t, &till, result.SendTill)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepo_Create_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pg.NewBatchRepo(db)

	mock.ExpectQuery(`INSERT INTO notice_queue_batches`).WillReturnError(errors.New("db down"))

	result, err := repo.Create(context.Background(), domain.CreateBatchParams{Payload: []byte("x")})

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestBatchRepo_ListEligible_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pg.NewBatchRepo(db)

	now := time.Now()
	after := now.Add(-time.Minute)
	id1, id2 := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT id, payload, created_at, send_after, send_till\s+FROM notice_queue_batches\s+WHERE \(send_till IS NULL OR send_till > \$1\)\s+AND \(send_after IS NULL OR send_after <= \$1\)\s+ORDER BY created_at, id`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows(batchRowColumns).
			AddRow(id1.String(), []byte("a"), now.Add(-2*time.Hour), nil, nil).
			AddRow(id2.String(), []byte("b"), now.Add(-time.Hour), after, nil))

	result, err := repo.ListEligible(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, id1, result[0].ID)
	assert.Nil(t, result[0].SendAfter)
	assert.Equal(t, id2, result[1].ID)
	require.NotNil(t, result[1].SendAfter)
	assert.True(t, after.Equal(*result[1].SendAfter))
	assert.Nil(t, result[1].SendTill)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepo_ListEligible_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pg.NewBatchRepo(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, payload, created_at, send_after, send_till`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows(batchRowColumns))

	result, err := repo.ListEligible(context.Background(), now)

	assert.NoError(t, err)
	assert.Empty(t, result)
}

func TestBatchRepo_ListEligible_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pg.NewBatchRepo(db)

	mock.ExpectQuery(`SELECT id, payload, created_at, send_after, send_till`).
		WillReturnError(sql.ErrConnDone)

	result, err := repo.ListEligible(context.Background(), time.Now())

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Nil(t, result)
}

func TestBatchRepo_List_WithLimit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pg.NewBatchRepo(db)

	mock.ExpectQuery(`SELECT id, payload, created_at, send_after, send_till FROM notice_queue_batches ORDER BY created_at, id LIMIT 10 OFFSET 20`).
		WillReturnRows(sqlmock.NewRows(batchRowColumns).AddRow(uuid.New().String(), []byte("a"), time.Now(), nil, nil))

	result, err := repo.List(context.Background(), 10, 20)

	require.NoError(t, err)
	assert.Len(t, result, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepo_Delete_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pg.NewBatchRepo(db)

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM notice_queue_batches WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepo_Delete_NoRowsAffected(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pg.NewBatchRepo(db)

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM notice_queue_batches WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), id)

	assert.Equal(t, domain.ErrNoRowAffected, err)
}

func TestBatchRepo_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pg.NewBatchRepo(db)

	now := time.Now()
	mock.ExpectExec(`DELETE FROM notice_queue_batches WHERE send_till IS NOT NULL AND send_till < \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), now)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
