package engine_test

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"NoticeEmitter/internal/domain"
	"NoticeEmitter/internal/engine"
	"NoticeEmitter/internal/lockfile"
	"NoticeEmitter/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

// captureLog перенаправляет глобальный логгер в буфер до конца теста
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := zlog.Logger
	zlog.Logger = zerolog.New(&buf)
	t.Cleanup(func() { zlog.Logger = prev })
	return &buf
}

// memBatches хранилище пачек в памяти
type memBatches struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]domain.QueuedBatch
	seq     int
	listErr error
	deleted []uuid.UUID
}

func newMemBatches() *memBatches {
	return &memBatches{rows: make(map[uuid.UUID]domain.QueuedBatch)}
}

func (m *memBatches) Create(_ context.Context, p domain.CreateBatchParams) (*domain.QueuedBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	b := domain.QueuedBatch{
		ID:        uuid.New(),
		Payload:   p.Payload,
		CreatedAt: time.Unix(int64(m.seq), 0),
		SendAfter: p.SendAfter,
		SendTill:  p.SendTill,
	}
	m.rows[b.ID] = b
	return &b, nil
}

func (m *memBatches) sorted() []domain.QueuedBatch {
	out := make([]domain.QueuedBatch, 0, len(m.rows))
	for _, b := range m.rows {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *memBatches) ListEligible(_ context.Context, now time.Time) ([]domain.QueuedBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.QueuedBatch
	for _, b := range m.sorted() {
		if b.IsEligible(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBatches) List(_ context.Context, _, _ int) ([]domain.QueuedBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(), nil
}

func (m *memBatches) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNoRowAffected
	}
	delete(m.rows, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memBatches) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, b := range m.rows {
		if b.IsExpired(now) {
			delete(m.rows, id)
			m.deleted = append(m.deleted, id)
			n++
		}
	}
	return n, nil
}

func (m *memBatches) has(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok
}

// memRecipients пользователи в памяти
type memRecipients struct {
	users map[uuid.UUID]domain.Recipient
	err   error
}

func (m *memRecipients) GetByID(_ context.Context, id uuid.UUID) (*domain.Recipient, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.users[id]
	if !ok {
		return nil, domain.ErrRecipientNotFound
	}
	return &r, nil
}

func (m *memRecipients) ListByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Recipient, error) {
	var out []domain.Recipient
	for _, id := range ids {
		if r, ok := m.users[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// recordingNotifier записывает попытки доставки
type recordingNotifier struct {
	mu       sync.Mutex
	attempts []uuid.UUID
	failFor  map[uuid.UUID]error
	panicFor map[uuid.UUID]bool
	skipFor  map[uuid.UUID]bool
	// partialFor один канал доставил, следующий вернул ошибку
	partialFor map[uuid.UUID]error
}

func (n *recordingNotifier) SendNow(_ context.Context, r domain.Recipient, _ string, _ map[string]interface{}, _ string) (bool, error) {
	n.mu.Lock()
	n.attempts = append(n.attempts, r.ID)
	n.mu.Unlock()

	if n.panicFor[r.ID] {
		panic("template blew up")
	}
	if err, ok := n.failFor[r.ID]; ok {
		return false, err
	}
	if err, ok := n.partialFor[r.ID]; ok {
		return true, err
	}
	if n.skipFor[r.ID] {
		return false, nil
	}
	return true, nil
}

// MockMailer мок для AdminMailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) MailAdmins(ctx context.Context, subject, body string) error {
	args := m.Called(ctx, subject, body)
	return args.Error(0)
}

// recordingListener записывает итоги проходов
type recordingListener struct {
	events []domain.EmittedNotices
	err    error
}

func (l *recordingListener) OnNoticesEmitted(_ context.Context, ev domain.EmittedNotices) error {
	l.events = append(l.events, ev)
	return l.err
}

type fixture struct {
	batches    *memBatches
	recipients *memRecipients
	notifier   *recordingNotifier
	mailer     *MockMailer
	listener   *recordingListener
	lockDir    string
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		batches:    newMemBatches(),
		recipients: &memRecipients{users: make(map[uuid.UUID]domain.Recipient)},
		notifier: &recordingNotifier{
			failFor:    make(map[uuid.UUID]error),
			panicFor:   make(map[uuid.UUID]bool),
			skipFor:    make(map[uuid.UUID]bool),
			partialFor: make(map[uuid.UUID]error),
		},
		mailer:   new(MockMailer),
		listener: &recordingListener{},
		lockDir:  t.TempDir(),
		now:      time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) engine() *engine.Engine {
	return engine.New(engine.Config{
		LockDir:         f.lockDir,
		LockName:        "send_notices",
		LockWaitTimeout: -1,
		SiteName:        "example.com",
	}, f.batches, f.recipients, f.notifier, f.mailer,
		engine.WithListeners(f.listener),
		engine.WithClock(func() time.Time { return f.now }))
}

func (f *fixture) user(name string) uuid.UUID {
	id := uuid.New()
	f.recipients.users[id] = domain.Recipient{ID: id, Username: name, Email: name + "@example.com", IsActive: true}
	return id
}

func (f *fixture) queue(t *testing.T, recipients []uuid.UUID, after, till *time.Time) uuid.UUID {
	t.Helper()
	notices := make([]domain.Notice, 0, len(recipients))
	for _, r := range recipients {
		notices = append(notices, domain.Notice{Recipient: r, Label: "label"})
	}
	payload, err := domain.EncodePayload(notices)
	require.NoError(t, err)
	b, err := f.batches.Create(context.Background(), domain.CreateBatchParams{Payload: payload, SendAfter: after, SendTill: till})
	require.NoError(t, err)
	return b.ID
}

func ptr(t time.Time) *time.Time { return &t }

// TestSendAll_TwoRecipients доставка двум пользователям без окна
func TestSendAll_TwoRecipients(t *testing.T) {
	f := newFixture(t)
	u1, u2 := f.user("test_user"), f.user("test_user2")
	id := f.queue(t, []uuid.UUID{u1, u2}, nil, nil)

	res := f.engine().SendAll(context.Background())

	assert.Equal(t, engine.StateDone, res.State)
	assert.NoError(t, res.Err)
	assert.Equal(t, []uuid.UUID{u1, u2}, f.notifier.attempts)
	assert.Equal(t, 1, res.Stats.Batches)
	assert.Equal(t, 2, res.Stats.Sent)
	assert.Equal(t, 2, res.Stats.SentActual)
	assert.False(t, f.batches.has(id))

	require.Len(t, f.listener.events, 1)
	assert.Equal(t, res.Stats.Batches, f.listener.events[0].Batches)
	assert.Equal(t, 2, f.listener.events[0].SentActual)
	f.mailer.AssertNotCalled(t, "MailAdmins", mock.Anything, mock.Anything, mock.Anything)
}

// TestSendAll_ExpiredBatch просроченная пачка удаляется без доставки
func TestSendAll_ExpiredBatch(t *testing.T) {
	f := newFixture(t)
	u1, u2 := f.user("test_user"), f.user("test_user2")
	id := f.queue(t, []uuid.UUID{u1, u2}, nil, ptr(f.now.Add(-time.Hour)))

	res := f.engine().SendAll(context.Background())

	assert.Empty(t, f.notifier.attempts)
	assert.Equal(t, int64(1), res.Expired)
	assert.Equal(t, 0, res.Stats.Batches)
	assert.False(t, f.batches.has(id))
}

// TestSendAll_ExpiredRegardlessOfSendAfter просрочка важнее send_after
func TestSendAll_ExpiredRegardlessOfSendAfter(t *testing.T) {
	f := newFixture(t)
	u1 := f.user("test_user")
	id := f.queue(t, []uuid.UUID{u1}, ptr(f.now.Add(time.Hour)), ptr(f.now.Add(-time.Minute)))

	res := f.engine().SendAll(context.Background())

	assert.Empty(t, f.notifier.attempts)
	assert.Equal(t, int64(1), res.Expired)
	assert.False(t, f.batches.has(id))
}

// TestSendAll_QueuedInvertedWindowExpires пачка с send_after > send_till из Queue удаляется без доставки
func TestSendAll_QueuedInvertedWindowExpires(t *testing.T) {
	f := newFixture(t)
	u1 := f.user("test_user")
	svc := service.NewNoticeService(f.batches, nil, f.recipients, f.notifier, false)

	b, err := svc.Queue(context.Background(), domain.QueueParams{
		Recipients: []uuid.UUID{u1},
		Label:      "label",
		SendAfter:  ptr(f.now.Add(time.Hour)),
		SendTill:   ptr(f.now.Add(-time.Minute)),
	})
	require.NoError(t, err)
	require.True(t, f.batches.has(b.ID))

	res := f.engine().SendAll(context.Background())

	assert.Empty(t, f.notifier.attempts)
	assert.Equal(t, 0, res.Stats.Batches)
	assert.Equal(t, int64(1), res.Expired)
	assert.False(t, f.batches.has(b.ID))
}

// TestSendAll_NotExpired пачка с send_till в будущем доставляется
func TestSendAll_NotExpired(t *testing.T) {
	f := newFixture(t)
	u1, u2 := f.user("test_user"), f.user("test_user2")
	id := f.queue(t, []uuid.UUID{u1, u2}, nil, ptr(f.now.Add(time.Hour)))

	res := f.engine().SendAll(context.Background())

	assert.Equal(t, []uuid.UUID{u1, u2}, f.notifier.attempts)
	assert.Equal(t, int64(0), res.Expired)
	assert.False(t, f.batches.has(id))
}

// TestSendAll_SendAfterInFuture пачка до начала окна не трогается
func TestSendAll_SendAfterInFuture(t *testing.T) {
	f := newFixture(t)
	u1 := f.user("test_user")
	id := f.queue(t, []uuid.UUID{u1}, ptr(f.now.Add(time.Hour)), nil)

	res := f.engine().SendAll(context.Background())

	assert.Empty(t, f.notifier.attempts)
	assert.Equal(t, 0, res.Stats.Batches)
	assert.True(t, f.batches.has(id))
}

// TestSendAll_DeletedRecipient удаленный пользователь пропускается
func TestSendAll_DeletedRecipient(t *testing.T) {
	f := newFixture(t)
	u1, u2 := f.user("test_user"), f.user("test_user2")
	id := f.queue(t, []uuid.UUID{u1, u2}, nil, nil)
	delete(f.recipients.users, u1)
	logs := captureLog(t)

	res := f.engine().SendAll(context.Background())

	assert.Equal(t, 1, strings.Count(logs.String(), "since it does not exist"))
	assert.Contains(t, logs.String(), "not emitting notice label to user "+u1.String()+" since it does not exist")
	assert.NotContains(t, logs.String(), u2.String()+" since it does not exist")
	assert.Equal(t, []uuid.UUID{u2}, f.notifier.attempts)
	assert.Equal(t, 2, res.Stats.Sent)
	assert.Equal(t, 1, res.Stats.SentActual)
	assert.False(t, f.batches.has(id))
}

// TestSendAll_FailingRecipientIsolated ошибка одного получателя не мешает остальным
func TestSendAll_FailingRecipientIsolated(t *testing.T) {
	f := newFixture(t)
	u1, u2, u3 := f.user("a"), f.user("b"), f.user("c")
	f.notifier.failFor[u2] = errors.New("template syntax error")
	id := f.queue(t, []uuid.UUID{u1, u2, u3}, nil, nil)

	res := f.engine().SendAll(context.Background())

	assert.NoError(t, res.Err)
	assert.Equal(t, []uuid.UUID{u1, u2, u3}, f.notifier.attempts)
	assert.Equal(t, 3, res.Stats.Sent)
	assert.Equal(t, 2, res.Stats.SentActual)
	assert.False(t, f.batches.has(id))
}

// TestSendAll_PartialDeliveryCounts доставка одним каналом засчитывается, даже если следующий канал упал
func TestSendAll_PartialDeliveryCounts(t *testing.T) {
	f := newFixture(t)
	u1 := f.user("a")
	f.notifier.partialFor[u1] = errors.New("sms backend: gateway timeout")
	id := f.queue(t, []uuid.UUID{u1}, nil, nil)

	res := f.engine().SendAll(context.Background())

	assert.NoError(t, res.Err)
	assert.Equal(t, 1, res.Stats.Sent)
	assert.Equal(t, 1, res.Stats.SentActual)
	assert.False(t, f.batches.has(id))
}

// TestSendAll_PanickingRecipientIsolated panic в доставке изолирована так же, как ошибка
func TestSendAll_PanickingRecipientIsolated(t *testing.T) {
	f := newFixture(t)
	u1, u2 := f.user("a"), f.user("b")
	f.notifier.panicFor[u1] = true
	id := f.queue(t, []uuid.UUID{u1, u2}, nil, nil)

	res := f.engine().SendAll(context.Background())

	assert.NoError(t, res.Err)
	assert.Equal(t, []uuid.UUID{u1, u2}, f.notifier.attempts)
	assert.Equal(t, 1, res.Stats.SentActual)
	assert.False(t, f.batches.has(id))
}

// TestSendAll_FailingBatchStaysQueued пачка без успешных доставок остается, соседняя удаляется
func TestSendAll_FailingBatchStaysQueued(t *testing.T) {
	f := newFixture(t)
	bad, good := f.user("bad"), f.user("good")
	f.notifier.failFor[bad] = errors.New("template error")
	badID := f.queue(t, []uuid.UUID{bad}, nil, nil)
	goodID := f.queue(t, []uuid.UUID{good}, nil, nil)

	res := f.engine().SendAll(context.Background())

	assert.NoError(t, res.Err)
	assert.Equal(t, 2, res.Stats.Batches)
	assert.Equal(t, 2, res.Stats.Sent)
	assert.Equal(t, 1, res.Stats.SentActual)
	assert.True(t, f.batches.has(badID))
	assert.False(t, f.batches.has(goodID))
}

// TestSendAll_NothingDeliveredKeepsBatch пачка без доставок (настройки запрещают) остается
func TestSendAll_NothingDeliveredKeepsBatch(t *testing.T) {
	f := newFixture(t)
	u1 := f.user("a")
	f.notifier.skipFor[u1] = true
	id := f.queue(t, []uuid.UUID{u1}, nil, nil)

	res := f.engine().SendAll(context.Background())

	assert.Equal(t, 1, res.Stats.Sent)
	assert.Equal(t, 0, res.Stats.SentActual)
	assert.True(t, f.batches.has(id))
}

// TestSendAll_LockHeld при захваченной блокировке проход ничего не делает
func TestSendAll_LockHeld(t *testing.T) {
	f := newFixture(t)
	u1 := f.user("a")
	id := f.queue(t, []uuid.UUID{u1}, nil, nil)
	expiredID := f.queue(t, []uuid.UUID{u1}, nil, ptr(f.now.Add(-time.Hour)))

	held, err := lockfile.Acquire(context.Background(), f.lockDir, "send_notices", -1)
	require.NoError(t, err)
	defer held.Release()

	res := f.engine().SendAll(context.Background())

	assert.Equal(t, engine.StateSkipped, res.State)
	assert.Empty(t, f.notifier.attempts)
	assert.Empty(t, f.batches.deleted)
	assert.True(t, f.batches.has(id))
	assert.True(t, f.batches.has(expiredID))
	assert.Empty(t, f.listener.events)
}

// TestSendAll_ReleasesLock после прохода блокировка свободна
func TestSendAll_ReleasesLock(t *testing.T) {
	f := newFixture(t)
	f.batches.listErr = errors.New("connection refused")
	f.mailer.On("MailAdmins", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res := f.engine().SendAll(context.Background())
	assert.Error(t, res.Err)

	lock, err := lockfile.Acquire(context.Background(), f.lockDir, "send_notices", -1)
	require.NoError(t, err)
	assert.NoError(t, lock.Release())
}

// TestSendAll_DatastoreFailureReported ошибка базы отправляется администраторам
func TestSendAll_DatastoreFailureReported(t *testing.T) {
	f := newFixture(t)
	f.batches.listErr = errors.New("connection refused")
	f.mailer.On("MailAdmins", mock.Anything,
		"[example.com emit_notices] list eligible batches: connection refused",
		mock.MatchedBy(func(body string) bool {
			return assert.Contains(t, body, "connection refused") && assert.Contains(t, body, "goroutine")
		})).Return(nil)

	res := f.engine().SendAll(context.Background())

	assert.Equal(t, engine.StateDone, res.State)
	assert.Error(t, res.Err)
	assert.Empty(t, f.listener.events)
	assert.Equal(t, domain.EmittedNotices{}, res.Stats)
	f.mailer.AssertExpectations(t)
}

// TestSendAll_CorruptPayloadAbortsPass битая пачка прерывает проход, следующие не обрабатываются
func TestSendAll_CorruptPayloadAbortsPass(t *testing.T) {
	f := newFixture(t)
	u1 := f.user("a")
	corrupt, err := f.batches.Create(context.Background(), domain.CreateBatchParams{Payload: []byte("not json")})
	require.NoError(t, err)
	goodID := f.queue(t, []uuid.UUID{u1}, nil, nil)
	expiredID := f.queue(t, []uuid.UUID{u1}, nil, ptr(f.now.Add(-time.Hour)))

	f.mailer.On("MailAdmins", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res := f.engine().SendAll(context.Background())

	assert.Error(t, res.Err)
	assert.Empty(t, f.notifier.attempts)
	assert.True(t, f.batches.has(corrupt.ID))
	assert.True(t, f.batches.has(goodID))
	assert.True(t, f.batches.has(expiredID))
	assert.Empty(t, f.listener.events)
	f.mailer.AssertNumberOfCalls(t, "MailAdmins", 1)
}

// TestSendAll_MailerFailureSwallowed сбой отправки отчета не выходит наружу
func TestSendAll_MailerFailureSwallowed(t *testing.T) {
	f := newFixture(t)
	f.recipients.err = errors.New("users table is gone")
	u1 := f.user("a")
	f.queue(t, []uuid.UUID{u1}, nil, nil)
	f.mailer.On("MailAdmins", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	var res engine.Result
	assert.NotPanics(t, func() {
		res = f.engine().SendAll(context.Background())
	})
	assert.ErrorContains(t, res.Err, "users table is gone")
	assert.Equal(t, engine.StateDone, res.State)
}

// TestSendAll_ListenerErrorDoesNotAbort ошибка получателя итогов не прерывает проход
func TestSendAll_ListenerErrorDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	f.listener.err = errors.New("broker unavailable")
	u1 := f.user("a")
	expiredID := f.queue(t, []uuid.UUID{u1}, nil, ptr(f.now.Add(-time.Hour)))

	res := f.engine().SendAll(context.Background())

	assert.NoError(t, res.Err)
	assert.Equal(t, int64(1), res.Expired)
	assert.False(t, f.batches.has(expiredID))
}

// TestSendAll_CanceledContextNotMailed прерывание процесса не рассылается администраторам
func TestSendAll_CanceledContextNotMailed(t *testing.T) {
	f := newFixture(t)
	u1 := f.user("a")
	f.queue(t, []uuid.UUID{u1}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.engine().SendAll(ctx)

	assert.ErrorIs(t, res.Err, context.Canceled)
	f.mailer.AssertNotCalled(t, "MailAdmins", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportSubject(t *testing.T) {
	assert.Equal(t, "[example.com emit_notices] boom", engine.ReportSubject("example.com", errors.New("boom")))
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    engine.State
		expected string
	}{
		{engine.StateIdle, "idle"},
		{engine.StateLockAcquiring, "lock_acquiring"},
		{engine.StateSkipped, "skipped"},
		{engine.StateRunning, "running"},
		{engine.StateDone, "done"},
		{engine.State(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestLogListener(t *testing.T) {
	assert.NoError(t, engine.LogListener{}.OnNoticesEmitted(context.Background(), domain.EmittedNotices{Batches: 1}))
}
