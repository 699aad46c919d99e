package service_test

import (
	"context"
	"time"

	"NoticeEmitter/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockBatchRepository мок для BatchRepository
type MockBatchRepository struct {
	mock.Mock
}

func (m *MockBatchRepository) Create(ctx context.Context, p domain.CreateBatchParams) (*domain.QueuedBatch, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueuedBatch), args.Error(1)
}

func (m *MockBatchRepository) ListEligible(ctx context.Context, now time.Time) ([]domain.QueuedBatch, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.QueuedBatch), args.Error(1)
}

func (m *MockBatchRepository) List(ctx context.Context, limit, offset int) ([]domain.QueuedBatch, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueuedBatch), args.Error(1)
}

func (m *MockBatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBatchRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockNoticeTypeRepository мок для NoticeTypeRepository
type MockNoticeTypeRepository struct {
	mock.Mock
}

func (m *MockNoticeTypeRepository) Upsert(ctx context.Context, t domain.NoticeType) (*domain.NoticeType, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NoticeType), args.Error(1)
}

func (m *MockNoticeTypeRepository) GetByLabel(ctx context.Context, label string) (*domain.NoticeType, error) {
	args := m.Called(ctx, label)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NoticeType), args.Error(1)
}

func (m *MockNoticeTypeRepository) Update(ctx context.Context, label string, opts ...domain.NoticeTypeOption) error {
	return m.Called(ctx, label, opts).Error(0)
}

// MockRecipientRepository мок для RecipientRepository
type MockRecipientRepository struct {
	mock.Mock
}

func (m *MockRecipientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recipient), args.Error(1)
}

func (m *MockRecipientRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Recipient, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Recipient), args.Error(1)
}

// MockNotifier мок для Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendNow(ctx context.Context, r domain.Recipient, label string,
	extra map[string]interface{}, sender string) (bool, error) {
	args := m.Called(ctx, r, label, extra, sender)
	return args.Bool(0), args.Error(1)
}

// MockSettingRepository мок для NoticeSettingRepository
type MockSettingRepository struct {
	mock.Mock
}

func (m *MockSettingRepository) Get(ctx context.Context, key domain.SettingKey) (*domain.NoticeSetting, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NoticeSetting), args.Error(1)
}

func (m *MockSettingRepository) Create(ctx context.Context, s domain.NoticeSetting) (*domain.NoticeSetting, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NoticeSetting), args.Error(1)
}

func (m *MockSettingRepository) SetSend(ctx context.Context, key domain.SettingKey, send bool) error {
	return m.Called(ctx, key, send).Error(0)
}

// MockRedis мок для RedisRepository
type MockRedis struct {
	mock.Mock
}

func (m *MockRedis) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockRedis) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}
