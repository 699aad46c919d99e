package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"NoticeEmitter/internal/domain"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

const (
	settingKeyPrefix = "notice_setting:"
)

// SettingService настройки доставки с кэшем в Redis.
type SettingService struct {
	repo            domain.NoticeSettingRepository
	noticeTypes     domain.NoticeTypeRepository
	redis           domain.RedisRepository
	redisExpiration time.Duration
}

// NewSettingService создает новый экземпляр SettingService.
func NewSettingService(
	repo domain.NoticeSettingRepository,
	noticeTypes domain.NoticeTypeRepository,
	redis domain.RedisRepository,
	redisExpiration time.Duration) *SettingService {
	return &SettingService{repo: repo, noticeTypes: noticeTypes, redis: redis, redisExpiration: redisExpiration}
}

// CacheKey ключ настройки в Redis.
func CacheKey(key domain.SettingKey) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", settingKeyPrefix, key.UserID, key.Label, key.Medium, key.Scope)
}

// ShouldSend проверяет, включен ли канал для пользователя и типа уведомления.
func (s *SettingService) ShouldSend(ctx context.Context, userID uuid.UUID, t *domain.NoticeType,
	medium domain.Medium, scope string) (bool, error) {
	setting, err := s.Setting(ctx, userID, t, medium, scope)
	if err != nil {
		return false, err
	}
	return setting.Send, nil
}

// Setting получает настройку из кэша или базы, при отсутствии создает ее со значением по умолчанию.
func (s *SettingService) Setting(ctx context.Context, userID uuid.UUID, t *domain.NoticeType,
	medium domain.Medium, scope string) (*domain.NoticeSetting, error) {
	op := "Setting:"
	if !medium.IsValid() {
		return nil, domain.ErrInvalidMedium
	}
	key := domain.SettingKey{UserID: userID, Label: t.Label, Medium: medium, Scope: scope}

	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			zlog.Logger.Error().Msgf("%s failed to fetch setting: %v", op, err)
			return nil, err
		}
		zlog.Logger.Debug().Msgf("%s %s not found, creating default", op, CacheKey(key))
		setting, err = s.repo.Create(ctx, domain.NoticeSetting{
			UserID: userID,
			Label:  t.Label,
			Medium: medium,
			Scope:  scope,
			Send:   t.DefaultSend(medium),
		})
		if err != nil {
			zlog.Logger.Error().Msgf("%s failed to create setting: %v", op, err)
			return nil, err
		}
	}

	s.marshalAndSet(ctx, setting)
	return setting, nil
}

// UpdateSetting меняет флаг отправки и обновляет кэш.
func (s *SettingService) UpdateSetting(ctx context.Context, key domain.SettingKey, send bool) (*domain.NoticeSetting, error) {
	op := "UpdateSetting:"
	if !key.Medium.IsValid() {
		zlog.Logger.Warn().Msgf("%s medium %s is invalid", op, key.Medium)
		return nil, domain.ErrInvalidMedium
	}
	if key.Label == "" {
		return nil, domain.ErrEmptyLabel
	}

	err := s.repo.SetSend(ctx, key, send)
	switch {
	case err == nil:
		setting, err := s.repo.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		s.marshalAndSet(ctx, setting)
		return setting, nil
	case errors.Is(err, domain.ErrNoRowAffected):
		zlog.Logger.Debug().Msgf("%s %s not found, creating", op, CacheKey(key))
	default:
		zlog.Logger.Error().Msgf("%s failed to update setting: %v", op, err)
		return nil, err
	}

	if _, err := s.noticeTypes.GetByLabel(ctx, key.Label); err != nil {
		return nil, err
	}
	setting, err := s.repo.Create(ctx, domain.NoticeSetting{
		UserID: key.UserID,
		Label:  key.Label,
		Medium: key.Medium,
		Scope:  key.Scope,
		Send:   send,
	})
	if err != nil {
		return nil, err
	}
	if setting.Send != send {
		// строка появилась между SetSend и Create
		if err := s.repo.SetSend(ctx, key, send); err != nil {
			return nil, err
		}
		setting.Send = send
	}
	s.marshalAndSet(ctx, setting)
	return setting, nil
}

func (s *SettingService) fromCache(ctx context.Context, key domain.SettingKey) (*domain.NoticeSetting, bool) {
	data, err := s.redis.Get(ctx, CacheKey(key))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zlog.Logger.Warn().Err(err).Msg("failed to fetch setting from redis, falling back to database")
		}
		return nil, false
	}

	var setting domain.NoticeSetting
	if err := json.Unmarshal([]byte(data), &setting); err != nil {
		zlog.Logger.Error().Err(err).Msgf("%s: failed to unmarshal setting", CacheKey(key))
		return nil, false
	}
	return &setting, true
}

// marshalAndSet обновляет кэш. Ошибка Redis не влияет на результат.
func (s *SettingService) marshalAndSet(ctx context.Context, setting *domain.NoticeSetting) {
	data, err := json.Marshal(setting)
	if err != nil {
		zlog.Logger.Error().Msgf("failed to marshal setting: %v", err)
		return
	}
	key := domain.SettingKey{UserID: setting.UserID, Label: setting.Label, Medium: setting.Medium, Scope: setting.Scope}
	if err := s.redis.SetWithExpiration(ctx, CacheKey(key), data, s.redisExpiration); err != nil {
		zlog.Logger.Error().Msgf("%s failed to cache setting: %v", CacheKey(key), err)
	}
}
