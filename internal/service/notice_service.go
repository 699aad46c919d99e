package service

import (
	"context"
	"errors"

	"NoticeEmitter/internal/domain"
	"github.com/wb-go/wbf/zlog"
)

// NoticeService постановка уведомлений в очередь и управление типами уведомлений.
type NoticeService struct {
	batches     domain.BatchRepository
	noticeTypes domain.NoticeTypeRepository
	recipients  domain.RecipientRepository
	notifier    domain.Notifier
	queueAll    bool
}

// NewNoticeService создает новый экземпляр NoticeService.
// При queueAll Send всегда ставит уведомления в очередь.
func NewNoticeService(
	batches domain.BatchRepository,
	noticeTypes domain.NoticeTypeRepository,
	recipients domain.RecipientRepository,
	notifier domain.Notifier,
	queueAll bool) *NoticeService {
	return &NoticeService{
		batches:     batches,
		noticeTypes: noticeTypes,
		recipients:  recipients,
		notifier:    notifier,
		queueAll:    queueAll,
	}
}

func validateQueueParams(params domain.QueueParams) error {
	if params.Label == "" {
		return domain.ErrEmptyLabel
	}
	if len(params.Recipients) == 0 {
		return domain.ErrNoRecipients
	}
	return nil
}

// Queue ставит уведомления всем получателям в очередь одной пачкой.
func (s *NoticeService) Queue(ctx context.Context, params domain.QueueParams) (*domain.QueuedBatch, error) {
	op := "Queue:"
	if err := validateQueueParams(params); err != nil {
		zlog.Logger.Warn().Err(err).Msgf("%s invalid params", op)
		return nil, err
	}

	notices := make([]domain.Notice, 0, len(params.Recipients))
	for _, r := range params.Recipients {
		notices = append(notices, domain.Notice{
			Recipient:    r,
			Label:        params.Label,
			ExtraContext: params.ExtraContext,
			Sender:       params.Sender,
		})
	}

	payload, err := domain.EncodePayload(notices)
	if err != nil {
		zlog.Logger.Error().Msgf("%s failed to encode payload: %v", op, err)
		return nil, err
	}

	b, err := s.batches.Create(ctx, domain.CreateBatchParams{
		Payload:   payload,
		SendAfter: params.SendAfter,
		SendTill:  params.SendTill,
	})
	if err != nil {
		zlog.Logger.Error().Msgf("%s failed to queue batch: %v", op, err)
		return nil, err
	}

	zlog.Logger.Info().
		Str("batch_id", b.ID.String()).
		Str("label", params.Label).
		Int("recipients", len(notices)).
		Msg("notices queued")
	return b, nil
}

// Send доставляет уведомления немедленно, если now и очередь не форсирована, иначе ставит их в очередь.
func (s *NoticeService) Send(ctx context.Context, params domain.QueueParams, now bool) (*domain.SendResult, error) {
	if s.queueAll || !now {
		b, err := s.Queue(ctx, params)
		if err != nil {
			return nil, err
		}
		return &domain.SendResult{Queued: b}, nil
	}

	op := "Send:"
	if params.Label == "" {
		return nil, domain.ErrEmptyLabel
	}
	if len(params.Recipients) == 0 {
		return nil, domain.ErrNoRecipients
	}

	result := &domain.SendResult{}
	for _, id := range params.Recipients {
		r, err := s.recipients.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrRecipientNotFound) {
				zlog.Logger.Warn().Msgf("not sending notice %s to user %s since it does not exist", params.Label, id)
				result.Skipped++
				continue
			}
			zlog.Logger.Error().Msgf("%s failed to resolve recipient %s: %v", op, id, err)
			return nil, err
		}

		delivered, err := s.notifier.SendNow(ctx, *r, params.Label, params.ExtraContext, params.Sender)
		if err != nil {
			zlog.Logger.Error().Err(err).Str("label", params.Label).Str("recipient", id.String()).
				Msgf("%s failed to send notice", op)
			result.Skipped++
			continue
		}
		if delivered {
			result.Delivered++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

// CreateNoticeType создает тип уведомления или обновляет существующий.
func (s *NoticeService) CreateNoticeType(ctx context.Context, t domain.NoticeType) (*domain.NoticeType, error) {
	if t.Label == "" {
		return nil, domain.ErrEmptyLabel
	}
	res, err := s.noticeTypes.Upsert(ctx, t)
	if err != nil {
		zlog.Logger.Error().Msgf("CreateNoticeType: failed to upsert %s: %v", t.Label, err)
		return nil, err
	}
	return res, nil
}

// GetNoticeType получает тип уведомления по label.
func (s *NoticeService) GetNoticeType(ctx context.Context, label string) (*domain.NoticeType, error) {
	if label == "" {
		return nil, domain.ErrEmptyLabel
	}
	return s.noticeTypes.GetByLabel(ctx, label)
}

// UpdateNoticeType обновляет поля типа уведомления и возвращает результат.
func (s *NoticeService) UpdateNoticeType(ctx context.Context, label string,
	opts ...domain.NoticeTypeOption) (*domain.NoticeType, error) {
	if len(opts) == 0 {
		return nil, domain.ErrEmptyUpdateOptions
	}
	if err := s.noticeTypes.Update(ctx, label, opts...); err != nil {
		if errors.Is(err, domain.ErrNoRowAffected) {
			zlog.Logger.Warn().Msgf("UpdateNoticeType: notice type %s not found", label)
			return nil, domain.ErrNoticeTypeNotFound
		}
		return nil, err
	}
	return s.noticeTypes.GetByLabel(ctx, label)
}

// ListBatches возвращает пачки очереди с раскодированным содержимым.
// Пачка, которую не удалось раскодировать, возвращается с DecodeErr.
func (s *NoticeService) ListBatches(ctx context.Context, limit, offset int) ([]domain.BatchView, error) {
	batches, err := s.batches.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	views := make([]domain.BatchView, 0, len(batches))
	for _, b := range batches {
		v := domain.BatchView{
			ID:        b.ID,
			CreatedAt: b.CreatedAt,
			SendAfter: b.SendAfter,
			SendTill:  b.SendTill,
		}
		notices, err := domain.DecodePayload(b.Payload)
		if err != nil {
			v.DecodeErr = err.Error()
		} else {
			v.Notices = notices
		}
		views = append(views, v)
	}
	return views, nil
}
