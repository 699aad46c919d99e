package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"NoticeEmitter/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

// Handler набор HTTP обработчиков API уведомлений.
type Handler struct {
	notices  domain.QueueService
	settings domain.SettingsService
	lastRun  domain.LastRunReader
}

// NewHandlersSet создает новый экземпляр Handler.
func NewHandlersSet(notices domain.QueueService, settings domain.SettingsService, lastRun domain.LastRunReader) *Handler {
	return &Handler{
		notices:  notices,
		settings: settings,
		lastRun:  lastRun,
	}
}

var validate = validator.New()

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "обязательное поле"
	case "uuid":
		return "должно быть UUID"
	case "min":
		return "слишком мало значений"
	case "max":
		return "слишком длинное значение"
	case "datetime":
		return "некорректный формат даты (ожидается RFC3339)"
	default:
		return "некорректное значение"
	}
}

// bind разбирает и валидирует тело запроса. При ошибке ответ уже записан.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный JSON: " + err.Error()})
		return false
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			errorsMap := make(map[string]string)
			for _, e := range verrs {
				errorsMap[e.Field()] = validationMessage(e)
			}
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "Ошибка валидации",
				"errors":  errorsMap,
			})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEmptyLabel),
		errors.Is(err, domain.ErrNoRecipients),
		errors.Is(err, domain.ErrInvalidMedium),
		errors.Is(err, domain.ErrEmptyUpdateOptions):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNoticeTypeNotFound),
		errors.Is(err, domain.ErrRecipientNotFound),
		errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		zlog.Logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SendNoticesHandler ставит уведомления в очередь или доставляет их сразу.
func (h *Handler) SendNoticesHandler(c *gin.Context) {
	var req SendRequest
	if !bind(c, &req) {
		return
	}

	params := domain.QueueParams{
		Label:        req.Label,
		ExtraContext: req.ExtraContext,
		Sender:       req.Sender,
		Recipients:   make([]uuid.UUID, 0, len(req.Recipients)),
	}
	for _, r := range req.Recipients {
		id, err := uuid.Parse(r)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "recipient id is invalid"})
			return
		}
		params.Recipients = append(params.Recipients, id)
	}

	var err error
	if params.SendAfter, err = parseOptionalTime(req.SendAfter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Время send_after указано некорректно"})
		return
	}
	if params.SendTill, err = parseOptionalTime(req.SendTill); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Время send_till указано некорректно"})
		return
	}

	res, err := h.notices.Send(c.Request.Context(), params, req.Now)
	if err != nil {
		writeError(c, err)
		return
	}

	out := SendResponse{Delivered: res.Delivered, Skipped: res.Skipped}
	status := http.StatusOK
	if res.Queued != nil {
		out.Queued = true
		out.BatchID = &res.Queued.ID
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"result": out})
}

// ListBatchesHandler возвращает содержимое очереди.
func (h *Handler) ListBatchesHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit is invalid"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset is invalid"})
		return
	}

	views, err := h.notices.ListBatches(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]BatchResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toBatchResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{"result": out})
}

// LastRunHandler возвращает итоги последнего прохода доставки.
func (h *Handler) LastRunHandler(c *gin.Context) {
	ev, err := h.lastRun.LastRun(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": LastRunResponse{
		Batches:    ev.Batches,
		Sent:       ev.Sent,
		SentActual: ev.SentActual,
		RunTime:    ev.RunTime.String(),
		FinishedAt: ev.FinishedAt,
	}})
}

// CreateNoticeTypeHandler создает или обновляет тип уведомления.
func (h *Handler) CreateNoticeTypeHandler(c *gin.Context) {
	var req NoticeTypeRequest
	if !bind(c, &req) {
		return
	}

	t, err := h.notices.CreateNoticeType(c.Request.Context(), domain.NoticeType{
		Label:       req.Label,
		Display:     req.Display,
		Description: req.Description,
		Default:     req.Default,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": toNoticeTypeResponse(t)})
}

// GetNoticeTypeHandler возвращает тип уведомления.
func (h *Handler) GetNoticeTypeHandler(c *gin.Context) {
	t, err := h.notices.GetNoticeType(c.Request.Context(), c.Param("label"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": toNoticeTypeResponse(t)})
}

// UpdateNoticeTypeHandler обновляет поля типа уведомления.
func (h *Handler) UpdateNoticeTypeHandler(c *gin.Context) {
	var req NoticeTypeUpdateRequest
	if !bind(c, &req) {
		return
	}

	var opts []domain.NoticeTypeOption
	if req.Display != nil {
		opts = append(opts, domain.WithDisplay(*req.Display))
	}
	if req.Description != nil {
		opts = append(opts, domain.WithDescription(*req.Description))
	}
	if req.Default != nil {
		opts = append(opts, domain.WithDefault(*req.Default))
	}

	t, err := h.notices.UpdateNoticeType(c.Request.Context(), c.Param("label"), opts...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": toNoticeTypeResponse(t)})
}

// UpdateSettingHandler меняет флаг отправки для пользователя, типа уведомления и канала.
func (h *Handler) UpdateSettingHandler(c *gin.Context) {
	var req SettingRequest
	if !bind(c, &req) {
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is invalid"})
		return
	}

	s, err := h.settings.UpdateSetting(c.Request.Context(), domain.SettingKey{
		UserID: userID,
		Label:  req.Label,
		Medium: domain.Medium(req.Medium),
		Scope:  req.Scope,
	}, *req.Send)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": SettingResponse{
		UserID: s.UserID,
		Label:  s.Label,
		Medium: s.Medium.String(),
		Scope:  s.Scope,
		Send:   s.Send,
	}})
}
