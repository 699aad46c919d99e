package app

import (
	"context"
	"fmt"
	"os"

	cfgman "NoticeEmitter/internal/config"
	"NoticeEmitter/internal/domain"
	"NoticeEmitter/internal/engine"
	"NoticeEmitter/internal/metrics"
	"NoticeEmitter/internal/notifier"
	"NoticeEmitter/internal/repository/cache"
	"NoticeEmitter/internal/repository/pg"
	"NoticeEmitter/internal/repository/rabbit"
	emailsender "NoticeEmitter/internal/sender/email"
	"NoticeEmitter/internal/service"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"
)

type lastRunStore interface {
	domain.NoticesEmittedListener
	domain.LastRunReader
}

// initConnections инициализирует подключения и собирает компоненты.
func (a *Application) initConnections() error {
	var err error

	a.db, err = initDatabase(a.config.Database)
	if err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}

	a.redis, a.cache = connectCache(a.config.Redis)

	if a.config.RabbitMQ.Enabled {
		a.rabbit, err = initRabbitMQ(a.config.RabbitMQ)
		if err != nil {
			return fmt.Errorf("failed to init rabbitmq: %w", err)
		}
	}

	if err := a.initServices(); err != nil {
		return fmt.Errorf("failed to init services: %w", err)
	}
	return nil
}

// initDatabase инициализирует подключение к базе данных.
func initDatabase(cfg cfgman.DatabaseConfig) (*dbpg.DB, error) {
	opts := &dbpg.Options{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	}

	db, err := dbpg.New(cfg.DSN, nil, opts)
	if err != nil {
		return nil, err
	}

	if err := db.Master.Ping(); err != nil {
		return nil, err
	}

	zlog.Logger.Info().Msg("Database connection established")
	return db, nil
}

// initRedis инициализирует подключение к Redis.
func initRedis(cfg cfgman.RedisConfig) (*redis.Client, error) {
	client := redis.New(cfg.Addr, cfg.Password, cfg.DB)

	ctx, cancel := redisPingTimeout()
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	zlog.Logger.Info().Msg("Redis connection established")
	return client, nil
}

// connectCache подключается к Redis. Redis хранит только кэш, поэтому при недоступном сервере
// доставка продолжается с Noop кэшем, а клиент равен nil.
func connectCache(cfg cfgman.RedisConfig) (*redis.Client, domain.RedisRepository) {
	client, err := initRedis(cfg)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis is unavailable, continuing without cache")
		return nil, cache.Noop{}
	}
	return client, client
}

// initRabbitMQ инициализирует подключение к RabbitMQ.
func initRabbitMQ(cfg cfgman.RabbitMQConfig) (*rabbit.Client, error) {
	client, err := rabbit.NewClient(rabbit.ClientConfig{
		URL:            cfg.URL,
		ConnectionName: cfg.ConnectionName,
		ConnectTimeout: cfg.ConnectTimeout,
		Heartbeat:      cfg.Heartbeat,
	})
	if err != nil {
		return nil, err
	}
	zlog.Logger.Info().Msg("RabbitMQ connection established")
	return client, nil
}

func (a *Application) lockDir() string {
	if a.config.Notices.LockDir != "" {
		return a.config.Notices.LockDir
	}
	return os.TempDir()
}

func checkLockDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".lockcheck-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// initServices собирает репозитории, сервисы и движок доставки.
func (a *Application) initServices() error {
	batches := pg.NewBatchRepo(a.db)
	recipients := pg.NewRecipientRepo(a.db)
	noticeTypes := pg.NewNoticeTypeRepo(a.db)
	settingRepo := pg.NewSettingRepo(a.db)

	a.metrics = metrics.New()
	a.settings = service.NewSettingService(settingRepo, noticeTypes, a.cache, a.config.Redis.SettingsTTL)

	templates, err := notifier.NewTemplateStore(a.config.Notices.TemplateDir)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	a.smtp = emailsender.NewSMTPSender(
		a.config.Email.Host,
		a.config.Email.Port,
		a.config.Email.Username,
		a.config.Email.Password,
		a.config.Email.From,
		a.config.Email.UseTLS,
	)

	emailBackend := notifier.NewEmailBackend(a.settings, templates, a.smtp, a.config.Notices.SiteName)
	n := notifier.New(noticeTypes, a.metrics, emailBackend)

	a.notices = service.NewNoticeService(batches, noticeTypes, recipients, n, a.config.Notices.QueueAll)

	store := cache.NewLastRunStore(a.cache, a.config.Notices.LastRunTTL)
	a.lastRun = store

	listeners := []domain.NoticesEmittedListener{engine.LogListener{}, a.metrics, store}
	if a.rabbit != nil {
		publisher, err := rabbit.NewPublisher(a.rabbit.Channel, a.config.RabbitMQ.ExchangeName, a.config.RabbitMQ.RoutingKey)
		if err != nil {
			return fmt.Errorf("failed to init publisher: %w", err)
		}
		listeners = append(listeners, publisher)
	}

	mailer := emailsender.NewAdminMailer(a.smtp, a.config.Notices.AdminList())
	a.engine = engine.New(engine.Config{
		LockDir:         a.lockDir(),
		LockName:        a.config.Notices.LockName,
		LockWaitTimeout: a.config.Notices.LockWaitTimeout,
		SiteName:        a.config.Notices.SiteName,
	}, batches, recipients, n, mailer, engine.WithListeners(listeners...))

	return nil
}

// pingAll проверяет зависимости для /health.
func (a *Application) pingAll(ctx context.Context) map[string]string {
	status := map[string]string{"database": "ok", "redis": a.redisStatus(ctx)}
	if err := a.db.Master.PingContext(ctx); err != nil {
		status["database"] = err.Error()
	}
	if a.rabbit != nil {
		status["rabbitmq"] = "ok"
		if err := a.rabbit.Ping(); err != nil {
			status["rabbitmq"] = err.Error()
		}
	}
	return status
}

func (a *Application) redisStatus(ctx context.Context) string {
	if a.redis == nil {
		return "unavailable, running without cache"
	}
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return err.Error()
	}
	return "ok"
}
