package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfgman "NoticeEmitter/internal/config"
	"NoticeEmitter/internal/delivery/middleware"
	"NoticeEmitter/internal/domain"
	"NoticeEmitter/internal/engine"
	"NoticeEmitter/internal/metrics"
	"NoticeEmitter/internal/migrator"
	"NoticeEmitter/internal/repository/rabbit"
	emailsender "NoticeEmitter/internal/sender/email"
	"NoticeEmitter/internal/service"
	"NoticeEmitter/internal/worker"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"
)

// Application основная структура приложения.
type Application struct {
	config *cfgman.Config
	server *ginext.Engine
	db     *dbpg.DB
	redis  *redis.Client
	cache  domain.RedisRepository
	rabbit *rabbit.Client
	smtp   *emailsender.SMTPSender

	metrics  *metrics.Metrics
	engine   *engine.Engine
	notices  *service.NoticeService
	settings *service.SettingService
	lastRun  lastRunStore
}

// New создает новое приложение.
func New() (*Application, error) {
	// Загружаем конфигурацию
	cfg, err := cfgman.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Инициализируем логгер
	if err := initLogger(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	return &Application{config: cfg}, nil
}

// Run запускает приложение в зависимости от команды.
func (a *Application) Run() error {
	if len(os.Args) < 2 {
		a.printUsage()
		return fmt.Errorf("no command specified")
	}

	command := os.Args[1]

	switch command {
	case "emit_notices":
		return a.runEmitNotices()
	case "runserver":
		return a.runServer()
	case "migrate":
		return a.runMigrate()
	case "health":
		return a.runHealthCheck()
	case "token":
		return a.runToken()
	default:
		a.printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// printUsage печатает инструкции по использованию.
func (a *Application) printUsage() {
	fmt.Println("NoticeEmitter - доставка отложенных уведомлений пользователям")
	fmt.Println()
	fmt.Println("Доступные команды:")
	fmt.Println("  emit_notices    - один проход доставки очереди (для cron)")
	fmt.Println("  runserver       - запуск HTTP API и, при notices.emitinterval > 0, периодической доставки")
	fmt.Println("  migrate up      - накат миграций")
	fmt.Println("  migrate down    - откат миграций")
	fmt.Println("  migrate version - текущая версия схемы")
	fmt.Println("  health          - проверка состояния сервисов")
	fmt.Println("  token <subject> - выпуск токена для API")
	fmt.Println()
	fmt.Println("Примеры:")
	fmt.Println("  <appname> emit_notices")
	fmt.Println("  <appname> runserver")
	fmt.Println("  <appname> migrate up")
}

// initLogger инициализирует логгер.
func initLogger(level string) error {
	zlog.Init()

	zerologLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	return zlog.SetLevel(zerologLevel.String())
}

// runEmitNotices выполняет один проход доставки.
// Ошибки прохода уже залогированы и отправлены администраторам, поэтому команда завершается успешно.
func (a *Application) runEmitNotices() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.initConnections(); err != nil {
		return fmt.Errorf("failed to init connections: %w", err)
	}
	defer a.cleanup()

	res := a.engine.SendAll(ctx)
	zlog.Logger.Debug().Str("state", res.State.String()).Bool("failed", res.Err != nil).Msg("emit_notices finished")
	return nil
}

// runServer запускает HTTP сервер и планировщик доставки.
func (a *Application) runServer() error {
	zlog.Logger.Info().Msg("Starting NoticeEmitter server...")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := a.initConnections(); err != nil {
		return fmt.Errorf("failed to init connections: %w", err)
	}
	defer a.cleanup()
	a.setupHTTPServer()

	scheduler := worker.NewScheduler(a.engine, a.config.Notices.EmitInterval)
	go scheduler.Start(ctx)

	zlog.Logger.Info().Str("address", a.config.HTTP.GetConnectionString()).Msg("HTTP server starting")
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.server.Run(a.config.HTTP.GetConnectionString())
	}()
	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		zlog.Logger.Info().Msg("Received shutdown signal")
		return nil
	}
}

// runMigrate запускает приложение в режиме миграций.
func (a *Application) runMigrate() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("migrate command requires direction (up/down/version)")
	}

	db, err := initDatabase(a.config.Database)
	if err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}
	defer func() {
		_ = db.Master.Close()
	}()

	m, err := migrator.NewMigrator(db.Master, a.config.Migrations.Path)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			zlog.Logger.Warn().Err(err).Msg("failed to close migrator")
		}
	}()

	switch direction := os.Args[2]; direction {
	case "up":
		zlog.Logger.Info().Msg("Running migrations up...")
		if err := m.Up(); err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
		zlog.Logger.Info().Msg("Migrations applied successfully")
	case "down":
		zlog.Logger.Info().Msg("Running migrations down...")
		if err := m.Down(); err != nil {
			return fmt.Errorf("migration down failed: %w", err)
		}
		zlog.Logger.Info().Msg("Migrations rolled back successfully")
	case "version":
		v, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("schema version: %d\n", v)
	default:
		return fmt.Errorf("unknown migrate direction: %s (use up/down/version)", direction)
	}
	return nil
}

// runHealthCheck проверяет состояние всех подключений.
func (a *Application) runHealthCheck() error {
	fmt.Println("Running health check...")

	db, err := initDatabase(a.config.Database)
	if err != nil {
		return fmt.Errorf("database check failed: %w", err)
	}
	_ = db.Master.Close()
	fmt.Println("✅ Database connection: OK")

	if _, err := initRedis(a.config.Redis); err != nil {
		return fmt.Errorf("redis check failed: %w", err)
	}
	fmt.Println("✅ Redis connection: OK")

	if a.config.RabbitMQ.Enabled {
		client, err := initRabbitMQ(a.config.RabbitMQ)
		if err != nil {
			return fmt.Errorf("rabbitmq check failed: %w", err)
		}
		err = client.Ping()
		_ = client.Close()
		if err != nil {
			return fmt.Errorf("rabbitmq check failed: %w", err)
		}
		fmt.Println("✅ RabbitMQ connection: OK")
	}

	if err := checkLockDir(a.lockDir()); err != nil {
		return fmt.Errorf("lock directory check failed: %w", err)
	}
	fmt.Println("✅ Lock directory: OK")

	fmt.Println("🎉 All health checks passed!")
	return nil
}

// runToken выпускает токен для доступа к API.
func (a *Application) runToken() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("token command requires subject")
	}
	if a.config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtsecret is not configured")
	}
	token, err := middleware.GenerateToken(a.config.Auth.JWTSecret, os.Args[2], a.config.Auth.TokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// cleanup освобождает ресурсы.
func (a *Application) cleanup() {
	zlog.Logger.Debug().Msg("Cleaning up resources...")

	if a.smtp != nil {
		_ = a.smtp.Close()
	}

	if a.rabbit != nil {
		_ = a.rabbit.Close()
	}

	if a.db != nil {
		_ = a.db.Master.Close()
	}

	zlog.Logger.Debug().Msg("Cleanup completed")
}

func redisPingTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
