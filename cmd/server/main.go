package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/audit"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/config"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/db"
	domainrepo "github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/gateway"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/goroutine"
	httpHandlers "github.com/devesclogapp/Talentconnect-01-sub001/internal/http/handlers"
	httpRouter "github.com/devesclogapp/Talentconnect-01-sub001/internal/http/router"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/ids"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/kafka"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/logger"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/metrics"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/outbox"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/platform/clock"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/repository/memory"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/service"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/telemetry"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, cfg.OTelServiceName)
	if err != nil {
		logger.Log.Fatalf("main: ошибка инициализации трассировки: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Log.Warnf("main: ошибка остановки трассировки: %v", err)
		}
	}()

	m := metrics.New()

	store, closeStore := openStorage(ctx, cfg)
	defer closeStore()

	feeRate, err := valueobject.NewFeeRate(cfg.PlatformFeeRate)
	if err != nil {
		logger.Log.Fatalf("main: некорректная комиссия платформы: %v", err)
	}

	var gw gateway.Gateway
	if cfg.Gateway.BaseURL != "" {
		gw = gateway.NewHTTPClient(gateway.HTTPConfig{
			BaseURL: cfg.Gateway.BaseURL,
			APIKey:  cfg.Gateway.APIKey,
			Timeout: cfg.Gateway.Timeout,
			RPS:     cfg.Gateway.RPS,
		})
	} else {
		logger.Log.Warn("main: GATEWAY_BASE_URL не задан, используется песочница платёжного шлюза")
		gw = gateway.NewSandbox()
	}

	gen := ids.New()
	ledger := service.NewLedger(gw, service.LedgerConfig{
		FeeRate:        feeRate,
		Currency:       cfg.Currency,
		GatewayTimeout: cfg.Gateway.Timeout,
	}, gen, m)

	broker := audit.NewBroker()
	broker.OnDrop(m.AuditDropped)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	go hub.Run()

	orders := service.NewOrderEngine(service.EngineDeps{
		Store:    store,
		Ledger:   ledger,
		Clock:    clock.Real(),
		IDs:      gen,
		Notifier: hub,
		Audit:    broker,
		Metrics:  m,
		Async:    goroutine.DefaultRecoveryHandler,
	})
	disputes := service.NewDisputeEngine(orders)

	var publisher outbox.Publisher = outbox.LogPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Log.Fatalf("main: ошибка подключения к kafka: %v", err)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Log.Warnf("main: ошибка закрытия kafka producer: %v", err)
			}
		}()
		publisher = producer
	}
	relay := outbox.NewRelay(store.Outbox(), publisher, outbox.Config{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		RetryDelay:   cfg.Outbox.RetryDelay,
	}, clock.Real(), m)
	goroutine.SafeGoWithContext(ctx, relay.Start)

	tokenManager := service.NewTokenManager(cfg.JWTSecret, 0)

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Orders:      httpHandlers.NewOrderHandler(orders),
		Disputes:    httpHandlers.NewDisputeHandler(disputes),
		AuditStream: httpHandlers.NewAuditStreamHandler(orders, broker),
		Health:      httpHandlers.NewHealthHandler(store),
		WS:          httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Tokens:      tokenManager,
		Metrics:     m,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	logger.Log.Infof("main: HTTP сервер запущен на порту %s (storage=%s)", cfg.HTTPPort, cfg.StorageDriver)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	// Дожидаемся уведомлений и релея, запущенных через SafeGo.
	goroutine.DefaultRecoveryHandler.Wait()
	logger.Log.Info("main: сервер остановлен")
}

// openStorage выбирает хранилище по STORAGE_DRIVER.
func openStorage(ctx context.Context, cfg *config.Config) (domainrepo.Store, func()) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Log.Warn("main: STORAGE_DRIVER=memory, данные не переживут перезапуск")
		return memory.NewStore(), func() {}
	}

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	if err := db.RunMigrations(ctx, dbConn.DB); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}
	store := repository.NewPostgresStore(dbConn)
	store.SetLockTimeout(cfg.OrderLockTimeout)
	return store, func() { safeClose(dbConn) }
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.Errorf("main: ошибка закрытия базы: %v", err)
	}
}
