package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"device-fleet-manager/internal/config"
	"device-fleet-manager/internal/delivery/http/handler"
	domainAPIKey "device-fleet-manager/internal/domain/apikey"
	"device-fleet-manager/internal/infrastructure/cache"
	"device-fleet-manager/internal/infrastructure/database/postgres"
	"device-fleet-manager/internal/infrastructure/email"
	"device-fleet-manager/internal/infrastructure/mqtt"
	"device-fleet-manager/internal/infrastructure/rabbitmq"
	"device-fleet-manager/internal/ingestion"
	"device-fleet-manager/internal/jobs"
	"device-fleet-manager/internal/logger"
	"device-fleet-manager/internal/middleware"
	"device-fleet-manager/internal/notification"
	"device-fleet-manager/internal/routes"
	"device-fleet-manager/internal/seed"
	"device-fleet-manager/internal/usecase/account"
	"device-fleet-manager/internal/usecase/agent"
	"device-fleet-manager/internal/usecase/apikey"
	"device-fleet-manager/internal/usecase/device"
	"device-fleet-manager/internal/usecase/role"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	env := cfg.Server.Environment
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env, cfg.Server.LogLevel); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("environment", env),
	)

	if cfg.Database.DBName == "" {
		logger.Fatal("Database configuration is missing. Please set DB_NAME (and DB_HOST for postgres).")
	}
	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT secret is missing. Please set JWT_SECRET environment variable.")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := postgres.NewDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	roleRepo := postgres.NewRoleRepository(db)
	agentRepo := postgres.NewAgentRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	resetTokenRepo := postgres.NewResetTokenRepository(db)
	deviceRepo := postgres.NewDeviceRepository(db)
	apiKeyRepo := postgres.NewAPIKeyRepository(db)
	logRepo := postgres.NewDeviceLogRepository(db)
	emailRepo := postgres.NewEmailRepository(db)

	var keyCache domainAPIKey.VerificationCache
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	switch {
	case err != nil:
		logger.Warn("Redis unavailable, API keys will be verified against the database", zap.Error(err))
	case redisClient != nil:
		keyCache = cache.NewAPIKeyCache(redisClient, cfg.Redis.APIKeyTTL)
		defer redisClient.Close()
	}

	// Device notifications
	var publisher notification.Publisher
	var rabbitClient *rabbitmq.Client
	if cfg.Notification.Debug || cfg.RabbitMQ.URI == "" {
		publisher = notification.NewLogPublisher()
	} else {
		rabbitClient = rabbitmq.NewClient(cfg.RabbitMQ)
		publisher = rabbitClient
	}

	if cfg.MQTT.Broker != "" {
		transport := mqtt.NewTransport(cfg.MQTT)
		if err := transport.Connect(); err != nil {
			logger.Warn("MQTT broker unavailable, updates go to RabbitMQ only", zap.Error(err))
		}
		defer transport.Disconnect()
		multi := notification.NewMultiPublisher(publisher, mqtt.NewPublisher(transport, cfg.MQTT.UpdatesTopicFormat))
		multi.OnSecondaryError(func(err error) {
			logger.Warn("MQTT update publish failed", zap.Error(err))
		})
		publisher = multi
	}

	templates, err := email.LoadTemplates(cfg.Email.TemplateDir)
	if err != nil {
		logger.Fatal("Failed to load email templates", zap.Error(err))
	}
	var sender email.FromSender = email.NewLogSender()
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPSender(cfg.SMTP)
	}
	mailer := email.NewService(emailRepo, sender, templates)

	dispatcher := notification.NewDispatcher(publisher, mailer, notification.Options{
		Workers:        cfg.Notification.Workers,
		QueueSize:      cfg.Notification.QueueSize,
		MaxRetries:     cfg.Notification.MaxRetries,
		PublishTimeout: cfg.Notification.PublishTimeout,
		RetryDelay:     cfg.RabbitMQ.RetryDelay,
		DefaultPayload: cfg.Notification.DefaultPayload,
	})
	dispatcher.Start()

	roleService := role.NewService(roleRepo)
	accountService := account.NewService(accountRepo, resetTokenRepo, roleRepo, agentRepo, deviceRepo, dispatcher, cfg)
	agentService := agent.NewService(agentRepo, accountRepo, roleRepo, deviceRepo, dispatcher)
	apiKeyService := apikey.NewService(apiKeyRepo, keyCache)
	deviceService := device.NewService(deviceRepo, accountRepo, agentRepo, logRepo, dispatcher, cfg.Device)

	if err := seed.Run(ctx, roleService, roleRepo, accountRepo, cfg.Seed); err != nil {
		logger.Fatal("Failed to seed database", zap.Error(err))
	}

	// Device log ingestion
	hub := ingestion.NewHub()
	var processor *ingestion.Processor
	var mqttIngestion *ingestion.MQTTIngestionClient
	if cfg.Ingestion.Enabled {
		processor = ingestion.NewProcessor(logRepo, hub,
			cfg.Ingestion.BatchSize,
			cfg.Ingestion.Workers,
			cfg.Ingestion.BufferSize,
			cfg.Ingestion.BatchTimeout,
		)
		processor.Start()

		if cfg.RabbitMQ.URI != "" {
			consumer := rabbitmq.NewConsumer(cfg.RabbitMQ)
			go consumer.Run(ctx, processor.HandleDelivery)
		}

		if cfg.MQTT.Broker != "" {
			logsCfg := cfg.MQTT
			logsCfg.ClientID = cfg.MQTT.ClientID + "-logs"
			mqttIngestion, err = ingestion.NewMQTTIngestionClient(mqtt.NewTransport(logsCfg), cfg.MQTT.LogsTopic, 1, processor)
			if err == nil {
				err = mqttIngestion.Start()
			}
			if err != nil {
				logger.Warn("MQTT log ingestion disabled", zap.Error(err))
				mqttIngestion = nil
			}
		}
	}

	cleanup := jobs.NewCleanup(resetTokenRepo, logRepo, cfg.Ingestion.RetentionDays)
	if err := cleanup.Start(cfg.Ingestion.CleanupSpec); err != nil {
		logger.Fatal("Failed to schedule cleanup job", zap.Error(err))
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst)
	go rateLimiter.RunCleanup(ctx)

	router := routes.SetupRoutes(cfg, routes.Dependencies{
		DB:            db,
		Authenticator: accountService,
		APIKeys:       apiKeyService,
		RateLimiter:   rateLimiter,
		Handlers: routes.Handlers{
			Account: handler.NewAccountHandler(accountService),
			Agent:   handler.NewAgentHandler(agentService),
			Role:    handler.NewRoleHandler(roleService),
			APIKey:  handler.NewAPIKeyHandler(apiKeyService),
			Device:  handler.NewDeviceHandler(deviceService, hub),
		},
	})

	host := cfg.Server.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	addr := net.JoinHostPort(host, port)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("address", addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", zap.Error(err))
	}

	// Stop producers before the queues they feed.
	stop()
	cleanup.Stop()
	if mqttIngestion != nil {
		mqttIngestion.Stop()
	}
	if processor != nil {
		processor.Stop()
	}
	dispatcher.Stop(shutdownCtx)
	if rabbitClient != nil {
		if err := rabbitClient.Close(); err != nil {
			logger.Warn("Failed to close RabbitMQ client", zap.Error(err))
		}
	}

	logger.Info("Server exited properly")
}
