package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"reminder-service/internal/agents"
	"reminder-service/internal/api"
	"reminder-service/internal/config"
	"reminder-service/internal/db"
	"reminder-service/internal/eventbus"
	"reminder-service/internal/health"
	"reminder-service/internal/kafka"
	"reminder-service/internal/logging"
	"reminder-service/internal/notification"
	"reminder-service/internal/processor"
	"reminder-service/internal/queue"
	"reminder-service/pkg/email"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dbConn.InitSchema(ctx); err != nil {
		logger.Errorf("Schema init failed: %v", err)
		log.Fatalf("Schema init failed: %v", err)
	}

	q := queue.New(dbConn.Pool, logger)
	bus := eventbus.New(logger)
	hub := agents.NewHub(logger)

	// The registry is populated before any consumption begins; nothing
	// mutates it afterwards.
	registry := agents.NewRegistry(dbConn, logger)
	registry.Register("webhook", agents.NewWebhookAgent())
	registry.Register("email", agents.NewEmailAgent(email.Sender{
		Server:   cfg.Email.SMTPServer,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		FromName: cfg.Email.FromName,
	}))
	registry.Register("telegram", agents.NewTelegramAgent(cfg.Telegram.RatePerSecond, logger))
	registry.Register("sms", agents.NewSMSAgent(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber))
	registry.Register("inapp", agents.NewInAppAgent(hub))

	svc := notification.New(dbConn, registry, logger)

	bus.Subscribe(eventbus.EventReminderTriggered, func(e eventbus.Event) {
		logger.Debugf("Event %s published: %v", e.Type, e.Metadata.EventID)
	})

	reminderProc := processor.NewReminderProcessor(dbConn, q, bus, logger)
	notificationProc := processor.NewNotificationProcessor(svc, logger)

	consumer := queue.NewConsumer(q, cfg.Queue.Slots, cfg.Queue.PollInterval)
	consumer.Consume(queue.HighPriority, queue.JobReminderTrigger, reminderProc.HandleTrigger)
	consumer.Consume(queue.Default, queue.JobNotificationSend, notificationProc.HandleSend)

	var wg sync.WaitGroup
	consumer.Start(ctx, &wg)

	collector := health.NewCollector(
		[]string{queue.HighPriority, queue.Default, queue.LowPriority, queue.Scheduled},
		q, consumer, dbConn, cachePinger(cfg), logger, cfg.Health.Interval,
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		collector.Run(ctx)
	}()

	var trigger *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		trigger = kafka.NewConsumer(cfg.Kafka.Broker, cfg.Kafka.Topic, cfg.Kafka.GroupID, q, logger)
		trigger.Start(ctx, &wg)
	}

	handler := api.NewHandler(dbConn, svc, registry, hub, collector, logger)
	router := api.NewRouter(logger, cfg, handler)
	go func() {
		logger.Infof("API server started on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("Shutting down...")
	cancel()
	if trigger != nil {
		trigger.Close()
	}
	wg.Wait()
	logger.Info("Worker stopped")
}

func cachePinger(cfg config.Config) health.Pinger {
	if cfg.Health.CacheAddr == "" {
		return nil
	}
	return health.TCPPinger{Addr: cfg.Health.CacheAddr}
}
