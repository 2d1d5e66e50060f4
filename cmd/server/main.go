package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/karimjaber/finsync-service/internal/config"
	"github.com/karimjaber/finsync-service/internal/idempotency"
	"github.com/karimjaber/finsync-service/internal/logger"
	"github.com/karimjaber/finsync-service/internal/model"
	"github.com/karimjaber/finsync-service/internal/repo"
	"github.com/karimjaber/finsync-service/internal/service"
	"github.com/karimjaber/finsync-service/internal/signature"
	httptransport "github.com/karimjaber/finsync-service/internal/transport/http"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. load config
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger("finsync-server")
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	if cfg.Webhook.Secret == "" {
		log.Fatal("WEBHOOK_SECRET is required")
	}

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(&model.ProcessedEvent{}, &model.BankAccount{}, &model.Subscription{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 4. redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. kafka writer for sync requests
	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.SyncTopic,
		Balancer: &kafka.LeastBytes{},
	}

	// 6. repo & services
	repository := repo.NewRepository(gdb, rdb, kw, log)
	tracker := idempotency.NewTracker(repository, log)
	webhookSvc := service.NewWebhookService(cfg.Webhook.Secret, signature.Algorithm(cfg.Webhook.Algorithm), tracker, repository, log)
	syncSvc := service.NewSyncService(repository, cfg.Sync.Thresholds(), cfg.Sync.BatchPolicy(), log)

	// 7. gin router
	router := httptransport.NewRouter(webhookSvc, syncSvc, cfg.RateLimit, log)

	// 8. serve
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("finsync-server listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
