package main

import (
	"context"
	"fmt"
	"time"

	"github.com/karimjaber/finsync-service/internal/config"
	"github.com/karimjaber/finsync-service/internal/logger"
	"github.com/karimjaber/finsync-service/internal/repo"
	"github.com/karimjaber/finsync-service/internal/service"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"
)

// The job wakes every minute and asks the sync service for due users. Total
// dispatch volume is bounded twice: the limiter caps requests per minute and
// the policy batch size caps each sweep.
func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger("finsync-syncjob")
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.SyncTopic,
		Balancer: &kafka.LeastBytes{},
	}

	repository := repo.NewRepository(gdb, rdb, kw, log)
	batch := cfg.Sync.BatchPolicy()
	syncSvc := service.NewSyncService(repository, cfg.Sync.Thresholds(), batch, log)

	limiter := rate.NewLimiter(rate.Limit(float64(batch.RatePerMinute)/60.0), batch.BatchSize)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	log.Infof("finsync-syncjob started, skip-if-synced-within=%s batch=%d rate=%d/min",
		batch.SkipIfSyncedWithin, batch.BatchSize, batch.RatePerMinute)
	for range ticker.C {
		ctx := context.Background()
		if err := limiter.WaitN(ctx, 1); err != nil {
			log.Errorf("rate limiter: %v", err)
			continue
		}
		users, err := syncSvc.DispatchDue(ctx)
		if err != nil {
			log.Errorf("dispatch due users: %v", err)
			continue
		}
		if len(users) > 0 {
			log.Infof("requested re-sync for %d users: %v", len(users), users)
		}
	}
}
