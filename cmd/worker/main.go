package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/logger"
	"rollcall/internal/queue"
	"rollcall/internal/store"
)

// Worker runs the expiry sweep on an interval and consumes check-in
// events to maintain the recent-activity view in Redis.
func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	mongo, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatal("mongo connect failed", zap.Error(err))
	}
	defer func() { _ = mongo.Close(context.Background()) }()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:checkins")
	}

	records := attendance.NewMongoStore(mongo.DB, cfg.StoreTimeout)
	sweeper := attendance.NewSweeper(records, log)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal("queue consume init failed", zap.Error(err))
	}

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	log.Info("worker started",
		zap.Duration("sweep_interval", cfg.SweepInterval),
		zap.Duration("recheck_window", cfg.RecheckWindow),
	)

	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return

		case <-ticker.C:
			res, err := sweeper.Sweep(ctx, time.Now().UTC())
			if err != nil {
				log.Error("sweep failed", zap.Error(err))
				continue
			}
			if res.Processed > 0 || res.Failed > 0 {
				log.Info("sweep completed",
					zap.Int("processed", res.Processed),
					zap.Int("failed", res.Failed),
				)
			}

		case msg, open := <-messages:
			if !open {
				log.Info("queue closed, worker stopped")
				return
			}
			if msg.Type != "checkin" {
				continue
			}
			var evt queue.CheckinEvent
			if err := json.Unmarshal(msg.Body, &evt); err != nil {
				log.Warn("malformed checkin event", zap.Error(err))
				continue
			}
			if err := redisClient.TouchCheckin(ctx, evt.StudentID, evt.At); err != nil {
				log.Warn("recent-activity update failed",
					zap.String("event_id", evt.EventID),
					zap.Error(err),
				)
				continue
			}
			log.Debug("checkin event processed",
				zap.String("event_id", evt.EventID),
				zap.Int64("student_id", evt.StudentID),
				zap.Int("week_id", evt.WeekID),
			)
		}
	}
}
