package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collegehub/internal/config"
	"collegehub/internal/realtime"
	"collegehub/internal/schedule"
	"collegehub/internal/store"
)

// Worker sweeps the timetable, clearing live flags that outlived their
// window. The API self-heals on read; the sweeper bounds how long a stale
// flag can sit unread.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var broker realtime.Broker
	if cfg.FanoutBackend == "memory" {
		broker = realtime.NewMemory(64)
	} else {
		broker = realtime.NewRedisBroker(redisClient.Client, cfg.FanoutChannel)
	}

	svc := schedule.NewService(schedule.NewRepo(db.Client), realtime.NewEmitter(broker))

	log.Printf("sweeper started, interval %s", cfg.SweepInterval)
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweepCtx, done := context.WithTimeout(ctx, 30*time.Second)
			corrected, err := svc.Sweep(sweepCtx)
			done()
			if err != nil {
				log.Printf("sweep failed: %v", err)
				continue
			}
			if corrected > 0 {
				log.Printf("sweep corrected %d stale live flag(s)", corrected)
			}
		case <-ctx.Done():
			log.Println("sweeper stopped")
			return
		}
	}
}
