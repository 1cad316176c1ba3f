package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ariefcatur/go-rental-orders.git/internal/config"
	kafkax "github.com/ariefcatur/go-rental-orders.git/internal/kafka"
	"github.com/ariefcatur/go-rental-orders.git/internal/redisx"
	"github.com/ariefcatur/go-rental-orders.git/internal/rental"
	"github.com/ariefcatur/go-rental-orders.git/internal/statuscache"
	"github.com/joho/godotenv"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &statuscache.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-worker",
	}

	group := getenv("WORKER_GROUP", "status-cache")
	workers := mustAtoi(os.Getenv("WORKER_CONCURRENCY"), "4")

	created := kafkax.NewConsumer(cfg.KafkaBrokers, group, rental.TopicOrderCreated, workers)
	changed := kafkax.NewConsumer(cfg.KafkaBrokers, group, rental.TopicPaymentStatusChanged, workers)

	go func() {
		log.Printf("consumer started: group=%s topic=%s workers=%d", group, rental.TopicOrderCreated, workers)
		if err := created.Start(ctx, svc.HandleOrderCreated); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()
	go func() {
		log.Printf("consumer started: group=%s topic=%s workers=%d", group, rental.TopicPaymentStatusChanged, workers)
		if err := changed.Start(ctx, svc.HandleStatusChanged); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down consumers...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
