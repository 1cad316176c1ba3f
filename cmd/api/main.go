package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-rental-orders.git/internal/clock"
	"github.com/ariefcatur/go-rental-orders.git/internal/config"
	"github.com/ariefcatur/go-rental-orders.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-rental-orders.git/internal/kafka"
	"github.com/ariefcatur/go-rental-orders.git/internal/postgres"
	"github.com/ariefcatur/go-rental-orders.git/internal/redisx"
	"github.com/ariefcatur/go-rental-orders.git/internal/rental"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	orderProd := kafkax.NewProducer(cfg.KafkaBrokers, rental.TopicOrderCreated, 1024)
	orderProd.Start(ctx)
	statusProd := kafkax.NewProducer(cfg.KafkaBrokers, rental.TopicPaymentStatusChanged, 1024)
	statusProd.Start(ctx)

	// Engine & handler
	repo := &rental.Repo{DB: db}
	svc := &rental.Service{Store: repo, Clock: clock.NewSystem()}

	router := httpx.NewRouter()
	rh := &httpx.RentalHandler{
		Svc:            svc,
		Store:          repo,
		OrderProducer:  orderProd,
		StatusProducer: statusProd,
		Redis:          rdb,
		Service:        cfg.ServiceName,
	}
	rh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	orderProd.Close() // tutup inbox -> flush & close writer
	statusProd.Close()
	cancel()
	orderProd.WaitClosed()
	statusProd.WaitClosed()
}
