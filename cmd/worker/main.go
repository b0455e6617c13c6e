package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/specialsearch/specialsearch/internal/config"
	"github.com/specialsearch/specialsearch/internal/db"
	"github.com/specialsearch/specialsearch/internal/mail"
	"github.com/specialsearch/specialsearch/internal/observability"
	"github.com/specialsearch/specialsearch/internal/queue/worker"
	"github.com/specialsearch/specialsearch/internal/repo/postgres"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	jobsRepo := postgres.NewJobsRepo(pool, nil)
	deliveriesRepo := postgres.NewMailDeliveriesRepo(pool, nil)

	var inner mail.Mailer = mail.NewLogMailer()

	if cfg.Env == "production" {
		inner = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
		})
	}

	mailer := mail.NewProtectedMailer(inner, mail.ProtectedMailerConfig{
		Timeout:          5 * time.Second,
		FailureThreshold: 3,
		Cooldown:         15 * time.Second,
		HalfOpenMaxCalls: 1,
	})

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		WorkerID:          workerID,
		PollInterval:      200 * time.Millisecond,
		Concurrency:       4,
		LockTTL:           60 * time.Second,
		SweepEvery:        30 * time.Second,
		MailFrom:          cfg.MailFrom,
		ContactRecipients: cfg.ContactRecipients,
	}, jobsRepo, deliveriesRepo, mailer, log, observability.NewJobMetrics())

	healthSrv := &http.Server{
		Addr:              ":9091",
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(sctx)
}
