package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/specialsearch/specialsearch/internal/jobs"
	"github.com/specialsearch/specialsearch/internal/mail"
	"github.com/specialsearch/specialsearch/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (jobs.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type DeliveryLog interface {
	Record(ctx context.Context, jobID, recipient, subject, status string, detail *string) error
}

type Config struct {
	WorkerID     string
	PollInterval time.Duration
	Concurrency  int
	LockTTL      time.Duration
	SweepEvery   time.Duration

	MailFrom          string
	ContactRecipients []string
}

type Worker struct {
	cfg        Config
	repo       JobsRepository
	deliveries DeliveryLog
	mailer     mail.Mailer
	logger     *slog.Logger
	metrics    *observability.JobMetrics

	readyMu sync.RWMutex
	ready   bool
}

func New(
	cfg Config,
	repo JobsRepository,
	deliveries DeliveryLog,
	mailer mail.Mailer,
	logger *slog.Logger,
	metrics *observability.JobMetrics,
) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 60 * time.Second
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewJobMetrics()
	}

	return &Worker{
		cfg:        cfg,
		repo:       repo,
		deliveries: deliveries,
		mailer:     mailer,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run blocks until ctx is cancelled. Each loop goroutine alternates between
// claiming work and sleeping out the poll interval; a separate sweeper
// releases jobs abandoned by dead workers.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}

	wg.Add(1)

	go func() {
		defer wg.Done()
		w.sweepLoop(ctx)
	}()

	<-ctx.Done()
	w.setReady(false)

	wg.Wait()

	w.logger.Info("worker shutdown complete", "worker_id", w.cfg.WorkerID)

	return nil
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		worked, err := w.ProcessOne(ctx)

		if err != nil {
			w.logger.Error("process job", "error", err, "worker_id", w.cfg.WorkerID)
		}

		if worked {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

func (w *Worker) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.LockTTL)

			if err != nil {
				w.logger.Error("requeue stale jobs", "error", err)
				continue
			}

			if n > 0 {
				w.logger.Warn("requeued stale jobs", "count", n)
			}
		}
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
