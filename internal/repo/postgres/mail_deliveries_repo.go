package postgres

import (
	"context"

	"github.com/specialsearch/specialsearch/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// MailDeliveriesRepo is an append-only audit log of outbound mail attempts.
type MailDeliveriesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewMailDeliveriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *MailDeliveriesRepo {
	return &MailDeliveriesRepo{pool: pool, prom: prom}
}

func (r *MailDeliveriesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *MailDeliveriesRepo) Record(ctx context.Context, jobID, recipient, subject, status string, detail *string) error {
	return r.observe("mail_deliveries.record", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO mail_deliveries (id, job_id, recipient, subject, status, detail, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,NOW())
		`, uuid.NewString(), jobID, recipient, subject, status, detail)

		return err
	})
}
