package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/specialsearch/specialsearch/internal/jobs"
	"github.com/specialsearch/specialsearch/internal/mail"
	"github.com/specialsearch/specialsearch/internal/observability"
)

type fakeJobsRepo struct {
	job     *jobs.Job
	claimed bool

	doneID       string
	failedID     string
	failedMsg    string
	rescheduled  bool
	rescheduleAt time.Time
}

func (f *fakeJobsRepo) ClaimNext(ctx context.Context, workerID string) (jobs.Job, error) {
	if f.job == nil || f.claimed {
		return jobs.Job{}, jobs.ErrJobNotFound
	}
	f.claimed = true
	return *f.job, nil
}

func (f *fakeJobsRepo) MarkDone(ctx context.Context, id string) error {
	f.doneID = id
	return nil
}

func (f *fakeJobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	f.failedID = id
	f.failedMsg = errMsg
	return nil
}

func (f *fakeJobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	f.rescheduled = true
	f.rescheduleAt = runAt
	return nil
}

func (f *fakeJobsRepo) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	return 0, nil
}

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeDeliveryLog struct {
	statuses []string
}

func (f *fakeDeliveryLog) Record(ctx context.Context, jobID, recipient, subject, status string, detail *string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func contactJob(t *testing.T, attempts, maxAttempts int) jobs.Job {
	t.Helper()

	payload, err := jobs.ContactEmailPayload{
		Name:        "Dana",
		Email:       "dana@example.com",
		Message:     "Do you have ABA therapy listings in Austin?",
		SubmittedAt: time.Now().UTC(),
	}.JSON()

	if err != nil {
		t.Fatalf("payload: %v", err)
	}

	j := jobs.New(jobs.CreateRequest{Type: jobs.TypeContactEmail, Payload: payload})
	j.Attempts = attempts
	j.MaxAttempts = maxAttempts

	return j
}

func newTestWorker(repo *fakeJobsRepo, m mail.Mailer, d DeliveryLog) *Worker {
	return New(Config{
		WorkerID:          "test-1",
		MailFrom:          "no-reply@specialsearch.app",
		ContactRecipients: []string{"team@specialsearch.app"},
	}, repo, d, m, slog.Default(), observability.NewJobMetrics())
}

func TestProcessOneNoJob(t *testing.T) {
	repo := &fakeJobsRepo{}
	w := newTestWorker(repo, &fakeMailer{}, &fakeDeliveryLog{})

	worked, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if worked {
		t.Fatal("expected no work")
	}
}

func TestProcessOneSendsContactMail(t *testing.T) {
	j := contactJob(t, 0, 5)
	repo := &fakeJobsRepo{job: &j}
	mailer := &fakeMailer{}
	deliveries := &fakeDeliveryLog{}

	w := newTestWorker(repo, mailer, deliveries)

	worked, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !worked {
		t.Fatal("expected work")
	}
	if repo.doneID != j.ID {
		t.Fatalf("job not marked done, doneID=%q", repo.doneID)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(mailer.sent))
	}

	msg := mailer.sent[0]

	if msg.ReplyTo != "dana@example.com" {
		t.Fatalf("reply-to = %q", msg.ReplyTo)
	}
	if len(msg.To) != 1 || msg.To[0] != "team@specialsearch.app" {
		t.Fatalf("to = %v", msg.To)
	}

	if len(deliveries.statuses) != 1 || deliveries.statuses[0] != "sent" {
		t.Fatalf("delivery statuses = %v", deliveries.statuses)
	}
}

func TestProcessOneReschedulesOnSendFailure(t *testing.T) {
	j := contactJob(t, 1, 5)
	repo := &fakeJobsRepo{job: &j}
	mailer := &fakeMailer{err: errors.New("smtp: connection refused")}

	w := newTestWorker(repo, mailer, &fakeDeliveryLog{})

	worked, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !worked {
		t.Fatal("expected work")
	}

	if !repo.rescheduled {
		t.Fatal("expected reschedule")
	}
	if repo.failedID != "" {
		t.Fatal("should not be marked failed before max attempts")
	}
	if !repo.rescheduleAt.After(time.Now().UTC()) {
		t.Fatalf("reschedule time not in the future: %v", repo.rescheduleAt)
	}
}

func TestProcessOneDeadLettersAtMaxAttempts(t *testing.T) {
	j := contactJob(t, 4, 5)
	repo := &fakeJobsRepo{job: &j}
	mailer := &fakeMailer{err: errors.New("smtp: connection refused")}

	w := newTestWorker(repo, mailer, &fakeDeliveryLog{})

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.failedID != j.ID {
		t.Fatal("expected job to be marked failed")
	}
	if repo.rescheduled {
		t.Fatal("dead-lettered job must not be rescheduled")
	}
}

func TestProcessOneDeadLettersBadPayload(t *testing.T) {
	j := jobs.New(jobs.CreateRequest{Type: jobs.TypeContactEmail, Payload: []byte(`{"name":""}`)})
	repo := &fakeJobsRepo{job: &j}

	w := newTestWorker(repo, &fakeMailer{}, &fakeDeliveryLog{})

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.failedID != j.ID {
		t.Fatal("invalid payload should dead-letter immediately")
	}
	if repo.rescheduled {
		t.Fatal("invalid payload must not be retried")
	}
}
