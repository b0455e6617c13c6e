package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialsearch/specialsearch/internal/jobs"
	"github.com/specialsearch/specialsearch/internal/mail"
)

// ProcessOne claims and executes a single job. It reports whether any job was
// available; claim errors are returned, execution errors are absorbed into
// the job's retry state.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	w.metrics.IncClaimed()

	start := time.Now()
	err = w.execute(ctx, j)
	w.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		w.handleFailure(ctx, j, err)
		return true, nil
	}

	if err := w.repo.MarkDone(ctx, j.ID); err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.metrics.IncDone()

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	payload, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	if err := jobs.ValidatePayload(j.Type, payload); err != nil {
		return err
	}

	msg, err := w.compose(j.Type, payload)

	if err != nil {
		return err
	}

	sendErr := w.mailer.Send(ctx, msg)

	w.recordDelivery(ctx, j.ID, msg, sendErr)

	return sendErr
}

func (w *Worker) compose(t jobs.Type, payload any) (mail.Message, error) {
	switch t {
	case jobs.TypeContactEmail:
		p := payload.(jobs.ContactEmailPayload)

		body := fmt.Sprintf(
			"Name: %s\nEmail: %s\nSubmitted: %s\n\n%s\n",
			p.Name, p.Email, p.SubmittedAt.Format(time.RFC3339), p.Message,
		)

		return mail.Message{
			From:    w.cfg.MailFrom,
			ReplyTo: p.Email,
			To:      w.cfg.ContactRecipients,
			Subject: "New contact form message from " + p.Name,
			Body:    body,
		}, nil

	case jobs.TypeResetCodeEmail:
		p := payload.(jobs.ResetCodeEmailPayload)

		name := p.Username
		if name == "" {
			name = "there"
		}

		body := fmt.Sprintf(
			"Hi %s,\n\nYour password reset code is: %s\n\nIt expires at %s. If you did not request a reset, you can ignore this email.\n",
			name, p.Code, p.ExpiresAt.Format(time.RFC1123),
		)

		return mail.Message{
			From:    w.cfg.MailFrom,
			To:      []string{p.Email},
			Subject: "Your password reset code",
			Body:    body,
		}, nil

	default:
		return mail.Message{}, jobs.ErrInvalidJobType
	}
}

func (w *Worker) recordDelivery(ctx context.Context, jobID string, msg mail.Message, sendErr error) {
	if w.deliveries == nil {
		return
	}

	status := "sent"
	var detail *string

	if sendErr != nil {
		status = "failed"
		s := sendErr.Error()
		detail = &s
	}

	recipient := strings.Join(msg.To, ",")

	if err := w.deliveries.Record(ctx, jobID, recipient, msg.Subject, status, detail); err != nil {
		w.logger.Error("record mail delivery", "error", err, "job_id", jobID)
	}
}

func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, execErr error) {
	// permanent payload problems never succeed on retry
	permanent := errors.Is(execErr, jobs.ErrInvalidJobType) ||
		errors.Is(execErr, jobs.ErrInvalidJobPayload) ||
		errors.Is(execErr, jobs.ErrPayloadTypeMismatch)

	if permanent || j.Attempts+1 >= j.MaxAttempts {
		w.metrics.IncFailed()
		w.metrics.IncDeadLettered()

		if err := w.repo.MarkFailed(ctx, j.ID, execErr.Error()); err != nil {
			w.logger.Error("mark job failed", "error", err, "job_id", j.ID)
		}

		w.logger.Error("job dead-lettered",
			"job_id", j.ID, "type", string(j.Type), "attempts", j.Attempts+1, "error", execErr)
		return
	}

	delay := ExponentialBackoff(j.Attempts)

	if errors.Is(execErr, mail.ErrCircuitOpen) {
		// the provider is down for everyone, no point hammering it
		delay = ExponentialBackoff(j.Attempts + 2)
	}

	w.metrics.IncRetried()

	if err := w.repo.Reschedule(ctx, j.ID, time.Now().UTC().Add(delay), execErr.Error()); err != nil {
		w.logger.Error("reschedule job", "error", err, "job_id", j.ID)
		return
	}

	w.logger.Warn("job rescheduled",
		"job_id", j.ID, "type", string(j.Type), "attempts", j.Attempts+1, "delay", delay.String(), "error", execErr)
}
