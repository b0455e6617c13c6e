package jobs

import (
	"encoding/json"
	"time"
)

// ContactEmailPayload carries a contact-form submission. The message travels
// with the job so the worker needs no further lookups.
type ContactEmailPayload struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submittedAt"`
	RequestID   string    `json:"requestId,omitempty"`
}

// ResetCodeEmailPayload delivers a one-time password-reset code. The code is
// included verbatim; the mail template is the worker's concern.
type ResetCodeEmailPayload struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (p ContactEmailPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func (p ResetCodeEmailPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
