package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// ReviewCursor pages a review list ordered newest-first; (CreatedAt, ID) is a
// total order even when two reviews share a timestamp.
type ReviewCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func EncodeReviewCursor(createdAt time.Time, id string) (string, error) {
	b, err := json.Marshal(ReviewCursor{CreatedAt: createdAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeReviewCursor(cursor string) (ReviewCursor, error) {
	if cursor == "" {
		return ReviewCursor{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return ReviewCursor{}, err
	}

	var c ReviewCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return ReviewCursor{}, err
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return ReviewCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}
