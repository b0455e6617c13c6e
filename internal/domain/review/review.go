package review

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("review not found")

type Review struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	ResourceID string    `json:"resourceId"`
	Rating     int       `json:"rating"`
	Review     string    `json:"review"`
	CreatedAt  time.Time `json:"date"`

	// joined from the users table when listing
	Username      string `json:"username,omitempty"`
	ProfilePicURL string `json:"profilePicUrl,omitempty"`
}

type CreateRequest struct {
	UserID     string `json:"userId" binding:"required"`
	ResourceID string `json:"resourceId" binding:"required"`
	Rating     int    `json:"rating" binding:"required,min=1,max=5"`
	Review     string `json:"review" binding:"required"`
}
