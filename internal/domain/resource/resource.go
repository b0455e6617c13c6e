package resource

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("resource not found")

type Location struct {
	Address string   `json:"address"`
	City    string   `json:"city"`
	State   string   `json:"state"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// Resource is a special-needs service listing (clinic, tutor, therapy
// program, ...).
type Resource struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Location  Location  `json:"location"`
	Contact   string    `json:"contact"`
	Languages string    `json:"languages"`
	Website   string    `json:"website"`
	Notes     string    `json:"notes"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	Name      string   `json:"name" binding:"required"`
	Type      string   `json:"type"`
	Location  Location `json:"location"`
	Contact   string   `json:"contact"`
	Languages string   `json:"languages"`
	Website   string   `json:"website"`
	Notes     string   `json:"notes"`
	Image     string   `json:"image"`
}

// UpdateRequest is a partial update; nil fields stay untouched.
type UpdateRequest struct {
	Name      *string   `json:"name"`
	Type      *string   `json:"type"`
	Location  *Location `json:"location"`
	Contact   *string   `json:"contact"`
	Languages *string   `json:"languages"`
	Website   *string   `json:"website"`
	Notes     *string   `json:"notes"`
	Image     *string   `json:"image"`
}

type ListFilter struct {
	Type string
	City string
}
