package user

import "time"

// Location is the optional nested address on a user profile. Every field is
// independently updatable; lat/lng are pointers so "not set" survives a
// partial update.
type Location struct {
	Address string   `json:"address"`
	City    string   `json:"city"`
	State   string   `json:"state"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"` // never expose hash in JSON
	ProfilePicURL string    `json:"profilePicUrl,omitempty"`
	Location      Location  `json:"location"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// reset code state lives on the record only between a reset request
	// and its consumption
	ResetCode        *string    `json:"-"`
	ResetCodeExpires *time.Time `json:"-"`
}

// Public is the minimal profile returned by login and profile lookups.
type Public struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	Username      string   `json:"username"`
	ProfilePicURL string   `json:"profilePicUrl,omitempty"`
	Location      Location `json:"location"`
}

func (u User) Public() Public {
	return Public{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		ProfilePicURL: u.ProfilePicURL,
		Location:      u.Location,
	}
}
