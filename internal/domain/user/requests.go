package user

// CreateRequest carries the fields needed to create a user record.
// The password arrives already hashed; handlers never pass plaintext down.
type CreateRequest struct {
	Email         string
	Username      string
	PasswordHash  string
	ProfilePicURL string
}

// UpdateRequest is a partial profile update. Nil means "leave unchanged".
type UpdateRequest struct {
	Username      *string
	Email         *string
	PasswordHash  *string
	ProfilePicURL *string
	Location      *Location
}

func (r UpdateRequest) Empty() bool {
	return r.Username == nil &&
		r.Email == nil &&
		r.PasswordHash == nil &&
		r.ProfilePicURL == nil &&
		r.Location == nil
}
