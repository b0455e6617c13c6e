package jobs

type Type string

const (
	// TypeContactEmail relays a contact-form submission to the team inbox.
	TypeContactEmail Type = "contact.email"

	// TypeResetCodeEmail delivers a one-time password-reset code.
	TypeResetCodeEmail Type = "reset_code.email"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeContactEmail, TypeResetCodeEmail:
		return true
	default:
		return false
	}
}
