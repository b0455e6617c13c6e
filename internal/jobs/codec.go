package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
)

func EncodePayload(t Type, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case TypeContactEmail:
		if !isPayload[ContactEmailPayload](payload) {
			return nil, ErrPayloadTypeMismatch
		}

	case TypeResetCodeEmail:
		if !isPayload[ResetCodeEmailPayload](payload) {
			return nil, ErrPayloadTypeMismatch
		}
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals job.Payload into the typed payload for its type.
func DecodePayload(j Job) (any, error) {
	if !j.Type.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch j.Type {
	case TypeContactEmail:
		var p ContactEmailPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	case TypeResetCodeEmail:
		var p ResetCodeEmailPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}

// ValidatePayload performs minimal semantic validation on decoded payloads.
func ValidatePayload(t Type, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	trim := strings.TrimSpace

	switch t {
	case TypeContactEmail:
		p, ok := asPayload[ContactEmailPayload](payload)
		if !ok {
			return ErrPayloadTypeMismatch
		}
		if trim(p.Name) == "" || trim(p.Email) == "" || trim(p.Message) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case TypeResetCodeEmail:
		p, ok := asPayload[ResetCodeEmailPayload](payload)
		if !ok {
			return ErrPayloadTypeMismatch
		}
		if trim(p.Email) == "" || trim(p.Code) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}

func isPayload[T any](payload any) bool {
	_, ok := asPayload[T](payload)
	return ok
}

func asPayload[T any](payload any) (T, bool) {
	switch v := payload.(type) {
	case T:
		return v, true
	case *T:
		return *v, true
	default:
		var zero T
		return zero, false
	}
}
