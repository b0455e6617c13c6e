package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RESTProvider talks to a Firebase-Identity-Toolkit-style HTTP API. Only the
// handful of operations the app needs are implemented; everything else about
// the provider is treated as opaque.
type RESTProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRESTProvider(baseURL, apiKey string) *RESTProvider {
	return &RESTProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (p *RESTProvider) Enabled() bool { return true }

type authResponse struct {
	LocalID string `json:"localId"`
	IDToken string `json:"idToken"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *RESTProvider) SignUp(ctx context.Context, email, password string) (string, error) {
	resp, err := p.post(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})

	if err != nil {
		return "", err
	}

	return resp.LocalID, nil
}

func (p *RESTProvider) SignIn(ctx context.Context, email, password string) (string, error) {
	resp, err := p.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})

	if err != nil {
		return "", err
	}

	return resp.LocalID, nil
}

func (p *RESTProvider) UpdatePassword(ctx context.Context, email, currentPassword, newPassword string) error {
	// the provider wants a fresh credential before a password change
	resp, err := p.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          currentPassword,
		"returnSecureToken": true,
	})

	if err != nil {
		return err
	}

	_, err = p.post(ctx, "accounts:update", map[string]any{
		"idToken":           resp.IDToken,
		"password":          newPassword,
		"returnSecureToken": false,
	})

	return err
}

func (p *RESTProvider) Delete(ctx context.Context, email, password string) error {
	resp, err := p.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})

	if err != nil {
		return err
	}

	_, err = p.post(ctx, "accounts:delete", map[string]any{
		"idToken": resp.IDToken,
	})

	return err
}

func (p *RESTProvider) post(ctx context.Context, endpoint string, body map[string]any) (*authResponse, error) {
	payload, err := json.Marshal(body)

	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?key=%s", p.baseURL, endpoint, p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))

	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(req)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	defer httpResp.Body.Close()

	var resp authResponse

	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: bad response: %v", ErrUnavailable, err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, mapProviderError(resp)
	}

	return &resp, nil
}

func mapProviderError(resp authResponse) error {
	if resp.Error == nil {
		return ErrUnavailable
	}

	msg := resp.Error.Message

	switch {
	case strings.HasPrefix(msg, "EMAIL_EXISTS"):
		return ErrEmailExists
	case strings.HasPrefix(msg, "EMAIL_NOT_FOUND"):
		return ErrUserNotFound
	case strings.HasPrefix(msg, "INVALID_PASSWORD"),
		strings.HasPrefix(msg, "INVALID_LOGIN_CREDENTIALS"):
		return ErrInvalidCredentials
	default:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}
}
