package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/specialsearch/specialsearch/internal/auth"
	"github.com/specialsearch/specialsearch/internal/config"
	"github.com/specialsearch/specialsearch/internal/db"
	apphttp "github.com/specialsearch/specialsearch/internal/http"
	"github.com/specialsearch/specialsearch/internal/http/middlewares"
	"github.com/specialsearch/specialsearch/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func testConfig() config.Config {
	return config.Config{
		Env:                 "test",
		JWTSecret:           "test-secret-key",
		SessionTTLDays:      7,
		ResetCodeTTLMinutes: 15,
	}
}

func setupTestRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")

	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping database-backed tests")
	}

	ctx := context.Background()

	if err := db.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)

	if err != nil {
		t.Fatalf("failed to create pgx pool: %v", err)
	}

	t.Cleanup(pool.Close)

	cfg := testConfig()

	router := apphttp.NewRouter(apphttp.Deps{
		Cfg:  cfg,
		Pool: pool,
		Prom: observability.NewProm(prometheus.NewRegistry()),
		JWT:  auth.NewManager(cfg.JWTSecret, cfg.SessionTTL()),
	})

	return router, pool
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE mail_deliveries, jobs, reviews, user_favorites, resources, users
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func doRequest(router http.Handler, method, path string, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, *http.Response) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w, w.Result()
}

func extractSessionCookie(t *testing.T, response *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range response.Cookies() {
		if c.Name == middlewares.SessionCookieName {
			return c
		}
	}

	t.Fatalf("session cookie not found in response")

	return nil
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

type userResponse struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func registerAndLogin(t *testing.T, router http.Handler, email, password string) (string, *http.Cookie) {
	t.Helper()

	registerBody := `{"email":"` + email + `","username":"sam","password":"` + password + `"}`

	w, _ := doRequest(router, http.MethodPost, "/api/users/register", registerBody)

	if w.Code != http.StatusCreated {
		t.Fatalf("register got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	loginBody := `{"email":"` + email + `","password":"` + password + `"}`

	w2, response := doRequest(router, http.MethodPost, "/api/users/login", loginBody)

	if w2.Code != http.StatusOK {
		t.Fatalf("login got status %d, want %d, body=%s", w2.Code, http.StatusOK, w2.Body.String())
	}

	var loggedIn userResponse
	mustReadJSON(t, w2, &loggedIn)

	if loggedIn.User.ID == "" {
		t.Fatalf("login response missing user id, body=%s", w2.Body.String())
	}

	return loggedIn.User.ID, extractSessionCookie(t, response)
}

func TestSessionIntegration_Register_Login_Me_Logout(t *testing.T) {
	router, pool := setupTestRouter(t)
	resetDB(t, pool)

	defer resetDB(t, pool)

	userID, session := registerAndLogin(t, router, "sam@example.com", "password123")

	// ME with the session cookie

	w, _ := doRequest(router, http.MethodGet, "/api/users/me", "", session)

	if w.Code != http.StatusOK {
		t.Fatalf("me got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var me struct {
		UserID string `json:"userId"`
	}
	mustReadJSON(t, w, &me)

	if me.UserID != userID {
		t.Fatalf("me userId = %q, want %q", me.UserID, userID)
	}

	// duplicate register must fail

	w2, _ := doRequest(router, http.MethodPost, "/api/users/register",
		`{"email":"sam@example.com","username":"other","password":"password456"}`)

	if w2.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register got status %d, want %d, body=%s", w2.Code, http.StatusBadRequest, w2.Body.String())
	}

	// LOGOUT clears the cookie

	w3, response3 := doRequest(router, http.MethodPost, "/api/users/logout", "", session)

	if w3.Code != http.StatusNoContent {
		t.Fatalf("logout got status %d, want %d, body=%s", w3.Code, http.StatusNoContent, w3.Body.String())
	}

	cleared := false

	for _, c := range response3.Cookies() {
		if c.Name == middlewares.SessionCookieName && (c.MaxAge < 0 || c.Value == "") {
			cleared = true
		}
	}

	if !cleared {
		t.Fatalf("expected logout to clear the session cookie")
	}

	// ME without a cookie

	w4, _ := doRequest(router, http.MethodGet, "/api/users/me", "")

	if w4.Code != http.StatusUnauthorized {
		t.Fatalf("me(no cookie) got status %d, want %d, body=%s", w4.Code, http.StatusUnauthorized, w4.Body.String())
	}
}

func TestFavoritesIntegration_ToggleFlipsMembership(t *testing.T) {
	router, pool := setupTestRouter(t)
	resetDB(t, pool)

	defer resetDB(t, pool)

	userID, session := registerAndLogin(t, router, "fav@example.com", "password123")

	// a resource to favorite

	w, _ := doRequest(router, http.MethodPost, "/api/resources",
		`{"name":"Bright Start Clinic","type":"clinic"}`, session)

	if w.Code != http.StatusCreated {
		t.Fatalf("create resource got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	var created struct {
		Resource struct {
			ID string `json:"id"`
		} `json:"resource"`
	}
	mustReadJSON(t, w, &created)

	toggle := func() (int, bool) {
		w, _ := doRequest(router, http.MethodPatch, "/api/users/"+userID+"/favorites",
			`{"resourceId":"`+created.Resource.ID+`"}`, session)

		var resp struct {
			IsFav bool `json:"isFav"`
		}

		if w.Code == http.StatusOK {
			mustReadJSON(t, w, &resp)
		}

		return w.Code, resp.IsFav
	}

	if code, isFav := toggle(); code != http.StatusOK || !isFav {
		t.Fatalf("first toggle: code=%d isFav=%v, want 200/true", code, isFav)
	}

	// the list endpoint returns the bare id array

	wList, _ := doRequest(router, http.MethodGet, "/api/users/"+userID+"/favorites", "", session)

	var favs []string
	mustReadJSON(t, wList, &favs)

	if len(favs) != 1 || favs[0] != created.Resource.ID {
		t.Fatalf("favorites = %v, want [%s]", favs, created.Resource.ID)
	}

	if code, isFav := toggle(); code != http.StatusOK || isFav {
		t.Fatalf("second toggle: code=%d isFav=%v, want 200/false", code, isFav)
	}

	// another user's favorites are off limits

	_, otherSession := registerAndLogin(t, router, "other@example.com", "password123")

	wForbidden, _ := doRequest(router, http.MethodPatch, "/api/users/"+userID+"/favorites",
		`{"resourceId":"`+created.Resource.ID+`"}`, otherSession)

	if wForbidden.Code != http.StatusForbidden {
		t.Fatalf("cross-user toggle got status %d, want %d, body=%s",
			wForbidden.Code, http.StatusForbidden, wForbidden.Body.String())
	}
}

func TestPasswordResetIntegration_CodeIsSingleUse(t *testing.T) {
	router, pool := setupTestRouter(t)
	resetDB(t, pool)

	defer resetDB(t, pool)

	registerAndLogin(t, router, "reset@example.com", "password123")

	w, _ := doRequest(router, http.MethodPost, "/api/users/forgot-password",
		`{"email":"reset@example.com"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("forgot-password got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	// the code travels by mail; read it straight from the row here

	var code string

	err := pool.QueryRow(context.Background(),
		`SELECT reset_code FROM users WHERE email = $1`, "reset@example.com").Scan(&code)

	if err != nil || code == "" {
		t.Fatalf("expected a stored reset code, err=%v code=%q", err, code)
	}

	// a mail job must have been queued alongside the code

	var jobCount int

	if err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM jobs WHERE type = 'reset_code.email'`).Scan(&jobCount); err != nil || jobCount != 1 {
		t.Fatalf("expected exactly one reset mail job, err=%v count=%d", err, jobCount)
	}

	// wrong code is rejected and keeps the stored code usable

	wBad, _ := doRequest(router, http.MethodPatch, "/api/users/reset-password",
		`{"email":"reset@example.com","otp":"000000","newPassword":"newpassword1"}`)

	if wBad.Code != http.StatusBadRequest {
		t.Fatalf("reset(wrong code) got status %d, want %d, body=%s", wBad.Code, http.StatusBadRequest, wBad.Body.String())
	}

	wOK, _ := doRequest(router, http.MethodPatch, "/api/users/reset-password",
		`{"email":"reset@example.com","otp":"`+code+`","newPassword":"newpassword1"}`)

	if wOK.Code != http.StatusOK {
		t.Fatalf("reset got status %d, want %d, body=%s", wOK.Code, http.StatusOK, wOK.Body.String())
	}

	// the code is consumed; replaying it must fail

	wReplay, _ := doRequest(router, http.MethodPatch, "/api/users/reset-password",
		`{"email":"reset@example.com","otp":"`+code+`","newPassword":"anotherpass1"}`)

	if wReplay.Code != http.StatusBadRequest {
		t.Fatalf("reset(replay) got status %d, want %d, body=%s", wReplay.Code, http.StatusBadRequest, wReplay.Body.String())
	}

	// old password is gone, new one works

	wOld, _ := doRequest(router, http.MethodPost, "/api/users/login",
		`{"email":"reset@example.com","password":"password123"}`)

	if wOld.Code != http.StatusBadRequest {
		t.Fatalf("login(old password) got status %d, want %d, body=%s", wOld.Code, http.StatusBadRequest, wOld.Body.String())
	}

	wNew, _ := doRequest(router, http.MethodPost, "/api/users/login",
		`{"email":"reset@example.com","password":"newpassword1"}`)

	if wNew.Code != http.StatusOK {
		t.Fatalf("login(new password) got status %d, want %d, body=%s", wNew.Code, http.StatusOK, wNew.Body.String())
	}
}

func TestPasswordResetIntegration_ExpiredCodeIsRejected(t *testing.T) {
	router, pool := setupTestRouter(t)
	resetDB(t, pool)

	defer resetDB(t, pool)

	registerAndLogin(t, router, "expired@example.com", "password123")

	w, _ := doRequest(router, http.MethodPost, "/api/users/forgot-password",
		`{"email":"expired@example.com"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("forgot-password got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var code string

	err := pool.QueryRow(context.Background(),
		`SELECT reset_code FROM users WHERE email = $1`, "expired@example.com").Scan(&code)

	if err != nil || code == "" {
		t.Fatalf("expected a stored reset code, err=%v code=%q", err, code)
	}

	// age the code past its window

	if _, err := pool.Exec(context.Background(),
		`UPDATE users SET reset_code_expires_at = NOW() - interval '1 minute' WHERE email = $1`,
		"expired@example.com"); err != nil {
		t.Fatalf("failed to backdate expiry: %v", err)
	}

	wExpired, _ := doRequest(router, http.MethodPatch, "/api/users/reset-password",
		`{"email":"expired@example.com","otp":"`+code+`","newPassword":"newpassword1"}`)

	if wExpired.Code != http.StatusBadRequest {
		t.Fatalf("reset(expired code) got status %d, want %d, body=%s",
			wExpired.Code, http.StatusBadRequest, wExpired.Body.String())
	}

	var e struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	mustReadJSON(t, wExpired, &e)

	if e.Error.Code != "code_expired" {
		t.Fatalf("error code = %q, want code_expired", e.Error.Code)
	}

	// a rejected attempt rolls back: code and password are untouched

	var storedCode *string

	if err := pool.QueryRow(context.Background(),
		`SELECT reset_code FROM users WHERE email = $1`, "expired@example.com").Scan(&storedCode); err != nil {
		t.Fatalf("failed to re-read reset code: %v", err)
	}
	if storedCode == nil || *storedCode != code {
		t.Fatalf("stored code changed after rejected attempt: got %v, want %q", storedCode, code)
	}

	wOld, _ := doRequest(router, http.MethodPost, "/api/users/login",
		`{"email":"expired@example.com","password":"password123"}`)

	if wOld.Code != http.StatusOK {
		t.Fatalf("login(old password) got status %d, want %d, body=%s", wOld.Code, http.StatusOK, wOld.Body.String())
	}
}

func TestContactIntegration_QueuesMailJob(t *testing.T) {
	router, pool := setupTestRouter(t)
	resetDB(t, pool)

	defer resetDB(t, pool)

	w, _ := doRequest(router, http.MethodPost, "/api/contact",
		`{"name":"Lina","email":"lina@example.com","message":"Do you cover my area?"}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("contact got status %d, want %d, body=%s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var jobCount int

	if err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM jobs WHERE type = 'contact.email' AND status = 'pending'`).Scan(&jobCount); err != nil || jobCount != 1 {
		t.Fatalf("expected exactly one pending contact job, err=%v count=%d", err, jobCount)
	}
}
