package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskman/models"
)

func TestRegisterValidation(t *testing.T) {
	r := setupTestServer(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"short name", map[string]string{"name": "Bob", "email": "bob@x.com", "password": "secret1"}},
		{"short multibyte name", map[string]string{"name": "ééé", "email": "bob@x.com", "password": "secret1"}},
		{"long name", map[string]string{"name": "0123456789012345678901234567890", "email": "bob@x.com", "password": "secret1"}},
		{"bad email", map[string]string{"name": "Bob Jones", "email": "not-an-email", "password": "secret1"}},
		{"short password", map[string]string{"name": "Bob Jones", "email": "bob@x.com", "password": "bad"}},
	}
	for _, tc := range cases {
		resp := performRequest(r, http.MethodPost, "/api/user/register", jsonBody(t, tc.body), "")
		if resp.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d body=%s", tc.name, resp.Code, resp.Body.String())
		}
	}

	// name bounds count characters, not bytes: 5 two-byte runes are enough
	resp := performRequest(r, http.MethodPost, "/api/user/register",
		jsonBody(t, map[string]string{"name": "ééééé", "email": "eve@x.com", "password": "secret1"}), "")
	if resp.Code != http.StatusCreated {
		t.Errorf("5-rune multibyte name: expected 201, got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := setupTestServer(t)

	body := map[string]string{"name": "Alice Smith", "email": "a@x.com", "password": "secret1"}
	resp := performRequest(r, http.MethodPost, "/api/user/register", jsonBody(t, body), "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("first register failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	body["name"] = "Other Person"
	resp = performRequest(r, http.MethodPost, "/api/user/register", jsonBody(t, body), "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for duplicate email, got %d body=%s", resp.Code, resp.Body.String())
	}
	var errResp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &errResp)
	if errResp.Success || errResp.Message == "" {
		t.Fatalf("expected error envelope, got %s", resp.Body.String())
	}
}

func TestLoginWrongPassword(t *testing.T) {
	r := setupTestServer(t)
	registerAndLogin(t, r, "Alice Smith", "a@x.com", "secret1")

	wrong := performRequest(r, http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": "a@x.com", "password": "secret2"}), "")
	unknown := performRequest(r, http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": "nobody@x.com", "password": "secret2"}), "")
	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrong.Code, unknown.Code)
	}
	// no user enumeration: identical message whether or not the email exists
	var a, b map[string]any
	_ = json.Unmarshal(wrong.Body.Bytes(), &a)
	_ = json.Unmarshal(unknown.Body.Bytes(), &b)
	if a["message"] != b["message"] {
		t.Fatalf("wrong-password messages differ: %v vs %v", a["message"], b["message"])
	}
}

func TestLoginAlreadyLoggedIn(t *testing.T) {
	r := setupTestServer(t)
	token := registerAndLogin(t, r, "Alice Smith", "a@x.com", "secret1")

	// Second login carrying the live session cookie is blocked.
	req, _ := http.NewRequest(http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": "a@x.com", "password": "secret1"}))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: token})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 while already logged in, got %d body=%s", rec.Code, rec.Body.String())
	}

	// Once that token is blacklisted, the same request succeeds.
	resp := performRequest(r, http.MethodPost, "/api/auth/logout", nil, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("logout failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	req, _ = http.NewRequest(http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": "a@x.com", "password": "secret1"}))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: token})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login to proceed with blacklisted token, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestEditUser(t *testing.T) {
	r := setupTestServer(t)
	token := registerAndLogin(t, r, "Alice Smith", "a@x.com", "secret1")

	// patch must carry at least one field
	resp := performRequest(r, http.MethodPut, "/api/user/edit", jsonBody(t, map[string]string{}), token)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("empty patch: expected 400, got %d body=%s", resp.Code, resp.Body.String())
	}

	// field rules match registration
	resp = performRequest(r, http.MethodPut, "/api/user/edit",
		jsonBody(t, map[string]string{"name": "Al"}), token)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("short name: expected 400, got %d", resp.Code)
	}
	resp = performRequest(r, http.MethodPut, "/api/user/edit",
		jsonBody(t, map[string]string{"password": "bad"}), token)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("short password: expected 400, got %d", resp.Code)
	}

	resp = performRequest(r, http.MethodPut, "/api/user/edit",
		jsonBody(t, map[string]string{"name": "Alice Jones", "password": "secret2"}), token)
	if resp.Code != http.StatusOK {
		t.Fatalf("edit failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var editResp struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &editResp)
	if len(editResp.Data) != 1 || editResp.Data[0].Name != "Alice Jones" {
		t.Fatalf("unexpected edit response: %s", resp.Body.String())
	}

	// a password change invalidates the old credential
	resp = performRequest(r, http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": "a@x.com", "password": "secret1"}), "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("old password: expected 401, got %d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": "a@x.com", "password": "secret2"}), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("new password: expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	r := setupTestServer(t)

	// no token
	resp := performRequest(r, http.MethodGet, "/api/user/profile", nil, "")
	if resp.Code != http.StatusForbidden {
		t.Errorf("no token: expected 403, got %d", resp.Code)
	}
	// structurally malformed token
	resp = performRequest(r, http.MethodGet, "/api/user/profile", nil, "garbage")
	if resp.Code != http.StatusBadRequest {
		t.Errorf("malformed token: expected 400, got %d", resp.Code)
	}
	// well-formed but unsigned by us
	resp = performRequest(r, http.MethodGet, "/api/user/profile", nil, "aaa.bbb.ccc")
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("forged token: expected 401, got %d", resp.Code)
	}
	// blacklisted but otherwise valid token
	user := models.User{ID: "u-revoked", Name: "Alice Smith", Email: "a@x.com", PasswordHash: []byte("x")}
	token, err := signSessionToken(&user)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if err := blacklistToken(token); err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	resp = performRequest(r, http.MethodGet, "/api/user/profile", nil, token)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("blacklisted token: expected 401, got %d", resp.Code)
	}
}

func TestBlacklistExpiryAndSweep(t *testing.T) {
	setupTestServer(t)

	token := "aaa.bbb.ccc"
	if err := blacklistToken(token); err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	// double revocation is a no-op
	if err := blacklistToken(token); err != nil {
		t.Fatalf("second blacklist: %v", err)
	}
	if !isTokenBlacklisted(token) {
		t.Fatal("token should be blacklisted")
	}

	// age the row past the 24h window: lookups ignore it before the sweep runs
	old := time.Now().Add(-25 * time.Hour)
	if err := db.Model(&models.RevokedToken{}).Where("token = ?", token).
		Update("created_at", old).Error; err != nil {
		t.Fatalf("age row: %v", err)
	}
	if isTokenBlacklisted(token) {
		t.Fatal("expired blacklist entry should be ignored")
	}
	if err := sweepRevokedTokens(); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	var count int64
	db.Model(&models.RevokedToken{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected swept table, found %d rows", count)
	}
}
