package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ahloulbait/internal/audit"
	"ahloulbait/internal/chat"
	"ahloulbait/internal/config"
	"ahloulbait/internal/db"
	"ahloulbait/internal/models"
	"ahloulbait/internal/notify"
	"ahloulbait/internal/ratelimit"
	"ahloulbait/internal/roles"
	"ahloulbait/internal/service"
	"ahloulbait/internal/store"
)

const testSalt = "0123456789abcdef"

func newTestApp(t *testing.T) (*httptest.Server, *store.Store, config.Config) {
	t.Helper()
	return newTestAppChat(t, chat.DisabledClient{})
}

func newTestAppChat(t *testing.T, cc chat.Client) (*httptest.Server, *store.Store, config.Config) {
	t.Helper()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "app.db"), 2, 1, time.Minute)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { sqdb.Close() })
	if err := db.ApplyMigrationFile(sqdb, "../../migrations/001_init.sql"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.New(sqdb)

	cfg := config.Config{
		ListenAddr:          "127.0.0.1:0",
		SessionCookieName:   "test_session",
		CSRFCookieName:      "test_csrf",
		SessionIdleMinutes:  30,
		SessionAbsoluteHour: 24,
		PasswordMinLength:   8,
		PasswordMaxLength:   128,
		AuditHashSalt:       testSalt,
		ContactSender:       "log",
	}
	svc := service.New(cfg, st,
		ratelimit.New(st, nil),
		roles.NewGuard(st, nil),
		audit.NewRecorder(st, cfg.AuditHashSalt),
		notify.LogSender{},
		cc,
	)
	srv := httptest.NewServer(NewRouter(cfg, svc, st))
	t.Cleanup(srv.Close)
	return srv, st, cfg
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func signupAndLogin(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/signup", "", map[string]string{
		"email": email, "password": password,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup %s: status %d", email, resp.StatusCode)
	}
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	var out struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &out)
	if resp.StatusCode != http.StatusOK || out.Token == "" {
		t.Fatalf("login %s: status %d token %q", email, resp.StatusCode, out.Token)
	}
	return out.Token
}

func newAdmin(t *testing.T, srv *httptest.Server, st *store.Store, email string) string {
	t.Helper()
	token := signupAndLogin(t, srv, email, "Password1")
	u, err := st.GetUserByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("get admin user: %v", err)
	}
	if err := st.GrantRole(context.Background(), u.ID, models.RoleAdmin, nil); err != nil {
		t.Fatalf("grant admin: %v", err)
	}
	return token
}

func waitForAudit(t *testing.T, st *store.Store, action string) models.AuditEntry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := st.ListAudit(context.Background(), 50, 0)
		if err != nil {
			t.Fatalf("ListAudit: %v", err)
		}
		for _, e := range entries {
			if e.Action == action {
				return e
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("audit entry %s never appeared", action)
	return models.AuditEntry{}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestApp(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: status %d", path, resp.StatusCode)
		}
	}
}

func TestSignupValidation(t *testing.T) {
	srv, _, _ := newTestApp(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/signup", "", map[string]string{
		"email": "user@example.com", "password": "weak",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("weak password: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/signup", "", map[string]string{
		"email": "not-an-email", "password": "Password1",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad email: status %d", resp.StatusCode)
	}
}

func TestAuthFlow(t *testing.T) {
	srv, _, _ := newTestApp(t)

	token := signupAndLogin(t, srv, "user@example.com", "Password1")

	// Duplicate signup.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/signup", "", map[string]string{
		"email": "user@example.com", "password": "Password1",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup: status %d", resp.StatusCode)
	}

	// Wrong password.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "user@example.com", "password": "Password2",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d", resp.StatusCode)
	}

	// Authenticated profile.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/me", token, nil)
	var me struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decodeBody(t, resp, &me)
	if resp.StatusCode != http.StatusOK || me.User.Email != "user@example.com" {
		t.Fatalf("me: status %d body %+v", resp.StatusCode, me)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/me", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me without session: status %d", resp.StatusCode)
	}

	// Logout invalidates the token.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/logout", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: status %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/me", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout: status %d", resp.StatusCode)
	}
}

func TestIsAdmin(t *testing.T) {
	srv, st, _ := newTestApp(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/auth/is-admin", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("is-admin without session: status %d", resp.StatusCode)
	}

	token := signupAndLogin(t, srv, "user@example.com", "Password1")
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/auth/is-admin", token, nil)
	var out map[string]bool
	decodeBody(t, resp, &out)
	if resp.StatusCode != http.StatusOK || out["isAdmin"] {
		t.Fatalf("regular user: status %d body %v", resp.StatusCode, out)
	}

	u, _ := st.GetUserByEmail(context.Background(), "user@example.com")
	if err := st.GrantRole(context.Background(), u.ID, models.RoleAdmin, nil); err != nil {
		t.Fatalf("grant: %v", err)
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/auth/is-admin", token, nil)
	decodeBody(t, resp, &out)
	if resp.StatusCode != http.StatusOK || !out["isAdmin"] {
		t.Fatalf("admin user: status %d body %v", resp.StatusCode, out)
	}
}

func TestRateLimitCheckEndpoint(t *testing.T) {
	srv, _, _ := newTestApp(t)
	url := srv.URL + "/api/v1/rate-limit/check"

	want := []int{4, 3, 2, 1, 0}
	for i, exp := range want {
		resp := doJSON(t, http.MethodPost, url, "", map[string]string{
			"identifier": "user@example.com", "attemptType": "login",
		})
		var out ratelimit.Result
		decodeBody(t, resp, &out)
		if resp.StatusCode != http.StatusOK || !out.Allowed {
			t.Fatalf("check %d: status %d body %+v", i+1, resp.StatusCode, out)
		}
		if out.AttemptsRemaining != exp {
			t.Fatalf("check %d: attemptsRemaining = %d, want %d", i+1, out.AttemptsRemaining, exp)
		}
	}

	resp := doJSON(t, http.MethodPost, url, "", map[string]string{
		"identifier": "user@example.com", "attemptType": "login",
	})
	var out ratelimit.Result
	decodeBody(t, resp, &out)
	if resp.StatusCode != http.StatusTooManyRequests || !out.Blocked {
		t.Fatalf("6th check: status %d body %+v", resp.StatusCode, out)
	}
	if out.RemainingMinutes != 15 || !strings.Contains(out.Message, "minute(s)") {
		t.Fatalf("6th check: %+v", out)
	}

	// Validation failures never fall through to fail-open.
	resp = doJSON(t, http.MethodPost, url, "", map[string]string{
		"identifier": "not-an-email", "attemptType": "login",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad identifier: status %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodPost, url, "", map[string]string{
		"identifier": "user@example.com", "attemptType": "password_reset",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown attempt type: status %d", resp.StatusCode)
	}
}

func TestLoginBlockedAfterRepeatedFailures(t *testing.T) {
	srv, _, _ := newTestApp(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/signup", "", map[string]string{
		"email": "user@example.com", "password": "Password1",
	})
	resp.Body.Close()

	for i := 0; i < 5; i++ {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
			"email": "user@example.com", "password": "WrongPass1",
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("failed login %d: status %d", i+1, resp.StatusCode)
		}
	}

	// The 6th attempt trips the limiter before credentials are checked,
	// even with the correct password.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "user@example.com", "password": "Password1",
	})
	var out ratelimit.Result
	decodeBody(t, resp, &out)
	if resp.StatusCode != http.StatusTooManyRequests || !out.Blocked {
		t.Fatalf("6th login: status %d body %+v", resp.StatusCode, out)
	}
}

func TestAuditEndpoint(t *testing.T) {
	srv, st, _ := newTestApp(t)
	url := srv.URL + "/api/v1/audit"

	resp := doJSON(t, http.MethodPost, url, "", map[string]string{"action": "X"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous: status %d", resp.StatusCode)
	}

	userToken := signupAndLogin(t, srv, "user@example.com", "Password1")
	resp = doJSON(t, http.MethodPost, url, userToken, map[string]string{"action": "X"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin: status %d", resp.StatusCode)
	}

	adminToken := newAdmin(t, srv, st, "admin@example.com")

	resp = doJSON(t, http.MethodPost, url, adminToken, map[string]string{"action": ""})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing action: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, url, adminToken, map[string]any{
		"action": "DELETE_EVENT", "table_name": "events", "record_id": "ev-1",
		"old_data": map[string]string{"title": "Mawlid"},
	})
	var ok map[string]bool
	decodeBody(t, resp, &ok)
	if resp.StatusCode != http.StatusOK || !ok["success"] {
		t.Fatalf("append: status %d body %v", resp.StatusCode, ok)
	}

	entries, err := st.ListAudit(context.Background(), 10, 0)
	if err != nil || len(entries) == 0 {
		t.Fatalf("ListAudit: %v (%d entries)", err, len(entries))
	}
	e := entries[0]
	if e.Action != "DELETE_EVENT" {
		t.Fatalf("entry: %+v", e)
	}
	if len(e.IPAddress) != 32 || strings.Contains(e.IPAddress, "127.0.0.1") {
		t.Fatalf("raw IP leaked: %q", e.IPAddress)
	}
	if strings.Contains(e.UserAgent, "Go-http-client/1.1") {
		t.Fatalf("raw user agent leaked: %q", e.UserAgent)
	}

	// Admins can read the log back.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/admin/audit-log", adminToken, nil)
	var page struct {
		Entries []models.AuditEntry `json:"entries"`
	}
	decodeBody(t, resp, &page)
	if resp.StatusCode != http.StatusOK || len(page.Entries) == 0 {
		t.Fatalf("audit-log: status %d entries %d", resp.StatusCode, len(page.Entries))
	}
}

func TestEventCRUDWithAudit(t *testing.T) {
	srv, st, _ := newTestApp(t)
	adminToken := newAdmin(t, srv, st, "admin@example.com")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/admin/events", adminToken, map[string]any{
		"title":      "Mawlid",
		"event_date": time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339),
		"media":      []map[string]string{{"media_type": "image", "media_url": "https://cdn.example.com/a.jpg"}},
	})
	var created models.Event
	decodeBody(t, resp, &created)
	if resp.StatusCode != http.StatusCreated || created.ID == "" {
		t.Fatalf("create: status %d body %+v", resp.StatusCode, created)
	}
	if len(created.Media) != 1 {
		t.Fatalf("media not created: %+v", created.Media)
	}
	waitForAudit(t, st, "CREATE_EVENT")

	// Public read.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/events", "", nil)
	var listing struct {
		Events []models.Event `json:"events"`
	}
	decodeBody(t, resp, &listing)
	if resp.StatusCode != http.StatusOK || len(listing.Events) != 1 {
		t.Fatalf("list: status %d events %d", resp.StatusCode, len(listing.Events))
	}

	// Validation.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/admin/events", adminToken, map[string]any{
		"title": "", "event_date": time.Now().UTC().Format(time.RFC3339),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid create: status %d", resp.StatusCode)
	}

	// Update without a media field keeps the existing rows.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/admin/events/"+created.ID, adminToken, map[string]any{
		"title":      "Mawlid 2026",
		"event_date": time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339),
	})
	var updated models.Event
	decodeBody(t, resp, &updated)
	if resp.StatusCode != http.StatusOK || updated.Title != "Mawlid 2026" {
		t.Fatalf("update: status %d body %+v", resp.StatusCode, updated)
	}
	if len(updated.Media) != 1 || updated.Media[0].MediaURL != "https://cdn.example.com/a.jpg" {
		t.Fatalf("update must keep untouched media: %+v", updated.Media)
	}
	waitForAudit(t, st, "UPDATE_EVENT")

	// A media list in the update replaces the set wholesale.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/admin/events/"+created.ID, adminToken, map[string]any{
		"title":      "Mawlid 2026",
		"event_date": time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339),
		"media": []map[string]string{
			{"media_type": "video", "media_url": "https://www.youtube.com/watch?v=abc123"},
			{"media_type": "image", "media_url": "https://cdn.example.com/b.jpg"},
		},
	})
	decodeBody(t, resp, &updated)
	if resp.StatusCode != http.StatusOK || len(updated.Media) != 2 {
		t.Fatalf("media update: status %d media %+v", resp.StatusCode, updated.Media)
	}
	for _, m := range updated.Media {
		if m.MediaURL == "https://cdn.example.com/a.jpg" {
			t.Fatalf("replaced media still present: %+v", updated.Media)
		}
	}

	// Delete snapshots the row before removal.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/admin/events/"+created.ID, adminToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	e := waitForAudit(t, st, "DELETE_EVENT")
	if len(e.OldData) == 0 || !strings.Contains(string(e.OldData), "Mawlid 2026") {
		t.Fatalf("delete old_data: %s", e.OldData)
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/admin/events/"+created.ID, adminToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("double delete: status %d", resp.StatusCode)
	}
}

func TestTafsirValidationOverHTTP(t *testing.T) {
	srv, st, _ := newTestApp(t)
	adminToken := newAdmin(t, srv, st, "admin@example.com")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/admin/tafsir", adminToken, map[string]any{
		"title": "Sourate Ya-Sin", "surah_number": 115,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("surah 115: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/admin/tafsir", adminToken, map[string]any{
		"title": "Sourate Ya-Sin", "surah_number": 36,
		"video_url": "https://www.youtube.com/watch?v=abc",
	})
	var created models.Tafsir
	decodeBody(t, resp, &created)
	if resp.StatusCode != http.StatusCreated || created.SurahNumber == nil || *created.SurahNumber != 36 {
		t.Fatalf("create: status %d body %+v", resp.StatusCode, created)
	}
}

func TestAdminGateRedirect(t *testing.T) {
	srv, st, _ := newTestApp(t)
	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	get := func(token string) *http.Response {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/admin", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("GET /admin: %v", err)
		}
		resp.Body.Close()
		return resp
	}

	// No session and non-admin session produce the exact same redirect.
	userToken := signupAndLogin(t, srv, "user@example.com", "Password1")
	for _, token := range []string{"", userToken} {
		resp := get(token)
		if resp.StatusCode != http.StatusSeeOther {
			t.Fatalf("token=%q: status %d, want 303", token, resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != "/" {
			t.Fatalf("token=%q: location %q", token, loc)
		}
	}

	adminToken := newAdmin(t, srv, st, "admin@example.com")
	if resp := get(adminToken); resp.StatusCode == http.StatusSeeOther {
		t.Fatal("admin must not be redirected away")
	}
}

func TestContact(t *testing.T) {
	srv, _, _ := newTestApp(t)
	url := srv.URL + "/api/v1/contact"

	valid := map[string]string{
		"name": "Aïcha", "email": "aicha@example.com",
		"subject": "Question", "message": "Assalamou alaykoum, j'ai une question.",
	}
	for i := 0; i < 3; i++ {
		resp := doJSON(t, http.MethodPost, url, "", valid)
		var out map[string]bool
		decodeBody(t, resp, &out)
		if resp.StatusCode != http.StatusOK || !out["success"] {
			t.Fatalf("contact %d: status %d body %v", i+1, resp.StatusCode, out)
		}
	}

	// 4th submission from the same address trips the contact policy (3/h).
	resp := doJSON(t, http.MethodPost, url, "", valid)
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("4th contact: status %d", resp.StatusCode)
	}

	bad := map[string]string{"name": "A", "email": "nope", "subject": "s", "message": "short"}
	resp = doJSON(t, http.MethodPost, url, "", bad)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid contact: status %d", resp.StatusCode)
	}
}

func TestChatDisabled(t *testing.T) {
	srv, _, _ := newTestApp(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/chat", "", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "Salam"}},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("disabled chat: status %d", resp.StatusCode)
	}
}

type failingChat struct{}

func (failingChat) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	return "", fmt.Errorf("%w: HTTP 500", chat.ErrUpstream)
}

func TestChatUpstreamFailureIsBadGateway(t *testing.T) {
	srv, _, _ := newTestAppChat(t, failingChat{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/chat", "", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "Salam"}},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("failing chat upstream: status %d, want 502", resp.StatusCode)
	}
}

func TestCSRFCookieFlow(t *testing.T) {
	srv, st, _ := newTestApp(t)
	_ = newAdmin(t, srv, st, "admin@example.com")

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	raw, _ := json.Marshal(map[string]string{"email": "admin@example.com", "password": "Password1"})
	resp, err := client.Post(srv.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}

	var csrf string
	for _, c := range resp.Cookies() {
		if c.Name == "test_csrf" {
			csrf = c.Value
		}
	}
	if csrf == "" {
		t.Fatal("login did not set the CSRF cookie")
	}

	post := func(withHeader bool) int {
		body, _ := json.Marshal(map[string]string{"action": "TEST"})
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/audit", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if withHeader {
			req.Header.Set("X-CSRF-Token", csrf)
		}
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("POST audit: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if status := post(false); status != http.StatusForbidden {
		t.Fatalf("cookie auth without CSRF header: status %d, want 403", status)
	}
	if status := post(true); status != http.StatusOK {
		t.Fatalf("cookie auth with CSRF header: status %d, want 200", status)
	}
}

func TestPaginationClamp(t *testing.T) {
	srv, _, _ := newTestApp(t)
	resp, err := http.Get(srv.URL + "/api/v1/events?limit=9999&offset=-3")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
