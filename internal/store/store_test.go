package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ahloulbait/internal/db"
	"ahloulbait/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "app.db"), 2, 1, time.Minute)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { sqdb.Close() })
	if err := db.ApplyMigrationFile(sqdb, "../../migrations/001_init.sql"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(sqdb)
}

func TestUserRoundtrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	name := "Fatima"
	u, err := st.CreateUser(ctx, "fatima@example.com", "hash", &name)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := st.GetUserByEmail(ctx, "fatima@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID || got.DisplayName == nil || *got.DisplayName != "Fatima" {
		t.Fatalf("got %+v", got)
	}
	if got.LastLoginAt != nil {
		t.Fatal("fresh user must have nil last login")
	}

	if _, err := st.CreateUser(ctx, "fatima@example.com", "hash2", nil); err != ErrConflict {
		t.Fatalf("duplicate email: err = %v, want ErrConflict", err)
	}
	if _, err := st.GetUserByEmail(ctx, "nobody@example.com"); err != ErrNotFound {
		t.Fatalf("missing user: err = %v, want ErrNotFound", err)
	}
}

func TestRoles(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, "admin@example.com", "hash", nil)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ok, err := st.UserHasRole(ctx, u.ID, models.RoleAdmin)
	if err != nil || ok {
		t.Fatalf("fresh user has admin: ok=%v err=%v", ok, err)
	}
	if err := st.GrantRole(ctx, u.ID, models.RoleAdmin, nil); err != nil {
		t.Fatalf("GrantRole: %v", err)
	}
	// Granting twice is a no-op, not an error.
	if err := st.GrantRole(ctx, u.ID, models.RoleAdmin, nil); err != nil {
		t.Fatalf("GrantRole (repeat): %v", err)
	}
	ok, err = st.UserHasRole(ctx, u.ID, models.RoleAdmin)
	if err != nil || !ok {
		t.Fatalf("expected admin role: ok=%v err=%v", ok, err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.EnsureAdmin(ctx, "Admin@Example.com", "hash1"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	u, err := st.GetUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	ok, _ := st.UserHasRole(ctx, u.ID, models.RoleAdmin)
	if !ok {
		t.Fatal("bootstrap admin must hold the admin role")
	}

	// Re-running refreshes the hash without duplicating anything.
	if err := st.EnsureAdmin(ctx, "admin@example.com", "hash2"); err != nil {
		t.Fatalf("EnsureAdmin (repeat): %v", err)
	}
	u2, _ := st.GetUserByEmail(ctx, "admin@example.com")
	if u2.ID != u.ID || u2.PasswordHash != "hash2" {
		t.Fatalf("got %+v", u2)
	}
}

func TestAuthAttemptRoundtrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	_, found, err := st.GetAuthAttempt(ctx, "user@example.com", "login")
	if err != nil || found {
		t.Fatalf("fresh pair: found=%v err=%v", found, err)
	}

	if err := st.InsertAuthAttempt(ctx, "user@example.com", "login", now); err != nil {
		t.Fatalf("InsertAuthAttempt: %v", err)
	}
	rec, found, err := st.GetAuthAttempt(ctx, "user@example.com", "login")
	if err != nil || !found {
		t.Fatalf("after insert: found=%v err=%v", found, err)
	}
	if rec.AttemptsCount != 1 || rec.BlockedUntil != nil {
		t.Fatalf("got %+v", rec)
	}

	until := now.Add(15 * time.Minute)
	if err := st.UpdateAuthAttempt(ctx, rec.ID, 6, rec.FirstAttemptAt, now, &until); err != nil {
		t.Fatalf("UpdateAuthAttempt: %v", err)
	}
	rec, _, err = st.GetAuthAttempt(ctx, "user@example.com", "login")
	if err != nil {
		t.Fatalf("GetAuthAttempt: %v", err)
	}
	if rec.AttemptsCount != 6 || rec.BlockedUntil == nil || !rec.BlockedUntil.Equal(until) {
		t.Fatalf("got %+v", rec)
	}

	// Pairs are independent per attempt type.
	_, found, _ = st.GetAuthAttempt(ctx, "user@example.com", "signup")
	if found {
		t.Fatal("signup counter must be independent of login")
	}
}

func TestCleanupAuthAttempts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)

	if err := st.InsertAuthAttempt(ctx, "stale@example.com", "login", old); err != nil {
		t.Fatalf("InsertAuthAttempt: %v", err)
	}
	if err := st.InsertAuthAttempt(ctx, "fresh@example.com", "login", time.Now().UTC()); err != nil {
		t.Fatalf("InsertAuthAttempt: %v", err)
	}
	if err := st.CleanupAuthAttemptsBefore(ctx, time.Now().UTC().Add(-24*time.Hour)); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, found, _ := st.GetAuthAttempt(ctx, "stale@example.com", "login"); found {
		t.Fatal("stale counter should be gone")
	}
	if _, found, _ := st.GetAuthAttempt(ctx, "fresh@example.com", "login"); !found {
		t.Fatal("fresh counter should survive")
	}
}

func TestSessionRoundtrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	u, err := st.CreateUser(ctx, "user@example.com", "hash", nil)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	sess := models.Session{
		ID:            "sess-1",
		UserID:        u.ID,
		TokenHash:     "tokenhash",
		IPHint:        "iphash",
		UserAgentHash: "Chrome on Linux",
		ExpiresAt:     now.Add(24 * time.Hour),
		IdleExpiresAt: now.Add(30 * time.Minute),
		CreatedAt:     now,
		LastSeenAt:    now,
	}
	if err := st.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	got, err := st.GetSessionByTokenHash(ctx, "tokenhash")
	if err != nil {
		t.Fatalf("GetSessionByTokenHash: %v", err)
	}
	if got.UserID != u.ID || got.RevokedAt != nil {
		t.Fatalf("got %+v", got)
	}

	if err := st.RevokeSession(ctx, sess.ID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	got, err = st.GetSessionByTokenHash(ctx, "tokenhash")
	if err != nil {
		t.Fatalf("GetSessionByTokenHash: %v", err)
	}
	if got.RevokedAt == nil {
		t.Fatal("session should be revoked")
	}
}

func TestAuditRoundtrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	table := "events"
	record := "ev-1"
	err := st.InsertAuditEntry(ctx, models.AuditEntry{
		UserID:    "user-1",
		Action:    "DELETE_EVENT",
		TableName: &table,
		RecordID:  &record,
		OldData:   []byte(`{"title":"Mawlid"}`),
		IPAddress: "iphash",
		UserAgent: "Chrome on Windows",
	})
	if err != nil {
		t.Fatalf("InsertAuditEntry: %v", err)
	}

	entries, err := st.ListAudit(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	e := entries[0]
	if e.Action != "DELETE_EVENT" || e.TableName == nil || *e.TableName != "events" {
		t.Fatalf("got %+v", e)
	}
	if string(e.OldData) != `{"title":"Mawlid"}` || e.NewData != nil {
		t.Fatalf("payloads: old=%s new=%s", e.OldData, e.NewData)
	}
}

func TestEventWithMedia(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	e, err := st.CreateEvent(ctx, models.Event{Title: "Mawlid", EventDate: time.Now().UTC(), CreatedBy: "user-1"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if _, err := st.AddEventMedia(ctx, e.ID, "image", "https://cdn.example.com/a.jpg"); err != nil {
		t.Fatalf("AddEventMedia: %v", err)
	}

	got, err := st.GetEvent(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if len(got.Media) != 1 || got.Media[0].MediaType != "image" {
		t.Fatalf("media: %+v", got.Media)
	}

	if err := st.DeleteEvent(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if _, err := st.GetEvent(ctx, e.ID); err != ErrNotFound {
		t.Fatalf("after delete: err = %v, want ErrNotFound", err)
	}
	if media, _ := st.ListEventMedia(ctx, e.ID); len(media) != 0 {
		t.Fatal("media rows must be deleted with the event")
	}
	if err := st.DeleteEvent(ctx, e.ID); err != ErrNotFound {
		t.Fatalf("double delete: err = %v, want ErrNotFound", err)
	}
}
