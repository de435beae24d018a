package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ahloulbait/internal/models"
)

type captureStore struct {
	entries chan models.AuditEntry
	err     error
}

func newCaptureStore() *captureStore {
	return &captureStore{entries: make(chan models.AuditEntry, 8)}
}

func (c *captureStore) InsertAuditEntry(ctx context.Context, e models.AuditEntry) error {
	if c.err != nil {
		return c.err
	}
	c.entries <- e
	return nil
}

func TestHashIP(t *testing.T) {
	r := NewRecorder(newCaptureStore(), "0123456789abcdef")

	h := r.HashIP("203.0.113.7")
	if len(h) != 32 {
		t.Fatalf("hash length = %d, want 32", len(h))
	}
	if h == "203.0.113.7" {
		t.Fatal("hash must not equal the raw address")
	}
	if r.HashIP("203.0.113.7") != h {
		t.Fatal("hash must be deterministic for the same salt")
	}
	if r.HashIP("203.0.113.8") == h {
		t.Fatal("different addresses must hash differently")
	}

	other := NewRecorder(newCaptureStore(), "fedcba9876543210")
	if other.HashIP("203.0.113.7") == h {
		t.Fatal("different salts must hash differently")
	}

	if r.HashIP("unknown") != "unknown" {
		t.Fatal(`"unknown" must pass through untouched`)
	}
	if r.HashIP("") != "unknown" {
		t.Fatal("empty address must map to unknown")
	}
}

func TestAnonymizeUserAgent(t *testing.T) {
	cases := []struct {
		ua   string
		want string
	}{
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.71 Safari/537.36", "Chrome on Windows"},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", "Firefox on Linux"},
		{"curl/8.4.0", "Unknown Browser on Unknown OS"},
		{"", "unknown"},
		{"unknown", "unknown"},
	}
	for _, tc := range cases {
		got := AnonymizeUserAgent(tc.ua)
		if got != tc.want {
			t.Errorf("AnonymizeUserAgent(%q) = %q, want %q", tc.ua, got, tc.want)
		}
	}
}

func TestAnonymizeUserAgentDropsVersions(t *testing.T) {
	ua := "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0.6099.71"
	got := AnonymizeUserAgent(ua)
	for _, frag := range []string{"120", "10.0", "Mozilla"} {
		if strings.Contains(got, frag) {
			t.Fatalf("anonymized agent %q leaks %q", got, frag)
		}
	}
}

func TestAppendTransformsMetadata(t *testing.T) {
	cs := newCaptureStore()
	r := NewRecorder(cs, "0123456789abcdef")

	err := r.Append(context.Background(), "user-1", Entry{
		Action:    "DELETE_EVENT",
		TableName: "events",
		RecordID:  "ev-1",
		OldData:   []byte(`{"title":"Mawlid"}`),
	}, RequestMeta{IP: "203.0.113.7", UserAgent: "Chrome/120 (Windows)"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	e := <-cs.entries
	if e.UserID != "user-1" || e.Action != "DELETE_EVENT" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.TableName == nil || *e.TableName != "events" {
		t.Fatalf("table name not carried: %+v", e.TableName)
	}
	if e.RecordID == nil || *e.RecordID != "ev-1" {
		t.Fatalf("record id not carried: %+v", e.RecordID)
	}
	if e.IPAddress == "203.0.113.7" || len(e.IPAddress) != 32 {
		t.Fatalf("raw IP leaked into entry: %q", e.IPAddress)
	}
	if e.UserAgent != "Chrome on Windows" {
		t.Fatalf("user agent = %q, want coarsened form", e.UserAgent)
	}
	if string(e.OldData) != `{"title":"Mawlid"}` {
		t.Fatalf("old data mangled: %s", e.OldData)
	}
}

func TestAppendEmptyOptionalFields(t *testing.T) {
	cs := newCaptureStore()
	r := NewRecorder(cs, "0123456789abcdef")

	if err := r.Append(context.Background(), "user-1", Entry{Action: "LOGIN"}, RequestMeta{}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	e := <-cs.entries
	if e.TableName != nil || e.RecordID != nil {
		t.Fatalf("empty fields must stay nil: %+v", e)
	}
	if e.IPAddress != "unknown" || e.UserAgent != "unknown" {
		t.Fatalf("missing metadata must map to unknown: %+v", e)
	}
}

func TestAppendSurfacesStoreError(t *testing.T) {
	cs := newCaptureStore()
	cs.err = errors.New("disk full")
	r := NewRecorder(cs, "0123456789abcdef")

	if err := r.Append(context.Background(), "user-1", Entry{Action: "X"}, RequestMeta{}); err == nil {
		t.Fatal("expected store error from Append")
	}
}

func TestRecordIsFireAndForget(t *testing.T) {
	cs := newCaptureStore()
	r := NewRecorder(cs, "0123456789abcdef")

	r.Record("user-1", Entry{Action: "DELETE_FATWA"}, RequestMeta{IP: "203.0.113.7"})
	select {
	case e := <-cs.entries:
		if e.Action != "DELETE_FATWA" {
			t.Fatalf("unexpected entry %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("background audit write never arrived")
	}

	// A failing store must not panic or surface anywhere.
	cs.err = errors.New("disk full")
	r.Record("user-1", Entry{Action: "DELETE_FATWA"}, RequestMeta{})
	time.Sleep(50 * time.Millisecond)
}

func TestSnapshot(t *testing.T) {
	if Snapshot(nil) != nil {
		t.Fatal("nil value must produce nil snapshot")
	}
	b := Snapshot(map[string]string{"title": "Mawlid"})
	if string(b) != `{"title":"Mawlid"}` {
		t.Fatalf("snapshot = %s", b)
	}
}
