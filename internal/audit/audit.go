package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"regexp"
	"time"

	"ahloulbait/internal/models"
)

var (
	browserRx = regexp.MustCompile(`(?i)(Chrome|Firefox|Safari|Edge|Opera)`)
	osRx      = regexp.MustCompile(`(?i)(Windows|Mac|Linux|Android|iOS)`)
)

type Store interface {
	InsertAuditEntry(ctx context.Context, e models.AuditEntry) error
}

// Entry is the caller-supplied part of an audit record. OldData and NewData
// are opaque structured payloads; their shape is not validated here.
type Entry struct {
	Action    string
	TableName string
	RecordID  string
	OldData   json.RawMessage
	NewData   json.RawMessage
}

// RequestMeta carries the raw request metadata. It is privacy-transformed
// before anything is persisted; the raw values never reach the store.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type Recorder struct {
	store Store
	salt  string
}

func NewRecorder(store Store, salt string) *Recorder {
	return &Recorder{store: store, salt: salt}
}

// HashIP returns a salted one-way hash of the address, truncated to 32 hex
// characters. It keeps entries correlatable without being reversible. The
// "unknown" placeholder passes through untouched.
func (r *Recorder) HashIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	sum := sha256.Sum256([]byte(ip + r.salt))
	return hex.EncodeToString(sum[:])[:32]
}

// AnonymizeUserAgent coarsens a user-agent header to "{Browser} on {OS}",
// dropping version numbers and everything else that could fingerprint.
func AnonymizeUserAgent(ua string) string {
	if ua == "" || ua == "unknown" {
		return "unknown"
	}
	browser := "Unknown Browser"
	if m := browserRx.FindString(ua); m != "" {
		browser = m
	}
	osName := "Unknown OS"
	if m := osRx.FindString(ua); m != "" {
		osName = m
	}
	return browser + " on " + osName
}

// Append writes one entry synchronously. The HTTP write endpoint uses this
// form so storage failures surface as a 500.
func (r *Recorder) Append(ctx context.Context, actorID string, e Entry, meta RequestMeta) error {
	ent := models.AuditEntry{
		UserID:    actorID,
		Action:    e.Action,
		OldData:   e.OldData,
		NewData:   e.NewData,
		IPAddress: r.HashIP(meta.IP),
		UserAgent: AnonymizeUserAgent(meta.UserAgent),
	}
	if e.TableName != "" {
		v := e.TableName
		ent.TableName = &v
	}
	if e.RecordID != "" {
		v := e.RecordID
		ent.RecordID = &v
	}
	return r.store.InsertAuditEntry(ctx, ent)
}

// Record is the fire-and-forget form used around content mutations: the
// write happens on its own goroutine and a failure is logged, never
// returned, so the primary operation cannot be blocked by audit trouble.
func (r *Recorder) Record(actorID string, e Entry, meta RequestMeta) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Append(ctx, actorID, e, meta); err != nil {
			log.Printf("audit append failed action=%s actor=%s: %v", e.Action, actorID, err)
		}
	}()
}

// Snapshot marshals a before/after value for an Entry; a marshal failure
// degrades to no snapshot rather than losing the entry.
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("audit snapshot marshal failed: %v", err)
		return nil
	}
	return b
}
