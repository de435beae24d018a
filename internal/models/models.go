package models

import (
	"encoding/json"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  *string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

type Session struct {
	ID            string
	UserID        string
	TokenHash     string
	IPHint        string
	UserAgentHash string
	ExpiresAt     time.Time
	IdleExpiresAt time.Time
	CreatedAt     time.Time
	LastSeenAt    time.Time
	RevokedAt     *time.Time
}

// RoleGrant asserts that a user holds a named role. A user is admin iff at
// least one grant with role "admin" exists. Grants are provisioned out of
// band (bootstrap env vars or the external role directory); nothing in the
// request path mutates them.
type RoleGrant struct {
	ID        string
	UserID    string
	Role      string
	GrantedAt time.Time
	GrantedBy *string
}

// AuthAttempt is one sliding-window counter row per (identifier, attempt_type).
type AuthAttempt struct {
	ID             string
	Identifier     string
	AttemptType    string
	AttemptsCount  int
	FirstAttemptAt time.Time
	LastAttemptAt  time.Time
	BlockedUntil   *time.Time
	CreatedAt      time.Time
}

// AuditEntry is append-only. IPAddress holds a salted truncated hash and
// UserAgent a coarsened family label; the raw request values are never stored.
type AuditEntry struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Action    string          `json:"action"`
	TableName *string         `json:"table_name,omitempty"`
	RecordID  *string         `json:"record_id,omitempty"`
	OldData   json.RawMessage `json:"old_data,omitempty"`
	NewData   json.RawMessage `json:"new_data,omitempty"`
	IPAddress string          `json:"ip_address"`
	UserAgent string          `json:"user_agent"`
	CreatedAt time.Time       `json:"created_at"`
}

type Event struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	EventDate   time.Time    `json:"event_date"`
	CreatedBy   string       `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Media       []EventMedia `json:"media,omitempty"`
}

type EventMedia struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	MediaType string    `json:"media_type"`
	MediaURL  string    `json:"media_url"`
	CreatedAt time.Time `json:"created_at"`
}

type Tafsir struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	SurahName   *string   `json:"surah_name,omitempty"`
	SurahNumber *int      `json:"surah_number,omitempty"`
	Content     *string   `json:"content,omitempty"`
	VideoURL    *string   `json:"video_url,omitempty"`
	CreatedBy   *string   `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Sira struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	VideoURL     string    `json:"video_url"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	Duration     *string   `json:"duration,omitempty"`
	CreatedBy    *string   `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Fatwa struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	AudioURL       string    `json:"audio_url"`
	Category       *string   `json:"category,omitempty"`
	ScholarName    *string   `json:"scholar_name,omitempty"`
	QuestionerName *string   `json:"questioner_name,omitempty"`
	CreatedBy      *string   `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ContactMessage struct {
	Name    string
	Email   string
	Subject string
	Message string
}
