package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string

	DBPath            string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	SessionCookieName   string
	SessionIdleMinutes  int
	SessionAbsoluteHour int
	CSRFCookieName      string
	CookieSecure        bool
	TrustProxy          bool
	CORSAllowedOrigins  []string

	PasswordMinLength int
	PasswordMaxLength int

	// AuditHashSalt keys the one-way IP hash in audit entries. Changing it
	// breaks correlation with older entries but never exposes raw IPs.
	AuditHashSalt string

	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	ContactSender    string
	ContactRecipient string
	ContactFrom      string

	SMTPHost               string
	SMTPPort               int
	SMTPTLS                bool
	SMTPStartTLS           bool
	SMTPInsecureSkipVerify bool
	SMTPUsername           string
	SMTPPassword           string

	ChatCompletionURL string
	ChatAPIKey        string
	ChatModel         string

	// Optional external role directory (out-of-band admin provisioning).
	RoleDBDriver   string
	RoleDBDSN      string
	RoleDBTable    string
	RoleDBEmailCol string
	RoleDBRoleCol  string

	HTTPReadTimeoutSec       int
	HTTPReadHeaderTimeoutSec int
	HTTPWriteTimeoutSec      int
	HTTPIdleTimeoutSec       int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:               env("LISTEN_ADDR", ":8080"),
		DBPath:                   env("APP_DB_PATH", "./data/app.db"),
		DBMaxOpenConns:           envInt("APP_DB_MAX_OPEN_CONNS", 4),
		DBMaxIdleConns:           envInt("APP_DB_MAX_IDLE_CONNS", 2),
		DBConnMaxLifetime:        time.Duration(envInt("APP_DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		SessionCookieName:        env("SESSION_COOKIE_NAME", "ahloulbait_session"),
		SessionIdleMinutes:       envInt("SESSION_IDLE_MINUTES", 30),
		SessionAbsoluteHour:      envInt("SESSION_ABSOLUTE_HOURS", 24),
		CSRFCookieName:           env("CSRF_COOKIE_NAME", "ahloulbait_csrf"),
		CookieSecure:             envBool("COOKIE_SECURE", false),
		TrustProxy:               envBool("TRUST_PROXY", false),
		CORSAllowedOrigins:       envCSV("CORS_ALLOWED_ORIGINS"),
		PasswordMinLength:        envInt("PASSWORD_MIN_LENGTH", 8),
		PasswordMaxLength:        envInt("PASSWORD_MAX_LENGTH", 128),
		AuditHashSalt:            env("AUDIT_HASH_SALT", ""),
		BootstrapAdminEmail:      env("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword:   env("BOOTSTRAP_ADMIN_PASSWORD", ""),
		ContactSender:            strings.ToLower(env("CONTACT_SENDER", "log")),
		ContactRecipient:         env("CONTACT_RECIPIENT", ""),
		ContactFrom:              env("CONTACT_FROM", "noreply@ahloulbait.org"),
		SMTPHost:                 env("SMTP_HOST", "127.0.0.1"),
		SMTPPort:                 envInt("SMTP_PORT", 587),
		SMTPTLS:                  envBool("SMTP_TLS", false),
		SMTPStartTLS:             envBool("SMTP_STARTTLS", true),
		SMTPInsecureSkipVerify:   envBool("SMTP_INSECURE_SKIP_VERIFY", false),
		SMTPUsername:             env("SMTP_USERNAME", ""),
		SMTPPassword:             env("SMTP_PASSWORD", ""),
		ChatCompletionURL:        env("CHAT_COMPLETION_URL", ""),
		ChatAPIKey:               env("CHAT_API_KEY", ""),
		ChatModel:                env("CHAT_MODEL", "google/gemini-2.5-flash"),
		RoleDBDriver:             strings.ToLower(env("ROLE_DB_DRIVER", "")),
		RoleDBDSN:                env("ROLE_DB_DSN", ""),
		RoleDBTable:              env("ROLE_DB_TABLE", "member_roles"),
		RoleDBEmailCol:           env("ROLE_DB_EMAIL_COL", "email"),
		RoleDBRoleCol:            env("ROLE_DB_ROLE_COL", "role"),
		HTTPReadTimeoutSec:       envInt("HTTP_READ_TIMEOUT_SEC", 10),
		HTTPReadHeaderTimeoutSec: envInt("HTTP_READ_HEADER_TIMEOUT_SEC", 5),
		HTTPWriteTimeoutSec:      envInt("HTTP_WRITE_TIMEOUT_SEC", 30),
		HTTPIdleTimeoutSec:       envInt("HTTP_IDLE_TIMEOUT_SEC", 60),
	}

	if cfg.SessionIdleMinutes <= 0 || cfg.SessionAbsoluteHour <= 0 {
		return Config{}, fmt.Errorf("session timeouts must be positive")
	}
	if cfg.DBMaxOpenConns <= 0 || cfg.DBMaxIdleConns < 0 {
		return Config{}, fmt.Errorf("invalid DB pool config")
	}
	if cfg.PasswordMinLength < 8 {
		return Config{}, fmt.Errorf("password min length must be >= 8")
	}
	if cfg.PasswordMaxLength < cfg.PasswordMinLength {
		return Config{}, fmt.Errorf("password max length must be >= min length")
	}
	if len(strings.TrimSpace(cfg.AuditHashSalt)) < 16 {
		return Config{}, fmt.Errorf("AUDIT_HASH_SALT must be set to at least 16 characters")
	}
	if !cfg.CookieSecure && !isLocalListen(cfg.ListenAddr) {
		return Config{}, fmt.Errorf("COOKIE_SECURE=false is allowed only for local listen addresses")
	}
	switch cfg.ContactSender {
	case "log":
	case "smtp":
		if strings.TrimSpace(cfg.ContactRecipient) == "" {
			return Config{}, fmt.Errorf("CONTACT_RECIPIENT is required when CONTACT_SENDER=smtp")
		}
		if cfg.SMTPPort <= 0 {
			return Config{}, fmt.Errorf("invalid SMTP port")
		}
	default:
		return Config{}, fmt.Errorf("CONTACT_SENDER must be one of: log, smtp")
	}
	if cfg.ChatCompletionURL != "" && strings.TrimSpace(cfg.ChatAPIKey) == "" {
		return Config{}, fmt.Errorf("CHAT_API_KEY is required when CHAT_COMPLETION_URL is set")
	}
	switch cfg.RoleDBDriver {
	case "", "pgx", "mysql":
	default:
		return Config{}, fmt.Errorf("ROLE_DB_DRIVER must be one of: pgx, mysql")
	}
	if cfg.RoleDBDriver != "" && strings.TrimSpace(cfg.RoleDBDSN) == "" {
		return Config{}, fmt.Errorf("ROLE_DB_DSN is required when ROLE_DB_DRIVER is set")
	}
	return cfg, nil
}

func (c Config) SessionIdleDuration() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

func (c Config) SessionAbsoluteDuration() time.Duration {
	return time.Duration(c.SessionAbsoluteHour) * time.Hour
}

func (c Config) ChatEnabled() bool {
	return strings.TrimSpace(c.ChatCompletionURL) != ""
}

func env(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envCSV(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isLocalListen(addr string) bool {
	a := strings.ToLower(strings.TrimSpace(addr))
	return strings.Contains(a, "127.0.0.1") || strings.Contains(a, "localhost") || strings.Contains(a, "[::1]") || strings.HasPrefix(a, ":")
}
