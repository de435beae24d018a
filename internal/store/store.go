package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"ahloulbait/internal/models"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, displayName *string) (models.User, error) {
	now := time.Now().UTC()
	u := models.User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash, DisplayName: displayName, CreatedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id,email,password_hash,display_name,created_at) VALUES(?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.CreatedAt,
	)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "unique") {
		return models.User{}, ErrConflict
	}
	return u, err
}

// EnsureAdmin creates or refreshes the bootstrap admin account and its role
// grant. Grants are otherwise never written by this service.
func (s *Store) EnsureAdmin(ctx context.Context, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passwordHash == "" {
		return nil
	}
	u, err := s.GetUserByEmail(ctx, email)
	if err == ErrNotFound {
		u, err = s.CreateUser(ctx, email, passwordHash, nil)
		if err != nil {
			return err
		}
		return s.GrantRole(ctx, u.ID, models.RoleAdmin, nil)
	}
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=? WHERE id=?`, passwordHash, u.ID); err != nil {
		return err
	}
	return s.GrantRole(ctx, u.ID, models.RoleAdmin, nil)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUser(ctx, `SELECT id,email,password_hash,display_name,created_at,last_login_at FROM users WHERE email=?`, email)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return s.getUser(ctx, `SELECT id,email,password_hash,display_name,created_at,last_login_at FROM users WHERE id=?`, id)
}

func (s *Store) getUser(ctx context.Context, query, arg string) (models.User, error) {
	var u models.User
	var displayName sql.NullString
	var lastLogin sql.NullTime
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &displayName, &u.CreatedAt, &lastLogin)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	if displayName.Valid {
		v := displayName.String
		u.DisplayName = &v
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

func (s *Store) TouchUserLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at=? WHERE id=?`, at, userID)
	return err
}

func (s *Store) GrantRole(ctx context.Context, userID, role string, grantedBy *string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_roles(id,user_id,role,granted_at,granted_by) VALUES(?,?,?,?,?)
		 ON CONFLICT(user_id, role) DO NOTHING`,
		uuid.NewString(), userID, role, time.Now().UTC(), grantedBy,
	)
	return err
}

// UserHasRole is a bare existence check over user_roles; the caller decides
// what a lookup failure means (the access guard denies on error).
func (s *Store) UserHasRole(ctx context.Context, userID, role string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM user_roles WHERE user_id=? AND role=? LIMIT 1`, userID, role).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id,user_id,token_hash,ip_hint,user_agent_hash,expires_at,idle_expires_at,created_at,last_seen_at) VALUES(?,?,?,?,?,?,?,?,?)`,
		sess.ID, sess.UserID, sess.TokenHash, sess.IPHint, sess.UserAgentHash, sess.ExpiresAt, sess.IdleExpiresAt, sess.CreatedAt, sess.LastSeenAt,
	)
	return err
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (models.Session, error) {
	var sess models.Session
	var revoked sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,token_hash,ip_hint,user_agent_hash,expires_at,idle_expires_at,created_at,last_seen_at,revoked_at FROM sessions WHERE token_hash=?`,
		tokenHash,
	).Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.IPHint, &sess.UserAgentHash, &sess.ExpiresAt, &sess.IdleExpiresAt, &sess.CreatedAt, &sess.LastSeenAt, &revoked)
	if err == sql.ErrNoRows {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	if revoked.Valid {
		t := revoked.Time
		sess.RevokedAt = &t
	}
	return sess, nil
}

func (s *Store) TouchSession(ctx context.Context, id string, idleExpiry time.Time) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at=?, idle_expires_at=? WHERE id=?`, now, idleExpiry, id)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked_at=? WHERE id=?`, now, id)
	return err
}

// GetAuthAttempt returns found=false (not an error) when no counter row
// exists yet for the pair.
func (s *Store) GetAuthAttempt(ctx context.Context, identifier, attemptType string) (models.AuthAttempt, bool, error) {
	var a models.AuthAttempt
	var blocked sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id,identifier,attempt_type,attempts_count,first_attempt_at,last_attempt_at,blocked_until,created_at FROM auth_attempts WHERE identifier=? AND attempt_type=?`,
		identifier, attemptType,
	).Scan(&a.ID, &a.Identifier, &a.AttemptType, &a.AttemptsCount, &a.FirstAttemptAt, &a.LastAttemptAt, &blocked, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return models.AuthAttempt{}, false, nil
	}
	if err != nil {
		return models.AuthAttempt{}, false, err
	}
	if blocked.Valid {
		t := blocked.Time
		a.BlockedUntil = &t
	}
	return a, true, nil
}

func (s *Store) InsertAuthAttempt(ctx context.Context, identifier, attemptType string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_attempts(id,identifier,attempt_type,attempts_count,first_attempt_at,last_attempt_at,blocked_until,created_at) VALUES(?,?,?,?,?,?,NULL,?)`,
		uuid.NewString(), identifier, attemptType, 1, now, now, now,
	)
	return err
}

// UpdateAuthAttempt overwrites the counter row wholesale. Two concurrent
// attempts can race on read-then-write and lose an increment; the limiter
// accepts that under-count rather than holding a transaction per attempt.
func (s *Store) UpdateAuthAttempt(ctx context.Context, id string, count int, firstAt, lastAt time.Time, blockedUntil *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE auth_attempts SET attempts_count=?, first_attempt_at=?, last_attempt_at=?, blocked_until=? WHERE id=?`,
		count, firstAt, lastAt, blockedUntil, id,
	)
	return err
}

func (s *Store) CleanupAuthAttemptsBefore(ctx context.Context, before time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_attempts WHERE last_attempt_at < ? AND (blocked_until IS NULL OR blocked_until < ?)`, before, before)
	return err
}

func (s *Store) InsertAuditEntry(ctx context.Context, e models.AuditEntry) error {
	var oldData, newData *string
	if len(e.OldData) > 0 {
		v := string(e.OldData)
		oldData = &v
	}
	if len(e.NewData) > 0 {
		v := string(e.NewData)
		newData = &v
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs(id,user_id,action,table_name,record_id,old_data,new_data,ip_address,user_agent,created_at) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		uuid.NewString(), e.UserID, e.Action, e.TableName, e.RecordID, oldData, newData, e.IPAddress, e.UserAgent, time.Now().UTC(),
	)
	return err
}

func (s *Store) ListAudit(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,user_id,action,table_name,record_id,old_data,new_data,ip_address,user_agent,created_at FROM audit_logs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.AuditEntry, 0, limit)
	for rows.Next() {
		var e models.AuditEntry
		var tableName, recordID, oldData, newData sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &tableName, &recordID, &oldData, &newData, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		if tableName.Valid {
			v := tableName.String
			e.TableName = &v
		}
		if recordID.Valid {
			v := recordID.String
			e.RecordID = &v
		}
		if oldData.Valid {
			e.OldData = []byte(oldData.String)
		}
		if newData.Valid {
			e.NewData = []byte(newData.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
