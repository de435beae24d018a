package service

import (
	"context"
	"errors"
	"log"
	netmail "net/mail"
	"strings"
	"time"
	"unicode"

	"ahloulbait/internal/audit"
	"ahloulbait/internal/auth"
	"ahloulbait/internal/chat"
	"ahloulbait/internal/config"
	"ahloulbait/internal/models"
	"ahloulbait/internal/notify"
	"ahloulbait/internal/ratelimit"
	"ahloulbait/internal/roles"
	"ahloulbait/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidSession     = errors.New("invalid session")
)

// ValidationError marks input the client must fix; handlers map it to 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Reason }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RateLimitedError carries the limiter verdict up to the handler so the 429
// body can include the countdown and message.
type RateLimitedError struct {
	Result ratelimit.Result
}

func (e *RateLimitedError) Error() string { return e.Result.Message }

// dummyHash is verified against when a login names an unknown account, so
// the two failure paths cost roughly the same.
var dummyHash string

func init() {
	dummyHash, _ = auth.HashPassword("not-a-real-password")
}

type Service struct {
	cfg      config.Config
	st       *store.Store
	limiter  *ratelimit.Limiter
	guard    *roles.Guard
	recorder *audit.Recorder
	sender   notify.Sender
	chat     chat.Client
}

func New(cfg config.Config, st *store.Store, limiter *ratelimit.Limiter, guard *roles.Guard, recorder *audit.Recorder, sender notify.Sender, chatClient chat.Client) *Service {
	return &Service{cfg: cfg, st: st, limiter: limiter, guard: guard, recorder: recorder, sender: sender, chat: chatClient}
}

// CheckRateLimit wraps the limiter with the fail-open policy: validation
// errors propagate (the request must be rejected), but a store failure is
// logged and the attempt allowed rather than locking everyone out.
func (s *Service) CheckRateLimit(ctx context.Context, identifier string, attemptType ratelimit.AttemptType) (ratelimit.Result, error) {
	res, err := s.limiter.Check(ctx, identifier, attemptType)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, ratelimit.ErrInvalidIdentifier) || errors.Is(err, ratelimit.ErrUnknownAttemptType) {
		return ratelimit.Result{}, err
	}
	log.Printf("rate limit check failed type=%s: %v (allowing)", attemptType, err)
	return ratelimit.Result{Allowed: true}, nil
}

// enforceLimit runs the identifier limiter and converts a block into a
// RateLimitedError for the caller.
func (s *Service) enforceLimit(ctx context.Context, identifier string, attemptType ratelimit.AttemptType) error {
	res, err := s.CheckRateLimit(ctx, identifier, attemptType)
	if err != nil {
		return invalid("email", "must be a valid email address")
	}
	if !res.Allowed {
		return &RateLimitedError{Result: res}
	}
	return nil
}

func (s *Service) Signup(ctx context.Context, email, password string, displayName *string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return models.User{}, err
	}
	if err := s.validatePassword(password); err != nil {
		return models.User{}, err
	}
	if displayName != nil {
		v := strings.TrimSpace(*displayName)
		if len(v) > 100 {
			return models.User{}, invalid("displayName", "must be at most 100 characters")
		}
		if v == "" {
			displayName = nil
		} else {
			displayName = &v
		}
	}
	if err := s.enforceLimit(ctx, email, ratelimit.AttemptSignup); err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.st.CreateUser(ctx, email, hash, displayName)
	if err == store.ErrConflict {
		return models.User{}, ErrEmailTaken
	}
	if err != nil {
		return models.User{}, err
	}
	if err := s.st.GrantRole(ctx, u.ID, models.RoleUser, nil); err != nil {
		log.Printf("grant user role failed user=%s: %v", u.ID, err)
	}
	return u, nil
}

// Login verifies credentials and opens a session. The returned raw token is
// handed to the client once and never stored.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (models.User, models.Session, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return models.User{}, models.Session{}, "", err
	}
	if err := s.enforceLimit(ctx, email, ratelimit.AttemptLogin); err != nil {
		return models.User{}, models.Session{}, "", err
	}
	u, err := s.st.GetUserByEmail(ctx, email)
	if err == store.ErrNotFound {
		auth.VerifyPassword(dummyHash, password)
		return models.User{}, models.Session{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, models.Session{}, "", err
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return models.User{}, models.Session{}, "", ErrInvalidCredentials
	}

	raw, hash, err := auth.NewSessionToken()
	if err != nil {
		return models.User{}, models.Session{}, "", err
	}
	now := time.Now().UTC()
	sess := models.Session{
		ID:            hash[:32],
		UserID:        u.ID,
		TokenHash:     hash,
		IPHint:        s.recorder.HashIP(ip),
		UserAgentHash: audit.AnonymizeUserAgent(userAgent),
		ExpiresAt:     now.Add(s.cfg.SessionAbsoluteDuration()),
		IdleExpiresAt: now.Add(s.cfg.SessionIdleDuration()),
		CreatedAt:     now,
		LastSeenAt:    now,
	}
	if err := s.st.CreateSession(ctx, sess); err != nil {
		return models.User{}, models.Session{}, "", err
	}
	if err := s.st.TouchUserLastLogin(ctx, u.ID, now); err != nil {
		log.Printf("touch last login failed user=%s: %v", u.ID, err)
	}
	return u, sess, raw, nil
}

// ValidateSession resolves a raw token, enforces both expiry clocks and
// slides the idle deadline forward.
func (s *Service) ValidateSession(ctx context.Context, token string) (models.User, models.Session, error) {
	if token == "" {
		return models.User{}, models.Session{}, ErrInvalidSession
	}
	sess, err := s.st.GetSessionByTokenHash(ctx, auth.HashToken(token))
	if err == store.ErrNotFound {
		return models.User{}, models.Session{}, ErrInvalidSession
	}
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	now := time.Now().UTC()
	if sess.RevokedAt != nil || now.After(sess.ExpiresAt) || now.After(sess.IdleExpiresAt) {
		return models.User{}, models.Session{}, ErrInvalidSession
	}
	idle := now.Add(s.cfg.SessionIdleDuration())
	if idle.After(sess.ExpiresAt) {
		idle = sess.ExpiresAt
	}
	if err := s.st.TouchSession(ctx, sess.ID, idle); err != nil {
		log.Printf("touch session failed id=%s: %v", sess.ID, err)
	}
	sess.IdleExpiresAt = idle
	u, err := s.st.GetUserByID(ctx, sess.UserID)
	if err == store.ErrNotFound {
		return models.User{}, models.Session{}, ErrInvalidSession
	}
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	return u, sess, nil
}

func (s *Service) Logout(ctx context.Context, sess models.Session) error {
	return s.st.RevokeSession(ctx, sess.ID)
}

func (s *Service) AuthorizeAdmin(ctx context.Context, user models.User, hasSession bool) roles.Decision {
	return s.guard.AuthorizeAdmin(ctx, user, hasSession)
}

// AppendAudit writes a client-supplied audit entry synchronously; a storage
// failure surfaces to the handler as an error.
func (s *Service) AppendAudit(ctx context.Context, actor models.User, e audit.Entry, meta audit.RequestMeta) error {
	if strings.TrimSpace(e.Action) == "" {
		return invalid("action", "required")
	}
	if len(e.Action) > 100 {
		return invalid("action", "must be at most 100 characters")
	}
	return s.recorder.Append(ctx, actor.ID, e, meta)
}

func (s *Service) ListAudit(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	return s.st.ListAudit(ctx, limit, offset)
}

func (s *Service) SubmitContact(ctx context.Context, msg models.ContactMessage) error {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.ToLower(strings.TrimSpace(msg.Email))
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Message = strings.TrimSpace(msg.Message)
	if msg.Name == "" || len(msg.Name) > 100 {
		return invalid("name", "must be 1-100 characters")
	}
	if err := validateEmail(msg.Email); err != nil {
		return err
	}
	if msg.Subject == "" || len(msg.Subject) > 200 {
		return invalid("subject", "must be 1-200 characters")
	}
	if len(msg.Message) < 10 || len(msg.Message) > 2000 {
		return invalid("message", "must be 10-2000 characters")
	}
	if err := s.enforceLimit(ctx, msg.Email, ratelimit.AttemptContact); err != nil {
		return err
	}
	return s.sender.SendContactMessage(ctx, msg)
}

func (s *Service) Chat(ctx context.Context, messages []chat.Message) (string, error) {
	if len(messages) == 0 {
		return "", invalid("messages", "required")
	}
	if len(messages) > 20 {
		return "", invalid("messages", "too many messages")
	}
	for _, m := range messages {
		switch m.Role {
		case "user", "assistant", "system":
		default:
			return "", invalid("messages", "role must be user, assistant or system")
		}
		if m.Content == "" || len(m.Content) > 4000 {
			return "", invalid("messages", "content must be 1-4000 characters")
		}
	}
	return s.chat.Complete(ctx, messages)
}

func validateEmail(email string) error {
	if email == "" || len(email) > 255 {
		return invalid("email", "must be a valid email address")
	}
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", "must be a valid email address")
	}
	return nil
}

func (s *Service) validatePassword(pw string) error {
	if len(pw) < s.cfg.PasswordMinLength || len(pw) > s.cfg.PasswordMaxLength {
		return invalid("password", "length out of bounds")
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return invalid("password", "must contain an uppercase letter, a lowercase letter and a digit")
	}
	return nil
}
