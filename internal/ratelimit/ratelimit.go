package ratelimit

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"ahloulbait/internal/models"
)

type AttemptType string

const (
	AttemptLogin   AttemptType = "login"
	AttemptSignup  AttemptType = "signup"
	AttemptContact AttemptType = "contact"
)

// Policy is fixed per attempt type; the table is injected at construction
// and never mutated at runtime.
type Policy struct {
	MaxAttempts   int
	WindowMinutes int
	BlockMinutes  int
}

func DefaultPolicies() map[AttemptType]Policy {
	return map[AttemptType]Policy{
		AttemptLogin:   {MaxAttempts: 5, WindowMinutes: 15, BlockMinutes: 15},
		AttemptSignup:  {MaxAttempts: 3, WindowMinutes: 60, BlockMinutes: 30},
		AttemptContact: {MaxAttempts: 3, WindowMinutes: 60, BlockMinutes: 60},
	}
}

type Result struct {
	Allowed           bool   `json:"allowed"`
	Blocked           bool   `json:"blocked,omitempty"`
	RemainingMinutes  int    `json:"remainingMinutes,omitempty"`
	AttemptsRemaining int    `json:"attemptsRemaining"`
	Message           string `json:"message,omitempty"`
}

// Validation failures: the caller must reject the request, never fall
// through to the fail-open path.
var (
	ErrInvalidIdentifier  = errors.New("identifier must be a valid email address")
	ErrUnknownAttemptType = errors.New("unknown attempt type")
)

type AttemptStore interface {
	GetAuthAttempt(ctx context.Context, identifier, attemptType string) (models.AuthAttempt, bool, error)
	InsertAuthAttempt(ctx context.Context, identifier, attemptType string, now time.Time) error
	UpdateAuthAttempt(ctx context.Context, id string, count int, firstAt, lastAt time.Time, blockedUntil *time.Time) error
}

// Limiter counts attempts per (identifier, attempt type) in a sliding window
// anchored to the first attempt, and issues temporary blocks past the
// threshold. It returns store errors to the caller; the service wrapper
// decides the fail-open policy.
type Limiter struct {
	store    AttemptStore
	policies map[AttemptType]Policy
	now      func() time.Time
}

func New(store AttemptStore, policies map[AttemptType]Policy) *Limiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Limiter{
		store:    store,
		policies: policies,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *Limiter) Check(ctx context.Context, identifier string, attemptType AttemptType) (Result, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if err := validateIdentifier(identifier); err != nil {
		return Result{}, err
	}
	policy, ok := l.policies[attemptType]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownAttemptType, attemptType)
	}

	rec, found, err := l.store.GetAuthAttempt(ctx, identifier, string(attemptType))
	if err != nil {
		return Result{}, err
	}
	now := l.now()

	if !found {
		if err := l.store.InsertAuthAttempt(ctx, identifier, string(attemptType), now); err != nil {
			return Result{}, err
		}
		return Result{Allowed: true, AttemptsRemaining: policy.MaxAttempts - 1}, nil
	}

	// Active block: report the countdown without touching the row.
	if rec.BlockedUntil != nil && now.Before(*rec.BlockedUntil) {
		return blockedResult(ceilMinutes(rec.BlockedUntil.Sub(now))), nil
	}

	window := time.Duration(policy.WindowMinutes) * time.Minute
	if now.Sub(rec.FirstAttemptAt) > window {
		// Fresh window: the previous count and any expired block are dropped.
		if err := l.store.UpdateAuthAttempt(ctx, rec.ID, 1, now, now, nil); err != nil {
			return Result{}, err
		}
		return Result{Allowed: true, AttemptsRemaining: policy.MaxAttempts - 1}, nil
	}

	newCount := rec.AttemptsCount + 1
	if newCount > policy.MaxAttempts {
		until := now.Add(time.Duration(policy.BlockMinutes) * time.Minute)
		if err := l.store.UpdateAuthAttempt(ctx, rec.ID, newCount, rec.FirstAttemptAt, now, &until); err != nil {
			return Result{}, err
		}
		return blockedResult(policy.BlockMinutes), nil
	}
	if err := l.store.UpdateAuthAttempt(ctx, rec.ID, newCount, rec.FirstAttemptAt, now, nil); err != nil {
		return Result{}, err
	}
	return Result{Allowed: true, AttemptsRemaining: policy.MaxAttempts - newCount}, nil
}

func blockedResult(remainingMinutes int) Result {
	return Result{
		Blocked:          true,
		RemainingMinutes: remainingMinutes,
		Message:          fmt.Sprintf("Trop de tentatives. Réessayez dans %d minute(s).", remainingMinutes),
	}
}

func validateIdentifier(identifier string) error {
	if identifier == "" || len(identifier) > 255 {
		return ErrInvalidIdentifier
	}
	addr, err := netmail.ParseAddress(identifier)
	if err != nil || addr.Address != identifier {
		return ErrInvalidIdentifier
	}
	return nil
}

func ceilMinutes(d time.Duration) int {
	return int((d + time.Minute - 1) / time.Minute)
}
