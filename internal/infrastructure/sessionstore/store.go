package sessionstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/socialapp/user-service/pkg/helpers"
)

// Store keeps per-client OTP flow state in Redis, keyed by the session-id
// cookie. Each flow lane owns its own key, so a registration in progress never
// collides with a password reset from the same client. A lane is Idle when its
// key is absent; otherwise the key holds the lane's complete state as JSON.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// PendingUser is the not-yet-persisted account captured at registration time.
// PasswordHash is a bcrypt digest; the plaintext never enters the session.
type PendingUser struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
}

// RegistrationState is lane A: an account waiting for its email OTP.
type RegistrationState struct {
	OTP     string      `json:"otp"`
	Pending PendingUser `json:"pending"`
}

// EmailChangeState is lane B: a new address waiting for confirmation.
type EmailChangeState struct {
	OTP      string `json:"otp"`
	NewEmail string `json:"new_email"`
}

// ResetState is lane C: a password reset in progress. OTPValidated flips after
// a successful code check and gates the actual reset.
type ResetState struct {
	OTP          string `json:"otp"`
	Email        string `json:"email"`
	OTPValidated bool   `json:"otp_validated"`
}

func keyRegistration(sid string) string { return "sess:" + sid + ":register" }
func keyEmailChange(sid string) string  { return "sess:" + sid + ":email_change" }
func keyReset(sid string) string        { return "sess:" + sid + ":reset" }

// GetRegistration returns the pending registration, or nil when the lane is idle.
func (s *Store) GetRegistration(ctx context.Context, sid string) (*RegistrationState, error) {
	var st RegistrationState
	ok, err := helpers.RedisGetJSON(ctx, s.rdb, keyRegistration(sid), &st)
	if err != nil || !ok {
		return nil, err
	}
	return &st, nil
}

func (s *Store) SetRegistration(ctx context.Context, sid string, st *RegistrationState) error {
	return helpers.RedisSetJSON(ctx, s.rdb, keyRegistration(sid), st, s.ttl)
}

func (s *Store) ClearRegistration(ctx context.Context, sid string) error {
	return helpers.RedisDel(ctx, s.rdb, keyRegistration(sid))
}

// GetEmailChange returns the pending email change, or nil when the lane is idle.
func (s *Store) GetEmailChange(ctx context.Context, sid string) (*EmailChangeState, error) {
	var st EmailChangeState
	ok, err := helpers.RedisGetJSON(ctx, s.rdb, keyEmailChange(sid), &st)
	if err != nil || !ok {
		return nil, err
	}
	return &st, nil
}

func (s *Store) SetEmailChange(ctx context.Context, sid string, st *EmailChangeState) error {
	return helpers.RedisSetJSON(ctx, s.rdb, keyEmailChange(sid), st, s.ttl)
}

func (s *Store) ClearEmailChange(ctx context.Context, sid string) error {
	return helpers.RedisDel(ctx, s.rdb, keyEmailChange(sid))
}

// GetReset returns the reset lane state, or nil when the lane is idle.
func (s *Store) GetReset(ctx context.Context, sid string) (*ResetState, error) {
	var st ResetState
	ok, err := helpers.RedisGetJSON(ctx, s.rdb, keyReset(sid), &st)
	if err != nil || !ok {
		return nil, err
	}
	return &st, nil
}

func (s *Store) SetReset(ctx context.Context, sid string, st *ResetState) error {
	return helpers.RedisSetJSON(ctx, s.rdb, keyReset(sid), st, s.ttl)
}

func (s *Store) ClearReset(ctx context.Context, sid string) error {
	return helpers.RedisDel(ctx, s.rdb, keyReset(sid))
}
