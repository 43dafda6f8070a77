package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/socialapp/user-service/internal/domain/entity"
	repo "github.com/socialapp/user-service/internal/domain/repository"
	"github.com/socialapp/user-service/internal/infrastructure/sessionstore"
	"github.com/socialapp/user-service/pkg/helpers"
	tpl "github.com/socialapp/user-service/pkg/mailer/templates"
)

// RegisterInput carries the registration fields after binding validation.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Register validates the input, captures the pending account in the session,
// and triggers best-effort OTP delivery. The existence check, password hash,
// and code generation have no data dependency, so they run concurrently.
func (s *Service) Register(ctx context.Context, sid string, in RegisterInput) error {
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Role == "" {
		return ErrMissingFields
	}
	name := normalizeName(in.Name)

	if in.Email == name {
		return ErrEmailEqualsName
	}
	if len(in.Password) < 6 {
		return ErrPasswordTooShort
	}
	if in.Password == name || in.Password == in.Email {
		return ErrPasswordEqualsIdentity
	}

	var (
		existing *entity.User
		lookupEr error
		hash     string
		hashErr  error
		code     string
		codeErr  error
	)
	done := make(chan struct{}, 3)
	go func() { existing, lookupEr = s.Repo.GetByEmail(ctx, in.Email); done <- struct{}{} }()
	go func() { hash, hashErr = helpers.HashPassword(in.Password); done <- struct{}{} }()
	go func() { code, codeErr = helpers.GenOTPCode(); done <- struct{}{} }()
	for i := 0; i < 3; i++ {
		<-done
	}

	if lookupEr == nil && existing != nil {
		return ErrDuplicateEmail
	}
	if lookupEr != nil && !errors.Is(lookupEr, repo.ErrNotFound) {
		return lookupEr
	}
	if hashErr != nil {
		return hashErr
	}
	if codeErr != nil {
		return codeErr
	}

	st := &sessionstore.RegistrationState{
		OTP: code,
		Pending: sessionstore.PendingUser{
			Name:         name,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
		},
	}
	if err := s.Sessions.SetRegistration(ctx, sid, st); err != nil {
		return err
	}

	// Delivery must never delay the response.
	s.dispatchOTP(tpl.RegistrationOTP, name, in.Email, code)
	return nil
}

// ResendOTP replaces the session's registration code with a fresh one and
// re-sends it. The previous code stops working the moment the new one lands.
func (s *Service) ResendOTP(ctx context.Context, sid string) error {
	st, err := s.Sessions.GetRegistration(ctx, sid)
	if err != nil {
		return err
	}
	if st == nil || st.Pending.Email == "" || st.Pending.Name == "" {
		return ErrNoPendingRegistration
	}

	code, err := helpers.GenOTPCode()
	if err != nil {
		return err
	}
	st.OTP = code
	if err := s.Sessions.SetRegistration(ctx, sid, st); err != nil {
		return err
	}

	s.dispatchOTP(tpl.RegistrationOTP, st.Pending.Name, st.Pending.Email, code)
	return nil
}

// VerifyOTP checks the submitted code against the pending registration. On a
// match it persists the user and signs a token, concurrently, then clears the
// lane. On a mismatch the session is left untouched so the client may retry.
func (s *Service) VerifyOTP(ctx context.Context, sid, submitted string) (*entity.User, string, time.Time, error) {
	st, err := s.Sessions.GetRegistration(ctx, sid)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if st == nil || st.Pending.Name == "" || st.Pending.Email == "" || st.Pending.PasswordHash == "" {
		return nil, "", time.Time{}, ErrIncompleteRegistration
	}
	if submitted != st.OTP {
		return nil, "", time.Time{}, ErrOtpMismatch
	}

	u := &entity.User{
		ID:       uuid.NewString(),
		Name:     st.Pending.Name,
		Email:    st.Pending.Email,
		Password: st.Pending.PasswordHash,
		Role:     st.Pending.Role,
	}

	// The ID is assigned above, so the save and the signing are independent.
	var (
		saveErr error
		token   string
		exp     time.Time
		signErr error
	)
	done := make(chan struct{}, 2)
	go func() { saveErr = s.Repo.Create(ctx, u); done <- struct{}{} }()
	go func() { token, exp, signErr = s.Tokens.Issue(u.ID, u.Email); done <- struct{}{} }()
	<-done
	<-done

	if saveErr != nil {
		if errors.Is(saveErr, repo.ErrDuplicateEmail) {
			return nil, "", time.Time{}, ErrDuplicateEmail
		}
		return nil, "", time.Time{}, saveErr
	}
	if signErr != nil {
		return nil, "", time.Time{}, signErr
	}

	if err := s.Sessions.ClearRegistration(ctx, sid); err != nil && s.Logger != nil {
		s.Logger.WithError(err).Warn("failed to clear registration session")
	}

	s.indexUser(ctx, u)
	return u, token, exp, nil
}

// Login authenticates email/password and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, string, time.Time, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, "", time.Time{}, ErrUserNotFound
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	token, exp, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return u, token, exp, nil
}

// CheckAuth verifies a raw token and resolves the full user behind it.
// Token errors pass through so the caller can distinguish expired from
// malformed; a missing user maps to ErrUserNotFound.
func (s *Service) CheckAuth(ctx context.Context, token string) (*entity.User, error) {
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	u, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// ListUsers returns every user.
func (s *Service) ListUsers(ctx context.Context) ([]entity.User, error) {
	return s.Repo.GetAll(ctx)
}
