package application

import (
	"context"
	"errors"
	"time"

	"github.com/socialapp/user-service/internal/domain/entity"
	repo "github.com/socialapp/user-service/internal/domain/repository"
	"github.com/socialapp/user-service/internal/infrastructure/sessionstore"
	"github.com/socialapp/user-service/pkg/helpers"
	tpl "github.com/socialapp/user-service/pkg/mailer/templates"
)

// RequestReset starts the forgot-password lane: a code goes to the account's
// address and the lane remembers which email asked. Delivery is awaited.
func (s *Service) RequestReset(ctx context.Context, sid, email string) error {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return ErrUserNotFound
	}

	code, err := helpers.GenOTPCode()
	if err != nil {
		return err
	}
	if err := s.Sessions.SetReset(ctx, sid, &sessionstore.ResetState{OTP: code, Email: u.Email}); err != nil {
		return err
	}

	return s.sendOTP(ctx, tpl.ResetPasswordOTP, u.Name, u.Email, code)
}

// ConfirmResetOTP checks the submitted code and, on a match, marks the lane
// validated. The code stays in place either way; only the flag changes.
func (s *Service) ConfirmResetOTP(ctx context.Context, sid, submitted string) error {
	if submitted == "" {
		return ErrOtpRequired
	}
	st, err := s.Sessions.GetReset(ctx, sid)
	if err != nil {
		return err
	}
	if st == nil || submitted != st.OTP {
		return ErrOtpMismatch
	}

	st.OTPValidated = true
	return s.Sessions.SetReset(ctx, sid, st)
}

// ResetPassword replaces the password of the account the lane was opened for.
// Requires a prior successful ConfirmResetOTP in the same session. Returns the
// updated user and a fresh token; the whole lane is cleared on success.
func (s *Service) ResetPassword(ctx context.Context, sid, password, confirm string) (*entity.User, string, time.Time, error) {
	st, err := s.Sessions.GetReset(ctx, sid)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if st == nil || !st.OTPValidated {
		return nil, "", time.Time{}, ErrOtpNotValidated
	}

	u, err := s.Repo.GetByEmail(ctx, st.Email)
	if err != nil || u == nil {
		return nil, "", time.Time{}, ErrUserNotFound
	}

	if password == "" || confirm == "" {
		return nil, "", time.Time{}, ErrMissingFields
	}
	if password != confirm {
		return nil, "", time.Time{}, ErrPasswordMismatch
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	updated, err := s.Repo.UpdateByID(ctx, u.ID, repo.UserPatch{Password: &hash})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", time.Time{}, ErrUserNotFound
		}
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.Tokens.Issue(updated.ID, updated.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	if err := s.Sessions.ClearReset(ctx, sid); err != nil && s.Logger != nil {
		s.Logger.WithError(err).Warn("failed to clear reset session")
	}

	return updated, token, exp, nil
}
