package application

import (
	"context"
	"errors"

	"github.com/socialapp/user-service/internal/domain/entity"
	repo "github.com/socialapp/user-service/internal/domain/repository"
	"github.com/socialapp/user-service/internal/infrastructure/sessionstore"
	"github.com/socialapp/user-service/pkg/helpers"
	tpl "github.com/socialapp/user-service/pkg/mailer/templates"
)

// RequestEmailChange starts the email-change lane for the acting user. The
// OTP goes to the new address; delivery is awaited because the caller needs
// to know the code is on its way.
func (s *Service) RequestEmailChange(ctx context.Context, sid, userID, newEmail string) error {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return ErrUserNotFound
	}
	if newEmail == u.Email {
		return ErrSameEmail
	}

	other, err := s.Repo.GetByEmail(ctx, newEmail)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if other != nil {
		return ErrDuplicateEmail
	}

	code, err := helpers.GenOTPCode()
	if err != nil {
		return err
	}
	if err := s.Sessions.SetEmailChange(ctx, sid, &sessionstore.EmailChangeState{OTP: code, NewEmail: newEmail}); err != nil {
		return err
	}

	return s.sendOTP(ctx, tpl.EmailChangeOTP, u.Name, newEmail, code)
}

// ConfirmEmailChange applies the pending address after a matching code.
// A mismatch leaves the lane intact for retry; success clears it.
func (s *Service) ConfirmEmailChange(ctx context.Context, sid, userID, submitted string) (*entity.User, error) {
	st, err := s.Sessions.GetEmailChange(ctx, sid)
	if err != nil {
		return nil, err
	}
	if st == nil || st.NewEmail == "" {
		return nil, ErrNoPendingEmail
	}
	if submitted != st.OTP {
		return nil, ErrOtpMismatch
	}

	updated, err := s.Repo.UpdateByID(ctx, userID, repo.UserPatch{Email: &st.NewEmail})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	if err := s.Sessions.ClearEmailChange(ctx, sid); err != nil && s.Logger != nil {
		s.Logger.WithError(err).Warn("failed to clear email change session")
	}

	s.indexUser(ctx, updated)
	return updated, nil
}
