package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/socialapp/user-service/internal/domain/entity"
	repo "github.com/socialapp/user-service/internal/domain/repository"
)

func setupActingUser(env *testEnv) *entity.User {
	acting := &entity.User{ID: "u1", Name: "Alice", Email: "a@x.com"}
	env.repo.GetByIDFn = func(ctx context.Context, id string) (*entity.User, error) {
		if id == acting.ID {
			return acting, nil
		}
		return nil, repo.ErrNotFound
	}
	return acting
}

func TestRequestEmailChangeSameEmail(t *testing.T) {
	env := newTestEnv(t)
	setupActingUser(env)

	err := env.svc.RequestEmailChange(context.Background(), "sid", "u1", "a@x.com")
	require.ErrorIs(t, err, ErrSameEmail)
}

func TestRequestEmailChangeTakenEmail(t *testing.T) {
	env := newTestEnv(t)
	setupActingUser(env)
	env.repo.GetByEmailFn = func(ctx context.Context, email string) (*entity.User, error) {
		return &entity.User{ID: "u2", Email: email}, nil
	}

	err := env.svc.RequestEmailChange(context.Background(), "sid", "u1", "new@x.com")
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRequestEmailChangeSendsAwaitedOTP(t *testing.T) {
	env := newTestEnv(t)
	setupActingUser(env)
	ctx := context.Background()

	require.NoError(t, env.svc.RequestEmailChange(ctx, "sid", "u1", "new@x.com"))

	st, err := env.sessions.GetEmailChange(ctx, "sid")
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Equal(t, "new@x.com", st.NewEmail)
	require.Len(t, st.OTP, 4)

	sent := env.mail.sentMails()
	require.Len(t, sent, 1, "email-change OTP is sent directly, not queued")
	require.Equal(t, "new@x.com", sent[0].To)
	require.Contains(t, sent[0].Text, st.OTP)
	require.Empty(t, env.queue.published())
}

func TestRequestEmailChangeDeliveryFailureSurfaces(t *testing.T) {
	env := newTestEnv(t)
	setupActingUser(env)
	env.mail.Fail = context.DeadlineExceeded

	err := env.svc.RequestEmailChange(context.Background(), "sid", "u1", "new@x.com")
	require.Error(t, err)
}

func TestConfirmEmailChange(t *testing.T) {
	env := newTestEnv(t)
	acting := setupActingUser(env)
	ctx := context.Background()

	_, err := env.svc.ConfirmEmailChange(ctx, "sid", "u1", "1234")
	require.ErrorIs(t, err, ErrNoPendingEmail)

	require.NoError(t, env.svc.RequestEmailChange(ctx, "sid", "u1", "new@x.com"))
	st, _ := env.sessions.GetEmailChange(ctx, "sid")

	wrong := "0000"
	if st.OTP == wrong {
		wrong = "0001"
	}
	_, err = env.svc.ConfirmEmailChange(ctx, "sid", "u1", wrong)
	require.ErrorIs(t, err, ErrOtpMismatch)

	still, err := env.sessions.GetEmailChange(ctx, "sid")
	require.NoError(t, err)
	require.NotNil(t, still, "mismatch leaves the lane for retry")

	var gotPatch repo.UserPatch
	env.repo.UpdateByIDFn = func(ctx context.Context, id string, patch repo.UserPatch) (*entity.User, error) {
		require.Equal(t, "u1", id)
		gotPatch = patch
		updated := *acting
		updated.Email = *patch.Email
		return &updated, nil
	}

	u, err := env.svc.ConfirmEmailChange(ctx, "sid", "u1", st.OTP)
	require.NoError(t, err)
	require.Equal(t, "new@x.com", u.Email)

	// Only the email moves.
	require.NotNil(t, gotPatch.Email)
	require.Nil(t, gotPatch.Name)
	require.Nil(t, gotPatch.Password)
	require.Nil(t, gotPatch.Role)
	require.Nil(t, gotPatch.AvatarURL)

	cleared, err := env.sessions.GetEmailChange(ctx, "sid")
	require.NoError(t, err)
	require.Nil(t, cleared)
}
