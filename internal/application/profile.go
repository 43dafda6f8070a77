package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/socialapp/user-service/internal/domain/entity"
	repo "github.com/socialapp/user-service/internal/domain/repository"
	"github.com/socialapp/user-service/pkg/helpers"
)

// UpdateProfileInput carries optional profile fields; empty values are ignored.
// Password, when present, arrives as plaintext and is hashed here.
type UpdateProfileInput struct {
	Name      string
	Email     string
	Password  string
	Role      string
	AvatarURL string
}

// UpdateProfile applies a partial update to the acting user.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	patch := repo.UserPatch{}
	if in.Name != "" {
		name := normalizeName(in.Name)
		patch.Name = &name
	}
	if in.Email != "" {
		patch.Email = &in.Email
	}
	if in.Password != "" {
		hash, err := helpers.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		patch.Password = &hash
	}
	if in.Role != "" {
		patch.Role = &in.Role
	}
	if in.AvatarURL != "" {
		patch.AvatarURL = &in.AvatarURL
	}

	u, err := s.Repo.UpdateByID(ctx, userID, patch)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	s.indexUser(ctx, u)
	return u, nil
}

// VerifyPassword checks a plaintext password against the acting user's hash.
func (s *Service) VerifyPassword(ctx context.Context, userID, password string) error {
	if password == "" {
		return ErrMissingFields
	}
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return ErrUserNotFound
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return ErrPasswordMismatch
	}
	return nil
}

// UploadAvatar stores an avatar image in GCS and records its public URL.
func (s *Service) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (*entity.User, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return nil, errors.New("gcs not configured")
	}
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}

	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}

	updated, err := s.Repo.UpdateByID(ctx, userID, repo.UserPatch{AvatarURL: &url})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	s.indexUser(ctx, updated)
	return updated, nil
}
