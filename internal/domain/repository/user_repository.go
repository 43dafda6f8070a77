package repository

import (
	"context"
	"errors"

	"github.com/socialapp/user-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when a create or update would violate
	// email uniqueness.
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserPatch carries the mutable fields of a profile update. Nil fields are
// left untouched.
type UserPatch struct {
	Name      *string
	Email     *string
	Password  *string // already hashed by the caller
	Role      *string
	AvatarURL *string
}

// UserRepository defines the interface for user persistence.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetAll(ctx context.Context) ([]entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateByID(ctx context.Context, id string, patch UserPatch) (*entity.User, error)
}
