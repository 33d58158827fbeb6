package services

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/cardlink/apiserver/internal/auth"
	"github.com/cardlink/apiserver/internal/store"
	"github.com/cardlink/apiserver/types"
)

const minPasswordLength = 6

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, email, passwordHash string) (types.User, error)
}

// AuthService encapsulates signup, signin and session introspection.
type AuthService struct {
	repo     UserRepository
	hasher   auth.PasswordHasher
	tokens   auth.TokenCodec
	tokenTTL time.Duration
}

func NewAuthService(repo UserRepository, hasher auth.PasswordHasher, tokens auth.TokenCodec, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
	}
}

// SignUp registers a new account. It does not sign the user in; callers
// go through SignIn to obtain a token.
func (s *AuthService) SignUp(ctx context.Context, email, password string) error {
	if !validEmail(email) {
		return validationError("please enter a valid email address")
	}
	if len(password) < minPasswordLength {
		return validationError("password must be at least 6 characters long")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	if _, err := s.repo.Create(ctx, email, hash); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// SignIn verifies credentials and issues a session token. An unknown
// email and a wrong password produce the same ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Encode(user.ID, user.Email, s.tokenTTL)
}

// Introspect resolves a token to its user. The user is re-read from
// storage so a deleted account invalidates outstanding tokens
// immediately, before they expire. The returned User carries no
// password hash in any serialized form.
func (s *AuthService) Introspect(ctx context.Context, token string) (types.User, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return types.User{}, ErrUnauthenticated
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthenticated
		}
		return types.User{}, err
	}
	return user, nil
}

// DecodeToken resolves a token to a user id without touching storage.
// Used by the request middleware; ownership filters at the storage
// layer cover stale ids.
func (s *AuthService) DecodeToken(token string) (int64, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return 0, ErrUnauthenticated
	}
	return claims.UserID, nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	// Reject addresses with display names ("A <a@b.c>"); only the bare
	// form is a valid sign-in identifier.
	return err == nil && addr.Address == email
}
