package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultDepartment = "general"

// RegisterInput is the self-registration payload. ConfirmPassword is
// validated and stripped; it never reaches storage.
type RegisterInput struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Bio             string `json:"bio"`
	Department      string `json:"department"`
}

// TokenPair holds freshly issued access and refresh tokens.
type TokenPair struct {
	AccessToken      string    `json:"access"`
	RefreshToken     string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Service is the request-facing authentication gateway: registration,
// login, token refresh, logout and the admission check protected
// operations reuse. It never logs; every failure is a typed error for
// the boundary layer to map.
type Service struct {
	store  Store
	tokens *TokenService
}

// NewService constructs the gateway.
func NewService(store Store, tokens *TokenService) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	return &Service{store: store, tokens: tokens}, nil
}

// EnsureBuiltins makes sure predefined permissions exist.
func (s *Service) EnsureBuiltins(ctx context.Context) error {
	return s.store.EnsurePermissions(ctx, BuiltinPermissions)
}

// Register creates a regular account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	return s.register(ctx, in, false)
}

// RegisterStaff creates an account stamped staff+superuser. Identical
// to Register apart from the flags.
func (s *Service) RegisterStaff(ctx context.Context, in RegisterInput) (*User, error) {
	return s.register(ctx, in, true)
}

func (s *Service) register(ctx context.Context, in RegisterInput, staff bool) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if in.Password == "" || in.ConfirmPassword == "" {
		return nil, fmt.Errorf("%w: password and confirmation are required", ErrInvalidInput)
	}
	if in.Password != in.ConfirmPassword {
		return nil, fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Username:     in.Username,
		PasswordHash: hash,
		Bio:          strings.TrimSpace(in.Bio),
		Department:   strings.TrimSpace(in.Department),
		IsStaff:      staff,
		IsSuperuser:  staff,
	}
	if user.Department == "" {
		user.Department = defaultDepartment
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues an access/refresh pair. Unknown
// username, wrong password and empty password all yield the same
// ErrInvalidCredentials so responses carry no enumeration signal.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, *User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return TokenPair{}, nil, ErrInvalidCredentials
	}
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, nil, ErrInvalidCredentials
		}
		return TokenPair{}, nil, err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return TokenPair{}, nil, ErrInvalidCredentials
	}

	access, accessExp, err := s.tokens.IssueAccess(user)
	if err != nil {
		return TokenPair{}, nil, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return TokenPair{}, nil, err
	}
	pair := TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}
	return pair, user, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	claims, err := s.tokens.Verify(ctx, refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", time.Time{}, err
	}
	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.tokens.IssueAccess(user)
}

// Logout revokes the presented refresh token. The token must still
// verify as a refresh token; anything else is rejected with the
// verification reason.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if _, err := s.tokens.Verify(ctx, refreshToken, TokenTypeRefresh); err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, refreshToken)
}

// CurrentIdentity resolves an access token to its user.
func (s *Service) CurrentIdentity(ctx context.Context, accessToken string) (*User, error) {
	return s.Admit(ctx, accessToken, "")
}

// Admit is the reusable admission check: verify the access token, load
// the user, and, when requiredPermission is set, test it against the
// user's effective permissions. Superusers hold every permission
// implicitly.
func (s *Service) Admit(ctx context.Context, accessToken, requiredPermission string) (*User, error) {
	claims, err := s.tokens.Verify(ctx, accessToken, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}
	if requiredPermission != "" && !user.IsSuperuser && !user.HasPermission(requiredPermission) {
		return nil, ErrPermissionDenied
	}
	return user, nil
}

// ChangePassword is the only path that mutates a stored password hash.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.store.UpdateUserPassword(ctx, userID, hash)
}

// PruneRevoked delegates to the token service; exposed so the process
// boundary can run periodic denylist cleanup without touching internals.
func (s *Service) PruneRevoked(ctx context.Context) (int64, error) {
	return s.tokens.PruneRevoked(ctx)
}

func (s *Service) userFromClaims(ctx context.Context, claims *Claims) (*User, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		// A token for a vanished user is indistinguishable from a forged
		// one as far as the caller is concerned.
		if errors.Is(err, ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return user, nil
}
