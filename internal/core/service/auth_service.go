package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/tasktracker/task-api/internal/core/domain"
	"github.com/tasktracker/task-api/internal/core/ports"
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

const maxUsernameLen = 150

// AuthService implements registration, login, token refresh and verification.
type AuthService struct {
	repo      ports.IdentityRepository
	tokens    *TokenManager
	passwords ports.PasswordValidator
	log       zerolog.Logger
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(repo ports.IdentityRepository, tokens *TokenManager, passwords ports.PasswordValidator, log zerolog.Logger) *AuthService {
	if passwords == nil {
		passwords = DefaultPasswordPolicy()
	}
	return &AuthService{
		repo:      repo,
		tokens:    tokens,
		passwords: passwords,
		log:       log,
		now:       time.Now,
	}
}

// Register validates the form, hashes the password and stores a new identity.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	verr := &domain.ValidationError{}
	switch {
	case username == "":
		verr.Add("username", "This field is required.")
	case utf8.RuneCountInString(username) > maxUsernameLen:
		verr.Add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", maxUsernameLen))
	case !usernamePattern.MatchString(username):
		verr.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}

	switch {
	case in.Password == "":
		verr.Add("password", "This field is required.")
	case in.PasswordConfirmation == "":
		verr.Add("password_confirmation", "This field is required.")
	case in.Password != in.PasswordConfirmation:
		verr.Add("password", "Passwords must match.")
	default:
		var perr *domain.ValidationError
		if err := s.passwords.Validate(in.Password, username, email); errors.As(err, &perr) {
			for field, msgs := range perr.Fields {
				for _, m := range msgs {
					verr.Add(field, m)
				}
			}
		} else if err != nil {
			return nil, err
		}
	}

	if !verr.Empty() {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Identity{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Groups:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return created, nil
}

// Login checks the credentials and issues an access/refresh pair. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Spend the same bcrypt time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.log.Debug().Str("username", username).Msg("login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	access, err := s.tokens.Issue(user.ID, TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.Issue(user.ID, TokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("login succeeded")
	return &ports.TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh mints a new access token. The refresh token is not rotated and
// stays valid until it expires.
func (s *AuthService) Refresh(_ context.Context, refreshToken string) (string, error) {
	subject, err := s.tokens.Parse(refreshToken, TokenRefresh)
	if err != nil {
		return "", err
	}

	access, err := s.tokens.Issue(subject, TokenAccess)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

// Verify authenticates an access token and loads the identity it names.
func (s *AuthService) Verify(ctx context.Context, accessToken string) (*domain.Identity, error) {
	subject, err := s.tokens.Parse(accessToken, TokenAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	return user, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("timing-equaliser"), bcrypt.DefaultCost)
	})
	return s.dummyHash
}
