package auth

import (
	"context"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	apperrors "daybook/internal/errors"
	"daybook/internal/models"
	"daybook/internal/storage"
)

const minPasswordLength = 8

func badCredentials() error {
	return apperrors.NewUnauthorizedError("invalid email or password", nil)
}

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Country  string `json:"country"`
}

// Service registers and authenticates users.
type Service struct {
	users  storage.UserStore
	tokens *TokenService
	cost   int
}

// NewService wires the account service.
func NewService(users storage.UserStore, tokens *TokenService) *Service {
	return &Service{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Tokens exposes the underlying token service.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Register validates the input, stores the account and issues a session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, Pair, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))

	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		return models.User{}, Pair{}, apperrors.NewValidationError("a valid email is required", err)
	}
	if len(in.Password) < minPasswordLength {
		return models.User{}, Pair{}, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	if in.Name == "" {
		return models.User{}, Pair{}, apperrors.NewValidationError("name is required", nil)
	}
	if !validCountry(in.Country) {
		return models.User{}, Pair{}, apperrors.NewValidationError("country must be a two-letter code", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return models.User{}, Pair{}, err
	}

	user, err := s.users.CreateUser(ctx, models.User{
		Email:        in.Email,
		Name:         in.Name,
		Country:      in.Country,
		PasswordHash: string(hash),
	})
	if err != nil {
		return models.User{}, Pair{}, err
	}

	pair, err := s.tokens.Issue(IdentityOf(user))
	if err != nil {
		return models.User{}, Pair{}, err
	}
	return user, pair, nil
}

// Login checks the password and issues a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, Pair, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return models.User{}, Pair{}, badCredentials()
		}
		return models.User{}, Pair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, Pair{}, badCredentials()
	}

	pair, err := s.tokens.Issue(IdentityOf(user))
	if err != nil {
		return models.User{}, Pair{}, err
	}
	return user, pair, nil
}

// IdentityOf extracts the token identity from a user.
func IdentityOf(u models.User) Identity {
	return Identity{UserID: u.ID, Email: u.Email, Country: u.Country}
}

func validCountry(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
