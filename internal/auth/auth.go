package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pranav-m-r/Webquity/internal/ledger"
	"github.com/pranav-m-r/Webquity/internal/model"
)

// ErrInvalidCredentials is returned for an unknown username or a wrong
// password. Deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrInvalidToken is returned when a session token fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// Service verifies and manages credentials against the ledger store's
// account rows.
type Service struct {
	store    ledger.Store
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewService creates a credential service. secret signs session tokens.
func NewService(store ledger.Store, secret []byte, tokenTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL == 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		store:    store,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Register creates a new account with a zero balance.
func (s *Service) Register(ctx context.Context, username, password string) (model.Account, error) {
	if err := validateUsername(username); err != nil {
		return model.Account{}, err
	}
	if err := validatePassword(password); err != nil {
		return model.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}

	acc, err := s.store.CreateAccount(ctx, username, string(hash))
	if err != nil {
		return model.Account{}, err
	}

	s.logger.Info("account registered", "account_id", acc.ID, "username", username)
	return acc, nil
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (model.Account, string, error) {
	acc, hash, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return model.Account{}, "", ErrInvalidCredentials
		}
		return model.Account{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return model.Account{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(acc.ID)
	if err != nil {
		return model.Account{}, "", fmt.Errorf("issue token: %w", err)
	}
	return acc, token, nil
}

// ChangePassword replaces the account's password, enforcing the same
// policy as registration.
func (s *Service) ChangePassword(ctx context.Context, accountID uuid.UUID, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.UpdatePasswordHash(ctx, accountID, string(hash)); err != nil {
		return err
	}
	s.logger.Info("password changed", "account_id", accountID)
	return nil
}

// issueToken signs an HS256 JWT with the account id as subject.
func (s *Service) issueToken(accountID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken parses a session token and returns the account id it was
// issued for.
func (s *Service) VerifyToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// validateUsername enforces 8-16 alphanumeric characters.
func validateUsername(username string) error {
	if len(username) < 8 || len(username) > 16 {
		return ledger.Validationf("username", "must contain 8-16 characters")
	}
	for _, r := range username {
		if !isLetter(r) && !isDigit(r) {
			return ledger.Validationf("username", "must be alphanumeric")
		}
	}
	return nil
}

// validatePassword enforces 8-16 characters with at least one letter,
// one digit and one special character.
func validatePassword(password string) error {
	if len(password) < 8 || len(password) > 16 {
		return ledger.Validationf("password", "must contain 8-16 characters")
	}
	var hasLetter, hasDigit, hasOther bool
	for _, r := range password {
		switch {
		case isLetter(r):
			hasLetter = true
		case isDigit(r):
			hasDigit = true
		default:
			hasOther = true
		}
	}
	if !hasLetter || !hasDigit || !hasOther {
		return ledger.Validationf("password", "must contain at least one letter, one digit and one special character")
	}
	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
