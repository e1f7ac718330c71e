package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"finkid-backend/internal/apperr"
	"finkid-backend/internal/config"
	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
	"finkid-backend/internal/repository"
)

// dummyHash keeps the login path constant-time when the identity is
// unknown.
const dummyHash = "$2a$10$7zFqzDbD3RrlkMTczbXG9OWZ0FLOXjIxXzSZ.QZxkVXjXcx7QZQiC"

// AuthResult is the outcome of a successful registration or login.
type AuthResult struct {
	UserID uuid.UUID
	Token  string
}

// AuthService handles registration, login, and JWT issuance.
type AuthService struct {
	userRepo *repository.UserRepository
	cfg      config.JWTConfig
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(userRepo *repository.UserRepository, cfg config.JWTConfig) *AuthService {
	return &AuthService{userRepo: userRepo, cfg: cfg}
}

// Register creates a user account and returns a fresh token.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, username, email, string(hash))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.KindConflict, "Username or email already taken")
		}
		return nil, err
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Str("username", username).Msg("User registered")
	return &AuthResult{UserID: user.ID, Token: token}, nil
}

// Login exchanges credentials for a token. The identity may be a
// username or an email address.
func (s *AuthService) Login(ctx context.Context, identity, password string) (*AuthResult, error) {
	var user *model.User
	var err error
	if strings.Contains(identity, "@") {
		user, err = s.userRepo.GetByEmail(ctx, identity)
	} else {
		user, err = s.userRepo.GetByUsername(ctx, identity)
	}
	if err != nil {
		// Burn a comparison anyway so unknown identities take as long
		// as wrong passwords.
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, apperr.New(apperr.KindUnauthorized, "Invalid credentials")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "Invalid credentials")
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{UserID: user.ID, Token: token}, nil
}

// GenerateToken issues an HS256 token carrying the user id.
func (s *AuthService) GenerateToken(user *model.User) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["user_id"] = user.ID.String()
	claims["username"] = user.Username
	claims["exp"] = time.Now().Add(s.cfg.Expiration).Unix()

	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// UserIDFromToken extracts the authenticated user id from a verified
// token.
func UserIDFromToken(token *jwt.Token) (uuid.UUID, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, apperr.New(apperr.KindUnauthorized, "Invalid token claims")
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, apperr.New(apperr.KindUnauthorized, "Invalid token claims")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindUnauthorized, "Invalid token claims")
	}
	return userID, nil
}
