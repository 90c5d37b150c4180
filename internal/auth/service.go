package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Jashneer/HireIQ/internal/database"
	"github.com/Jashneer/HireIQ/internal/logging"
	"github.com/Jashneer/HireIQ/pkg/models"
)

var (
	// ErrEmailTaken is returned when registering an already-used email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a failed login. Deliberately
	// the same for unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserStore defines the persistence operations the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service handles account registration and login.
type Service struct {
	store  UserStore
	tokens *TokenIssuer
	logger *logging.Logger
}

// NewService creates an auth service.
func NewService(store UserStore, tokens *TokenIssuer, logger *logging.Logger) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

// Register creates a new account on the free plan and returns the user
// with a signed session token.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*models.User, string, error) {
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:                 uuid.New().String(),
		Email:              email,
		PasswordHash:       string(hash),
		FirstName:          firstName,
		LastName:           lastName,
		Plan:               models.PlanFree,
		SubscriptionStatus: models.SubscriptionInactive,
		UsageCount:         0,
		UsageResetDate:     now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	s.logger.WithUserID(user.ID).Info("User registered")
	return user, token, nil
}

// Login verifies credentials and returns the user with a signed session
// token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// CurrentUser loads the account behind a verified token subject.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUser(ctx, userID)
}
