package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/store"
	"github.com/capitalize-ai/localchat/pkg/logger"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	IssueToken(userID, email string) (string, error)
}

// UserService handles signup, login and the current-user lookup.
type UserService struct {
	store      store.Store
	tokens     TokenIssuer
	logger     *logger.Logger
	bcryptCost int
	now        func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(st store.Store, tokens TokenIssuer, log *logger.Logger) *UserService {
	if log == nil {
		log = logger.Nop()
	}
	return &UserService{
		store:      st,
		tokens:     tokens,
		logger:     log,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.bcryptCost = cost
	return s
}

// Signup creates a user with a hashed password.
func (s *UserService) Signup(ctx context.Context, req *model.SignupRequest) (*model.User, error) {
	email := strings.TrimSpace(req.Email)
	if err := invalid(
		"email", ValidateEmail(email),
		"password", ValidatePassword(req.Password),
		"name", ValidateName(req.Name),
	); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = &name
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, &ConflictError{Resource: "user", Field: "email"}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if err := invalid(
		"email", required(email, "email"),
		"password", required(req.Password, "password"),
	); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &UnauthorizedError{Reason: "invalid email or password"}
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Reason: "invalid email or password"}
	}

	token, err := s.tokens.IssueToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &model.LoginResponse{Token: token, User: user}, nil
}

// Me returns the user with the given id.
func (s *UserService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, &UnauthorizedError{Reason: "not authenticated"}
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID, "load user")
	}
	return user, nil
}
