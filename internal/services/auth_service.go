package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/edumart/enrollment-service/internal/auth"
	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/repositories"
	"github.com/edumart/enrollment-service/internal/validator"
)

type authService struct {
	repo      repositories.Repository
	tokens    *auth.TokenManager
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAuthService(
	repo repositories.Repository,
	tokens *auth.TokenManager,
	logger *slog.Logger,
	validator *validator.Validator,
) AuthService {
	return &authService{
		repo:      repo,
		tokens:    tokens,
		logger:    logger,
		validator: validator,
	}
}

func (s *authService) Register(ctx context.Context, req *SignupProfileRequest) (*AuthResponse, error) {
	s.logger.Info("Registering user", "email", req.Email)

	if err := s.validator.Validate(req); err != nil {
		if len(req.Password) < auth.MinPasswordLength {
			return nil, ErrWeakPassword
		}
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleStudent,
		Phone:        req.Phone,
	}
	if err := s.repo.User().Create(ctx, user); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID)
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.repo.User().GetByEmail(ctx, req.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// Same sentinel for unknown email and bad password.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		s.logger.Warn("Failed login attempt", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResponse{User: user, Token: token}, nil
}
