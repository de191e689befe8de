package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/edumart/enrollment-service/internal/auth"
	"github.com/edumart/enrollment-service/internal/events"
	"github.com/edumart/enrollment-service/internal/payment"
	"github.com/edumart/enrollment-service/internal/repositories"
	"github.com/edumart/enrollment-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	EnableDebugLogging bool
	LogLevel           slog.Level
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	gateway   payment.Gateway
	publisher events.EventPublisher
	tokens    *auth.TokenManager
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	enrollmentService  EnrollmentService
	progressService    ProgressService
	certificateService CertificateService
	authService        AuthService
	exportService      ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(
	repo repositories.Repository,
	gateway payment.Gateway,
	publisher events.EventPublisher,
	tokens *auth.TokenManager,
	logger *slog.Logger,
	validator *validator.Validator,
	config ServiceManagerConfig,
) ServiceManager {
	return &serviceManager{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		tokens:    tokens,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(
	repo repositories.Repository,
	gateway payment.Gateway,
	publisher events.EventPublisher,
	tokens *auth.TokenManager,
	logger *slog.Logger,
	validator *validator.Validator,
) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,
	}
	return NewServiceManager(repo, gateway, publisher, tokens, logger, validator, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.enrollmentService = NewEnrollmentService(sm.repo, sm.gateway, sm.publisher, sm.tokens, sm.logger, sm.validator)
	sm.logger.Info("Enrollment service initialized")

	sm.progressService = NewProgressService(sm.repo, sm.publisher, sm.logger, sm.validator)
	sm.logger.Info("Progress service initialized")

	sm.certificateService = NewCertificateService(sm.repo, sm.publisher, sm.logger)
	sm.logger.Info("Certificate service initialized")

	sm.authService = NewAuthService(sm.repo, sm.tokens, sm.logger, sm.validator)
	sm.logger.Info("Auth service initialized")

	sm.exportService = NewExportService(sm.repo, sm.logger)
	sm.logger.Info("Export service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Enrollment() EnrollmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.enrollmentService == nil {
		panic("enrollment service not initialized")
	}
	return sm.enrollmentService
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.progressService == nil {
		panic("progress service not initialized")
	}
	return sm.progressService
}

func (sm *serviceManager) Certificate() CertificateService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.certificateService == nil {
		panic("certificate service not initialized")
	}
	return sm.certificateService
}

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.authService == nil {
		panic("auth service not initialized")
	}
	return sm.authService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.exportService == nil {
		panic("export service not initialized")
	}
	return sm.exportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if err := sm.publisher.Close(); err != nil {
		sm.logger.Error("Failed to close event publisher", "error", err)
	}

	if repoManager, ok := sm.repo.(repositories.RepositoryManager); ok {
		if err := repoManager.Shutdown(ctx); err != nil {
			sm.logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
