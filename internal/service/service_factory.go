package service

import (
	"user-service/internal/auth"
	"user-service/internal/bucketing"
	"user-service/internal/config"
	"user-service/internal/encryption"
	"user-service/internal/hashing"
	"user-service/internal/repository/scylla"
)

// Dependencies collects everything the services need, built once by the
// application factory.
type Dependencies struct {
	UserRepo     scylla.UserRepository
	FollowerRepo scylla.FollowerRepository
	SettingsRepo scylla.OTPSettingsRepository
	RequestLog   scylla.OTPRequestRepository

	OTPCache otpStore
	Sessions sessionStore

	Hasher     *hashing.Hasher
	Encryption *encryption.EncryptionManager
	Bucketing  *bucketing.BucketingManager
	Tokens     *auth.TokenManager

	Publisher eventPublisher
	Audit     auditRecorder
	Profiles  profileIndexer
	Photos    photoUploader

	Config *config.Config
}

// ServiceFactory builds service singletons on demand.
type ServiceFactory struct {
	deps Dependencies

	otpService      *OTPService
	userService     *UserService
	settingsService *SettingsService
	authService     *AuthService
}

func NewServiceFactory(deps Dependencies) *ServiceFactory {
	return &ServiceFactory{deps: deps}
}

func (f *ServiceFactory) OTPService() *OTPService {
	if f.otpService == nil {
		f.otpService = NewOTPService(
			f.deps.UserRepo,
			f.deps.SettingsRepo,
			f.deps.RequestLog,
			f.deps.OTPCache,
			f.deps.Sessions,
			f.deps.Hasher,
			f.deps.Encryption,
			f.deps.Bucketing,
			f.deps.Tokens,
			f.deps.Publisher,
			f.deps.Audit,
			f.deps.Profiles,
			f.deps.Config,
		)
	}
	return f.otpService
}

func (f *ServiceFactory) UserService() *UserService {
	if f.userService == nil {
		f.userService = NewUserService(
			f.deps.UserRepo,
			f.deps.FollowerRepo,
			f.deps.Bucketing,
			f.deps.Publisher,
			f.deps.Audit,
			f.deps.Profiles,
			f.deps.Photos,
		)
	}
	return f.userService
}

func (f *ServiceFactory) SettingsService() *SettingsService {
	if f.settingsService == nil {
		f.settingsService = NewSettingsService(f.deps.SettingsRepo)
	}
	return f.settingsService
}

func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(f.deps.Sessions)
	}
	return f.authService
}
