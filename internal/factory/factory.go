package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"golang.org/x/sync/errgroup"

	"user-service/internal/auth"
	"user-service/internal/bucketing"
	"user-service/internal/client"
	"user-service/internal/config"
	"user-service/internal/encryption"
	"user-service/internal/events"
	"user-service/internal/hashing"
	"user-service/internal/repository/clickhouse"
	"user-service/internal/repository/elastic"
	"user-service/internal/repository/redis"
	"user-service/internal/repository/scylla"
	"user-service/internal/service"
	"user-service/internal/tls"
	"user-service/internal/util"
)

// Factory manages the lifecycle of all application dependencies.
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient
	cloudinaryClient *client.CloudinaryClient

	// Managers
	hasher            *hashing.Hasher
	encryptionManager *encryption.EncryptionManager
	bucketingManager  *bucketing.BucketingManager
	tokenManager      *auth.TokenManager

	// Repositories and caches
	userRepository scylla.UserRepository
	followerRepo   scylla.FollowerRepository
	settingsRepo   scylla.OTPSettingsRepository
	requestLog     scylla.OTPRequestRepository
	otpCache       *redis.OTPCache
	sessionCache   *redis.SessionCache
	auditRepo      *clickhouse.AuditRepository
	profileIndex   *elastic.ProfileIndex
	publisher      *events.Publisher

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies.
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		tlsConfig := &tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
			Environment: cfg.Environment,
		}
		factory.tlsManager = tls.NewTLSManager(tlsConfig)
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := factory.initializeManagers(); err != nil {
		return nil, fmt.Errorf("failed to initialize managers: %w", err)
	}
	factory.initializeRepositories()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health
// checks. Kafka and Cloudinary are optional outside production.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if redisClient, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = redisClient
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	// ScyllaDB
	if scyllaClient, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = scyllaClient
		if err := f.scyllaClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			util.Info("ScyllaDB client initialized and healthy")
		}
	}

	// Kafka
	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
		util.Info("Kafka producer initialized")
	}

	// Elasticsearch
	if esClient, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
	} else {
		f.esClient = esClient
		if err := f.esClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch health check: %w", err))
		} else {
			util.Info("Elasticsearch client initialized and healthy")
		}
	}

	// ClickHouse
	if chClient, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
	} else {
		f.clickhouseClient = chClient
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse health check: %w", err))
		} else {
			util.Info("ClickHouse client initialized and healthy")
		}
	}

	// Cloudinary
	if cldClient, err := client.NewCloudinaryClient(f.config, util.Get()); err != nil {
		if f.config.IsProduction() {
			initErrors = append(initErrors, fmt.Errorf("cloudinary: %w", err))
		} else {
			util.Warn("Cloudinary initialization failed - photo uploads disabled", util.ErrorField(err))
		}
	} else {
		f.cloudinaryClient = cldClient
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeManagers initializes hashing, encryption, bucketing, and
// token managers.
func (f *Factory) initializeManagers() error {
	f.hasher = hashing.NewHasher(f.config)

	var kmsClient *kms.Client
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		kmsClient = kms.NewFromConfig(awsCfg)
	}

	f.encryptionManager = encryption.NewEncryptionManager(f.config, kmsClient)
	f.bucketingManager = bucketing.NewBucketingManager(f.config)
	f.tokenManager = auth.NewTokenManager(f.config)

	if f.config.IsProduction() {
		f.hasher.StartPepperRotation()
	}

	return nil
}

func (f *Factory) initializeRepositories() {
	f.userRepository = scylla.NewUserRepository(f.scyllaClient, util.Get())
	f.followerRepo = scylla.NewFollowerRepository(f.scyllaClient, util.Get())
	f.settingsRepo = scylla.NewOTPSettingsRepository(f.scyllaClient, util.Get())
	f.requestLog = scylla.NewOTPRequestRepository(f.scyllaClient, util.Get())

	f.otpCache = redis.NewOTPCache(f.redisClient)
	f.sessionCache = redis.NewSessionCache(f.redisClient)

	if f.clickhouseClient != nil {
		f.auditRepo = clickhouse.NewAuditRepository(f.clickhouseClient, util.Get())
	}
	if f.esClient != nil {
		f.profileIndex = elastic.NewProfileIndex(f.esClient, f.config.Elasticsearch.ProfileIndex, util.Get())
	}

	f.publisher = events.NewPublisher(f.kafkaProducer)
}

// ServiceFactory wires the service layer lazily.
func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		deps := service.Dependencies{
			UserRepo:     f.userRepository,
			FollowerRepo: f.followerRepo,
			SettingsRepo: f.settingsRepo,
			RequestLog:   f.requestLog,
			OTPCache:     f.otpCache,
			Sessions:     f.sessionCache,
			Hasher:       f.hasher,
			Encryption:   f.encryptionManager,
			Bucketing:    f.bucketingManager,
			Tokens:       f.tokenManager,
			Publisher:    f.publisher,
			Config:       f.config,
		}
		if f.auditRepo != nil {
			deps.Audit = f.auditRepo
		}
		if f.profileIndex != nil {
			deps.Profiles = f.profileIndex
		}
		if f.cloudinaryClient != nil {
			deps.Photos = f.cloudinaryClient
		}
		f.serviceFactory = service.NewServiceFactory(deps)
	}
	return f.serviceFactory
}

// HealthCheck pings every backing store concurrently and reports the
// failures by component name.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	var (
		mu           sync.Mutex
		healthErrors = make(map[string]error)
	)
	record := func(name string, err error) {
		mu.Lock()
		healthErrors[name] = err
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if f.redisClient == nil {
			record("redis", fmt.Errorf("redis client not initialized"))
		} else if err := f.redisClient.HealthCheck(ctx); err != nil {
			record("redis", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.scyllaClient == nil {
			record("scylla", fmt.Errorf("scylla client not initialized"))
		} else if err := f.scyllaClient.HealthCheck(); err != nil {
			record("scylla", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.esClient == nil {
			record("elasticsearch", fmt.Errorf("elasticsearch client not initialized"))
		} else if err := f.esClient.HealthCheck(); err != nil {
			record("elasticsearch", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.clickhouseClient == nil {
			record("clickhouse", fmt.Errorf("clickhouse client not initialized"))
		} else if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			record("clickhouse", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
				record("kafka", err)
			}
		}
		return nil
	})

	g.Go(func() error {
		if f.userRepository == nil {
			record("user_repository", fmt.Errorf("user repository not initialized"))
		} else if err := f.userRepository.HealthCheck(ctx); err != nil {
			record("user_repository", err)
		}
		return nil
	})

	_ = g.Wait()
	return healthErrors
}

// IsHealthy ignores Kafka: the service runs degraded without it.
func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "kafka")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
			util.Info("Elasticsearch client closed")
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
			util.Info("ScyllaDB client closed")
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		if f.encryptionManager != nil {
			f.encryptionManager.ClearCache()
			util.Info("Encryption manager cache cleared")
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) TokenManager() *auth.TokenManager {
	return f.tokenManager
}
