package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vendorgraph/vendorgraph/internal/cache"
	"github.com/vendorgraph/vendorgraph/internal/config"
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
	"github.com/vendorgraph/vendorgraph/internal/domain/usage"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/types"
	"github.com/vendorgraph/vendorgraph/internal/validator"
)

// Stores holds the repository interfaces backed by in-memory stores
type Stores struct {
	SubscriptionRepo subscription.Repository
	UsageRepo        usage.Repository
}

// BaseServiceTestSuite provides common functionality for service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx              context.Context
	stores           Stores
	cache            cache.Cache
	webhookPublisher *InMemoryWebhookPublisher
	logger           *logger.Logger
	config           *config.Configuration
	now              time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	s.config = config.GetDefaultConfig()

	var err error
	s.logger, err = logger.NewLogger(s.config)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.stores = Stores{
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		UsageRepo:        NewInMemoryUsageStore(),
	}
	s.cache = cache.NewInMemoryCache(s.config)
	s.webhookPublisher = NewInMemoryWebhookPublisher()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores.SubscriptionRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.UsageRepo.(*InMemoryUsageStore).Clear()
	s.webhookPublisher.Clear()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) SetContext(ctx context.Context) {
	s.ctx = ctx
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetWebhookPublisher() *InMemoryWebhookPublisher {
	return s.webhookPublisher
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
