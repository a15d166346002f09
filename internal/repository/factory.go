package repository

import (
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
	"github.com/vendorgraph/vendorgraph/internal/domain/usage"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/postgres"
	postgresRepo "github.com/vendorgraph/vendorgraph/internal/repository/postgres"
)

func NewSubscriptionRepository(client postgres.IClient, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(client, logger)
}

func NewUsageRepository(client postgres.IClient, logger *logger.Logger) usage.Repository {
	return postgresRepo.NewUsageRepository(client, logger)
}
