package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petmily/billing-service/internal/adapter/repository"
	domainRepo "github.com/petmily/billing-service/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Subscription domainRepo.SubscriptionRepository
	Payment      domainRepo.PaymentRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Subscription: repository.NewSubscriptionRepository(db, logger),
		Payment:      repository.NewPaymentRepository(db, logger),
	}
}
