package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/internal/paymentconfig"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	"github.com/rockettradeline/tradeline-backend/pkg/pagination"
)

// PaymentRepository defines the persistence surface required by the
// payment service.
type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error)
	FindLiveByCart(ctx context.Context, cartID uuid.UUID) (*models.PaymentRequest, error)
	Create(ctx context.Context, req *models.PaymentRequest) (*models.PaymentRequest, error)
	SaveVersioned(ctx context.Context, req *models.PaymentRequest, updates map[string]any) error
	List(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.PaymentRequest, int64, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.PaymentRequest, error)
	CreateVerification(ctx context.Context, v *models.PaymentVerification) (*models.PaymentVerification, error)
	FindVerificationByRequest(ctx context.Context, requestID uuid.UUID) (*models.PaymentVerification, error)
	SaveVerification(ctx context.Context, v *models.PaymentVerification) error
}

// methodRegistry resolves payment method configs and builds the
// customer-facing draft payload.
type methodRegistry interface {
	ResolveActive(ctx context.Context, method enums.PaymentMethod) (*models.PaymentMethodConfig, error)
	BuildDraft(cfg *models.PaymentMethodConfig, amount decimal.Decimal, referenceID, customerContact string) (*paymentconfig.DraftPayload, error)
}

// checkoutValidator re-checks a cart against current catalog state.
type checkoutValidator interface {
	ValidateForCheckout(ctx context.Context, cart *models.Cart) error
}

// settler materializes grants inside the completing transaction.
type settler interface {
	Settle(ctx context.Context, tx *gorm.DB, req *models.PaymentRequest) error
}

// settlementNotifier publishes fire-and-forget settlement events after
// commit. Implementations log and swallow their own failures.
type settlementNotifier interface {
	PaymentCompleted(ctx context.Context, req *models.PaymentRequest)
	PaymentFailed(ctx context.Context, req *models.PaymentRequest, reason string)
	PaymentRejected(ctx context.Context, req *models.PaymentRequest, reason string)
	ManualPaymentSubmitted(ctx context.Context, req *models.PaymentRequest)
}

// txRunner executes fn inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
