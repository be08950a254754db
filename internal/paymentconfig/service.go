package paymentconfig

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/money"
)

// Service is the payment method registry: configuration validation, fee
// quoting, and method-tagged draft payload construction for checkout.
type Service interface {
	ResolveActive(ctx context.Context, method enums.PaymentMethod) (*models.PaymentMethodConfig, error)
	ListActive(ctx context.Context) ([]models.PaymentMethodConfig, error)
	Upsert(ctx context.Context, cfg *models.PaymentMethodConfig) (*models.PaymentMethodConfig, error)
	QuoteFees(ctx context.Context, method enums.PaymentMethod, amount decimal.Decimal) (*FeeQuote, error)
	BuildDraft(cfg *models.PaymentMethodConfig, amount decimal.Decimal, referenceID, customerContact string) (*DraftPayload, error)
}

// FeeQuote is the fee breakdown for paying a given amount with a method.
type FeeQuote struct {
	Method       enums.PaymentMethod `json:"method"`
	Amount       decimal.Decimal     `json:"amount"`
	Fees         money.FeeBreakdown  `json:"fees"`
	TotalPayable decimal.Decimal     `json:"total_payable"`
}

// DraftPayload is what the customer needs to act on a payment request:
// an API redirect for gateway-backed methods, or human-readable routing
// instructions for peer-to-peer transfers.
type DraftPayload struct {
	Method          enums.PaymentMethod `json:"method"`
	Amount          decimal.Decimal     `json:"amount"`
	Fees            money.FeeBreakdown  `json:"fees"`
	TotalPayable    decimal.Decimal     `json:"total_payable"`
	ReferenceID     string              `json:"reference_id"`
	CustomerContact string              `json:"customer_contact,omitempty"`

	// Gateway-backed methods.
	RedirectURL string `json:"redirect_url,omitempty"`
	GatewayMode string `json:"gateway_mode,omitempty"`

	// Manual / peer-to-peer methods.
	Instructions       string            `json:"instructions,omitempty"`
	RoutingIdentifiers map[string]string `json:"routing_identifiers,omitempty"`
	QRCodeRef          string            `json:"qr_code_ref,omitempty"`
	PaymentLink        string            `json:"payment_link,omitempty"`
}

type registryRepo interface {
	FindByMethod(ctx context.Context, method enums.PaymentMethod) (*models.PaymentMethodConfig, error)
	ListActive(ctx context.Context) ([]models.PaymentMethodConfig, error)
	Upsert(ctx context.Context, cfg *models.PaymentMethodConfig) (*models.PaymentMethodConfig, error)
}

// ServiceParams groups dependencies for the registry service.
type ServiceParams struct {
	Repo registryRepo
}

type service struct {
	repo registryRepo
}

// NewService constructs a payment method registry service.
func NewService(params ServiceParams) (*service, error) {
	if params.Repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "registry repo required")
	}
	return &service{repo: params.Repo}, nil
}

// Validate collects every configuration violation rather than stopping at
// the first one.
func Validate(cfg *models.PaymentMethodConfig) error {
	var violations []string

	if !cfg.Method.IsValid() {
		violations = append(violations, fmt.Sprintf("unknown method %q", cfg.Method))
	}
	if cfg.DisplayName == "" {
		violations = append(violations, "display name is required")
	}
	if !cfg.MinAmount.IsPositive() {
		violations = append(violations, "min amount must be positive")
	}
	if !cfg.MaxAmount.IsPositive() {
		violations = append(violations, "max amount must be positive")
	}
	if cfg.MinAmount.GreaterThanOrEqual(cfg.MaxAmount) {
		violations = append(violations, "min amount must be below max amount")
	}
	if cfg.FixedFee.IsNegative() {
		violations = append(violations, "fixed fee cannot be negative")
	}
	if cfg.PercentageFee.IsNegative() || cfg.PercentageFee.GreaterThan(decimal.NewFromInt(100)) {
		violations = append(violations, "percentage fee must be between 0 and 100")
	}

	switch {
	case cfg.Method == enums.PaymentMethodPayPal:
		creds := cfg.ActiveCredentials()
		if creds.ClientID == "" || creds.ClientSecret == "" {
			mode := "production"
			if cfg.SandboxMode {
				mode = "sandbox"
			}
			violations = append(violations, fmt.Sprintf("paypal requires %s api credentials", mode))
		}
	case cfg.Method == enums.PaymentMethodAppleCash:
		if cfg.AccountPhone == "" {
			violations = append(violations, "apple cash requires an account phone number")
		}
	case cfg.Method.IsPeerToPeer():
		if len(cfg.RoutingIdentifiers()) == 0 {
			violations = append(violations, "peer-to-peer methods require at least one routing identifier")
		}
	}

	if len(violations) > 0 {
		return apperrors.Newf(apperrors.CodeConfiguration, "payment method %s is misconfigured", cfg.Method).
			WithDetails(violations)
	}
	return nil
}

// ResolveActive returns the config for a method, requiring it to exist,
// be active, and pass validation.
func (s *service) ResolveActive(ctx context.Context, method enums.PaymentMethod) (*models.PaymentMethodConfig, error) {
	cfg, err := s.repo.FindByMethod(ctx, method)
	if err != nil {
		return nil, err
	}
	if !cfg.Active {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "payment method %s is not active", method)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListActive returns the catalog of usable methods.
func (s *service) ListActive(ctx context.Context) ([]models.PaymentMethodConfig, error) {
	return s.repo.ListActive(ctx)
}

// Upsert validates and stores a method config.
func (s *service) Upsert(ctx context.Context, cfg *models.PaymentMethodConfig) (*models.PaymentMethodConfig, error) {
	if cfg.Type == "" {
		cfg.Type = cfg.Method.DefaultType()
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, cfg)
}

// QuoteFees computes the fee breakdown for paying amount with method.
func (s *service) QuoteFees(ctx context.Context, method enums.PaymentMethod, amount decimal.Decimal) (*FeeQuote, error) {
	cfg, err := s.ResolveActive(ctx, method)
	if err != nil {
		return nil, err
	}
	fees := money.ComputeFees(cfg.FixedFee, cfg.PercentageFee, amount)
	totalPayable := amount.Add(fees.Total)
	if err := checkBounds(cfg, totalPayable); err != nil {
		return nil, err
	}
	return &FeeQuote{
		Method:       method,
		Amount:       amount,
		Fees:         fees,
		TotalPayable: totalPayable,
	}, nil
}

// BuildDraft computes fees, validates the fee-inclusive total against
// the config bounds, and returns the method-tagged payload the customer
// acts on.
func (s *service) BuildDraft(cfg *models.PaymentMethodConfig, amount decimal.Decimal, referenceID, customerContact string) (*DraftPayload, error) {
	fees := money.ComputeFees(cfg.FixedFee, cfg.PercentageFee, amount)
	totalPayable := amount.Add(fees.Total)
	if err := checkBounds(cfg, totalPayable); err != nil {
		return nil, err
	}
	payload := &DraftPayload{
		Method:          cfg.Method,
		Amount:          amount,
		Fees:            fees,
		TotalPayable:    totalPayable,
		ReferenceID:     referenceID,
		CustomerContact: customerContact,
	}

	if cfg.Method == enums.PaymentMethodPayPal {
		mode := "production"
		host := "https://www.paypal.com"
		if cfg.SandboxMode {
			mode = "sandbox"
			host = "https://www.sandbox.paypal.com"
		}
		payload.GatewayMode = mode
		payload.RedirectURL = fmt.Sprintf("%s/checkoutnow?reference=%s", host, referenceID)
		return payload, nil
	}

	routing := map[string]string{}
	if cfg.AccountEmail != "" {
		routing["email"] = cfg.AccountEmail
	}
	if cfg.AccountPhone != "" {
		routing["phone"] = cfg.AccountPhone
	}
	if cfg.AccountHandle != "" {
		routing["handle"] = cfg.AccountHandle
	}
	payload.RoutingIdentifiers = routing
	payload.QRCodeRef = cfg.QRCodeRef
	payload.PaymentLink = cfg.PaymentLink
	payload.Instructions = cfg.Instructions
	if payload.Instructions == "" {
		payload.Instructions = fmt.Sprintf("Send %s via %s and include reference %s in the note.",
			payload.TotalPayable.StringFixed(2), cfg.DisplayName, referenceID)
	}
	return payload, nil
}

// checkBounds validates the fee-inclusive total the customer would pay
// against the method's configured limits.
func checkBounds(cfg *models.PaymentMethodConfig, totalPayable decimal.Decimal) error {
	if totalPayable.LessThan(cfg.MinAmount) || totalPayable.GreaterThan(cfg.MaxAmount) {
		return apperrors.Newf(apperrors.CodeValidation,
			"total payable %s is outside the allowed range [%s, %s] for %s",
			totalPayable.StringFixed(2), cfg.MinAmount.StringFixed(2), cfg.MaxAmount.StringFixed(2), cfg.Method)
	}
	return nil
}
