package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rockettradeline/tradeline-backend/api/responses"
	"github.com/rockettradeline/tradeline-backend/api/validators"
	"github.com/rockettradeline/tradeline-backend/internal/paymentconfig"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	pkgerrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
)

// methodView is the public projection of a payment method config.
// Credentials and sandbox wiring never leave the server.
type methodView struct {
	Method        enums.PaymentMethod     `json:"method"`
	DisplayName   string                  `json:"display_name"`
	Type          enums.PaymentMethodType `json:"type"`
	MinAmount     decimal.Decimal         `json:"min_amount"`
	MaxAmount     decimal.Decimal         `json:"max_amount"`
	FixedFee      decimal.Decimal         `json:"fixed_fee"`
	PercentageFee decimal.Decimal         `json:"percentage_fee"`
	Instructions  string                  `json:"instructions,omitempty"`
}

func newMethodView(cfg models.PaymentMethodConfig) methodView {
	return methodView{
		Method:        cfg.Method,
		DisplayName:   cfg.DisplayName,
		Type:          cfg.Type,
		MinAmount:     cfg.MinAmount,
		MaxAmount:     cfg.MaxAmount,
		FixedFee:      cfg.FixedFee,
		PercentageFee: cfg.PercentageFee,
		Instructions:  cfg.Instructions,
	}
}

// PaymentMethodList returns active payment methods with their fee
// schedules.
func PaymentMethodList(svc paymentconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		configs, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]methodView, 0, len(configs))
		for _, cfg := range configs {
			views = append(views, newMethodView(cfg))
		}
		responses.WriteSuccess(w, views)
	}
}

// PaymentMethodQuote prices a prospective payment: fees and total
// payable for an amount under a method.
func PaymentMethodQuote(svc paymentconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method, err := enums.ParsePaymentMethod(chi.URLParam(r, "method"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment method"))
			return
		}
		rawAmount := strings.TrimSpace(r.URL.Query().Get("amount"))
		if rawAmount == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "amount query parameter is required"))
			return
		}
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal"))
			return
		}

		quote, err := svc.QuoteFees(r.Context(), method, amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type upsertMethodRequest struct {
	DisplayName   string `json:"display_name" validate:"required"`
	Type          string `json:"type,omitempty"`
	Active        *bool  `json:"active,omitempty"`
	MinAmount     string `json:"min_amount" validate:"required"`
	MaxAmount     string `json:"max_amount" validate:"required"`
	FixedFee      string `json:"fixed_fee" validate:"required"`
	PercentageFee string `json:"percentage_fee" validate:"required"`

	AccountEmail  string `json:"account_email,omitempty"`
	AccountPhone  string `json:"account_phone,omitempty"`
	AccountHandle string `json:"account_handle,omitempty"`
	QRCodeRef     string `json:"qr_code_ref,omitempty"`
	PaymentLink   string `json:"payment_link,omitempty"`
	Instructions  string `json:"instructions,omitempty"`

	SandboxMode           *bool                 `json:"sandbox_mode,omitempty"`
	SandboxCredentials    models.APICredentials `json:"sandbox_credentials,omitempty"`
	ProductionCredentials models.APICredentials `json:"production_credentials,omitempty"`
}

func (req upsertMethodRequest) toConfig(method enums.PaymentMethod) (*models.PaymentMethodConfig, error) {
	parse := func(field, raw string) (decimal.Decimal, error) {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Decimal{}, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a decimal", field)
		}
		return value, nil
	}
	minAmount, err := parse("min_amount", req.MinAmount)
	if err != nil {
		return nil, err
	}
	maxAmount, err := parse("max_amount", req.MaxAmount)
	if err != nil {
		return nil, err
	}
	fixedFee, err := parse("fixed_fee", req.FixedFee)
	if err != nil {
		return nil, err
	}
	pctFee, err := parse("percentage_fee", req.PercentageFee)
	if err != nil {
		return nil, err
	}

	cfg := &models.PaymentMethodConfig{
		Method:                method,
		DisplayName:           req.DisplayName,
		Type:                  enums.PaymentMethodType(req.Type),
		Active:                true,
		MinAmount:             minAmount,
		MaxAmount:             maxAmount,
		FixedFee:              fixedFee,
		PercentageFee:         pctFee,
		AccountEmail:          req.AccountEmail,
		AccountPhone:          req.AccountPhone,
		AccountHandle:         req.AccountHandle,
		QRCodeRef:             req.QRCodeRef,
		PaymentLink:           req.PaymentLink,
		Instructions:          req.Instructions,
		SandboxMode:           true,
		SandboxCredentials:    req.SandboxCredentials,
		ProductionCredentials: req.ProductionCredentials,
	}
	if req.Active != nil {
		cfg.Active = *req.Active
	}
	if req.SandboxMode != nil {
		cfg.SandboxMode = *req.SandboxMode
	}
	return cfg, nil
}

// AdminPaymentMethodUpsert creates or replaces a method's registry entry.
func AdminPaymentMethodUpsert(svc paymentconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method, err := enums.ParsePaymentMethod(chi.URLParam(r, "method"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment method"))
			return
		}

		var payload upsertMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := payload.toConfig(method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saved, err := svc.Upsert(r.Context(), cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, saved)
	}
}
