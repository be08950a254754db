package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rockettradeline/tradeline-backend/api/responses"
	"github.com/rockettradeline/tradeline-backend/api/validators"
	"github.com/rockettradeline/tradeline-backend/internal/catalog"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	pkgerrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
	"github.com/rockettradeline/tradeline-backend/pkg/pagination"
)

// TradelineList returns the sellable catalog.
func TradelineList(repo *catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, total, err := repo.ListActive(r.Context(), p)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.NewPage(rows, p, total))
	}
}

// TradelineGet returns one tradeline.
func TradelineGet(repo *catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "tradelineID"), "tradelineID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := repo.Find(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

type createTradelineRequest struct {
	Bank     string `json:"bank" validate:"required"`
	Price    string `json:"price" validate:"required"`
	MaxSpots int    `json:"max_spots" validate:"required,min=1"`
}

// AdminTradelineCreate adds a tradeline to the catalog.
func AdminTradelineCreate(repo *catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createTradelineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := decimal.NewFromString(payload.Price)
		if err != nil || price.IsNegative() {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "price must be a non-negative decimal"))
			return
		}

		row, err := repo.Create(r.Context(), &models.Tradeline{
			Bank:           payload.Bank,
			Price:          price,
			MaxSpots:       payload.MaxSpots,
			RemainingSpots: payload.MaxSpots,
			Status:         enums.TradelineStatusActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}
