package paymentconfig

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
)

// Repository exposes persistence operations for the payment method registry.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a registry repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByMethod loads the config for one method, active or not.
func (r *Repository) FindByMethod(ctx context.Context, method enums.PaymentMethod) (*models.PaymentMethodConfig, error) {
	var row models.PaymentMethodConfig
	err := r.db.WithContext(ctx).First(&row, "method = ?", method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "payment method %s is not configured", method)
		}
		return nil, err
	}
	return &row, nil
}

// ListActive returns every active method config.
func (r *Repository) ListActive(ctx context.Context) ([]models.PaymentMethodConfig, error) {
	var rows []models.PaymentMethodConfig
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("display_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert inserts or replaces the config for a method.
func (r *Repository) Upsert(ctx context.Context, cfg *models.PaymentMethodConfig) (*models.PaymentMethodConfig, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "method"}},
			UpdateAll: true,
		}).
		Create(cfg).Error
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
