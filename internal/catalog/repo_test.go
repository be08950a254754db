package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/pagination"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

func seedTradeline(t *testing.T, conn *gorm.DB, status enums.TradelineStatus, spots int) *models.Tradeline {
	t.Helper()

	row := &models.Tradeline{
		Bank:           "Chase",
		Price:          decimal.NewFromInt(180),
		CreditLimit:    decimal.NewFromInt(15000),
		MaxSpots:       spots,
		RemainingSpots: spots,
		Status:         status,
	}
	require.NoError(t, conn.Create(row).Error)
	return row
}

func TestRepositoryFindReturnsNotFound(t *testing.T) {
	conn := setupCatalogTestDB(t)
	repo := NewRepository(conn)

	_, err := repo.Find(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestRepositoryListActiveSkipsInactiveTradelines(t *testing.T) {
	conn := setupCatalogTestDB(t)
	repo := NewRepository(conn)

	active := seedTradeline(t, conn, enums.TradelineStatusActive, 5)
	seedTradeline(t, conn, enums.TradelineStatusInactive, 5)

	rows, _, err := repo.ListActive(context.Background(), pagination.Params{Limit: 100})
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		require.Equal(t, enums.TradelineStatusActive, row.Status)
		ids = append(ids, row.ID)
	}
	assert.Contains(t, ids, active.ID)
}

func TestRepositoryCreateDefaultsSpotsAndStatus(t *testing.T) {
	conn := setupCatalogTestDB(t)
	repo := NewRepository(conn)

	row, err := repo.Create(context.Background(), &models.Tradeline{
		Bank:     "Amex",
		Price:    decimal.NewFromInt(250),
		MaxSpots: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, row.RemainingSpots)
	assert.Equal(t, enums.TradelineStatusActive, row.Status)
}

func TestRepositoryDecrementSpotsRefusesOversell(t *testing.T) {
	conn := setupCatalogTestDB(t)
	repo := NewRepository(conn)
	row := seedTradeline(t, conn, enums.TradelineStatusActive, 2)

	require.NoError(t, repo.DecrementSpots(context.Background(), row.ID, 2))

	err := repo.DecrementSpots(context.Background(), row.ID, 1)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCapacity))
}

func TestRepositoryRestoreSpotsCapsAtMax(t *testing.T) {
	conn := setupCatalogTestDB(t)
	repo := NewRepository(conn)
	row := seedTradeline(t, conn, enums.TradelineStatusActive, 4)

	require.NoError(t, repo.DecrementSpots(context.Background(), row.ID, 1))
	require.NoError(t, repo.RestoreSpots(context.Background(), row.ID, 3))

	reloaded, err := repo.Find(context.Background(), row.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.RemainingSpots)
}
