package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/internal/catalog"
	"github.com/rockettradeline/tradeline-backend/internal/repo"
	"github.com/rockettradeline/tradeline-backend/pkg/auth"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/pagination"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type cartTestEnv struct {
	db      *gorm.DB
	svc     *service
	catalog *catalog.Repository
	caller  auth.Identity
}

func newCartTestEnv(t *testing.T) *cartTestEnv {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	catalogRepo := catalog.NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repo:              NewRepository(conn),
		Tradelines:        catalogRepo,
		TransactionRunner: testTxRunner{db: conn},
		CartTTL:           30 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &cartTestEnv{
		db:      conn,
		svc:     svc,
		catalog: catalogRepo,
		caller:  auth.Identity{UserID: uuid.New(), Email: "buyer@example.com"},
	}
}

func (e *cartTestEnv) seedTradeline(t *testing.T, price string, spots int) *models.Tradeline {
	t.Helper()
	rate, err := decimal.NewFromString(price)
	if err != nil {
		t.Fatalf("parse price: %v", err)
	}
	tl, err := e.catalog.Create(context.Background(), &models.Tradeline{
		Bank:           "Chase Sapphire",
		Price:          rate,
		MaxSpots:       spots,
		RemainingSpots: spots,
		Status:         enums.TradelineStatusActive,
	})
	if err != nil {
		t.Fatalf("seed tradeline: %v", err)
	}
	return tl
}

func (e *cartTestEnv) newCart(t *testing.T) *models.Cart {
	t.Helper()
	cart, err := e.svc.GetOrCreate(context.Background(), e.caller)
	if err != nil {
		t.Fatalf("get or create cart: %v", err)
	}
	return cart
}

func TestGetOrCreate_ReturnsExistingWorkingCart(t *testing.T) {
	env := newCartTestEnv(t)
	first := env.newCart(t)
	second := env.newCart(t)
	if first.ID != second.ID {
		t.Fatalf("expected the same working cart, got %s and %s", first.ID, second.ID)
	}
}

func TestAddItem_DerivesTotalsWithPercentageDiscount(t *testing.T) {
	env := newCartTestEnv(t)
	tl := env.seedTradeline(t, "100", 5)
	cart := env.newCart(t)
	ctx := context.Background()

	updated, err := env.svc.AddItem(ctx, env.caller, cart.ID, tl.ID, 2)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if !updated.Subtotal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("subtotal = %s, want 200", updated.Subtotal)
	}

	updated, err = env.svc.ApplyDiscount(ctx, env.caller, cart.ID, enums.DiscountKindPercentage, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("apply discount: %v", err)
	}
	if !updated.Discount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("discount = %s, want 20", updated.Discount)
	}
	if !updated.Total.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("total = %s, want 180", updated.Total)
	}

	// Totals stay derived after further mutation.
	updated, err = env.svc.AddItem(ctx, env.caller, cart.ID, tl.ID, 1)
	if err != nil {
		t.Fatalf("add second item: %v", err)
	}
	want := updated.Subtotal.Sub(updated.Discount).Add(updated.Tax)
	if !updated.Total.Equal(want) {
		t.Fatalf("total %s does not equal subtotal-discount+tax %s", updated.Total, want)
	}
}

func TestAddItem_CapacityBoundary(t *testing.T) {
	env := newCartTestEnv(t)
	tl := env.seedTradeline(t, "50", 3)
	cart := env.newCart(t)
	ctx := context.Background()

	if _, err := env.svc.AddItem(ctx, env.caller, cart.ID, tl.ID, 3); err != nil {
		t.Fatalf("adding exactly the remaining capacity should succeed: %v", err)
	}

	_, err := env.svc.AddItem(ctx, env.caller, cart.ID, tl.ID, 1)
	if !apperrors.HasCode(err, apperrors.CodeCapacity) {
		t.Fatalf("expected CAPACITY_EXCEEDED, got %v", err)
	}

	// The failed add must not have changed the cart.
	got, err := env.svc.Get(ctx, env.caller, cart.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 3 {
		t.Fatalf("unexpected items after failed add: %+v", got.Items)
	}
}

func TestAddItem_InactiveTradeline(t *testing.T) {
	env := newCartTestEnv(t)
	tl := env.seedTradeline(t, "75", 2)
	cart := env.newCart(t)
	ctx := context.Background()

	if err := env.db.Model(&models.Tradeline{}).Where("id = ?", tl.ID).
		Update("status", enums.TradelineStatusInactive).Error; err != nil {
		t.Fatalf("deactivate tradeline: %v", err)
	}

	_, err := env.svc.AddItem(ctx, env.caller, cart.ID, tl.ID, 1)
	if !apperrors.HasCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT for inactive tradeline, got %v", err)
	}
}

func TestRemoveItem_AbsentIsNoOp(t *testing.T) {
	env := newCartTestEnv(t)
	cart := env.newCart(t)

	got, err := env.svc.RemoveItem(context.Background(), env.caller, cart.ID, uuid.New())
	if err != nil {
		t.Fatalf("removing an absent item must be a no-op success, got %v", err)
	}
	if len(got.Items) != 0 {
		t.Fatalf("unexpected items %+v", got.Items)
	}
}

func TestSetItemQuantity_ZeroRemovesLine(t *testing.T) {
	env := newCartTestEnv(t)
	tl := env.seedTradeline(t, "40", 4)
	cart := env.newCart(t)
	ctx := context.Background()

	if _, err := env.svc.AddItem(ctx, env.caller, cart.ID, tl.ID, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	got, err := env.svc.SetItemQuantity(ctx, env.caller, cart.ID, tl.ID, 0)
	if err != nil {
		t.Fatalf("set quantity to zero: %v", err)
	}
	if len(got.Items) != 0 {
		t.Fatalf("expected line removed, got %+v", got.Items)
	}
	if !got.Total.IsZero() {
		t.Fatalf("expected zero total, got %s", got.Total)
	}
}

func TestClear_ResetsItemsAndDiscount(t *testing.T) {
	env := newCartTestEnv(t)
	tl := env.seedTradeline(t, "100", 5)
	cart := env.newCart(t)
	ctx := context.Background()

	if _, err := env.svc.AddItem(ctx, env.caller, cart.ID, tl.ID, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := env.svc.ApplyDiscount(ctx, env.caller, cart.ID, enums.DiscountKindAmount, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("apply discount: %v", err)
	}

	got, err := env.svc.Clear(ctx, env.caller, cart.ID)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(got.Items) != 0 || !got.Total.IsZero() || !got.Discount.IsZero() {
		t.Fatalf("expected empty cart, got %+v", got)
	}
}

func TestApplyDiscount_RejectsInvalidPercentage(t *testing.T) {
	env := newCartTestEnv(t)
	cart := env.newCart(t)

	for _, v := range []int64{-1, 101} {
		_, err := env.svc.ApplyDiscount(context.Background(), env.caller, cart.ID, enums.DiscountKindPercentage, decimal.NewFromInt(v))
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Fatalf("percentage %d: expected VALIDATION_ERROR, got %v", v, err)
		}
	}
}

func TestApplyDiscount_NegativeTotalSurfaces(t *testing.T) {
	env := newCartTestEnv(t)
	tl := env.seedTradeline(t, "10", 5)
	cart := env.newCart(t)
	ctx := context.Background()

	if _, err := env.svc.AddItem(ctx, env.caller, cart.ID, tl.ID, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	_, err := env.svc.ApplyDiscount(ctx, env.caller, cart.ID, enums.DiscountKindAmount, decimal.NewFromInt(50))
	if !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Fatalf("expected integrity failure for negative total, got %v", err)
	}
}

func TestMutate_ForbiddenForOtherOwner(t *testing.T) {
	env := newCartTestEnv(t)
	tl := env.seedTradeline(t, "60", 3)
	cart := env.newCart(t)

	stranger := auth.Identity{UserID: uuid.New()}
	_, err := env.svc.AddItem(context.Background(), stranger, cart.ID, tl.ID, 1)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}

	admin := auth.Identity{UserID: uuid.New(), Admin: true}
	if _, err := env.svc.AddItem(context.Background(), admin, cart.ID, tl.ID, 1); err != nil {
		t.Fatalf("admin should mutate any cart: %v", err)
	}
}

func TestCancel_TerminalStateRefused(t *testing.T) {
	env := newCartTestEnv(t)
	cart := env.newCart(t)
	ctx := context.Background()

	got, err := env.svc.Cancel(ctx, env.caller, cart.ID)
	if err != nil {
		t.Fatalf("cancel active cart: %v", err)
	}
	if got.Status != enums.CartStatusAbandoned {
		t.Fatalf("expected abandoned, got %s", got.Status)
	}

	if err := env.db.Model(&models.Cart{}).Where("id = ?", cart.ID).
		Update("status", enums.CartStatusCompleted).Error; err != nil {
		t.Fatalf("force status: %v", err)
	}
	_, err = env.svc.Cancel(ctx, env.caller, cart.ID)
	if !apperrors.HasCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT cancelling a completed cart, got %v", err)
	}
}

func TestValidateForCheckout(t *testing.T) {
	env := newCartTestEnv(t)
	tl := env.seedTradeline(t, "100", 2)
	cart := env.newCart(t)
	ctx := context.Background()

	if err := env.svc.ValidateForCheckout(ctx, cart); !apperrors.HasCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("empty cart should fail checkout validation, got %v", err)
	}

	updated, err := env.svc.AddItem(ctx, env.caller, cart.ID, tl.ID, 2)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := env.svc.ValidateForCheckout(ctx, updated); err != nil {
		t.Fatalf("valid cart should pass: %v", err)
	}

	// Capacity shrank between add-to-cart and checkout.
	if err := env.db.Model(&models.Tradeline{}).Where("id = ?", tl.ID).
		Update("remaining_spots", 1).Error; err != nil {
		t.Fatalf("shrink capacity: %v", err)
	}
	if err := env.svc.ValidateForCheckout(ctx, updated); !apperrors.HasCode(err, apperrors.CodeCapacity) {
		t.Fatalf("expected CAPACITY_EXCEEDED after capacity shrank, got %v", err)
	}
}

// conflictingRepo injects one stale-version failure to exercise the
// reload-and-retry path.
type conflictingRepo struct {
	CartRepository
	failures int
	loads    int
}

func (c *conflictingRepo) WithTx(tx *gorm.DB) CartRepository {
	return &conflictingTxRepo{inner: c.CartRepository.WithTx(tx), parent: c}
}

type conflictingTxRepo struct {
	inner  CartRepository
	parent *conflictingRepo
}

func (c *conflictingTxRepo) WithTx(tx *gorm.DB) CartRepository { return c.inner.WithTx(tx) }

func (c *conflictingTxRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	c.parent.loads++
	return c.inner.FindByID(ctx, id)
}

func (c *conflictingTxRepo) FindWorkingByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	return c.inner.FindWorkingByOwner(ctx, ownerID)
}

func (c *conflictingTxRepo) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	return c.inner.Create(ctx, cart)
}

func (c *conflictingTxRepo) SaveVersioned(ctx context.Context, cart *models.Cart, updates map[string]any) error {
	if c.parent.failures > 0 {
		c.parent.failures--
		return repo.ErrVersionMismatch
	}
	return c.inner.SaveVersioned(ctx, cart, updates)
}

func (c *conflictingTxRepo) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error {
	return c.inner.ReplaceItems(ctx, cartID, items)
}

func (c *conflictingTxRepo) History(ctx context.Context, ownerID uuid.UUID, statuses []enums.CartStatus, p pagination.Params) ([]models.Cart, int64, error) {
	return c.inner.History(ctx, ownerID, statuses, p)
}

func TestMutate_ReloadsOnceOnVersionConflict(t *testing.T) {
	env := newCartTestEnv(t)
	tl := env.seedTradeline(t, "80", 4)
	cart := env.newCart(t)

	wrapped := &conflictingRepo{CartRepository: NewRepository(env.db), failures: 1}
	svc, err := NewService(ServiceParams{
		Repo:              wrapped,
		Tradelines:        env.catalog,
		TransactionRunner: testTxRunner{db: env.db},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	got, err := svc.AddItem(context.Background(), env.caller, cart.ID, tl.ID, 1)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if wrapped.loads != 2 {
		t.Fatalf("expected a fresh load per attempt, got %d", wrapped.loads)
	}
	if len(got.Items) != 1 {
		t.Fatalf("unexpected items %+v", got.Items)
	}

	// Retry budget is one reload; a persistent conflict surfaces.
	wrapped.failures = 2
	_, err = svc.AddItem(context.Background(), env.caller, cart.ID, tl.ID, 1)
	if !apperrors.HasCode(err, apperrors.CodeConcurrentModification) {
		t.Fatalf("expected CONCURRENT_MODIFICATION, got %v", err)
	}
}
