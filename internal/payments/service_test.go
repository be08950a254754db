package payments

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/internal/cart"
	"github.com/rockettradeline/tradeline-backend/internal/catalog"
	"github.com/rockettradeline/tradeline-backend/internal/fulfillment"
	"github.com/rockettradeline/tradeline-backend/internal/paymentconfig"
	"github.com/rockettradeline/tradeline-backend/pkg/auth"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubNotifier struct {
	completed int
	failed    int
	rejected  int
	submitted int
}

func (n *stubNotifier) PaymentCompleted(context.Context, *models.PaymentRequest)      { n.completed++ }
func (n *stubNotifier) PaymentFailed(context.Context, *models.PaymentRequest, string) { n.failed++ }
func (n *stubNotifier) PaymentRejected(context.Context, *models.PaymentRequest, string) {
	n.rejected++
}
func (n *stubNotifier) ManualPaymentSubmitted(context.Context, *models.PaymentRequest) { n.submitted++ }

type paymentTestEnv struct {
	db       *gorm.DB
	svc      *service
	carts    cart.Service
	catalog  *catalog.Repository
	notifier *stubNotifier
	caller   auth.Identity
	admin    auth.Identity
	nowVal   time.Time
}

func newPaymentTestEnv(t *testing.T) *paymentTestEnv {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		conn.Exec("DELETE FROM payment_method_configs")
	})

	env := &paymentTestEnv{
		db:       conn,
		catalog:  catalog.NewRepository(conn),
		notifier: &stubNotifier{},
		caller:   auth.Identity{UserID: uuid.New(), Email: "buyer@example.com"},
		admin:    auth.Identity{UserID: uuid.New(), Email: "ops@example.com", Admin: true},
		nowVal:   time.Now().UTC(),
	}
	clock := func() time.Time { return env.nowVal }

	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:              cartRepo,
		Tradelines:        env.catalog,
		TransactionRunner: testTxRunner{db: conn},
		Clock:             clock,
	})
	if err != nil {
		t.Fatalf("new cart service: %v", err)
	}
	env.carts = cartSvc

	registry, err := paymentconfig.NewService(paymentconfig.ServiceParams{
		Repo: paymentconfig.NewRepository(conn),
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	fulfillSvc, err := fulfillment.NewService(fulfillment.ServiceParams{
		Grants:            fulfillment.NewRepository(conn),
		Carts:             cartRepo,
		Catalog:           env.catalog,
		TransactionRunner: testTxRunner{db: conn},
		Logger:            logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Clock:             clock,
	})
	if err != nil {
		t.Fatalf("new fulfillment service: %v", err)
	}

	svc, err := NewService(ServiceParams{
		Repo:              NewRepository(conn),
		Carts:             cartRepo,
		Checkout:          cartSvc,
		Registry:          registry,
		Fulfillment:       fulfillSvc,
		Notifier:          env.notifier,
		TransactionRunner: testTxRunner{db: conn},
		RequestTTL:        24 * time.Hour,
		Clock:             clock,
	})
	if err != nil {
		t.Fatalf("new payment service: %v", err)
	}
	env.svc = svc
	return env
}

func (e *paymentTestEnv) seedMethod(t *testing.T, method enums.PaymentMethod) {
	t.Helper()
	cfg := &models.PaymentMethodConfig{
		Method:        method,
		DisplayName:   string(method),
		Type:          method.DefaultType(),
		Active:        true,
		MinAmount:     decimal.NewFromInt(1),
		MaxAmount:     decimal.NewFromInt(10000),
		FixedFee:      decimal.NewFromInt(2),
		PercentageFee: decimal.NewFromInt(3),
		AccountHandle: "@rocket-tradeline",
		AccountPhone:  "+15550001111",
		SandboxMode:   true,
		SandboxCredentials: models.APICredentials{
			ClientID:     "sb-client",
			ClientSecret: "sb-secret",
		},
	}
	if err := e.db.Create(cfg).Error; err != nil {
		t.Fatalf("seed method config: %v", err)
	}
}

// checkoutCart builds a cart worth 180: two spots at 100 with a 10%
// discount.
func (e *paymentTestEnv) checkoutCart(t *testing.T) (*models.Cart, *models.Tradeline) {
	t.Helper()
	ctx := context.Background()
	tl, err := e.catalog.Create(ctx, &models.Tradeline{
		Bank:           "Chase Sapphire",
		Price:          decimal.NewFromInt(100),
		MaxSpots:       5,
		RemainingSpots: 5,
		Status:         enums.TradelineStatusActive,
	})
	if err != nil {
		t.Fatalf("seed tradeline: %v", err)
	}
	cartRow, err := e.carts.GetOrCreate(ctx, e.caller)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if _, err := e.carts.AddItem(ctx, e.caller, cartRow.ID, tl.ID, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	cartRow, err = e.carts.ApplyDiscount(ctx, e.caller, cartRow.ID, enums.DiscountKindPercentage, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("apply discount: %v", err)
	}
	return cartRow, tl
}

func (e *paymentTestEnv) reloadCart(t *testing.T, id uuid.UUID) *models.Cart {
	t.Helper()
	var row models.Cart
	if err := e.db.First(&row, "id = ?", id).Error; err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	return &row
}

func (e *paymentTestEnv) grantCount(t *testing.T, requestID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&models.ClientTradelineGrant{}).Where("payment_request_id = ?", requestID).Count(&n).Error; err != nil {
		t.Fatalf("count grants: %v", err)
	}
	return n
}

func TestCreatePaymentRequest_Success(t *testing.T) {
	env := newPaymentTestEnv(t)
	env.seedMethod(t, enums.PaymentMethodVenmo)
	cartRow, _ := env.checkoutCart(t)
	ctx := context.Background()

	result, err := env.svc.CreatePaymentRequest(ctx, env.caller, cartRow.ID, enums.PaymentMethodVenmo, "buyer@example.com")
	if err != nil {
		t.Fatalf("create payment request: %v", err)
	}

	req := result.Request
	if !req.Amount.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("amount = %s, want 180", req.Amount)
	}
	if !req.Fees.Equal(decimal.RequireFromString("7.4")) {
		t.Fatalf("fees = %s, want 7.4", req.Fees)
	}
	if !req.Total.Equal(decimal.RequireFromString("187.4")) {
		t.Fatalf("total = %s, want 187.4", req.Total)
	}
	if !req.TotalConsistent() {
		t.Fatalf("total %s inconsistent with amount %s + fees %s", req.Total, req.Amount, req.Fees)
	}
	if req.Status != enums.PaymentStatusPending {
		t.Fatalf("status = %s, want pending", req.Status)
	}
	if result.Payload.RoutingIdentifiers["handle"] == "" {
		t.Fatalf("expected routing instructions for a peer-to-peer method")
	}

	if got := env.reloadCart(t, cartRow.ID).Status; got != enums.CartStatusPaymentPending {
		t.Fatalf("cart status = %s, want payment_pending", got)
	}
}

func TestCreatePaymentRequest_EmptyCartLeavesEverythingUntouched(t *testing.T) {
	env := newPaymentTestEnv(t)
	env.seedMethod(t, enums.PaymentMethodVenmo)
	ctx := context.Background()

	cartRow, err := env.carts.GetOrCreate(ctx, env.caller)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}

	_, err = env.svc.CreatePaymentRequest(ctx, env.caller, cartRow.ID, enums.PaymentMethodVenmo, "")
	if !apperrors.HasCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT for empty cart, got %v", err)
	}

	if got := env.reloadCart(t, cartRow.ID).Status; got != enums.CartStatusActive {
		t.Fatalf("cart status = %s, want active (unchanged)", got)
	}
	var requests int64
	env.db.Model(&models.PaymentRequest{}).Where("cart_id = ?", cartRow.ID).Count(&requests)
	if requests != 0 {
		t.Fatalf("expected no payment request rows, found %d", requests)
	}
}

func TestCreatePaymentRequest_MethodNotConfigured(t *testing.T) {
	env := newPaymentTestEnv(t)
	cartRow, _ := env.checkoutCart(t)

	_, err := env.svc.CreatePaymentRequest(context.Background(), env.caller, cartRow.ID, enums.PaymentMethodZelle, "")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for unconfigured method, got %v", err)
	}
}

func TestCreatePaymentRequest_StrangerForbidden(t *testing.T) {
	env := newPaymentTestEnv(t)
	env.seedMethod(t, enums.PaymentMethodVenmo)
	cartRow, _ := env.checkoutCart(t)

	stranger := auth.Identity{UserID: uuid.New()}
	_, err := env.svc.CreatePaymentRequest(context.Background(), stranger, cartRow.ID, enums.PaymentMethodVenmo, "")
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestProcessInstant_CompletesAndFulfills(t *testing.T) {
	env := newPaymentTestEnv(t)
	env.seedMethod(t, enums.PaymentMethodPayPal)
	cartRow, tl := env.checkoutCart(t)
	ctx := context.Background()

	result, err := env.svc.CreatePaymentRequest(ctx, env.caller, cartRow.ID, enums.PaymentMethodPayPal, "buyer@example.com")
	if err != nil {
		t.Fatalf("create payment request: %v", err)
	}

	processed, err := env.svc.ProcessInstant(ctx, env.caller, result.Request.ID, map[string]any{"order_id": "PAYPAL-ORDER-9"})
	if err != nil {
		t.Fatalf("process instant: %v", err)
	}
	if processed.Request.Status != enums.PaymentStatusCompleted {
		t.Fatalf("status = %s, want completed", processed.Request.Status)
	}
	if processed.Request.TransactionID != "PAYPAL-ORDER-9" {
		t.Fatalf("transaction id = %q", processed.Request.TransactionID)
	}

	if n := env.grantCount(t, result.Request.ID); n != 1 {
		t.Fatalf("grants = %d, want one per cart line", n)
	}
	if got := env.reloadCart(t, cartRow.ID).Status; got != enums.CartStatusCompleted {
		t.Fatalf("cart status = %s, want completed", got)
	}
	refreshed, err := env.catalog.Find(ctx, tl.ID)
	if err != nil {
		t.Fatalf("reload tradeline: %v", err)
	}
	if refreshed.RemainingSpots != 3 {
		t.Fatalf("remaining spots = %d, want 3 after selling 2", refreshed.RemainingSpots)
	}
	if env.notifier.completed != 1 {
		t.Fatalf("completed notifications = %d, want 1", env.notifier.completed)
	}

	var persisted models.PaymentRequest
	if err := env.db.First(&persisted, "id = ?", result.Request.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if persisted.PaymentResponse["order_id"] != "PAYPAL-ORDER-9" {
		t.Fatalf("payment response = %#v, want recorded confirmation", persisted.PaymentResponse)
	}
}

func TestProcessInstant_MissingOrderIDFailsRequest(t *testing.T) {
	env := newPaymentTestEnv(t)
	env.seedMethod(t, enums.PaymentMethodPayPal)
	cartRow, _ := env.checkoutCart(t)
	ctx := context.Background()

	result, err := env.svc.CreatePaymentRequest(ctx, env.caller, cartRow.ID, enums.PaymentMethodPayPal, "")
	if err != nil {
		t.Fatalf("create payment request: %v", err)
	}

	_, err = env.svc.ProcessInstant(ctx, env.caller, result.Request.ID, map[string]any{"status": "declined"})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}

	var persisted models.PaymentRequest
	if err := env.db.First(&persisted, "id = ?", result.Request.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if persisted.Status != enums.PaymentStatusFailed {
		t.Fatalf("status = %s, want failed committed", persisted.Status)
	}
	if n := env.grantCount(t, result.Request.ID); n != 0 {
		t.Fatalf("expected no grants on failure, found %d", n)
	}
	if env.notifier.failed != 1 {
		t.Fatalf("failed notifications = %d, want 1", env.notifier.failed)
	}

	// A failed request never processes again.
	_, err = env.svc.ProcessInstant(ctx, env.caller, result.Request.ID, map[string]any{"order_id": "LATE"})
	if !apperrors.HasCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT for non-pending request, got %v", err)
	}
}

func TestProcessP2P_VerificationWorkflow(t *testing.T) {
	env := newPaymentTestEnv(t)
	env.seedMethod(t, enums.PaymentMethodVenmo)
	cartRow, _ := env.checkoutCart(t)
	ctx := context.Background()

	result, err := env.svc.CreatePaymentRequest(ctx, env.caller, cartRow.ID, enums.PaymentMethodVenmo, "")
	if err != nil {
		t.Fatalf("create payment request: %v", err)
	}

	_, err = env.svc.ProcessP2P(ctx, env.caller, result.Request.ID, P2PSubmission{
		TransactionRef: "ABC123",
		Identifiers:    map[string]string{"username": "not a handle"},
	})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR for malformed identifier, got %v", err)
	}

	processed, err := env.svc.ProcessP2P(ctx, env.caller, result.Request.ID, P2PSubmission{
		TransactionRef: "ABC123",
		Identifiers:    map[string]string{"username": "@buyer-one"},
	})
	if err != nil {
		t.Fatalf("process p2p: %v", err)
	}
	if !processed.RequiresVerification {
		t.Fatalf("expected requires_verification")
	}
	if processed.Request.TransactionID != "VENMO_ABC123" {
		t.Fatalf("transaction id = %q, want VENMO_ABC123", processed.Request.TransactionID)
	}
	if processed.Verification.Status != enums.VerificationStatusPending {
		t.Fatalf("verification status = %s, want pending", processed.Verification.Status)
	}
	if processed.Request.Status != enums.PaymentStatusPending {
		t.Fatalf("request stays pending until verification, got %s", processed.Request.Status)
	}

	var persisted models.PaymentRequest
	if err := env.db.First(&persisted, "id = ?", result.Request.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if persisted.PaymentResponse["requires_verification"] != true {
		t.Fatalf("payment response = %#v, want requires_verification", persisted.PaymentResponse)
	}

	if _, err := env.svc.Verify(ctx, env.caller, result.Request.ID, nil); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for non-admin verify, got %v", err)
	}

	verified, err := env.svc.Verify(ctx, env.admin, result.Request.ID, map[string]any{"checked_by": "ops"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.Status != enums.PaymentStatusVerified {
		t.Fatalf("status = %s, want verified", verified.Status)
	}
	if n := env.grantCount(t, result.Request.ID); n != 1 {
		t.Fatalf("grants = %d, want 1", n)
	}
	if got := env.reloadCart(t, cartRow.ID).Status; got != enums.CartStatusCompleted {
		t.Fatalf("cart status = %s, want completed", got)
	}

	// Verifying again is a no-op success, not a duplicate fulfillment.
	again, err := env.svc.Verify(ctx, env.admin, result.Request.ID, nil)
	if err != nil {
		t.Fatalf("repeat verify: %v", err)
	}
	if again.Status != enums.PaymentStatusVerified {
		t.Fatalf("repeat verify status = %s", again.Status)
	}
	if n := env.grantCount(t, result.Request.ID); n != 1 {
		t.Fatalf("grants after repeat verify = %d, want still 1", n)
	}
}

func TestSubmitManual_RejectionLeavesNoGrants(t *testing.T) {
	env := newPaymentTestEnv(t)
	cartRow, _ := env.checkoutCart(t)
	ctx := context.Background()

	req, err := env.svc.SubmitManual(ctx, env.caller, cartRow.ID, enums.PaymentMethodZelle, "proofs/receipt-1.png", "sent from my bank")
	if err != nil {
		t.Fatalf("submit manual: %v", err)
	}
	if !req.IsManual || req.ApprovalStatus != enums.ApprovalStatusPendingApproval {
		t.Fatalf("unexpected manual flags: manual=%v approval=%s", req.IsManual, req.ApprovalStatus)
	}
	if !req.Fees.IsZero() {
		t.Fatalf("manual payments carry zero fee, got %s", req.Fees)
	}
	if !req.Total.Equal(req.Amount) {
		t.Fatalf("total %s should equal amount %s with no fees", req.Total, req.Amount)
	}
	if env.notifier.submitted != 1 {
		t.Fatalf("admin alerts = %d, want 1", env.notifier.submitted)
	}

	rejected, err := env.svc.ApproveManual(ctx, env.admin, req.ID, false, "blurry screenshot")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != enums.PaymentStatusFailed {
		t.Fatalf("status = %s, want failed", rejected.Status)
	}
	if rejected.ApprovalStatus != enums.ApprovalStatusRejected {
		t.Fatalf("approval status = %s, want rejected", rejected.ApprovalStatus)
	}
	if rejected.RejectionReason != "blurry screenshot" {
		t.Fatalf("rejection reason = %q", rejected.RejectionReason)
	}
	if n := env.grantCount(t, req.ID); n != 0 {
		t.Fatalf("expected no grants after rejection, found %d", n)
	}
	if env.notifier.rejected != 1 {
		t.Fatalf("rejected notifications = %d, want 1", env.notifier.rejected)
	}
}

func TestApproveManual_SecondDecisionConflicts(t *testing.T) {
	env := newPaymentTestEnv(t)
	cartRow, _ := env.checkoutCart(t)
	ctx := context.Background()

	req, err := env.svc.SubmitManual(ctx, env.caller, cartRow.ID, enums.PaymentMethodCashApp, "proofs/receipt-2.png", "")
	if err != nil {
		t.Fatalf("submit manual: %v", err)
	}

	approved, err := env.svc.ApproveManual(ctx, env.admin, req.ID, true, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.ApprovalStatus != enums.ApprovalStatusApproved {
		t.Fatalf("approval status = %s, want approved", approved.ApprovalStatus)
	}
	if approved.Status != enums.PaymentStatusDraft {
		t.Fatalf("status = %s, want draft awaiting settlement", approved.Status)
	}
	if !strings.HasPrefix(approved.TransactionID, "MANUAL_") {
		t.Fatalf("transaction id = %q, want MANUAL_ prefix", approved.TransactionID)
	}

	_, err = env.svc.ApproveManual(ctx, env.admin, req.ID, true, "")
	if !apperrors.HasCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT on second decision, got %v", err)
	}
	_, err = env.svc.ApproveManual(ctx, env.admin, req.ID, false, "changed my mind")
	if !apperrors.HasCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT on reject after approve, got %v", err)
	}

	settled, err := env.svc.SettleApproved(ctx, env.admin, req.ID)
	if err != nil {
		t.Fatalf("settle approved: %v", err)
	}
	if settled.Status != enums.PaymentStatusCompleted {
		t.Fatalf("status = %s, want completed", settled.Status)
	}
	if n := env.grantCount(t, req.ID); n != 1 {
		t.Fatalf("grants = %d, want 1", n)
	}
	if got := env.reloadCart(t, cartRow.ID).Status; got != enums.CartStatusCompleted {
		t.Fatalf("cart status = %s, want completed", got)
	}
}

func TestApproveManual_RequiresAdmin(t *testing.T) {
	env := newPaymentTestEnv(t)
	cartRow, _ := env.checkoutCart(t)
	ctx := context.Background()

	req, err := env.svc.SubmitManual(ctx, env.caller, cartRow.ID, enums.PaymentMethodVenmo, "proofs/receipt-3.png", "")
	if err != nil {
		t.Fatalf("submit manual: %v", err)
	}
	_, err = env.svc.ApproveManual(ctx, env.caller, req.ID, true, "")
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for non-admin, got %v", err)
	}
}

func TestCancel_ReleasesCart(t *testing.T) {
	env := newPaymentTestEnv(t)
	env.seedMethod(t, enums.PaymentMethodVenmo)
	cartRow, _ := env.checkoutCart(t)
	ctx := context.Background()

	result, err := env.svc.CreatePaymentRequest(ctx, env.caller, cartRow.ID, enums.PaymentMethodVenmo, "")
	if err != nil {
		t.Fatalf("create payment request: %v", err)
	}

	cancelled, err := env.svc.Cancel(ctx, env.caller, result.Request.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.PaymentStatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	if got := env.reloadCart(t, cartRow.ID).Status; got != enums.CartStatusActive {
		t.Fatalf("cart status = %s, want active again", got)
	}

	_, err = env.svc.Cancel(ctx, env.caller, result.Request.ID)
	if !apperrors.HasCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT cancelling a terminal request, got %v", err)
	}
}

func TestStatus_ExpiryComputedOnRead(t *testing.T) {
	env := newPaymentTestEnv(t)
	env.seedMethod(t, enums.PaymentMethodVenmo)
	cartRow, _ := env.checkoutCart(t)
	ctx := context.Background()

	result, err := env.svc.CreatePaymentRequest(ctx, env.caller, cartRow.ID, enums.PaymentMethodVenmo, "")
	if err != nil {
		t.Fatalf("create payment request: %v", err)
	}

	view, err := env.svc.Status(ctx, env.caller, result.Request.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.Expired || view.EffectiveStatus != enums.PaymentStatusPending {
		t.Fatalf("fresh request reported expired")
	}

	env.nowVal = env.nowVal.Add(25 * time.Hour)
	view, err = env.svc.Status(ctx, env.caller, result.Request.ID)
	if err != nil {
		t.Fatalf("status after expiry: %v", err)
	}
	if !view.Expired || view.EffectiveStatus != enums.PaymentStatusExpired {
		t.Fatalf("expected computed expiry, got expired=%v status=%s", view.Expired, view.EffectiveStatus)
	}

	// The read never persists the transition.
	var persisted models.PaymentRequest
	if err := env.db.First(&persisted, "id = ?", result.Request.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if persisted.Status != enums.PaymentStatusPending {
		t.Fatalf("persisted status = %s, want pending", persisted.Status)
	}
}

func TestValidateIdentifiers_Patterns(t *testing.T) {
	cases := []struct {
		method enums.PaymentMethod
		ids    map[string]string
		ok     bool
	}{
		{enums.PaymentMethodCashApp, map[string]string{"cashtag": "$buyer1"}, true},
		{enums.PaymentMethodCashApp, map[string]string{"cashtag": "buyer1"}, false},
		{enums.PaymentMethodVenmo, map[string]string{"username": "@buyer-one"}, true},
		{enums.PaymentMethodVenmo, map[string]string{"username": "@x"}, false},
		{enums.PaymentMethodVenmo, map[string]string{"cashtag": "$buyer1"}, false},
		{enums.PaymentMethodZelle, map[string]string{"email": "buyer@example.com"}, true},
		{enums.PaymentMethodZelle, map[string]string{"email": "not-an-email"}, false},
		{enums.PaymentMethodZelle, map[string]string{"phone": "+15550001111"}, true},
		{enums.PaymentMethodAppleCash, map[string]string{"phone": "555"}, false},
		{enums.PaymentMethodVenmo, map[string]string{}, false},
		{enums.PaymentMethodPayPal, map[string]string{"email": "buyer@example.com"}, false},
	}
	for _, tc := range cases {
		err := ValidateIdentifiers(tc.method, tc.ids)
		if tc.ok && err != nil {
			t.Fatalf("%s %v: unexpected error %v", tc.method, tc.ids, err)
		}
		if !tc.ok && !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Fatalf("%s %v: expected VALIDATION_ERROR, got %v", tc.method, tc.ids, err)
		}
	}
}
