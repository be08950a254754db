package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rockettradeline/tradeline-backend/internal/payments"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
)

type stubExpiryNotifier struct {
	expired []string
}

func (n *stubExpiryNotifier) PaymentExpired(_ context.Context, req *models.PaymentRequest) {
	n.expired = append(n.expired, req.TransactionID)
}

func TestPaymentExpiryJob_ExpiresLapsedRequests(t *testing.T) {
	conn := newJobTestDB(t)
	requestRepo := payments.NewRepository(conn)

	createdAt := time.Now().UTC().Add(-48 * time.Hour)
	cartRow := seedCart(t, conn, enums.CartStatusPaymentPending, createdAt.Add(30*24*time.Hour))

	lapsed := &models.PaymentRequest{
		CartID:     cartRow.ID,
		Method:     enums.PaymentMethodVenmo,
		Amount:     decimal.NewFromInt(180),
		Total:      decimal.NewFromInt(187),
		CustomerID: &cartRow.OwnerID,
		Status:     enums.PaymentStatusPending,
		ExpiresAt:  createdAt.Add(24 * time.Hour),
	}
	if err := conn.Create(lapsed).Error; err != nil {
		t.Fatalf("seed lapsed request: %v", err)
	}

	completedAt := createdAt.Add(time.Hour)
	settled := &models.PaymentRequest{
		CartID:        cartRow.ID,
		Method:        enums.PaymentMethodVenmo,
		Amount:        decimal.NewFromInt(180),
		Total:         decimal.NewFromInt(187),
		CustomerID:    &cartRow.OwnerID,
		Status:        enums.PaymentStatusCompleted,
		TransactionID: "VENMO_SETTLED",
		CompletedAt:   &completedAt,
		ExpiresAt:     createdAt.Add(24 * time.Hour),
	}
	if err := conn.Create(settled).Error; err != nil {
		t.Fatalf("seed settled request: %v", err)
	}

	notifier := &stubExpiryNotifier{}
	job, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:   newTestLogger(),
		DB:       testTxRunner{db: conn},
		Reader:   requestRepo,
		Requests: requestRepo,
		Notifier: notifier,
	})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}
	// Run the sweep one hour past the request's 24h window.
	job.(*paymentExpiryJob).now = func() time.Time { return createdAt.Add(25 * time.Hour) }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var reloaded models.PaymentRequest
	if err := conn.First(&reloaded, "id = ?", lapsed.ID).Error; err != nil {
		t.Fatalf("reload lapsed request: %v", err)
	}
	if reloaded.Status != enums.PaymentStatusExpired {
		t.Fatalf("lapsed request status = %s, want expired", reloaded.Status)
	}
	if reloaded.RejectionReason != "payment window elapsed" {
		t.Fatalf("rejection reason = %q", reloaded.RejectionReason)
	}

	var reloadedSettled models.PaymentRequest
	if err := conn.First(&reloadedSettled, "id = ?", settled.ID).Error; err != nil {
		t.Fatalf("reload settled request: %v", err)
	}
	if reloadedSettled.Status != enums.PaymentStatusCompleted {
		t.Fatalf("settled request status = %s, sweep must not touch terminal states", reloadedSettled.Status)
	}

	if len(notifier.expired) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.expired))
	}
}

func TestPaymentExpiryJob_RequestInsideWindowUntouched(t *testing.T) {
	conn := newJobTestDB(t)
	requestRepo := payments.NewRepository(conn)

	createdAt := time.Now().UTC()
	cartRow := seedCart(t, conn, enums.CartStatusPaymentPending, createdAt.Add(30*24*time.Hour))
	pending := &models.PaymentRequest{
		CartID:     cartRow.ID,
		Method:     enums.PaymentMethodCashApp,
		Amount:     decimal.NewFromInt(50),
		Total:      decimal.NewFromInt(54),
		CustomerID: &cartRow.OwnerID,
		Status:     enums.PaymentStatusPending,
		ExpiresAt:  createdAt.Add(24 * time.Hour),
	}
	if err := conn.Create(pending).Error; err != nil {
		t.Fatalf("seed pending request: %v", err)
	}

	notifier := &stubExpiryNotifier{}
	job, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:   newTestLogger(),
		DB:       testTxRunner{db: conn},
		Reader:   requestRepo,
		Requests: requestRepo,
		Notifier: notifier,
	})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}
	job.(*paymentExpiryJob).now = func() time.Time { return createdAt.Add(time.Hour) }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var reloaded models.PaymentRequest
	if err := conn.First(&reloaded, "id = ?", pending.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if reloaded.Status != enums.PaymentStatusPending {
		t.Fatalf("request status = %s, want pending", reloaded.Status)
	}
	if len(notifier.expired) != 0 {
		t.Fatalf("no notifications expected, got %d", len(notifier.expired))
	}
}
