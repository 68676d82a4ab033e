package service

import (
	"context"
	"errors"
	"testing"

	"github.com/unitshop/internal/constants"
	"github.com/unitshop/internal/repository"
)

func underpaidReconciliation(t *testing.T, f *storeFixture, telegramID int64) (uint, uint) {
	t.Helper()
	user := f.createUser(t, telegramID, "1.00")
	product := f.createProduct(t, "10.00", 2)
	f.gateway.receivedAfterTimeout("3.50")
	if _, err := f.settlement.BuyNow(context.Background(), user.ID, product.ID, 1, "cryptopay"); !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}
	items, _, err := f.recon.List(repository.ReconciliationListFilter{UserID: user.ID})
	if err != nil {
		t.Fatalf("list reconciliations failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one reconciliation, got %d", len(items))
	}
	return user.ID, items[0].ID
}

func TestReconciliationRefundToBalance(t *testing.T) {
	f := setupStore(t)
	userID, id := underpaidReconciliation(t, f, 7001)

	item, err := f.recon.RefundToBalance(9, id, "refunded after review")
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if item.Status != constants.ReconciliationStatusRefunded || item.ResolvedBy == nil || *item.ResolvedBy != 9 {
		t.Fatalf("unexpected resolved item: %+v", item)
	}
	if balance := f.reloadUser(t, userID).Balance.StringFixed(2); balance != "4.50" {
		t.Fatalf("expected balance 4.50, got %s", balance)
	}

	if _, err := f.recon.RefundToBalance(9, id, ""); !errors.Is(err, ErrReconciliationResolved) {
		t.Fatalf("expected ErrReconciliationResolved, got %v", err)
	}
	if balance := f.reloadUser(t, userID).Balance.StringFixed(2); balance != "4.50" {
		t.Fatalf("expected single refund, got balance %s", balance)
	}

	txns, _, err := f.wallet.ListTransactions(repository.BalanceTransactionListFilter{
		UserID: userID,
		Type:   constants.BalanceTxnTypeReconciliationRefund,
	})
	if err != nil {
		t.Fatalf("list transactions failed: %v", err)
	}
	if len(txns) != 1 || txns[0].Amount.StringFixed(2) != "3.50" {
		t.Fatalf("unexpected refund transactions: %+v", txns)
	}
}

func TestReconciliationDismiss(t *testing.T) {
	f := setupStore(t)
	userID, id := underpaidReconciliation(t, f, 7002)

	item, err := f.recon.Dismiss(3, id, "settled off-platform")
	if err != nil {
		t.Fatalf("dismiss failed: %v", err)
	}
	if item.Status != constants.ReconciliationStatusDismissed || item.Remark != "settled off-platform" {
		t.Fatalf("unexpected dismissed item: %+v", item)
	}
	if balance := f.reloadUser(t, userID).Balance.StringFixed(2); balance != "1.00" {
		t.Fatalf("expected balance unchanged, got %s", balance)
	}
	if _, err := f.recon.Dismiss(3, id, ""); !errors.Is(err, ErrReconciliationResolved) {
		t.Fatalf("expected ErrReconciliationResolved, got %v", err)
	}
	if _, err := f.recon.Dismiss(3, 9999, ""); !errors.Is(err, ErrReconciliationNotFound) {
		t.Fatalf("expected ErrReconciliationNotFound, got %v", err)
	}

	open, total, err := f.recon.List(repository.ReconciliationListFilter{Status: constants.ReconciliationStatusOpen})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 0 || len(open) != 0 {
		t.Fatalf("expected no open items, got %d", total)
	}
}

func TestTruncateRemark(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = '对'
	}
	if got := truncateRemark(string(long)); len([]rune(got)) != 255 {
		t.Fatalf("expected 255 runes, got %d", len([]rune(got)))
	}
	if got := truncateRemark("  short  "); got != "short" {
		t.Fatalf("expected trimmed remark, got %q", got)
	}
}
