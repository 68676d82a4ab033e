package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/unitshop/internal/constants"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"github.com/shopspring/decimal"
)

func (f *storeFixture) createCharge(t *testing.T, userID uint, status, externalID, received string, updatedAt time.Time) *models.PaymentCharge {
	t.Helper()
	charge := &models.PaymentCharge{
		ChargeNo:       fmt.Sprintf("C-%d-%s-%s-%d", userID, status, externalID, time.Now().UnixNano()),
		Purpose:        constants.ChargePurposePurchase,
		UserID:         userID,
		Quantity:       1,
		Gateway:        "cryptopay",
		ExternalID:     externalID,
		QuotedAmount:   models.NewMoneyFromDecimal(decimal.RequireFromString("10.00")),
		ReceivedAmount: models.NewMoneyFromDecimal(decimal.RequireFromString(received)),
		Status:         status,
		CreatedAt:      updatedAt,
		UpdatedAt:      updatedAt,
	}
	if err := f.db.Create(charge).Error; err != nil {
		t.Fatalf("create charge failed: %v", err)
	}
	return charge
}

func (f *storeFixture) reloadCharge(t *testing.T, id uint) *models.PaymentCharge {
	t.Helper()
	charge, err := f.chargeRepo.GetByID(id)
	if err != nil || charge == nil {
		t.Fatalf("reload charge failed: %v", err)
	}
	return charge
}

func TestChargeRecoveryReconcilesPendingChargeWithFunds(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 9001, "0")
	now := time.Now()
	stale := now.Add(-2 * f.recovery.StaleAfter())
	charge := f.createCharge(t, user.ID, constants.ChargeStatusPending, "trade-1", "0", stale)
	f.gateway.fetchAmount = decimal.RequireFromString("10.00")

	result, err := f.recovery.RecoverStale(context.Background(), now)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if result.Scanned != 1 || result.Reconciled != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if f.gateway.fetches != 1 {
		t.Fatalf("expected one fetch, got %d", f.gateway.fetches)
	}
	reloaded := f.reloadCharge(t, charge.ID)
	if reloaded.Status != constants.ChargeStatusReconcile {
		t.Fatalf("expected reconcile status, got %s", reloaded.Status)
	}
	if reloaded.ReceivedAmount.StringFixed(2) != "10.00" || reloaded.PaidAt == nil {
		t.Fatalf("unexpected charge after recovery: %+v", reloaded)
	}
	items, total, err := f.reconRepo.List(repository.ReconciliationListFilter{})
	if err != nil {
		t.Fatalf("list reconciliations failed: %v", err)
	}
	if total != 1 || items[0].Reason != constants.ReconciliationReasonInterrupted || items[0].Amount.StringFixed(2) != "10.00" {
		t.Fatalf("unexpected reconciliations: %+v", items)
	}
	if items[0].UserID != user.ID || items[0].ChargeID != charge.ID {
		t.Fatalf("reconciliation bound to wrong charge: %+v", items[0])
	}

	// 再次执行不重复记录
	result, err = f.recovery.RecoverStale(context.Background(), now)
	if err != nil {
		t.Fatalf("second recover failed: %v", err)
	}
	if result.Scanned != 0 {
		t.Fatalf("expected nothing left to recover, got %+v", result)
	}
}

func TestChargeRecoveryFailsPendingChargeWithoutFunds(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 9002, "0")
	now := time.Now()
	stale := now.Add(-2 * f.recovery.StaleAfter())
	unpaid := f.createCharge(t, user.ID, constants.ChargeStatusPending, "trade-2", "0", stale)
	orphan := f.createCharge(t, user.ID, constants.ChargeStatusPending, "", "0", stale)
	f.gateway.fetchAmount = decimal.Zero

	result, err := f.recovery.RecoverStale(context.Background(), now)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if result.Failed != 2 || result.Reconciled != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	// 没有交易号的扣款不查询网关
	if f.gateway.fetches != 1 {
		t.Fatalf("expected one fetch, got %d", f.gateway.fetches)
	}
	for _, id := range []uint{unpaid.ID, orphan.ID} {
		if status := f.reloadCharge(t, id).Status; status != constants.ChargeStatusFailed {
			t.Fatalf("expected failed status for charge %d, got %s", id, status)
		}
	}
	if _, total, _ := f.reconRepo.List(repository.ReconciliationListFilter{}); total != 0 {
		t.Fatalf("expected no reconciliations, got %d", total)
	}
}

func TestChargeRecoveryUsesStoredAmountForPaidCharge(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 9003, "0")
	now := time.Now()
	stale := now.Add(-2 * f.recovery.StaleAfter())
	charge := f.createCharge(t, user.ID, constants.ChargeStatusPaid, "trade-3", "8.50", stale)

	result, err := f.recovery.RecoverStale(context.Background(), now)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if result.Reconciled != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if f.gateway.fetches != 0 {
		t.Fatalf("paid charge should not be fetched again, got %d fetches", f.gateway.fetches)
	}
	if status := f.reloadCharge(t, charge.ID).Status; status != constants.ChargeStatusReconcile {
		t.Fatalf("expected reconcile status, got %s", status)
	}
	items, _, err := f.reconRepo.List(repository.ReconciliationListFilter{})
	if err != nil || len(items) != 1 || items[0].Amount.StringFixed(2) != "8.50" {
		t.Fatalf("unexpected reconciliations: %+v err=%v", items, err)
	}
}

func TestChargeRecoveryLeavesFreshAndTerminalChargesAlone(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 9004, "0")
	now := time.Now()
	stale := now.Add(-2 * f.recovery.StaleAfter())
	fresh := f.createCharge(t, user.ID, constants.ChargeStatusPending, "trade-4", "0", now)
	settled := f.createCharge(t, user.ID, constants.ChargeStatusSettled, "trade-5", "10.00", stale)
	f.gateway.fetchAmount = decimal.RequireFromString("10.00")

	result, err := f.recovery.RecoverStale(context.Background(), now)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if result.Scanned != 0 {
		t.Fatalf("expected nothing scanned, got %+v", result)
	}
	if status := f.reloadCharge(t, fresh.ID).Status; status != constants.ChargeStatusPending {
		t.Fatalf("fresh charge changed to %s", status)
	}
	if status := f.reloadCharge(t, settled.ID).Status; status != constants.ChargeStatusSettled {
		t.Fatalf("settled charge changed to %s", status)
	}
}

func TestChargeRecoverySkipsWhenGatewayUnreachable(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 9005, "0")
	now := time.Now()
	stale := now.Add(-2 * f.recovery.StaleAfter())
	charge := f.createCharge(t, user.ID, constants.ChargeStatusPending, "trade-6", "0", stale)
	f.gateway.fetchErr = errors.New("timeout")

	result, err := f.recovery.RecoverStale(context.Background(), now)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if result.Skipped != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if status := f.reloadCharge(t, charge.ID).Status; status != constants.ChargeStatusPending {
		t.Fatalf("charge should stay pending for the next run, got %s", status)
	}
}

func TestPaymentFlowsDrainWaitsAndRejectsNewFlows(t *testing.T) {
	flows := NewPaymentFlows()
	release := make(chan struct{})
	started := make(chan struct{})
	if err := flows.Go(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("go failed: %v", err)
	}
	<-started
	if flows.Active() != 1 {
		t.Fatalf("expected one active flow, got %d", flows.Active())
	}

	if left := flows.Drain(20 * time.Millisecond); left != 1 {
		t.Fatalf("expected one abandoned flow, got %d", left)
	}
	if err := flows.Go(func() {}); !errors.Is(err, ErrPaymentFlowsClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}

	close(release)
	if left := flows.Drain(time.Second); left != 0 {
		t.Fatalf("expected all flows drained, got %d", left)
	}
}
