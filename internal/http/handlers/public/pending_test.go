package public

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/service"
)

func TestRunPaymentFlowReturnsPendingCharge(t *testing.T) {
	c, _ := newTestContext(t, "/api/v1/checkout")
	flows := service.NewPaymentFlows()
	release := make(chan struct{})

	charge, outcome := runPaymentFlow(c, flows, "checkout", func(_ context.Context, onPending service.PaymentPendingFunc) (interface{}, error) {
		onPending(models.PaymentCharge{ChargeNo: "C-1"})
		<-release
		return nil, nil
	})
	if outcome.err != nil {
		t.Fatalf("unexpected error: %v", outcome.err)
	}
	if charge == nil || charge.ChargeNo != "C-1" {
		t.Fatalf("expected pending charge, got %+v", charge)
	}
	if flows.Active() != 1 {
		t.Fatalf("expected flow to keep running, got %d active", flows.Active())
	}
	close(release)
	if left := flows.Drain(time.Second); left != 0 {
		t.Fatalf("expected flow to finish, %d left", left)
	}
}

func TestRunPaymentFlowRejectedAfterDrain(t *testing.T) {
	c, _ := newTestContext(t, "/api/v1/checkout")
	flows := service.NewPaymentFlows()
	flows.Drain(0)

	called := false
	charge, outcome := runPaymentFlow(c, flows, "checkout", func(context.Context, service.PaymentPendingFunc) (interface{}, error) {
		called = true
		return nil, nil
	})
	if charge != nil || called {
		t.Fatalf("expected flow not to start")
	}
	if !errors.Is(outcome.err, service.ErrPaymentFlowsClosed) {
		t.Fatalf("expected ErrPaymentFlowsClosed, got %v", outcome.err)
	}
}
