package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/unitshop/internal/service"
)

type stubRecoverer struct {
	mu    sync.Mutex
	calls int
	ran   chan struct{}
}

func (r *stubRecoverer) RecoverStale(_ context.Context, _ time.Time) (service.ChargeRecoveryResult, error) {
	r.mu.Lock()
	r.calls++
	first := r.calls == 1
	r.mu.Unlock()
	if first {
		close(r.ran)
	}
	return service.ChargeRecoveryResult{Scanned: 2, Reconciled: 1, Failed: 1}, nil
}

func TestMaintenanceServiceRecoversChargesOnStart(t *testing.T) {
	recoverer := &stubRecoverer{ran: make(chan struct{})}
	svc := NewMaintenanceService(Maintenance{Recoverer: recoverer})

	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan error, 1)
	go func() {
		exited <- svc.Start(ctx)
	}()

	select {
	case <-recoverer.ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected charge recovery to run at startup")
	}

	cancel()
	select {
	case err := <-exited:
		if err != nil {
			t.Fatalf("unexpected exit error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("maintenance service did not stop after cancel")
	}
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestRecoverChargesReturnsResult(t *testing.T) {
	recoverer := &stubRecoverer{ran: make(chan struct{})}
	result := recoverCharges(context.Background(), recoverer, time.Now())
	if result.Reconciled != 1 || result.Failed != 1 || result.Scanned != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
