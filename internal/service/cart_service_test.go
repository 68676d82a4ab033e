package service

import (
	"errors"
	"sync"
	"testing"
)

func TestCartReserveMergesAndMirrorsStock(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 4001, "0")
	product := f.createProduct(t, "3.00", 10)

	first, err := f.cart.Reserve(user.ID, product.ID, 2)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	second, err := f.cart.Reserve(user.ID, product.ID, 3)
	if err != nil {
		t.Fatalf("reserve merge failed: %v", err)
	}
	if second.ID != first.ID || second.Quantity != 5 {
		t.Fatalf("expected merged row id=%d quantity=5, got id=%d quantity=%d", first.ID, second.ID, second.Quantity)
	}
	if stock := f.stockOf(t, product.ID); stock != 5 {
		t.Fatalf("expected stock 5, got %d", stock)
	}
	f.assertLedger(t, product.ID)

	details, err := f.cart.ListByUser(user.ID)
	if err != nil {
		t.Fatalf("list cart failed: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 cart row, got %d", len(details))
	}
	if details[0].LineTotal.StringFixed(2) != "15.00" {
		t.Fatalf("unexpected line total: %s", details[0].LineTotal.StringFixed(2))
	}
}

func TestCartReserveValidation(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 4002, "0")
	limited := f.createProduct(t, "1.00", 10, withBounds(0, 4))
	scarce := f.createProduct(t, "1.00", 2)

	if _, err := f.cart.Reserve(user.ID, limited.ID, 0); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Fatalf("expected ErrQuantityOutOfRange for zero quantity, got %v", err)
	}
	if _, err := f.cart.Reserve(user.ID, limited.ID, 3); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	// 合并后超过限购
	if _, err := f.cart.Reserve(user.ID, limited.ID, 2); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Fatalf("expected ErrQuantityOutOfRange for merged total, got %v", err)
	}
	if _, err := f.cart.Reserve(user.ID, scarce.ID, 3); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if stock := f.stockOf(t, limited.ID); stock != 7 {
		t.Fatalf("expected stock 7 after failed merge, got %d", stock)
	}
	if stock := f.stockOf(t, scarce.ID); stock != 2 {
		t.Fatalf("expected scarce stock unchanged, got %d", stock)
	}
	f.assertLedger(t, limited.ID)
	f.assertLedger(t, scarce.ID)
}

func TestCartChangeQuantity(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 4003, "0")
	product := f.createProduct(t, "1.00", 10)

	item, err := f.cart.Reserve(user.ID, product.ID, 5)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	steps := []struct {
		quantity  int
		wantStock int
	}{
		{quantity: 7, wantStock: 3},
		{quantity: 2, wantStock: 8},
		{quantity: 2, wantStock: 8},
		{quantity: 10, wantStock: 0},
	}
	for _, step := range steps {
		updated, err := f.cart.ChangeQuantity(user.ID, item.ID, step.quantity)
		if err != nil {
			t.Fatalf("change to %d failed: %v", step.quantity, err)
		}
		if updated.Quantity != step.quantity {
			t.Fatalf("expected quantity %d, got %d", step.quantity, updated.Quantity)
		}
		if stock := f.stockOf(t, product.ID); stock != step.wantStock {
			t.Fatalf("after change to %d expected stock %d, got %d", step.quantity, step.wantStock, stock)
		}
		f.assertLedger(t, product.ID)
	}

	if _, err := f.cart.ChangeQuantity(user.ID, item.ID, 11); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if _, err := f.cart.ChangeQuantity(user.ID, item.ID, -1); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Fatalf("expected ErrQuantityOutOfRange, got %v", err)
	}

	if _, err := f.cart.ChangeQuantity(user.ID, item.ID, 0); err != nil {
		t.Fatalf("change to zero failed: %v", err)
	}
	if stock := f.stockOf(t, product.ID); stock != 10 {
		t.Fatalf("expected full stock after release, got %d", stock)
	}
	if _, err := f.cart.ChangeQuantity(user.ID, item.ID, 1); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound after release, got %v", err)
	}
	f.assertLedger(t, product.ID)
}

func TestCartConcurrentChangeQuantity(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 4004, "0")
	product := f.createProduct(t, "1.00", 10)

	item, err := f.cart.Reserve(user.ID, product.ID, 5)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, quantity := range []int{7, 3} {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			if _, err := f.cart.ChangeQuantity(user.ID, item.ID, q); err != nil {
				errs <- err
			}
		}(quantity)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent change failed: %v", err)
	}

	items, err := f.cartRepo.ListByUser(user.ID)
	if err != nil {
		t.Fatalf("list cart failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 cart row, got %d", len(items))
	}
	final := items[0].Quantity
	if final != 7 && final != 3 {
		t.Fatalf("unexpected final quantity %d", final)
	}
	if stock := f.stockOf(t, product.ID); stock != 10-final {
		t.Fatalf("expected stock %d, got %d", 10-final, stock)
	}
	f.assertLedger(t, product.ID)
}

func TestCartReleaseAll(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 4005, "0")
	other := f.createUser(t, 4006, "0")
	a := f.createProduct(t, "1.00", 5)
	b := f.createProduct(t, "1.00", 5)

	if _, err := f.cart.Reserve(user.ID, a.ID, 2); err != nil {
		t.Fatalf("reserve a failed: %v", err)
	}
	if _, err := f.cart.Reserve(user.ID, b.ID, 3); err != nil {
		t.Fatalf("reserve b failed: %v", err)
	}
	if _, err := f.cart.Reserve(other.ID, a.ID, 1); err != nil {
		t.Fatalf("reserve other failed: %v", err)
	}

	released, err := f.cart.ReleaseAll(user.ID)
	if err != nil {
		t.Fatalf("release all failed: %v", err)
	}
	if released != 2 {
		t.Fatalf("expected 2 released rows, got %d", released)
	}
	if stock := f.stockOf(t, a.ID); stock != 4 {
		t.Fatalf("expected stock 4 for a, got %d", stock)
	}
	if stock := f.stockOf(t, b.ID); stock != 5 {
		t.Fatalf("expected stock 5 for b, got %d", stock)
	}
	if err := f.cart.Release(user.ID, 9999); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
	f.assertLedger(t, a.ID)
	f.assertLedger(t, b.ID)
}

func TestCartConcurrentReserveNeverOversells(t *testing.T) {
	f := setupStore(t)
	product := f.createProduct(t, "1.00", 10)
	users := make([]uint, 0, 20)
	for i := 0; i < 20; i++ {
		users = append(users, f.createUser(t, int64(4100+i), "0").ID)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		reserved  int
		contended int
	)
	for _, userID := range users {
		wg.Add(1)
		go func(uid uint) {
			defer wg.Done()
			_, err := f.cart.Reserve(uid, product.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				reserved++
			case errors.Is(err, ErrInsufficientStock):
				contended++
			default:
				t.Errorf("unexpected reserve error: %v", err)
			}
		}(userID)
	}
	wg.Wait()

	if reserved != 10 || contended != 10 {
		t.Fatalf("expected 10 reserved and 10 rejected, got %d and %d", reserved, contended)
	}
	if stock := f.stockOf(t, product.ID); stock != 0 {
		t.Fatalf("expected stock 0, got %d", stock)
	}
	f.assertLedger(t, product.ID)
}

func TestCartLineOwnershipChecked(t *testing.T) {
	f := setupStore(t)
	owner := f.createUser(t, 4200, "0")
	other := f.createUser(t, 4201, "0")
	product := f.createProduct(t, "1.00", 5)

	item, err := f.cart.Reserve(owner.ID, product.ID, 2)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if _, err := f.cart.ChangeQuantity(other.ID, item.ID, 4); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound for foreign change, got %v", err)
	}
	if err := f.cart.Release(other.ID, item.ID); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound for foreign release, got %v", err)
	}
	if stock := f.stockOf(t, product.ID); stock != 3 {
		t.Fatalf("expected stock 3, got %d", stock)
	}

	if err := f.cart.Release(owner.ID, item.ID); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if stock := f.stockOf(t, product.ID); stock != 5 {
		t.Fatalf("expected stock 5 after release, got %d", stock)
	}
	f.assertLedger(t, product.ID)
}
