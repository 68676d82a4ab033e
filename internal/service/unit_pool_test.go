package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"gorm.io/gorm"
)

func createSaleRow(t *testing.T, f *storeFixture, userID, productID uint, quantity int) *models.Sale {
	t.Helper()
	sale := &models.Sale{
		SaleNo:      generateSaleNo(),
		UserID:      userID,
		ProductID:   productID,
		Amount:      models.ZeroMoney(),
		Quantity:    quantity,
		PaymentType: "balance",
		CreatedAt:   time.Now(),
	}
	if err := f.saleRepo.Create(sale); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	return sale
}

func TestUnitPoolImportValidation(t *testing.T) {
	f := setupStore(t)
	product := f.createProduct(t, "1.00", 0)

	cases := []struct {
		name     string
		payloads []UnitPayload
	}{
		{name: "empty", payloads: nil},
		{name: "blank_content", payloads: []UnitPayload{{Content: "ok"}, {Content: "   "}}},
		{name: "unknown_type", payloads: []UnitPayload{{Content: "x", Type: "image"}}},
	}
	for _, tc := range cases {
		if _, err := f.pool.Import(product.ID, tc.payloads); !errors.Is(err, ErrUnitPayloadInvalid) {
			t.Fatalf("%s: expected ErrUnitPayloadInvalid, got %v", tc.name, err)
		}
	}
	if _, err := f.pool.Import(9999, []UnitPayload{{Content: "x"}}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	count, err := f.pool.Import(product.ID, []UnitPayload{{Content: " a "}, {Content: "files/b.txt", Type: "FILE"}})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 imported, got %d", count)
	}
	units, total, err := f.pool.ListUnits(repository.ProductUnitListFilter{ProductID: product.ID})
	if err != nil {
		t.Fatalf("list units failed: %v", err)
	}
	if total != 2 || units[0].Content != "a" || units[1].Type != "file" {
		t.Fatalf("unexpected units: %+v", units)
	}
	if stock := f.stockOf(t, product.ID); stock != 2 {
		t.Fatalf("expected stock 2, got %d", stock)
	}
	f.assertLedger(t, product.ID)
}

func TestUnitPoolAllocateOldestFirst(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 5001, "0")
	product := f.createProduct(t, "1.00", 4)
	sale := createSaleRow(t, f, user.ID, product.ID, 2)

	var allocated []models.ProductUnit
	err := f.productRepo.Transaction(func(tx *gorm.DB) error {
		if err := f.ledger.Decrement(tx, product.ID, 2); err != nil {
			return err
		}
		var err error
		allocated, err = f.pool.Allocate(tx, product.ID, sale.ID, 2)
		return err
	})
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if len(allocated) != 2 {
		t.Fatalf("expected 2 units, got %d", len(allocated))
	}
	if allocated[0].Content != fmt.Sprintf("code-%d-1", product.ID) || allocated[1].Content != fmt.Sprintf("code-%d-2", product.ID) {
		t.Fatalf("expected oldest units first, got %+v", allocated)
	}
	for _, unit := range allocated {
		if !unit.IsSold() || *unit.SoldSaleID != sale.ID {
			t.Fatalf("unit %d not marked sold to sale %d", unit.ID, sale.ID)
		}
	}

	delivered, err := f.pool.ListBySale(sale.ID)
	if err != nil {
		t.Fatalf("list by sale failed: %v", err)
	}
	if len(delivered) != 2 || delivered[0].ID != allocated[0].ID {
		t.Fatalf("unexpected delivered units: %+v", delivered)
	}
	f.assertLedger(t, product.ID)
}

func TestUnitPoolAllocateShortRollsBack(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 5002, "0")
	product := f.createProduct(t, "1.00", 1)
	sale := createSaleRow(t, f, user.ID, product.ID, 2)

	err := f.productRepo.Transaction(func(tx *gorm.DB) error {
		_, err := f.pool.Allocate(tx, product.ID, sale.ID, 2)
		return err
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if unsold := f.unsoldOf(t, product.ID); unsold != 1 {
		t.Fatalf("expected unit to stay unsold, got %d unsold", unsold)
	}
	if _, err := f.pool.Allocate(f.db, product.ID, 0, 1); !errors.Is(err, ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
	if _, err := f.pool.Allocate(f.db, product.ID, sale.ID, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestUnitPoolAllocateMissingProduct(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 5010, "0")
	product := f.createProduct(t, "1.00", 1)
	sale := createSaleRow(t, f, user.ID, product.ID, 1)

	err := f.productRepo.Transaction(func(tx *gorm.DB) error {
		_, err := f.pool.Allocate(tx, product.ID+1000, sale.ID, 1)
		return err
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestUnitPoolReleaseUnsoldKeepsSoldUnits(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 5003, "100")
	buyer := f.createUser(t, 5004, "0")
	product := f.createProduct(t, "1.00", 5)

	st, err := f.settlement.BuyNow(context.Background(), user.ID, product.ID, 2, "balance")
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, err := f.cart.Reserve(buyer.ID, product.ID, 1); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	deleted, err := f.pool.ReleaseUnsold(product.ID)
	if err != nil {
		t.Fatalf("release unsold failed: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}
	sold, err := f.pool.ListBySale(st.Sale.ID)
	if err != nil {
		t.Fatalf("list by sale failed: %v", err)
	}
	if len(sold) != 2 {
		t.Fatalf("expected sold units to survive, got %d", len(sold))
	}
	items, err := f.cartRepo.ListByUser(buyer.ID)
	if err != nil {
		t.Fatalf("list cart failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected reservations dropped, got %d", len(items))
	}

	stats, err := f.pool.Stats(product.ID)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.StockCount != 0 || stats.Total != 2 || stats.Sold != 2 || stats.Unsold != 0 || stats.Reserved != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	f.assertLedger(t, product.ID)
}

func TestStockLedgerRecomputeCorrectsDrift(t *testing.T) {
	f := setupStore(t)
	user := f.createUser(t, 5005, "0")
	product := f.createProduct(t, "1.00", 6)
	if _, err := f.cart.Reserve(user.ID, product.ID, 2); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	corrected, err := f.pool.RecomputeStock(product.ID)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if corrected {
		t.Fatalf("expected no drift on a consistent ledger")
	}

	if err := f.productRepo.SetStock(product.ID, 1); err != nil {
		t.Fatalf("set stock failed: %v", err)
	}
	corrected, err = f.pool.RecomputeStock(product.ID)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if !corrected {
		t.Fatalf("expected drift correction")
	}
	if stock := f.stockOf(t, product.ID); stock != 4 {
		t.Fatalf("expected stock 4 after correction, got %d", stock)
	}
	f.assertLedger(t, product.ID)
}

func TestStockLedgerDecrementGuards(t *testing.T) {
	f := setupStore(t)
	product := f.createProduct(t, "1.00", 2)

	err := f.productRepo.Transaction(func(tx *gorm.DB) error {
		return f.ledger.Decrement(tx, product.ID, 3)
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	err = f.productRepo.Transaction(func(tx *gorm.DB) error {
		return f.ledger.Decrement(tx, 9999, 1)
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	err = f.productRepo.Transaction(func(tx *gorm.DB) error {
		return f.ledger.Increment(tx, product.ID, 0)
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if stock := f.stockOf(t, product.ID); stock != 2 {
		t.Fatalf("expected stock unchanged, got %d", stock)
	}
}
