//go:build integration

package repository

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unitshop/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// UNITSHOP_TEST_POSTGRES_DSN=postgres://... go test -tags integration ./internal/repository/
func setupPostgresRepositoryTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("UNITSHOP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("UNITSHOP_TEST_POSTGRES_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}, &models.ProductUnit{}, &models.CartProduct{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func TestPostgresConcurrentDecrementNeverOversells(t *testing.T) {
	db := setupPostgresRepositoryTest(t)
	repo := NewProductRepository(db)
	product := &models.Product{
		CategoryID:     1,
		Name:           fmt.Sprintf("pg-race-%d", time.Now().UnixNano()),
		PriceAmount:    models.NewMoneyFromDecimal(decimal.NewFromInt(1)),
		StockCount:     10,
		CanBePurchased: true,
	}
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	t.Cleanup(func() { db.Unscoped().Delete(&models.Product{}, product.ID) })

	var succeeded int64
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Transaction(func(tx *gorm.DB) error {
				affected, err := repo.WithTx(tx).DecrementStock(product.ID, 1)
				if err != nil {
					return err
				}
				if affected == 1 {
					atomic.AddInt64(&succeeded, 1)
				}
				return nil
			})
			if err != nil {
				t.Errorf("decrement failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("successful decrements want 10 got %d", succeeded)
	}
	refreshed, err := repo.GetByID(product.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if refreshed.StockCount != 0 {
		t.Fatalf("stock want 0 got %d", refreshed.StockCount)
	}
}
