package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/unitshop/internal/events"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/queue"
	"github.com/unitshop/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	sales    []events.SaleCreatedEvent
	deposits []events.BalanceToppedUpEvent
	err      error
}

func (p *recordingPublisher) PublishSaleCreated(_ context.Context, event events.SaleCreatedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.sales = append(p.sales, event)
	return nil
}

func (p *recordingPublisher) PublishBalanceToppedUp(_ context.Context, event events.BalanceToppedUpEvent) error {
	if p.err != nil {
		return p.err
	}
	p.deposits = append(p.deposits, event)
	return nil
}

func setupConsumer(t *testing.T) (*Consumer, *gorm.DB, *recordingPublisher) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&models.User{}, &models.Category{}, &models.Product{}, &models.ProductUnit{}, &models.Sale{}, &models.Deposit{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	publisher := &recordingPublisher{}
	return &Consumer{
		SaleRepo:    repository.NewSaleRepository(db),
		UserRepo:    repository.NewUserRepository(db),
		ProductRepo: repository.NewProductRepository(db),
		UnitRepo:    repository.NewProductUnitRepository(db),
		BalanceRepo: repository.NewBalanceRepository(db),
		Publisher:   publisher,
	}, db, publisher
}

func mustTask(t *testing.T, taskType string, payload interface{}) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return asynq.NewTask(taskType, body)
}

func TestHandleSaleCreatedPublishesDeliveredUnits(t *testing.T) {
	consumer, db, publisher := setupConsumer(t)
	user := &models.User{TelegramID: 42, Username: "alice"}
	product := &models.Product{CategoryID: 1, Name: "Gift Card", PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(2)), CanBePurchased: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	sale := &models.Sale{
		SaleNo:      "S-1",
		UserID:      user.ID,
		ProductID:   product.ID,
		Amount:      models.NewMoneyFromDecimal(decimal.NewFromInt(4)),
		Quantity:    2,
		PaymentType: "balance",
	}
	if err := db.Create(sale).Error; err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	now := time.Now()
	units := []models.ProductUnit{
		{ProductID: product.ID, Content: "AAA", Type: "text", SoldSaleID: &sale.ID, SoldAt: &now},
		{ProductID: product.ID, Content: "BBB", Type: "text", SoldSaleID: &sale.ID, SoldAt: &now},
		{ProductID: product.ID, Content: "CCC", Type: "text"},
	}
	if err := db.Create(&units).Error; err != nil {
		t.Fatalf("create units failed: %v", err)
	}

	task := mustTask(t, queue.TaskNotifySaleCreated, queue.SaleCreatedPayload{SaleID: sale.ID})
	if err := consumer.handleSaleCreated(context.Background(), task); err != nil {
		t.Fatalf("handle sale created failed: %v", err)
	}
	if len(publisher.sales) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.sales))
	}
	event := publisher.sales[0]
	if event.SaleNo != "S-1" || event.TelegramID != 42 || event.Username != "alice" {
		t.Fatalf("unexpected buyer fields: %+v", event)
	}
	if event.ProductName != "Gift Card" || event.Amount != "4.00" || event.Quantity != 2 {
		t.Fatalf("unexpected sale fields: %+v", event)
	}
	if len(event.Units) != 2 || event.Units[0].Content != "AAA" || event.Units[1].Content != "BBB" {
		t.Fatalf("unexpected units: %+v", event.Units)
	}
}

func TestHandleSaleCreatedSkipsMissingSale(t *testing.T) {
	consumer, _, publisher := setupConsumer(t)
	task := mustTask(t, queue.TaskNotifySaleCreated, queue.SaleCreatedPayload{SaleID: 999})
	if err := consumer.handleSaleCreated(context.Background(), task); err != nil {
		t.Fatalf("expected nil for missing sale, got %v", err)
	}
	if err := consumer.handleSaleCreated(context.Background(), asynq.NewTask(queue.TaskNotifySaleCreated, []byte("{"))); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for bad payload, got %v", err)
	}
	if len(publisher.sales) != 0 {
		t.Fatalf("expected nothing published")
	}
}

func TestHandleBalanceToppedUpPublishFailureRetries(t *testing.T) {
	consumer, db, publisher := setupConsumer(t)
	user := &models.User{TelegramID: 7, Username: "bob"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	deposit := &models.Deposit{
		UserID:      user.ID,
		PaymentType: "cryptopay",
		Reference:   "D-1",
		Amount:      models.NewMoneyFromDecimal(decimal.NewFromInt(150)),
		BonusAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("7.5")),
	}
	if err := db.Create(deposit).Error; err != nil {
		t.Fatalf("create deposit failed: %v", err)
	}
	task := mustTask(t, queue.TaskNotifyBalanceToppedUp, queue.BalanceToppedUpPayload{DepositID: deposit.ID})

	publisher.err = errors.New("nats down")
	if err := consumer.handleBalanceToppedUp(context.Background(), task); err == nil {
		t.Fatalf("expected publish error to surface for retry")
	}

	publisher.err = nil
	if err := consumer.handleBalanceToppedUp(context.Background(), task); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(publisher.deposits) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.deposits))
	}
	event := publisher.deposits[0]
	if event.Amount != "150.00" || event.Bonus != "7.50" || event.TelegramID != 7 || event.Reference != "D-1" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

type countingAuditor struct {
	calls   []uint
	drifted map[uint]bool
}

func (a *countingAuditor) RecomputeStock(productID uint) (bool, error) {
	a.calls = append(a.calls, productID)
	return a.drifted[productID], nil
}

func TestAuditAllStockVisitsEveryProduct(t *testing.T) {
	consumer, db, _ := setupConsumer(t)
	ids := make([]uint, 0, 3)
	for i := 0; i < 3; i++ {
		product := &models.Product{CategoryID: 1, Name: fmt.Sprintf("p%d", i), CanBePurchased: true}
		if err := db.Create(product).Error; err != nil {
			t.Fatalf("create product failed: %v", err)
		}
		ids = append(ids, product.ID)
	}
	auditor := &countingAuditor{drifted: map[uint]bool{ids[1]: true}}

	corrected, err := auditAllStock(consumer.ProductRepo, auditor)
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if len(auditor.calls) != 3 {
		t.Fatalf("expected 3 products audited, got %d", len(auditor.calls))
	}
	if corrected != 1 {
		t.Fatalf("expected 1 corrected product, got %d", corrected)
	}
}
