package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type storeFixture struct {
	db          *gorm.DB
	productRepo *repository.GormProductRepository
	unitRepo    *repository.GormProductUnitRepository
	cartRepo    *repository.GormCartRepository
	userRepo    *repository.GormUserRepository
	saleRepo    *repository.GormSaleRepository
	balanceRepo *repository.GormBalanceRepository
	chargeRepo  *repository.GormChargeRepository
	reconRepo   *repository.GormReconciliationRepository
	bonusRepo   *repository.GormTopUpBonusRepository

	ledger     *StockLedger
	pool       *UnitPool
	cart       *CartService
	bonus      *BonusService
	wallet     *WalletService
	recon      *ReconciliationService
	settlement *SettlementService
	recovery   *ChargeRecoveryService
	gateway    *fakeGateway
	notifier   *recordingNotifier
}

func setupStore(t *testing.T) *storeFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:store_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// 内存库共享缓存下多连接并发写会报表锁，测试中串行化到单连接
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return newStoreFixture(t, db)
}

// newStoreFixture 在已打开的数据库上迁移表结构并装配全部服务
func newStoreFixture(t *testing.T, db *gorm.DB) *storeFixture {
	t.Helper()
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductUnit{},
		&models.CartProduct{},
		&models.Sale{},
		&models.BalanceTransaction{},
		&models.TopUpBonus{},
		&models.Deposit{},
		&models.PaymentCharge{},
		&models.Reconciliation{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	f := &storeFixture{
		db:          db,
		productRepo: repository.NewProductRepository(db),
		unitRepo:    repository.NewProductUnitRepository(db),
		cartRepo:    repository.NewCartRepository(db),
		userRepo:    repository.NewUserRepository(db),
		saleRepo:    repository.NewSaleRepository(db),
		balanceRepo: repository.NewBalanceRepository(db),
		chargeRepo:  repository.NewChargeRepository(db),
		reconRepo:   repository.NewReconciliationRepository(db),
		bonusRepo:   repository.NewTopUpBonusRepository(db),
		gateway:     newFakeGateway("cryptopay"),
		notifier:    &recordingNotifier{},
	}
	f.ledger = NewStockLedger(f.productRepo, f.unitRepo, f.cartRepo)
	f.pool = NewUnitPool(f.productRepo, f.unitRepo, f.cartRepo, f.ledger)
	f.cart = NewCartService(f.cartRepo, f.productRepo, f.ledger)
	f.bonus = NewBonusService(f.bonusRepo, time.Minute)
	registry := NewGatewayRegistry(f.gateway)
	f.wallet = NewWalletService(f.userRepo, f.balanceRepo, f.chargeRepo, f.reconRepo, registry, f.bonus, f.notifier, time.Second)
	f.recon = NewReconciliationService(f.reconRepo, f.userRepo, f.wallet)
	f.settlement = NewSettlementService(
		f.productRepo,
		f.unitRepo,
		f.cartRepo,
		f.userRepo,
		f.saleRepo,
		f.chargeRepo,
		f.ledger,
		f.pool,
		f.wallet,
		f.recon,
		registry,
		f.notifier,
		time.Second,
	)
	f.recovery = NewChargeRecoveryService(f.chargeRepo, f.reconRepo, registry, time.Second)
	return f
}

func (f *storeFixture) createUser(t *testing.T, telegramID int64, balance string) *models.User {
	t.Helper()
	user := &models.User{
		TelegramID: telegramID,
		Username:   fmt.Sprintf("user_%d", telegramID),
		Balance:    models.NewMoneyFromDecimal(decimal.RequireFromString(balance)),
	}
	if err := f.userRepo.Create(user); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

type productOption func(*models.Product)

func withBounds(min, max int) productOption {
	return func(p *models.Product) {
		if min > 0 {
			p.MinOrderQuantity = &min
		}
		if max > 0 {
			p.MaxOrderQuantity = &max
		}
	}
}

// createProduct 创建商品并入库 units 个单元，库存计数由入库同步
func (f *storeFixture) createProduct(t *testing.T, price string, units int, opts ...productOption) *models.Product {
	t.Helper()
	product := &models.Product{
		CategoryID:     1,
		Name:           fmt.Sprintf("product_%d", time.Now().UnixNano()),
		PriceAmount:    models.NewMoneyFromDecimal(decimal.RequireFromString(price)),
		CanBePurchased: true,
	}
	for _, opt := range opts {
		opt(product)
	}
	if err := f.productRepo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if units > 0 {
		payloads := make([]UnitPayload, 0, units)
		for i := 1; i <= units; i++ {
			payloads = append(payloads, UnitPayload{Content: fmt.Sprintf("code-%d-%d", product.ID, i)})
		}
		if _, err := f.pool.Import(product.ID, payloads); err != nil {
			t.Fatalf("import units failed: %v", err)
		}
	}
	return f.reloadProduct(t, product.ID)
}

func (f *storeFixture) reloadProduct(t *testing.T, id uint) *models.Product {
	t.Helper()
	product, err := f.productRepo.GetByID(id)
	if err != nil || product == nil {
		t.Fatalf("reload product failed: %v", err)
	}
	return product
}

func (f *storeFixture) reloadUser(t *testing.T, id uint) *models.User {
	t.Helper()
	user, err := f.userRepo.GetByID(id)
	if err != nil || user == nil {
		t.Fatalf("reload user failed: %v", err)
	}
	return user
}

func (f *storeFixture) stockOf(t *testing.T, productID uint) int {
	t.Helper()
	return f.reloadProduct(t, productID).StockCount
}

func (f *storeFixture) unsoldOf(t *testing.T, productID uint) int64 {
	t.Helper()
	unsold, err := f.unitRepo.CountUnsold(productID)
	if err != nil {
		t.Fatalf("count unsold failed: %v", err)
	}
	return unsold
}

// assertLedger 校验 stock_count + 预留合计 == 未售单元数
func (f *storeFixture) assertLedger(t *testing.T, productID uint) {
	t.Helper()
	reserved, err := f.cartRepo.SumReservedByProduct(productID)
	if err != nil {
		t.Fatalf("sum reserved failed: %v", err)
	}
	stock := f.stockOf(t, productID)
	unsold := f.unsoldOf(t, productID)
	if int64(stock)+reserved != unsold {
		t.Fatalf("ledger invariant broken: stock=%d reserved=%d unsold=%d", stock, reserved, unsold)
	}
	if stock < 0 {
		t.Fatalf("stock went negative: %d", stock)
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	sales    []uint
	deposits []uint
}

func (n *recordingNotifier) SaleCreated(saleID uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sales = append(n.sales, saleID)
}

func (n *recordingNotifier) BalanceToppedUp(depositID uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deposits = append(n.deposits, depositID)
}

func (n *recordingNotifier) saleCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sales)
}

// fakeGateway 可编排结果的网关
type fakeGateway struct {
	name string

	mu          sync.Mutex
	createErr   error
	pollStatus  *ChargeStatus
	pollErr     error
	fetchAmount decimal.Decimal
	fetchErr    error
	onPoll      func()
	creates     int
	polls       int
	fetches     int
	lastRequest ChargeRequest
}

func newFakeGateway(name string) *fakeGateway {
	return &fakeGateway{name: name, pollStatus: &ChargeStatus{Paid: false}}
}

func (g *fakeGateway) Name() string {
	return g.name
}

func (g *fakeGateway) CreateCharge(_ context.Context, req ChargeRequest) (*ChargeHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creates++
	g.lastRequest = req
	if g.createErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, g.createErr)
	}
	return &ChargeHandle{
		Gateway:    g.name,
		Reference:  req.Reference,
		ExternalID: "trade-" + req.Reference,
		PayURL:     "https://pay.example.com/" + req.Reference,
		Amount:     req.Amount,
	}, nil
}

func (g *fakeGateway) PollCompletion(_ context.Context, _ *ChargeHandle, _ time.Duration) (*ChargeStatus, error) {
	g.mu.Lock()
	g.polls++
	hook := g.onPoll
	status, err := g.pollStatus, g.pollErr
	g.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	copied := *status
	return &copied, nil
}

func (g *fakeGateway) FetchReceived(_ context.Context, _ *ChargeHandle) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	return g.fetchAmount, g.fetchErr
}

func (g *fakeGateway) paidOnPoll(received string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pollStatus = &ChargeStatus{Paid: true, ReceivedAmount: decimal.RequireFromString(received)}
}

func (g *fakeGateway) receivedAfterTimeout(received string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pollStatus = &ChargeStatus{Paid: false}
	g.fetchAmount = decimal.RequireFromString(received)
}
