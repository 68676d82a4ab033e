package provider

import (
	"context"
	"time"

	"github.com/unitshop/internal/authz"
	"github.com/unitshop/internal/cache"
	"github.com/unitshop/internal/config"
	"github.com/unitshop/internal/events"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/queue"
	"github.com/unitshop/internal/repository"
	"github.com/unitshop/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config         *config.Config
	QueueClient    *queue.Client
	EventPublisher *events.Publisher

	// Repositories
	AdminRepo          repository.AdminRepository
	UserRepo           repository.UserRepository
	ProductRepo        repository.ProductRepository
	UnitRepo           repository.ProductUnitRepository
	CartRepo           repository.CartRepository
	SaleRepo           repository.SaleRepository
	BalanceRepo        repository.BalanceRepository
	ChargeRepo         repository.ChargeRepository
	ReconciliationRepo repository.ReconciliationRepository
	BonusRepo          repository.TopUpBonusRepository

	// Services
	AuthzService          *authz.Service
	AuthService           *service.AuthService
	UserAuthService       *service.UserAuthService
	ProductService        *service.ProductService
	StockLedger           *service.StockLedger
	UnitPool              *service.UnitPool
	CartService           *service.CartService
	Gateways              *service.GatewayRegistry
	BonusService          *service.BonusService
	WalletService         *service.WalletService
	ReconciliationService *service.ReconciliationService
	NotificationService   *service.NotificationService
	SettlementService     *service.SettlementService
	SaleService           *service.SaleService
	ChargeRecovery        *service.ChargeRecoveryService
	CaptchaService        *service.CaptchaService
	PaymentFlows          *service.PaymentFlows
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	publisher, err := events.NewPublisher(ctx, &cfg.NATS)
	if err != nil {
		// 事件总线不可用时降级为只记录日志
		logger.Errorw("provider_init_event_publisher_failed", "error", err)
		publisher, _ = events.NewPublisher(ctx, &config.NATSConfig{Enabled: false})
	}

	c := &Container{
		Config:         cfg,
		QueueClient:    queueClient,
		EventPublisher: publisher,
	}
	c.initRepositories()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.UnitRepo = repository.NewProductUnitRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.SaleRepo = repository.NewSaleRepository(db)
	c.BalanceRepo = repository.NewBalanceRepository(db)
	c.ChargeRepo = repository.NewChargeRepository(db)
	c.ReconciliationRepo = repository.NewReconciliationRepository(db)
	c.BonusRepo = repository.NewTopUpBonusRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	settlementCfg := c.Config.Settlement
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.ProductService = service.NewProductService(c.ProductRepo)
	c.StockLedger = service.NewStockLedger(c.ProductRepo, c.UnitRepo, c.CartRepo)
	c.UnitPool = service.NewUnitPool(c.ProductRepo, c.UnitRepo, c.CartRepo, c.StockLedger)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo, c.StockLedger)
	c.Gateways = service.NewGatewayRegistryFromConfig(c.Config.Gateways, settlementCfg.Currency, settlementCfg.PollInterval())
	c.BonusService = service.NewBonusService(c.BonusRepo, time.Duration(c.Config.Bonus.CacheTTLSeconds)*time.Second)
	c.NotificationService = service.NewNotificationService(c.QueueClient)
	c.WalletService = service.NewWalletService(
		c.UserRepo,
		c.BalanceRepo,
		c.ChargeRepo,
		c.ReconciliationRepo,
		c.Gateways,
		c.BonusService,
		c.NotificationService,
		settlementCfg.PollTimeout(),
	)
	c.ReconciliationService = service.NewReconciliationService(c.ReconciliationRepo, c.UserRepo, c.WalletService)
	c.SettlementService = service.NewSettlementService(
		c.ProductRepo,
		c.UnitRepo,
		c.CartRepo,
		c.UserRepo,
		c.SaleRepo,
		c.ChargeRepo,
		c.StockLedger,
		c.UnitPool,
		c.WalletService,
		c.ReconciliationService,
		c.Gateways,
		c.NotificationService,
		settlementCfg.PollTimeout(),
	)
	c.SaleService = service.NewSaleService(c.SaleRepo, c.UnitPool, c.ChargeRepo)
	c.ChargeRecovery = service.NewChargeRecoveryService(c.ChargeRepo, c.ReconciliationRepo, c.Gateways, settlementCfg.PollTimeout())
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.PaymentFlows = service.NewPaymentFlows()

	logger.Infow("provider_gateways_registered", "gateways", c.Gateways.Names())
}

// Close 释放队列与事件总线连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if c.EventPublisher != nil {
		c.EventPublisher.Close()
	}
}
