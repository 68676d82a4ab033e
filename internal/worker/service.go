package worker

import (
	"context"
	"errors"
	"time"

	"github.com/unitshop/internal/config"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/queue"
	"github.com/unitshop/internal/repository"
	"github.com/unitshop/internal/service"

	"github.com/hibiken/asynq"
)

const (
	stockAuditInterval     = 10 * time.Minute
	stockAuditPageSize     = 100
	chargeRecoveryInterval = 5 * time.Minute
)

// StockAuditor 库存计数校正
type StockAuditor interface {
	RecomputeStock(productID uint) (bool, error)
}

// ChargeRecoverer 遗留扣款回收
type ChargeRecoverer interface {
	RecoverStale(ctx context.Context, now time.Time) (service.ChargeRecoveryResult, error)
}

// Maintenance 周期维护任务：库存计数校正与遗留扣款回收
type Maintenance struct {
	ProductRepo repository.ProductRepository
	Auditor     StockAuditor
	Recoverer   ChargeRecoverer
}

// Service 异步队列服务
type Service struct {
	name        string
	server      *asynq.Server
	mux         *asynq.ServeMux
	consumer    *Consumer
	maintenance Maintenance
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer, maintenance Maintenance) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:        "worker",
		server:      server,
		mux:         mux,
		consumer:    consumer,
		maintenance: maintenance,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	s.maintenance.start(ctx)
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (m Maintenance) start(ctx context.Context) {
	if m.Auditor != nil && m.ProductRepo != nil {
		go m.runStockAuditLoop(ctx)
	}
	if m.Recoverer != nil {
		go m.runChargeRecoveryLoop(ctx)
	}
}

func (m Maintenance) runStockAuditLoop(ctx context.Context) {
	runOnce := func() {
		corrected, err := auditAllStock(m.ProductRepo, m.Auditor)
		if err != nil {
			logger.Warnw("worker_stock_audit_failed", "error", err)
			return
		}
		if corrected > 0 {
			logger.Infow("worker_stock_audit_corrected", "products", corrected)
		}
	}
	runLoop(ctx, stockAuditInterval, runOnce)
}

func (m Maintenance) runChargeRecoveryLoop(ctx context.Context) {
	runLoop(ctx, chargeRecoveryInterval, func() {
		recoverCharges(ctx, m.Recoverer, time.Now())
	})
}

// recoverCharges 执行一次遗留扣款回收
func recoverCharges(ctx context.Context, recoverer ChargeRecoverer, now time.Time) service.ChargeRecoveryResult {
	result, err := recoverer.RecoverStale(ctx, now)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnw("worker_charge_recovery_failed", "error", err)
	}
	if result.Reconciled > 0 || result.Failed > 0 {
		logger.Infow("worker_charge_recovery_done",
			"scanned", result.Scanned,
			"reconciled", result.Reconciled,
			"failed", result.Failed,
			"skipped", result.Skipped,
		)
	}
	return result
}

// runLoop 立即执行一次，之后按 interval 周期执行直到 ctx 结束
func runLoop(ctx context.Context, interval time.Duration, runOnce func()) {
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// MaintenanceService 未启用队列时单独运行维护任务
type MaintenanceService struct {
	maintenance Maintenance
}

// NewMaintenanceService 创建维护服务
func NewMaintenanceService(maintenance Maintenance) *MaintenanceService {
	return &MaintenanceService{maintenance: maintenance}
}

// Name 服务名称
func (s *MaintenanceService) Name() string {
	return "maintenance"
}

// Start 启动维护任务并阻塞到 ctx 结束
func (s *MaintenanceService) Start(ctx context.Context) error {
	s.maintenance.start(ctx)
	<-ctx.Done()
	return nil
}

// Stop 停止服务
func (s *MaintenanceService) Stop(ctx context.Context) error {
	return nil
}

// auditAllStock 逐页校正全部商品的库存计数，返回被修正的商品数
func auditAllStock(productRepo repository.ProductRepository, auditor StockAuditor) (int, error) {
	corrected := 0
	for page := 1; ; page++ {
		products, total, err := productRepo.List(repository.ProductListFilter{Page: page, PageSize: stockAuditPageSize})
		if err != nil {
			return corrected, err
		}
		for _, product := range products {
			fixed, err := auditor.RecomputeStock(product.ID)
			if err != nil {
				logger.Warnw("worker_stock_audit_product_failed", "product_id", product.ID, "error", err)
				continue
			}
			if fixed {
				corrected++
			}
		}
		if len(products) == 0 || int64(page*stockAuditPageSize) >= total {
			return corrected, nil
		}
	}
}
