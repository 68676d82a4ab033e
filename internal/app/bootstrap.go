package app

import (
	"errors"
	"time"

	"github.com/unitshop/internal/config"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/provider"
	"github.com/unitshop/internal/router"
	"github.com/unitshop/internal/service"
	"github.com/unitshop/internal/worker"
)

// paymentFlowDrainTimeout 停止时等待后台支付流程结束的时长
const paymentFlowDrainTimeout = 30 * time.Second

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)

	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine)
		services = append(services, httpService)
	}

	if mode == ModeAll || mode == ModeWorker {
		maintenance := worker.Maintenance{
			ProductRepo: container.ProductRepo,
			Auditor:     container.UnitPool,
			Recoverer:   container.ChargeRecovery,
		}
		switch {
		case cfg.Queue.Enabled:
			consumer := worker.NewConsumer(container)
			workerService, err := worker.NewService(&cfg.Queue, consumer, maintenance)
			if err != nil {
				container.Close()
				return nil, err
			}
			services = append(services, workerService)
		case mode == ModeWorker:
			container.Close()
			return nil, errors.New("worker mode requires queue.enabled")
		default:
			logger.Warnw("app_worker_skipped_queue_disabled", "mode", mode)
			services = append(services, worker.NewMaintenanceService(maintenance))
		}
	}

	if len(services) == 0 {
		container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	runner.OnStop(func() {
		drainPaymentFlows(container.PaymentFlows, paymentFlowDrainTimeout)
	})
	runner.OnStop(container.Close)
	return runner, nil
}

// drainPaymentFlows 等待后台支付流程结束，未结束的扣款交给回收任务
func drainPaymentFlows(flows *service.PaymentFlows, timeout time.Duration) {
	if flows == nil {
		return
	}
	if left := flows.Drain(timeout); left > 0 {
		logger.Warnw("app_payment_flows_abandoned", "count", left, "timeout", timeout.String())
	}
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
