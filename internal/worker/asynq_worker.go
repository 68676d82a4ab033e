package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/unitshop/internal/events"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/provider"
	"github.com/unitshop/internal/queue"
	"github.com/unitshop/internal/repository"

	"github.com/hibiken/asynq"
)

// EventPublisher 出站事件发布
type EventPublisher interface {
	PublishSaleCreated(ctx context.Context, event events.SaleCreatedEvent) error
	PublishBalanceToppedUp(ctx context.Context, event events.BalanceToppedUpEvent) error
}

// Consumer 异步任务消费者
type Consumer struct {
	SaleRepo    repository.SaleRepository
	UserRepo    repository.UserRepository
	ProductRepo repository.ProductRepository
	UnitRepo    repository.ProductUnitRepository
	BalanceRepo repository.BalanceRepository
	Publisher   EventPublisher
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	consumer := &Consumer{
		SaleRepo:    c.SaleRepo,
		UserRepo:    c.UserRepo,
		ProductRepo: c.ProductRepo,
		UnitRepo:    c.UnitRepo,
		BalanceRepo: c.BalanceRepo,
	}
	if c.EventPublisher != nil {
		consumer.Publisher = c.EventPublisher
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskNotifySaleCreated, c.handleSaleCreated)
	mux.HandleFunc(queue.TaskNotifyBalanceToppedUp, c.handleBalanceToppedUp)
}

func (c *Consumer) handleSaleCreated(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_sale_created_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SaleCreatedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_sale_created_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.SaleID == 0 {
		logger.Debugw("worker_sale_created_skip_invalid_payload", "sale_id", payload.SaleID)
		return nil
	}
	sale, err := c.SaleRepo.GetByID(payload.SaleID)
	if err != nil {
		logger.Warnw("worker_sale_created_fetch_sale_failed", "sale_id", payload.SaleID, "error", err)
		return err
	}
	if sale == nil {
		logger.Debugw("worker_sale_created_skip_sale_not_found", "sale_id", payload.SaleID)
		return nil
	}
	user, err := c.UserRepo.GetByID(sale.UserID)
	if err != nil {
		logger.Warnw("worker_sale_created_fetch_user_failed", "sale_id", sale.ID, "user_id", sale.UserID, "error", err)
		return err
	}
	units, err := c.UnitRepo.ListBySale(sale.ID)
	if err != nil {
		logger.Warnw("worker_sale_created_fetch_units_failed", "sale_id", sale.ID, "error", err)
		return err
	}
	event := buildSaleCreatedEvent(sale, user, units)
	if sale.Product == nil {
		product, err := c.ProductRepo.GetByID(sale.ProductID)
		if err != nil {
			logger.Warnw("worker_sale_created_fetch_product_failed", "sale_id", sale.ID, "product_id", sale.ProductID, "error", err)
			return err
		}
		if product != nil {
			event.ProductName = product.Name
		}
	}
	if c.Publisher == nil {
		logger.Warnw("worker_sale_created_skip_publisher_nil", "sale_id", sale.ID, "sale_no", sale.SaleNo)
		return nil
	}
	if err := c.Publisher.PublishSaleCreated(ctx, event); err != nil {
		logger.Warnw("worker_sale_created_publish_failed", "sale_id", sale.ID, "sale_no", sale.SaleNo, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleBalanceToppedUp(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_balance_topped_up_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.BalanceToppedUpPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_balance_topped_up_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.DepositID == 0 {
		logger.Debugw("worker_balance_topped_up_skip_invalid_payload", "deposit_id", payload.DepositID)
		return nil
	}
	deposit, err := c.BalanceRepo.GetDepositByID(payload.DepositID)
	if err != nil {
		logger.Warnw("worker_balance_topped_up_fetch_deposit_failed", "deposit_id", payload.DepositID, "error", err)
		return err
	}
	if deposit == nil {
		logger.Debugw("worker_balance_topped_up_skip_deposit_not_found", "deposit_id", payload.DepositID)
		return nil
	}
	user, err := c.UserRepo.GetByID(deposit.UserID)
	if err != nil {
		logger.Warnw("worker_balance_topped_up_fetch_user_failed", "deposit_id", deposit.ID, "user_id", deposit.UserID, "error", err)
		return err
	}
	if c.Publisher == nil {
		logger.Warnw("worker_balance_topped_up_skip_publisher_nil", "deposit_id", deposit.ID)
		return nil
	}
	if err := c.Publisher.PublishBalanceToppedUp(ctx, buildBalanceToppedUpEvent(deposit, user)); err != nil {
		logger.Warnw("worker_balance_topped_up_publish_failed", "deposit_id", deposit.ID, "error", err)
		return err
	}
	return nil
}

func buildSaleCreatedEvent(sale *models.Sale, user *models.User, units []models.ProductUnit) events.SaleCreatedEvent {
	event := events.SaleCreatedEvent{
		SaleID:      sale.ID,
		SaleNo:      sale.SaleNo,
		ProductID:   sale.ProductID,
		Quantity:    sale.Quantity,
		Amount:      sale.Amount.String(),
		PaymentType: sale.PaymentType,
		Units:       make([]events.DeliveredUnit, 0, len(units)),
		CreatedAt:   sale.CreatedAt,
	}
	if user != nil {
		event.TelegramID = user.TelegramID
		event.Username = user.Username
	}
	if sale.Product != nil {
		event.ProductName = sale.Product.Name
	}
	for _, unit := range units {
		event.Units = append(event.Units, events.DeliveredUnit{Type: unit.Type, Content: unit.Content})
	}
	return event
}

func buildBalanceToppedUpEvent(deposit *models.Deposit, user *models.User) events.BalanceToppedUpEvent {
	event := events.BalanceToppedUpEvent{
		DepositID:   deposit.ID,
		Reference:   deposit.Reference,
		Amount:      deposit.Amount.String(),
		Bonus:       deposit.BonusAmount.String(),
		PaymentType: deposit.PaymentType,
		CreatedAt:   deposit.CreatedAt,
	}
	if user != nil {
		event.TelegramID = user.TelegramID
		event.Username = user.Username
	}
	return event
}
