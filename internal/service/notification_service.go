package service

import (
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/queue"
)

// Notifier 出站通知，失败只记录日志
type Notifier interface {
	SaleCreated(saleID uint)
	BalanceToppedUp(depositID uint)
}

// NotificationService 通过异步队列投递通知
type NotificationService struct {
	queueClient *queue.Client
}

// NewNotificationService 创建通知服务
func NewNotificationService(queueClient *queue.Client) *NotificationService {
	return &NotificationService{queueClient: queueClient}
}

// SaleCreated 投递新销售通知
func (s *NotificationService) SaleCreated(saleID uint) {
	if s == nil || saleID == 0 {
		return
	}
	if !s.queueClient.Enabled() {
		logger.Debugw("notify_sale_created_skip_queue_disabled", "sale_id", saleID)
		return
	}
	if err := s.queueClient.EnqueueSaleCreated(queue.SaleCreatedPayload{SaleID: saleID}); err != nil {
		logger.Warnw("notify_sale_created_enqueue_failed", "sale_id", saleID, "error", err)
	}
}

// BalanceToppedUp 投递充值通知
func (s *NotificationService) BalanceToppedUp(depositID uint) {
	if s == nil || depositID == 0 {
		return
	}
	if !s.queueClient.Enabled() {
		logger.Debugw("notify_balance_topped_up_skip_queue_disabled", "deposit_id", depositID)
		return
	}
	if err := s.queueClient.EnqueueBalanceToppedUp(queue.BalanceToppedUpPayload{DepositID: depositID}); err != nil {
		logger.Warnw("notify_balance_topped_up_enqueue_failed", "deposit_id", depositID, "error", err)
	}
}

type noopNotifier struct{}

func (noopNotifier) SaleCreated(uint)     {}
func (noopNotifier) BalanceToppedUp(uint) {}
