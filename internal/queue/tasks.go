package queue

import (
	"encoding/json"

	"github.com/unitshop/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotifySaleCreated 新销售通知任务
	TaskNotifySaleCreated = constants.TaskNotifySaleCreated
	// TaskNotifyBalanceToppedUp 余额充值通知任务
	TaskNotifyBalanceToppedUp = constants.TaskNotifyBalanceToppedUp
)

// SaleCreatedPayload 新销售通知任务载荷
type SaleCreatedPayload struct {
	SaleID uint `json:"sale_id"`
}

// BalanceToppedUpPayload 充值通知任务载荷
type BalanceToppedUpPayload struct {
	DepositID uint `json:"deposit_id"`
}

// NewSaleCreatedTask 创建新销售通知任务
func NewSaleCreatedTask(payload SaleCreatedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifySaleCreated, body, asynq.MaxRetry(5)), nil
}

// NewBalanceToppedUpTask 创建充值通知任务
func NewBalanceToppedUpTask(payload BalanceToppedUpPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyBalanceToppedUp, body, asynq.MaxRetry(5)), nil
}
