package events

import "time"

// DeliveredUnit 交付给买家的单元
type DeliveredUnit struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// SaleCreatedEvent 新销售事件载荷
type SaleCreatedEvent struct {
	SaleID      uint            `json:"sale_id"`
	SaleNo      string          `json:"sale_no"`
	TelegramID  int64           `json:"telegram_id"`
	Username    string          `json:"username"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Amount      string          `json:"amount"`
	PaymentType string          `json:"payment_type"`
	Units       []DeliveredUnit `json:"units"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BalanceToppedUpEvent 余额充值事件载荷
type BalanceToppedUpEvent struct {
	DepositID   uint      `json:"deposit_id"`
	Reference   string    `json:"reference"`
	TelegramID  int64     `json:"telegram_id"`
	Username    string    `json:"username"`
	Amount      string    `json:"amount"`
	Bonus       string    `json:"bonus"`
	PaymentType string    `json:"payment_type"`
	CreatedAt   time.Time `json:"created_at"`
}
