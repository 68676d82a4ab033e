package constants

// 库存单元类型常量
const (
	UnitTypeText = "text"
	UnitTypeFile = "file"
)

// 支付方式常量
const (
	PaymentTypeBalance = "balance"
)

// 网关扣款状态常量
const (
	ChargeStatusPending   = "pending"
	ChargeStatusPaid      = "paid"
	ChargeStatusPartial   = "partial"
	ChargeStatusFailed    = "failed"
	ChargeStatusSettled   = "settled"
	ChargeStatusReconcile = "reconcile"
)

// 网关扣款用途常量
const (
	ChargePurposePurchase = "purchase"
	ChargePurposeTopUp    = "top_up"
)

// 余额流水类型常量
const (
	BalanceTxnTypeSaleDebit            = "sale_debit"
	BalanceTxnTypeTopUp                = "top_up"
	BalanceTxnTypeTopUpBonus           = "top_up_bonus"
	BalanceTxnTypeAdminAdjust          = "admin_adjust"
	BalanceTxnTypeReconciliationRefund = "reconciliation_refund"
)

// 余额流水方向常量
const (
	BalanceTxnDirectionIn  = "in"
	BalanceTxnDirectionOut = "out"
)

// 人工对账状态常量
const (
	ReconciliationStatusOpen      = "open"
	ReconciliationStatusRefunded  = "refunded"
	ReconciliationStatusDismissed = "dismissed"
)

// 人工对账原因常量
const (
	ReconciliationReasonUnderpaid        = "underpaid"
	ReconciliationReasonAllocationFailed = "allocation_failed"
	ReconciliationReasonPartialRemainder = "partial_remainder" // 部分到账按单价折算后的余款
	ReconciliationReasonCreditFailed     = "credit_failed"     // 充值到账后入账失败
	ReconciliationReasonInterrupted      = "interrupted"       // 进程中断后回收的扣款
)

// 默认币种
const DefaultCurrency = "USD"

// 异步队列常量
const (
	QueueDefault              = "default"
	TaskNotifySaleCreated     = "notify:sale_created"
	TaskNotifyBalanceToppedUp = "notify:balance_topped_up"
)

// 事件主题后缀
const (
	EventSaleCreated     = "sale.created"
	EventBalanceToppedUp = "balance.topped_up"
)
