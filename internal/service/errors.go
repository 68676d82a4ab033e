package service

import "errors"

// 校验类错误：请求本身不满足业务条件
var (
	ErrQuantityOutOfRange  = errors.New("quantity out of range")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductNotAvailable = errors.New("product not available")
	ErrProductInvalid      = errors.New("product invalid")
	ErrCartItemNotFound    = errors.New("cart item not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserBlocked         = errors.New("user blocked")
	ErrSaleNotFound        = errors.New("sale not found")
	ErrChargeNotFound      = errors.New("payment charge not found")
	ErrUnitPayloadInvalid  = errors.New("unit payload invalid")
	ErrBonusInvalid        = errors.New("top-up bonus invalid")
	ErrBonusNotFound       = errors.New("top-up bonus not found")
)

// 竞争类错误：并发下库存被其他请求占用
var (
	ErrInsufficientStock = errors.New("insufficient stock")
)

// 外部依赖错误
var (
	ErrPaymentFailed       = errors.New("payment failed")
	ErrGatewayNotSupported = errors.New("payment gateway not supported")
)

// 对账与管理错误
var (
	ErrReconciliationNotFound = errors.New("reconciliation not found")
	ErrReconciliationResolved = errors.New("reconciliation already resolved")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrCaptchaRequired        = errors.New("captcha required")
	ErrCaptchaInvalid         = errors.New("captcha invalid")
	ErrInvalidBotSecret       = errors.New("invalid bot secret")
	ErrNotFound               = errors.New("not found")
)

// 内部错误
var (
	ErrSettlementFailed         = errors.New("settlement failed")
	ErrSaleCreateFailed         = errors.New("sale create failed")
	ErrBalanceUpdateFailed      = errors.New("balance update failed")
	ErrBalanceTxnCreateFailed   = errors.New("balance transaction create failed")
	ErrChargeCreateFailed       = errors.New("payment charge create failed")
	ErrIllegalStateTransition   = errors.New("illegal settlement state transition")
	ErrStockLedgerUpdateFailed  = errors.New("stock ledger update failed")
	ErrUnitAllocationIncomplete = errors.New("unit allocation incomplete")
)
