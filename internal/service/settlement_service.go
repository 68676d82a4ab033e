package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unitshop/internal/constants"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementService 结算协调：校验报价、选择支付路径、等待到账并原子完成出库
type SettlementService struct {
	productRepo repository.ProductRepository
	unitRepo    repository.ProductUnitRepository
	cartRepo    repository.CartRepository
	userRepo    repository.UserRepository
	saleRepo    repository.SaleRepository
	chargeRepo  repository.ChargeRepository
	ledger      *StockLedger
	pool        *UnitPool
	wallet      *WalletService
	recon       *ReconciliationService
	gateways    *GatewayRegistry
	notifier    Notifier
	pollTimeout time.Duration
}

// NewSettlementService 创建结算服务
func NewSettlementService(
	productRepo repository.ProductRepository,
	unitRepo repository.ProductUnitRepository,
	cartRepo repository.CartRepository,
	userRepo repository.UserRepository,
	saleRepo repository.SaleRepository,
	chargeRepo repository.ChargeRepository,
	ledger *StockLedger,
	pool *UnitPool,
	wallet *WalletService,
	recon *ReconciliationService,
	gateways *GatewayRegistry,
	notifier Notifier,
	pollTimeout time.Duration,
) *SettlementService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if pollTimeout <= 0 {
		pollTimeout = 15 * time.Minute
	}
	return &SettlementService{
		productRepo: productRepo,
		unitRepo:    unitRepo,
		cartRepo:    cartRepo,
		userRepo:    userRepo,
		saleRepo:    saleRepo,
		chargeRepo:  chargeRepo,
		ledger:      ledger,
		pool:        pool,
		wallet:      wallet,
		recon:       recon,
		gateways:    gateways,
		notifier:    notifier,
		pollTimeout: pollTimeout,
	}
}

// BuyNow 直接购买
func (s *SettlementService) BuyNow(ctx context.Context, userID, productID uint, quantity int, paymentType string) (*Settlement, error) {
	return s.Checkout(ctx, SettlementRequest{
		UserID:      userID,
		ProductID:   productID,
		Quantity:    quantity,
		PaymentType: paymentType,
	}, nil)
}

// CheckoutCart 结算购物车中的一项预留
func (s *SettlementService) CheckoutCart(ctx context.Context, userID, cartItemID uint, paymentType string) (*Settlement, error) {
	return s.Checkout(ctx, SettlementRequest{
		UserID:      userID,
		CartItemID:  cartItemID,
		PaymentType: paymentType,
	}, nil)
}

// Checkout 执行一次结算，返回终态的结算记录
//
// 网关路径下 onPending 在扣款创建后、等待到账前调用一次。
func (s *SettlementService) Checkout(ctx context.Context, req SettlementRequest, onPending PaymentPendingFunc) (*Settlement, error) {
	req.PaymentType = strings.ToLower(strings.TrimSpace(req.PaymentType))
	if req.PaymentType == "" {
		req.PaymentType = constants.PaymentTypeBalance
	}
	st := newSettlement(req)

	user, err := s.price(st)
	if err != nil {
		if isRejection(err) {
			st.reject(err)
		} else {
			st.fail(err)
		}
		s.logOutcome(st)
		return st, st.Err
	}

	if st.Gateway() {
		s.payWithGateway(ctx, st, onPending)
	} else {
		s.payWithBalance(st, user)
	}
	s.logOutcome(st)
	if st.State != SettlementCompleted {
		return st, st.Err
	}
	s.notifier.SaleCreated(st.Sale.ID)
	return st, nil
}

// price Requested -> Priced：校验用户、商品、数量与库存并计算金额
func (s *SettlementService) price(st *Settlement) (*models.User, error) {
	req := st.Request
	user, err := s.userRepo.GetByID(req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsBlocked {
		return nil, ErrUserBlocked
	}
	if st.Gateway() {
		if _, err := s.gateways.Get(req.PaymentType); err != nil {
			return nil, err
		}
	}

	productID := req.ProductID
	quantity := req.Quantity
	if req.FromCart() {
		item, err := s.cartRepo.GetByUserAndID(user.ID, req.CartItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, ErrCartItemNotFound
		}
		if productID != 0 && productID != item.ProductID {
			return nil, ErrCartItemNotFound
		}
		productID = item.ProductID
		quantity = item.Quantity
		st.Reserved = item.Quantity
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.CanBePurchased {
		return nil, ErrProductNotAvailable
	}
	if !product.QuantityInRange(quantity) {
		return nil, ErrQuantityOutOfRange
	}
	if req.FromCart() {
		// 预留已占用计数，这里只确认单元仍然足够
		unsold, err := s.unitRepo.CountUnsold(product.ID)
		if err != nil {
			return nil, err
		}
		if int64(quantity) > unsold {
			return nil, ErrInsufficientStock
		}
	} else if quantity > product.StockCount {
		return nil, ErrInsufficientStock
	}

	st.Request.ProductID = product.ID
	st.Product = product
	st.Quantity = quantity
	st.UnitPrice = product.PriceAmount.Decimal.Round(2)
	st.Amount = product.PriceAmount.MulQuantity(quantity).Decimal
	if st.Gateway() && !st.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := st.transition(SettlementPriced); err != nil {
		return nil, err
	}
	return user, nil
}

// payWithBalance Priced -> Settling -> Completed
func (s *SettlementService) payWithBalance(st *Settlement, user *models.User) {
	if user.Balance.Decimal.LessThan(st.Amount) {
		st.reject(ErrInsufficientBalance)
		return
	}
	if err := st.transition(SettlementSettling); err != nil {
		st.fail(err)
		return
	}
	if err := s.settle(st); err != nil {
		st.fail(err)
		return
	}
	s.complete(st)
}

// payWithGateway Priced -> AwaitingPayment -> Settling -> Completed
func (s *SettlementService) payWithGateway(ctx context.Context, st *Settlement, onPending PaymentPendingFunc) {
	gw, err := s.gateways.Get(st.Request.PaymentType)
	if err != nil {
		st.fail(err)
		return
	}
	var cartItemID *uint
	if st.Request.FromCart() {
		id := st.Request.CartItemID
		cartItemID = &id
	}
	charge := &models.PaymentCharge{
		ChargeNo:      generateChargeNo("CH"),
		Purpose:       constants.ChargePurposePurchase,
		UserID:        st.Request.UserID,
		ProductID:     st.Product.ID,
		CartProductID: cartItemID,
		Quantity:      st.Quantity,
		Gateway:       gw.Name(),
		QuotedAmount:  models.NewMoneyFromDecimal(st.Amount),
		Status:        constants.ChargeStatusPending,
	}
	if err := s.chargeRepo.Create(charge); err != nil {
		st.fail(fmt.Errorf("%w: %v", ErrChargeCreateFailed, err))
		return
	}
	st.Charge = charge

	handle, err := gw.CreateCharge(ctx, ChargeRequest{
		Reference:   charge.ChargeNo,
		Description: st.Product.Name,
		Amount:      st.Amount,
	})
	if err != nil {
		s.updateChargeStatus(charge, constants.ChargeStatusFailed)
		st.fail(err)
		return
	}
	st.Handle = handle
	charge.ExternalID = handle.ExternalID
	charge.PayURL = handle.PayURL
	if err := s.chargeRepo.Update(charge); err != nil {
		logger.Warnw("settlement_charge_update_failed", "charge_no", charge.ChargeNo, "error", err)
	}
	if err := st.transition(SettlementAwaitingPayment); err != nil {
		st.fail(err)
		return
	}
	if onPending != nil {
		onPending(*charge)
	}

	received, err := collectPayment(ctx, gw, handle, s.pollTimeout)
	if err != nil {
		s.updateChargeStatus(charge, constants.ChargeStatusFailed)
		st.fail(err)
		return
	}
	st.Received = received
	charge.ReceivedAmount = models.NewMoneyFromDecimal(received)

	settledQuantity := settledQuantityFor(received, st.UnitPrice, st.Quantity)
	if settledQuantity == 0 {
		s.updateChargeStatus(charge, constants.ChargeStatusReconcile)
		s.recordReconciliation(charge, received, constants.ReconciliationReasonUnderpaid, "received amount below unit price")
		st.fail(fmt.Errorf("%w: received %s below unit price %s", ErrPaymentFailed, received.StringFixed(2), st.UnitPrice.StringFixed(2)))
		return
	}
	if settledQuantity < st.Quantity {
		charge.Status = constants.ChargeStatusPartial
		logger.Infow("settlement_partial_payment",
			"charge_no", charge.ChargeNo,
			"quoted", st.Amount.String(),
			"received", received.String(),
			"quantity", st.Quantity,
			"settled_quantity", settledQuantity,
		)
	} else {
		charge.Status = constants.ChargeStatusPaid
	}
	now := time.Now()
	charge.PaidAt = &now
	if err := s.chargeRepo.Update(charge); err != nil {
		logger.Warnw("settlement_charge_update_failed", "charge_no", charge.ChargeNo, "error", err)
	}
	st.Amount = received
	if settledQuantity < st.Quantity {
		// 按成交数量计价，多出的部分转人工对账
		st.Amount = st.UnitPrice.Mul(decimal.NewFromInt(int64(settledQuantity))).Round(2)
		st.Remainder = received.Sub(st.Amount)
	}
	st.Quantity = settledQuantity

	if err := st.transition(SettlementSettling); err != nil {
		st.fail(err)
		return
	}
	if err := s.settle(st); err != nil {
		charge.SaleID = nil
		s.updateChargeStatus(charge, constants.ChargeStatusReconcile)
		s.recordReconciliation(charge, received, constants.ReconciliationReasonAllocationFailed, err.Error())
		st.fail(err)
		return
	}
	s.complete(st)
}

// settle Settling：单个事务内完成库存扣减、销售记录、单元分配与扣款
func (s *SettlementService) settle(st *Settlement) error {
	var (
		sale  *models.Sale
		units []models.ProductUnit
	)
	productID := st.Product.ID
	err := s.productRepo.Transaction(func(tx *gorm.DB) error {
		if _, err := s.ledger.Lock(tx, productID); err != nil {
			return err
		}
		if st.Request.FromCart() {
			if err := s.consumeReservation(tx, st); err != nil {
				return err
			}
		} else if err := s.ledger.Decrement(tx, productID, st.Quantity); err != nil {
			return err
		}

		sale = &models.Sale{
			SaleNo:      generateSaleNo(),
			UserID:      st.Request.UserID,
			ProductID:   productID,
			Amount:      models.NewMoneyFromDecimal(st.Amount),
			Quantity:    st.Quantity,
			PaymentType: st.Request.PaymentType,
			CreatedAt:   time.Now(),
		}
		if st.Charge != nil {
			chargeID := st.Charge.ID
			sale.ChargeID = &chargeID
		}
		if err := s.saleRepo.WithTx(tx).Create(sale); err != nil {
			return fmt.Errorf("%w: %v", ErrSaleCreateFailed, err)
		}

		var err error
		units, err = s.pool.Allocate(tx, productID, sale.ID, st.Quantity)
		if err != nil {
			return err
		}
		if len(units) != sale.Quantity {
			return ErrUnitAllocationIncomplete
		}

		if st.Charge == nil {
			if st.Amount.IsPositive() {
				saleID := sale.ID
				if _, err := s.wallet.DebitInTx(tx, st.Request.UserID, st.Amount, &saleID, "sale:"+sale.SaleNo); err != nil {
					return err
				}
			}
			return nil
		}

		saleID := sale.ID
		st.Charge.SaleID = &saleID
		st.Charge.Status = constants.ChargeStatusSettled
		if err := s.chargeRepo.WithTx(tx).Update(st.Charge); err != nil {
			return err
		}
		if st.Remainder.IsPositive() {
			if s.recon == nil {
				return fmt.Errorf("%w: reconciliation unavailable for remainder %s", ErrSettlementFailed, st.Remainder.StringFixed(2))
			}
			remark := fmt.Sprintf("sale %s settled %d of %d", sale.SaleNo, st.Quantity, st.Charge.Quantity)
			if _, err := s.recon.RecordInTx(tx, st.Charge, models.NewMoneyFromDecimal(st.Remainder), constants.ReconciliationReasonPartialRemainder, remark); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return normalizeSettleError(err)
	}
	sale.Product = st.Product
	st.Sale = sale
	st.Units = units
	return nil
}

// consumeReservation 删除购物车预留，成交数量与预留数量的差额回补或补扣
func (s *SettlementService) consumeReservation(tx *gorm.DB, st *Settlement) error {
	cartRepo := s.cartRepo.WithTx(tx)
	item, err := cartRepo.GetByUserAndIDForUpdate(st.Request.UserID, st.Request.CartItemID)
	if err != nil {
		return err
	}
	if item == nil || item.ProductID != st.Product.ID {
		return ErrCartItemNotFound
	}
	affected, err := cartRepo.DeleteByID(item.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	switch diff := item.Quantity - st.Quantity; {
	case diff > 0:
		return s.ledger.Increment(tx, item.ProductID, diff)
	case diff < 0:
		// 报价后预留被调小，不足部分从可售库存补扣
		return s.ledger.Decrement(tx, item.ProductID, -diff)
	}
	return nil
}

func (s *SettlementService) complete(st *Settlement) {
	if err := st.transition(SettlementCompleted); err != nil {
		st.fail(err)
	}
}

func (s *SettlementService) updateChargeStatus(charge *models.PaymentCharge, status string) {
	charge.Status = status
	if err := s.chargeRepo.Update(charge); err != nil {
		logger.Warnw("settlement_charge_status_update_failed",
			"charge_no", charge.ChargeNo,
			"status", status,
			"error", err,
		)
	}
}

func (s *SettlementService) recordReconciliation(charge *models.PaymentCharge, amount decimal.Decimal, reason, remark string) {
	if s.recon == nil {
		logger.Errorw("settlement_reconciliation_unavailable", "charge_no", charge.ChargeNo, "amount", amount.String(), "reason", reason)
		return
	}
	if _, err := s.recon.Record(charge, models.NewMoneyFromDecimal(amount), reason, remark); err != nil {
		logger.Errorw("settlement_reconciliation_record_failed",
			"charge_no", charge.ChargeNo,
			"amount", amount.String(),
			"reason", reason,
			"error", err,
		)
	}
}

func (s *SettlementService) logOutcome(st *Settlement) {
	fields := []interface{}{
		"user_id", st.Request.UserID,
		"product_id", st.Request.ProductID,
		"cart_item_id", st.Request.CartItemID,
		"payment_type", st.Request.PaymentType,
		"quantity", st.Quantity,
		"amount", st.Amount.String(),
		"state", st.State.String(),
	}
	switch st.State {
	case SettlementCompleted:
		fields = append(fields, "sale_id", st.Sale.ID, "sale_no", st.Sale.SaleNo)
		logger.Infow("settlement_completed", fields...)
	case SettlementRejected:
		logger.Infow("settlement_rejected", append(fields, "error", st.Err)...)
	default:
		logger.Warnw("settlement_failed", append(fields, "error", st.Err)...)
	}
}

// settledQuantityFor 按实收金额折算可成交数量，不超过申请数量
func settledQuantityFor(received, unitPrice decimal.Decimal, quantity int) int {
	if !received.IsPositive() || quantity <= 0 {
		return 0
	}
	if !unitPrice.IsPositive() {
		return quantity
	}
	affordable := received.Div(unitPrice).Floor().IntPart()
	if affordable >= int64(quantity) {
		return quantity
	}
	return int(affordable)
}

var rejectionErrors = []error{
	ErrUserNotFound,
	ErrUserBlocked,
	ErrGatewayNotSupported,
	ErrCartItemNotFound,
	ErrProductNotAvailable,
	ErrQuantityOutOfRange,
	ErrInsufficientStock,
	ErrInsufficientBalance,
	ErrInvalidAmount,
}

// isRejection 判断是否为请求本身不满足条件（结算以 Rejected 结束）
func isRejection(err error) bool {
	for _, target := range rejectionErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var settleKnownErrors = []error{
	ErrInsufficientStock,
	ErrInsufficientBalance,
	ErrCartItemNotFound,
	ErrProductNotFound,
	ErrUserNotFound,
	ErrSaleCreateFailed,
	ErrUnitAllocationIncomplete,
	ErrStockLedgerUpdateFailed,
	ErrBalanceUpdateFailed,
	ErrBalanceTxnCreateFailed,
}

func normalizeSettleError(err error) error {
	for _, known := range settleKnownErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrSettlementFailed, err)
}
