package service

import (
	"context"
	"strings"
	"time"

	"github.com/unitshop/internal/constants"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentPendingFunc 网关扣款创建成功后回调，参数为扣款记录快照
type PaymentPendingFunc func(charge models.PaymentCharge)

// WalletService 余额服务
type WalletService struct {
	userRepo    repository.UserRepository
	balanceRepo repository.BalanceRepository
	chargeRepo  repository.ChargeRepository
	reconRepo   repository.ReconciliationRepository
	gateways    *GatewayRegistry
	bonusSvc    *BonusService
	notifier    Notifier
	pollTimeout time.Duration
}

// NewWalletService 创建余额服务
func NewWalletService(
	userRepo repository.UserRepository,
	balanceRepo repository.BalanceRepository,
	chargeRepo repository.ChargeRepository,
	reconRepo repository.ReconciliationRepository,
	gateways *GatewayRegistry,
	bonusSvc *BonusService,
	notifier Notifier,
	pollTimeout time.Duration,
) *WalletService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &WalletService{
		userRepo:    userRepo,
		balanceRepo: balanceRepo,
		chargeRepo:  chargeRepo,
		reconRepo:   reconRepo,
		gateways:    gateways,
		bonusSvc:    bonusSvc,
		notifier:    notifier,
		pollTimeout: pollTimeout,
	}
}

// BalanceChangeInput 事务内余额变更输入
type BalanceChangeInput struct {
	UserID    uint
	Delta     decimal.Decimal // 正数入账，负数出账
	TxnType   string
	Reference string
	SaleID    *uint
	Remark    string
}

// TopUpInput 充值输入
type TopUpInput struct {
	UserID      uint
	Amount      decimal.Decimal
	PaymentType string
	OnPending   PaymentPendingFunc
}

// TopUpResult 充值结果
type TopUpResult struct {
	Charge   *models.PaymentCharge `json:"charge"`
	Deposit  *models.Deposit       `json:"deposit"`
	Received models.Money          `json:"received"`
	Bonus    models.Money          `json:"bonus"`
	Balance  models.Money          `json:"balance"`
}

// CreditTopUpInput 充值入账输入
type CreditTopUpInput struct {
	UserID      uint
	Amount      decimal.Decimal
	Bonus       *models.TopUpBonus
	PaymentType string
	Reference   string
	ChargeID    *uint
}

// GetBalance 获取用户余额
func (s *WalletService) GetBalance(userID uint) (models.Money, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return models.ZeroMoney(), err
	}
	if user == nil {
		return models.ZeroMoney(), ErrUserNotFound
	}
	return user.Balance, nil
}

// ListTransactions 分页查询余额流水
func (s *WalletService) ListTransactions(filter repository.BalanceTransactionListFilter) ([]models.BalanceTransaction, int64, error) {
	return s.balanceRepo.ListTransactions(filter)
}

// ListDeposits 分页查询充值记录
func (s *WalletService) ListDeposits(userID uint, page, pageSize int) ([]models.Deposit, int64, error) {
	return s.balanceRepo.ListDepositsByUser(userID, page, pageSize)
}

// DebitInTx 在调用方事务内扣减余额，余额不足返回 ErrInsufficientBalance
func (s *WalletService) DebitInTx(tx *gorm.DB, userID uint, amount decimal.Decimal, saleID *uint, reference string) (*models.BalanceTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	_, txn, err := s.changeBalanceInTx(tx, BalanceChangeInput{
		UserID:    userID,
		Delta:     amount.Neg(),
		TxnType:   constants.BalanceTxnTypeSaleDebit,
		Reference: reference,
		SaleID:    saleID,
		Remark:    "purchase",
	})
	return txn, err
}

// CreditInTx 在调用方事务内入账，同一参考号只入账一次
func (s *WalletService) CreditInTx(tx *gorm.DB, input BalanceChangeInput) (*models.BalanceTransaction, error) {
	if !input.Delta.IsPositive() {
		return nil, ErrInvalidAmount
	}
	reference := strings.TrimSpace(input.Reference)
	if reference != "" {
		exists, err := s.balanceRepo.WithTx(tx).GetTransactionByReference(reference)
		if err != nil {
			return nil, err
		}
		if exists != nil {
			return exists, nil
		}
	}
	_, txn, err := s.changeBalanceInTx(tx, input)
	return txn, err
}

// CreditTopUp 充值入账：实收金额与赠送金额分别记流水，并生成充值记录
//
// 同一参考号重复调用时返回已有充值记录。
func (s *WalletService) CreditTopUp(input CreditTopUpInput) (*models.Deposit, error) {
	var deposit *models.Deposit
	err := s.userRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		deposit, err = s.creditTopUpInTx(tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deposit, nil
}

func (s *WalletService) creditTopUpInTx(tx *gorm.DB, input CreditTopUpInput) (*models.Deposit, error) {
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		reference = "topup:" + uuid.NewString()
	}
	balanceRepo := s.balanceRepo.WithTx(tx)
	exists, err := balanceRepo.GetDepositByReference(reference)
	if err != nil {
		return nil, err
	}
	if exists != nil {
		logger.Infow("top_up_duplicate_reference", "user_id", input.UserID, "reference", reference, "deposit_id", exists.ID)
		return exists, nil
	}

	if _, err := s.CreditInTx(tx, BalanceChangeInput{
		UserID:    input.UserID,
		Delta:     amount,
		TxnType:   constants.BalanceTxnTypeTopUp,
		Reference: reference,
		Remark:    input.PaymentType,
	}); err != nil {
		return nil, err
	}

	bonusAmount := BonusAmount(amount, input.Bonus)
	var bonusID *uint
	if bonusAmount.IsPositive() {
		id := input.Bonus.ID
		bonusID = &id
		if _, err := s.CreditInTx(tx, BalanceChangeInput{
			UserID:    input.UserID,
			Delta:     bonusAmount,
			TxnType:   constants.BalanceTxnTypeTopUpBonus,
			Reference: reference + ":bonus",
			Remark:    input.Bonus.BonusPercentage.String() + "%",
		}); err != nil {
			return nil, err
		}
	}

	deposit := &models.Deposit{
		UserID:      input.UserID,
		ChargeID:    input.ChargeID,
		PaymentType: input.PaymentType,
		Reference:   reference,
		Amount:      models.NewMoneyFromDecimal(amount),
		BonusAmount: models.NewMoneyFromDecimal(bonusAmount),
		BonusID:     bonusID,
		CreatedAt:   time.Now(),
	}
	if err := balanceRepo.CreateDeposit(deposit); err != nil {
		return nil, ErrBalanceTxnCreateFailed
	}
	return deposit, nil
}

// TopUp 通过外部网关充值：创建扣款、等待到账，按实收金额入账并计算赠送
func (s *WalletService) TopUp(ctx context.Context, input TopUpInput) (*TopUpResult, error) {
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsBlocked {
		return nil, ErrUserBlocked
	}
	gw, err := s.gateways.Get(input.PaymentType)
	if err != nil {
		return nil, err
	}

	charge := &models.PaymentCharge{
		ChargeNo:     generateChargeNo("TU"),
		Purpose:      constants.ChargePurposeTopUp,
		UserID:       user.ID,
		Gateway:      gw.Name(),
		QuotedAmount: models.NewMoneyFromDecimal(amount),
		Status:       constants.ChargeStatusPending,
	}
	if err := s.chargeRepo.Create(charge); err != nil {
		return nil, ErrChargeCreateFailed
	}

	handle, err := gw.CreateCharge(ctx, ChargeRequest{
		Reference:   charge.ChargeNo,
		Description: "Balance top-up",
		Amount:      amount,
	})
	if err != nil {
		s.markChargeFailed(charge)
		logger.Warnw("top_up_create_charge_failed", "user_id", user.ID, "charge_no", charge.ChargeNo, "error", err)
		return nil, err
	}
	charge.ExternalID = handle.ExternalID
	charge.PayURL = handle.PayURL
	if err := s.chargeRepo.Update(charge); err != nil {
		logger.Warnw("top_up_charge_update_failed", "charge_no", charge.ChargeNo, "error", err)
	}
	if input.OnPending != nil {
		input.OnPending(*charge)
	}

	received, err := collectPayment(ctx, gw, handle, s.pollTimeout)
	if err != nil {
		s.markChargeFailed(charge)
		logger.Infow("top_up_payment_failed", "user_id", user.ID, "charge_no", charge.ChargeNo, "error", err)
		return nil, err
	}

	bonus, err := s.resolveBonus(ctx, received)
	if err != nil {
		logger.Warnw("top_up_bonus_resolve_failed", "user_id", user.ID, "charge_no", charge.ChargeNo, "error", err)
		bonus = nil
	}

	var deposit *models.Deposit
	err = s.userRepo.Transaction(func(tx *gorm.DB) error {
		chargeID := charge.ID
		deposit, err = s.creditTopUpInTx(tx, CreditTopUpInput{
			UserID:      user.ID,
			Amount:      received,
			Bonus:       bonus,
			PaymentType: gw.Name(),
			Reference:   "topup:" + charge.ChargeNo,
			ChargeID:    &chargeID,
		})
		if err != nil {
			return err
		}
		now := time.Now()
		charge.ReceivedAmount = models.NewMoneyFromDecimal(received)
		charge.Status = constants.ChargeStatusSettled
		charge.PaidAt = &now
		return s.chargeRepo.WithTx(tx).Update(charge)
	})
	if err != nil {
		logger.Errorw("top_up_credit_failed",
			"user_id", user.ID,
			"charge_no", charge.ChargeNo,
			"received", received.String(),
			"error", err,
		)
		s.reconcileCapturedTopUp(charge, received, err)
		return nil, err
	}

	balance, err := s.GetBalance(user.ID)
	if err != nil {
		logger.Warnw("top_up_balance_reload_failed", "user_id", user.ID, "error", err)
	}
	s.notifier.BalanceToppedUp(deposit.ID)
	logger.Infow("top_up_completed",
		"user_id", user.ID,
		"charge_no", charge.ChargeNo,
		"quoted", amount.String(),
		"received", received.String(),
		"bonus", deposit.BonusAmount.String(),
	)
	return &TopUpResult{
		Charge:   charge,
		Deposit:  deposit,
		Received: deposit.Amount,
		Bonus:    deposit.BonusAmount,
		Balance:  balance,
	}, nil
}

// AdminAdjust 管理员调整余额，调整后余额不能为负
func (s *WalletService) AdminAdjust(adminID, userID uint, delta decimal.Decimal, remark string) (*models.BalanceTransaction, error) {
	delta = delta.Round(2)
	if delta.IsZero() {
		return nil, ErrInvalidAmount
	}
	remark = strings.TrimSpace(remark)
	if remark == "" {
		remark = "admin adjust"
	}
	var result *models.BalanceTransaction
	err := s.userRepo.Transaction(func(tx *gorm.DB) error {
		_, txn, err := s.changeBalanceInTx(tx, BalanceChangeInput{
			UserID:    userID,
			Delta:     delta,
			TxnType:   constants.BalanceTxnTypeAdminAdjust,
			Reference: "admin_adjust:" + uuid.NewString(),
			Remark:    remark,
		})
		result = txn
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("balance_admin_adjusted", "admin_id", adminID, "user_id", userID, "delta", delta.String())
	return result, nil
}

func (s *WalletService) resolveBonus(ctx context.Context, amount decimal.Decimal) (*models.TopUpBonus, error) {
	if s.bonusSvc == nil {
		return nil, nil
	}
	return s.bonusSvc.Resolve(ctx, amount)
}

// reconcileCapturedTopUp 到账后入账失败，资金转人工对账
func (s *WalletService) reconcileCapturedTopUp(charge *models.PaymentCharge, received decimal.Decimal, cause error) {
	charge.ReceivedAmount = models.NewMoneyFromDecimal(received)
	charge.Status = constants.ChargeStatusReconcile
	if charge.PaidAt == nil {
		now := time.Now()
		charge.PaidAt = &now
	}
	if err := s.chargeRepo.Update(charge); err != nil {
		logger.Warnw("top_up_charge_reconcile_mark_failed", "charge_no", charge.ChargeNo, "error", err)
	}
	if s.reconRepo == nil {
		logger.Errorw("top_up_reconciliation_unavailable", "charge_no", charge.ChargeNo, "received", received.String())
		return
	}
	if _, err := recordReconciliation(s.reconRepo, charge, models.NewMoneyFromDecimal(received), constants.ReconciliationReasonCreditFailed, cause.Error()); err != nil {
		logger.Errorw("top_up_reconciliation_record_failed",
			"charge_no", charge.ChargeNo,
			"received", received.String(),
			"error", err,
		)
	}
}

func (s *WalletService) markChargeFailed(charge *models.PaymentCharge) {
	charge.Status = constants.ChargeStatusFailed
	if err := s.chargeRepo.Update(charge); err != nil {
		logger.Warnw("payment_charge_mark_failed_error", "charge_no", charge.ChargeNo, "error", err)
	}
}

func (s *WalletService) changeBalanceInTx(tx *gorm.DB, input BalanceChangeInput) (*models.User, *models.BalanceTransaction, error) {
	if tx == nil {
		return nil, nil, ErrBalanceUpdateFailed
	}
	userRepo := s.userRepo.WithTx(tx)
	user, err := userRepo.GetByIDForUpdate(input.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	before := user.Balance.Decimal.Round(2)
	after := before.Add(input.Delta).Round(2)
	if after.IsNegative() {
		return nil, nil, ErrInsufficientBalance
	}
	direction := constants.BalanceTxnDirectionIn
	amount := input.Delta.Round(2)
	if input.Delta.IsNegative() {
		direction = constants.BalanceTxnDirectionOut
		amount = input.Delta.Abs().Round(2)
	}

	user.Balance = models.NewMoneyFromDecimal(after)
	if err := userRepo.UpdateBalance(user.ID, user.Balance); err != nil {
		return nil, nil, ErrBalanceUpdateFailed
	}

	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		reference = input.TxnType + ":" + uuid.NewString()
	}
	txn := &models.BalanceTransaction{
		UserID:        user.ID,
		Type:          input.TxnType,
		Direction:     direction,
		Amount:        models.NewMoneyFromDecimal(amount),
		BalanceBefore: models.NewMoneyFromDecimal(before),
		BalanceAfter:  models.NewMoneyFromDecimal(after),
		Reference:     reference,
		SaleID:        input.SaleID,
		Remark:        input.Remark,
		CreatedAt:     time.Now(),
	}
	if err := s.balanceRepo.WithTx(tx).CreateTransaction(txn); err != nil {
		return nil, nil, ErrBalanceTxnCreateFailed
	}
	return user, txn, nil
}
