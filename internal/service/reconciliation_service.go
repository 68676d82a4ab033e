package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/unitshop/internal/constants"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"gorm.io/gorm"
)

// ReconciliationService 人工对账服务
//
// 网关已收款但结算未完成的资金记为待处理条目，由管理员退回余额或驳回。
type ReconciliationService struct {
	repo     repository.ReconciliationRepository
	userRepo repository.UserRepository
	wallet   *WalletService
}

// NewReconciliationService 创建人工对账服务
func NewReconciliationService(repo repository.ReconciliationRepository, userRepo repository.UserRepository, wallet *WalletService) *ReconciliationService {
	return &ReconciliationService{
		repo:     repo,
		userRepo: userRepo,
		wallet:   wallet,
	}
}

// Record 记录待处理条目
func (s *ReconciliationService) Record(charge *models.PaymentCharge, amount models.Money, reason, remark string) (*models.Reconciliation, error) {
	return recordReconciliation(s.repo, charge, amount, reason, remark)
}

// RecordInTx 在调用方事务内记录待处理条目
func (s *ReconciliationService) RecordInTx(tx *gorm.DB, charge *models.PaymentCharge, amount models.Money, reason, remark string) (*models.Reconciliation, error) {
	return recordReconciliation(s.repo.WithTx(tx), charge, amount, reason, remark)
}

func recordReconciliation(repo repository.ReconciliationRepository, charge *models.PaymentCharge, amount models.Money, reason, remark string) (*models.Reconciliation, error) {
	if charge == nil || charge.ID == 0 {
		return nil, ErrChargeNotFound
	}
	item := &models.Reconciliation{
		ChargeID:  charge.ID,
		UserID:    charge.UserID,
		ProductID: charge.ProductID,
		Amount:    amount,
		Reason:    reason,
		Status:    constants.ReconciliationStatusOpen,
		Remark:    truncateRemark(remark),
	}
	if err := repo.Create(item); err != nil {
		return nil, err
	}
	logger.Warnw("reconciliation_recorded",
		"reconciliation_id", item.ID,
		"charge_no", charge.ChargeNo,
		"user_id", charge.UserID,
		"amount", amount.String(),
		"reason", reason,
	)
	return item, nil
}

// List 分页查询
func (s *ReconciliationService) List(filter repository.ReconciliationListFilter) ([]models.Reconciliation, int64, error) {
	return s.repo.List(filter)
}

// RefundToBalance 将待处理金额退回用户余额
func (s *ReconciliationService) RefundToBalance(adminID, id uint, remark string) (*models.Reconciliation, error) {
	var result *models.Reconciliation
	err := s.userRepo.Transaction(func(tx *gorm.DB) error {
		item, err := s.lockOpen(tx, id)
		if err != nil {
			return err
		}
		if item.Amount.IsPositive() {
			if _, err := s.wallet.CreditInTx(tx, BalanceChangeInput{
				UserID:    item.UserID,
				Delta:     item.Amount.Decimal,
				TxnType:   constants.BalanceTxnTypeReconciliationRefund,
				Reference: fmt.Sprintf("reconciliation:%d", item.ID),
				Remark:    "reconciliation refund",
			}); err != nil {
				return err
			}
		}
		result, err = s.resolve(tx, item, adminID, constants.ReconciliationStatusRefunded, remark)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("reconciliation_refunded", "reconciliation_id", id, "admin_id", adminID, "amount", result.Amount.String())
	return result, nil
}

// Dismiss 驳回（线下已处理等情况）
func (s *ReconciliationService) Dismiss(adminID, id uint, remark string) (*models.Reconciliation, error) {
	var result *models.Reconciliation
	err := s.userRepo.Transaction(func(tx *gorm.DB) error {
		item, err := s.lockOpen(tx, id)
		if err != nil {
			return err
		}
		result, err = s.resolve(tx, item, adminID, constants.ReconciliationStatusDismissed, remark)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("reconciliation_dismissed", "reconciliation_id", id, "admin_id", adminID)
	return result, nil
}

func (s *ReconciliationService) lockOpen(tx *gorm.DB, id uint) (*models.Reconciliation, error) {
	item, err := s.repo.WithTx(tx).GetByIDForUpdate(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrReconciliationNotFound
	}
	if item.Status != constants.ReconciliationStatusOpen {
		return nil, ErrReconciliationResolved
	}
	return item, nil
}

func (s *ReconciliationService) resolve(tx *gorm.DB, item *models.Reconciliation, adminID uint, status, remark string) (*models.Reconciliation, error) {
	now := time.Now()
	item.Status = status
	item.ResolvedAt = &now
	if adminID != 0 {
		item.ResolvedBy = &adminID
	}
	if remark = strings.TrimSpace(remark); remark != "" {
		item.Remark = truncateRemark(remark)
	}
	if err := s.repo.WithTx(tx).Update(item); err != nil {
		return nil, err
	}
	return item, nil
}

func truncateRemark(remark string) string {
	remark = strings.TrimSpace(remark)
	runes := []rune(remark)
	if len(runes) > 255 {
		return string(runes[:255])
	}
	return remark
}
