package service

import (
	"context"
	"strings"
	"time"

	"github.com/unitshop/internal/constants"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	chargeRecoveryBatchSize = 100
	chargeRecoveryGrace     = 5 * time.Minute
)

var recoverableChargeStatuses = []string{
	constants.ChargeStatusPending,
	constants.ChargeStatusPaid,
	constants.ChargeStatusPartial,
}

// ChargeRecoveryResult 一次回收的统计
type ChargeRecoveryResult struct {
	Scanned    int `json:"scanned"`
	Reconciled int `json:"reconciled"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

type recoveryOutcome int

const (
	recoverySkipped recoveryOutcome = iota
	recoveryReconciled
	recoveryFailed
)

// ChargeRecoveryService 回收等待到账期间因进程退出而遗留的扣款
//
// 超过轮询时限仍未终结的扣款再查询一次到账：有到账转人工对账，否则标记失败。
type ChargeRecoveryService struct {
	chargeRepo repository.ChargeRepository
	reconRepo  repository.ReconciliationRepository
	gateways   *GatewayRegistry
	staleAfter time.Duration
}

// NewChargeRecoveryService 创建扣款回收服务
func NewChargeRecoveryService(
	chargeRepo repository.ChargeRepository,
	reconRepo repository.ReconciliationRepository,
	gateways *GatewayRegistry,
	pollTimeout time.Duration,
) *ChargeRecoveryService {
	if pollTimeout <= 0 {
		pollTimeout = 15 * time.Minute
	}
	return &ChargeRecoveryService{
		chargeRepo: chargeRepo,
		reconRepo:  reconRepo,
		gateways:   gateways,
		staleAfter: pollTimeout + gatewayFallbackTimeout + chargeRecoveryGrace,
	}
}

// StaleAfter 扣款最后更新超过该时长视为遗留
func (s *ChargeRecoveryService) StaleAfter() time.Duration {
	return s.staleAfter
}

// RecoverStale 处理 now 之前已遗留的全部扣款
func (s *ChargeRecoveryService) RecoverStale(ctx context.Context, now time.Time) (ChargeRecoveryResult, error) {
	var result ChargeRecoveryResult
	before := now.Add(-s.staleAfter)
	var afterID uint
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		charges, err := s.chargeRepo.ListStale(recoverableChargeStatuses, before, afterID, chargeRecoveryBatchSize)
		if err != nil {
			return result, err
		}
		for i := range charges {
			charge := &charges[i]
			afterID = charge.ID
			result.Scanned++
			switch s.recoverCharge(ctx, charge) {
			case recoveryReconciled:
				result.Reconciled++
			case recoveryFailed:
				result.Failed++
			default:
				result.Skipped++
			}
		}
		if len(charges) < chargeRecoveryBatchSize {
			return result, nil
		}
	}
}

func (s *ChargeRecoveryService) recoverCharge(ctx context.Context, charge *models.PaymentCharge) recoveryOutcome {
	received := charge.ReceivedAmount.Decimal
	if charge.Status == constants.ChargeStatusPending {
		if strings.TrimSpace(charge.ExternalID) == "" {
			// 网关未返回交易号，无法查询到账
			return s.markFailed(charge)
		}
		gw, err := s.gateways.Get(charge.Gateway)
		if err != nil {
			logger.Warnw("charge_recovery_gateway_missing", "charge_no", charge.ChargeNo, "gateway", charge.Gateway)
			return recoverySkipped
		}
		fetchCtx, cancel := context.WithTimeout(ctx, gatewayFallbackTimeout)
		amount, err := gw.FetchReceived(fetchCtx, &ChargeHandle{
			Gateway:    gw.Name(),
			Reference:  charge.ChargeNo,
			ExternalID: charge.ExternalID,
			PayURL:     charge.PayURL,
			Amount:     charge.QuotedAmount.Decimal,
		})
		cancel()
		if err != nil {
			logger.Warnw("charge_recovery_fetch_failed", "charge_no", charge.ChargeNo, "error", err)
			return recoverySkipped
		}
		received = amount.Round(2)
	}
	if !received.IsPositive() {
		return s.markFailed(charge)
	}
	return s.reconcile(charge, received)
}

func (s *ChargeRecoveryService) markFailed(charge *models.PaymentCharge) recoveryOutcome {
	updated, err := s.chargeRepo.UpdateStatusIf(charge.ID, recoverableChargeStatuses, map[string]interface{}{
		"status": constants.ChargeStatusFailed,
	})
	if err != nil {
		logger.Warnw("charge_recovery_mark_failed_error", "charge_no", charge.ChargeNo, "error", err)
		return recoverySkipped
	}
	if !updated {
		return recoverySkipped
	}
	logger.Infow("charge_recovery_marked_failed", "charge_no", charge.ChargeNo, "status", charge.Status)
	return recoveryFailed
}

func (s *ChargeRecoveryService) reconcile(charge *models.PaymentCharge, received decimal.Decimal) recoveryOutcome {
	money := models.NewMoneyFromDecimal(received)
	claimed := false
	err := s.chargeRepo.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updated, err := s.chargeRepo.WithTx(tx).UpdateStatusIf(charge.ID, recoverableChargeStatuses, map[string]interface{}{
			"status":          constants.ChargeStatusReconcile,
			"received_amount": money,
			"paid_at":         now,
		})
		if err != nil || !updated {
			return err
		}
		claimed = true
		_, err = recordReconciliation(s.reconRepo.WithTx(tx), charge, money, constants.ReconciliationReasonInterrupted,
			"recovered "+charge.Purpose+" charge left in status "+charge.Status)
		return err
	})
	if err != nil {
		logger.Errorw("charge_recovery_reconcile_failed", "charge_no", charge.ChargeNo, "received", received.String(), "error", err)
		return recoverySkipped
	}
	if !claimed {
		return recoverySkipped
	}
	return recoveryReconciled
}
