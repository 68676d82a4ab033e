package service

import (
	"fmt"

	"github.com/unitshop/internal/constants"
	"github.com/unitshop/internal/models"

	"github.com/shopspring/decimal"
)

// SettlementState 结算状态
type SettlementState int

const (
	SettlementRequested SettlementState = iota
	SettlementPriced
	SettlementAwaitingPayment
	SettlementSettling
	SettlementCompleted
	SettlementRejected
	SettlementFailed
)

var settlementStateNames = map[SettlementState]string{
	SettlementRequested:       "requested",
	SettlementPriced:          "priced",
	SettlementAwaitingPayment: "awaiting_payment",
	SettlementSettling:        "settling",
	SettlementCompleted:       "completed",
	SettlementRejected:        "rejected",
	SettlementFailed:          "failed",
}

// String 状态名称
func (s SettlementState) String() string {
	if name, ok := settlementStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// MarshalText 以名称输出
func (s SettlementState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal 是否为终态
func (s SettlementState) Terminal() bool {
	return s == SettlementCompleted || s == SettlementRejected || s == SettlementFailed
}

var settlementTransitions = map[SettlementState][]SettlementState{
	SettlementRequested:       {SettlementPriced, SettlementRejected, SettlementFailed},
	SettlementPriced:          {SettlementSettling, SettlementAwaitingPayment, SettlementRejected, SettlementFailed},
	SettlementAwaitingPayment: {SettlementSettling, SettlementFailed},
	SettlementSettling:        {SettlementCompleted, SettlementFailed},
}

// CanTransition 判断状态迁移是否合法
func CanTransition(from, to SettlementState) bool {
	for _, next := range settlementTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SettlementRequest 结算请求
type SettlementRequest struct {
	UserID      uint
	ProductID   uint
	Quantity    int
	CartItemID  uint // 非 0 时从购物车预留结算
	PaymentType string
}

// FromCart 是否为购物车结算
func (r SettlementRequest) FromCart() bool {
	return r.CartItemID != 0
}

// Settlement 单次结算尝试，每次请求构造一次并贯穿整个流程
type Settlement struct {
	Request   SettlementRequest
	State     SettlementState
	History   []SettlementState
	Product   *models.Product
	UnitPrice decimal.Decimal
	Quantity  int             // 最终成交数量
	Reserved  int             // 购物车预留数量
	Amount    decimal.Decimal // 报价或成交金额
	Remainder decimal.Decimal // 部分到账时未能成交的余款
	Charge    *models.PaymentCharge
	Handle    *ChargeHandle
	Received  decimal.Decimal
	Sale      *models.Sale
	Units     []models.ProductUnit
	Err       error
}

func newSettlement(req SettlementRequest) *Settlement {
	return &Settlement{
		Request: req,
		State:   SettlementRequested,
		History: []SettlementState{SettlementRequested},
	}
}

// transition 迁移状态，非法迁移返回 ErrIllegalStateTransition
func (s *Settlement) transition(to SettlementState) error {
	if !CanTransition(s.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalStateTransition, s.State, to)
	}
	s.State = to
	s.History = append(s.History, to)
	return nil
}

// reject 以校验失败结束
func (s *Settlement) reject(err error) *Settlement {
	s.Err = err
	if terr := s.transition(SettlementRejected); terr != nil {
		s.Err = fmt.Errorf("%w (%v)", err, terr)
	}
	return s
}

// fail 以执行失败结束
func (s *Settlement) fail(err error) *Settlement {
	s.Err = err
	if terr := s.transition(SettlementFailed); terr != nil {
		s.Err = fmt.Errorf("%w (%v)", err, terr)
	}
	return s
}

// Gateway 是否走外部网关
func (s *Settlement) Gateway() bool {
	return s.Request.PaymentType != "" && s.Request.PaymentType != constants.PaymentTypeBalance
}
