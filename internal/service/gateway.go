package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/unitshop/internal/config"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/payment/cryptogate"

	"github.com/shopspring/decimal"
)

const gatewayFallbackTimeout = 30 * time.Second

// ChargeRequest 创建网关扣款请求
type ChargeRequest struct {
	Reference   string
	Description string
	Amount      decimal.Decimal
}

// ChargeHandle 网关扣款句柄
type ChargeHandle struct {
	Gateway    string
	Reference  string
	ExternalID string
	PayURL     string
	Amount     decimal.Decimal
}

// ChargeStatus 轮询结果
type ChargeStatus struct {
	Paid           bool
	ReceivedAmount decimal.Decimal
}

// PaymentGateway 外部支付网关
type PaymentGateway interface {
	Name() string
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeHandle, error)
	// PollCompletion 在 timeout 内等待支付完成，超时返回未支付而非错误
	PollCompletion(ctx context.Context, handle *ChargeHandle, timeout time.Duration) (*ChargeStatus, error)
	// FetchReceived 查询一次实际到账金额
	FetchReceived(ctx context.Context, handle *ChargeHandle) (decimal.Decimal, error)
}

// GatewayRegistry 按支付方式名称查找网关
type GatewayRegistry struct {
	gateways map[string]PaymentGateway
}

// NewGatewayRegistry 创建网关注册表
func NewGatewayRegistry(gateways ...PaymentGateway) *GatewayRegistry {
	registry := &GatewayRegistry{gateways: make(map[string]PaymentGateway)}
	for _, gw := range gateways {
		registry.Register(gw)
	}
	return registry
}

// NewGatewayRegistryFromConfig 根据配置构建网关注册表，配置无效的网关跳过
func NewGatewayRegistryFromConfig(items []config.GatewayConfig, currency string, pollInterval time.Duration) *GatewayRegistry {
	registry := NewGatewayRegistry()
	for _, item := range items {
		if !item.Enabled {
			continue
		}
		name := normalizeGatewayName(item.Name)
		if name == "" || name == "balance" {
			logger.Warnw("payment_gateway_name_invalid", "name", item.Name)
			continue
		}
		client, err := cryptogate.New(cryptogate.Config{
			GatewayURL:  item.BaseURL,
			AuthToken:   item.AuthToken,
			TradeType:   item.TradeType,
			Fiat:        currency,
			NotifyURL:   item.NotifyURL,
			RedirectURL: item.RedirectURL,
			Timeout:     time.Duration(item.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			logger.Warnw("payment_gateway_config_invalid", "name", name, "error", err)
			continue
		}
		registry.Register(NewCryptoGateway(name, client, pollInterval))
	}
	return registry
}

// Register 注册网关
func (r *GatewayRegistry) Register(gw PaymentGateway) {
	if gw == nil {
		return
	}
	r.gateways[normalizeGatewayName(gw.Name())] = gw
}

// Get 获取网关
func (r *GatewayRegistry) Get(name string) (PaymentGateway, error) {
	if r == nil {
		return nil, ErrGatewayNotSupported
	}
	gw, ok := r.gateways[normalizeGatewayName(name)]
	if !ok {
		return nil, ErrGatewayNotSupported
	}
	return gw, nil
}

// Names 已注册网关名称
func (r *GatewayRegistry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeGatewayName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// collectPayment 等待网关到账：一次带超时的轮询，未确认时做且仅做一次到账查询
//
// 返回实际到账金额；到账为 0 时返回 ErrPaymentFailed。
func collectPayment(ctx context.Context, gw PaymentGateway, handle *ChargeHandle, timeout time.Duration) (decimal.Decimal, error) {
	status, err := gw.PollCompletion(ctx, handle, timeout)
	if err == nil && status != nil && status.Paid {
		received := status.ReceivedAmount
		if !received.IsPositive() {
			received = handle.Amount
		}
		return received.Round(2), nil
	}
	if err != nil {
		logger.Warnw("payment_poll_failed",
			"gateway", handle.Gateway,
			"reference", handle.Reference,
			"error", err,
		)
	}

	// 轮询可能因请求上下文结束而退出，兜底查询不受其取消影响
	fallbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), gatewayFallbackTimeout)
	defer cancel()
	received, fetchErr := gw.FetchReceived(fallbackCtx, handle)
	if fetchErr != nil {
		logger.Warnw("payment_fallback_check_failed",
			"gateway", handle.Gateway,
			"reference", handle.Reference,
			"error", fetchErr,
		)
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPaymentFailed, fetchErr)
	}
	if !received.IsPositive() {
		return decimal.Zero, ErrPaymentFailed
	}
	logger.Infow("payment_fallback_received",
		"gateway", handle.Gateway,
		"reference", handle.Reference,
		"quoted", handle.Amount.String(),
		"received", received.String(),
	)
	return received.Round(2), nil
}

// CryptoGateway 基于 cryptogate 客户端的网关实现
type CryptoGateway struct {
	name         string
	client       *cryptogate.Client
	pollInterval time.Duration
}

// NewCryptoGateway 创建加密货币网关
func NewCryptoGateway(name string, client *cryptogate.Client, pollInterval time.Duration) *CryptoGateway {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &CryptoGateway{
		name:         normalizeGatewayName(name),
		client:       client,
		pollInterval: pollInterval,
	}
}

// Name 网关名称
func (g *CryptoGateway) Name() string {
	return g.name
}

// CreateCharge 创建扣款
func (g *CryptoGateway) CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeHandle, error) {
	result, err := g.client.CreateTransaction(ctx, cryptogate.CreateInput{
		OrderNo: req.Reference,
		Amount:  req.Amount,
		Name:    req.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	return &ChargeHandle{
		Gateway:    g.name,
		Reference:  req.Reference,
		ExternalID: result.TradeID,
		PayURL:     result.PaymentURL,
		Amount:     req.Amount.Round(2),
	}, nil
}

// PollCompletion 按间隔轮询直到支付成功、订单过期或超时
func (g *CryptoGateway) PollCompletion(ctx context.Context, handle *ChargeHandle, timeout time.Duration) (*ChargeStatus, error) {
	if handle == nil || handle.ExternalID == "" {
		return nil, errors.New("invalid charge handle")
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()
	for {
		result, err := g.client.QueryTransaction(pollCtx, handle.ExternalID)
		switch {
		case err != nil:
			if pollCtx.Err() == nil {
				logger.Debugw("payment_poll_query_failed", "gateway", g.name, "trade_id", handle.ExternalID, "error", err)
			}
		case result.Paid():
			return &ChargeStatus{Paid: true, ReceivedAmount: result.ReceivedAmount}, nil
		case result.Status == cryptogate.StatusExpired:
			return &ChargeStatus{Paid: false, ReceivedAmount: result.ReceivedAmount}, nil
		}
		select {
		case <-pollCtx.Done():
			return &ChargeStatus{Paid: false}, nil
		case <-ticker.C:
		}
	}
}

// FetchReceived 查询实际到账金额
func (g *CryptoGateway) FetchReceived(ctx context.Context, handle *ChargeHandle) (decimal.Decimal, error) {
	if handle == nil || handle.ExternalID == "" {
		return decimal.Zero, errors.New("invalid charge handle")
	}
	result, err := g.client.QueryTransaction(ctx, handle.ExternalID)
	if err != nil {
		return decimal.Zero, err
	}
	return result.ReceivedAmount, nil
}
