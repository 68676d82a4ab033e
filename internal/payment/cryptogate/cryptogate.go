package cryptogate

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid    = errors.New("cryptogate config invalid")
	ErrRequestFailed    = errors.New("cryptogate request failed")
	ErrResponseInvalid  = errors.New("cryptogate response invalid")
	ErrSignatureInvalid = errors.New("cryptogate signature invalid")
)

// 订单状态常量
const (
	StatusWaiting = 1 // 等待支付
	StatusPaid    = 2 // 支付成功
	StatusExpired = 3 // 支付超时
)

// Config 网关配置
type Config struct {
	GatewayURL  string        // 网关地址，如 https://pay.example.com
	AuthToken   string        // API Token
	TradeType   string        // 交易类型，如 usdt.trc20
	Fiat        string        // 法币类型
	NotifyURL   string        // 异步通知地址
	RedirectURL string        // 支付完成跳转地址
	Timeout     time.Duration // 单次请求超时
}

// CreateInput 创建订单输入
type CreateInput struct {
	OrderNo string
	Amount  decimal.Decimal
	Name    string
}

// CreateResult 创建订单结果
type CreateResult struct {
	TradeID      string
	OrderID      string
	Amount       decimal.Decimal // 请求支付金额（法币）
	ActualAmount string          // 实际支付金额（加密货币）
	Token        string          // 收款地址
	PaymentURL   string          // 收银台地址
	ExpiresAt    *time.Time
}

// QueryResult 订单查询结果
type QueryResult struct {
	TradeID        string
	OrderID        string
	Status         int
	ReceivedAmount decimal.Decimal // 已到账金额（法币）
}

// Paid 是否已支付成功
func (r *QueryResult) Paid() bool {
	return r != nil && r.Status == StatusPaid
}

// Client 网关 HTTP 客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New 创建客户端
func New(cfg Config) (*Client, error) {
	cfg.normalize()
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// ValidateConfig 校验配置
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		return fmt.Errorf("%w: gateway_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.AuthToken) == "" {
		return fmt.Errorf("%w: auth_token is required", ErrConfigInvalid)
	}
	return nil
}

func (c *Config) normalize() {
	c.GatewayURL = strings.TrimRight(strings.TrimSpace(c.GatewayURL), "/")
	c.AuthToken = strings.TrimSpace(c.AuthToken)
	c.TradeType = strings.TrimSpace(c.TradeType)
	c.Fiat = strings.ToUpper(strings.TrimSpace(c.Fiat))
	c.NotifyURL = strings.TrimSpace(c.NotifyURL)
	c.RedirectURL = strings.TrimSpace(c.RedirectURL)
	if c.TradeType == "" {
		c.TradeType = "usdt.trc20"
	}
	if c.Fiat == "" {
		c.Fiat = "USD"
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}

// CreateTransaction 创建支付订单
func (c *Client) CreateTransaction(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if strings.TrimSpace(input.OrderNo) == "" || !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: order_no and positive amount are required", ErrConfigInvalid)
	}
	amount, _ := input.Amount.Round(2).Float64()
	params := map[string]interface{}{
		"order_id":     input.OrderNo,
		"amount":       amount,
		"notify_url":   c.cfg.NotifyURL,
		"redirect_url": c.cfg.RedirectURL,
		"trade_type":   c.cfg.TradeType,
		"fiat":         c.cfg.Fiat,
	}
	if input.Name != "" {
		params["name"] = input.Name
	}
	params["signature"] = Sign(params, c.cfg.AuthToken)

	respBytes, err := c.postJSON(ctx, "/api/v1/order/create-transaction", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		StatusCode int    `json:"status_code"`
		Message    string `json:"message"`
		Data       struct {
			TradeID        string      `json:"trade_id"`
			OrderID        string      `json:"order_id"`
			Amount         interface{} `json:"amount"`
			ActualAmount   interface{} `json:"actual_amount"`
			Token          string      `json:"token"`
			ExpirationTime int64       `json:"expiration_time"`
			PaymentURL     string      `json:"payment_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Message)
	}
	if resp.Data.TradeID == "" {
		return nil, fmt.Errorf("%w: missing trade_id", ErrResponseInvalid)
	}

	result := &CreateResult{
		TradeID:      resp.Data.TradeID,
		OrderID:      resp.Data.OrderID,
		Amount:       parseAmount(resp.Data.Amount),
		ActualAmount: formatValue(resp.Data.ActualAmount),
		Token:        resp.Data.Token,
		PaymentURL:   resp.Data.PaymentURL,
	}
	if result.Amount.IsZero() {
		result.Amount = input.Amount.Round(2)
	}
	if resp.Data.ExpirationTime > 0 {
		expiresAt := time.Unix(resp.Data.ExpirationTime, 0)
		result.ExpiresAt = &expiresAt
	}
	return result, nil
}

// QueryTransaction 查询订单状态与到账金额
func (c *Client) QueryTransaction(ctx context.Context, tradeID string) (*QueryResult, error) {
	tradeID = strings.TrimSpace(tradeID)
	if tradeID == "" {
		return nil, fmt.Errorf("%w: trade_id is required", ErrConfigInvalid)
	}
	params := map[string]interface{}{
		"trade_id": tradeID,
	}
	params["signature"] = Sign(params, c.cfg.AuthToken)

	respBytes, err := c.postJSON(ctx, "/api/v1/order/query", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		StatusCode int    `json:"status_code"`
		Message    string `json:"message"`
		Data       struct {
			TradeID        string      `json:"trade_id"`
			OrderID        string      `json:"order_id"`
			Status         int         `json:"status"`
			ReceivedAmount interface{} `json:"received_amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Message)
	}
	return &QueryResult{
		TradeID:        resp.Data.TradeID,
		OrderID:        resp.Data.OrderID,
		Status:         resp.Data.Status,
		ReceivedAmount: parseAmount(resp.Data.ReceivedAmount),
	}, nil
}

// Sign 生成签名
// 签名规则：
// 1. 筛选所有非空且非 signature 的参数
// 2. 按参数名 ASCII 码从小到大排序
// 3. 按 key=value 格式拼接，使用 & 连接
// 4. 在末尾追加 AuthToken（无 & 符号）
// 5. MD5 加密并转小写
func Sign(params map[string]interface{}, authToken string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "signature" || isEmptyValue(v) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, params[k]))
	}

	sum := md5.Sum([]byte(strings.Join(pairs, "&") + authToken))
	return strings.ToLower(hex.EncodeToString(sum[:]))
}

func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func parseAmount(v interface{}) decimal.Decimal {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val).Round(2)
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(val)); err == nil {
			return d.Round(2)
		}
	}
	return decimal.Zero
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	}
	return ""
}

func (c *Client) postJSON(ctx context.Context, path string, params map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return data, nil
}
