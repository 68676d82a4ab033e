package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unitshop/internal/config"
	"github.com/unitshop/internal/logger"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// SubjectSaleCreated 新销售事件
	SubjectSaleCreated = "sale.created"
	// SubjectBalanceToppedUp 余额充值事件
	SubjectBalanceToppedUp = "balance.topped_up"

	defaultSubjectPrefix = "unitshop"
	defaultStreamName    = "UNITSHOP"
)

// streamPublisher JetStream 发布能力（便于测试替换）
type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher 出站事件发布器
type Publisher struct {
	conn   *nats.Conn
	js     streamPublisher
	prefix string
}

// NewPublisher 连接 NATS 并确保事件流存在；未启用时返回只记录日志的发布器
func NewPublisher(ctx context.Context, cfg *config.NATSConfig) (*Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return &Publisher{prefix: subjectPrefix(cfg)}, nil
	}
	conn, err := nats.Connect(cfg.URL, nats.Name("unitshop"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream: %w", err)
	}
	prefix := subjectPrefix(cfg)
	streamName := strings.ToUpper(strings.TrimSpace(cfg.Stream))
	if streamName == "" {
		streamName = defaultStreamName
	}
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{prefix + ".>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && !errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		conn.Close()
		return nil, fmt.Errorf("create stream %s: %w", streamName, err)
	}
	logger.Infow("event_publisher_connected", "url", cfg.URL, "stream", streamName, "prefix", prefix)
	return &Publisher{conn: conn, js: js, prefix: prefix}, nil
}

// NewPublisherWithStream 基于已有 JetStream 创建发布器
func NewPublisherWithStream(js streamPublisher, prefix string) *Publisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	return &Publisher{js: js, prefix: prefix}
}

func subjectPrefix(cfg *config.NATSConfig) string {
	if cfg == nil {
		return defaultSubjectPrefix
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.SubjectPrefix), ".")
	if prefix == "" {
		return defaultSubjectPrefix
	}
	return prefix
}

// Enabled 是否已连接事件流
func (p *Publisher) Enabled() bool {
	return p != nil && p.js != nil
}

// Subject 拼接完整主题
func (p *Publisher) Subject(name string) string {
	prefix := defaultSubjectPrefix
	if p != nil && p.prefix != "" {
		prefix = p.prefix
	}
	return prefix + "." + name
}

// PublishSaleCreated 发布新销售事件
func (p *Publisher) PublishSaleCreated(ctx context.Context, event SaleCreatedEvent) error {
	return p.publish(ctx, SubjectSaleCreated, event.SaleNo, event)
}

// PublishBalanceToppedUp 发布充值事件
func (p *Publisher) PublishBalanceToppedUp(ctx context.Context, event BalanceToppedUpEvent) error {
	return p.publish(ctx, SubjectBalanceToppedUp, event.Reference, event)
}

func (p *Publisher) publish(ctx context.Context, name, msgID string, payload interface{}) error {
	subject := p.Subject(name)
	if !p.Enabled() {
		logger.Debugw("event_publish_skip_disabled", "subject", subject, "msg_id", msgID)
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	opts := make([]jetstream.PublishOpt, 0, 1)
	if msgID != "" {
		// 同一记录重复投递时由 JetStream 去重
		opts = append(opts, jetstream.WithMsgID(name+":"+msgID))
	}
	if _, err := p.js.Publish(ctx, subject, body, opts...); err != nil {
		logger.Warnw("event_publish_failed", "subject", subject, "msg_id", msgID, "error", err)
		return err
	}
	logger.Debugw("event_published", "subject", subject, "msg_id", msgID)
	return nil
}

// Close 关闭连接
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		logger.Warnw("event_publisher_drain_failed", "error", err)
	}
}
