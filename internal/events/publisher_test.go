package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/unitshop/internal/config"

	"github.com/nats-io/nats.go/jetstream"
)

type capturedMsg struct {
	subject string
	body    []byte
}

type fakeStream struct {
	msgs []capturedMsg
	err  error
}

func (s *fakeStream) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.msgs = append(s.msgs, capturedMsg{subject: subject, body: data})
	return &jetstream.PubAck{Stream: "UNITSHOP", Sequence: uint64(len(s.msgs))}, nil
}

func TestPublisherSubjects(t *testing.T) {
	stream := &fakeStream{}
	publisher := NewPublisherWithStream(stream, " shop. ")

	if err := publisher.PublishSaleCreated(context.Background(), SaleCreatedEvent{SaleID: 1, SaleNo: "S1", Quantity: 2}); err != nil {
		t.Fatalf("publish sale failed: %v", err)
	}
	if err := publisher.PublishBalanceToppedUp(context.Background(), BalanceToppedUpEvent{DepositID: 3, Amount: "10.00"}); err != nil {
		t.Fatalf("publish top-up failed: %v", err)
	}
	if len(stream.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(stream.msgs))
	}
	if stream.msgs[0].subject != "shop.sale.created" || stream.msgs[1].subject != "shop.balance.topped_up" {
		t.Fatalf("unexpected subjects: %s, %s", stream.msgs[0].subject, stream.msgs[1].subject)
	}
	var decoded SaleCreatedEvent
	if err := json.Unmarshal(stream.msgs[0].body, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.SaleNo != "S1" || decoded.Quantity != 2 {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestPublisherErrorSurfaces(t *testing.T) {
	publisher := NewPublisherWithStream(&fakeStream{err: errors.New("no responders")}, "")
	if err := publisher.PublishSaleCreated(context.Background(), SaleCreatedEvent{SaleNo: "S2"}); err == nil {
		t.Fatalf("expected publish error")
	}
	if got := publisher.Subject(SubjectSaleCreated); got != "unitshop.sale.created" {
		t.Fatalf("expected default prefix, got %s", got)
	}
}

func TestDisabledPublisherDrops(t *testing.T) {
	publisher, err := NewPublisher(context.Background(), &config.NATSConfig{Enabled: false, SubjectPrefix: "x"})
	if err != nil {
		t.Fatalf("new publisher failed: %v", err)
	}
	if publisher.Enabled() {
		t.Fatalf("expected disabled publisher")
	}
	if err := publisher.PublishSaleCreated(context.Background(), SaleCreatedEvent{SaleNo: "S3"}); err != nil {
		t.Fatalf("disabled publish should be a no-op, got %v", err)
	}
	if got := publisher.Subject(SubjectBalanceToppedUp); got != "x.balance.topped_up" {
		t.Fatalf("unexpected subject %s", got)
	}
	publisher.Close()
}
