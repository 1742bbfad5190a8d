package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

type mockConsumerGroup struct {
	consumeFn func(context.Context, []string, sarama.ConsumerGroupHandler) error
	errorsCh  chan error
	closeFn   func() error
}

func (m *mockConsumerGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, topics, handler)
	}
	return nil
}

func (m *mockConsumerGroup) Errors() <-chan error { return m.errorsCh }

func (m *mockConsumerGroup) Close() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	if m.errorsCh != nil {
		close(m.errorsCh)
	}
	return nil
}

func (m *mockConsumerGroup) Pause(map[string][]int32)  {}
func (m *mockConsumerGroup) Resume(map[string][]int32) {}
func (m *mockConsumerGroup) PauseAll()                 {}
func (m *mockConsumerGroup) ResumeAll()                {}

type mockSession struct {
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (m *mockSession) Claims() map[string][]int32               { return nil }
func (m *mockSession) MemberID() string                         { return "member" }
func (m *mockSession) GenerationID() int32                      { return 1 }
func (m *mockSession) MarkOffset(string, int32, int64, string)  {}
func (m *mockSession) Commit()                                  {}
func (m *mockSession) ResetOffset(string, int32, int64, string) {}
func (m *mockSession) Context() context.Context                 { return m.ctx }
func (m *mockSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	m.marked = append(m.marked, msg)
}

type mockClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (m *mockClaim) Topic() string                            { return TopicOrderEvents }
func (m *mockClaim) Partition() int32                         { return 0 }
func (m *mockClaim) InitialOffset() int64                     { return 0 }
func (m *mockClaim) HighWaterMarkOffset() int64               { return 0 }
func (m *mockClaim) Messages() <-chan *sarama.ConsumerMessage { return m.messages }

func claimWith(messages ...*sarama.ConsumerMessage) *mockClaim {
	ch := make(chan *sarama.ConsumerMessage, len(messages))
	for _, msg := range messages {
		ch <- msg
	}
	close(ch)
	return &mockClaim{messages: ch}
}

func TestConsumerStartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	consumeCalls := 0
	errorsCh := make(chan error, 1)
	group := &mockConsumerGroup{
		errorsCh: errorsCh,
		consumeFn: func(context.Context, []string, sarama.ConsumerGroupHandler) error {
			consumeCalls++
			cancel()
			return nil
		},
	}

	consumer := &Consumer{
		consumer: group,
		topics:   []string{TopicOrderEvents},
		handler:  func(context.Context, *sarama.ConsumerMessage) error { return nil },
		logger:   log.WithField("test", "consumer"),
	}

	errorsCh <- errors.New("background error")
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := consumer.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if consumeCalls == 0 {
		t.Fatal("expected consume call")
	}
}

func TestConsumerStopError(t *testing.T) {
	errorsCh := make(chan error)
	group := &mockConsumerGroup{errorsCh: errorsCh, closeFn: func() error {
		close(errorsCh)
		return errors.New("close failed")
	}}
	consumer := &Consumer{consumer: group, logger: log.WithField("test", "stop")}
	if err := consumer.Stop(); err == nil {
		t.Fatal("expected stop error")
	}
}

func TestConsumeClaim_MarksHandledMessages(t *testing.T) {
	consumer := &Consumer{
		handler: func(context.Context, *sarama.ConsumerMessage) error { return nil },
		logger:  log.WithField("test", "claim"),
	}

	session := &mockSession{ctx: context.Background()}
	claim := claimWith(&sarama.ConsumerMessage{Topic: TopicOrderEvents, Offset: 1, Key: []byte("k"), Value: []byte("v")})

	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if len(session.marked) != 1 {
		t.Fatalf("expected one marked message, got %d", len(session.marked))
	}
}

func TestConsumeClaim_RetriesThenLeavesUnmarkedWithoutDLQ(t *testing.T) {
	calls := 0
	consumer := &Consumer{
		handler: func(context.Context, *sarama.ConsumerMessage) error {
			calls++
			return errors.New("failed")
		},
		logger:       log.WithField("test", "claim-fail"),
		maxRetries:   3,
		retryBackoff: time.Millisecond,
	}

	session := &mockSession{ctx: context.Background()}
	if err := consumer.ConsumeClaim(session, claimWith(&sarama.ConsumerMessage{Topic: TopicOrderEvents, Value: []byte("v")})); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(session.marked) != 0 {
		t.Fatalf("failed message should not be marked, got %d", len(session.marked))
	}
}

func TestConsumeClaim_SendsToDLQAfterRetries(t *testing.T) {
	producer, mockProducer := newTestProducer(t)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicDeadLetterQueue {
			return errors.New("expected dlq topic, got " + msg.Topic)
		}
		for _, h := range msg.Headers {
			if string(h.Key) == HeaderRetryCount && string(h.Value) == "2" {
				return nil
			}
		}
		return errors.New("expected incremented retry count header")
	})

	consumer := &Consumer{
		handler:      func(context.Context, *sarama.ConsumerMessage) error { return errors.New("boom") },
		logger:       log.WithField("test", "claim-dlq"),
		dlqProducer:  producer,
		maxRetries:   2,
		retryBackoff: time.Millisecond,
	}

	session := &mockSession{ctx: context.Background()}
	msg := &sarama.ConsumerMessage{
		Topic: TopicOrderEvents, Key: []byte("k"), Value: []byte("v"),
		Headers: []*sarama.RecordHeader{{Key: []byte(HeaderRetryCount), Value: []byte("1")}},
	}
	if err := consumer.ConsumeClaim(session, claimWith(msg)); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if len(session.marked) != 1 {
		t.Fatalf("message routed to DLQ must be marked, got %d", len(session.marked))
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestConsumeClaimStopsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	consumer := &Consumer{
		handler: func(context.Context, *sarama.ConsumerMessage) error { return nil },
		logger:  log.WithField("test", "claim-stop"),
	}
	session := &mockSession{ctx: ctx}
	claim := &mockClaim{messages: make(chan *sarama.ConsumerMessage)}

	done := make(chan struct{})
	go func() {
		_ = consumer.ConsumeClaim(session, claim)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ConsumeClaim did not stop after context cancellation")
	}
}

func TestOrderPlacedHandler(t *testing.T) {
	order := domain.Order{ID: 5, CustomerID: 2, Status: domain.OrderStatusPending, Items: []domain.OrderItem{{ProductID: 9, Quantity: 1}}}
	msg, err := domain.NewOrderPlacedMessage(order)
	if err != nil {
		t.Fatalf("build message: %v", err)
	}

	producer, mockProducer := newTestProducer(t)
	var captured []byte
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(pm *sarama.ProducerMessage) error {
		captured, err = pm.Value.Encode()
		return err
	})
	if err := NewOutboxPublisher(producer, "").Publish(context.Background(), msg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	_ = mockProducer.Close()

	var got *domain.OrderPlacedEvent
	handler := OrderPlacedHandler(func(_ context.Context, event *domain.OrderPlacedEvent) error {
		got = event
		return nil
	})
	if err := handler(context.Background(), &sarama.ConsumerMessage{Value: captured}); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if got == nil || got.OrderID != 5 || len(got.Items) != 1 || got.Items[0].ProductID != 9 {
		t.Fatalf("unexpected event: %+v", got)
	}

	skipped := true
	other := OrderPlacedHandler(func(context.Context, *domain.OrderPlacedEvent) error {
		skipped = false
		return nil
	})
	if err := other(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"event_type":"review.added","payload":{}}`)}); err != nil {
		t.Fatalf("unexpected error for foreign event: %v", err)
	}
	if !skipped {
		t.Fatal("foreign events must be skipped")
	}

	if err := handler(context.Background(), &sarama.ConsumerMessage{Value: []byte("{bad")}); err == nil {
		t.Fatal("expected parse error")
	}
}
