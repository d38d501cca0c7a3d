//go:build integration

package consumer_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quorumcred/internal/platform/kafka/consumer"
	"quorumcred/internal/platform/kafka/producer"
	"quorumcred/pkg/testutil/containers"
)

type ConsumerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestConsumerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ConsumerIntegrationSuite))
}

func (s *ConsumerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())
	prod, err := producer.New(producer.Config{Brokers: s.brokers(), Acks: "all", Retries: 3}, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ConsumerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
}

func (s *ConsumerIntegrationSuite) brokers() string {
	return strings.Join(s.kafka.Brokers, ",")
}

type recordingHandler struct {
	mu     sync.Mutex
	values []string
	failN  atomic.Int32
}

func (h *recordingHandler) Handle(_ context.Context, msg *consumer.Message) error {
	if h.failN.Load() > 0 {
		h.failN.Add(-1)
		return errors.New("transient")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values = append(h.values, string(msg.Value))
	return nil
}

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.values...)
}

func (s *ConsumerIntegrationSuite) run(topic, group string, h consumer.Handler) (stop func()) {
	c, err := consumer.New(consumer.Config{
		Brokers:      s.brokers(),
		GroupID:      group,
		Topics:       []string{topic},
		RetryBackoff: 50 * time.Millisecond,
	}, h, nil)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
		c.Close()
	}
}

func (s *ConsumerIntegrationSuite) TestConsumesInOrderAndRetriesFailures() {
	ctx := context.Background()
	topic := "consumer-order"
	s.Require().NoError(s.kafka.EnsureTopic(ctx, topic, 1))

	h := &recordingHandler{}
	h.failN.Store(2)
	stop := s.run(topic, "consumer-order-group", h)
	defer stop()

	for _, v := range []string{"1", "2", "3"} {
		s.Require().NoError(s.producer.Produce(ctx, &producer.Message{Topic: topic, Key: []byte("k"), Value: []byte(v)}))
	}

	s.Eventually(func() bool { return len(h.seen()) == 3 }, 20*time.Second, 50*time.Millisecond)
	s.Equal([]string{"1", "2", "3"}, h.seen(), "a failed message is retried before later ones")
}

func (s *ConsumerIntegrationSuite) TestCommittedOffsetsAreNotRedelivered() {
	ctx := context.Background()
	topic := "consumer-commit"
	group := "consumer-commit-group"
	s.Require().NoError(s.kafka.EnsureTopic(ctx, topic, 1))
	s.Require().NoError(s.producer.Produce(ctx, &producer.Message{Topic: topic, Value: []byte("first")}))

	first := &recordingHandler{}
	stop := s.run(topic, group, first)
	s.Eventually(func() bool { return len(first.seen()) == 1 }, 20*time.Second, 50*time.Millisecond)
	stop()

	s.Require().NoError(s.producer.Produce(ctx, &producer.Message{Topic: topic, Value: []byte("second")}))
	second := &recordingHandler{}
	stop = s.run(topic, group, second)
	defer stop()
	s.Eventually(func() bool { return len(second.seen()) == 1 }, 20*time.Second, 50*time.Millisecond)
	s.Equal([]string{"second"}, second.seen())
}

func (s *ConsumerIntegrationSuite) TestConfigValidation() {
	_, err := consumer.New(consumer.Config{GroupID: "g", Topics: []string{"t"}}, consumer.HandlerFunc(nil), nil)
	s.Error(err)
	_, err = consumer.New(consumer.Config{Brokers: s.brokers(), Topics: []string{"t"}}, consumer.HandlerFunc(nil), nil)
	s.Error(err)
	_, err = consumer.New(consumer.Config{Brokers: s.brokers(), GroupID: "g"}, consumer.HandlerFunc(nil), nil)
	s.Error(err)
}
