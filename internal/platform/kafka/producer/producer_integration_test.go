//go:build integration

package producer_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quorumcred/internal/platform/kafka/producer"
	"quorumcred/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	prod, err := producer.New(producer.Config{
		Brokers:         strings.Join(s.kafka.Brokers, ","),
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
}

// Produce only returns success after broker acknowledgment, and records with
// one key keep their submission order.
func (s *ProducerIntegrationSuite) TestProduceKeepsKeyOrder() {
	ctx := context.Background()
	topic := "producer-key-order"
	s.Require().NoError(s.kafka.EnsureTopic(ctx, topic, 3))

	var msgs []*producer.Message
	for _, v := range []string{"a", "b", "c", "d"} {
		msgs = append(msgs, &producer.Message{
			Topic:   topic,
			Key:     []byte("credential-7"),
			Value:   []byte(v),
			Headers: map[string]string{"event_type": "credential_signed"},
		})
	}
	s.Require().NoError(s.producer.Produce(ctx, msgs...))

	records, err := s.kafka.CollectRecords(ctx, topic, 4, 15*time.Second)
	s.Require().NoError(err)
	s.Require().Len(records, 4)
	for i, want := range []string{"a", "b", "c", "d"} {
		s.Equal(want, string(records[i].Value))
		s.Equal(records[0].Partition, records[i].Partition)
	}
	s.True(s.producer.Healthy(ctx))
}

func (s *ProducerIntegrationSuite) TestProduceAfterCloseFails() {
	prod, err := producer.New(producer.Config{Brokers: strings.Join(s.kafka.Brokers, ",")}, nil)
	s.Require().NoError(err)
	s.Require().NoError(prod.Close())

	err = prod.Produce(context.Background(), &producer.Message{Topic: "closed", Value: []byte("x")})
	s.ErrorIs(err, producer.ErrClosed)
	s.False(prod.Healthy(context.Background()))
}
