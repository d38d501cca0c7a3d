//go:build integration

package feed_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quorumcred/internal/credential/feed"
	"quorumcred/internal/credential/index"
	"quorumcred/internal/credential/store"
	"quorumcred/internal/platform/kafka/consumer"
	"quorumcred/internal/platform/kafka/producer"
	"quorumcred/pkg/domain"
	"quorumcred/pkg/testutil"
	"quorumcred/pkg/testutil/containers"
)

type FeedIntegrationSuite struct {
	suite.Suite
	kafka *containers.KafkaContainer
	redis *containers.RedisContainer
}

func TestFeedIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(FeedIntegrationSuite))
}

func (s *FeedIntegrationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.kafka = mgr.GetKafka(s.T())
	s.redis = mgr.GetRedis(s.T())
}

func (s *FeedIntegrationSuite) SetupTest() {
	s.Require().NoError(s.redis.Flush(context.Background()))
}

func (s *FeedIntegrationSuite) TestRedisCursorOnlyAdvances() {
	ctx := context.Background()
	cursors := feed.NewRedisCursorStore(s.redis.Client)

	got, err := cursors.Load(ctx, "relay-a")
	s.Require().NoError(err)
	s.Zero(got)

	s.Require().NoError(cursors.Save(ctx, "relay-a", 12))
	s.Require().NoError(cursors.Save(ctx, "relay-a", 5))
	got, err = cursors.Load(ctx, "relay-a")
	s.Require().NoError(err)
	s.Equal(uint64(12), got)
}

// Store -> relay -> Kafka -> consumer group -> index.
func (s *FeedIntegrationSuite) TestRelayToIndexPipeline() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	topic := "credential-events-pipeline"
	s.Require().NoError(s.kafka.EnsureTopic(ctx, topic, 3))

	st := store.NewInMemory()
	for i := 0; i < 5; i++ {
		c, err := st.Create(ctx, testutil.NewCredentialBuilder().Build())
		s.Require().NoError(err)
		for _, v := range []int{0xa1, 0xa2} {
			_, _, err := st.AddSignature(ctx, c.ID, testutil.Address(v), testutil.FixedTime)
			s.Require().NoError(err)
		}
	}

	brokers := strings.Join(s.kafka.Brokers, ",")
	prod, err := producer.New(producer.Config{Brokers: brokers, Acks: "all"}, nil)
	s.Require().NoError(err)
	defer prod.Close()

	relay := feed.NewRelay("pipeline", topic, st, prod, feed.NewRedisCursorStore(s.redis.Client), feed.WithBatchSize(4))
	for {
		n, err := relay.RunOnce(ctx)
		s.Require().NoError(err)
		if n == 0 {
			break
		}
	}

	idx := index.New()
	cons, err := consumer.New(consumer.Config{
		Brokers: brokers,
		GroupID: "pipeline-index",
		Topics:  []string{topic},
	}, feed.NewApplier(idx, nil, nil, nil), nil)
	s.Require().NoError(err)
	go func() { _ = cons.Run(ctx) }()
	defer cons.Close()

	s.Require().NoError(idx.WaitFor(ctx, 15, 45*time.Second))
	s.Equal(5, idx.Len())
	for id := 1; id <= 5; id++ {
		v, ok := idx.Get(domain.CredentialID(id))
		s.Require().True(ok)
		s.True(v.IsValid(), "per-credential order survives partitioning")
	}
}
