//go:build integration

package kafka_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quorumcred/internal/platform/kafka"
	"quorumcred/internal/platform/kafka/producer"
	"quorumcred/pkg/testutil/containers"
)

func TestTopicHealth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	kc := containers.GetManager().GetKafka(t)

	prod, err := producer.New(producer.Config{Brokers: strings.Join(kc.Brokers, ",")}, nil)
	require.NoError(t, err)
	defer prod.Close() //nolint:errcheck // test

	missing := kafka.NewTopicHealth(prod.Admin(), "health-missing-topic")
	assert.ErrorContains(t, missing.Check(ctx), "does not exist")

	require.NoError(t, kc.EnsureTopic(ctx, "health-feed", 2))
	assert.NoError(t, kafka.NewTopicHealth(prod.Admin(), "health-feed").Check(ctx))
}
