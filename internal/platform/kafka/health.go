package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
)

// TopicHealth reports the relay healthy when the feed topic exists and every
// partition has a leader to accept writes.
type TopicHealth struct {
	admin *kadm.Client
	topic string
}

func NewTopicHealth(admin *kadm.Client, topic string) *TopicHealth {
	return &TopicHealth{admin: admin, topic: topic}
}

func (h *TopicHealth) Check(ctx context.Context) error {
	topics, err := h.admin.ListTopics(ctx, h.topic)
	if err != nil {
		return fmt.Errorf("describe topic %s: %w", h.topic, err)
	}
	detail, ok := topics[h.topic]
	if !ok || errors.Is(detail.Err, kerr.UnknownTopicOrPartition) {
		return fmt.Errorf("topic %s does not exist", h.topic)
	}
	if detail.Err != nil {
		return fmt.Errorf("describe topic %s: %w", h.topic, detail.Err)
	}
	if len(detail.Partitions) == 0 {
		return fmt.Errorf("topic %s has no partitions", h.topic)
	}

	var leaderless []int32
	for _, p := range detail.Partitions {
		if p.Err != nil || p.Leader < 0 {
			leaderless = append(leaderless, p.Partition)
		}
	}
	if len(leaderless) > 0 {
		sort.Slice(leaderless, func(i, j int) bool { return leaderless[i] < leaderless[j] })
		return fmt.Errorf("topic %s partitions without a leader: %v", h.topic, leaderless)
	}
	return nil
}
