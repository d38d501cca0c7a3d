package kafka

import (
	"time"

	"quorumcred/internal/platform/config"
	"quorumcred/internal/platform/kafka/consumer"
	"quorumcred/internal/platform/kafka/producer"
)

// ProducerConfig maps process configuration onto the relay producer.
func ProducerConfig(cfg config.KafkaConfig) producer.Config {
	return producer.Config{
		Brokers:         cfg.Brokers,
		Acks:            cfg.Acks,
		Retries:         cfg.Retries,
		DeliveryTimeout: cfg.DeliveryTimeout,
	}
}

// ConsumerConfig maps process configuration onto the index consumer. The
// index lives in memory, so every process needs every partition from the
// start of the topic: the group id is the configured prefix plus instance,
// which makes each process the only member of a fresh group.
func ConsumerConfig(cfg config.KafkaConfig, instance string) consumer.Config {
	return consumer.Config{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.ConsumerGroup + "." + instance,
		Topics:          []string{cfg.Topic},
		AutoOffsetReset: "earliest",
		RetryBackoff:    time.Second,
	}
}
