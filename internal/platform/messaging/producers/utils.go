package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	partitionReadAttempts = 5
	partitionReadBackoff  = 2 * time.Second
)

// ensureTopicExists creates the topic when the broker does not know it yet.
// Producers call this before building their writer so the first publish
// does not depend on broker-side auto-creation.
func ensureTopicExists(conn *kafka.Conn, topic string, numPartitions, replicationFactor int, log *slog.Logger) error {
	partitions, err := readPartitions(conn, topic, log)
	if err == nil && len(partitions) > 0 {
		log.Info("Kafka topic exists", "topic", topic, "partitions", len(partitions))
		return nil
	}
	if err != nil {
		log.Info("Could not read topic partitions, attempting to create topic", "topic", topic, "error", err)
	}

	if numPartitions <= 0 {
		numPartitions = 1
	}
	if replicationFactor <= 0 {
		replicationFactor = 1
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}
	if err := conn.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}

	log.Info("Created Kafka topic",
		"topic", topic,
		"partitions", numPartitions,
		"replication_factor", replicationFactor,
	)
	return nil
}

// readPartitions retries the metadata read a few times; right after broker
// startup the first reads routinely fail while the cluster settles.
func readPartitions(conn *kafka.Conn, topic string, log *slog.Logger) ([]kafka.Partition, error) {
	var partitions []kafka.Partition
	var err error
	for attempt := 1; attempt <= partitionReadAttempts; attempt++ {
		partitions, err = conn.ReadPartitions(topic)
		if err == nil {
			return partitions, nil
		}
		log.Warn("Failed to read topic partitions",
			"topic", topic,
			"attempt", attempt,
			"error", err,
		)
		time.Sleep(partitionReadBackoff)
	}
	return nil, err
}
