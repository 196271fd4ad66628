package drivers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// Kafka parses query line by line: "topic=<name>" (or a bare topic on
// its own line) selects the topic, an optional "key=<value>" line
// filters by message key (the verification coordinator strips that line
// when it still contains an unresolved {{...}} placeholder). The driver
// reads forward from the topic's live tail until a matching message
// arrives or the call's context deadline elapses.
type Kafka struct{}

type kafkaMessage struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Partition int    `json:"partition"`
	Offset    int64  `json:"offset"`
}

func (Kafka) Execute(ctx context.Context, config map[string]string, query string) (string, error) {
	brokers := config["brokers"]
	if brokers == "" {
		return "", apperrors.NewValidationError("config", "kafka connector requires \"brokers\"", nil)
	}

	var topic, wantKey string
	for _, line := range strings.Split(query, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if k, v, ok := strings.Cut(line, "="); ok {
			switch strings.TrimSpace(k) {
			case "topic":
				topic = strings.TrimSpace(v)
			case "key":
				wantKey = strings.TrimSpace(v)
			}
			continue
		}
		if topic == "" {
			topic = line
		}
	}
	if topic == "" {
		return "", apperrors.NewValidationError("query", "kafka query requires a topic", nil)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(brokers, ","),
		Topic:    topic,
		GroupID:  "", // no consumer group: always read from the partition's live tail
		MaxWait:  200 * time.Millisecond,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	defer reader.Close()
	if err := reader.SetOffset(kafka.LastOffset); err != nil {
		return "", err
	}

	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			return "", err
		}
		if wantKey != "" && string(m.Key) != wantKey {
			continue
		}
		out := kafkaMessage{Key: string(m.Key), Value: string(m.Value), Partition: m.Partition, Offset: m.Offset}
		b, err := json.Marshal(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
