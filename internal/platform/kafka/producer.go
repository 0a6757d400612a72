package kafka

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	skafka "github.com/segmentio/kafka-go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Writer is the subset of kafka.Writer the producer needs; tests substitute it.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Producer writes JSON-encoded values to one topic.
type Producer struct {
	writer Writer
}

// NewProducer builds a producer for the comma separated broker list and topic.
func NewProducer(brokers, topic string) (*Producer, error) {
	addrs := splitBrokers(brokers)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("kafka brokers are empty")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("kafka topic is empty")
	}
	return NewProducerWithWriter(&skafka.Writer{
		Addr:                   skafka.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &skafka.Hash{},
		AllowAutoTopicCreation: true,
	}), nil
}

// NewProducerWithWriter allows injecting a test writer.
func NewProducerWithWriter(w Writer) *Producer {
	return &Producer{writer: w}
}

// Publish marshals value and writes it under key, so records with one key stay ordered.
func (p *Producer) Publish(ctx context.Context, key string, value any, headers map[string]string) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode kafka value: %w", err)
	}
	msg := skafka.Message{Key: []byte(key), Value: body}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, skafka.Header{Key: k, Value: []byte(v)})
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func splitBrokers(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
