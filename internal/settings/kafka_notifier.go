package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const DefaultKafkaTopic = "settings-changes"

// KafkaPublisher writes change events with a sarama sync producer, keyed by row.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "encantia"

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(_ context.Context, ev ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Key),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.producer.Close() }

// KafkaSubscriber reads change events with a kafka-go reader. Every instance
// needs its own consumer group to see every event, so an empty GroupID gets a
// random one.
type KafkaSubscriber struct {
	Brokers []string
	Topic   string
	GroupID string
}

func NewKafkaSubscriber(brokers []string, topic, groupID string) *KafkaSubscriber {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	if groupID == "" {
		groupID = "encantia-settings-" + uuid.NewString()
	}
	return &KafkaSubscriber{Brokers: brokers, Topic: topic, GroupID: groupID}
}

func (s *KafkaSubscriber) Subscribe(ctx context.Context, key string) (Subscription, error) {
	if len(s.Brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	// Dial once so an unreachable cluster fails the subscribe instead of the first read.
	conn, err := kafka.DialContext(ctx, "tcp", s.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("failed to reach kafka: %w", err)
	}
	_ = conn.Close()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     s.Brokers,
		Topic:       s.Topic,
		GroupID:     s.GroupID,
		StartOffset: kafka.LastOffset,
		MaxWait:     time.Second,
	})

	readCtx, cancel := context.WithCancel(context.Background())
	sub := &kafkaSubscription{
		reader: reader,
		cancel: cancel,
		events: make(chan ChangeEvent, 16),
	}
	go sub.forward(readCtx, key)
	return sub, nil
}

type kafkaSubscription struct {
	reader *kafka.Reader
	cancel context.CancelFunc
	events chan ChangeEvent
	once   sync.Once
}

func (s *kafkaSubscription) Events() <-chan ChangeEvent { return s.events }

func (s *kafkaSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.reader.Close()
	})
	return err
}

func (s *kafkaSubscription) forward(ctx context.Context, key string) {
	defer close(s.events)

	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				slog.Warn("Kafka change subscription dropped", "error", err)
			}
			return
		}
		if string(msg.Key) != key {
			continue
		}
		ev, ok := decodeEvent(msg.Value, key)
		if !ok {
			continue
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
