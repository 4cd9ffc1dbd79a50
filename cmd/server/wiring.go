package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"encantia/internal/auth"
	"encantia/internal/config"
	"encantia/internal/presence"
	"encantia/internal/services"
	"encantia/internal/settings"
	"encantia/internal/storage"
)

// newBlobStore connects to MinIO and makes sure the presence and avatar
// buckets exist. Without an endpoint everything stays in process memory,
// which is only useful for a single local instance.
func newBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.MinIO.Endpoint == "" {
		slog.Warn("MINIO_ENDPOINT is empty, using in-memory object storage")
		return storage.NewMemoryStore(cfg.Server.PublicURL + "/storage"), nil
	}
	return storage.NewMinIOClient(ctx,
		cfg.MinIO.Endpoint,
		cfg.MinIO.AccessKey,
		cfg.MinIO.SecretKey,
		cfg.MinIO.UseSSL,
		cfg.MinIO.PublicURL,
		cfg.Presence.Bucket,
		services.AvatarBucket,
	)
}

func newPresenceStore(cfg *config.Config, blobs storage.BlobStore, rdb *redis.Client) (presence.Store, error) {
	switch cfg.Presence.Backend {
	case "document", "":
		return presence.NewDocumentStore(blobs, cfg.Presence.Bucket, cfg.Presence.Object), nil
	case "redis":
		return presence.NewRedisStore(rdb, cfg.Presence.RedisKey), nil
	}
	return nil, fmt.Errorf("unknown presence backend %q", cfg.Presence.Backend)
}

type notifier struct {
	publisher  settings.Publisher
	subscriber settings.Subscriber
	close      func() error
}

func (n notifier) Close() {
	if n.close == nil {
		return
	}
	if err := n.close(); err != nil {
		slog.Warn("Failed to close settings notifier", "error", err)
	}
}

func newNotifier(cfg *config.Config, rdb *redis.Client) (notifier, error) {
	switch cfg.Settings.Notifier {
	case "redis", "":
		n := settings.NewRedisNotifier(rdb, cfg.Settings.Channel)
		return notifier{publisher: n, subscriber: n}, nil
	case "kafka":
		producer, err := settings.NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			return notifier{}, err
		}
		pub := settings.NewKafkaPublisher(producer, cfg.Kafka.Topic)
		return notifier{
			publisher:  pub,
			subscriber: settings.NewKafkaSubscriber(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID),
			close:      pub.Close,
		}, nil
	}
	return notifier{}, fmt.Errorf("unknown settings notifier %q", cfg.Settings.Notifier)
}

func newMailer(cfg config.MailConfig) auth.Mailer {
	if cfg.SendgridAPIKey == "" {
		slog.Warn("SENDGRID_API_KEY is empty, password reset mail is only logged")
		return auth.LogMailer{}
	}
	return auth.NewSendgridMailer(cfg.SendgridAPIKey, cfg.FromName, cfg.FromAddress)
}
