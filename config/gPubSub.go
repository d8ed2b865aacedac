package config

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// GetPubSubClient returns a Pub/Sub client, initializing lazily.
// It uses Application Default Credentials unless PUBSUB_CREDENTIALS_JSON is provided.
func GetPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()

	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("pubsub project id not configured")
	}

	var opts []option.ClientOption
	if creds := os.Getenv("PUBSUB_CREDENTIALS_JSON"); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}
	pubsubClient = client
	return pubsubClient, nil
}

func getPubSubProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	return ""
}

// AuditTopicName returns the topic audit records are mirrored to, or "" when
// mirroring is disabled. The local audit table is always the source of truth;
// the mirror is fire-and-forget.
func AuditTopicName() string {
	return os.Getenv("AUDIT_PUBSUB_TOPIC")
}

// PublishAudit mirrors one audit payload to Pub/Sub. Best-effort: any failure
// is logged and swallowed so the originating operation never fails on it.
func PublishAudit(ctx context.Context, payload []byte) {
	topicName := AuditTopicName()
	if topicName == "" {
		return
	}
	client, err := GetPubSubClient(ctx)
	if err != nil {
		log.Printf("audit mirror disabled (pubsub client): %v", err)
		return
	}
	topic := client.Topic(topicName)
	result := topic.Publish(ctx, &pubsub.Message{Data: payload})
	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			log.Printf("audit mirror publish failed: %v", err)
		}
	}()
}
