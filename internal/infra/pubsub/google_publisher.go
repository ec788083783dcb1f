package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"fieldtrack/internal/domain/service"

	"cloud.google.com/go/pubsub/v2"
	pubsubpb "cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/pkg/errors"
)

// googlePubSubNotifier implements ChangeNotifier using Google Cloud Pub/Sub
type googlePubSubNotifier struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	logger    *slog.Logger
}

// NewGooglePubSubNotifier creates a notifier bound to an existing topic
func NewGooglePubSubNotifier(ctx context.Context, projectID, topicID string, logger *slog.Logger) (service.ChangeNotifier, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	topicPath := fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
	_, err = client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
		Topic: topicPath,
	})
	if err != nil {
		client.Close()

		return nil, errors.Wrapf(err, "failed to get topic %s", topicID)
	}

	publisher := client.Publisher(topicID)
	// Events for one sample arrive in publish order.
	publisher.EnableMessageOrdering = true

	return &googlePubSubNotifier{
		client:    client,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Publish sends an event and waits for the server id
func (p *googlePubSubNotifier) Publish(ctx context.Context, event *service.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}

	msg := &pubsub.Message{
		Data:        data,
		Attributes:  eventAttributes(event),
		OrderingKey: event.Type,
	}
	if ts, ok := msg.Attributes["sample_timestamp"]; ok {
		msg.OrderingKey = ts
	}

	result := p.publisher.Publish(ctx, msg)
	serverID, err := result.Get(ctx)
	if err != nil {
		p.publisher.ResumePublish(msg.OrderingKey)

		return errors.WithStack(err)
	}

	p.logger.Debug("[GooglePubSub] change event published",
		slog.String("type", event.Type),
		slog.String("server_id", serverID),
	)

	return nil
}

// Close releases Pub/Sub client resources
func (p *googlePubSubNotifier) Close() error {
	if p.publisher != nil {
		p.publisher.Stop()
	}
	if p.client != nil {
		return errors.WithStack(p.client.Close())
	}

	return nil
}
