package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"blog-publisher/domain/model"
	"blog-publisher/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pubsub project id not configured")
	}
	return pubsub.NewClient(ctx, projectID)
}

// EventPublisher publishes events to a Pub/Sub topic, creating the topic on
// first use when it does not exist.
type EventPublisher struct {
	client    *pubsub.Client
	topicName string

	once  sync.Once
	topic *pubsub.Topic
	err   error
}

func NewEventPublisher(client *pubsub.Client, topic string) *EventPublisher {
	return &EventPublisher{client: client, topicName: topic}
}

func (p *EventPublisher) Notify(ctx context.Context, evt model.Event) error {
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": evt.Type,
			"user_id":    evt.UserID,
		},
	}
	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.topicName, err)
	}
	logger.GetLogger().WithField("server ID", serverID).WithField("event", evt.Type).Debug("Message published")
	return nil
}

func (p *EventPublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.once.Do(func() {
		topic := p.client.Topic(p.topicName)
		exists, err := topic.Exists(ctx)
		if err != nil {
			p.err = err
			return
		}
		if !exists {
			logger.GetLogger().WithField("topic", p.topicName).Info("Topic doesn't exist - creating it")
			if topic, err = p.client.CreateTopic(ctx, p.topicName); err != nil {
				p.err = err
				return
			}
		}
		p.topic = topic
	})
	return p.topic, p.err
}

// Stop flushes pending messages.
func (p *EventPublisher) Stop() {
	if p.topic != nil {
		p.topic.Stop()
	}
}
