package servicebus

import (
	"context"
	"encoding/json"
	"fmt"

	"blog-publisher/domain/model"
	"blog-publisher/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus connects to a namespace such as "example.servicebus.windows.net"
// using the default Azure credential chain.
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("service bus namespace not configured")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// EventSender sends each event to a queue or topic.
type EventSender struct {
	newSender func(queueOrTopic string) (messageSender, error)
	queue     string
}

func NewEventSender(client *azservicebus.Client, queueOrTopic string) *EventSender {
	return &EventSender{
		queue: queueOrTopic,
		newSender: func(name string) (messageSender, error) {
			return client.NewSender(name, nil)
		},
	}
}

func (s *EventSender) Notify(ctx context.Context, evt model.Event) error {
	sender, err := s.newSender(s.queue)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender messageSender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, context.Background())

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	contentType := "application/json"
	subject := evt.Type
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		ApplicationProperties: map[string]interface{}{
			"user_id": evt.UserID,
		},
	}
	if evt.ID != "" {
		id := evt.ID
		msg.MessageID = &id
	}
	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}
