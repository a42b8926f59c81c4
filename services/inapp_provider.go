// services/inapp_provider.go
package services

import (
	"context"

	"menthub/interfaces"
)

// InAppProvider pushes notifications to the recipient's open websocket
// sessions. The notification document itself is already stored, so the
// channel counts as delivered only when a live client received the event;
// otherwise it stays sent and the client catches up through the list API.
type InAppProvider struct {
	publisher interfaces.InAppPublisher
}

func NewInAppProvider(publisher interfaces.InAppPublisher) *InAppProvider {
	return &InAppProvider{publisher: publisher}
}

func (ip *InAppProvider) Send(ctx context.Context, target string, msg interfaces.ChannelMessage) (*interfaces.ProviderResult, error) {
	payload := map[string]interface{}{
		"id":       msg.NotificationID,
		"title":    msg.Title,
		"body":     msg.Body,
		"priority": msg.Priority,
	}
	if len(msg.Data) > 0 {
		payload["data"] = msg.Data
	}

	received := false
	if ip.publisher != nil {
		received = ip.publisher.PublishToUser(target, "notification", payload)
	}

	return &interfaces.ProviderResult{
		Accepted:  true,
		MessageID: msg.NotificationID,
		Delivered: received,
	}, nil
}
