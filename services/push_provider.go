// services/push_provider.go
package services

import (
	"context"
	"fmt"

	"menthub/interfaces"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMProvider delivers push notifications through Firebase Cloud
// Messaging. The target is the recipient's device token.
type FCMProvider struct {
	client *messaging.Client
}

func NewFCMProvider(ctx context.Context, credentialsFile string) (*FCMProvider, error) {
	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase: %v", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize FCM client: %v", err)
	}

	return &FCMProvider{client: client}, nil
}

func (fp *FCMProvider) Send(ctx context.Context, target string, msg interfaces.ChannelMessage) (*interfaces.ProviderResult, error) {
	message := &messaging.Message{
		Token: target,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: stringifyData(msg.Data),
		Android: &messaging.AndroidConfig{
			Priority: androidPriority(msg.Priority),
			Notification: &messaging.AndroidNotification{
				Sound: "default",
				Icon:  "ic_notification",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: msg.Title,
						Body:  msg.Body,
					},
					Sound: "default",
				},
			},
		},
	}

	messageID, err := fp.client.Send(ctx, message)
	if err != nil {
		return nil, err
	}

	return &interfaces.ProviderResult{
		Accepted:  true,
		MessageID: messageID,
	}, nil
}

// FCM data payloads are string-valued.
func stringifyData(data map[string]interface{}) map[string]string {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string]string, len(data))
	for key, value := range data {
		out[key] = fmt.Sprintf("%v", value)
	}
	return out
}

func androidPriority(priority string) string {
	switch priority {
	case "high", "urgent":
		return "high"
	}
	return "normal"
}
