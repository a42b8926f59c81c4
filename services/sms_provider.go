// services/sms_provider.go
package services

import (
	"context"
	"errors"

	"menthub/interfaces"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioProvider delivers SMS through Twilio. The target is the
// recipient's phone number in E.164 form. Title is dropped; SMS carries
// the body only.
type TwilioProvider struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewTwilioProvider(accountSID, authToken, fromNumber string) *TwilioProvider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioProvider{
		client:     client,
		fromNumber: fromNumber,
	}
}

func (tp *TwilioProvider) Send(ctx context.Context, target string, msg interfaces.ChannelMessage) (*interfaces.ProviderResult, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(target)
	params.SetFrom(tp.fromNumber)
	params.SetBody(msg.Body)

	resp, err := tp.client.Api.CreateMessage(params)
	if err != nil {
		return nil, err
	}
	if resp.Sid == nil {
		return nil, errors.New("twilio returned no message sid")
	}

	return &interfaces.ProviderResult{
		Accepted:  true,
		MessageID: *resp.Sid,
	}, nil
}
