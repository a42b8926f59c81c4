// services/email_provider.go
package services

import (
	"context"
	"fmt"
	"net/smtp"

	"menthub/interfaces"
	"menthub/utils"

	"github.com/sirupsen/logrus"
)

// SMTPProvider delivers email over plain SMTP. The target is the
// recipient address; the notification title becomes the subject.
type SMTPProvider struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPProvider(host, port, username, password, from string) *SMTPProvider {
	return &SMTPProvider{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (ep *SMTPProvider) Send(ctx context.Context, target string, msg interfaces.ChannelMessage) (*interfaces.ProviderResult, error) {
	message := ep.buildMessage(target, msg.Title, msg.Body)

	auth := smtp.PlainAuth("", ep.username, ep.password, ep.host)
	addr := fmt.Sprintf("%s:%s", ep.host, ep.port)

	if err := smtp.SendMail(addr, auth, ep.from, []string{target}, []byte(message)); err != nil {
		return nil, err
	}

	return &interfaces.ProviderResult{
		Accepted:  true,
		MessageID: utils.GenerateUUID(),
	}, nil
}

func (ep *SMTPProvider) buildMessage(to, subject, body string) string {
	headers := map[string]string{
		"From":         ep.from,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=\"UTF-8\"",
	}

	message := ""
	for key, value := range headers {
		message += fmt.Sprintf("%s: %s\r\n", key, value)
	}
	message += "\r\n" + body

	return message
}

// MockEmailProvider logs instead of sending. Used when SMTP is not
// configured, so local environments still exercise the email path.
type MockEmailProvider struct{}

func NewMockEmailProvider() *MockEmailProvider {
	return &MockEmailProvider{}
}

func (mp *MockEmailProvider) Send(ctx context.Context, target string, msg interfaces.ChannelMessage) (*interfaces.ProviderResult, error) {
	logrus.WithFields(logrus.Fields{
		"to":      target,
		"subject": msg.Title,
	}).Info("Mock email sent")

	return &interfaces.ProviderResult{
		Accepted:  true,
		MessageID: utils.GenerateUUID(),
	}, nil
}
