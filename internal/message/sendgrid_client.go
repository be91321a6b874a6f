package message

import (
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/utils"
)

type sendGridInterface interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

var _ sendGridInterface = (*sendgrid.Client)(nil)

type sendGridClient struct {
	client        sendGridInterface
	senderAddress string
}

func (t *sendGridClient) MessengerType() MessengerType {
	return MessengerTypeSendGridEmail
}

func (t *sendGridClient) SendMessage(message Message) error {
	err := message.Validate()
	if err != nil {
		return fmt.Errorf("validating message to send an email through SendGrid: %w", err)
	}

	from := mail.NewEmail("", t.senderAddress)
	to := mail.NewEmail("", message.ToEmail)
	email := mail.NewSingleEmail(from, message.Title, to, message.Body, "")

	response, err := t.client.Send(email)
	if err != nil {
		return fmt.Errorf("sending SendGrid email: %w", err)
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("sendGrid API returned error status code= %d, body= %s",
			response.StatusCode, response.Body)
	}

	logger.Debugf("🎉 SendGrid sent an email to the receiver %q", utils.TruncateString(message.ToEmail, 3))
	return nil
}

// NewSendGridClient creates a new SendGrid client that is used to send emails
func NewSendGridClient(apiKey string, senderAddress string) (MessengerClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("sendGrid API key is empty")
	}

	senderAddress = strings.TrimSpace(senderAddress)
	if err := utils.ValidateEmail(senderAddress); err != nil {
		return nil, fmt.Errorf("sendGrid senderAddress is invalid: %w", err)
	}

	return &sendGridClient{
		client:        sendgrid.NewSendClient(apiKey),
		senderAddress: senderAddress,
	}, nil
}

var _ MessengerClient = (*sendGridClient)(nil)
