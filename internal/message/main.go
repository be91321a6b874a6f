package message

import (
	"fmt"
	"slices"
	"strings"
)

type MessengerType string

// ATTENTION: when adding a new type, make sure to update the MessengerType methods!
const (
	// MessengerTypeSendGridEmail is used to send emails using SendGrid.
	MessengerTypeSendGridEmail MessengerType = "SENDGRID_EMAIL"
	// MessengerTypeAWSEmail is used to send emails using AWS SES.
	MessengerTypeAWSEmail MessengerType = "AWS_EMAIL"
	// MessengerTypeDryRun is used for development environment
	MessengerTypeDryRun MessengerType = "DRY_RUN"
)

func (mt MessengerType) All() []MessengerType {
	return []MessengerType{MessengerTypeSendGridEmail, MessengerTypeAWSEmail, MessengerTypeDryRun}
}

func ParseMessengerType(messengerTypeStr string) (MessengerType, error) {
	messageTypeStrUpper := strings.ToUpper(messengerTypeStr)
	mType := MessengerType(messageTypeStrUpper)

	if slices.Contains(MessengerType("").All(), mType) {
		return mType, nil
	}

	return "", fmt.Errorf("invalid message sender type %q", messageTypeStrUpper)
}

type MessengerOptions struct {
	MessengerType MessengerType
	Environment   string

	// SendGrid
	SendGridAPIKey        string
	SendGridSenderAddress string

	// AWS
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	// AWS SES (EMAIL messages)
	AWSSESSenderID string
}

func GetClient(opts MessengerOptions) (MessengerClient, error) {
	switch opts.MessengerType {
	case MessengerTypeSendGridEmail:
		return NewSendGridClient(opts.SendGridAPIKey, opts.SendGridSenderAddress)

	case MessengerTypeAWSEmail:
		return NewAWSSESClient(opts.AWSAccessKeyID, opts.AWSSecretAccessKey, opts.AWSRegion, opts.AWSSESSenderID)

	case MessengerTypeDryRun:
		return NewDryRunClient()

	default:
		return nil, fmt.Errorf("unknown message sender type: %q", opts.MessengerType)
	}
}
