package message

import (
	"fmt"
	"strings"

	"github.com/crowdtask/platform-backend/internal/utils"
)

type Message struct {
	ToEmail string
	Title   string
	Body    string
}

// Validate validates if the message object is ready to be sent.
func (m *Message) Validate() error {
	if err := utils.ValidateEmail(m.ToEmail); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	if strings.Trim(m.Title, " ") == "" {
		return fmt.Errorf("title is empty")
	}

	if strings.Trim(m.Body, " ") == "" {
		return fmt.Errorf("message is empty")
	}

	return nil
}
