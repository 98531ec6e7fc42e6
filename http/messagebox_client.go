package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	babbage "github.com/babbage/go"
)

// DefaultMessageBoxURL is the public message relay
const DefaultMessageBoxURL = "https://messagebox.babbage.systems"

// MessageBoxConfig configures the message relay client
type MessageBoxConfig struct {
	// URL is the base URL of the relay (optional)
	URL string

	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// AuthProvider provides authentication headers (optional)
	AuthProvider AuthProvider

	// Timeout for requests (optional, defaults to 30s)
	Timeout time.Duration
}

// MessageBoxClient delivers messages through the relay. It implements
// babbage.MessageRelay.
type MessageBoxClient struct {
	t *transport
}

var _ babbage.MessageRelay = (*MessageBoxClient)(nil)

// NewMessageBoxClient creates a relay client
func NewMessageBoxClient(config *MessageBoxConfig) *MessageBoxClient {
	if config == nil {
		config = &MessageBoxConfig{}
	}
	return &MessageBoxClient{
		t: newTransport(config.URL, DefaultMessageBoxURL, config.HTTPClient, config.Timeout, config.AuthProvider),
	}
}

type sendMessageRequest struct {
	Message sendMessageBody `json:"message"`
}

type sendMessageBody struct {
	Recipient  string `json:"recipient"`
	MessageBox string `json:"messageBox"`
	MessageID  string `json:"messageId"`
	Body       string `json:"body"`
}

type sendMessageResponse struct {
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

// SendMessage posts msg to the recipient's message box
func (c *MessageBoxClient) SendMessage(ctx context.Context, msg babbage.Message) error {
	body, err := c.t.postJSON(ctx, "/sendMessage", sendMessageRequest{
		Message: sendMessageBody{
			Recipient:  msg.Recipient,
			MessageBox: msg.MessageBox,
			MessageID:  msg.MessageID,
			Body:       string(msg.Body),
		},
	}, nil)
	if err != nil {
		return err
	}

	var resp sendMessageResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to decode sendMessage response: %w", err)
		}
	}
	if resp.Status == "error" {
		return fmt.Errorf("message relay rejected %s: %s", msg.MessageID, resp.Description)
	}

	log.Debugf("Delivered message %s to %s/%s", msg.MessageID, msg.Recipient, msg.MessageBox)
	return nil
}
