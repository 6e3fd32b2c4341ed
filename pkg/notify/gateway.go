// Package notify delivers customer-facing messages (WhatsApp/SMS) through an
// external gateway. Delivery is best effort: queue operations never wait on
// or fail because of a message.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one outbound customer notification
type Message struct {
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
}

// Gateway sends a single message to a recipient
type Gateway interface {
	Send(msg Message) error
}

// HTTPGateway implements Gateway against a WhatsApp/SMS HTTP API
type HTTPGateway struct {
	apiURL   string
	apiToken string
	senderID string
	client   *http.Client
}

// HTTPConfig holds configuration for the HTTP gateway
type HTTPConfig struct {
	APIURL   string
	APIToken string
	SenderID string
	Timeout  time.Duration
}

// NewHTTPGateway creates a new HTTP notification gateway client
func NewHTTPGateway(config HTTPConfig) *HTTPGateway {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		apiURL:   config.APIURL,
		apiToken: config.APIToken,
		senderID: config.SenderID,
		client:   &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

type sendResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
	ErrCode string `json:"errCode,omitempty"`
}

// Send delivers one message through the gateway API
func (g *HTTPGateway) Send(msg Message) error {
	payload, err := json.Marshal(sendRequest{
		To:      msg.Recipient,
		Message: msg.Body,
		Sender:  g.senderID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, g.apiURL+"/messages", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var result sendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Status != "success" {
		return fmt.Errorf("gateway rejected message: %s (%s)", result.Comment, result.ErrCode)
	}
	return nil
}
