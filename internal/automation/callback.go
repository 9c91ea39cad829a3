package automation

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrSecretNotConfigured = errors.New("webhook_secret_not_configured")
	ErrMissingSignature    = errors.New("missing_webhook_signature")
	ErrInvalidSignature    = errors.New("invalid_webhook_signature")
	ErrInvalidCallback     = errors.New("invalid_callback_payload")
)

// Callback is what the automation runner reports back after a workflow run.
type Callback struct {
	EventID    string         `json:"event_id"`
	Status     string         `json:"status"`
	WorkflowID string         `json:"workflow_id"`
	Data       map[string]any `json:"data,omitempty"`
}

// ParseCallback authenticates body against the configured signing secret
// before decoding it.
func (c *Client) ParseCallback(body []byte, signature string) (Callback, error) {
	secret := strings.TrimSpace(c.Settings().SigningSecret)
	if secret == "" {
		return Callback{}, ErrSecretNotConfigured
	}
	if strings.TrimSpace(signature) == "" {
		return Callback{}, ErrMissingSignature
	}
	if !VerifySignature(secret, body, signature) {
		return Callback{}, ErrInvalidSignature
	}
	var cb Callback
	if err := json.Unmarshal(body, &cb); err != nil {
		return Callback{}, ErrInvalidCallback
	}
	return cb, nil
}
