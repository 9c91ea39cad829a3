package automation

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/imobi360/internal/config"
	eventdomain "github.com/smallbiznis/imobi360/internal/event/domain"
	"go.uber.org/zap"
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderDelivery  = "X-Webhook-Delivery"

	userAgent = "iMobi360-CRM/1.0"
)

var (
	ErrNoWebhookURL = errors.New("automation_webhook_url_missing")
	ErrDisabled     = errors.New("automation_disabled")
)

// Payload is the JSON body posted to the automation runner.
type Payload struct {
	TenantID   string         `json:"tenant_id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	EventType  string         `json:"event_type"`
	EventID    string         `json:"event_id"`
	Payload    map[string]any `json:"payload"`
	Timestamp  string         `json:"timestamp"`
}

func PayloadFromEvent(e eventdomain.Event) Payload {
	body := map[string]any(e.Payload)
	if body == nil {
		body = map[string]any{}
	}
	return Payload{
		TenantID:   e.TenantID.String(),
		EntityType: e.EntityType,
		EntityID:   e.EntityID.String(),
		EventType:  e.EventType,
		EventID:    e.ID.String(),
		Payload:    body,
		Timestamp:  e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeRejected  Outcome = "rejected"
	OutcomeRetry     Outcome = "retry"
)

// Settled reports whether the event should be marked processed.
func (o Outcome) Settled() bool {
	return o == OutcomeDelivered || o == OutcomeRejected
}

var nonRetryableStatus = map[int]struct{}{
	http.StatusBadRequest:          {},
	http.StatusUnauthorized:        {},
	http.StatusForbidden:           {},
	http.StatusNotFound:            {},
	http.StatusUnprocessableEntity: {},
}

func Classify(status int) Outcome {
	if status >= 200 && status < 300 {
		return OutcomeDelivered
	}
	if _, ok := nonRetryableStatus[status]; ok {
		return OutcomeRejected
	}
	return OutcomeRetry
}

type Delivery struct {
	ID         string
	StatusCode int
	Outcome    Outcome
}

// Client posts signed payloads to the automation runner.
type Client struct {
	http   *resty.Client
	holder *config.AutomationHolder
	log    *zap.Logger
}

func NewClient(holder *config.AutomationHolder, log *zap.Logger) *Client {
	return &Client{
		http: resty.New().
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", userAgent),
		holder: holder,
		log:    log.Named("automation.client"),
	}
}

// Settings returns the current automation settings.
func (c *Client) Settings() config.AutomationConfig {
	if c.holder == nil {
		return config.DefaultAutomationConfig()
	}
	return c.holder.Get()
}

// Send posts payload to url, or to the configured webhook when url is empty.
// Transport failures return OutcomeRetry together with the error.
func (c *Client) Send(ctx context.Context, url string, payload Payload) (Delivery, error) {
	settings := c.Settings()
	url = strings.TrimSpace(url)
	if url == "" {
		url = settings.WebhookURL
	}
	if url == "" {
		return Delivery{Outcome: OutcomeRetry}, ErrNoWebhookURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Delivery{Outcome: OutcomeRejected}, err
	}

	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = config.DefaultAutomationConfig().Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delivery := Delivery{ID: ulid.Make().String()}
	req := c.http.R().
		SetContext(ctx).
		SetHeader(HeaderTimestamp, payload.Timestamp).
		SetHeader(HeaderDelivery, delivery.ID).
		SetBody(body)
	if secret := strings.TrimSpace(settings.SigningSecret); secret != "" {
		req.SetHeader(HeaderSignature, Sign(secret, body))
	}

	resp, err := req.Post(url)
	if err != nil {
		delivery.Outcome = OutcomeRetry
		return delivery, err
	}
	delivery.StatusCode = resp.StatusCode()
	delivery.Outcome = Classify(delivery.StatusCode)

	c.log.Debug("automation webhook sent",
		zap.String("delivery_id", delivery.ID),
		zap.String("event_id", payload.EventID),
		zap.Int("status", delivery.StatusCode),
		zap.String("outcome", string(delivery.Outcome)),
	)
	return delivery, nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, body)
	return hmac.Equal([]byte(strings.ToLower(strings.TrimSpace(signature))), []byte(expected))
}
