package notification

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"blog-publisher/domain/model"

	"github.com/go-resty/resty/v2"
)

const SignatureHeader = "X-Blog-Publisher-Signature"

// Webhook POSTs the event as JSON. When a secret is set the body is signed
// with HMAC-SHA256.
type Webhook struct {
	url    string
	secret string
	client *resty.Client
}

func NewWebhook(url, secret string, timeout time.Duration) *Webhook {
	c := resty.New()
	c.SetTimeout(timeout)
	return &Webhook{url: url, secret: secret, client: c}
}

func (w *Webhook) Notify(ctx context.Context, evt model.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Event-Type", evt.Type).
		SetBody(body)
	if w.secret != "" {
		req.SetHeader(SignatureHeader, Sign(w.secret, body))
	}
	resp, err := req.Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook response status %d: %s", resp.StatusCode(), snippet(resp.Body()))
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body, prefixed with the algorithm.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func snippet(body []byte) string {
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
