package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xmtea/whatsapp-bot/internal/logging"
	"github.com/xmtea/whatsapp-bot/internal/metrics"
)

const DefaultAPIBaseURL = "https://graph.facebook.com/v18.0"

var ErrSendFailed = errors.New("whatsapp send failed")

// Sender delivers outbound messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type ClientConfig struct {
	BaseURL       string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
}

// Client posts messages to the Cloud API messages endpoint
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	log      *slog.Logger
}

func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/" + cfg.PhoneNumberID + "/messages",
		token:    cfg.AccessToken,
		http:     httpClient,
		log:      logging.New("whatsapp"),
	}
}

func (c *Client) Send(ctx context.Context, msg Message) error {
	if err := c.send(ctx, msg); err != nil {
		metrics.OutboundMessages.WithLabelValues("error").Inc()
		c.log.Error("failed to send message", "to", msg.To, "type", msg.Type, "error", err)
		return err
	}
	metrics.OutboundMessages.WithLabelValues("ok").Inc()
	return nil
}

func (c *Client) send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrSendFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Deliver sends msgs in order and stops at the first failure so the user
// never sees a later message without the earlier one
func Deliver(ctx context.Context, s Sender, msgs []Message) error {
	for _, m := range msgs {
		if err := s.Send(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
