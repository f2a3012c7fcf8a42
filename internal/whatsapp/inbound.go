package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xmtea/whatsapp-bot/internal/ordering"
)

const businessAccountObject = "whatsapp_business_account"

var (
	ErrUnsupportedObject = errors.New("unsupported webhook object")
	ErrMalformedPayload  = errors.New("malformed webhook payload")
)

// Webhook is the notification body the Cloud API posts to the webhook
type Webhook struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []InboundMessage `json:"messages"`
}

type InboundMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *TextBody           `json:"text,omitempty"`
	Interactive *InboundInteractive `json:"interactive,omitempty"`
	Button      *InboundButton      `json:"button,omitempty"`
}

type InboundInteractive struct {
	Type        string       `json:"type"`
	ListReply   *ReplyChoice `json:"list_reply,omitempty"`
	ButtonReply *ReplyChoice `json:"button_reply,omitempty"`
}

type ReplyChoice struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// InboundButton is a quick-reply button on a template message
type InboundButton struct {
	Payload string `json:"payload"`
	Text    string `json:"text"`
}

// Inbound is one user message translated into a router event
type Inbound struct {
	From      string
	MessageID string
	Event     ordering.Event
}

// ParseWebhook decodes a webhook body into router events. Messages that
// carry neither text nor a reply selection (media, reactions, status
// callbacks) are skipped.
func ParseWebhook(data []byte) ([]Inbound, error) {
	var w Webhook
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if w.Object != businessAccountObject {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedObject, w.Object)
	}

	var out []Inbound
	for _, entry := range w.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				ev, ok := toEvent(m)
				if !ok || m.From == "" {
					continue
				}
				out = append(out, Inbound{From: m.From, MessageID: m.ID, Event: ev})
			}
		}
	}
	return out, nil
}

// toEvent maps a message to a selection when it carries a reply id,
// otherwise to a text event
func toEvent(m InboundMessage) (ordering.Event, bool) {
	if in := m.Interactive; in != nil {
		if in.ListReply != nil && in.ListReply.ID != "" {
			return ordering.Selection(in.ListReply.ID), true
		}
		if in.ButtonReply != nil && in.ButtonReply.ID != "" {
			return ordering.Selection(in.ButtonReply.ID), true
		}
		return ordering.Event{}, false
	}
	if m.Button != nil && m.Button.Payload != "" {
		return ordering.Selection(m.Button.Payload), true
	}
	if m.Text != nil && strings.TrimSpace(m.Text.Body) != "" {
		return ordering.Text(m.Text.Body), true
	}
	return ordering.Event{}, false
}
