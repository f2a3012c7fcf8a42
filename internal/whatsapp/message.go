// Package whatsapp speaks the WhatsApp Cloud API: it parses webhook
// payloads, renders router directives into messages and sends them.
package whatsapp

// Cloud API limits for interactive messages
const (
	maxRowTitle       = 24
	maxRowDescription = 72
	maxSectionTitle   = 24
	maxButtonTitle    = 20
	maxListButton     = 20
	maxListRows       = 10
	maxReplyButtons   = 3
	maxHeaderText     = 60
	maxBodyText       = 1024
	maxFooterText     = 60
	messagingProduct  = "whatsapp"
	typeText          = "text"
	typeInteractive   = "interactive"
	interactiveList   = "list"
	interactiveButton = "button"
	replyButtonType   = "reply"
	headerTypeText    = "text"
)

// Message is an outbound Cloud API message. Exactly one of Text and
// Interactive is set, matching Type.
type Message struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *TextBody    `json:"text,omitempty"`
	Interactive      *Interactive `json:"interactive,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

type Interactive struct {
	Type   string  `json:"type"`
	Header *Header `json:"header,omitempty"`
	Body   Text    `json:"body"`
	Footer *Text   `json:"footer,omitempty"`
	Action Action  `json:"action"`
}

type Header struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Text struct {
	Text string `json:"text"`
}

// Action carries list sections (Button is the list opener label) or reply buttons
type Action struct {
	Button   string    `json:"button,omitempty"`
	Sections []Section `json:"sections,omitempty"`
	Buttons  []Button  `json:"buttons,omitempty"`
}

type Section struct {
	Title string `json:"title,omitempty"`
	Rows  []Row  `json:"rows"`
}

type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Button struct {
	Type  string      `json:"type"`
	Reply ButtonReply `json:"reply"`
}

type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NewText builds a plain text message
func NewText(to, body string) Message {
	return Message{
		MessagingProduct: messagingProduct,
		To:               to,
		Type:             typeText,
		Text:             &TextBody{Body: truncate(body, 4096)},
	}
}

// List describes an interactive list message before limits are applied
type List struct {
	Header   string
	Body     string
	Footer   string
	Button   string
	Sections []Section
}

// NewList builds an interactive list message. Titles are cut to the API
// limits and rows past the ten-row maximum are dropped.
func NewList(to string, l List) Message {
	in := &Interactive{
		Type:   interactiveList,
		Body:   Text{Text: truncate(l.Body, maxBodyText)},
		Action: Action{Button: truncate(l.Button, maxListButton)},
	}
	if l.Header != "" {
		in.Header = &Header{Type: headerTypeText, Text: truncate(l.Header, maxHeaderText)}
	}
	if l.Footer != "" {
		in.Footer = &Text{Text: truncate(l.Footer, maxFooterText)}
	}

	remaining := maxListRows
	for _, s := range l.Sections {
		if remaining == 0 {
			break
		}
		rows := make([]Row, 0, len(s.Rows))
		for _, r := range s.Rows {
			if remaining == 0 {
				break
			}
			rows = append(rows, Row{
				ID:          r.ID,
				Title:       truncate(r.Title, maxRowTitle),
				Description: truncate(r.Description, maxRowDescription),
			})
			remaining--
		}
		if len(rows) == 0 {
			continue
		}
		in.Action.Sections = append(in.Action.Sections, Section{Title: truncate(s.Title, maxSectionTitle), Rows: rows})
	}

	return Message{MessagingProduct: messagingProduct, To: to, Type: typeInteractive, Interactive: in}
}

// Buttons describes an interactive reply-button message
type Buttons struct {
	Header  string
	Body    string
	Footer  string
	Buttons []ButtonReply
}

// NewButtons builds a reply-button message with at most three buttons
func NewButtons(to string, b Buttons) Message {
	in := &Interactive{
		Type: interactiveButton,
		Body: Text{Text: truncate(b.Body, maxBodyText)},
	}
	if b.Header != "" {
		in.Header = &Header{Type: headerTypeText, Text: truncate(b.Header, maxHeaderText)}
	}
	if b.Footer != "" {
		in.Footer = &Text{Text: truncate(b.Footer, maxFooterText)}
	}
	for i, btn := range b.Buttons {
		if i == maxReplyButtons {
			break
		}
		in.Action.Buttons = append(in.Action.Buttons, Button{
			Type:  replyButtonType,
			Reply: ButtonReply{ID: btn.ID, Title: truncate(btn.Title, maxButtonTitle)},
		})
	}
	return Message{MessagingProduct: messagingProduct, To: to, Type: typeInteractive, Interactive: in}
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
