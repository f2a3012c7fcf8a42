package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmtea/whatsapp-bot/internal/ordering"
)

const webhookBody = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA_ID",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "905550000000", "phone_number_id": "123"},
        "messages": [
          {"from": "905551112233", "id": "wamid.1", "timestamp": "1710000000", "type": "text", "text": {"body": "merhaba"}},
          {"from": "905551112233", "id": "wamid.2", "type": "interactive", "interactive": {"type": "list_reply", "list_reply": {"id": "prod_adana", "title": "Adana Kebap"}}},
          {"from": "905551112233", "id": "wamid.3", "type": "interactive", "interactive": {"type": "button_reply", "button_reply": {"id": "cart_checkout", "title": "Siparişi Tamamla"}}},
          {"from": "905551112233", "id": "wamid.4", "type": "image", "image": {"id": "media"}},
          {"from": "905554445566", "id": "wamid.5", "type": "button", "button": {"payload": "action_menu", "text": "Menü"}}
        ]
      }
    }]
  }]
}`

func TestParseWebhook(t *testing.T) {
	in, err := ParseWebhook([]byte(webhookBody))
	require.NoError(t, err)

	require.Len(t, in, 4, "image message is skipped")
	assert.Equal(t, Inbound{From: "905551112233", MessageID: "wamid.1", Event: ordering.Text("merhaba")}, in[0])
	assert.Equal(t, ordering.Selection("prod_adana"), in[1].Event)
	assert.Equal(t, ordering.Selection("cart_checkout"), in[2].Event)
	assert.Equal(t, "905554445566", in[3].From)
	assert.Equal(t, ordering.Selection("action_menu"), in[3].Event)
}

func TestParseWebhook_StatusCallbackHasNoEvents(t *testing.T) {
	body := `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{"statuses":[{"id":"wamid.1","status":"delivered"}]}}]}]}`

	in, err := ParseWebhook([]byte(body))

	require.NoError(t, err)
	assert.Empty(t, in)
}

func TestParseWebhook_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"not json", `{`, ErrMalformedPayload},
		{"other object", `{"object":"page","entry":[]}`, ErrUnsupportedObject},
		{"missing object", `{}`, ErrUnsupportedObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWebhook([]byte(tt.body))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseWebhook_BlankTextSkipped(t *testing.T) {
	body := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[
		{"from":"1","type":"text","text":{"body":"   "}},
		{"from":"","type":"text","text":{"body":"merhaba"}}
	]}}]}]}`

	in, err := ParseWebhook([]byte(body))

	require.NoError(t, err)
	assert.Empty(t, in)
}
