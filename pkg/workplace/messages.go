package workplace

import (
	"context"
	"net/http"
)

// SendText sends a plain text message to recipientID.
func (c *Client) SendText(ctx context.Context, recipientID, text string) (SendResult, error) {
	return c.send(ctx, "send_text", sendRequest{
		Recipient: recipient{ID: recipientID},
		Message:   outboundMessage{Text: text},
	})
}

// SendButtonPrompt sends a button template with a single postback button.
func (c *Client) SendButtonPrompt(ctx context.Context, recipientID, text, label, payload string) (SendResult, error) {
	return c.send(ctx, "send_button", sendRequest{
		Recipient: recipient{ID: recipientID},
		Message: outboundMessage{
			Attachment: &attachment{
				Type: "template",
				Payload: templatePayload{
					TemplateType: "button",
					Text:         text,
					Buttons: []button{{
						Type:    "postback",
						Title:   label,
						Payload: payload,
					}},
				},
			},
		},
	})
}

func (c *Client) send(ctx context.Context, op string, req sendRequest) (SendResult, error) {
	var out SendResult
	if err := c.do(ctx, op, http.MethodPost, "/me/messages", nil, req, &out); err != nil {
		return SendResult{}, err
	}
	return out, nil
}
