package mailer

import (
	"context"
	"encoding/json"
	"fmt"
)

const postmarkDefaultEndpoint = "https://api.postmarkapp.com"

// Postmark implements the Client interface for the Postmark email API.
type Postmark struct {
	serverToken string
	endpoint    string
	sender      string
	client      HTTPClient
}

// NewPostmark creates a Postmark client. An empty endpoint uses the
// production API.
func NewPostmark(serverToken, endpoint, sender string, client HTTPClient) *Postmark {
	if endpoint == "" {
		endpoint = postmarkDefaultEndpoint
	}
	return &Postmark{
		serverToken: serverToken,
		endpoint:    endpoint,
		sender:      sender,
		client:      client,
	}
}

func (p *Postmark) Name() string { return "postmark" }

// postmarkPayload matches the Postmark single-email JSON schema.
type postmarkPayload struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody"`
	HTMLBody string `json:"HtmlBody"`
}

// Send delivers a message via the Postmark email API.
func (p *Postmark) Send(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(postmarkPayload{
		From:     p.sender,
		To:       msg.To,
		Subject:  msg.Subject,
		TextBody: msg.TextBody,
		HTMLBody: msg.HTMLBody,
	})
	if err != nil {
		return fmt.Errorf("postmark: marshal request: %w", err)
	}

	resp, err := p.client.Do(ctx, &HTTPRequest{
		Method: "POST",
		URL:    p.endpoint + "/email",
		Headers: map[string]string{
			"Content-Type":            "application/json",
			"Accept":                  "application/json",
			"X-Postmark-Server-Token": p.serverToken,
		},
		Body: body,
	})
	if err != nil {
		return fmt.Errorf("postmark: send request: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return ClassifyHTTPError("postmark", resp.StatusCode, string(resp.Body))
}
