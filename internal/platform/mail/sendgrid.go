package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const DefaultSendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

// SendGridNotifier sends mail through the SendGrid v3 HTTP API.
type SendGridNotifier struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewSendGridNotifier(cfg Config, client *http.Client) *SendGridNotifier {
	endpoint := cfg.SendGridEndpoint
	if endpoint == "" {
		endpoint = DefaultSendGridEndpoint
	}
	return &SendGridNotifier{
		apiKey:   cfg.SendGridAPIKey,
		endpoint: endpoint,
		client:   client,
	}
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

func (n *SendGridNotifier) Send(ctx context.Context, subject, body, from string, to []string) error {
	if len(to) == 0 {
		return errors.New("mail: no recipients")
	}

	recipients := make([]sgAddress, len(to))
	for i, addr := range to {
		recipients[i] = sgAddress{Email: addr}
	}
	payload, err := json.Marshal(sgPayload{
		Personalizations: []sgPersonalization{{To: recipients}},
		From:             sgAddress{Email: from},
		Subject:          subject,
		Content:          []sgContent{{Type: "text/plain", Value: body}},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sendgrid payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
