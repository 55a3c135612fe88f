package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SendGridSender posts one transactional email via SendGrid's v3
// mail/send endpoint. Constructing it with an empty API key, from
// address, or recipient yields a sender whose Send is a silent no-op —
// the spec treats a missing email configuration as "skip", not "fail".
type SendGridSender struct {
	apiKey     string
	fromEmail  string
	recipient  string
	httpClient *http.Client
}

func NewSendGridSender(apiKey, fromEmail, recipient string) *SendGridSender {
	return &SendGridSender{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		recipient:  recipient,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SendGridSender) configured() bool {
	return s.apiKey != "" && s.fromEmail != "" && s.recipient != ""
}

func (s *SendGridSender) Send(ctx context.Context, subject, body string) error {
	if !s.configured() {
		return nil
	}

	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": s.recipient}}},
		},
		"from":    map[string]string{"email": s.fromEmail},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": body},
		},
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode sendgrid payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.sendgrid.com/v3/mail/send", bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build sendgrid request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sendgrid request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
