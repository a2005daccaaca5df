package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BrevoSender envía correos transaccionales vía la API HTTP de Brevo.
type BrevoSender struct {
	baseURL  string
	apiKey   string
	from     string
	fromName string
	client   *http.Client
}

// NewBrevoSender construye un cliente apuntando a la API de smtp/email.
func NewBrevoSender(baseURL, apiKey, from, fromName string) (*BrevoSender, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("brevo api key is required")
	}
	if !strings.Contains(from, "@") {
		return nil, fmt.Errorf("mail from must be an email address, got %q", from)
	}
	if baseURL == "" {
		baseURL = "https://api.brevo.com/v3"
	}
	return &BrevoSender{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		from:     from,
		fromName: fromName,
		client:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (s *BrevoSender) Send(ctx context.Context, toEmail, subject, htmlBody string) error {
	if !strings.Contains(toEmail, "@") {
		return fmt.Errorf("invalid recipient email: %q", toEmail)
	}

	reqBody := brevoRequest{
		Subject:     subject,
		HTMLContent: htmlBody,
		Sender:      brevoParty{Name: s.fromName, Email: s.from},
		To:          []brevoParty{{Email: toEmail}},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/smtp/email", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var br brevoError
		if json.Unmarshal(respBody, &br) == nil && br.Message != "" {
			return fmt.Errorf("brevo api error: status=%d code=%s message=%s", resp.StatusCode, br.Code, br.Message)
		}
		return fmt.Errorf("brevo http error: status=%d", resp.StatusCode)
	}

	return nil
}

type brevoRequest struct {
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
	Sender      brevoParty   `json:"sender"`
	To          []brevoParty `json:"to"`
}

type brevoParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
