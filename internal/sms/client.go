package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"libraryadmin/internal/apperrors"
	"libraryadmin/internal/config"
	"libraryadmin/internal/logger"
	"libraryadmin/internal/metrics"
)

// Sender delivers a text message to one or more numbers.
type Sender interface {
	Send(ctx context.Context, numbers []string, body string) error
}

// Client calls the Fast2SMS bulk API.
type Client struct {
	BaseURL  string
	APIKey   string
	SenderID string
	Route    string
	HTTP     *http.Client
	Skip     bool
}

var _ Sender = (*Client)(nil)

// New creates a client from config.
func New(cfg config.SMS) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:   cfg.APIKey,
		SenderID: cfg.SenderID,
		Route:    cfg.Route,
		Skip:     cfg.Skip,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type bulkRequest struct {
	Route    string `json:"route"`
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
	Language string `json:"language"`
	Flash    int    `json:"flash"`
	Numbers  string `json:"numbers"`
}

type bulkResponse struct {
	Return    bool            `json:"return"`
	RequestID string          `json:"request_id"`
	Message   json.RawMessage `json:"message"`
}

// Send posts one bulk request. A transport failure, a non-2xx status or return=false is a
// gateway error. Nothing is retried.
func (c *Client) Send(ctx context.Context, numbers []string, body string) error {
	if len(numbers) == 0 || strings.TrimSpace(body) == "" {
		return apperrors.Validation("mobile number and message are required")
	}
	if c.Skip {
		logger.Info().Strs("numbers", numbers).Str("message", body).Msg("sms skipped")
		metrics.SMSDispatch.WithLabelValues("skipped").Inc()
		return nil
	}

	payload, _ := json.Marshal(bulkRequest{
		Route:    c.Route,
		SenderID: c.SenderID,
		Message:  body,
		Language: "english",
		Flash:    0,
		Numbers:  strings.Join(numbers, ","),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/dev/bulkV2", bytes.NewReader(payload))
	if err != nil {
		return apperrors.Gateway("build sms request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorization", c.APIKey)

	err = c.do(req)
	if err != nil {
		metrics.SMSDispatch.WithLabelValues("failed").Inc()
		return err
	}
	metrics.SMSDispatch.WithLabelValues("sent").Inc()
	return nil
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return apperrors.Gateway("failed to send message", fmt.Errorf("sms gateway request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return apperrors.Gateway("failed to send message", fmt.Errorf("sms gateway error %s: %s", resp.Status, string(raw)))
	}
	var out bulkResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return apperrors.Gateway("failed to send message", fmt.Errorf("decode sms response: %w", err))
	}
	if !out.Return {
		return apperrors.Gateway("failed to send message", fmt.Errorf("sms gateway rejected request: %s", string(out.Message)))
	}
	return nil
}

// Wallet returns the remaining account balance; it doubles as a credential check.
func (c *Client) Wallet(ctx context.Context) (float64, error) {
	if c.Skip {
		return 0, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/dev/wallet", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("authorization", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sms gateway unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("sms gateway unhealthy: %s", resp.Status)
	}

	var out struct {
		Return bool        `json:"return"`
		Wallet json.Number `json:"wallet"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if !out.Return {
		return 0, fmt.Errorf("sms gateway rejected credentials")
	}
	return strconv.ParseFloat(out.Wallet.String(), 64)
}
