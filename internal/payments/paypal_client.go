// Package payments integrates PayPal order create/capture for session
// packages.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// OrderClient is the PayPal surface the handler needs.
type OrderClient interface {
	CreateOrder(ctx context.Context, amount, currency, description string) (Order, error)
	CaptureOrder(ctx context.Context, orderID string) (Capture, error)
}

// Order is a created but not yet approved PayPal order.
type Order struct {
	OrderID    string `json:"orderId"`
	ApproveURL string `json:"approveUrl"`
}

// Capture is the result of capturing an approved order.
type Capture struct {
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	PayerEmail string `json:"payerEmail,omitempty"`
	PayerName  string `json:"payerName,omitempty"`
}

type paypalClient struct {
	clientID   string
	secret     string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPayPalClient creates a client for the PayPal Orders v2 API. An empty
// baseURL targets the sandbox.
func NewPayPalClient(clientID, secret, baseURL string, logger *logging.Logger) OrderClient {
	if logger == nil {
		logger = logging.Default()
	}
	if baseURL == "" {
		baseURL = "https://api-m.sandbox.paypal.com"
	}
	return &paypalClient{
		clientID:   clientID,
		secret:     secret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// token returns a cached client-credentials access token, refreshing when it
// is within a minute of expiry.
func (c *paypalClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal token: request build: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal token: http: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("paypal token: status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("paypal token: decode: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("paypal token: empty access token")
	}
	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func (c *paypalClient) do(ctx context.Context, method, path string, body any, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("paypal: encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("paypal: request build: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("paypal: status %d: %s %s", resp.StatusCode, apiErr.Name, apiErr.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("paypal: decode: %w", err)
	}
	return nil
}

// CreateOrder opens a PayPal order and returns its approval link.
func (c *paypalClient) CreateOrder(ctx context.Context, amount, currency, description string) (Order, error) {
	if amount == "" || currency == "" {
		return Order{}, fmt.Errorf("paypal: amount and currency required")
	}
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"description": description,
			"amount": map[string]string{
				"currency_code": currency,
				"value":         amount,
			},
		}},
	}
	var payload struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &payload); err != nil {
		return Order{}, err
	}

	order := Order{OrderID: payload.ID}
	for _, link := range payload.Links {
		if link.Rel == "approve" {
			order.ApproveURL = link.Href
		}
	}
	c.logger.Info("paypal order created", "orderId", order.OrderID)
	return order, nil
}

// CaptureOrder captures an approved order.
func (c *paypalClient) CaptureOrder(ctx context.Context, orderID string) (Capture, error) {
	if orderID == "" {
		return Capture{}, fmt.Errorf("paypal: order id required")
	}
	var payload struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Payer  struct {
			EmailAddress string `json:"email_address"`
			Name         struct {
				GivenName string `json:"given_name"`
				Surname   string `json:"surname"`
			} `json:"name"`
		} `json:"payer"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", map[string]any{}, &payload); err != nil {
		return Capture{}, err
	}

	capture := Capture{
		OrderID:    payload.ID,
		Status:     payload.Status,
		PayerEmail: payload.Payer.EmailAddress,
		PayerName:  strings.TrimSpace(payload.Payer.Name.GivenName + " " + payload.Payer.Name.Surname),
	}
	c.logger.Info("paypal order captured", "orderId", capture.OrderID, "status", capture.Status)
	return capture, nil
}
