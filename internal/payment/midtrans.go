package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured means no server key is set. Callers degrade to a pending
// transaction with no QR instead of failing the order.
var ErrNotConfigured = errors.New("payment gateway not configured")

const defaultTimeout = 10 * time.Second

// Action is a method-specific follow-up link returned by the gateway
// (QR image, deeplink, redirect).
type Action struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ChargeRequest asks the gateway to open a charge for an order.
type ChargeRequest struct {
	Method      string
	ExternalID  string
	GrossAmount int64
}

// ChargeResponse is the gateway's answer: its own reference id plus any
// displayable actions.
type ChargeResponse struct {
	ExternalID string
	QRUrl      string
	Actions    []Action
}

// Client talks to a Midtrans-style core API: POST /v2/charge and
// GET /v2/{externalId}/status, authenticated with the server key.
type Client struct {
	baseURL   string
	serverKey string
	httpc     *http.Client
}

// NewClient creates a gateway client. serverKey may be empty; every call
// then returns ErrNotConfigured. Requests carry a bounded timeout so a slow
// gateway reads as "retry later", never as a hung order.
func NewClient(baseURL, serverKey string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		serverKey: serverKey,
		httpc:     &http.Client{Timeout: defaultTimeout},
	}
}

type chargePayload struct {
	PaymentType        string             `json:"payment_type"`
	TransactionDetails transactionDetails `json:"transaction_details"`
}

type transactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type chargeResponseBody struct {
	OrderID string   `json:"order_id"`
	Actions []Action `json:"actions"`
}

// Charge opens a charge and returns the reference id and action links.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	if c.serverKey == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(chargePayload{
		PaymentType: req.Method,
		TransactionDetails: transactionDetails{
			OrderID:     req.ExternalID,
			GrossAmount: req.GrossAmount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal charge: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/charge", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.authHeader())

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("charge: %w", err)
	}
	defer resp.Body.Close()

	var parsed chargeResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode charge response: %w", err)
	}

	out := &ChargeResponse{
		ExternalID: parsed.OrderID,
		Actions:    parsed.Actions,
	}
	if out.ExternalID == "" {
		out.ExternalID = req.ExternalID
	}
	for _, a := range parsed.Actions {
		if strings.Contains(strings.ToLower(a.Name), "qr") {
			out.QRUrl = a.URL
			break
		}
	}
	return out, nil
}

type statusResponseBody struct {
	TransactionStatus string `json:"transaction_status"`
}

// Status polls the gateway for a charge's transaction status.
func (c *Client) Status(ctx context.Context, externalID string) (string, error) {
	if c.serverKey == "" {
		return "", ErrNotConfigured
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/"+externalID+"/status", nil)
	if err != nil {
		return "", fmt.Errorf("build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.authHeader())

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("status: %w", err)
	}
	defer resp.Body.Close()

	var parsed statusResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode status response: %w", err)
	}
	return parsed.TransactionStatus, nil
}

// authHeader builds the Basic auth header Midtrans expects: the server key
// as username with an empty password.
func (c *Client) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.serverKey+":"))
}
