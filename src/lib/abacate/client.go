// Package abacate is a thin client for the AbacatePay PIX charge API. It
// owns request shaping, the failure taxonomy and redaction of customer PII
// from log output.
package abacate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"qrpass/src/types"

	"github.com/shopspring/decimal"
)

const (
	createPath = "/v1/pixQrCode/create"
	checkPath  = "/v1/pixQrCode/check"

	// expiresIn accepted by the gateway, in seconds.
	chargeExpiry = 3600

	redacted = "***"
)

// Charge statuses reported by the gateway.
const (
	StatusPaid    = "PAID"
	StatusExpired = "EXPIRED"
	StatusPending = "PENDING"
)

type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: 15 * time.Second},
	}
}

type Customer struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	TaxID     string `json:"taxId"`
	Cellphone string `json:"cellphone"`
}

type CreateChargeRequest struct {
	Amount      decimal.Decimal
	Description string
	Customer    Customer
}

// Charge is the gateway record backing one ticket payment. BRCode is the
// textual payment code, BRCodeBase64 the QR image payload; both are shown
// to the payer and discarded once the charge settles.
type Charge struct {
	ID           string `json:"id"`
	BRCode       string `json:"brCode"`
	BRCodeBase64 string `json:"brCodeBase64"`
}

type createPayload struct {
	Amount      int64    `json:"amount"`
	ExpiresIn   int      `json:"expiresIn"`
	Description string   `json:"description"`
	Customer    Customer `json:"customer"`
}

// CreateCharge opens a new charge. The amount is converted to integer
// minor-currency units here; zero, negative and sub-cent amounts never
// reach the wire.
func (c *Client) CreateCharge(ctx context.Context, req CreateChargeRequest) (*Charge, error) {
	shifted := req.Amount.Shift(2)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("CreateCharge: amount %s is not a whole number of cents: %w", req.Amount, types.ErrGatewayRejected)
	}
	cents := shifted.IntPart()
	if cents <= 0 {
		return nil, fmt.Errorf("CreateCharge: amount %s is not positive: %w", req.Amount, types.ErrGatewayRejected)
	}

	payload := createPayload{
		Amount:      cents,
		ExpiresIn:   chargeExpiry,
		Description: req.Description,
		Customer:    req.Customer,
	}
	logged := payload
	logged.Customer = Customer{Name: payload.Customer.Name, Email: redacted, TaxID: redacted, Cellphone: redacted}
	if b, err := json.Marshal(logged); err == nil {
		log.Printf("[Abacate] create charge payload: %s\n", b)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("CreateCharge: json.Marshal: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createPath, bytes.NewBuffer(b))
	if err != nil {
		return nil, fmt.Errorf("CreateCharge: http.NewRequestWithContext: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("CreateCharge: %v: %w", err, types.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	if err := checkStatus("CreateCharge", resp); err != nil {
		return nil, err
	}

	var reply struct {
		Data Charge `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return nil, fmt.Errorf("CreateCharge: json.Decode: %w", err)
	}
	if reply.Data.ID == "" || reply.Data.BRCode == "" || reply.Data.BRCodeBase64 == "" {
		return nil, fmt.Errorf("CreateCharge: incomplete gateway response (id/brCode missing): %w", types.ErrGatewayUnavailable)
	}
	return &reply.Data, nil
}

// QueryStatus fetches the current status of a previously created charge.
func (c *Client) QueryStatus(ctx context.Context, chargeID string) (string, error) {
	q := url.Values{}
	q.Set("id", chargeID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+checkPath+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("QueryStatus: http.NewRequestWithContext: %w", err)
	}
	c.setHeaders(httpReq)
	log.Printf("[Abacate] query status for charge: %s\n", chargeID)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("QueryStatus: %v: %w", err, types.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	if err := checkStatus("QueryStatus", resp); err != nil {
		return "", err
	}

	var reply struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", fmt.Errorf("QueryStatus: json.Decode: %w", err)
	}
	if reply.Data.Status == "" {
		return "", fmt.Errorf("QueryStatus: incomplete gateway response (status missing): %w", types.ErrGatewayUnavailable)
	}
	return reply.Data.Status, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func checkStatus(op string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 500:
		rbody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: resp.StatusCode: %d, resp.Body: %s: %w", op, resp.StatusCode, rbody, types.ErrGatewayUnavailable)
	default:
		rbody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: resp.StatusCode: %d, resp.Body: %s: %w", op, resp.StatusCode, rbody, types.ErrGatewayRejected)
	}
}
