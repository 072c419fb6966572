package paymentgw

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the hosted payment gateway. Authentication is Basic auth
// with the secret key as username and an empty password.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// NewClient builds a gateway client. The secret key must come from the
// environment; there is deliberately no test-key fallback.
func NewClient(baseURL, secretKey string) (*Client, error) {
	if secretKey == "" {
		return nil, errors.New("payment gateway secret key is required")
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:   baseURL,
		secretKey: secretKey,
	}, nil
}

func (c *Client) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.secretKey+":"))
}

func (c *Client) do(method, path string, payload interface{}) (*Payment, error) {
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	httpReq, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.authHeader())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Code != "" {
			return nil, fmt.Errorf("payment gateway error %s: %s", apiErr.Code, apiErr.Message)
		}
		return nil, errors.New("payment gateway returned non-OK status: " + resp.Status)
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, err
	}

	return &payment, nil
}

// Confirm captures an authorized payment.
func (c *Client) Confirm(req ConfirmRequest) (*Payment, error) {
	return c.do(http.MethodPost, "/v1/payments/confirm", req)
}

// Cancel cancels a captured payment. A nil CancelAmount cancels the full
// remaining amount.
func (c *Client) Cancel(paymentKey string, req CancelRequest) (*Payment, error) {
	return c.do(http.MethodPost, "/v1/payments/"+paymentKey+"/cancel", req)
}

// Inquire fetches the current gateway-side state of a payment.
func (c *Client) Inquire(paymentKey string) (*Payment, error) {
	return c.do(http.MethodGet, "/v1/payments/"+paymentKey, nil)
}
