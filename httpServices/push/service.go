package push

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Client talks to the push-notification gateway. Sends are best-effort;
// callers log failures and move on.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (c *Client) post(path string, payload interface{}) (*SendResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.New("push gateway returned non-OK status: " + resp.Status)
	}

	var result SendResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Send delivers one message to a single device token.
func (c *Client) Send(msg Message) (*SendResult, error) {
	return c.post("/v1/push/send", msg)
}

// SendMulticast delivers one message to many device tokens in a single call.
func (c *Client) SendMulticast(msg MulticastMessage) (*SendResult, error) {
	if len(msg.Tokens) == 0 {
		return &SendResult{}, nil
	}
	return c.post("/v1/push/send-multicast", msg)
}
