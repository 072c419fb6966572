package mergeworker

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// MergeRequest asks the remote ffmpeg worker to concatenate two videos.
type MergeRequest struct {
	FirstURL  string `json:"first_url"`
	SecondURL string `json:"second_url"`
	OutputKey string `json:"output_key,omitempty"`
}

// MergeResult reports where the merged object landed.
type MergeResult struct {
	ObjectKey   string  `json:"object_key"`
	DurationSec float64 `json:"duration_sec"`
	SizeBytes   int64   `json:"size_bytes"`
}

// Client talks to the remote video-merge worker. Merges can take a while,
// so the timeout is generous.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		baseURL: baseURL,
	}
}

// Merge concatenates the two source videos and returns the merged object key.
func (c *Client) Merge(req MergeRequest) (*MergeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/merge", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.New("merge worker returned non-OK status: " + resp.Status)
	}

	var result MergeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if result.ObjectKey == "" {
		return nil, errors.New("merge worker returned empty object key")
	}

	return &result, nil
}
