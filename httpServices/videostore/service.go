package videostore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client talks to the hosted video store. Two upload modes are supported:
// a single-shot direct upload and a resumable chunked protocol using
// Upload-Offset headers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (c *Client) newRequest(method, path string, body *bytes.Buffer) (*http.Request, error) {
	if body == nil {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// DirectUpload pushes a whole video in one request.
func (c *Client) DirectUpload(fileName, contentType string, data []byte) (*UploadResult, error) {
	req, err := c.newRequest(http.MethodPost, "/v1/videos?file_name="+fileName, bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.New("video store upload returned non-OK status: " + resp.Status)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateResumableUpload opens a chunked upload session for a file of the
// given total size.
func (c *Client) CreateResumableUpload(fileName string, totalSize int64) (*UploadSession, error) {
	req, err := c.newRequest(http.MethodPost, "/v1/videos/uploads", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Upload-Length", strconv.FormatInt(totalSize, 10))
	req.Header.Set("Upload-Metadata", "filename "+fileName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, errors.New("video store session create returned non-OK status: " + resp.Status)
	}

	location := resp.Header.Get("Location")
	uploadID := location
	if idx := strings.LastIndex(location, "/"); idx >= 0 {
		uploadID = location[idx+1:]
	}
	if uploadID == "" {
		return nil, errors.New("video store session create returned no Location header")
	}

	return &UploadSession{
		UploadID:  uploadID,
		Location:  location,
		Offset:    0,
		TotalSize: totalSize,
	}, nil
}

// UploadChunk appends a chunk at the given offset. The returned value is the
// next expected offset as reported by the store.
func (c *Client) UploadChunk(uploadID string, offset int64, chunk []byte) (int64, error) {
	req, err := c.newRequest(http.MethodPatch, "/v1/videos/uploads/"+uploadID, bytes.NewBuffer(chunk))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/offset+octet-stream")
	req.Header.Set("Upload-Offset", strconv.FormatInt(offset, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return 0, fmt.Errorf("upload offset mismatch at %d", offset)
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return 0, errors.New("video store chunk upload returned non-OK status: " + resp.Status)
	}

	next, err := strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("video store returned invalid Upload-Offset: %w", err)
	}
	return next, nil
}

// CompleteResumableUpload finalizes a fully-uploaded session and returns the
// stored video's metadata.
func (c *Client) CompleteResumableUpload(uploadID string) (*UploadResult, error) {
	req, err := c.newRequest(http.MethodPost, "/v1/videos/uploads/"+uploadID+"/complete", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.New("video store complete returned non-OK status: " + resp.Status)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a video from the store.
func (c *Client) Delete(storagePath string) error {
	req, err := c.newRequest(http.MethodDelete, "/v1/videos/"+storagePath, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return errors.New("video store delete returned non-OK status: " + resp.Status)
	}
	return nil
}

// PublicURL derives the playback URL by convention.
func (c *Client) PublicURL(storagePath string) string {
	return c.baseURL + "/public/" + storagePath
}
