// Package analysislink turns exception payloads into short analysis-page
// links by storing them through the compress endpoint.
package analysislink

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const payloadQueryParam = "payload"

var ErrCompressRejected = errors.New("compress endpoint rejected payload")

type Client struct {
	pageURL    *url.URL
	httpClient *http.Client
}

// New returns a client for the analysis page at pageURL. The compress
// endpoint is expected at <pageURL>/api/compress. A nil httpClient gets a
// 10 second timeout.
func New(pageURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse analysis page url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("analysis page url %q must be absolute", pageURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{pageURL: u, httpClient: httpClient}, nil
}

// Encode serialises v as JSON, gzips it and returns unpadded base64url text.
func Encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode into v.
func Decode(encoded string, v any) error {
	compressed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode base64: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("read gzip: %w", err)
	}
	return json.Unmarshal(raw, v)
}

type compressResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

// Shorten posts an already encoded payload and returns the content key.
func (c *Client) Shorten(ctx context.Context, encoded string) (string, error) {
	body, err := json.Marshal(map[string]string{payloadQueryParam: encoded})
	if err != nil {
		return "", err
	}

	endpoint := c.pageURL.JoinPath("api", "compress")
	endpoint.RawQuery = ""
	endpoint.Fragment = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call compress endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrCompressRejected, resp.StatusCode)
	}

	var out compressResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode compress response: %w", err)
	}
	if out.Code != 0 {
		return "", fmt.Errorf("%w: code %d: %s", ErrCompressRejected, out.Code, out.Message)
	}
	if out.Data == "" {
		return "", fmt.Errorf("%w: empty key", ErrCompressRejected)
	}
	return out.Data, nil
}

// BuildLink stores v and returns the analysis page URL with its query
// replaced by payload=<key>.
func (c *Client) BuildLink(ctx context.Context, v any) (string, error) {
	encoded, err := Encode(v)
	if err != nil {
		return "", err
	}
	key, err := c.Shorten(ctx, encoded)
	if err != nil {
		return "", err
	}

	link := *c.pageURL
	link.RawQuery = url.Values{payloadQueryParam: {key}}.Encode()
	return link.String(), nil
}
