package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Transport sends protocol events into a room. Implementations talk to the
// homeserver; tests use an in-memory fake.
type Transport interface {
	// SendStateEvent replaces the room state entry for (eventType, stateKey).
	SendStateEvent(ctx context.Context, roomID, eventType, stateKey string, content interface{}) (eventID string, err error)
	// SendMessageEvent appends a timeline event of the given type.
	SendMessageEvent(ctx context.Context, roomID, eventType string, content interface{}) (eventID string, err error)
}

// Client is a minimal client-server API transport. It only covers the two
// send paths the protocol needs; sync, crypto and media stay with the host
// application.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      zerolog.Logger
}

func NewClient(baseURL, accessToken string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger.With().Str("component", "matrix_client").Logger(),
	}
}

type sendResponse struct {
	EventID string `json:"event_id"`
}

type errorResponse struct {
	ErrCode string `json:"errcode"`
	Error   string `json:"error"`
}

func (c *Client) SendStateEvent(ctx context.Context, roomID, eventType, stateKey string, content interface{}) (string, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/state/%s/%s",
		url.PathEscape(roomID), url.PathEscape(eventType), url.PathEscape(stateKey))
	return c.put(ctx, path, content)
}

func (c *Client) SendMessageEvent(ctx context.Context, roomID, eventType string, content interface{}) (string, error) {
	txnID := uuid.New().String()
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/send/%s/%s",
		url.PathEscape(roomID), url.PathEscape(eventType), url.PathEscape(txnID))
	return c.put(ctx, path, content)
}

func (c *Client) put(ctx context.Context, path string, content interface{}) (string, error) {
	body, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("marshal event content: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send event: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.ErrCode != "" {
			c.logger.Warn().
				Str("errcode", apiErr.ErrCode).
				Int("status", resp.StatusCode).
				Msg("homeserver rejected event")
			return "", fmt.Errorf("homeserver error %s: %s", apiErr.ErrCode, apiErr.Error)
		}
		return "", fmt.Errorf("homeserver returned status %d", resp.StatusCode)
	}

	var sr sendResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return "", fmt.Errorf("decode send response: %w", err)
	}
	return sr.EventID, nil
}
