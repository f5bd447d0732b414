package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Client sends outbound messages to the chat gateway over HTTP.
// The gateway owns the platform connection; this client only speaks
// the internal JSON API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a gateway client with a pooled transport tuned for
// a single upstream host.
func NewClient(baseURL, token string) *Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
}

type sendTextRequest struct {
	ChatID   int64    `json:"chat_id"`
	Text     string   `json:"text"`
	Keyboard Keyboard `json:"keyboard,omitempty"`
}

type sendDocumentRequest struct {
	ChatID   int64  `json:"chat_id"`
	Filename string `json:"filename"`
	Caption  string `json:"caption,omitempty"`
	Data     string `json:"data"`
}

// SendText posts a text message, optionally with an inline keyboard.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, kb Keyboard) error {
	return c.post(ctx, "/send/text", sendTextRequest{
		ChatID:   chatID,
		Text:     text,
		Keyboard: kb,
	})
}

// SendDocument posts a binary attachment. The payload is base64 encoded
// so the whole request stays plain JSON.
func (c *Client) SendDocument(ctx context.Context, chatID int64, doc Document) error {
	return c.post(ctx, "/send/document", sendDocumentRequest{
		ChatID:   chatID,
		Filename: doc.Filename,
		Caption:  doc.Caption,
		Data:     base64.StdEncoding.EncodeToString(doc.Data),
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway %s returned %d: %s", path, resp.StatusCode, msg)
	}
	return nil
}
