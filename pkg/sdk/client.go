package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps calls to the tabshare backend for programmatic consumers
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// ParseReceipt uploads a base64-encoded receipt image and returns the new
// session id
func (c *Client) ParseReceipt(ctx context.Context, image string) (string, error) {
	var resp ApiResponse[ParseReceiptResponse]
	if err := c.doJSON(ctx, http.MethodPost, "/api/receipts", ParseReceiptRequest{Image: image}, &resp); err != nil {
		return "", err
	}
	return resp.Data.SessionID, nil
}

// GetReceipt fetches the full session view for a session id
func (c *Client) GetReceipt(ctx context.Context, sessionID string) (*ReceiptResponse, error) {
	var resp ApiResponse[ReceiptResponse]
	if err := c.doJSON(ctx, http.MethodGet, "/api/receipts/"+sessionID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// SetInitiator sets the owner's payout handles on a session
func (c *Client) SetInitiator(ctx context.Context, sessionID string, req SetInitiatorRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/receipts/"+sessionID+"/initiator", req, nil)
}

// SetTip overrides a session's tip amount
func (c *Client) SetTip(ctx context.Context, sessionID string, tip float64) error {
	return c.doJSON(ctx, http.MethodPost, "/api/receipts/"+sessionID+"/tip", SetTipRequest{Tip: tip}, nil)
}

// SetItemStatuses applies a partial status update to a batch of items
func (c *Client) SetItemStatuses(ctx context.Context, sessionID string, itemIDs []string, status ItemStatus) error {
	return c.doJSON(ctx, http.MethodPost, "/api/receipts/"+sessionID+"/items/status", BulkStatusRequest{
		ItemIDs: itemIDs,
		Status:  status,
	}, nil)
}

// GetQRCode fetches the join link and QR code for a session
func (c *Client) GetQRCode(ctx context.Context, sessionID string) (*QRCodeResponse, error) {
	var resp ApiResponse[QRCodeResponse]
	if err := c.doJSON(ctx, http.MethodGet, "/api/receipts/"+sessionID+"/qr", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// doJSON is a helper to perform JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	// Create the request
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	// Perform the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// On error, read body and return error
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend '%s %s' failed: %d: %s", method, path, resp.StatusCode, string(b))
	}

	// If no output expected, return early
	if out == nil {
		return nil
	}

	// Decode the response body into the output struct
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}
