package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const veryfiDocumentsURL = "https://api.veryfi.com/api/v8/partner/documents"

// VeryfiParser sends receipt images to the Veryfi OCR document API
type VeryfiParser struct {
	clientID string
	username string
	apiKey   string

	httpClient *http.Client
	url        string
}

// NewVeryfiParser creates a Veryfi-backed receipt parser
func NewVeryfiParser(clientID, username, apiKey string) *VeryfiParser {
	return &VeryfiParser{
		clientID:   clientID,
		username:   username,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		url:        veryfiDocumentsURL,
	}
}

// Parse uploads the receipt image and maps the Veryfi document response onto
// the normalized receipt
func (p *VeryfiParser) Parse(ctx context.Context, imageData string) (*Receipt, error) {
	body, err := json.Marshal(map[string]string{
		"file_name": "receipt.jpg",
		"file_data": imageData,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("CLIENT-ID", p.clientID)
	req.Header.Set("AUTHORIZATION", fmt.Sprintf("apikey %s:%s", p.username, p.apiKey))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("veryfi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("veryfi returned status %d: %s", resp.StatusCode, payload)
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("failed to decode veryfi response: %w", err)
	}

	return &receipt, nil
}
