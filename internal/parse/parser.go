// Package parse turns receipt photographs into structured receipts via an
// external parsing service. The parsing backends are thin I/O wrappers; all
// collaborative state lives elsewhere.
package parse

import (
	"context"
	"fmt"

	"github.com/tabshare/tabshare/internal/store"
	"github.com/tabshare/tabshare/pkg/utils"
)

// Parsing modes selected by RECEIPT_PARSING_MODE
const (
	ModeGPT    = "GPT"
	ModeVeryfi = "VERYFI"
	ModeSample = "SAMPLE"
)

// Vendor identifies the merchant on a parsed receipt
type Vendor struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Address string `json:"address" yaml:"address"`
}

// LineItem is one parsed receipt line before any collaborative state is
// attached
type LineItem struct {
	Quantity    float64 `json:"quantity" yaml:"quantity"`
	Description string  `json:"description" yaml:"description"`
	Total       float64 `json:"total" yaml:"total"`
}

// Receipt is the normalized output of every parsing backend
type Receipt struct {
	Vendor    Vendor     `json:"vendor" yaml:"vendor"`
	LineItems []LineItem `json:"line_items" yaml:"line_items"`
	Subtotal  float64    `json:"subtotal" yaml:"subtotal"`
	Tax       float64    `json:"tax" yaml:"tax"`
	Tip       float64    `json:"tip" yaml:"tip"`
	Total     float64    `json:"total" yaml:"total"`
}

// Parser parses a base64-encoded receipt image into a normalized receipt
type Parser interface {
	Parse(ctx context.Context, imageData string) (*Receipt, error)
}

// New creates the parser selected by the configuration
func New(cfg *utils.Config) (Parser, error) {
	mode := cfg.GetWithDefault("RECEIPT_PARSING_MODE", ModeSample)

	switch mode {
	case ModeGPT:
		apiKey := cfg.Get("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set in config or environment")
		}
		return NewGPTParser(apiKey, cfg.Get("OPENAI_MODEL")), nil

	case ModeVeryfi:
		clientID := cfg.Get("VERYFI_CLIENT_ID")
		username := cfg.Get("VERYFI_USERNAME")
		apiKey := cfg.Get("VERYFI_API_KEY")
		if clientID == "" || username == "" || apiKey == "" {
			return nil, fmt.Errorf("VERYFI_CLIENT_ID, VERYFI_USERNAME, and VERYFI_API_KEY must be set")
		}
		return NewVeryfiParser(clientID, username, apiKey), nil

	case ModeSample:
		return NewSampleParser(cfg.GetWithDefault("SAMPLE_RECEIPT_FILE", "samples/receipt.yaml")), nil

	default:
		return nil, fmt.Errorf("unsupported parsing mode: %s", mode)
	}
}

// ToSession converts a parsed receipt into a storable session with every
// line item starting unclaimed and unpaid
func (r *Receipt) ToSession() *store.Session {
	session := &store.Session{
		MerchantName:    r.Vendor.Name,
		MerchantType:    r.Vendor.Type,
		MerchantAddress: r.Vendor.Address,
		Subtotal:        r.Subtotal,
		Tax:             r.Tax,
		Tip:             r.Tip,
		Total:           r.Total,
	}

	for _, item := range r.LineItems {
		if item.Total == 0 && item.Description == "" {
			continue
		}
		session.Items = append(session.Items, store.LineItem{
			Quantity:    item.Quantity,
			Description: item.Description,
			Price:       item.Total,
		})
	}

	return session
}
