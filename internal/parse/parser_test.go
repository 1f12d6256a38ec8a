package parse

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabshare/tabshare/pkg/utils"
)

func TestSampleParser(t *testing.T) {
	parser := NewSampleParser("../../samples/receipt.yaml")

	receipt, err := parser.Parse(context.Background(), "ignored")
	require.NoError(t, err)

	assert.Equal(t, "Pusu Izakaya", receipt.Vendor.Name)
	assert.Len(t, receipt.LineItems, 5)
	assert.Equal(t, 73.00, receipt.Subtotal)
	assert.Equal(t, 94.08, receipt.Total)

	t.Run("missing fixture", func(t *testing.T) {
		_, err := NewSampleParser("nope.yaml").Parse(context.Background(), "")
		assert.Error(t, err)
	})
}

func TestReceiptToSession(t *testing.T) {
	receipt := &Receipt{
		Vendor: Vendor{Name: "Diner", Type: "restaurant", Address: "1 Main St"},
		LineItems: []LineItem{
			{Quantity: 1, Description: "Burger", Total: 12.00},
			{}, // blank OCR line, should be dropped
			{Quantity: 2, Description: "Fries", Total: 8.00},
		},
		Subtotal: 20.00,
		Tax:      1.80,
		Tip:      4.00,
		Total:    25.80,
	}

	session := receipt.ToSession()

	assert.Equal(t, "Diner", session.MerchantName)
	assert.Equal(t, 25.80, session.Total)
	require.Len(t, session.Items, 2)
	assert.Equal(t, "Burger", session.Items[0].Description)
	assert.Equal(t, 8.00, session.Items[1].Price)
	for _, item := range session.Items {
		assert.False(t, item.IsChecked)
		assert.False(t, item.IsPaid)
		assert.Empty(t, item.Claims)
	}
}

func TestNew(t *testing.T) {
	t.Run("defaults to the sample parser", func(t *testing.T) {
		parser, err := New(utils.NewConfig(nil))
		require.NoError(t, err)
		assert.IsType(t, &SampleParser{}, parser)
	})

	t.Run("gpt requires an api key", func(t *testing.T) {
		cfg := utils.NewConfig(map[string]string{"RECEIPT_PARSING_MODE": ModeGPT})
		_, err := New(cfg)
		assert.Error(t, err)
	})

	t.Run("veryfi requires full credentials", func(t *testing.T) {
		cfg := utils.NewConfig(map[string]string{
			"RECEIPT_PARSING_MODE": ModeVeryfi,
			"VERYFI_CLIENT_ID":     "id",
		})
		_, err := New(cfg)
		assert.Error(t, err)
	})

	t.Run("unknown mode", func(t *testing.T) {
		cfg := utils.NewConfig(map[string]string{"RECEIPT_PARSING_MODE": "CARRIER-PIGEON"})
		_, err := New(cfg)
		assert.Error(t, err)
	})

	t.Run("sample path comes from config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "receipt.yaml")
		require.NoError(t, os.WriteFile(path, []byte("subtotal: 1.00\ntotal: 1.00\n"), 0644))

		cfg := utils.NewConfig(map[string]string{
			"RECEIPT_PARSING_MODE": ModeSample,
			"SAMPLE_RECEIPT_FILE":  path,
		})
		parser, err := New(cfg)
		require.NoError(t, err)

		receipt, err := parser.Parse(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, 1.00, receipt.Total)
	})
}
