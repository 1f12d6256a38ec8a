package parse

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SampleParser returns a fixture receipt instead of calling a parsing
// service. Used for local development and tests.
type SampleParser struct {
	path string
}

// NewSampleParser creates a parser that loads the receipt from a YAML file
func NewSampleParser(path string) *SampleParser {
	return &SampleParser{path: path}
}

// Parse ignores the image and loads the fixture receipt
func (p *SampleParser) Parse(ctx context.Context, imageData string) (*Receipt, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample receipt: %w", err)
	}

	var receipt Receipt
	if err := yaml.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("failed to parse sample receipt: %w", err)
	}

	return &receipt, nil
}
