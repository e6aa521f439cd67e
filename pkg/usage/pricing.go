package usage

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed pricing.yaml
var defaultPricingYAML []byte

// Rates is the price of one million tokens, in USD, for each billable
// token category of a model.
type Rates struct {
	Input       ModalityRates `yaml:"input"`
	CachedInput ModalityRates `yaml:"cached_input"`
	Output      ModalityRates `yaml:"output"`
}

// ModalityRates splits a rate by text and audio tokens.
type ModalityRates struct {
	Text  float64 `yaml:"text"`
	Audio float64 `yaml:"audio"`
}

// Catalog maps provider → model → rates.
type Catalog map[string]map[string]Rates

// DefaultCatalog returns the pricing catalog embedded in the binary.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(defaultPricingYAML)
	if err != nil {
		// The embedded catalog is validated by tests; a parse failure
		// here is a build defect.
		panic(fmt.Sprintf("usage: embedded pricing catalog: %v", err))
	}
	return c
}

// ParseCatalog parses a YAML pricing catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var doc struct {
		Providers map[string]struct {
			Pricing map[string]Rates `yaml:"pricing"`
		} `yaml:"providers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("usage: parse pricing catalog: %w", err)
	}

	c := make(Catalog, len(doc.Providers))
	for provider, p := range doc.Providers {
		c[provider] = p.Pricing
	}
	return c, nil
}

// LoadCatalog reads a pricing catalog from a YAML file.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// Lookup returns the rates for a provider/model pair.
func (c Catalog) Lookup(provider, model string) (Rates, bool) {
	models, ok := c[provider]
	if !ok {
		return Rates{}, false
	}
	r, ok := models[model]
	return r, ok
}

// Cost is the estimated USD cost of one response, split by category.
type Cost struct {
	InputTextNonCached  float64
	InputAudioNonCached float64
	InputTextCached     float64
	InputAudioCached    float64
	OutputText          float64
	OutputAudio         float64
	Input               float64
	CachedInput         float64
	Output              float64
	Total               float64
}

const tokensPerUnit = 1_000_000

// Estimate computes the cost of a breakdown under the catalog's rates.
// It returns ok=false when the provider/model has no pricing entry:
// "no cost data" is distinct from a zero-dollar cost and callers must
// not conflate the two.
func (c Catalog) Estimate(b Breakdown, provider, model string) (Cost, bool) {
	rates, ok := c.Lookup(provider, model)
	if !ok {
		return Cost{}, false
	}

	cost := Cost{
		InputTextNonCached:  float64(b.InputTextNonCachedTokens) / tokensPerUnit * rates.Input.Text,
		InputAudioNonCached: float64(b.InputAudioNonCachedTokens) / tokensPerUnit * rates.Input.Audio,
		InputTextCached:     float64(b.InputTextCachedTokens) / tokensPerUnit * rates.CachedInput.Text,
		InputAudioCached:    float64(b.InputAudioCachedTokens) / tokensPerUnit * rates.CachedInput.Audio,
		OutputText:          float64(b.OutputTextTokens) / tokensPerUnit * rates.Output.Text,
		OutputAudio:         float64(b.OutputAudioTokens) / tokensPerUnit * rates.Output.Audio,
	}
	cost.Input = cost.InputTextNonCached + cost.InputAudioNonCached
	cost.CachedInput = cost.InputTextCached + cost.InputAudioCached
	cost.Output = cost.OutputText + cost.OutputAudio
	cost.Total = cost.Input + cost.CachedInput + cost.Output
	return cost, true
}

// FormatUSD formats a dollar value for terminal display with six decimal
// places, e.g. "$0.001234".
func FormatUSD(v float64) string {
	return fmt.Sprintf("$%.6f", v)
}
