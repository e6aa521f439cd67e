package usage_test

import (
	"testing"

	"github.com/voxterm/voxterm/pkg/usage"
)

func ip(v int) *int { return &v }

func TestNormalizeDerivesAggregates(t *testing.T) {
	tests := []struct {
		name    string
		summary *usage.Summary
		raw     string
		want    usage.Breakdown
	}{
		{
			name: "raw aggregates win over summary",
			summary: &usage.Summary{
				InputTokens: ip(1), OutputTokens: ip(1), TotalTokens: ip(2),
			},
			raw: `{"response":{"usage":{"input_tokens":10,"output_tokens":5,"total_tokens":15}}}`,
			want: usage.Breakdown{
				InputTextTokens: 10, InputTextNonCachedTokens: 10,
				OutputTextTokens: 5,
				InputTokens:      10, OutputTokens: 5, TotalTokens: 15,
			},
		},
		{
			name:    "missing input derived from total minus output",
			summary: &usage.Summary{OutputTokens: ip(5), TotalTokens: ip(15)},
			want: usage.Breakdown{
				InputTextTokens: 10, InputTextNonCachedTokens: 10,
				OutputTextTokens: 5,
				InputTokens:      10, OutputTokens: 5, TotalTokens: 15,
			},
		},
		{
			name:    "missing output derived from total minus input",
			summary: &usage.Summary{InputTokens: ip(10), TotalTokens: ip(15)},
			want: usage.Breakdown{
				InputTextTokens: 10, InputTextNonCachedTokens: 10,
				OutputTextTokens: 5,
				InputTokens:      10, OutputTokens: 5, TotalTokens: 15,
			},
		},
		{
			name: "aggregates derived from detail counters",
			raw: `{"response":{"usage":{
				"input_token_details":{"text_tokens":3,"audio_tokens":7},
				"output_token_details":{"text_tokens":2,"audio_tokens":4}}}}`,
			want: usage.Breakdown{
				InputTextTokens: 3, InputAudioTokens: 7,
				InputTextNonCachedTokens: 3, InputAudioNonCachedTokens: 7,
				OutputTextTokens: 2, OutputAudioTokens: 4,
				InputTokens:      10, OutputTokens: 6, TotalTokens: 16,
			},
		},
		{
			name: "camelCase detail counters accepted",
			raw: `{"response":{"usage":{
				"inputTokenDetails":{"textTokens":3,"audioTokens":7},
				"outputTokenDetails":{"textTokens":2,"audioTokens":4}}}}`,
			want: usage.Breakdown{
				InputTextTokens: 3, InputAudioTokens: 7,
				InputTextNonCachedTokens: 3, InputAudioNonCachedTokens: 7,
				OutputTextTokens: 2, OutputAudioTokens: 4,
				InputTokens:      10, OutputTokens: 6, TotalTokens: 16,
			},
		},
		{
			name:    "aggregate without details attributed to text",
			summary: &usage.Summary{InputTokens: ip(8), OutputTokens: ip(4)},
			want: usage.Breakdown{
				InputTextTokens: 8, InputTextNonCachedTokens: 8,
				OutputTextTokens: 4,
				InputTokens:      8, OutputTokens: 4, TotalTokens: 12,
			},
		},
		{
			name: "empty input yields fully-defined zeros",
			want: usage.Breakdown{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usage.Normalize(tt.summary, []byte(tt.raw))
			if got != tt.want {
				t.Errorf("Normalize =\n%+v\nwant\n%+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeClampsCachedTokens(t *testing.T) {
	raw := `{"response":{"usage":{
		"input_token_details":{
			"text_tokens":4,"audio_tokens":2,
			"cached_tokens_details":{"text_tokens":100,"audio_tokens":50}},
		"output_token_details":{"text_tokens":1}}}}`

	got := usage.Normalize(nil, []byte(raw))
	if got.InputTextCachedTokens != 4 {
		t.Errorf("InputTextCachedTokens = %d, want clamped to 4", got.InputTextCachedTokens)
	}
	if got.InputAudioCachedTokens != 2 {
		t.Errorf("InputAudioCachedTokens = %d, want clamped to 2", got.InputAudioCachedTokens)
	}
	if got.InputTextNonCachedTokens != 0 || got.InputAudioNonCachedTokens != 0 {
		t.Errorf("non-cached = %d/%d, want 0/0",
			got.InputTextNonCachedTokens, got.InputAudioNonCachedTokens)
	}
}

func TestNormalizeIsPure(t *testing.T) {
	summary := &usage.Summary{InputTokens: ip(7)}
	raw := []byte(`{"response":{"usage":{"output_tokens":3}}}`)

	first := usage.Normalize(summary, raw)
	second := usage.Normalize(summary, raw)
	if first != second {
		t.Error("Normalize is not idempotent")
	}
	if *summary.InputTokens != 7 {
		t.Error("Normalize mutated its input")
	}
}

func TestNormalizeSubFieldSum(t *testing.T) {
	// inputTokens must equal inputTextTokens+inputAudioTokens and
	// totalTokens must equal inputTokens+outputTokens whenever the
	// aggregate was absent from the payload.
	raw := `{"response":{"usage":{
		"input_token_details":{"text_tokens":11,"audio_tokens":22},
		"output_token_details":{"audio_tokens":5}}}}`

	got := usage.Normalize(nil, []byte(raw))
	if got.InputTokens != got.InputTextTokens+got.InputAudioTokens {
		t.Errorf("InputTokens = %d, want %d", got.InputTokens, got.InputTextTokens+got.InputAudioTokens)
	}
	if got.TotalTokens != got.InputTokens+got.OutputTokens {
		t.Errorf("TotalTokens = %d, want %d", got.TotalTokens, got.InputTokens+got.OutputTokens)
	}
}

func TestEstimate(t *testing.T) {
	catalog := usage.DefaultCatalog()

	b := usage.Breakdown{
		InputTextNonCachedTokens:  1_000_000,
		InputAudioNonCachedTokens: 0,
		InputTextCachedTokens:     0,
		InputAudioCachedTokens:    0,
		OutputTextTokens:          1_000_000,
	}

	cost, ok := catalog.Estimate(b, "openai", "gpt-4o-realtime-preview")
	if !ok {
		t.Fatal("expected pricing for gpt-4o-realtime-preview")
	}
	if cost.Total != cost.Input+cost.CachedInput+cost.Output {
		t.Errorf("Total = %v, want sum of components", cost.Total)
	}
	if cost.Input != 5.00 || cost.Output != 20.00 {
		t.Errorf("Input/Output = %v/%v, want 5/20", cost.Input, cost.Output)
	}

	if _, ok := catalog.Estimate(b, "openai", "no-such-model"); ok {
		t.Error("expected no cost data for unknown model, got ok=true")
	}
	if _, ok := catalog.Estimate(b, "unknown", "gpt-4o-realtime-preview"); ok {
		t.Error("expected no cost data for unknown provider, got ok=true")
	}
}

func TestFormatUSD(t *testing.T) {
	if got := usage.FormatUSD(0.0012345); got != "$0.001235" {
		t.Errorf("FormatUSD = %q", got)
	}
	if got := usage.FormatUSD(0); got != "$0.000000" {
		t.Errorf("FormatUSD zero = %q", got)
	}
}
