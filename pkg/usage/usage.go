// Package usage normalizes provider token telemetry into a stable
// breakdown and estimates conversation cost from a pricing catalog.
//
// Realtime providers report usage loosely: the aggregate counters, the
// text/audio detail counters, or both may be missing, and field names
// drift between snake_case and camelCase. Normalize tolerates all of
// that and always produces a fully-defined Breakdown; it never reports
// zero usage when any signal exists in the input.
package usage

import (
	"encoding/json"
	"math"
)

// Summary is the terse aggregate summary attached to a persisted turn.
// Nil pointers mean the provider never reported the field; zero is a
// reported value.
type Summary struct {
	InputTokens  *int `json:"input_tokens,omitempty" msgpack:"input_tokens,omitempty"`
	OutputTokens *int `json:"output_tokens,omitempty" msgpack:"output_tokens,omitempty"`
	TotalTokens  *int `json:"total_tokens,omitempty" msgpack:"total_tokens,omitempty"`
}

// Breakdown is the canonical token accounting for one response. Every
// field is always defined; absent telemetry normalizes to zero.
//
// Invariant: cached counts never exceed the corresponding totals, and
// NonCached = total - cached for each modality.
type Breakdown struct {
	InputTextTokens           int
	InputAudioTokens          int
	InputTextNonCachedTokens  int
	InputAudioNonCachedTokens int
	InputTextCachedTokens     int
	InputAudioCachedTokens    int
	OutputTextTokens          int
	OutputAudioTokens         int
	InputTokens               int
	OutputTokens              int
	TotalTokens               int
}

// Normalize produces a Breakdown from a terse summary and the raw
// response.done payload, either of which may be nil/empty.
//
// Aggregates are resolved in priority order: raw-response counters win
// over the summary; a missing aggregate is derived from the other two;
// failing that, aggregates are derived from the detail counters. When an
// aggregate is known but no detail counters exist, the whole aggregate
// is attributed to the text category. The function is pure: same input,
// same output, inputs never mutated.
func Normalize(summary *Summary, raw []byte) Breakdown {
	rawUsage := rawResponseUsage(raw)
	inputDetails := childMap(rawUsage, "input_token_details", "inputTokenDetails")
	outputDetails := childMap(rawUsage, "output_token_details", "outputTokenDetails")
	cachedDetails := childMap(inputDetails, "cached_tokens_details", "cachedTokenDetails")

	inputText := intOrZero(intField(inputDetails, "text_tokens", "textTokens"))
	inputAudio := intOrZero(intField(inputDetails, "audio_tokens", "audioTokens"))
	outputText := intOrZero(intField(outputDetails, "text_tokens", "textTokens"))
	outputAudio := intOrZero(intField(outputDetails, "audio_tokens", "audioTokens"))
	cachedText := intOrZero(intField(cachedDetails, "text_tokens", "textTokens"))
	cachedAudio := intOrZero(intField(cachedDetails, "audio_tokens", "audioTokens"))

	input := firstInt(
		intField(rawUsage, "input_tokens", "prompt_tokens"),
		summaryField(summary, func(s *Summary) *int { return s.InputTokens }),
	)
	output := firstInt(
		intField(rawUsage, "output_tokens", "completion_tokens"),
		summaryField(summary, func(s *Summary) *int { return s.OutputTokens }),
	)
	total := firstInt(
		intField(rawUsage, "total_tokens"),
		summaryField(summary, func(s *Summary) *int { return s.TotalTokens }),
	)

	// Derive any one missing aggregate from the other two.
	if input == nil && total != nil && output != nil {
		input = intPtr(max(0, *total-*output))
	}
	if output == nil && total != nil && input != nil {
		output = intPtr(max(0, *total-*input))
	}
	if total == nil && input != nil && output != nil {
		total = intPtr(*input + *output)
	}

	// Fall back to detail counters when aggregates are entirely absent.
	if input == nil {
		input = intPtr(inputText + inputAudio)
	}
	if output == nil {
		output = intPtr(outputText + outputAudio)
	}
	if total == nil {
		total = intPtr(*input + *output)
	}

	// With no detail counters at all, attribute the aggregate to text so
	// a known signal is never silently dropped.
	if inputText == 0 && inputAudio == 0 && *input > 0 {
		inputText = *input
	}
	if outputText == 0 && outputAudio == 0 && *output > 0 {
		outputText = *output
	}

	cachedText = min(cachedText, inputText)
	cachedAudio = min(cachedAudio, inputAudio)

	return Breakdown{
		InputTextTokens:           inputText,
		InputAudioTokens:          inputAudio,
		InputTextNonCachedTokens:  inputText - cachedText,
		InputAudioNonCachedTokens: inputAudio - cachedAudio,
		InputTextCachedTokens:     cachedText,
		InputAudioCachedTokens:    cachedAudio,
		OutputTextTokens:          outputText,
		OutputAudioTokens:         outputAudio,
		InputTokens:               *input,
		OutputTokens:              *output,
		TotalTokens:               *total,
	}
}

// Totals returns the aggregate counters of a breakdown as a Summary with
// every field defined. Useful for attaching to persisted turns.
func (b Breakdown) Totals() Summary {
	return Summary{
		InputTokens:  intPtr(b.InputTokens),
		OutputTokens: intPtr(b.OutputTokens),
		TotalTokens:  intPtr(b.TotalTokens),
	}
}

// Add returns the field-wise sum of two breakdowns. Used to aggregate
// usage across a conversation.
func (b Breakdown) Add(o Breakdown) Breakdown {
	return Breakdown{
		InputTextTokens:           b.InputTextTokens + o.InputTextTokens,
		InputAudioTokens:          b.InputAudioTokens + o.InputAudioTokens,
		InputTextNonCachedTokens:  b.InputTextNonCachedTokens + o.InputTextNonCachedTokens,
		InputAudioNonCachedTokens: b.InputAudioNonCachedTokens + o.InputAudioNonCachedTokens,
		InputTextCachedTokens:     b.InputTextCachedTokens + o.InputTextCachedTokens,
		InputAudioCachedTokens:    b.InputAudioCachedTokens + o.InputAudioCachedTokens,
		OutputTextTokens:          b.OutputTextTokens + o.OutputTextTokens,
		OutputAudioTokens:         b.OutputAudioTokens + o.OutputAudioTokens,
		InputTokens:               b.InputTokens + o.InputTokens,
		OutputTokens:              b.OutputTokens + o.OutputTokens,
		TotalTokens:               b.TotalTokens + o.TotalTokens,
	}
}

// rawResponseUsage digs response.usage out of a raw response.done
// payload. Returns nil when the payload is absent or malformed.
func rawResponseUsage(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var top map[string]any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil
	}
	return childMap(childMap(top, "response"), "usage")
}

// childMap returns the first child of m under any of the given names
// that is a JSON object.
func childMap(m map[string]any, names ...string) map[string]any {
	for _, name := range names {
		if child, ok := m[name].(map[string]any); ok {
			return child
		}
	}
	return nil
}

// intField returns the first of the named fields present in m as a
// non-negative integer, or nil when none is a finite number.
func intField(m map[string]any, names ...string) *int {
	for _, name := range names {
		v, ok := m[name]
		if !ok {
			continue
		}
		f, ok := v.(float64)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return intPtr(max(0, int(math.Floor(f))))
	}
	return nil
}

func summaryField(s *Summary, get func(*Summary) *int) *int {
	if s == nil {
		return nil
	}
	v := get(s)
	if v == nil {
		return nil
	}
	return intPtr(max(0, *v))
}

func firstInt(candidates ...*int) *int {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func intPtr(v int) *int {
	return &v
}
