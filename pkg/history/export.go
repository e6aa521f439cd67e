package history

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/voxterm/voxterm/pkg/usage"
)

var csvHeader = []string{
	"id",
	"createdAt",
	"provider",
	"role",
	"inputType",
	"interrupted",
	"inputTokens",
	"outputTokens",
	"totalTokens",
	"audioInputTokens",
	"audioInputNonCachedTokens",
	"audioInputCachedTokens",
	"audioOutputTokens",
	"audioTotalTokens",
	"textInputTokens",
	"textInputNonCachedTokens",
	"textInputCachedTokens",
	"textOutputTokens",
	"textTotalTokens",
	"text",
}

// WriteCSV writes the log as RFC4180 CSV with one row per turn. Token
// columns are blank when the turn carries no telemetry, so "$0 usage"
// and "no usage reported" stay distinguishable in the export.
func WriteCSV(w io.Writer, turns []Turn) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range turns {
		if err := cw.Write(csvRow(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(t Turn) []string {
	row := []string{
		t.ID,
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.Provider,
		string(t.Role),
		t.InputType,
		strconv.FormatBool(t.Interrupted),
	}
	row = append(row, optInt(t.Usage, func(s *usage.Summary) *int { return s.InputTokens }))
	row = append(row, optInt(t.Usage, func(s *usage.Summary) *int { return s.OutputTokens }))
	row = append(row, optInt(t.Usage, func(s *usage.Summary) *int { return s.TotalTokens }))

	if len(t.RawResponse) == 0 {
		row = append(row, "", "", "", "", "", "", "", "", "", "")
	} else {
		b := usage.Normalize(nil, t.RawResponse)
		row = append(row,
			strconv.Itoa(b.InputAudioTokens),
			strconv.Itoa(b.InputAudioNonCachedTokens),
			strconv.Itoa(b.InputAudioCachedTokens),
			strconv.Itoa(b.OutputAudioTokens),
			strconv.Itoa(b.InputAudioTokens+b.OutputAudioTokens),
			strconv.Itoa(b.InputTextTokens),
			strconv.Itoa(b.InputTextNonCachedTokens),
			strconv.Itoa(b.InputTextCachedTokens),
			strconv.Itoa(b.OutputTextTokens),
			strconv.Itoa(b.InputTextTokens+b.OutputTextTokens),
		)
	}
	return append(row, t.Text)
}

func optInt(s *usage.Summary, field func(*usage.Summary) *int) string {
	if s == nil {
		return ""
	}
	v := field(s)
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// ExportFilename returns the timestamped default name for a CSV export.
func ExportFilename(now time.Time) string {
	return "chat-history-" + now.Format("20060102-150405") + ".csv"
}
