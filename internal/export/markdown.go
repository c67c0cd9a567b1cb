package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

const reportTimeLayout = "2006-01-02 15:04:05"

// WriteMarkdown renders session reports to w, one section per report.
func WriteMarkdown(w io.Writer, reports []activity.SessionReport) error {
	if len(reports) == 0 {
		return ErrNoData
	}

	for i, r := range reports {
		if i > 0 {
			if _, err := io.WriteString(w, "\n---\n\n"); err != nil {
				return err
			}
		}
		if err := writeReport(w, r); err != nil {
			return err
		}
	}
	return nil
}

// Markdown renders reports to a byte slice.
func Markdown(reports []activity.SessionReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, reports); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeReport(w io.Writer, r activity.SessionReport) error {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n\n", r.Symbol)
	fmt.Fprintf(&b, "- Session: %s to %s\n", r.StartedAt.Format(reportTimeLayout), r.EndedAt.Format(reportTimeLayout))
	fmt.Fprintf(&b, "- Drawings: %d\n", r.DrawingCount)
	fmt.Fprintf(&b, "- Indicators: %d\n", r.IndicatorCount)
	if len(r.ToolsUsed) > 0 {
		fmt.Fprintf(&b, "- Tools: %s\n", strings.Join(r.ToolsUsed, ", "))
	}
	if len(r.Indicators) > 0 {
		fmt.Fprintf(&b, "- Indicator list: %s\n", strings.Join(r.Indicators, ", "))
	}
	if len(r.TimeframesSeen) > 0 {
		fmt.Fprintf(&b, "- Timeframes: %s\n", strings.Join(r.TimeframesSeen, ", "))
	}

	if len(r.Drawings) > 0 {
		b.WriteString("\n| Tool | Price | Screenshot | Time |\n")
		b.WriteString("|------|-------|------------|------|\n")
		for _, d := range r.Drawings {
			shot := d.Screenshot
			if shot == "" {
				shot = "-"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", d.Tool, d.Price, shot, d.Time.Format(reportTimeLayout))
		}
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
