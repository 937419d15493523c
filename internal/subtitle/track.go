package subtitle

import (
	"fmt"
	"strings"

	"montage/internal/compose"
)

// WrapLimit is the hard-wrap threshold in characters. Counting is by rune,
// not pixel width.
const WrapLimit = 20

// lineBreak is the ASS line-break marker.
const lineBreak = `\N`

// Render builds the complete ASS track for the given paragraph durations.
// The timeline is cumulative from zero: paragraph i starts where paragraph
// i-1 ended. Every paragraph emits a prominent current line; all but the
// last also emit a faint preview of the next paragraph's text over the same
// window.
func Render(durations []compose.ParagraphDuration, styleKey string, playWidth, playHeight int) string {
	style := StyleFor(styleKey)

	var b strings.Builder
	writeHeader(&b, style, playWidth, playHeight)

	cursor := 0.0
	for i, paragraph := range durations {
		start := cursor
		end := cursor + paragraph.Duration
		cursor = end

		b.WriteString(dialogueLine("Current", start, end, Wrap(paragraph.Text, WrapLimit)))
		if i+1 < len(durations) {
			b.WriteString(dialogueLine("Preview", start, end, Wrap(durations[i+1].Text, WrapLimit)))
		}
	}
	return b.String()
}

// Wrap hard-wraps text at limit runes using the ASS line-break marker. Text
// at or under the limit is returned unchanged.
func Wrap(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	var parts []string
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return strings.Join(parts, lineBreak)
}

// FormatTimestamp renders seconds as H:MM:SS.CC (hours, minutes, seconds,
// centiseconds), the timestamp form the ASS format expects.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centiseconds := int(seconds*100 + 0.5)
	hours := centiseconds / 360000
	centiseconds -= hours * 360000
	minutes := centiseconds / 6000
	centiseconds -= minutes * 6000
	secs := centiseconds / 100
	centiseconds -= secs * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centiseconds)
}

func writeHeader(b *strings.Builder, style Style, playWidth, playHeight int) {
	fmt.Fprintf(b, "[Script Info]\n")
	fmt.Fprintf(b, "Title: montage narration\n")
	fmt.Fprintf(b, "ScriptType: v4.00+\n")
	fmt.Fprintf(b, "PlayResX: %d\n", playWidth)
	fmt.Fprintf(b, "PlayResY: %d\n", playHeight)
	fmt.Fprintf(b, "WrapStyle: 2\n\n")

	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, Outline, Alignment, MarginL, MarginR, MarginV\n")
	fmt.Fprintf(b, "Style: Current,%s,%d,%s,%s,%d,2,60,60,%d\n",
		style.FontName, style.FontSize, style.PrimaryColor, style.OutlineColor, style.Outline, style.MarginV)
	fmt.Fprintf(b, "Style: Preview,%s,%d,%s,%s,%d,2,60,60,%d\n\n",
		style.FontName, style.PreviewFontSize, style.PreviewColor, style.OutlineColor, style.Outline, style.PreviewMarginV)

	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
}

func dialogueLine(styleName string, start, end float64, text string) string {
	return fmt.Sprintf("Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
		FormatTimestamp(start), FormatTimestamp(end), styleName, text)
}
