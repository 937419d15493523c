package subtitle

import (
	"strings"
	"testing"

	"montage/internal/compose"
)

func paragraphs(durations ...float64) []compose.ParagraphDuration {
	out := make([]compose.ParagraphDuration, len(durations))
	for i, d := range durations {
		out[i] = compose.ParagraphDuration{
			ParagraphIndex: i,
			Text:           strings.Repeat("x", i+1),
			Duration:       d,
		}
	}
	return out
}

func TestRenderCumulativeTimeline(t *testing.T) {
	track := Render(paragraphs(8.0, 6.0, 5.0), "classic", 1080, 1920)

	for _, want := range []string{
		"Dialogue: 0,0:00:00.00,0:00:08.00,Current",
		"Dialogue: 0,0:00:08.00,0:00:14.00,Current",
		"Dialogue: 0,0:00:14.00,0:00:19.00,Current",
	} {
		if !strings.Contains(track, want) {
			t.Fatalf("track missing %q:\n%s", want, track)
		}
	}
}

func TestRenderPreviewLines(t *testing.T) {
	durations := []compose.ParagraphDuration{
		{ParagraphIndex: 0, Text: "first line", Duration: 4.0},
		{ParagraphIndex: 1, Text: "second line", Duration: 3.0},
	}
	track := Render(durations, "classic", 1080, 1920)

	// The preview shows the NEXT paragraph's text over the CURRENT window.
	if !strings.Contains(track, "Dialogue: 0,0:00:00.00,0:00:04.00,Preview,,0,0,0,,second line") {
		t.Fatalf("missing preview of second paragraph during first window:\n%s", track)
	}
	// The last paragraph has nothing to preview.
	if strings.Count(track, ",Preview,") != 1 {
		t.Fatalf("expected exactly one preview entry:\n%s", track)
	}
	if strings.Count(track, ",Current,") != 2 {
		t.Fatalf("expected two current entries:\n%s", track)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"under limit unchanged", strings.Repeat("a", 19), strings.Repeat("a", 19)},
		{"exactly limit unchanged", strings.Repeat("a", 20), strings.Repeat("a", 20)},
		{"over limit wraps at 20", strings.Repeat("a", 25), strings.Repeat("a", 20) + `\N` + strings.Repeat("a", 5)},
		{"double wrap", strings.Repeat("a", 45), strings.Repeat("a", 20) + `\N` + strings.Repeat("a", 20) + `\N` + strings.Repeat("a", 5)},
		{"runes not bytes", strings.Repeat("字", 21), strings.Repeat("字", 20) + `\N` + "字"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Wrap(tc.text, WrapLimit); got != tc.want {
				t.Fatalf("Wrap(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00.00"},
		{8.0, "0:00:08.00"},
		{14.5, "0:00:14.50"},
		{61.25, "0:01:01.25"},
		{3661.07, "1:01:01.07"},
		{-2, "0:00:00.00"},
	}
	for _, tc := range tests {
		if got := FormatTimestamp(tc.seconds); got != tc.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestStyleForFallsBackDeterministically(t *testing.T) {
	unknown := StyleFor("sparkle")
	missing := StyleFor("")
	def := StyleFor(DefaultStyleKey)
	if unknown != def || missing != def {
		t.Fatal("unknown and empty style keys must resolve to the default preset")
	}
	if StyleFor("bold").Name != "bold" {
		t.Fatal("known preset must resolve to itself")
	}
}

func TestRenderUsesSelectedStyle(t *testing.T) {
	track := Render(paragraphs(2.0), "bold", 1080, 1920)
	if !strings.Contains(track, "Noto Sans Bold") {
		t.Fatalf("expected bold preset font in track:\n%s", track)
	}
	if !strings.Contains(track, "PlayResX: 1080") || !strings.Contains(track, "PlayResY: 1920") {
		t.Fatalf("expected play resolution in header:\n%s", track)
	}
}

func TestRenderWrapsLongLines(t *testing.T) {
	durations := []compose.ParagraphDuration{
		{ParagraphIndex: 0, Text: strings.Repeat("b", 25), Duration: 2.0},
	}
	track := Render(durations, "classic", 1080, 1920)
	if !strings.Contains(track, strings.Repeat("b", 20)+`\N`+strings.Repeat("b", 5)) {
		t.Fatalf("expected hard wrap in rendered dialogue:\n%s", track)
	}
}
