package subtitle

// Style is a visual preset for the burned-in subtitle track. Each preset
// defines the prominent current line and a de-emphasized preview variant
// shown below it.
type Style struct {
	Name         string
	FontName     string
	FontSize     int
	PrimaryColor string
	OutlineColor string
	Outline      int
	MarginV      int

	PreviewFontSize int
	PreviewColor    string
	PreviewMarginV  int
}

// DefaultStyleKey is used when a job names no preset or an unknown one.
const DefaultStyleKey = "classic"

var presets = map[string]Style{
	"classic": {
		Name:            "classic",
		FontName:        "Noto Sans",
		FontSize:        64,
		PrimaryColor:    "&H00FFFFFF",
		OutlineColor:    "&H00000000",
		Outline:         3,
		MarginV:         220,
		PreviewFontSize: 48,
		PreviewColor:    "&H60FFFFFF",
		PreviewMarginV:  140,
	},
	"minimal": {
		Name:            "minimal",
		FontName:        "Noto Sans",
		FontSize:        56,
		PrimaryColor:    "&H00F5F5F5",
		OutlineColor:    "&H00202020",
		Outline:         1,
		MarginV:         200,
		PreviewFontSize: 42,
		PreviewColor:    "&H80F5F5F5",
		PreviewMarginV:  130,
	},
	"bold": {
		Name:            "bold",
		FontName:        "Noto Sans Bold",
		FontSize:        72,
		PrimaryColor:    "&H0000E5FF",
		OutlineColor:    "&H00000000",
		Outline:         4,
		MarginV:         240,
		PreviewFontSize: 52,
		PreviewColor:    "&H6000E5FF",
		PreviewMarginV:  150,
	},
}

// StyleFor resolves a preset by key. Unknown or empty keys deterministically
// fall back to the default preset; a bad key is never an error.
func StyleFor(key string) Style {
	if style, ok := presets[key]; ok {
		return style
	}
	return presets[DefaultStyleKey]
}
