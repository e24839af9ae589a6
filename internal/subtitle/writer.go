package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mgpai22/subqc/internal/cuetext"
	"github.com/mgpai22/subqc/internal/timecode"
)

// interface for writing subtitles to files
type Writer interface {
	Write(doc *Document, path string) error
}

// SubRip format
type SRTWriter struct{}

// WebVTT format
type VTTWriter struct{}

// Advanced SubStation Alpha format
type ASSWriter struct {
	Title    string
	FontName string
	FontSize int
}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatASS:
		return &ASSWriter{
			Title:    "subqc",
			FontName: "Arial",
			FontSize: 20,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Encode renders doc in the given format.
func Encode(doc *Document, format Format) (string, error) {
	switch format {
	case FormatSRT:
		return EncodeSRT(doc), nil
	case FormatVTT:
		return EncodeVTT(doc), nil
	case FormatASS:
		return (&ASSWriter{Title: "subqc", FontName: "Arial", FontSize: 20}).Encode(doc), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func EncodeSRT(doc *Document) string {
	var sb strings.Builder
	for _, cue := range doc.Cues {
		sb.WriteString(cue.SRTString())
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func EncodeVTT(doc *Document) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	ids := make([]string, 0, len(doc.Regions))
	for id := range doc.Regions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sb.WriteString(doc.Regions[id].String())
		sb.WriteString("\n\n")
	}

	for _, css := range doc.Stylesheets {
		sb.WriteString("STYLE\n")
		sb.WriteString(css)
		sb.WriteString("\n\n")
	}

	for _, cue := range doc.Cues {
		sb.WriteString(cue.VTTString())
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// writes the subtitle to an SRT file
func (w *SRTWriter) Write(doc *Document, path string) error {
	return writeFile(path, EncodeSRT(doc))
}

// writes the subtitle to a VTT file
func (w *VTTWriter) Write(doc *Document, path string) error {
	return writeFile(path, EncodeVTT(doc))
}

// writes the subtitle to an ASS file
func (w *ASSWriter) Write(doc *Document, path string) error {
	return writeFile(path, w.Encode(doc))
}

func (w *ASSWriter) Encode(doc *Document) string {
	var sb strings.Builder

	// script info section
	sb.WriteString("[Script Info]\n")
	fmt.Fprintf(&sb, "Title: %s\n", w.Title)
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("Collisions: Normal\n")
	sb.WriteString("PlayDepth: 0\n\n")

	// v4+ styles section
	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&sb, "Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n\n",
		w.FontName, w.FontSize)

	// events section
	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, cue := range doc.Cues {
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			cue.Start.Format(timecode.FormatASS),
			cue.End.Format(timecode.FormatASS),
			assText(cue.Tokens))
	}
	return sb.String()
}

// inline override tags for i, b and u; everything else is dropped
func assText(tokens []cuetext.Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		switch t := tok.(type) {
		case cuetext.Text:
			sb.WriteString(strings.ReplaceAll(string(t), "\n", "\\N"))
		case cuetext.StartTag:
			if name := strings.ToLower(t.Name); t.ValidName && t.Closed && isBasicStyle(name) {
				fmt.Fprintf(&sb, "{\\%s1}", name)
			}
		case cuetext.EndTag:
			if name := strings.ToLower(t.Name); t.ValidName && t.Closed && isBasicStyle(name) {
				fmt.Fprintf(&sb, "{\\%s0}", name)
			}
		}
	}
	return sb.String()
}

func writeFile(path, content string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}
