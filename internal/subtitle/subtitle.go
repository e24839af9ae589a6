package subtitle

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mgpai22/subqc/internal/cuetext"
	"github.com/mgpai22/subqc/internal/logging"
	"github.com/mgpai22/subqc/internal/timecode"
)

// represents supported subtitle formats
type Format int

const (
	FormatSRT Format = iota
	FormatVTT
	FormatASS
)

func (f Format) String() string {
	switch f {
	case FormatVTT:
		return "vtt"
	case FormatASS:
		return "ass"
	default:
		return "srt"
	}
}

// file extension for a format
func (f Format) Extension() string {
	return "." + f.String()
}

// cue text dialect used when parsing a format
func (f Format) Dialect() cuetext.Dialect {
	if f == FormatVTT {
		return cuetext.WebVTT
	}
	return cuetext.SubRip
}

// subtitle format based on file extension
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".srt":
		return FormatSRT, nil
	case ".vtt":
		return FormatVTT, nil
	case ".ass", ".ssa":
		return FormatASS, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// ParseFormat reads a format name such as "srt" or ".vtt".
func ParseFormat(name string) (Format, error) {
	return FormatFromPath("x." + strings.TrimPrefix(strings.ToLower(name), "."))
}

var (
	ErrUnsupportedFormat    = errors.New("unsupported subtitle format")
	ErrInvalidSignature     = errors.New("file does not start with the WebVTT signature")
	ErrMissingBlankLine     = errors.New("missing blank line after the WebVTT signature")
	ErrInvalidTimestampLine = errors.New("invalid timestamp line")
)

// ParseError is a fatal parse failure at a 1-based line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

func (s Severity) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// non-fatal finding, Line and Cue are zero when they do not apply
type Diagnostic struct {
	Severity Severity `yaml:"severity"`
	Line     int      `yaml:"line,omitempty"`
	Cue      int      `yaml:"cue,omitempty"`
	Message  string   `yaml:"message"`
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(d.Severity.String())
	if d.Line > 0 {
		fmt.Fprintf(&sb, " (line %d)", d.Line)
	}
	if d.Cue > 0 {
		fmt.Fprintf(&sb, " (cue %d)", d.Cue)
	}
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	return sb.String()
}

// parser settings
type Options struct {
	// frame rate attached to every timecode, 24 when zero
	FrameRate float64
	DropFrame bool
	Logger    *logging.Logger
}

func (o Options) rate() float64 {
	if o.FrameRate <= 0 {
		return timecode.DefaultFrameRate
	}
	return o.FrameRate
}

// represents complete subtitle track
type Document struct {
	Format      Format
	Regions     map[string]*Region
	Stylesheets []string
	// file order, not sorted by time
	Cues        []*Cue
	Diagnostics []Diagnostic

	BrokenSequence        bool
	NonContinuousSequence bool
}

func newDocument(f Format) *Document {
	return &Document{Format: f, Regions: make(map[string]*Region)}
}

func (d *Document) warn(line, cue int, msg string) {
	d.Diagnostics = append(d.Diagnostics, Diagnostic{
		Severity: SeverityWarning,
		Line:     line,
		Cue:      cue,
		Message:  msg,
	})
}

// Clone copies the document deeply enough that changing cues or regions
// of the copy leaves d untouched.
func (d *Document) Clone() *Document {
	out := &Document{
		Format:                d.Format,
		Regions:               make(map[string]*Region, len(d.Regions)),
		Stylesheets:           append([]string(nil), d.Stylesheets...),
		Cues:                  CloneCues(d.Cues),
		Diagnostics:           append([]Diagnostic(nil), d.Diagnostics...),
		BrokenSequence:        d.BrokenSequence,
		NonContinuousSequence: d.NonContinuousSequence,
	}
	for id, r := range d.Regions {
		cp := *r
		out.Regions[id] = &cp
	}
	return out
}

// Write encodes the document in format f and writes it to path.
func (d *Document) Write(path string, f Format) error {
	writer, err := NewWriter(f)
	if err != nil {
		return err
	}
	return writer.Write(d, path)
}
