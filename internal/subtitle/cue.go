package subtitle

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mgpai22/subqc/internal/cuetext"
	"github.com/mgpai22/subqc/internal/timecode"
)

// WebVTT cue settings; zero values are not the defaults, use
// DefaultSettings
type Settings struct {
	// region id, empty when the cue is not in a region
	Region   string
	Vertical string
	// nil means auto
	Line        *float64
	LineAlign   string
	SnapToLines bool
	// nil means auto
	Position      *float64
	PositionAlign string
	Size          float64
	Align         string
}

func DefaultSettings() Settings {
	return Settings{
		LineAlign:     "start",
		SnapToLines:   true,
		PositionAlign: "auto",
		Size:          100,
		Align:         "center",
	}
}

// represents single subtitle entry
type Cue struct {
	// position in the file, 1-based
	Number int
	// VTT cue identifier or the number written in an SRT file
	Identifier string
	Start      timecode.Timecode
	End        timecode.Timecode
	Dialect    cuetext.Dialect

	Tokens []cuetext.Token
	// text as written back out
	Text string
	// tags removed, entities resolved
	Lines []string

	LineLengths         []int
	TotalLength         int
	TotalLengthNoSpaces int
	Duration            float64
	CPS                 float64
	CPSNoSpaces         float64
	Dialogue            bool

	Settings

	// cue text problems found by the tag parser
	Diagnostics []string
}

// NewCue parses text in dialect d and derives the cue metrics.
func NewCue(number int, text string, start, end timecode.Timecode, d cuetext.Dialect) *Cue {
	c := &Cue{
		Number:   number,
		Start:    start,
		End:      end,
		Dialect:  d,
		Settings: DefaultSettings(),
	}
	c.SetText(text)
	return c
}

// SetText replaces the cue text and recomputes everything derived from it.
func (c *Cue) SetText(text string) {
	res := cuetext.Parse(text, c.Dialect)
	c.Tokens = res.Tokens
	c.Text = res.Display
	c.Lines = res.Lines
	c.Diagnostics = res.Diagnostics
	c.measure()
}

// SetTimes moves the cue and recomputes duration and reading speed.
func (c *Cue) SetTimes(start, end timecode.Timecode) {
	c.Start = start
	c.End = end
	c.measure()
}

func (c *Cue) measure() {
	c.LineLengths = make([]int, len(c.Lines))
	for i, line := range c.Lines {
		c.LineLengths[i] = utf8.RuneCountInString(line)
	}

	joined := strings.Join(c.Lines, "")
	c.TotalLength = utf8.RuneCountInString(joined)
	c.TotalLengthNoSpaces = utf8.RuneCountInString(strings.ReplaceAll(joined, " ", ""))

	c.Duration = round(c.End.TotalSeconds()-c.Start.TotalSeconds(), 3)
	c.CPS, c.CPSNoSpaces = 0, 0
	if c.Duration > 0 {
		c.CPS = round(float64(c.TotalLength)/c.Duration, 2)
		c.CPSNoSpaces = round(float64(c.TotalLengthNoSpaces)/c.Duration, 2)
	}

	c.Dialogue = len(c.Lines) > 0
	for _, line := range c.Lines {
		if !strings.HasPrefix(line, "-") {
			c.Dialogue = false
			break
		}
	}
}

// Clone returns a copy that shares nothing mutable with c.
func (c *Cue) Clone() *Cue {
	out := *c
	out.Tokens = append([]cuetext.Token(nil), c.Tokens...)
	out.Lines = append([]string(nil), c.Lines...)
	out.LineLengths = append([]int(nil), c.LineLengths...)
	out.Diagnostics = append([]string(nil), c.Diagnostics...)
	if c.Line != nil {
		v := *c.Line
		out.Line = &v
	}
	if c.Position != nil {
		v := *c.Position
		out.Position = &v
	}
	return &out
}

func CloneCues(cues []*Cue) []*Cue {
	out := make([]*Cue, len(cues))
	for i, c := range cues {
		out[i] = c.Clone()
	}
	return out
}

// SRT block: number, timing line and text with entities resolved
func (c *Cue) SRTString() string {
	return fmt.Sprintf("%d\n%s --> %s\n%s",
		c.Number, c.Start.SRT(), c.End.SRT(), c.srtText())
}

// VTT block: optional identifier, timing line with non-default
// settings, then the text
func (c *Cue) VTTString() string {
	var sb strings.Builder
	if c.Identifier != "" && c.Dialect == cuetext.WebVTT {
		sb.WriteString(c.Identifier)
		sb.WriteString("\n")
	}

	format := timecode.FormatVTTLong
	if c.Start.Source() == timecode.FormatVTTShort && c.End.TotalSeconds() < 3600 {
		format = timecode.FormatVTTShort
	}
	sb.WriteString(c.Start.Format(format))
	sb.WriteString(" --> ")
	sb.WriteString(c.End.Format(format))
	sb.WriteString(c.settingsString())
	sb.WriteString("\n")
	sb.WriteString(c.vttText())
	return sb.String()
}

func (c *Cue) settingsString() string {
	var parts []string
	if c.Region != "" {
		parts = append(parts, "region:"+c.Region)
	}
	if c.Vertical != "" {
		parts = append(parts, "vertical:"+c.Vertical)
	}
	if c.Line != nil {
		v := formatNumber(*c.Line)
		if !c.SnapToLines {
			v += "%"
		}
		if c.LineAlign != "" && c.LineAlign != "start" {
			v += "," + c.LineAlign
		}
		parts = append(parts, "line:"+v)
	}
	if c.Position != nil {
		v := formatNumber(*c.Position) + "%"
		if c.PositionAlign != "" && c.PositionAlign != "auto" {
			v += "," + c.PositionAlign
		}
		parts = append(parts, "position:"+v)
	}
	if c.Size != 100 {
		parts = append(parts, "size:"+formatNumber(c.Size)+"%")
	}
	if c.Align != "" && c.Align != "center" {
		parts = append(parts, "align:"+c.Align)
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

// SubRip only understands i, b and u; other WebVTT tags are dropped
func (c *Cue) srtText() string {
	if c.Dialect == cuetext.SubRip {
		return html.UnescapeString(c.Text)
	}
	var sb strings.Builder
	for _, tok := range c.Tokens {
		switch t := tok.(type) {
		case cuetext.Text:
			sb.WriteString(string(t))
		case cuetext.StartTag:
			if t.ValidName && t.Closed && isBasicStyle(t.Name) {
				sb.WriteString("<" + t.Name + ">")
			}
		case cuetext.EndTag:
			if t.ValidName && t.Closed && isBasicStyle(t.Name) {
				sb.WriteString("</" + t.Name + ">")
			}
		}
	}
	return sb.String()
}

// SRT text carries over as is apart from escaping; font tags have no
// WebVTT equivalent
func (c *Cue) vttText() string {
	if c.Dialect == cuetext.WebVTT {
		return c.Text
	}
	var sb strings.Builder
	for _, tok := range c.Tokens {
		switch t := tok.(type) {
		case cuetext.Text:
			sb.WriteString(cuetext.EscapeText(string(t)))
		case cuetext.StartTag:
			if t.ValidName && t.Closed && isBasicStyle(strings.ToLower(t.Name)) {
				sb.WriteString("<" + strings.ToLower(t.Name) + ">")
			}
		case cuetext.EndTag:
			if t.ValidName && t.Closed && isBasicStyle(strings.ToLower(t.Name)) {
				sb.WriteString("</" + strings.ToLower(t.Name) + ">")
			}
		}
	}
	return sb.String()
}

func isBasicStyle(name string) bool {
	return name == "i" || name == "b" || name == "u"
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// 50 not 50.0
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
