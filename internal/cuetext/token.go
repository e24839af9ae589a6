package cuetext

import "strings"

// Token is one unit of tokenized cue text: Text, StartTag, EndTag or
// TimestampTag.
type Token interface {
	// source form of the token as it is written back out
	String() string
	isToken()
}

// run of plain text with character references already resolved
type Text string

func (t Text) String() string { return string(t) }
func (Text) isToken()          {}

type StartTag struct {
	Name       string
	Classes    []string
	Annotation string
	Closed     bool
	ValidName  bool
}

func (StartTag) isToken() {}

func (t StartTag) String() string {
	var sb strings.Builder
	sb.WriteString("<")
	sb.WriteString(t.Name)
	if len(t.Classes) > 0 {
		sb.WriteString(".")
		sb.WriteString(strings.Join(t.Classes, "."))
	}
	switch {
	case t.ValidName && t.Closed:
		if t.Annotation != "" {
			sb.WriteString(" ")
			sb.WriteString(t.Annotation)
		}
		sb.WriteString(">")
	case t.Closed:
		sb.WriteString(t.Annotation)
		sb.WriteString(">")
	}
	return sb.String()
}

type EndTag struct {
	Name      string
	Closed    bool
	ValidName bool
}

func (EndTag) isToken() {}

func (t EndTag) String() string {
	if t.Closed {
		return "</" + t.Name + ">"
	}
	return "</" + t.Name
}

// inline <00:00:01.000> timestamp inside WebVTT cue text
type TimestampTag struct {
	Value string
}

func (TimestampTag) isToken() {}

func (t TimestampTag) String() string { return "<" + t.Value + ">" }

// cue text flavour, selects tokenizer and valid tag set
type Dialect int

const (
	WebVTT Dialect = iota
	SubRip
)

func (d Dialect) String() string {
	if d == SubRip {
		return "srt"
	}
	return "vtt"
}

// ValidTag reports whether name is a tag the dialect knows.
func (d Dialect) ValidTag(name string) bool {
	if d == SubRip {
		switch strings.ToLower(name) {
		case "i", "b", "u", "font":
			return true
		}
		return false
	}
	switch name {
	case "c", "i", "b", "u", "ruby", "rt", "v", "lang":
		return true
	}
	return false
}

// SubRip tag names are case-insensitive, WebVTT ones are not
func (d Dialect) sameTag(a, b string) bool {
	if d == SubRip {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func newStartTag(d Dialect, name string, classes []string, annotation string, closed bool) StartTag {
	tag := StartTag{
		Name:       name,
		Classes:    classes,
		Annotation: annotation,
		Closed:     closed,
		ValidName:  d.ValidTag(name),
	}
	if tag.ValidName {
		tag.Annotation = strings.Join(strings.Fields(annotation), " ")
	}
	return tag
}

func newEndTag(d Dialect, name string, closed bool) EndTag {
	return EndTag{Name: name, Closed: closed, ValidName: d.ValidTag(name)}
}
