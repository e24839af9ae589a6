package subtitle

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mgpai22/subqc/internal/cuetext"
	"github.com/mgpai22/subqc/internal/logging"
	"github.com/mgpai22/subqc/internal/timecode"
)

var (
	vttSignatureRegex = regexp.MustCompile(`^WEBVTT([ \t].*)?$`)
	vttTimingRegex    = regexp.MustCompile(
		`^\s*(\d+:\d\d:\d\d\.\d\d\d|\d\d:\d\d\.\d\d\d)\s*-->\s*(\d+:\d\d:\d\d\.\d\d\d|\d\d:\d\d\.\d\d\d)`,
	)
	styleHeaderRegex  = regexp.MustCompile(`^STYLE\s*$`)
	regionHeaderRegex = regexp.MustCompile(`^REGION\s*$`)
)

type blockKind int

const (
	blockNone blockKind = iota
	blockCue
	blockStyle
	blockRegion
)

type vttParser struct {
	lines   []string
	opts    Options
	log     *logging.Logger
	doc     *Document
	seenCue bool
}

// ParseVTT reads a WebVTT file. A bad signature or a missing blank line
// after it is fatal; everything else is reported in Document.Diagnostics.
func ParseVTT(r io.Reader, opts Options) (*Document, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read VTT input: %w", err)
	}

	if !vttSignatureRegex.MatchString(lines[0]) {
		return nil, &ParseError{Line: 1, Err: ErrInvalidSignature}
	}
	if len(lines) > 1 && lines[1] != "" {
		return nil, &ParseError{Line: 2, Err: ErrMissingBlankLine}
	}

	p := &vttParser{
		lines: lines,
		opts:  opts,
		log:   logging.OrNop(opts.Logger),
		doc:   newDocument(FormatVTT),
	}
	for index := 2; index < len(lines); {
		index = p.collectBlock(index)
	}
	return p.doc, nil
}

// collectBlock consumes one block starting at index and returns the index
// of the next unread line. A timing line only counts as the start of a cue
// on the first line of a block, or on the second when the first was an
// identifier; anywhere else it ends the block and is left for the next one.
func (p *vttParser) collectBlock(index int) int {
	var (
		kind       = blockNone
		buffer     []string
		lineCount  int
		seenArrow  bool
		discard    bool
		identifier string
		timingLine int
		start, end timecode.Timecode
		settings   Settings
	)
	number := len(p.doc.Cues) + 1
	firstLine := index + 1

	for index < len(p.lines) {
		lineCount++
		line := p.lines[index]

		if strings.Contains(line, "-->") {
			if lineCount != 1 && (lineCount != 2 || seenArrow) {
				break
			}
			seenArrow = true
			identifier = strings.Join(buffer, "\n")
			buffer = nil
			timingLine = index + 1

			var err error
			start, end, settings, err = p.timings(line, timingLine, number)
			if err != nil {
				p.doc.warn(timingLine, 0, fmt.Sprintf("Invalid timestamp line (%d). The cue will be ignored.", timingLine))
				p.log.Debugw("discarding cue block", "line", timingLine, "error", err)
				discard = true
			} else {
				kind = blockCue
			}
			index++
			continue
		}

		if line == "" {
			index++
			break
		}

		if lineCount == 2 && !p.seenCue && kind == blockNone && len(buffer) == 1 {
			switch {
			case styleHeaderRegex.MatchString(buffer[0]):
				kind = blockStyle
				buffer = nil
			case regionHeaderRegex.MatchString(buffer[0]):
				kind = blockRegion
				buffer = nil
			}
		}
		buffer = append(buffer, line)
		index++
	}

	body := strings.Join(buffer, "\n")
	switch {
	case discard:
	case kind == blockCue:
		p.seenCue = true
		cue := NewCue(number, body, start, end, cuetext.WebVTT)
		cue.Identifier = identifier
		cue.Settings = settings
		for _, msg := range cue.Diagnostics {
			p.doc.warn(timingLine, number, msg)
		}
		p.doc.Cues = append(p.doc.Cues, cue)

	case kind == blockStyle:
		p.doc.Stylesheets = append(p.doc.Stylesheets, body)

	case kind == blockRegion:
		region := decodeRegion(body, firstLine, p.doc)
		if region.ID == "" {
			p.doc.warn(firstLine, 0, "Region without an identifier. It will be ignored.")
			break
		}
		p.doc.Regions[region.ID] = region

	default:
		if len(buffer) > 0 {
			p.log.Debugw("skipping block", "line", firstLine, "first", buffer[0])
		}
	}
	return index
}

func (p *vttParser) timings(line string, lineNum, cue int) (timecode.Timecode, timecode.Timecode, Settings, error) {
	m := vttTimingRegex.FindStringSubmatchIndex(line)
	if m == nil {
		return timecode.Timecode{}, timecode.Timecode{}, Settings{}, ErrInvalidTimestampLine
	}
	rate := p.opts.rate()
	start, err := timecode.Parse(line[m[2]:m[3]], rate, p.opts.DropFrame)
	if err != nil {
		return timecode.Timecode{}, timecode.Timecode{}, Settings{}, err
	}
	end, err := timecode.Parse(line[m[4]:m[5]], rate, p.opts.DropFrame)
	if err != nil {
		return timecode.Timecode{}, timecode.Timecode{}, Settings{}, err
	}
	return start, end, decodeSettings(line[m[1]:], lineNum, cue, p.doc), nil
}

// readLines applies the WebVTT preprocessing to the whole input: BOM
// removed, NUL replaced, line endings normalized to LF.
func readLines(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.ToValidUTF8(string(data), "\ufffd")
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\x00", "\ufffd")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n"), nil
}
