package subtitle

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/mgpai22/subqc/internal/cuetext"
	"github.com/mgpai22/subqc/internal/logging"
	"github.com/mgpai22/subqc/internal/timecode"
)

var (
	srtNumberRegex = regexp.MustCompile(`^\d+$`)
	srtTimingRegex = regexp.MustCompile(
		`^(\d\d:\d\d:\d\d,\d\d\d) --> (\d\d:\d\d:\d\d,\d\d\d)$`,
	)
	// stray whitespace around the timestamps or the arrow, or a single
	// trailing token
	srtLooseTimingRegex = regexp.MustCompile(
		`^\s*(\d\d:\d\d:\d\d,\d\d\d)\s*-->\s*(\d\d:\d\d:\d\d,\d\d\d)\s*\S*\s*$`,
	)
)

type srtState int

const (
	expectNumber srtState = iota
	expectTiming
	expectText
)

// ParseSRT reads a SubRip file. A line that should be a timing line but
// is not one, even loosely, is fatal.
func ParseSRT(r io.Reader, opts Options) (*Document, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read SRT input: %w", err)
	}
	log := logging.OrNop(opts.Logger)
	doc := newDocument(FormatSRT)

	var (
		state      = expectNumber
		identifier string
		declared   int
		previous   int
		start, end timecode.Timecode
		text       []string
		textLine   int
	)

	emit := func() {
		number := len(doc.Cues) + 1
		cue := NewCue(number, strings.Join(text, "\n"), start, end, cuetext.SubRip)
		cue.Identifier = identifier
		for _, msg := range cue.Diagnostics {
			doc.warn(textLine, number, msg)
		}
		doc.Cues = append(doc.Cues, cue)
		if !doc.BrokenSequence {
			previous = declared
		}
		text = nil
	}

	parseTimes := func(m []string, lineNum int) error {
		var err error
		if start, err = timecode.Parse(m[1], opts.rate(), opts.DropFrame); err != nil {
			return &ParseError{Line: lineNum, Err: fmt.Errorf("%w: %w", ErrInvalidTimestampLine, err)}
		}
		if end, err = timecode.Parse(m[2], opts.rate(), opts.DropFrame); err != nil {
			return &ParseError{Line: lineNum, Err: fmt.Errorf("%w: %w", ErrInvalidTimestampLine, err)}
		}
		textLine = lineNum + 1
		return nil
	}

	for i, line := range lines {
		lineNum := i + 1

		switch {
		case state == expectNumber && srtNumberRegex.MatchString(line):
			n, err := strconv.Atoi(line)
			if !doc.BrokenSequence && (err != nil || n-previous != 1) {
				doc.NonContinuousSequence = true
			}
			identifier, declared = line, n
			state = expectTiming

		case state != expectText && srtTimingRegex.MatchString(line):
			if state == expectNumber {
				// a timing line where a number belongs
				doc.BrokenSequence = true
				identifier = ""
			}
			if err := parseTimes(srtTimingRegex.FindStringSubmatch(line), lineNum); err != nil {
				return nil, err
			}
			state = expectText

		case state == expectNumber:
			log.Debugw("skipping orphan line", "line", lineNum)

		case state == expectTiming:
			m := srtLooseTimingRegex.FindStringSubmatch(line)
			if m == nil {
				return nil, &ParseError{Line: lineNum, Err: ErrInvalidTimestampLine}
			}
			if err := parseTimes(m, lineNum); err != nil {
				return nil, err
			}
			doc.warn(lineNum, 0, fmt.Sprintf("Timestamp line at %d may not be decoded by other editors or players.", lineNum))
			state = expectText

		case strings.TrimSpace(line) != "":
			text = append(text, line)

		default:
			emit()
			state = expectNumber
		}
	}

	switch state {
	case expectTiming:
		return nil, &ParseError{Line: len(lines), Err: fmt.Errorf("%w: end of input", ErrInvalidTimestampLine)}
	case expectText:
		emit()
	}

	if doc.BrokenSequence {
		doc.warn(0, 0, "Broken sequence. A timestamp line was found where a subtitle number was expected.")
	}
	if doc.NonContinuousSequence {
		doc.warn(0, 0, "Non-continuous sequence. Subtitle numbers are not consecutive.")
	}
	return doc, nil
}
