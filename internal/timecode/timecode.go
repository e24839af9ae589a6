package timecode

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// textual spelling a timecode was read from or is printed as
type Format int

const (
	FormatSeconds Format = iota
	FormatSRT
	FormatVTTLong
	FormatVTTShort
	FormatASS
	FormatSMPTE
)

func (f Format) String() string {
	switch f {
	case FormatSRT:
		return "srt"
	case FormatVTTLong:
		return "vtt"
	case FormatVTTShort:
		return "vtt-short"
	case FormatASS:
		return "ass"
	case FormatSMPTE:
		return "smpte"
	default:
		return "seconds"
	}
}

const DefaultFrameRate = 24.0

var (
	ErrInvalidFormat = errors.New("timecode format not supported")
	ErrOutOfRange    = errors.New("minutes and seconds must be between 0 and 59")
	ErrInvalidRate   = errors.New("invalid frame rate")
)

// searched in this order, first match wins
var patterns = []struct {
	format Format
	re     *regexp.Regexp
}{
	{FormatSRT, regexp.MustCompile(`(\d{2,}):(\d\d):(\d\d),(\d\d\d)`)},
	{FormatVTTLong, regexp.MustCompile(`(\d+):(\d\d):(\d\d)\.(\d\d\d)`)},
	{FormatVTTShort, regexp.MustCompile(`(\d\d):(\d\d)\.(\d\d\d)`)},
	{FormatASS, regexp.MustCompile(`(\d+):(\d\d):(\d\d)\.(\d\d)`)},
	{FormatSMPTE, regexp.MustCompile(`(\d\d):(\d\d):(\d\d)([:;])(\d\d)`)},
}

// Timecode is an immutable point in time measured against a frame rate.
// The total number of seconds is the source of truth; every printed form
// and frame count derives from it, except timecodes read from SMPTE text
// whose frame counts come straight from the frame field.
type Timecode struct {
	total     float64
	rate      float64
	dropFrame bool
	source    Format

	countedSnapped  int
	renderedSnapped int
	countedStrict   int
	renderedStrict  int
}

// builds a timecode from a number of seconds, rounded to milliseconds
func FromSeconds(seconds, rate float64, dropFrame bool) Timecode {
	return fromSeconds(seconds, rate, dropFrame, FormatSeconds)
}

func fromSeconds(seconds, rate float64, dropFrame bool, source Format) Timecode {
	rate = normalizeRate(rate)
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := roundMillis(seconds)

	tc := Timecode{
		total:     total,
		rate:      rate,
		dropFrame: dropFrame,
		source:    source,
	}
	tc.renderedSnapped = snappedFrames(total, rate)
	tc.renderedStrict = strictFrames(total, rate)
	tc.countedSnapped = tc.renderedSnapped
	tc.countedStrict = tc.renderedStrict
	if dropFrame {
		r := roundedRate(rate)
		tc.countedSnapped = countedFrames(tc.renderedSnapped, r)
		tc.countedStrict = countedFrames(tc.renderedStrict, r)
	}
	return tc
}

// Parse reads any of the supported spellings: SRT (00:00:01,000),
// WebVTT long (00:00:01.000) and short (00:01.000), ASS (0:00:01.00)
// and SMPTE (00:00:01:00, or 00:00:01;00 for drop-frame).
func Parse(value string, rate float64, dropFrame bool) (Timecode, error) {
	rate = normalizeRate(rate)

	for _, p := range patterns {
		m := p.re.FindStringSubmatch(value)
		if m == nil {
			continue
		}
		if p.format == FormatSMPTE {
			return parseSMPTE(value, m, rate, dropFrame)
		}

		var h, mins, secs int
		var frac string
		switch p.format {
		case FormatVTTShort:
			mins, secs, frac = atoi(m[1]), atoi(m[2]), m[3]
		default:
			h, mins, secs, frac = atoi(m[1]), atoi(m[2]), atoi(m[3]), m[4]
		}
		if mins > 59 || secs > 59 {
			return Timecode{}, fmt.Errorf("%w: %q", ErrOutOfRange, value)
		}

		fraction, _ := strconv.ParseFloat("0."+frac, 64)
		total := float64(h*3600+mins*60+secs) + fraction
		return fromSeconds(total, rate, dropFrame, p.format), nil
	}

	return Timecode{}, fmt.Errorf("%w: %q", ErrInvalidFormat, value)
}

func parseSMPTE(value string, m []string, rate float64, dropFrame bool) (Timecode, error) {
	h, mins, secs, frames := atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[5])
	if mins > 59 || secs > 59 {
		return Timecode{}, fmt.Errorf("%w: %q", ErrOutOfRange, value)
	}

	fraction := roundMillis(float64(frames) / rate)
	tc := fromSeconds(float64(h*3600+mins*60+secs)+fraction, rate, dropFrame, FormatSMPTE)

	r := roundedRate(rate)
	counted := h*r*3600 + mins*r*60 + secs*r + frames
	rendered := counted
	if dropFrame {
		perMinute := r * 60
		// frame numbers 0 and 1 do not exist outside every tenth minute
		if counted%perMinute <= 1 && (counted/perMinute)%10 != 0 {
			counted += 2
		}
		rendered = counted - (counted/perMinute)*2 + (counted/(r*600))*2
	}
	tc.countedSnapped, tc.countedStrict = counted, counted
	tc.renderedSnapped, tc.renderedStrict = rendered, rendered
	return tc, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(value string, rate float64, dropFrame bool) Timecode {
	tc, err := Parse(value, rate, dropFrame)
	if err != nil {
		panic(err)
	}
	return tc
}

// reads "24000/1001", "25" or "29.97"
func ParseRate(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if num, den, ok := strings.Cut(value, "/"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidRate, value)
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidRate, value)
		}
		if n/d <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidRate, value)
		}
		return n / d, nil
	}

	rate, err := strconv.ParseFloat(value, 64)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, value)
	}
	return rate, nil
}

func (t Timecode) TotalSeconds() float64 { return t.total }
func (t Timecode) Rate() float64         { return t.rate }
func (t Timecode) DropFrame() bool       { return t.dropFrame }
func (t Timecode) Source() Format        { return t.source }

// Offset returns the timecode moved by delta seconds. Results below zero
// clamp to zero.
func (t Timecode) Offset(delta float64) Timecode {
	source := t.source
	if source == FormatSMPTE {
		source = FormatSeconds
	}
	return fromSeconds(t.total+delta, t.rate, t.dropFrame, source)
}

// moves the timecode by a whole number of frames
func (t Timecode) OffsetFrames(frames int) Timecode {
	return t.Offset(float64(frames) / t.rate)
}

// same instant at another frame rate
func (t Timecode) WithRate(rate float64, dropFrame bool) Timecode {
	return fromSeconds(t.total, rate, dropFrame, t.source)
}

func (t Timecode) Compare(other Timecode) int {
	switch {
	case t.total < other.total:
		return -1
	case t.total > other.total:
		return 1
	default:
		return 0
	}
}

func (t Timecode) Before(other Timecode) bool { return t.total < other.total }
func (t Timecode) After(other Timecode) bool  { return t.total > other.total }
func (t Timecode) Equal(other Timecode) bool  { return t.total == other.total }

// prints in the spelling the timecode was read from, SRT for plain seconds
func (t Timecode) String() string {
	if t.source == FormatSeconds {
		return t.Format(FormatSRT)
	}
	return t.Format(t.source)
}

func normalizeRate(rate float64) float64 {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return DefaultFrameRate
	}
	return rate
}

func roundMillis(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
