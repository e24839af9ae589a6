package timecode

import (
	"fmt"
	"math"
)

// Format prints the timecode in the given spelling. SRT and WebVTT use
// three fraction digits, ASS two, SMPTE prints whole frames after ":" or,
// for drop-frame timecodes, ";".
func (t Timecode) Format(f Format) string {
	switch f {
	case FormatASS:
		cs := int64(math.Round(t.total * 100))
		h, m, s := cs/360000, (cs/6000)%60, (cs/100)%60
		return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
	case FormatSMPTE:
		h, m, s, ms := t.components()
		frames := int(math.Round(float64(ms) / 1000 * t.rate))
		if last := roundedRate(t.rate) - 1; frames > last {
			frames = last
		}
		sep := ":"
		if t.dropFrame {
			sep = ";"
		}
		return fmt.Sprintf("%02d:%02d:%02d%s%02d", h, m, s, sep, frames)
	case FormatVTTShort:
		h, m, s, ms := t.components()
		if h == 0 {
			return fmt.Sprintf("%02d:%02d.%03d", m, s, ms)
		}
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
	case FormatVTTLong:
		h, m, s, ms := t.components()
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
	default:
		h, m, s, ms := t.components()
		return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
	}
}

func (t Timecode) SRT() string { return t.Format(FormatSRT) }
func (t Timecode) VTT() string { return t.Format(FormatVTTLong) }

func (t Timecode) components() (h, m, s, ms int64) {
	total := int64(math.Round(t.total * 1000))
	return total / 3600000, (total / 60000) % 60, (total / 1000) % 60, total % 1000
}

// Hours, minutes, whole seconds and milliseconds.
func (t Timecode) Components() (hours, minutes, seconds, millis int) {
	h, m, s, ms := t.components()
	return int(h), int(m), int(s), int(ms)
}
