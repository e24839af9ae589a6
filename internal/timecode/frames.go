package timecode

import "math"

// which rounding rule turns seconds into a frame index
type Family int

const (
	// rounds to the nearest frame when the time sits within half a
	// millisecond below a frame boundary, truncates otherwise
	Snapped Family = iota
	// always truncates
	Strict
)

// tolerance for millisecond-rounded times, scaled by the frame rate
const snapTolerance = 0.00049999999999

// absorbs float noise such as 0.7*30 = 20.999999999999996
const floorEpsilon = 1e-9

// actual frame index at the true frame rate
func (t Timecode) Rendered(f Family) int {
	if f == Strict {
		return t.renderedStrict
	}
	return t.renderedSnapped
}

// frame index as a drop-frame display counts it; equal to Rendered
// when the timecode is not drop-frame
func (t Timecode) Counted(f Family) int {
	if f == Strict {
		return t.countedStrict
	}
	return t.countedSnapped
}

// frames between t and a later timecode, negative when other is earlier
func (t Timecode) FramesTo(other Timecode, f Family) int {
	return other.Rendered(f) - t.Rendered(f)
}

func snappedFrames(seconds, rate float64) int {
	exact := seconds * rate
	nearest := math.Round(exact)
	if nearest-exact <= snapTolerance*rate {
		return int(nearest)
	}
	return int(math.Floor(exact + floorEpsilon))
}

func strictFrames(seconds, rate float64) int {
	return int(math.Floor(seconds*rate + floorEpsilon))
}

func roundedRate(rate float64) int {
	r := int(math.Round(rate))
	if r < 1 {
		return 1
	}
	return r
}

// converts a rendered frame index to its drop-frame display count: two
// frame numbers are skipped every minute except every tenth minute
func countedFrames(rendered, r int) int {
	tenMinutes := r*600 - 18
	minute := r*60 - 2
	blocks, rest := rendered/tenMinutes, rendered%tenMinutes
	counted := rendered + 18*blocks
	if rest > 1 {
		counted += 2 * ((rest - 2) / minute)
	}
	return counted
}

// RenderedFromCounted undoes countedFrames.
func RenderedFromCounted(counted int, rate float64) int {
	r := roundedRate(rate)
	perMinute := r * 60
	return counted - (counted/perMinute)*2 + (counted/(r*600))*2
}

// FromFrames builds the timecode of a rendered frame index.
func FromFrames(frames int, rate float64, dropFrame bool) Timecode {
	rate = normalizeRate(rate)
	return FromSeconds(float64(frames)/rate, rate, dropFrame)
}
