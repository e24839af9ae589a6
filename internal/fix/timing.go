package fix

import (
	"math"

	"github.com/mgpai22/subqc/internal/shotchange"
	"github.com/mgpai22/subqc/internal/subtitle"
	"github.com/mgpai22/subqc/internal/timecode"
)

// a start placed up to this many frames before a shot change is pulled
// onto it; further away it is pushed back to half a second before
const startSnapFrames = 8

// the gap an end time keeps before the next subtitle or a shot change
const minGapFrames = 2

// SnapToFrames moves every start and end time onto the frame it belongs
// to at rate.
func SnapToFrames(cues []*subtitle.Cue, rate float64) []*subtitle.Cue {
	out := subtitle.CloneCues(cues)
	for _, c := range out {
		start := frameAt(c.Start, rate)
		end := frameAt(c.End, rate)
		c.SetTimes(toFrame(c.Start, start, rate), toFrame(c.End, end, rate))
	}
	return out
}

// SnapToShotChanges snaps to frames at the index rate, then moves start
// and end times that fall within half a second of a shot change. Starts
// go onto the shot change, or half a second after it when the previous
// subtitle still runs past it. Ends go two frames before the shot change,
// or half a second after it when they already cross it.
func SnapToShotChanges(cues []*subtitle.Cue, shots *shotchange.Index) []*subtitle.Cue {
	if shots.Len() == 0 {
		return subtitle.CloneCues(cues)
	}

	rate := shots.Rate()
	half := shots.HalfSecond()
	out := SnapToFrames(cues, rate)

	for j, c := range out {
		start := frameAt(c.Start, rate)
		if k, ok := shots.Nearest(start, false, false); ok {
			shot := shots.Frame(k, timecode.Snapped)
			target := start
			switch {
			case start > shot:
				target = shot
				if j > 0 && frameAt(out[j-1].End, rate) > shot {
					target = shot + half
				}
			case start < shot:
				if shot-start <= startSnapFrames {
					target = shot
				} else {
					target = shot - half
				}
			}
			if target != start {
				setStart(out, j, toFrame(c.Start, target, rate))
			}
		}

		end := frameAt(c.End, rate)
		if k, ok := shots.Nearest(end, true, false); ok {
			shot := shots.Frame(k, timecode.Snapped)
			target := end
			switch d := shot - end; {
			case d < 0:
				target = shot + half
			case d == 0, d == 1:
				target = shot - minGapFrames
			case d > minGapFrames:
				target = shot - minGapFrames
				if j+1 < len(out) && frameAt(out[j+1].Start, rate) < shot-startSnapFrames {
					target = shot - half - minGapFrames
				}
			}
			if target != end {
				setEnd(out, j, toFrame(c.End, target, rate))
			}
		}
	}
	return out
}

// FixGaps closes gaps that are too short to read as a cut: a gap of three
// frames up to just under half a second becomes two frames by moving the
// end time forward, and a gap under two frames becomes two frames by
// moving the end time back. When a shot change sits near the end time the
// next start is pushed forward instead. shots may be nil.
func FixGaps(cues []*subtitle.Cue, shots *shotchange.Index, rate float64) []*subtitle.Cue {
	if shots.Len() > 0 {
		rate = shots.Rate()
	}
	rate = normalizeRate(rate)
	half := int(math.Floor(rate / 2))

	out := subtitle.CloneCues(cues)
	for i := range out {
		forward := false
		if shots.Len() > 0 {
			_, forward = shots.Around(frameAt(out[i].End, rate), true, true)
		}

		for j := range out {
			if j == i {
				continue
			}
			end := frameAt(out[i].End, rate)
			start := frameAt(out[j].Start, rate)
			gap := start - end

			switch {
			case gap >= 3 && gap <= half-1:
				setEnd(out, i, toFrame(out[i].End, start-minGapFrames, rate))
			case gap >= 0 && gap < minGapFrames:
				if forward && setStart(out, j, toFrame(out[j].Start, end+minGapFrames, rate)) {
					continue
				}
				setEnd(out, i, toFrame(out[i].End, start-minGapFrames, rate))
			}
		}
	}
	return out
}

// FixGapsNoShotChanges spaces consecutive subtitles without looking at
// shot changes: short gaps close to two frames, mid-size gaps open to half
// a second and long gaps extend the end time by half a second. The last
// subtitle is always extended.
func FixGapsNoShotChanges(cues []*subtitle.Cue, rate float64) []*subtitle.Cue {
	rate = normalizeRate(rate)
	half := int(math.Round(rate)) / 2

	out := subtitle.CloneCues(cues)
	for i, c := range out {
		end := frameAt(c.End, rate)
		target := end

		if i < len(out)-1 {
			next := frameAt(out[i+1].Start, rate)
			gap := next - end
			switch {
			case gap < minGapFrames || (gap > minGapFrames && gap <= half+minGapFrames):
				target = next - minGapFrames
			case gap >= half*2:
				target = end + half
			case gap != minGapFrames:
				target = next - half
			}
		} else {
			target = end + half
		}

		if target != end {
			setEnd(out, i, toFrame(c.End, target, rate))
		}
	}
	return out
}

// FixMinGaps pulls end times back so that every later subtitle starts at
// least minGap frames after. With frames false the gap is compared in
// milliseconds instead of whole frames. Overlaps are left alone.
func FixMinGaps(cues []*subtitle.Cue, minGap int, frames bool, rate float64) []*subtitle.Cue {
	rate = normalizeRate(rate)
	out := subtitle.CloneCues(cues)

	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if frames {
				gap := strictFrameAt(out[j].Start, rate) - strictFrameAt(out[i].End, rate)
				if gap < 0 || gap >= minGap {
					continue
				}
				newEnd := out[j].Start.TotalSeconds() - float64(minGap)/rate
				setEnd(out, i, out[i].End.Offset(newEnd-out[i].End.TotalSeconds()))
				continue
			}

			gap := roundMillis(out[j].Start.TotalSeconds() - out[i].End.TotalSeconds())
			limit := roundMillis(float64(minGap) / rate)
			if gap < 0 || gap >= limit {
				continue
			}
			newEnd := out[j].Start.TotalSeconds() - limit
			setEnd(out, i, out[i].End.Offset(newEnd-out[i].End.TotalSeconds()))
		}
	}
	return out
}

// setStart refuses a start at or past the end time, and a start moved back
// into the previous subtitle.
func setStart(cues []*subtitle.Cue, i int, tc timecode.Timecode) bool {
	c := cues[i]
	if !tc.Before(c.End) {
		return false
	}
	if i > 0 && tc.Before(cues[i-1].End) && tc.Before(c.Start) {
		return false
	}
	c.SetTimes(tc, c.End)
	return true
}

// setEnd refuses an end at or before the start time, and an end moved
// forward into the next subtitle.
func setEnd(cues []*subtitle.Cue, i int, tc timecode.Timecode) bool {
	c := cues[i]
	if !tc.After(c.Start) {
		return false
	}
	if i+1 < len(cues) && tc.After(cues[i+1].Start) && tc.After(c.End) {
		return false
	}
	c.SetTimes(c.Start, tc)
	return true
}

func at(tc timecode.Timecode, rate float64) timecode.Timecode {
	if tc.Rate() != rate {
		return tc.WithRate(rate, tc.DropFrame())
	}
	return tc
}

func frameAt(tc timecode.Timecode, rate float64) int {
	return at(tc, rate).Rendered(timecode.Snapped)
}

func strictFrameAt(tc timecode.Timecode, rate float64) int {
	return at(tc, rate).Rendered(timecode.Strict)
}

// timecode of frame at rate, keeping the spelling of tc
func toFrame(tc timecode.Timecode, frame int, rate float64) timecode.Timecode {
	tc = at(tc, rate)
	return tc.Offset(float64(frame)/rate - tc.TotalSeconds())
}

func normalizeRate(rate float64) float64 {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return timecode.DefaultFrameRate
	}
	return rate
}

func roundMillis(v float64) float64 {
	return math.Round(v*1000) / 1000
}
