package shotchange

import (
	"math"
	"sort"

	"github.com/mgpai22/subqc/internal/timecode"
)

// Index is a sorted list of shot change times with their frame numbers
// precomputed at one frame rate.
type Index struct {
	times   []float64
	rate    float64
	half    int
	snapped []int
	strict  []int
}

// New copies and sorts the timestamps (seconds). Negative values are dropped.
func New(timestamps []float64, rate float64) *Index {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = timecode.DefaultFrameRate
	}

	times := make([]float64, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts < 0 || math.IsNaN(ts) {
			continue
		}
		times = append(times, ts)
	}
	sort.Float64s(times)

	idx := &Index{
		times:   times,
		rate:    rate,
		half:    int(math.Floor(rate / 2)),
		snapped: make([]int, len(times)),
		strict:  make([]int, len(times)),
	}
	for i, ts := range times {
		tc := timecode.FromSeconds(ts, rate, false)
		idx.snapped[i] = tc.Rendered(timecode.Snapped)
		idx.strict[i] = tc.Rendered(timecode.Strict)
	}
	return idx
}

// Len is safe on a nil index.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.times)
}

func (x *Index) Rate() float64 { return x.rate }

// number of frames in half a second, rounded down
func (x *Index) HalfSecond() int { return x.half }

func (x *Index) Time(i int) float64 { return x.times[i] }

// Times returns a copy of the sorted timestamps.
func (x *Index) Times() []float64 {
	if x == nil {
		return nil
	}
	return append([]float64(nil), x.times...)
}

func (x *Index) Frame(i int, f timecode.Family) int {
	if f == timecode.Strict {
		return x.strict[i]
	}
	return x.snapped[i]
}

// Timecode of shot change i at the index frame rate.
func (x *Index) Timecode(i int) timecode.Timecode {
	return timecode.FromSeconds(x.times[i], x.rate, false)
}

// Nearest binary searches for a shot change within half a second of frame.
// The band reaches one frame further ahead for end times, and two frames
// further back in gap mode. The first index found inside the band is
// returned, which is not necessarily the closest one.
func (x *Index) Nearest(frame int, end, gaps bool) (int, bool) {
	if x.Len() == 0 {
		return -1, false
	}

	low, high := 0, len(x.snapped)-1
	for low <= high {
		mid := (low + high) / 2
		m := x.snapped[mid]
		switch {
		case (!gaps && m <= frame-x.half) || (gaps && m <= frame-x.half-2):
			low = mid + 1
		case (!end && m >= frame+x.half) || (end && m >= frame+x.half+1):
			high = mid - 1
		default:
			return mid, true
		}
	}
	return -1, false
}

// Hit is a shot change too close to a subtitle boundary. Diff is the
// boundary frame minus the shot change frame: positive when the boundary
// falls after the shot change.
type Hit struct {
	Shot int
	Diff int
}

// Proximity collects what a scan around one subtitle boundary found.
type Proximity struct {
	Hits []Hit
	// start exactly on a shot change, or end exactly two frames before one
	OnRight bool
	// shot changes up to half a second plus one frame before the boundary,
	// only collected in gap mode
	NearList []int
}

// Errors reports whether the hits are errors rather than warnings. Hits
// only downgrade to warnings when the boundary is also correctly placed
// against another shot change.
func (p Proximity) Errors() bool {
	return len(p.Hits) > 0 && !p.OnRight
}

// Near scans outward from first, a result of Nearest, and classifies every
// shot change around frame. It walks back from first until the shot
// changes are half a second or more behind, then forward from first+1
// until they are half a second (plus one frame for end times) ahead.
// Frames are compared in the strict family. An end time two frames before
// a shot change is correct and never reported.
func (x *Index) Near(first, frame int, end, gaps bool) Proximity {
	var p Proximity
	n := x.Len()
	if first < 0 || first >= n {
		return p
	}

	back := true
	i := first
	for {
		diff := frame - x.strict[i]

		switch {
		case diff > 0 && diff <= x.half-1:
			p.Hits = append(p.Hits, Hit{Shot: i, Diff: diff})
		case (!end && diff >= -(x.half-1) && diff < 0) ||
			(end && diff >= -x.half && diff <= 0 && diff != -2):
			p.Hits = append(p.Hits, Hit{Shot: i, Diff: diff})
		case gaps && diff > 0 && diff <= x.half+1:
			p.NearList = append(p.NearList, i)
		case diff == 0 && !end:
			p.OnRight = true
		case diff == -2 && end:
			p.OnRight = true
		case diff >= x.half && back:
			back = false
			i = first
		case (!end && diff <= -x.half) || (end && diff <= -(x.half+1)):
			return p
		}

		switch {
		case back && i >= 1:
			i--
		case back:
			back = false
			if first+1 >= n {
				return p
			}
			i = first + 1
		case i <= n-2:
			i++
		default:
			return p
		}
	}
}

// Around is Nearest followed by Near.
func (x *Index) Around(frame int, end, gaps bool) (Proximity, bool) {
	first, ok := x.Nearest(frame, end, gaps)
	if !ok {
		return Proximity{}, false
	}
	return x.Near(first, frame, end, gaps), true
}
