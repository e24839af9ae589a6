package fix

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mgpai22/subqc/internal/cuetext"
	"github.com/mgpai22/subqc/internal/quality"
	"github.com/mgpai22/subqc/internal/subtitle"
)

// Replacement swaps every occurrence of Old in cue text for New.
type Replacement struct {
	Old string `toml:"old"`
	New string `toml:"new"`
}

// Ellipsis replaces three dots with the ellipsis character.
var Ellipsis = Replacement{Old: "...", New: "…"}

// Sort orders cues by start time, keeping the file order of equal starts.
func Sort(cues []*subtitle.Cue) []*subtitle.Cue {
	out := subtitle.CloneCues(cues)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// Renumber numbers cues from 1 in slice order. SubRip identifiers follow
// the new numbers; WebVTT identifiers are kept.
func Renumber(cues []*subtitle.Cue) []*subtitle.Cue {
	out := subtitle.CloneCues(cues)
	for i, c := range out {
		c.Number = i + 1
		if c.Dialect == cuetext.SubRip {
			c.Identifier = strconv.Itoa(c.Number)
		}
	}
	return out
}

// Replace applies the replacements in order and re-parses the text of
// every cue that changed.
func Replace(cues []*subtitle.Cue, repl []Replacement) []*subtitle.Cue {
	out := subtitle.CloneCues(cues)
	for _, c := range out {
		text := c.Text
		for _, r := range repl {
			if r.Old == "" {
				continue
			}
			text = strings.ReplaceAll(text, r.Old, r.New)
		}
		if text != c.Text {
			c.SetText(text)
		}
	}
	return out
}

// JoinShortLines puts the text of a multi-line cue on one line when it is
// shorter than cplLimit. Dialogues keep one speaker per line.
func JoinShortLines(cues []*subtitle.Cue, cplLimit int) []*subtitle.Cue {
	out := subtitle.CloneCues(cues)
	for _, c := range out {
		if quality.FitsOneLine(c, cplLimit) {
			c.SetText(strings.ReplaceAll(c.Text, "\n", " "))
		}
	}
	return out
}
