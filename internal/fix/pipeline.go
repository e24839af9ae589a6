package fix

import (
	"github.com/mgpai22/subqc/internal/logging"
	"github.com/mgpai22/subqc/internal/shotchange"
	"github.com/mgpai22/subqc/internal/subtitle"
)

// Config selects the fixes a Pipeline applies.
type Config struct {
	Sort           bool
	Ellipses       bool
	Replacements   []Replacement
	JoinShortLines bool
	CPLLimit       int

	SnapToFrames      bool
	SnapToShotChanges bool
	FixGaps           bool
	// extend end times without shot changes instead of FixGaps
	ExtendEnds bool

	MinGaps      bool
	MinGap       int
	MinGapFrames bool
}

func DefaultConfig() Config {
	return Config{
		Sort:           true,
		Ellipses:       true,
		JoinShortLines: true,
		CPLLimit:       42,
		SnapToFrames:   true,
		FixGaps:        true,
		MinGap:         2,
		MinGapFrames:   true,
	}
}

// Pipeline runs the enabled fixes in a fixed order: sort and renumber,
// text replacements, short line joins, frame snapping, shot change
// snapping, gap fixes, then minimum gaps.
type Pipeline struct {
	cfg    Config
	shots  *shotchange.Index
	rate   float64
	logger *logging.Logger
}

// NewPipeline builds a pipeline for subtitles at rate. shots may be nil,
// which disables shot change snapping.
func NewPipeline(cfg Config, shots *shotchange.Index, rate float64, logger *logging.Logger) *Pipeline {
	if shots.Len() > 0 {
		rate = shots.Rate()
	}
	return &Pipeline{
		cfg:    cfg,
		shots:  shots,
		rate:   normalizeRate(rate),
		logger: logging.OrNop(logger),
	}
}

type step struct {
	name string
	on   bool
	run  func([]*subtitle.Cue) []*subtitle.Cue
}

// Run returns fixed copies of cues.
func (p *Pipeline) Run(cues []*subtitle.Cue) []*subtitle.Cue {
	cfg := p.cfg

	repl := append([]Replacement(nil), cfg.Replacements...)
	if cfg.Ellipses {
		repl = append(repl, Ellipsis)
	}

	steps := []step{
		{"sort", cfg.Sort, func(c []*subtitle.Cue) []*subtitle.Cue { return Renumber(Sort(c)) }},
		{"replacements", len(repl) > 0, func(c []*subtitle.Cue) []*subtitle.Cue { return Replace(c, repl) }},
		{"join-short-lines", cfg.JoinShortLines, func(c []*subtitle.Cue) []*subtitle.Cue { return JoinShortLines(c, cfg.CPLLimit) }},
		{"snap-to-frames", cfg.SnapToFrames, func(c []*subtitle.Cue) []*subtitle.Cue { return SnapToFrames(c, p.rate) }},
		{"snap-to-shot-changes", cfg.SnapToShotChanges && p.shots.Len() > 0, func(c []*subtitle.Cue) []*subtitle.Cue { return SnapToShotChanges(c, p.shots) }},
		{"fix-gaps", cfg.FixGaps && !cfg.ExtendEnds, func(c []*subtitle.Cue) []*subtitle.Cue { return FixGaps(c, p.shots, p.rate) }},
		{"extend-ends", cfg.ExtendEnds, func(c []*subtitle.Cue) []*subtitle.Cue { return FixGapsNoShotChanges(c, p.rate) }},
		{"min-gaps", cfg.MinGaps, func(c []*subtitle.Cue) []*subtitle.Cue { return FixMinGaps(c, cfg.MinGap, cfg.MinGapFrames, p.rate) }},
	}

	out := subtitle.CloneCues(cues)
	for _, s := range steps {
		if !s.on {
			continue
		}
		next := s.run(out)
		p.logger.Debugw("Applied fix", "step", s.name, "changed", Changed(out, next))
		out = next
	}
	return out
}

// Changed counts positions whose number, times or text differ.
func Changed(before, after []*subtitle.Cue) int {
	n := 0
	for i := range after {
		if i >= len(before) {
			n++
			continue
		}
		a, b := before[i], after[i]
		if a.Number != b.Number || !a.Start.Equal(b.Start) || !a.End.Equal(b.End) || a.Text != b.Text {
			n++
		}
	}
	return n
}
