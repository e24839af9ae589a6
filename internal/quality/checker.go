package quality

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mgpai22/subqc/internal/shotchange"
	"github.com/mgpai22/subqc/internal/subtitle"
	"github.com/mgpai22/subqc/internal/timecode"
)

// Config selects the rules to run and their limits.
type Config struct {
	CPS       bool    `yaml:"cps"`
	CPSLimit  float64 `yaml:"cps_limit"`
	CPSSpaces bool    `yaml:"cps_spaces"`

	CPL      bool `yaml:"cpl"`
	CPLLimit int  `yaml:"cpl_limit"`

	MaxLines    int     `yaml:"max_lines"`
	MinDuration float64 `yaml:"min_duration"`
	MaxDuration float64 `yaml:"max_duration"`

	TextFitsOneLine bool `yaml:"text_fits_one_line"`
	Ellipses        bool `yaml:"ellipses"`

	Gaps bool `yaml:"gaps"`
	// gaps from InvalidGapMin to InvalidGapMax frames, both included, are
	// reported, as are gaps under two frames
	InvalidGapMin int `yaml:"invalid_gap_min"`
	InvalidGapMax int `yaml:"invalid_gap_max"`

	ShotChanges bool `yaml:"shot_changes"`

	// on-screen text: a cue raised to this line must be bracketed upper case
	OST     bool    `yaml:"ost"`
	OSTLine float64 `yaml:"ost_line"`

	Sort bool `yaml:"sort"`

	// empty disables the glyph rule
	AllowedGlyphs string `yaml:"allowed_glyphs,omitempty"`

	// frame rate used for gap and shot change frames; 0 keeps the rate
	// each timecode was parsed with
	FrameRate float64 `yaml:"frame_rate"`
}

func DefaultConfig() Config {
	return Config{
		CPS:             true,
		CPSLimit:        25,
		CPL:             true,
		CPLLimit:        42,
		MaxLines:        2,
		MinDuration:     0.833,
		MaxDuration:     7,
		TextFitsOneLine: true,
		Ellipses:        true,
		Gaps:            true,
		InvalidGapMin:   3,
		InvalidGapMax:   11,
		ShotChanges:     true,
		OST:             true,
		OSTLine:         20,
		Sort:            true,
	}
}

// Finding is one problem reported against a cue. Counter numbers the
// findings of the same cue in the order they were found.
type Finding struct {
	Cue      int               `yaml:"cue"`
	Counter  int               `yaml:"counter"`
	Rule     string            `yaml:"rule"`
	Severity subtitle.Severity `yaml:"severity"`
	Message  string            `yaml:"message"`
}

// Key is the cue number and counter joined by an underscore.
func (f Finding) Key() string {
	return fmt.Sprintf("%d_%d", f.Cue, f.Counter)
}

// Result holds findings ordered by cue, then counter.
type Result struct {
	Findings []Finding `yaml:"findings"`
}

func (r Result) Issues() []Finding   { return r.filter(subtitle.SeverityError) }
func (r Result) Warnings() []Finding { return r.filter(subtitle.SeverityWarning) }

func (r Result) Clean() bool { return len(r.Findings) == 0 }

func (r Result) filter(s subtitle.Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

const (
	RuleCPS         = "cps"
	RuleCPL         = "cpl"
	RuleMaxLines    = "max-lines"
	RuleMinDuration = "min-duration"
	RuleMaxDuration = "max-duration"
	RuleOneLine     = "fits-one-line"
	RuleEllipses    = "ellipses"
	RuleGlyphs      = "glyphs"
	RuleGaps        = "gaps"
	RuleShotChanges = "shot-changes"
	RuleOST         = "ost"
	RuleSort        = "sort"
)

var ostPattern = regexp.MustCompile(`^\[.+\]$`)

// Check runs the enabled rules over cues in order. shots may be nil, in
// which case the shot change rule is skipped. The cues are not modified.
func Check(cues []*subtitle.Cue, shots *shotchange.Index, cfg Config) Result {
	c := &checker{
		cues:  cues,
		shots: shots,
		cfg:   cfg,
		upper: cases.Upper(language.Und),
	}

	var res Result
	for i := range cues {
		res.Findings = append(res.Findings, c.checkCue(i)...)
	}
	return res
}

type checker struct {
	cues  []*subtitle.Cue
	shots *shotchange.Index
	cfg   Config
	upper cases.Caser
}

type cueFindings struct {
	cue      int
	counter  int
	findings []Finding
}

func (cf *cueFindings) add(rule string, sev subtitle.Severity, msg string) {
	cf.counter++
	cf.findings = append(cf.findings, Finding{
		Cue:      cf.cue,
		Counter:  cf.counter,
		Rule:     rule,
		Severity: sev,
		Message:  msg,
	})
}

func (cf *cueFindings) issue(rule, msg string)   { cf.add(rule, subtitle.SeverityError, msg) }
func (cf *cueFindings) warning(rule, msg string) { cf.add(rule, subtitle.SeverityWarning, msg) }

func (c *checker) checkCue(i int) []Finding {
	cue := c.cues[i]
	cfg := c.cfg
	out := &cueFindings{cue: cue.Number}

	if cfg.CPS {
		cps := cue.CPSNoSpaces
		if cfg.CPSSpaces {
			cps = cue.CPS
		}
		if cps > cfg.CPSLimit {
			out.issue(RuleCPS, fmt.Sprintf("Reading speed limit exceeded (%s CPS)", formatFloat(cps)))
		}
	}

	if cfg.CPL {
		for j, length := range cue.LineLengths {
			if length > cfg.CPLLimit {
				out.issue(RuleCPL, fmt.Sprintf("Line length limit exceeded (line %d: %d characters)", j+1, length))
			}
		}
	}

	if cfg.MaxLines > 0 && len(cue.Lines) > cfg.MaxLines {
		out.issue(RuleMaxLines, fmt.Sprintf("Maximum number of lines exceeded (%d lines)", len(cue.Lines)))
	}

	if cue.Duration < cfg.MinDuration {
		out.issue(RuleMinDuration, fmt.Sprintf("Subtitle lasts less than the minimum duration (%s seconds)", formatFloat(cue.Duration)))
	}
	if cfg.MaxDuration > 0 && cue.Duration > cfg.MaxDuration {
		out.issue(RuleMaxDuration, fmt.Sprintf("Subtitle exceeds the maximum duration (%s seconds)", formatFloat(cue.Duration)))
	}

	if cfg.TextFitsOneLine && FitsOneLine(cue, cfg.CPLLimit) {
		out.issue(RuleOneLine, "Text can fit in one line")
	}

	if cfg.Ellipses && strings.Contains(cue.Text, "...") {
		out.issue(RuleEllipses, "Subtitle uses three dots (...) instead of ellipsis character (…)")
	}

	if cfg.AllowedGlyphs != "" {
		for _, line := range cue.Lines {
			for _, r := range line {
				if !strings.ContainsRune(cfg.AllowedGlyphs, r) {
					out.issue(RuleGlyphs, fmt.Sprintf("Invalid character (%c).", r))
				}
			}
		}
	}

	if cfg.Gaps {
		c.checkGaps(i, out)
	}

	if cfg.ShotChanges && c.shots.Len() > 0 {
		c.checkShotChanges(cue, out)
	}

	if cfg.OST {
		c.checkOST(cue, out)
	}

	if cfg.Sort && i > 0 && cue.Start.Before(c.cues[i-1].Start) {
		out.warning(RuleSort, "Start time is less than the previous subtitle's start time.")
	}

	return out.findings
}

// FitsOneLine reports a multi-line cue, not a dialogue, whose text is
// shorter than the line length limit.
func FitsOneLine(cue *subtitle.Cue, cplLimit int) bool {
	return len(cue.Lines) > 1 && cue.TotalLength < cplLimit && !cue.Dialogue
}

// compares the end of cue i with the start of every other cue
func (c *checker) checkGaps(i int, out *cueFindings) {
	end := c.frame(c.cues[i].End)
	for j, other := range c.cues {
		if j == i {
			continue
		}
		gap := c.frame(other.Start) - end
		if InvalidGap(gap, c.cfg.InvalidGapMin, c.cfg.InvalidGapMax) {
			out.issue(RuleGaps, fmt.Sprintf("Invalid gap (%s)", plural(gap, "frame")))
		}
	}
}

// InvalidGap reports gaps in [lo, hi] or under two frames. Negative gaps
// are overlaps, which are not gaps.
func InvalidGap(gap, lo, hi int) bool {
	return (gap >= lo && gap <= hi) || (gap >= 0 && gap < 2)
}

func (c *checker) checkShotChanges(cue *subtitle.Cue, out *cueFindings) {
	start := c.shotFrame(cue.Start)
	end := c.shotFrame(cue.End)

	if p, ok := c.shots.Around(start, false, false); ok {
		c.reportShots(p, "starts", out)
	}
	if p, ok := c.shots.Around(end, true, false); ok {
		c.reportShots(p, "ends", out)
	}
}

func (c *checker) reportShots(p shotchange.Proximity, verb string, out *cueFindings) {
	errs := p.Errors()
	for _, hit := range p.Hits {
		msg := ShotChangeMessage(verb, hit.Diff)
		if errs {
			out.issue(RuleShotChanges, msg)
		} else {
			out.warning(RuleShotChanges, msg)
		}
	}
}

// ShotChangeMessage describes a boundary diff frames away from a shot
// change; verb is "starts" or "ends".
func ShotChangeMessage(verb string, diff int) string {
	switch {
	case diff > 0:
		return fmt.Sprintf("The subtitle %s %s after a shot change", verb, plural(diff, "frame"))
	case diff < 0:
		return fmt.Sprintf("The subtitle %s %s before a shot change", verb, plural(-diff, "frame"))
	default:
		return fmt.Sprintf("The subtitle %s on a shot change", verb)
	}
}

func (c *checker) checkOST(cue *subtitle.Cue, out *cueFindings) {
	text := strings.Join(cue.Lines, " ")
	bracketed := ostPattern.MatchString(text)
	upper := c.upper.String(text) == text

	if cue.Line != nil && *cue.Line == c.cfg.OSTLine {
		if !bracketed || !upper {
			out.issue(RuleOST, "Error in OST")
		}
		return
	}
	if bracketed && !upper {
		out.warning(RuleOST, "Possible OST not raised to the top of the screen.")
	}
}

func (c *checker) frame(tc timecode.Timecode) int {
	if c.cfg.FrameRate > 0 && tc.Rate() != c.cfg.FrameRate {
		tc = tc.WithRate(c.cfg.FrameRate, tc.DropFrame())
	}
	return tc.Rendered(timecode.Strict)
}

// frames are compared at the rate the shot change index was built with
func (c *checker) shotFrame(tc timecode.Timecode) int {
	if tc.Rate() != c.shots.Rate() {
		tc = tc.WithRate(c.shots.Rate(), tc.DropFrame())
	}
	return tc.Rendered(timecode.Strict)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// prints whole numbers with one decimal, 30.0 rather than 30
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
