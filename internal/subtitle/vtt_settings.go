package subtitle

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	percentRegex = regexp.MustCompile(`^\d+(\.\d+)?%$`)
	numberRegex  = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

	lineAlignValues     = []string{"start", "center", "end"}
	positionAlignValues = []string{"line-left", "center", "line-right"}
	alignValues         = []string{"start", "center", "end", "left", "right"}
)

// decodeSettings reads the settings that follow the timestamps of a cue
// timing line. A bad value drops only that setting.
func decodeSettings(input string, line, cue int, doc *Document) Settings {
	s := DefaultSettings()
	for _, setting := range strings.Fields(input) {
		name, value, ok := splitSetting(setting)
		if !ok {
			continue
		}
		invalid := func() {
			doc.warn(line, cue, fmt.Sprintf("Invalid value for the setting '%s' (%s).", name, value))
		}

		switch name {
		case "region":
			if _, ok := doc.Regions[value]; ok {
				s.Region = value
			} else {
				s.Region = ""
				doc.warn(line, cue, fmt.Sprintf("Unknown region identifier (%s).", value))
			}

		case "vertical":
			if value == "rl" || value == "lr" {
				s.Vertical = value
			} else {
				invalid()
			}

		case "line":
			pos, align, hasAlign := strings.Cut(value, ",")
			if !hasAlign {
				align = "start"
			}
			isPercent := percentRegex.MatchString(pos)
			if !isPercent && !numberRegex.MatchString(pos) || !slices.Contains(lineAlignValues, align) {
				invalid()
				continue
			}
			v, _ := strconv.ParseFloat(strings.TrimSuffix(pos, "%"), 64)
			if isPercent && v > 100 {
				invalid()
				continue
			}
			s.Line = &v
			s.SnapToLines = !isPercent
			s.LineAlign = align

		case "position":
			pos, align, hasAlign := strings.Cut(value, ",")
			if !hasAlign {
				align = "auto"
			}
			v, ok := parsePercent(pos)
			if !ok || hasAlign && !slices.Contains(positionAlignValues, align) {
				invalid()
				continue
			}
			s.Position = &v
			s.PositionAlign = align

		case "size":
			if v, ok := parsePercent(value); ok {
				s.Size = v
			} else {
				invalid()
			}

		case "align":
			if slices.Contains(alignValues, value) {
				s.Align = value
			} else {
				invalid()
			}

		default:
			doc.warn(line, cue, fmt.Sprintf("Unknown cue setting (%s).", name))
		}
	}
	return s
}

// name:value with neither side empty
func splitSetting(setting string) (string, string, bool) {
	i := strings.IndexByte(setting, ':')
	if i <= 0 || i == len(setting)-1 {
		return "", "", false
	}
	return setting[:i], setting[i+1:], true
}

// N% or N.N% between 0 and 100
func parsePercent(value string) (float64, bool) {
	if !percentRegex.MatchString(value) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
	if err != nil || v > 100 {
		return 0, false
	}
	return v, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
