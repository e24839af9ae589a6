package subtitle

import (
	"fmt"
	"strconv"
	"strings"
)

// WebVTT region definition; widths and anchors are percentages
type Region struct {
	ID              string
	Width           float64
	Lines           int
	RegionAnchorX   float64
	RegionAnchorY   float64
	ViewportAnchorX float64
	ViewportAnchorY float64
	// "up" or empty
	Scroll string
}

func NewRegion(id string) *Region {
	return &Region{
		ID:              id,
		Width:           100,
		Lines:           3,
		RegionAnchorY:   100,
		ViewportAnchorY: 100,
	}
}

// REGION block with the id and any setting that differs from the default
func (r *Region) String() string {
	var sb strings.Builder
	sb.WriteString("REGION\nid:")
	sb.WriteString(r.ID)
	if r.Width != 100 {
		fmt.Fprintf(&sb, "\nwidth:%s%%", formatNumber(r.Width))
	}
	if r.Lines != 3 {
		fmt.Fprintf(&sb, "\nlines:%d", r.Lines)
	}
	if r.RegionAnchorX != 0 || r.RegionAnchorY != 100 {
		fmt.Fprintf(&sb, "\nregionanchor:%s%%,%s%%",
			formatNumber(r.RegionAnchorX), formatNumber(r.RegionAnchorY))
	}
	if r.ViewportAnchorX != 0 || r.ViewportAnchorY != 100 {
		fmt.Fprintf(&sb, "\nviewportanchor:%s%%,%s%%",
			formatNumber(r.ViewportAnchorX), formatNumber(r.ViewportAnchorY))
	}
	if r.Scroll != "" {
		sb.WriteString("\nscroll:")
		sb.WriteString(r.Scroll)
	}
	return sb.String()
}

// decodeRegion reads the settings of a REGION block. Each setting is
// validated alone; an invalid value leaves that setting at its default.
func decodeRegion(body string, line int, doc *Document) *Region {
	r := NewRegion("")
	for _, setting := range strings.Fields(body) {
		name, value, ok := splitSetting(setting)
		if !ok {
			continue
		}
		switch name {
		case "id":
			r.ID = value
		case "width":
			if v, ok := parsePercent(value); ok {
				r.Width = v
			} else {
				doc.warn(line, 0, fmt.Sprintf("Invalid region width (%s).", value))
			}
		case "lines":
			if n, err := strconv.Atoi(value); err == nil && isDigits(value) {
				r.Lines = n
			} else {
				doc.warn(line, 0, fmt.Sprintf("Invalid region lines (%s).", value))
			}
		case "regionanchor":
			if x, y, ok := parseAnchor(value); ok {
				r.RegionAnchorX, r.RegionAnchorY = x, y
			} else {
				doc.warn(line, 0, fmt.Sprintf("Invalid region anchor (%s).", value))
			}
		case "viewportanchor":
			if x, y, ok := parseAnchor(value); ok {
				r.ViewportAnchorX, r.ViewportAnchorY = x, y
			} else {
				doc.warn(line, 0, fmt.Sprintf("Invalid viewport anchor (%s).", value))
			}
		case "scroll":
			if value == "up" {
				r.Scroll = value
			} else {
				doc.warn(line, 0, fmt.Sprintf("Invalid region scroll value (%s).", value))
			}
		default:
			doc.warn(line, 0, fmt.Sprintf("Unknown region setting (%s).", name))
		}
	}
	return r
}

func parseAnchor(value string) (float64, float64, bool) {
	xs, ys, ok := strings.Cut(value, ",")
	if !ok {
		return 0, 0, false
	}
	x, okX := parsePercent(xs)
	y, okY := parsePercent(ys)
	if !okX || !okY {
		return 0, 0, false
	}
	return x, y, true
}
