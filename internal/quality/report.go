package quality

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/mgpai22/subqc/internal/subtitle"
)

// FileReport is the outcome of checking one subtitle file.
type FileReport struct {
	Path      string  `yaml:"path"`
	Video     string  `yaml:"video,omitempty"`
	FrameRate float64 `yaml:"frame_rate"`
	// parse warnings, separate from quality findings
	Diagnostics []subtitle.Diagnostic `yaml:"diagnostics,omitempty"`
	Result      Result                `yaml:"result"`
	// set when the file could not be checked
	Error string `yaml:"error,omitempty"`
}

const noIssues = "\n\n\tNo issues found."

// Text renders a result in the plain report layout: an issues block, a
// warnings block, tab separated.
func Text(r Result) string {
	if r.Clean() {
		return noIssues
	}

	var sb strings.Builder
	if issues := r.Issues(); len(issues) > 0 {
		sb.WriteString("- Issues\n\n\t#\t\t\tIssue description\n\n")
		writeRows(&sb, issues)
	}
	if warnings := r.Warnings(); len(warnings) > 0 {
		sb.WriteString("\n\n- Warnings\n\n\t#\t\t\tWarning\n\n")
		writeRows(&sb, warnings)
	}
	return sb.String()
}

func writeRows(sb *strings.Builder, findings []Finding) {
	for _, f := range findings {
		num := strconv.Itoa(f.Cue)
		sb.WriteString("\t")
		sb.WriteString(num)
		if len(num) > 3 {
			sb.WriteString("\t\t")
		} else {
			sb.WriteString("\t\t\t")
		}
		sb.WriteString(f.Message)
		sb.WriteString("\n")
	}
}

// Table renders a result as a rounded table, issues first.
func Table(r Result) string {
	if r.Clean() {
		return "No issues found."
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Severity", "Rule", "Description"})
	for _, f := range append(r.Issues(), r.Warnings()...) {
		tw.AppendRow(table.Row{f.Cue, f.Severity.String(), f.Rule, f.Message})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft},
		{Number: 4, Align: text.AlignLeft, WidthMax: 80},
	})
	return tw.Render()
}

// WriteYAML encodes the reports as a YAML list.
func WriteYAML(w io.Writer, reports []FileReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// WriteBatchText writes the directory report: a header listing the files
// and the settings used, then one block per file.
func WriteBatchText(w io.Writer, dir string, reports []FileReport, cfg Config) error {
	var lines []string
	lines = append(lines,
		strings.Repeat("-", 160),
		fmt.Sprintf("Quality report for %s files in the directory %s", extensions(reports), dir),
		strings.Repeat("-", 160),
		"\n",
		strings.Repeat("-", 120),
		"Files checked",
		"\n",
	)
	for _, r := range reports {
		lines = append(lines, filepath.Base(r.Path))
	}
	lines = append(lines,
		"\n",
		strings.Repeat("-", 120),
		"Settings used:",
		"\n",
	)
	lines = append(lines, SettingsLines(cfg)...)
	lines = append(lines,
		"\n",
		strings.Repeat("-", 120),
		"\n",
	)

	for _, r := range reports {
		lines = append(lines,
			strings.Repeat("-", 120),
			"\n",
			filepath.Base(r.Path),
			"\n",
		)
		if r.Error != "" {
			lines = append(lines, "\n\n\tCould not be checked: "+r.Error)
		} else {
			lines = append(lines, Text(r.Result))
		}
		lines = append(lines, "\n\n")
	}

	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// SettingsLines describes the limits a report was produced with.
func SettingsLines(cfg Config) []string {
	return []string{
		fmt.Sprintf("Characters-per-second limit: %s", strconv.FormatFloat(cfg.CPSLimit, 'f', -1, 64)),
		fmt.Sprintf("Include spaces in characters per second: %t", cfg.CPSSpaces),
		fmt.Sprintf("Characters-per-line limit: %d", cfg.CPLLimit),
		fmt.Sprintf("Max. lines per subtitle: %d", cfg.MaxLines),
		fmt.Sprintf("Min. subtitle duration: %s seconds", strconv.FormatFloat(cfg.MinDuration, 'f', -1, 64)),
		fmt.Sprintf("Max. subtitle duration: %s seconds", strconv.FormatFloat(cfg.MaxDuration, 'f', -1, 64)),
		fmt.Sprintf("Use ellipses instead of three dots: %t", cfg.Ellipses),
	}
}

func extensions(reports []FileReport) string {
	seen := map[string]bool{}
	for _, r := range reports {
		seen[strings.ToLower(filepath.Ext(r.Path))] = true
	}
	exts := make([]string, 0, len(seen))
	for ext := range seen {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	if len(exts) == 0 {
		return "subtitle"
	}
	return strings.Join(exts, "/")
}
