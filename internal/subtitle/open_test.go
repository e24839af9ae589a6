package subtitle

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleVTT = `WEBVTT

REGION
id:fred
width:40%
lines:3
regionanchor:0%,100%
viewportanchor:10%,90%
scroll:up

STYLE
::cue { color: yellow }

1
00:00:01.000 --> 00:00:04.000 region:fred line:0 align:start
<v Fred>Hello, world!</v>

intro
00:05.500 --> 00:08.200 position:10%,line-left size:35% line:50%,center
This is a test.
With multiple lines.

00:00:10.000 --> 00:00:12.500 bogus:1
No cue identifier &amp; more.
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestParseSRTFile(t *testing.T) {
	content := `1
00:00:01,000 --> 00:00:04,000
Hello, world!

2
00:00:05,500 --> 00:00:08,200
This is a test.
With multiple lines.

3
00:00:10,000 --> 00:00:12,500
Final subtitle.
`
	doc, err := Open(writeTemp(t, "test.srt", content), Options{})
	if err != nil {
		t.Fatalf("failed to open SRT file: %v", err)
	}

	if doc.Format != FormatSRT {
		t.Errorf("expected format SRT, got %s", doc.Format)
	}
	if len(doc.Cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(doc.Cues))
	}
	if len(doc.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %v", doc.Diagnostics)
	}

	first := doc.Cues[0]
	if first.Start.TotalSeconds() != 1 || first.End.TotalSeconds() != 4 {
		t.Errorf("cue 1: expected 1s-4s, got %v-%v", first.Start, first.End)
	}
	if first.Text != "Hello, world!" {
		t.Errorf("cue 1: expected 'Hello, world!', got %q", first.Text)
	}
	if first.Identifier != "1" || first.Number != 1 {
		t.Errorf("cue 1: unexpected numbering %q/%d", first.Identifier, first.Number)
	}

	want := []string{"This is a test.", "With multiple lines."}
	if !reflect.DeepEqual(doc.Cues[1].Lines, want) {
		t.Errorf("cue 2: expected %q, got %q", want, doc.Cues[1].Lines)
	}
	if doc.Cues[1].Start.TotalSeconds() != 5.5 {
		t.Errorf("cue 2: expected start 5.5, got %v", doc.Cues[1].Start.TotalSeconds())
	}
}

func TestParseVTTFile(t *testing.T) {
	doc, err := Open(writeTemp(t, "test.vtt", sampleVTT), Options{FrameRate: 25})
	if err != nil {
		t.Fatalf("failed to open VTT file: %v", err)
	}

	if doc.Format != FormatVTT {
		t.Errorf("expected format VTT, got %s", doc.Format)
	}
	if len(doc.Cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(doc.Cues))
	}

	region, ok := doc.Regions["fred"]
	if !ok {
		t.Fatalf("region fred not parsed")
	}
	if region.Width != 40 || region.ViewportAnchorX != 10 || region.ViewportAnchorY != 90 || region.Scroll != "up" {
		t.Errorf("unexpected region %+v", region)
	}
	if len(doc.Stylesheets) != 1 || doc.Stylesheets[0] != "::cue { color: yellow }" {
		t.Errorf("unexpected stylesheets %q", doc.Stylesheets)
	}

	first := doc.Cues[0]
	if first.Identifier != "1" || first.Region != "fred" || first.Align != "start" {
		t.Errorf("cue 1: unexpected settings %+v", first.Settings)
	}
	if first.Line == nil || *first.Line != 0 || !first.SnapToLines {
		t.Errorf("cue 1: expected snapped line 0, got %+v", first.Settings)
	}
	if !reflect.DeepEqual(first.Lines, []string{"Hello, world!"}) {
		t.Errorf("cue 1: unexpected lines %q", first.Lines)
	}
	if first.Start.Rate() != 25 {
		t.Errorf("cue 1: expected rate 25, got %v", first.Start.Rate())
	}

	second := doc.Cues[1]
	if second.Identifier != "intro" || second.Start.TotalSeconds() != 5.5 {
		t.Errorf("cue 2: unexpected cue %q at %v", second.Identifier, second.Start)
	}
	if second.Line == nil || *second.Line != 50 || second.SnapToLines || second.LineAlign != "center" {
		t.Errorf("cue 2: unexpected line settings %+v", second.Settings)
	}
	if second.Position == nil || *second.Position != 10 || second.PositionAlign != "line-left" || second.Size != 35 {
		t.Errorf("cue 2: unexpected position settings %+v", second.Settings)
	}

	third := doc.Cues[2]
	if third.Identifier != "" {
		t.Errorf("cue 3: expected no identifier, got %q", third.Identifier)
	}
	if !reflect.DeepEqual(third.Lines, []string{"No cue identifier & more."}) {
		t.Errorf("cue 3: unexpected lines %q", third.Lines)
	}

	if len(doc.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", doc.Diagnostics)
	}
	d := doc.Diagnostics[0]
	if d.Line != 23 || d.Cue != 3 || d.Message != "Unknown cue setting (bogus)." {
		t.Errorf("unexpected diagnostic %+v", d)
	}
}

func TestEncodeVTTRoundTrip(t *testing.T) {
	doc, err := ParseVTT(strings.NewReader(sampleVTT), Options{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	out := EncodeVTT(doc)
	for _, want := range []string{
		"WEBVTT\n\nREGION\nid:fred\nwidth:40%\nviewportanchor:10%,90%\nscroll:up\n\n",
		"STYLE\n::cue { color: yellow }\n\n",
		"1\n00:00:01.000 --> 00:00:04.000 region:fred line:0 align:start\n<v Fred>Hello, world!</v>\n\n",
		"intro\n00:05.500 --> 00:08.200 line:50%,center position:10%,line-left size:35%\nThis is a test.\nWith multiple lines.\n\n",
		"00:00:10.000 --> 00:00:12.500\nNo cue identifier &amp; more.\n\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("encoded output missing %q\n%s", want, out)
		}
	}

	again, err := ParseVTT(strings.NewReader(out), Options{})
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	if len(again.Cues) != len(doc.Cues) {
		t.Fatalf("expected %d cues after round trip, got %d", len(doc.Cues), len(again.Cues))
	}
	for i := range doc.Cues {
		if again.Cues[i].Text != doc.Cues[i].Text {
			t.Errorf("cue %d: text %q became %q", i+1, doc.Cues[i].Text, again.Cues[i].Text)
		}
		if again.Cues[i].VTTString() != doc.Cues[i].VTTString() {
			t.Errorf("cue %d: %q became %q", i+1, doc.Cues[i].VTTString(), again.Cues[i].VTTString())
		}
	}
}

func TestParseVTTFatalErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		want  error
	}{
		{"missing blank line", "WEBVTT\n00:00:01.000 --> 00:00:02.000\nHi\n", 2, ErrMissingBlankLine},
		{"bad signature", "WEBVTX\n\n00:00:01.000 --> 00:00:02.000\nHi\n", 1, ErrInvalidSignature},
		{"signature glued to text", "WEBVTTfoo\n\n", 1, ErrInvalidSignature},
		{"empty input", "", 1, ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseVTT(strings.NewReader(tt.input), Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if doc != nil {
				t.Errorf("expected no document, got %d cues", len(doc.Cues))
			}
			var perr *ParseError
			if !errors.As(err, &perr) || perr.Line != tt.line {
				t.Errorf("expected parse error at line %d, got %v", tt.line, err)
			}
		})
	}
}

func TestParseVTTHeaderVariants(t *testing.T) {
	input := "\ufeffWEBVTT - subtitles\r\n\r\n00:01.000 --> 00:02.000\r\nHi\r\n"
	doc, err := ParseVTT(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(doc.Cues) != 1 || doc.Cues[0].Text != "Hi" {
		t.Fatalf("expected one cue 'Hi', got %+v", doc.Cues)
	}
}

func TestParseVTTDiscardsBadTiming(t *testing.T) {
	input := "WEBVTT\n\n00:00:01.000 --> 00:00:99.000\nBad\n\n00:00:02.000 --> 00:00:03.000\nGood\n"
	doc, err := ParseVTT(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(doc.Cues) != 1 || doc.Cues[0].Text != "Good" || doc.Cues[0].Number != 1 {
		t.Fatalf("expected only the good cue, got %+v", doc.Cues)
	}
	if len(doc.Diagnostics) != 1 || doc.Diagnostics[0].Message != "Invalid timestamp line (3). The cue will be ignored." {
		t.Errorf("unexpected diagnostics %v", doc.Diagnostics)
	}
}

func TestParseVTTArrowEndsBlock(t *testing.T) {
	input := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nOne\n00:00:03.000 --> 00:00:04.000\nTwo\n"
	doc, err := ParseVTT(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(doc.Cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(doc.Cues))
	}
	if doc.Cues[0].Text != "One" || doc.Cues[1].Text != "Two" {
		t.Errorf("unexpected texts %q, %q", doc.Cues[0].Text, doc.Cues[1].Text)
	}
}

func TestParseSRTTimingLines(t *testing.T) {
	t.Run("tolerant", func(t *testing.T) {
		doc, err := ParseSRT(strings.NewReader("1\n00:00:01,000-->00:00:02,000\nHi\n"), Options{})
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if len(doc.Cues) != 1 {
			t.Fatalf("expected 1 cue, got %d", len(doc.Cues))
		}
		want := "Timestamp line at 2 may not be decoded by other editors or players."
		if len(doc.Diagnostics) != 1 || doc.Diagnostics[0].Message != want {
			t.Errorf("expected %q, got %v", want, doc.Diagnostics)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseSRT(strings.NewReader("1\nnot a timing line\nHi\n"), Options{})
		if !errors.Is(err, ErrInvalidTimestampLine) {
			t.Fatalf("expected ErrInvalidTimestampLine, got %v", err)
		}
		var perr *ParseError
		if !errors.As(err, &perr) || perr.Line != 2 {
			t.Errorf("expected error at line 2, got %v", err)
		}
	})

	t.Run("end of input", func(t *testing.T) {
		_, err := ParseSRT(strings.NewReader("1\n00:00:01,000 --> 00:00:02,000\nA\n\n2"), Options{})
		if !errors.Is(err, ErrInvalidTimestampLine) {
			t.Fatalf("expected ErrInvalidTimestampLine, got %v", err)
		}
	})
}

func TestParseSRTSequenceFlags(t *testing.T) {
	input := `1
00:00:01,000 --> 00:00:02,000
A

3
00:00:03,000 --> 00:00:04,000
B

00:00:05,000 --> 00:00:06,000
C
`
	doc, err := ParseSRT(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(doc.Cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(doc.Cues))
	}
	if !doc.NonContinuousSequence || !doc.BrokenSequence {
		t.Errorf("expected both sequence flags, got broken=%v non-continuous=%v",
			doc.BrokenSequence, doc.NonContinuousSequence)
	}
	if doc.Cues[2].Number != 3 || doc.Cues[2].Identifier != "" {
		t.Errorf("unexpected numbering for cue 3: %d/%q", doc.Cues[2].Number, doc.Cues[2].Identifier)
	}
	if len(doc.Diagnostics) != 2 {
		t.Errorf("expected 2 warnings, got %v", doc.Diagnostics)
	}
}

func TestCueMetrics(t *testing.T) {
	doc, err := ParseSRT(strings.NewReader("1\n00:00:01,000 --> 00:00:01,500\nHi\n\n2\n00:00:02,000 --> 00:00:04,000\n- Yes.\n- No.\n"), Options{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	hi := doc.Cues[0]
	if hi.Duration != 0.5 || hi.CPSNoSpaces != 4.0 || hi.CPS != 4.0 {
		t.Errorf("cue 1: expected 0.5s at 4 CPS, got %v s, %v/%v", hi.Duration, hi.CPS, hi.CPSNoSpaces)
	}
	if hi.Dialogue {
		t.Errorf("cue 1: not a dialogue")
	}

	dlg := doc.Cues[1]
	if !dlg.Dialogue {
		t.Errorf("cue 2: expected dialogue")
	}
	if !reflect.DeepEqual(dlg.LineLengths, []int{6, 5}) || dlg.TotalLength != 11 || dlg.TotalLengthNoSpaces != 9 {
		t.Errorf("cue 2: unexpected lengths %v %d %d", dlg.LineLengths, dlg.TotalLength, dlg.TotalLengthNoSpaces)
	}
	if dlg.CPS != 5.5 || dlg.CPSNoSpaces != 4.5 {
		t.Errorf("cue 2: unexpected CPS %v/%v", dlg.CPS, dlg.CPSNoSpaces)
	}

	dlg.SetTimes(dlg.Start, dlg.End.Offset(-1))
	if dlg.Duration != 1 || dlg.CPS != 11 {
		t.Errorf("cue 2: metrics not recomputed after SetTimes: %v %v", dlg.Duration, dlg.CPS)
	}
}

func TestConvertAndWrite(t *testing.T) {
	input := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000 align:start\n<v Fred><i>Hi</i> &amp; bye</v>\n\n00:00:03.000 --> 00:00:04.000\nTwo\nlines\n"
	doc, err := ParseVTT(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	srt, err := Convert(doc, FormatSRT)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	want := "1\n00:00:01,000 --> 00:00:02,000\n<i>Hi</i> & bye\n\n2\n00:00:03,000 --> 00:00:04,000\nTwo\nlines\n\n"
	if got := EncodeSRT(srt); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if doc.Cues[0].Dialect != FormatVTT.Dialect() {
		t.Errorf("convert modified the source document")
	}

	outPath := filepath.Join(t.TempDir(), "out", "output.ass")
	if err := doc.Write(outPath, FormatASS); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	outContent, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	outStr := string(outContent)
	if !strings.Contains(outStr, "Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,{\\i1}Hi{\\i0} & bye\n") {
		t.Errorf("first dialogue not correct, got: %s", outStr)
	}
	if !strings.Contains(outStr, "Dialogue: 0,0:00:03.00,0:00:04.00,Default,,0,0,0,,Two\\Nlines\n") {
		t.Errorf("second dialogue not correct, got: %s", outStr)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	doc, err := ParseVTT(strings.NewReader(sampleVTT), Options{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	cp := doc.Clone()
	cp.Cues[0].SetText("changed")
	*cp.Cues[0].Line = 5
	cp.Regions["fred"].Width = 10

	if doc.Cues[0].Text != "<v Fred>Hello, world!</v>" {
		t.Errorf("clone shares cue text")
	}
	if *doc.Cues[0].Line != 0 {
		t.Errorf("clone shares line setting")
	}
	if doc.Regions["fred"].Width != 40 {
		t.Errorf("clone shares regions")
	}
}

func TestOpenUnsupportedFormat(t *testing.T) {
	_, err := Open(writeTemp(t, "test.txt", "test"), Options{})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got: %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected 'unsupported' in error, got: %v", err)
	}
}
