package subtitle

import (
	"fmt"
	"io"
	"os"
)

// Open parses the file at path, choosing the parser by extension.
func Open(path string, opts Options) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	doc, err := Parse(file, format, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// Parse reads a document in format f from r.
func Parse(r io.Reader, f Format, opts Options) (*Document, error) {
	switch f {
	case FormatVTT:
		return ParseVTT(r, opts)
	case FormatSRT:
		return ParseSRT(r, opts)
	default:
		return nil, fmt.Errorf("%w for reading: %s", ErrUnsupportedFormat, f)
	}
}

// Convert returns a copy of doc re-targeted at format f, with cue text
// rewritten into what f can hold.
func Convert(doc *Document, f Format) (*Document, error) {
	out := doc.Clone()
	out.Format = f
	switch f {
	case FormatSRT:
		for _, cue := range out.Cues {
			text := cue.srtText()
			cue.Dialect = f.Dialect()
			cue.Settings = DefaultSettings()
			cue.SetText(text)
		}
		out.Regions = make(map[string]*Region)
		out.Stylesheets = nil
	case FormatVTT:
		for _, cue := range out.Cues {
			text := cue.vttText()
			cue.Dialect = f.Dialect()
			cue.SetText(text)
		}
	case FormatASS:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return out, nil
}
